package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/audit"
	"dormtrack/internal/auth"
	"dormtrack/internal/models"
)

func ListPatrolLocations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Model(&models.PatrolLocation{})
		if v := c.Query("building_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "building_id must be an integer"})
				return
			}
			q = q.Where("building_id = ?", id)
		}

		var locations []models.PatrolLocation
		if err := q.Preload("Building").Order("building_id, name").Find(&locations).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, locations)
	}
}

type patrolLocationInput struct {
	Name       string  `json:"name" binding:"required,max=100"`
	BuildingID int     `json:"building_id" binding:"required"`
	Household  *string `json:"household"`
}

func CreatePatrolLocation(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in patrolLocationInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		var building models.Building
		if err := db.First(&building, in.BuildingID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Building not found"})
			return
		}

		location := models.PatrolLocation{
			Name:       in.Name,
			BuildingID: in.BuildingID,
			Household:  in.Household,
		}
		if err := db.Create(&location).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Patrol location already exists"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "CREATE",
			ResourceType: "PatrolLocation",
			ResourceID:   location.ID,
			Metadata:     map[string]any{"name": location.Name, "building_id": location.BuildingID},
		})
		c.JSON(http.StatusCreated, location)
	}
}

func DeletePatrolLocation(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var refs int64
		if err := db.Model(&models.LightsOutCheck{}).
			Where("location_id = ?", id).Count(&refs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if refs > 0 {
			c.JSON(http.StatusConflict, gin.H{"detail": "Patrol location has recorded checks"})
			return
		}

		res := db.Delete(&models.PatrolLocation{}, "id = ?", id)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Patrol location not found"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "DELETE",
			ResourceType: "PatrolLocation",
			ResourceID:   id,
		})
		c.Status(http.StatusNoContent)
	}
}

type patrolCheckInput struct {
	LocationID string             `json:"location_id" binding:"required"`
	Status     models.LightStatus `json:"status" binding:"required"`
	Notes      string             `json:"notes"`
}

type patrolInput struct {
	BuildingID int                `json:"building_id" binding:"required"`
	Checks     []patrolCheckInput `json:"checks" binding:"required,min=1"`
}

// CreatePatrol writes the patrol header and all its checks in one
// transaction; an invalid check rolls the whole round back.
func CreatePatrol(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in patrolInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		user := auth.UserFrom(c)
		patrol := models.LightsOutPatrol{
			BuildingID:  in.BuildingID,
			PatrollerID: user.ID,
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			var building models.Building
			if err := tx.First(&building, in.BuildingID).Error; err != nil {
				return err
			}
			if err := tx.Create(&patrol).Error; err != nil {
				return err
			}
			for _, checkIn := range in.Checks {
				if !models.ValidLightStatus(checkIn.Status) {
					return gorm.ErrInvalidData
				}
				var location models.PatrolLocation
				if err := tx.First(&location, "id = ?", checkIn.LocationID).Error; err != nil {
					return err
				}
				check := models.LightsOutCheck{
					PatrolID:   patrol.ID,
					LocationID: location.ID,
					Status:     checkIn.Status,
					Notes:      checkIn.Notes,
				}
				if err := tx.Create(&check).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"detail": "Building or patrol location not found"})
			case errors.Is(err, gorm.ErrInvalidData):
				c.JSON(http.StatusBadRequest, gin.H{"detail": "Light status must be on or off"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			}
			return
		}

		var created models.LightsOutPatrol
		err = db.Preload("Building").Preload("Patroller").
			Preload("Checks.Location").
			First(&created, "id = ?", patrol.ID).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, user, audit.Event{
			Action:       "CREATE",
			ResourceType: "LightsOutPatrol",
			ResourceID:   patrol.ID,
			Metadata:     map[string]any{"building_id": in.BuildingID, "checks": len(in.Checks)},
		})
		c.JSON(http.StatusCreated, created)
	}
}

func ListPatrols(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Model(&models.LightsOutPatrol{})
		if v := c.Query("building_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "building_id must be an integer"})
				return
			}
			q = q.Where("building_id = ?", id)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if limit <= 0 || limit > 100 {
			limit = 100
		}

		var patrols []models.LightsOutPatrol
		err := q.Preload("Building").Preload("Patroller").
			Preload("Checks.Location").
			Order("patrol_time DESC").Offset(skip).Limit(limit).
			Find(&patrols).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"patrols": patrols, "total": total})
	}
}
