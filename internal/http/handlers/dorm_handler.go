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

// Buildings, rooms and beds share one handler file: they are thin CRUD
// surfaces over the physical-location hierarchy.

func ListBuildings(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var buildings []models.Building
		if err := db.Order("name").Find(&buildings).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, buildings)
	}
}

type buildingInput struct {
	Name string `json:"name" binding:"required,max=50"`
}

func CreateBuilding(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in buildingInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		building := models.Building{Name: in.Name}
		if err := db.Create(&building).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Building already exists"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "CREATE",
			ResourceType: "Building",
			ResourceID:   strconv.Itoa(building.ID),
			Metadata:     map[string]any{"name": building.Name},
		})
		c.JSON(http.StatusCreated, building)
	}
}

func DeleteBuilding(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "id must be an integer"})
			return
		}

		var rooms int64
		if err := db.Model(&models.Room{}).Where("building_id = ?", id).Count(&rooms).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if rooms > 0 {
			c.JSON(http.StatusConflict, gin.H{"detail": "Building still has rooms"})
			return
		}

		res := db.Delete(&models.Building{}, id)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Building not found"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "DELETE",
			ResourceType: "Building",
			ResourceID:   strconv.Itoa(id),
		})
		c.Status(http.StatusNoContent)
	}
}

func ListRooms(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Model(&models.Room{})
		if v := c.Query("building_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "building_id must be an integer"})
				return
			}
			q = q.Where("building_id = ?", id)
		}
		if v := c.Query("household"); v != "" {
			q = q.Where("household = ?", v)
		}

		var rooms []models.Room
		if err := q.Preload("Building").Preload("Beds").
			Order("building_id, room_number").Find(&rooms).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, rooms)
	}
}

type roomInput struct {
	BuildingID int    `json:"building_id" binding:"required"`
	RoomNumber string `json:"room_number" binding:"required,max=50"`
	Household  string `json:"household"`
	RoomType   string `json:"room_type"`
}

func CreateRoom(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in roomInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		var building models.Building
		if err := db.First(&building, in.BuildingID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Building not found"})
			return
		}

		room := models.Room{
			BuildingID: in.BuildingID,
			RoomNumber: in.RoomNumber,
			Household:  in.Household,
			RoomType:   in.RoomType,
		}
		if err := db.Create(&room).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Room already exists in this building"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "CREATE",
			ResourceType: "Room",
			ResourceID:   strconv.Itoa(room.ID),
			Metadata:     map[string]any{"building_id": room.BuildingID, "room_number": room.RoomNumber},
		})
		c.JSON(http.StatusCreated, room)
	}
}

func DeleteRoom(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "id must be an integer"})
			return
		}

		var occupied int64
		if err := db.Model(&models.Bed{}).
			Where("room_id = ? AND status = ?", id, models.BedOccupied).
			Count(&occupied).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if occupied > 0 {
			c.JSON(http.StatusConflict, gin.H{"detail": "Room still has occupied beds"})
			return
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			var room models.Room
			if err := tx.First(&room, id).Error; err != nil {
				return err
			}
			if err := tx.Where("room_id = ?", id).Delete(&models.Bed{}).Error; err != nil {
				return err
			}
			return tx.Delete(&room).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"detail": "Room not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "DELETE",
			ResourceType: "Room",
			ResourceID:   strconv.Itoa(id),
		})
		c.Status(http.StatusNoContent)
	}
}

func ListBeds(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Model(&models.Bed{})
		if v := c.Query("room_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "room_id must be an integer"})
				return
			}
			q = q.Where("room_id = ?", id)
		}
		if v := c.Query("status"); v != "" {
			q = q.Where("status = ?", v)
		}

		var beds []models.Bed
		if err := q.Preload("Room.Building").Order("room_id, bed_number").Find(&beds).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, beds)
	}
}

type bedInput struct {
	RoomID    int    `json:"room_id" binding:"required"`
	BedNumber string `json:"bed_number" binding:"required,max=20"`
	BedType   string `json:"bed_type"`
}

func CreateBed(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in bedInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		var room models.Room
		if err := db.First(&room, in.RoomID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Room not found"})
			return
		}

		bed := models.Bed{
			RoomID:    in.RoomID,
			BedNumber: in.BedNumber,
			BedType:   in.BedType,
			Status:    models.BedAvailable,
		}
		if err := db.Create(&bed).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "CREATE",
			ResourceType: "Bed",
			ResourceID:   strconv.Itoa(bed.ID),
			Metadata:     map[string]any{"room_id": bed.RoomID, "bed_number": bed.BedNumber},
		})
		c.JSON(http.StatusCreated, bed)
	}
}

func DeleteBed(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "id must be an integer"})
			return
		}

		var bed models.Bed
		if err := db.First(&bed, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Bed not found"})
			return
		}
		if bed.Status == models.BedOccupied {
			c.JSON(http.StatusConflict, gin.H{"detail": "Bed is occupied"})
			return
		}

		if err := db.Delete(&bed).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "DELETE",
			ResourceType: "Bed",
			ResourceID:   strconv.Itoa(id),
		})
		c.Status(http.StatusNoContent)
	}
}
