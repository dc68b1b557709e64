package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/audit"
	"dormtrack/internal/auth"
	"dormtrack/internal/models"
)

type itemInput struct {
	Name          string `json:"name" binding:"required,max=100"`
	NameEn        string `json:"name_en"`
	Description   string `json:"description"`
	DescriptionEn string `json:"description_en"`
	IsActive      *bool  `json:"is_active"`
}

func ListItems(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Model(&models.InspectionItem{})
		if c.Query("include_inactive") != "true" {
			q = q.Where("is_active = ?", true)
		}
		var items []models.InspectionItem
		if err := q.Order("name").Find(&items).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func CreateItem(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in itemInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		item := models.InspectionItem{
			Name:          in.Name,
			NameEn:        in.NameEn,
			Description:   in.Description,
			DescriptionEn: in.DescriptionEn,
			IsActive:      true,
		}
		if in.IsActive != nil {
			item.IsActive = *in.IsActive
		}
		if err := db.Create(&item).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "CREATE",
			ResourceType: "InspectionItem",
			ResourceID:   item.ID,
			Metadata:     map[string]any{"name": item.Name},
		})
		c.JSON(http.StatusCreated, item)
	}
}

func UpdateItem(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var item models.InspectionItem
		if err := db.First(&item, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Inspection item not found"})
			return
		}

		var in itemInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		updates := map[string]any{
			"name":           in.Name,
			"name_en":        in.NameEn,
			"description":    in.Description,
			"description_en": in.DescriptionEn,
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if err := db.Model(&item).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "UPDATE",
			ResourceType: "InspectionItem",
			ResourceID:   item.ID,
		})
		c.JSON(http.StatusOK, item)
	}
}

// DeleteItem deactivates an item referenced by past inspections instead of
// breaking their details.
func DeleteItem(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var item models.InspectionItem
		if err := db.First(&item, "id = ?", id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Inspection item not found"})
			return
		}

		var refs int64
		if err := db.Model(&models.InspectionDetail{}).
			Where("item_id = ?", id).Count(&refs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		if refs > 0 {
			if err := db.Model(&item).Update("is_active", false).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
				return
			}
			rec.Record(c, auth.UserFrom(c), audit.Event{
				Action:       "UPDATE",
				ResourceType: "InspectionItem",
				ResourceID:   id,
				Metadata:     map[string]any{"deactivated": true},
			})
			c.JSON(http.StatusOK, gin.H{"message": "Item is referenced by inspections and was deactivated instead"})
			return
		}

		if err := db.Delete(&item).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "DELETE",
			ResourceType: "InspectionItem",
			ResourceID:   id,
		})
		c.Status(http.StatusNoContent)
	}
}
