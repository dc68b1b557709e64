package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/audit"
	"dormtrack/internal/auth"
	"dormtrack/internal/models"
	"dormtrack/internal/perm"
)

type announcementInput struct {
	Title     string         `json:"title" binding:"required,max=200"`
	TitleEn   string         `json:"title_en"`
	Content   string         `json:"content" binding:"required"`
	ContentEn string         `json:"content_en"`
	Tag       string         `json:"tag" binding:"required,max=50"`
	TagType   models.TagType `json:"tag_type"`
	IsActive  *bool          `json:"is_active"`
}

// ListAnnouncements shows active entries to everyone with announcements:view;
// editors also see inactive ones when asked.
func ListAnnouncements(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Model(&models.Announcement{})

		set := auth.PermissionsFrom(c)
		includeInactive := c.Query("include_inactive") == "true" &&
			perm.Evaluate(set, perm.All(perm.AnnouncementsEdit))
		if !includeInactive {
			q = q.Where("is_active = ?", true)
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

		var announcements []models.Announcement
		err := q.Preload("Creator").
			Order("created_at DESC").Offset(skip).Limit(limit).
			Find(&announcements).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"announcements": announcements, "total": total})
	}
}

func CreateAnnouncement(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in announcementInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		if in.TagType == "" {
			in.TagType = models.TagPrimary
		}
		if !models.ValidTagType(in.TagType) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid tag_type"})
			return
		}

		user := auth.UserFrom(c)
		a := models.Announcement{
			Title:     in.Title,
			TitleEn:   in.TitleEn,
			Content:   in.Content,
			ContentEn: in.ContentEn,
			Tag:       in.Tag,
			TagType:   in.TagType,
			IsActive:  true,
			CreatedBy: user.ID,
		}
		if in.IsActive != nil {
			a.IsActive = *in.IsActive
		}
		if err := db.Create(&a).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, user, audit.Event{
			Action:       "CREATE",
			ResourceType: "Announcement",
			ResourceID:   a.ID,
			Metadata:     map[string]any{"title": a.Title},
		})
		c.JSON(http.StatusCreated, a)
	}
}

func UpdateAnnouncement(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var a models.Announcement
		if err := db.First(&a, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Announcement not found"})
			return
		}

		var in announcementInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		if in.TagType != "" && !models.ValidTagType(in.TagType) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid tag_type"})
			return
		}

		updates := map[string]any{
			"title":      in.Title,
			"title_en":   in.TitleEn,
			"content":    in.Content,
			"content_en": in.ContentEn,
			"tag":        in.Tag,
		}
		if in.TagType != "" {
			updates["tag_type"] = in.TagType
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if err := db.Model(&a).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "UPDATE",
			ResourceType: "Announcement",
			ResourceID:   a.ID,
		})
		c.JSON(http.StatusOK, a)
	}
}

func DeleteAnnouncement(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		res := db.Delete(&models.Announcement{}, "id = ?", id)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Announcement not found"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "DELETE",
			ResourceType: "Announcement",
			ResourceID:   id,
		})
		c.Status(http.StatusNoContent)
	}
}
