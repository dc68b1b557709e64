package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/models"
)

// ListAuditLogs pages backwards through the log using the integer primary
// key as cursor: pass the smallest id from the previous page as before_id.
func ListAuditLogs(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Model(&models.AuditLog{})
		if v := c.Query("user_id"); v != "" {
			q = q.Where("user_id = ?", v)
		}
		if v := c.Query("action"); v != "" {
			q = q.Where("action = ?", v)
		}
		if v := c.Query("resource_type"); v != "" {
			q = q.Where("resource_type = ?", v)
		}
		if v := c.Query("before_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "before_id must be an integer"})
				return
			}
			q = q.Where("id < ?", id)
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if limit <= 0 || limit > 200 {
			limit = 200
		}

		var logs []models.AuditLog
		if err := q.Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		var nextCursor *int64
		if len(logs) == limit {
			nextCursor = &logs[len(logs)-1].ID
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "next_before_id": nextCursor})
	}
}
