package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/models"
)

// DashboardStats aggregates the counters the overview page renders.
func DashboardStats(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			students       int64
			occupiedBeds   int64
			totalBeds      int64
			pending        int64
			submittedToday int64
			openIssues     int64
		)

		if err := db.Model(&models.Student{}).Count(&students).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if err := db.Model(&models.Bed{}).Count(&totalBeds).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if err := db.Model(&models.Bed{}).
			Where("status = ?", models.BedOccupied).Count(&occupiedBeds).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if err := db.Model(&models.InspectionRecord{}).
			Where("status = ?", models.InspectionPending).Count(&pending).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		midnight := time.Now().Truncate(24 * time.Hour)
		if err := db.Model(&models.InspectionRecord{}).
			Where("submitted_at >= ?", midnight).Count(&submittedToday).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		if err := db.Model(&models.InspectionDetail{}).
			Where("status IN ?", []models.ItemStatus{models.ItemDamaged, models.ItemMissing}).
			Count(&openIssues).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		type statusCount struct {
			Status string `json:"status"`
			Count  int64  `json:"count"`
		}
		var distribution []statusCount
		if err := db.Model(&models.InspectionRecord{}).
			Select("status, COUNT(*) AS count").Group("status").
			Scan(&distribution).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"students":            students,
			"beds_total":          totalBeds,
			"beds_occupied":       occupiedBeds,
			"pending_reviews":     pending,
			"submitted_today":     submittedToday,
			"open_issues":         openIssues,
			"status_distribution": distribution,
		})
	}
}
