package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/models"
)

// GlobalSearch fans out to students, rooms and inspection records
// concurrently and joins the partial results. Each branch caps its own
// result count so one noisy term cannot flood the response.
func GlobalSearch(db *gorm.DB) gin.HandlerFunc {
	const branchLimit = 20
	return func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "q is required"})
			return
		}
		like := "%" + query + "%"

		var (
			wg          sync.WaitGroup
			students    []models.Student
			rooms       []models.Room
			records     []models.InspectionRecord
			studentsErr error
			roomsErr    error
			recordsErr  error
		)

		wg.Add(3)
		go func() {
			defer wg.Done()
			studentsErr = db.Preload("Bed.Room.Building").
				Where("full_name LIKE ? OR student_number LIKE ?", like, like).
				Limit(branchLimit).Find(&students).Error
		}()
		go func() {
			defer wg.Done()
			roomsErr = db.Preload("Building").
				Where("room_number LIKE ? OR household LIKE ?", like, like).
				Limit(branchLimit).Find(&rooms).Error
		}()
		go func() {
			defer wg.Done()
			sub := db.Session(&gorm.Session{NewDB: true}).
				Model(&models.Student{}).Select("id").
				Where("full_name LIKE ? OR student_number LIKE ?", like, like)
			recordsErr = db.Preload("Student").Preload("Room").
				Where("student_id IN (?)", sub).
				Order("created_at DESC").Limit(branchLimit).Find(&records).Error
		}()
		wg.Wait()

		for _, err := range []error{studentsErr, roomsErr, recordsErr} {
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"students":    students,
			"rooms":       rooms,
			"inspections": records,
		})
	}
}
