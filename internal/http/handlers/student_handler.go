package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/audit"
	"dormtrack/internal/auth"
	"dormtrack/internal/dorm"
	"dormtrack/internal/models"
	"dormtrack/internal/perm"
)

type studentInput struct {
	StudentNumber    string  `json:"student_number" binding:"required,max=50"`
	FullName         string  `json:"full_name" binding:"required,max=100"`
	ClassName        string  `json:"class_name"`
	Gender           string  `json:"gender"`
	IdentityStatus   string  `json:"identity_status"`
	IsForeignStudent bool    `json:"is_foreign_student"`
	EnrollmentStatus string  `json:"enrollment_status"`
	Remarks          string  `json:"remarks"`
	LicensePlate     string  `json:"license_plate"`
	TempCardNumber   string  `json:"temp_card_number"`
	UserID           *string `json:"user_id"`
}

// ListStudents supports search and pagination. Callers without
// students:view_all only see their own linked record.
func ListStudents(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		set := auth.PermissionsFrom(c)
		q := db.Model(&models.Student{})

		if !perm.Evaluate(set, perm.All(perm.StudentsViewAll)) {
			user := auth.UserFrom(c)
			if user.Student == nil {
				c.JSON(http.StatusOK, gin.H{"students": []models.Student{}, "total": 0})
				return
			}
			q = q.Where("id = ?", user.Student.ID)
		}

		if search := c.Query("search"); search != "" {
			like := "%" + search + "%"
			q = q.Where("full_name LIKE ? OR student_number LIKE ?", like, like)
		}
		if class := c.Query("class_name"); class != "" {
			q = q.Where("class_name = ?", class)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if limit <= 0 || limit > 100 {
			limit = 100
		}

		var students []models.Student
		err := q.Preload("Bed.Room.Building").Preload("User").
			Order("student_number").Offset(skip).Limit(limit).
			Find(&students).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"students": students, "total": total})
	}
}

func GetStudentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		set := auth.PermissionsFrom(c)
		if !perm.Evaluate(set, perm.All(perm.StudentsViewAll)) {
			user := auth.UserFrom(c)
			if user.Student == nil || user.Student.ID != id {
				c.JSON(http.StatusForbidden, gin.H{"detail": "Not authorized to view this student"})
				return
			}
		}

		student, err := dorm.GetStudent(db, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Student not found"})
			return
		}
		c.JSON(http.StatusOK, student)
	}
}

func CreateStudent(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in studentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		var count int64
		if err := db.Model(&models.Student{}).
			Where("student_number = ?", in.StudentNumber).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if count > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Student number already registered"})
			return
		}

		student := models.Student{
			StudentNumber:    in.StudentNumber,
			FullName:         in.FullName,
			ClassName:        in.ClassName,
			Gender:           in.Gender,
			IdentityStatus:   in.IdentityStatus,
			IsForeignStudent: in.IsForeignStudent,
			EnrollmentStatus: in.EnrollmentStatus,
			Remarks:          in.Remarks,
			LicensePlate:     in.LicensePlate,
			TempCardNumber:   in.TempCardNumber,
			UserID:           in.UserID,
		}
		if err := db.Create(&student).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "CREATE",
			ResourceType: "Student",
			ResourceID:   student.ID,
			Metadata:     map[string]any{"student_number": student.StudentNumber},
		})
		c.JSON(http.StatusCreated, student)
	}
}

func UpdateStudent(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var student models.Student
		if err := db.First(&student, "id = ?", id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Student not found"})
			return
		}

		var in studentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		updates := map[string]any{
			"student_number":     in.StudentNumber,
			"full_name":          in.FullName,
			"class_name":         in.ClassName,
			"gender":             in.Gender,
			"identity_status":    in.IdentityStatus,
			"is_foreign_student": in.IsForeignStudent,
			"enrollment_status":  in.EnrollmentStatus,
			"remarks":            in.Remarks,
			"license_plate":      in.LicensePlate,
			"temp_card_number":   in.TempCardNumber,
			"user_id":            in.UserID,
		}
		if err := db.Model(&student).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "UPDATE",
			ResourceType: "Student",
			ResourceID:   student.ID,
		})

		updated, err := dorm.GetStudent(db, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteStudent frees the student's bed before removing the record so the
// bed does not stay marked occupied.
func DeleteStudent(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		err := db.Transaction(func(tx *gorm.DB) error {
			var student models.Student
			if err := tx.First(&student, "id = ?", id).Error; err != nil {
				return err
			}
			if err := dorm.ReleaseBedOf(tx, &student); err != nil {
				return err
			}
			return tx.Delete(&student).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"detail": "Student not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "DELETE",
			ResourceType: "Student",
			ResourceID:   id,
		})
		c.Status(http.StatusNoContent)
	}
}

type assignBedInput struct {
	BedID *int `json:"bed_id"`
}

// AssignStudentBed moves a student between beds. A null bed_id unassigns.
// Conflicts name the current occupant and return 409.
func AssignStudentBed(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in assignBedInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		student, err := dorm.AssignBed(db, c.Param("id"), in.BedID)
		if err != nil {
			var conflict *dorm.ConflictError
			switch {
			case errors.Is(err, dorm.ErrStudentNotFound):
				c.JSON(http.StatusNotFound, gin.H{"detail": "Student not found"})
			case errors.Is(err, dorm.ErrBedNotFound):
				c.JSON(http.StatusNotFound, gin.H{"detail": "Bed not found"})
			case errors.As(err, &conflict):
				c.JSON(http.StatusConflict, gin.H{"detail": conflict.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			}
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "UPDATE",
			ResourceType: "Student",
			ResourceID:   student.ID,
			Metadata:     map[string]any{"bed_id": in.BedID},
		})
		c.JSON(http.StatusOK, student)
	}
}
