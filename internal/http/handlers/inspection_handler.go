package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/audit"
	"dormtrack/internal/auth"
	"dormtrack/internal/dorm"
	"dormtrack/internal/inspection"
	"dormtrack/internal/models"
	"dormtrack/internal/notify"
	"dormtrack/internal/perm"
)

// mapInspectionError translates service sentinels to HTTP responses.
func mapInspectionError(c *gin.Context, err error) {
	var artifact *inspection.ArtifactError
	switch {
	case errors.Is(err, inspection.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"detail": "Not authorized to submit inspections"})
	case errors.Is(err, inspection.ErrCrossStudent):
		c.JSON(http.StatusForbidden, gin.H{"detail": "Cannot submit an inspection for another student"})
	case errors.Is(err, inspection.ErrNotLinked):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Current user is not linked to a student record"})
	case errors.Is(err, inspection.ErrStudentIDRequired):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "student_id is required"})
	case errors.Is(err, inspection.ErrNoRoom):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Student is not assigned to a room, and no room_id provided"})
	case errors.Is(err, inspection.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Room not found"})
	case errors.Is(err, inspection.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Inspection item not found"})
	case errors.Is(err, inspection.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Inspection record not found"})
	case errors.Is(err, dorm.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Student not found"})
	case errors.As(err, &artifact), errors.Is(err, gorm.ErrInvalidData):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}

// CreateInspection accepts a single submission. Target resolution and the
// write all happen inside one transaction in the service.
func CreateInspection(svc *inspection.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in inspection.CreateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		user := auth.UserFrom(c)
		set := auth.PermissionsFrom(c)
		record, err := svc.Create(c.Request.Context(), user, set, in)
		if err != nil {
			mapInspectionError(c, err)
			return
		}

		rec.Record(c, user, audit.Event{
			Action:       "CREATE",
			ResourceType: "InspectionRecord",
			ResourceID:   record.ID,
			Metadata:     map[string]any{"student_id": record.StudentID, "room_id": record.RoomID},
		})
		c.JSON(http.StatusCreated, record)
	}
}

// CreateInspectionBatch accepts a list of submissions as one atomic unit.
// Entries without a student id are skipped and reported by index.
func CreateInspectionBatch(svc *inspection.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in inspection.BatchInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		user := auth.UserFrom(c)
		records, skipped, err := svc.CreateBatch(c.Request.Context(), user, in)
		if err != nil {
			mapInspectionError(c, err)
			return
		}
		if skipped == nil {
			skipped = []int{}
		}

		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.ID
		}
		rec.Record(c, user, audit.Event{
			Action:       "CREATE",
			ResourceType: "InspectionRecord",
			ResourceID:   "batch",
			Metadata:     map[string]any{"record_ids": ids, "skipped": skipped},
		})
		c.JSON(http.StatusCreated, gin.H{
			"records":       records,
			"skipped":       skipped,
			"total_created": len(records),
		})
	}
}

// ListInspections scopes results: inspections:view_all sees everything,
// inspections:view_own only the caller's linked student.
func ListInspections(svc *inspection.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.UserFrom(c)
		set := auth.PermissionsFrom(c)

		var filter inspection.ListFilter
		filter.StudentID = c.Query("student_id")
		filter.Status = models.InspectionStatus(c.Query("status"))
		filter.ItemStatus = models.ItemStatus(c.Query("item_status"))
		if v := c.Query("room_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "room_id must be an integer"})
				return
			}
			filter.RoomID = id
		}
		if v := c.Query("skip"); v != "" {
			filter.Skip, _ = strconv.Atoi(v)
		}
		if v := c.Query("limit"); v != "" {
			filter.Limit, _ = strconv.Atoi(v)
		}

		if !perm.Evaluate(set, perm.All(perm.InspectionsViewAll)) {
			if user.Student == nil {
				c.JSON(http.StatusOK, gin.H{"records": []models.InspectionRecord{}, "total": 0})
				return
			}
			filter.StudentID = user.Student.ID
		}

		records, total, err := svc.List(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records, "total": total})
	}
}

// canReadRecord enforces the ownership rule for single-record reads.
func canReadRecord(c *gin.Context, record *models.InspectionRecord) bool {
	set := auth.PermissionsFrom(c)
	if perm.Evaluate(set, perm.All(perm.InspectionsViewAll)) {
		return true
	}
	user := auth.UserFrom(c)
	return user.Student != nil && user.Student.ID == record.StudentID
}

func GetInspection(svc *inspection.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			mapInspectionError(c, err)
			return
		}
		if !canReadRecord(c, record) {
			c.JSON(http.StatusForbidden, gin.H{"detail": "Not authorized to view this inspection"})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

type updateStatusInput struct {
	Status models.InspectionStatus `json:"status" binding:"required"`
}

func UpdateInspectionStatus(svc *inspection.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in updateStatusInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		record, err := svc.UpdateStatus(c.Request.Context(), c.Param("id"), in.Status)
		if err != nil {
			mapInspectionError(c, err)
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "UPDATE",
			ResourceType: "InspectionRecord",
			ResourceID:   record.ID,
			Metadata:     map[string]any{"status": string(in.Status)},
		})
		c.JSON(http.StatusOK, record)
	}
}

func DeleteInspection(svc *inspection.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			mapInspectionError(c, err)
			return
		}
		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "DELETE",
			ResourceType: "InspectionRecord",
			ResourceID:   id,
		})
		c.Status(http.StatusNoContent)
	}
}

// InspectionPDF streams a rendered report for download.
func InspectionPDF(svc *inspection.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			mapInspectionError(c, err)
			return
		}
		if !canReadRecord(c, record) {
			c.JSON(http.StatusForbidden, gin.H{"detail": "Not authorized to view this inspection"})
			return
		}

		pdf, err := inspection.RenderPDF(record)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to render PDF"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=inspection_%s.pdf", record.ID))
		c.Data(http.StatusOK, "application/pdf", pdf)
	}
}

type emailReportInput struct {
	RecipientEmail string `json:"recipient_email" binding:"required,email"`
}

// EmailInspection renders the report and mails it out of band.
func EmailInspection(svc *inspection.Service, mailer *notify.Mailer, rec *audit.Recorder, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in emailReportInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		record, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			mapInspectionError(c, err)
			return
		}
		if !canReadRecord(c, record) {
			c.JSON(http.StatusForbidden, gin.H{"detail": "Not authorized to view this inspection"})
			return
		}

		pdf, err := inspection.RenderPDF(record)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to render PDF"})
			return
		}

		studentName := record.StudentID
		if record.Student != nil {
			studentName = record.Student.FullName
		}
		roomNumber := strconv.Itoa(record.RoomID)
		if record.Room != nil {
			roomNumber = record.Room.RoomNumber
		}
		filename := fmt.Sprintf("inspection_%s.pdf", record.ID)
		go mailer.SendInspectionReport(in.RecipientEmail, studentName, roomNumber, filename, pdf)

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "EMAIL",
			ResourceType: "InspectionRecord",
			ResourceID:   record.ID,
			Metadata:     map[string]any{"recipient": in.RecipientEmail},
		})
		log.Info("inspection report queued for email", "record", record.ID, "recipient", in.RecipientEmail)
		c.JSON(http.StatusAccepted, gin.H{"message": "Report email has been queued"})
	}
}
