// Package inspection implements the submission pipeline: resolve the target
// student and room, store signature and photo artifacts, and persist the
// header with its ordered details and photos in one transaction.
package inspection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"dormtrack/internal/dorm"
	"dormtrack/internal/models"
	"dormtrack/internal/perm"
	"dormtrack/internal/storage"
)

// ArtifactError marks a signature or photo that could not be decoded or
// stored. It aborts the whole submission as a client error naming the
// artifact.
type ArtifactError struct {
	Artifact string
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("failed to store %s: %v", e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

type PhotoInput struct {
	FileContent string `json:"file_content" binding:"required"`
	FileName    string `json:"file_name"`
}

type DetailInput struct {
	ItemID  string            `json:"item_id" binding:"required"`
	Status  models.ItemStatus `json:"status" binding:"required"`
	Comment string            `json:"comment"`
	Photos  []PhotoInput      `json:"photos"`
}

type CreateInput struct {
	RoomID          *int          `json:"room_id"`
	StudentID       string        `json:"student_id"`
	Details         []DetailInput `json:"details" binding:"required,min=1"`
	SignatureBase64 string        `json:"signature_base64"`
}

type BatchInput struct {
	Inspections []CreateInput `json:"inspections" binding:"required,min=1"`
}

type Service struct {
	db    *gorm.DB
	files *storage.Store
	log   *slog.Logger
}

func NewService(db *gorm.DB, files *storage.Store, log *slog.Logger) *Service {
	return &Service{db: db, files: files, log: log}
}

// Create runs the single-record path. The whole header+details+photos
// subtree commits atomically; any failure rolls everything back. The
// committed record is re-fetched with all relationships loaded.
func (s *Service) Create(ctx context.Context, caller *models.User, set perm.Set, in CreateInput) (*models.InspectionRecord, error) {
	var recordID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student, roomID, err := ResolveTarget(tx, set, caller.Student, in.StudentID, in.RoomID)
		if err != nil {
			return err
		}
		rec, err := s.insertOne(tx, in, student.ID, roomID, caller.ID)
		if err != nil {
			return err
		}
		recordID = rec.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, recordID)
}

// CreateBatch repeats the persistence steps per entry inside a single outer
// transaction: the whole batch commits or rolls back together. Entries
// missing a student id are excluded and their indices reported.
func (s *Service) CreateBatch(ctx context.Context, caller *models.User, in BatchInput) ([]*models.InspectionRecord, []int, error) {
	var ids []string
	var skipped []int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, entry := range in.Inspections {
			if entry.StudentID == "" {
				skipped = append(skipped, i)
				continue
			}
			student, roomID, err := resolveBatchRoom(tx, entry)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			rec, err := s.insertOne(tx, entry, student.ID, roomID, caller.ID)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			ids = append(ids, rec.ID)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	records := make([]*models.InspectionRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// insertOne stores artifacts and persists the header, its details in request
// order, and their photos. Runs inside the caller's transaction.
func (s *Service) insertOne(tx *gorm.DB, in CreateInput, studentID string, roomID int, inspectorID string) (*models.InspectionRecord, error) {
	var signature *string
	if in.SignatureBase64 != "" {
		name, err := s.files.SaveBase64Image(in.SignatureBase64)
		if err != nil {
			return nil, &ArtifactError{Artifact: "signature", Err: err}
		}
		signature = &name
	}

	now := time.Now()
	rec := models.InspectionRecord{
		StudentID:   studentID,
		RoomID:      roomID,
		InspectorID: &inspectorID,
		Status:      models.InspectionSubmitted,
		Signature:   signature,
		SubmittedAt: &now,
	}
	if err := tx.Create(&rec).Error; err != nil {
		return nil, err
	}

	for _, detailIn := range in.Details {
		if !models.ValidItemStatus(detailIn.Status) {
			return nil, fmt.Errorf("%w: invalid item status %q", gorm.ErrInvalidData, detailIn.Status)
		}
		var item models.InspectionItem
		if err := tx.First(&item, "id = ?", detailIn.ItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrItemNotFound
			}
			return nil, err
		}

		detail := models.InspectionDetail{
			RecordID: rec.ID,
			ItemID:   item.ID,
			Status:   detailIn.Status,
			Comment:  detailIn.Comment,
		}
		if err := tx.Create(&detail).Error; err != nil {
			return nil, err
		}

		for _, photoIn := range detailIn.Photos {
			name, err := s.files.SaveBase64Image(photoIn.FileContent)
			if err != nil {
				return nil, &ArtifactError{Artifact: fmt.Sprintf("photo for item %s", item.Name), Err: err}
			}
			photo := models.Photo{DetailID: detail.ID, FilePath: name}
			if err := tx.Create(&photo).Error; err != nil {
				return nil, err
			}
		}
	}
	return &rec, nil
}

// resolveBatchRoom derives the room for a batch entry: explicit room_id
// override, otherwise the target student's bed.
func resolveBatchRoom(tx *gorm.DB, entry CreateInput) (*models.Student, int, error) {
	var student models.Student
	err := tx.Preload("Bed.Room").First(&student, "id = ?", entry.StudentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, fmt.Errorf("student %s: %w", entry.StudentID, dorm.ErrStudentNotFound)
		}
		return nil, 0, err
	}
	if entry.RoomID != nil {
		return &student, *entry.RoomID, nil
	}
	if room := student.Room(); room != nil {
		return &student, room.ID, nil
	}
	return nil, 0, ErrNoRoom
}

// Get re-fetches a record with every nested relationship eagerly loaded.
func (s *Service) Get(ctx context.Context, id string) (*models.InspectionRecord, error) {
	var rec models.InspectionRecord
	err := s.db.WithContext(ctx).
		Preload("Student.Bed.Room.Building").
		Preload("Room.Building").
		Preload("Inspector").
		Preload("Details.Item").
		Preload("Details.Photos").
		First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	StudentID  string
	RoomID     int
	Status     models.InspectionStatus
	ItemStatus models.ItemStatus
	Skip       int
	Limit      int
}

// List returns records matching the filter, newest first, with relationships
// loaded, plus the unpaginated total.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.InspectionRecord, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.InspectionRecord{})
	if f.StudentID != "" {
		q = q.Where("student_id = ?", f.StudentID)
	}
	if f.RoomID != 0 {
		q = q.Where("room_id = ?", f.RoomID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ItemStatus != "" {
		q = q.Where("id IN (?)", s.db.Model(&models.InspectionDetail{}).
			Select("record_id").Where("status = ?", f.ItemStatus))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var records []models.InspectionRecord
	err := q.Preload("Student.Bed.Room.Building").
		Preload("Room.Building").
		Preload("Inspector").
		Preload("Details.Item").
		Preload("Details.Photos").
		Order("created_at DESC").
		Offset(f.Skip).Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// UpdateStatus moves a record through its lifecycle (pending → submitted →
// approved).
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.InspectionStatus) (*models.InspectionRecord, error) {
	switch status {
	case models.InspectionPending, models.InspectionSubmitted, models.InspectionApproved:
	default:
		return nil, fmt.Errorf("%w: invalid inspection status %q", gorm.ErrInvalidData, status)
	}
	res := s.db.WithContext(ctx).Model(&models.InspectionRecord{}).
		Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes photos, then details, then the header, in that order,
// inside one transaction. Cascading is explicit, not left to the schema.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.InspectionRecord
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		detailIDs := tx.Model(&models.InspectionDetail{}).
			Select("id").Where("record_id = ?", id)
		if err := tx.Where("detail_id IN (?)", detailIDs).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		if err := tx.Where("record_id = ?", id).Delete(&models.InspectionDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rec).Error
	})
}
