// Package dorm covers the physical-location hierarchy and the bed
// occupancy invariant: at most one student per bed, bed status kept in sync
// with the assignment.
package dorm

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dormtrack/internal/models"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrBedNotFound     = errors.New("bed not found")
)

// ConflictError reports a bed already held by another student.
type ConflictError struct {
	BedID    int
	Occupant string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("bed %d is already occupied by %s", e.BedID, e.Occupant)
}

// AssignBed moves a student to a new bed (or out of any bed when bedID is
// nil). Freeing the old bed, conflict-checking the new one and occupying it
// happen in one transaction.
func AssignBed(db *gorm.DB, studentID string, bedID *int) (*models.Student, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		var student models.Student
		if err := tx.First(&student, "id = ?", studentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			return err
		}

		if student.BedID != nil {
			if err := tx.Model(&models.Bed{}).Where("id = ?", *student.BedID).
				Update("status", models.BedAvailable).Error; err != nil {
				return err
			}
		}

		if bedID != nil {
			var bed models.Bed
			if err := tx.First(&bed, "id = ?", *bedID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrBedNotFound
				}
				return err
			}

			var occupant models.Student
			err := tx.Where("bed_id = ? AND id <> ?", *bedID, student.ID).First(&occupant).Error
			if err == nil {
				return &ConflictError{BedID: *bedID, Occupant: occupant.FullName}
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			if err := tx.Model(&models.Bed{}).Where("id = ?", *bedID).
				Update("status", models.BedOccupied).Error; err != nil {
				return err
			}
		}

		return tx.Model(&student).Update("bed_id", bedID).Error
	})
	if err != nil {
		return nil, err
	}
	return GetStudent(db, studentID)
}

// GetStudent loads a student with the bed → room → building chain and the
// linked user eagerly loaded.
func GetStudent(db *gorm.DB, id string) (*models.Student, error) {
	var student models.Student
	err := db.Preload("Bed.Room.Building").Preload("User").
		First(&student, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &student, nil
}

// ReleaseBedOf frees a student's bed as part of deleting the student.
// Runs inside the caller's transaction.
func ReleaseBedOf(tx *gorm.DB, student *models.Student) error {
	if student.BedID == nil {
		return nil
	}
	return tx.Model(&models.Bed{}).Where("id = ?", *student.BedID).
		Update("status", models.BedAvailable).Error
}
