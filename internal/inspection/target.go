package inspection

import (
	"errors"

	"gorm.io/gorm"

	"dormtrack/internal/dorm"
	"dormtrack/internal/models"
	"dormtrack/internal/perm"
)

var (
	ErrNotLinked         = errors.New("user is not linked to a student record")
	ErrStudentIDRequired = errors.New("student id required for this role")
	ErrCrossStudent      = errors.New("cannot submit for another student")
	ErrNotAuthorized     = errors.New("not authorized to submit inspections")
	ErrNoRoom            = errors.New("student is not assigned to a room, and no room_id provided")
	ErrRoomNotFound      = errors.New("room not found")
	ErrRecordNotFound    = errors.New("inspection record not found")
	ErrItemNotFound      = errors.New("inspection item not found")
)

// ResolveTarget determines which student a submission is about and which
// room it covers. First match wins: an explicit student id is honored only
// with the submit-any capability; self-submitters may only target their own
// linked student. The room comes from an explicit override or the target's
// bed, never a default.
func ResolveTarget(tx *gorm.DB, set perm.Set, callerStudent *models.Student, studentID string, roomID *int) (*models.Student, int, error) {
	canAny := perm.Evaluate(set, perm.All(perm.InspectionsSubmitAny))
	canOwn := perm.Evaluate(set, perm.All(perm.InspectionsSubmitOwn))

	var target *models.Student
	switch {
	case canAny && studentID != "":
		s, err := dorm.GetStudent(tx, studentID)
		if err != nil {
			return nil, 0, err
		}
		target = s
	case canOwn:
		if callerStudent == nil {
			if canAny {
				return nil, 0, ErrStudentIDRequired
			}
			return nil, 0, ErrNotLinked
		}
		if studentID != "" && studentID != callerStudent.ID && !canAny {
			return nil, 0, ErrCrossStudent
		}
		s, err := dorm.GetStudent(tx, callerStudent.ID)
		if err != nil {
			return nil, 0, err
		}
		target = s
	default:
		return nil, 0, ErrNotAuthorized
	}

	if roomID != nil {
		var room models.Room
		if err := tx.First(&room, "id = ?", *roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, ErrRoomNotFound
			}
			return nil, 0, err
		}
		return target, room.ID, nil
	}

	if room := target.Room(); room != nil {
		return target, room.ID, nil
	}
	return nil, 0, ErrNoRoom
}
