package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BedStatus string

const (
	BedAvailable BedStatus = "available"
	BedOccupied  BedStatus = "occupied"
	BedReserved  BedStatus = "reserved"
)

// Physical-location hierarchy keeps integer keys; people and records use
// CHAR(36) UUID keys.
type Building struct {
	ID   int    `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:50;not null" json:"name"`

	Rooms []Room `gorm:"foreignKey:BuildingID" json:"rooms,omitempty"`
}

type Room struct {
	ID         int    `gorm:"primaryKey" json:"id"`
	BuildingID int    `gorm:"not null;uniqueIndex:uq_building_room" json:"building_id"`
	RoomNumber string `gorm:"size:50;not null;uniqueIndex:uq_building_room" json:"room_number"`
	Household  string `gorm:"size:50;index" json:"household"`
	RoomType   string `gorm:"size:50" json:"room_type"`

	Building *Building `gorm:"foreignKey:BuildingID" json:"building,omitempty"`
	Beds     []Bed     `gorm:"foreignKey:RoomID" json:"beds,omitempty"`
}

type Bed struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	RoomID    int       `gorm:"not null;index" json:"room_id"`
	BedNumber string    `gorm:"size:20;not null" json:"bed_number"`
	BedType   string    `gorm:"size:50" json:"bed_type"`
	Status    BedStatus `gorm:"size:20;default:available" json:"status"`

	Room *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

type Student struct {
	ID               string  `gorm:"primaryKey;size:36" json:"id"`
	UserID           *string `gorm:"uniqueIndex;size:36" json:"user_id"`
	BedID            *int    `gorm:"uniqueIndex" json:"bed_id"`
	StudentNumber    string  `gorm:"uniqueIndex;size:20;not null" json:"student_number"`
	FullName         string  `gorm:"size:100;not null" json:"full_name"`
	ClassName        string  `gorm:"size:50" json:"class_name"`
	Gender           string  `gorm:"size:10" json:"gender"`
	IdentityStatus   string  `gorm:"size:50" json:"identity_status"`
	IsForeignStudent bool    `gorm:"default:false" json:"is_foreign_student"`
	EnrollmentStatus string  `gorm:"size:50" json:"enrollment_status"`
	Remarks          string  `gorm:"type:text" json:"remarks"`
	LicensePlate     string  `gorm:"size:20" json:"license_plate"`
	TempCardNumber   string  `gorm:"size:50" json:"temp_card_number"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Bed  *Bed  `gorm:"foreignKey:BedID" json:"bed,omitempty"`
}

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Room returns the room derived through the student's bed, or nil when the
// student is unassigned.
func (s *Student) Room() *Room {
	if s.Bed == nil {
		return nil
	}
	return s.Bed.Room
}
