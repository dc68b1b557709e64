package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InspectionStatus string

const (
	InspectionPending   InspectionStatus = "pending"
	InspectionSubmitted InspectionStatus = "submitted"
	InspectionApproved  InspectionStatus = "approved"
)

type ItemStatus string

const (
	ItemOK      ItemStatus = "ok"
	ItemDamaged ItemStatus = "damaged"
	ItemMissing ItemStatus = "missing"
)

func ValidItemStatus(s ItemStatus) bool {
	return s == ItemOK || s == ItemDamaged || s == ItemMissing
}

type InspectionItem struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	Name          string `gorm:"size:100;not null" json:"name"`
	NameEn        string `gorm:"size:100" json:"name_en"`
	Description   string `gorm:"size:255" json:"description"`
	DescriptionEn string `gorm:"size:255" json:"description_en"`
	IsActive      bool   `gorm:"default:true" json:"is_active"`
}

func (i *InspectionItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

type InspectionRecord struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	StudentID   string           `gorm:"size:36;not null;index" json:"student_id"`
	RoomID      int              `gorm:"not null;index" json:"room_id"`
	InspectorID *string          `gorm:"size:36" json:"inspector_id"`
	Status      InspectionStatus `gorm:"size:20;not null;default:pending" json:"status"`
	Signature   *string          `gorm:"size:255" json:"signature"`
	CreatedAt   time.Time        `json:"created_at"`
	SubmittedAt *time.Time       `json:"submitted_at"`

	Student   *Student           `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Room      *Room              `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Inspector *User              `gorm:"foreignKey:InspectorID" json:"inspector,omitempty"`
	Details   []InspectionDetail `gorm:"foreignKey:RecordID" json:"details,omitempty"`
}

func (r *InspectionRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type InspectionDetail struct {
	ID       string     `gorm:"primaryKey;size:36" json:"id"`
	RecordID string     `gorm:"size:36;not null;index" json:"record_id"`
	ItemID   string     `gorm:"size:36;not null" json:"item_id"`
	Status   ItemStatus `gorm:"size:20;not null;default:ok" json:"status"`
	Comment  string     `gorm:"size:500" json:"comment"`

	Item   *InspectionItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Photos []Photo         `gorm:"foreignKey:DetailID" json:"photos,omitempty"`
}

func (d *InspectionDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

type Photo struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	DetailID   string    `gorm:"size:36;not null;index" json:"detail_id"`
	FilePath   string    `gorm:"size:255;not null" json:"file_path"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (p *Photo) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
