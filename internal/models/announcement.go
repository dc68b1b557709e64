package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TagType string

const (
	TagPrimary TagType = "primary"
	TagSuccess TagType = "success"
	TagWarning TagType = "warning"
	TagDanger  TagType = "danger"
	TagInfo    TagType = "info"
)

func ValidTagType(t TagType) bool {
	switch t {
	case TagPrimary, TagSuccess, TagWarning, TagDanger, TagInfo:
		return true
	}
	return false
}

type Announcement struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	TitleEn   string    `gorm:"size:200" json:"title_en"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ContentEn string    `gorm:"type:text" json:"content_en"`
	Tag       string    `gorm:"size:50;not null" json:"tag"`
	TagType   TagType   `gorm:"size:20;not null;default:primary" json:"tag_type"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedBy string    `gorm:"size:36;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Creator *User `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

func (a *Announcement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
