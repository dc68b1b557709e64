package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog rows are written by the post-commit audit recorder. The integer
// key doubles as the cursor for paginated listing.
type AuditLog struct {
	ID           int64          `gorm:"primaryKey" json:"id"`
	UserID       *string        `gorm:"size:36;index" json:"user_id"`
	Username     string         `gorm:"size:50" json:"username"`
	Action       string         `gorm:"size:50;not null" json:"action"`
	ResourceType string         `gorm:"size:50;not null" json:"resource_type"`
	ResourceID   string         `gorm:"size:255" json:"resource_id"`
	Metadata     datatypes.JSON `gorm:"type:json" json:"metadata"`
	IP           string         `gorm:"size:45" json:"ip"`
	CreatedAt    time.Time      `json:"created_at"`
}
