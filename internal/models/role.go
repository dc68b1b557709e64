package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reserved role names seeded at boot. Mutation handlers refuse to rename
// or delete these.
const (
	RoleAdmin     = "admin"
	RoleStudent   = "student"
	RoleInspector = "inspector"
)

func IsReservedRole(name string) bool {
	return name == RoleAdmin || name == RoleStudent || name == RoleInspector
}

type Role struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Name string `gorm:"uniqueIndex;size:50;not null" json:"name"`

	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
