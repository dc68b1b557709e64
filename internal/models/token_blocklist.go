package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TokenType string

const (
	TokenAccess        TokenType = "access"
	TokenVerification  TokenType = "verification"
	TokenPasswordReset TokenType = "password_reset"
)

// TokenBlocklist stores revoked access-token IDs plus the one-shot
// verification and password-reset tokens. Rows become irrelevant once
// ExpiresAt passes.
type TokenBlocklist struct {
	ID        string    `gorm:"primaryKey;size:36"`
	JTI       string    `gorm:"uniqueIndex;size:255;not null;column:jti"`
	UserID    *string   `gorm:"size:36"`
	TokenType TokenType `gorm:"size:20;not null;default:access"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (t *TokenBlocklist) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
