package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session roles distinguish the two authenticated principals.
const (
	SessionRolePlayer = "player"
	SessionRoleAdmin  = "admin"
)

// Session is a server-side refresh-token record. Admin access in particular
// is never trusted from client storage: every privileged request re-validates
// a token that chains back to one of these rows.
type Session struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string `gorm:"type:uuid;not null;index" json:"user_id"`
	Role         string `gorm:"not null;default:player" json:"role"`
	RefreshToken string `gorm:"uniqueIndex;not null" json:"-"`

	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`

	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	LastUsedAt time.Time  `json:"last_used_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
