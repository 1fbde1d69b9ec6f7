package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is the authenticated identity established by the OAuth provider.
// It is created or refreshed on every successful callback and is read-only
// for the rest of the application.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Provider string `gorm:"not null;uniqueIndex:idx_users_provider_subject" json:"provider"`
	Subject  string `gorm:"not null;uniqueIndex:idx_users_provider_subject" json:"-"`

	Email       string `gorm:"index" json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`

	// Claims keeps the raw ID-token claims for display purposes.
	Claims datatypes.JSON `json:"-"`

	Sessions []Session `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
