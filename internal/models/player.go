package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Player is the competition entry for a user. At most one player exists per
// user; the unique index on UserID is what makes first-login creation safe to
// re-run.
type Player struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User     *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Score    int    `gorm:"not null;default:0" json:"score"`

	Flags []UserFlag `gorm:"foreignKey:PlayerID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (p *Player) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
