package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Machine is a challenge box. Reference data: the dashboard renders one
// submission card per machine with independent user and root flag slots.
type Machine struct {
	ID   string `gorm:"primaryKey;type:uuid" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (m *Machine) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
