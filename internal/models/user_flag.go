package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserFlag records an accepted submission for one slot. The grader inserts
// these rows; this service only ever reads them. Presence of a row locks the
// corresponding slot for the rest of the competition.
type UserFlag struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	PlayerID  string `gorm:"type:uuid;not null;uniqueIndex:idx_user_flags_slot" json:"player_id"`
	MachineID string `gorm:"type:uuid;not null;uniqueIndex:idx_user_flags_slot" json:"machine_id"`
	FlagType  string `gorm:"not null;uniqueIndex:idx_user_flags_slot" json:"flag_type"`
	FlagValue string `gorm:"not null" json:"flag_value"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (f *UserFlag) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
