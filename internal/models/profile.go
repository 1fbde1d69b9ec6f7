package models

import "time"

// Profile is optional enrichment created alongside a player. Its primary key
// is the owning user's id. Failure to create or read a profile never blocks
// player creation.
type Profile struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
