package models

import "time"

// CacheEntry backs the database cache store used when redis is not available
// (rate-limit counters, OAuth state, session cache).
type CacheEntry struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     []byte    `json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
