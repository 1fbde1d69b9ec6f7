package models

import "time"

// SiteIPRowID is the primary key of the single site_ip row.
const SiteIPRowID = 1

// SiteIP is a singleton row holding the published competition address.
// It is mutated only through the admin panel.
type SiteIP struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	IPAddress string    `gorm:"not null" json:"ip_address"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the legacy table name.
func (SiteIP) TableName() string { return "site_ip" }
