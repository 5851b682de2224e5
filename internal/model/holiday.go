package model

import "time"

// Holiday is one closed calendar date in YYYY-MM-DD form.
type Holiday struct {
	Date      string    `gorm:"primaryKey;size:10" json:"date"`
	Name      string    `gorm:"size:128" json:"name"`
	Source    string    `gorm:"size:32;not null" json:"source"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
