package model

import "time"

// Call statuses.
const (
	CallStatusInProgress = "in_progress"
	CallStatusCompleted  = "completed"
)

// CallLog is one IVR call session. The caller's number is only ever stored
// masked and hashed.
type CallLog struct {
	CallID            string     `gorm:"primaryKey;size:64" json:"call_id"`
	PhoneNumberHash   string     `gorm:"index;size:64;not null" json:"phone_number_hash"`
	MaskedPhoneNumber string     `gorm:"size:32;not null" json:"masked_phone_number"`
	CallStartTime     time.Time  `gorm:"not null" json:"call_start_time"`
	CallEndTime       *time.Time `json:"call_end_time,omitempty"`
	CallStatus        string     `gorm:"size:32;not null" json:"call_status"`
	FlowPath          []string   `gorm:"serializer:json" json:"flow_path"`
	CustomerID        string     `gorm:"size:64" json:"customer_id,omitempty"`
	CompanyName       string     `gorm:"size:256" json:"company_name,omitempty"`
	SupportLevel      string     `gorm:"size:32" json:"support_level,omitempty"`
	Resolution        string     `json:"resolution,omitempty"`
	AssignedTo        string     `gorm:"size:64" json:"assigned_to,omitempty"`
	CallDuration      int        `json:"call_duration,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`
	ExpiresAt         time.Time  `gorm:"index;not null" json:"expires_at"` // retention marker
}
