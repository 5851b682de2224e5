package store

import (
	"context"
	"errors"
	"time"

	"aicc-ivr-backend/internal/model"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// CustomerStore reads customers and engineers.
type CustomerStore interface {
	FindCustomersByCompany(ctx context.Context, companyName string) ([]model.Customer, error)
	GetEngineer(ctx context.Context, engineerID string) (*model.Engineer, error)
}

// CallStore persists call sessions.
type CallStore interface {
	CreateCall(ctx context.Context, call *model.CallLog) error
	GetCall(ctx context.Context, callID string) (*model.CallLog, error)
	UpdateCall(ctx context.Context, callID string, upd CallUpdate) error
	PurgeExpiredCalls(ctx context.Context, now time.Time) (int64, error)
}

// HolidayStore holds holidays maintained outside the config file.
type HolidayStore interface {
	ListHolidays(ctx context.Context) ([]model.Holiday, error)
	UpsertHolidays(ctx context.Context, holidays []model.Holiday) error
}

// SubscriptionStore holds engineers' push subscriptions.
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForEngineer(ctx context.Context, engineerID string) ([]model.PushSubscription, error)
}

// Store is everything the service keeps in its relational database.
type Store interface {
	CustomerStore
	CallStore
	HolidayStore
	SubscriptionStore
}

// CallUpdate is a partial update of a call. Zero-valued fields are left
// untouched; a nil FlowPath keeps the stored path.
type CallUpdate struct {
	UpdatedAt    time.Time
	CallEndTime  *time.Time
	CallStatus   string
	Resolution   string
	AssignedTo   string
	CallDuration int
	Notes        string
	FlowPath     []string
	CustomerID   string
	CompanyName  string
	SupportLevel string
}

// Columns lists the CallLog columns this update writes.
func (u CallUpdate) Columns() []string {
	cols := []string{"updated_at"}
	if u.CallEndTime != nil {
		cols = append(cols, "call_end_time")
	}
	add := func(set bool, col string) {
		if set {
			cols = append(cols, col)
		}
	}
	add(u.CallStatus != "", "call_status")
	add(u.Resolution != "", "resolution")
	add(u.AssignedTo != "", "assigned_to")
	add(u.CallDuration != 0, "call_duration")
	add(u.Notes != "", "notes")
	add(u.FlowPath != nil, "flow_path")
	add(u.CustomerID != "", "customer_id")
	add(u.CompanyName != "", "company_name")
	add(u.SupportLevel != "", "support_level")
	return cols
}

// Apply merges the update into call in place.
func (u CallUpdate) Apply(call *model.CallLog) {
	call.UpdatedAt = u.UpdatedAt
	if u.CallEndTime != nil {
		call.CallEndTime = u.CallEndTime
	}
	if u.CallStatus != "" {
		call.CallStatus = u.CallStatus
	}
	if u.Resolution != "" {
		call.Resolution = u.Resolution
	}
	if u.AssignedTo != "" {
		call.AssignedTo = u.AssignedTo
	}
	if u.CallDuration != 0 {
		call.CallDuration = u.CallDuration
	}
	if u.Notes != "" {
		call.Notes = u.Notes
	}
	if u.FlowPath != nil {
		call.FlowPath = u.FlowPath
	}
	if u.CustomerID != "" {
		call.CustomerID = u.CustomerID
	}
	if u.CompanyName != "" {
		call.CompanyName = u.CompanyName
	}
	if u.SupportLevel != "" {
		call.SupportLevel = u.SupportLevel
	}
}
