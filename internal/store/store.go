package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aicc-ivr-backend/internal/model"
)

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// FindCustomersByCompany returns every customer registered under companyName.
func (s *gormStore) FindCustomersByCompany(ctx context.Context, companyName string) ([]model.Customer, error) {
	var customers []model.Customer
	if err := s.db.WithContext(ctx).
		Where("company_name = ?", companyName).
		Order("customer_id").
		Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("query customers for %q: %w", companyName, err)
	}
	return customers, nil
}

func (s *gormStore) GetEngineer(ctx context.Context, engineerID string) (*model.Engineer, error) {
	var engineer model.Engineer
	if err := s.db.WithContext(ctx).First(&engineer, "engineer_id = ?", engineerID).Error; err != nil {
		return nil, notFound(err, "engineer %s", engineerID)
	}
	return &engineer, nil
}

func (s *gormStore) CreateCall(ctx context.Context, call *model.CallLog) error {
	if err := s.db.WithContext(ctx).Create(call).Error; err != nil {
		return fmt.Errorf("create call %s: %w", call.CallID, err)
	}
	return nil
}

func (s *gormStore) GetCall(ctx context.Context, callID string) (*model.CallLog, error) {
	var call model.CallLog
	if err := s.db.WithContext(ctx).First(&call, "call_id = ?", callID).Error; err != nil {
		return nil, notFound(err, "call %s", callID)
	}
	return &call, nil
}

// UpdateCall writes only the columns set in upd.
func (s *gormStore) UpdateCall(ctx context.Context, callID string, upd CallUpdate) error {
	var values model.CallLog
	upd.Apply(&values)

	res := s.db.WithContext(ctx).
		Model(&model.CallLog{CallID: callID}).
		Select(upd.Columns()).
		Updates(&values)
	if res.Error != nil {
		return fmt.Errorf("update call %s: %w", callID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update call %s: %w", callID, ErrNotFound)
	}
	return nil
}

// PurgeExpiredCalls deletes calls whose retention marker is at or before now.
func (s *gormStore) PurgeExpiredCalls(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.CallLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge expired calls: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) ListHolidays(ctx context.Context) ([]model.Holiday, error) {
	var holidays []model.Holiday
	if err := s.db.WithContext(ctx).Order("date").Find(&holidays).Error; err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// UpsertHolidays inserts holidays, replacing name and source of existing dates.
func (s *gormStore) UpsertHolidays(ctx context.Context, holidays []model.Holiday) error {
	if len(holidays) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "source", "updated_at"}),
		}).Create(&holidays).Error; err != nil {
			return fmt.Errorf("batch upsert holidays failed: %w", err)
		}
		return nil
	})
}

// UpsertSubscription creates a subscription or rebinds an existing endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "engineer_id"}),
	}).Create(sub).Error; err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, notFound(err, "subscription")
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

func (s *gormStore) SubscriptionsForEngineer(ctx context.Context, engineerID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("engineer_id = ?", engineerID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("query subscriptions for engineer %s: %w", engineerID, err)
	}
	return subs, nil
}

func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}
