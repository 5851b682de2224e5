package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"aicc-ivr-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func newSQLiteStore(t *testing.T) (Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", regexp.MustCompile(`\W`).ReplaceAllString(t.Name(), "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&model.Customer{}, &model.Engineer{}, &model.CallLog{}, &model.Holiday{}, &model.PushSubscription{}))

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewGormStore(gormDB), gormDB
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

func TestGormStore_Customers(t *testing.T) {
	s, gormDB := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, gormDB.Create(&[]model.Customer{
		{CustomerID: "c-2", CompanyName: "Acme", AWSAccountID: "111122223333", SupportLevel: "MSP"},
		{CustomerID: "c-1", CompanyName: "Acme", AWSAccountID: "444455556666", SupportLevel: "GENERAL"},
		{CustomerID: "c-3", CompanyName: "Other", AWSAccountID: "777788889999"},
	}).Error)
	require.NoError(t, gormDB.Create(&model.Engineer{EngineerID: "eng-1", Name: "Kim", Part: "Infra", IsAvailable: true}).Error)

	customers, err := s.FindCustomersByCompany(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "c-1", customers[0].CustomerID)

	none, err := s.FindCustomersByCompany(ctx, "Nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	engineer, err := s.GetEngineer(ctx, "eng-1")
	require.NoError(t, err)
	assert.Equal(t, "Kim", engineer.Name)
	assert.True(t, engineer.IsAvailable)

	_, err = s.GetEngineer(ctx, "eng-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_CallLifecycle(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	start := time.Date(2025, 1, 15, 1, 0, 0, 0, time.UTC)

	call := &model.CallLog{
		CallID:            "call_20250115010000_abcd1234",
		PhoneNumberHash:   "hash",
		MaskedPhoneNumber: "010****5678",
		CallStartTime:     start,
		CallStatus:        model.CallStatusInProgress,
		FlowPath:          []string{"Main Entry"},
		SupportLevel:      "MSP",
		CreatedAt:         start,
		UpdatedAt:         start,
		ExpiresAt:         start.AddDate(0, 0, 90),
	}
	require.NoError(t, s.CreateCall(ctx, call))

	end := start.Add(2 * time.Minute)
	require.NoError(t, s.UpdateCall(ctx, call.CallID, CallUpdate{
		UpdatedAt:    end,
		CallEndTime:  &end,
		CallStatus:   model.CallStatusCompleted,
		Resolution:   "resolved",
		CallDuration: 120,
		FlowPath:     []string{"Main Entry", "MSP Flow"},
	}))

	got, err := s.GetCall(ctx, call.CallID)
	require.NoError(t, err)
	assert.Equal(t, model.CallStatusCompleted, got.CallStatus)
	assert.Equal(t, "resolved", got.Resolution)
	assert.Equal(t, 120, got.CallDuration)
	assert.Equal(t, []string{"Main Entry", "MSP Flow"}, got.FlowPath)
	assert.Equal(t, "MSP", got.SupportLevel, "unset fields are kept")
	assert.Equal(t, "010****5678", got.MaskedPhoneNumber)
	require.NotNil(t, got.CallEndTime)
	assert.True(t, end.Equal(*got.CallEndTime))

	_, err = s.GetCall(ctx, "call_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateCall(ctx, "call_missing", CallUpdate{UpdatedAt: end, Notes: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_PurgeExpiredCalls(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	for i, expires := range []time.Time{now.Add(-time.Hour), now, now.Add(time.Hour)} {
		require.NoError(t, s.CreateCall(ctx, &model.CallLog{
			CallID:            fmt.Sprintf("call_%d", i),
			PhoneNumberHash:   "h",
			MaskedPhoneNumber: "m",
			CallStartTime:     now,
			CallStatus:        model.CallStatusInProgress,
			CreatedAt:         now,
			UpdatedAt:         now,
			ExpiresAt:         expires,
		}))
	}

	n, err := s.PurgeExpiredCalls(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.GetCall(ctx, "call_2")
	assert.NoError(t, err)
}

func TestGormStore_Holidays(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.UpsertHolidays(ctx, []model.Holiday{
		{Date: "2026-01-01", Name: "신정", Source: "feed", UpdatedAt: now},
		{Date: "2025-12-25", Name: "Christmas", Source: "feed", UpdatedAt: now},
	}))
	require.NoError(t, s.UpsertHolidays(ctx, []model.Holiday{
		{Date: "2025-12-25", Name: "크리스마스", Source: "manual", UpdatedAt: now},
	}))
	require.NoError(t, s.UpsertHolidays(ctx, nil))

	holidays, err := s.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, holidays, 2)
	assert.Equal(t, "2025-12-25", holidays[0].Date)
	assert.Equal(t, "크리스마스", holidays[0].Name)
	assert.Equal(t, "manual", holidays[0].Source)
	assert.Equal(t, "2026-01-01", holidays[1].Date)
}

func TestGormStore_Subscriptions(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/1", P256DH: "k1", Auth: "a1", EngineerID: "eng-1"}))
	require.NoError(t, s.UpsertSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/2", P256DH: "k2", Auth: "a2", EngineerID: "eng-1"}))
	// Rebinding an endpoint moves it to another engineer.
	require.NoError(t, s.UpsertSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/2", P256DH: "k2b", Auth: "a2b", EngineerID: "eng-2"}))

	subs, err := s.SubscriptionsForEngineer(ctx, "eng-1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push/1", subs[0].Endpoint)

	sub, err := s.GetSubscription(ctx, "https://push/2")
	require.NoError(t, err)
	assert.Equal(t, "eng-2", sub.EngineerID)
	assert.Equal(t, "k2b", sub.P256DH)

	require.NoError(t, s.DeleteSubscription(ctx, "https://push/2"))
	_, err = s.GetSubscription(ctx, "https://push/2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_DatabaseErrors(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("connection reset by peer")

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		call             func(s Store) error
		wantNotFound     bool
	}{
		{
			name: "GetCall query error is not a miss",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "call_logs" WHERE call_id = $1`)).
					WithArgs("call_1", 1).
					WillReturnError(dbErr)
			},
			call: func(s Store) error {
				_, err := s.GetCall(ctx, "call_1")
				return err
			},
		},
		{
			name: "GetCall with no rows is a miss",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "call_logs" WHERE call_id = $1`)).
					WithArgs("call_1", 1).
					WillReturnRows(sqlmock.NewRows([]string{"call_id"}))
			},
			call: func(s Store) error {
				_, err := s.GetCall(ctx, "call_1")
				return err
			},
			wantNotFound: true,
		},
		{
			name: "UpdateCall touching no rows is a miss",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "call_logs" SET "notes"=$1,"updated_at"=$2 WHERE "call_id" = $3`)).
					WithArgs("note", Any{}, "call_1").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
			},
			call: func(s Store) error {
				return s.UpdateCall(ctx, "call_1", CallUpdate{UpdatedAt: time.Now(), Notes: "note"})
			},
			wantNotFound: true,
		},
		{
			name: "FindCustomersByCompany propagates errors",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "customers" WHERE company_name = $1 ORDER BY customer_id`)).
					WithArgs("Acme").
					WillReturnError(dbErr)
			},
			call: func(s Store) error {
				_, err := s.FindCustomersByCompany(ctx, "Acme")
				return err
			},
		},
		{
			name: "PurgeExpiredCalls rolls back on error",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "call_logs" WHERE expires_at <= $1`)).
					WithArgs(Any{}).
					WillReturnError(dbErr)
				mock.ExpectRollback()
			},
			call: func(s Store) error {
				_, err := s.PurgeExpiredCalls(ctx, time.Now())
				return err
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newMockDB(t)
			s := NewGormStore(gormDB)

			tc.mockExpectations(mock)

			err := tc.call(s)
			require.Error(t, err)
			if tc.wantNotFound {
				assert.ErrorIs(t, err, ErrNotFound)
			} else {
				assert.NotErrorIs(t, err, ErrNotFound)
				assert.ErrorIs(t, err, dbErr)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCallUpdate_Columns(t *testing.T) {
	end := time.Now()
	upd := CallUpdate{
		UpdatedAt:   end,
		CallEndTime: &end,
		CallStatus:  model.CallStatusCompleted,
		FlowPath:    []string{},
		AssignedTo:  "eng-1",
	}
	assert.Equal(t, []string{"updated_at", "call_end_time", "call_status", "assigned_to", "flow_path"}, upd.Columns())
	assert.Equal(t, []string{"updated_at"}, CallUpdate{}.Columns())
}
