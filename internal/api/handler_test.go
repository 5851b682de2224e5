package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"aicc-ivr-backend/internal/calllog"
	"aicc-ivr-backend/internal/customer"
	"aicc-ivr-backend/internal/db"
	"aicc-ivr-backend/internal/hours"
	"aicc-ivr-backend/internal/metrics"
	"aicc-ivr-backend/internal/model"
	"aicc-ivr-backend/internal/notification"
	"aicc-ivr-backend/internal/store"
)

const testBusinessHours = "평일 09:00-18:00 (한국시간)"

var testHolidays = []string{"2025-01-01", "2025-01-28", "2025-01-29", "2025-01-30", "2025-03-01"}

func init() {
	gin.SetMode(gin.TestMode)
}

type panickingCalendar struct{}

func (panickingCalendar) IsHoliday(time.Time) bool { panic("calendar unavailable") }

type memorySink struct {
	mu     sync.Mutex
	datums []metrics.Datum
}

func (m *memorySink) Put(_ context.Context, datums []metrics.Datum) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datums = append(m.datums, datums...)
	return nil
}

func (m *memorySink) results() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, d := range m.datums {
		if d.Name == "BusinessHoursCheck" {
			out = append(out, d.Dimensions["Result"])
		}
	}
	return out
}

type captureDispatcher struct {
	mu   sync.Mutex
	jobs []notification.Job
}

func (c *captureDispatcher) Dispatch(job notification.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs = append(c.jobs, job)
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	sink   *memorySink
	alerts *captureDispatcher
}

func newHoursService(t *testing.T, cal hours.HolidayCalendar) *hours.Service {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	e, err := hours.NewEvaluator(hours.OperatingHours{OpenHour: 9, CloseHour: 18, Weekdays: []int{0, 1, 2, 3, 4}}, cal, loc)
	require.NoError(t, err)
	return hours.NewService(hours.NewNormalizer(loc, nil), e, hours.NewDecisionCache(e, loc, hours.DefaultCacheCapacity, hours.DefaultCacheTTL, nil))
}

func newTestEnv(t *testing.T, cal hours.HolidayCalendar) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", regexp.MustCompile(`\W`).ReplaceAllString(t.Name(), "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	static, err := hours.NewStaticCalendar(testHolidays)
	require.NoError(t, err)
	reloadable := hours.NewReloadableCalendar(static)
	if cal == nil {
		cal = reloadable
	}

	s := store.NewGormStore(gormDB)
	sink := &memorySink{}
	rec := metrics.NewRecorder(sink)
	alerts := &captureDispatcher{}

	h := NewHandler(Deps{
		Hours:         newHoursService(t, cal),
		BusinessHours: testBusinessHours,
		Calendar:      reloadable,
		Customers:     customer.NewService(s),
		Calls:         calllog.NewService(s, rec, alerts, 0),
		Subscriptions: s,
		Metrics:       rec,
		WebPush:       &webpush.Options{VAPIDPublicKey: "test-public-key"},
	})
	return &testEnv{
		router: NewRouter(h, RouterOptions{CacheTTL: time.Minute}),
		db:     gormDB,
		sink:   sink,
		alerts: alerts,
	}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestBusinessHours(t *testing.T) {
	env := newTestEnv(t, nil)

	testCases := []struct {
		name        string
		method      string
		path        string
		body        any
		open        bool
		currentTime string
		next        string
		message     string
	}{
		{
			name: "UTC instant inside hours", method: http.MethodGet,
			path: "/api/business-hours?check_time=2025-01-15T01:00:00Z",
			open: true, currentTime: "2025-01-15T10:00:00+09:00", next: "2025-01-15T09:00:00+09:00", message: hours.MessageOpen,
		},
		{
			name: "Rendered in requested zone", method: http.MethodGet,
			path: "/api/business-hours?check_time=2025-01-15T01:00:00Z&timezone=UTC",
			open: true, currentTime: "2025-01-15T01:00:00+00:00", next: "2025-01-15T09:00:00+09:00", message: hours.MessageOpen,
		},
		{
			name: "After closing", method: http.MethodPost, path: "/api/business-hours",
			body: map[string]string{"check_time": "2025-01-15T19:30:00+09:00"},
			open: false, currentTime: "2025-01-15T19:30:00+09:00", next: "2025-01-16T09:00:00+09:00", message: hours.MessageClosed,
		},
		{
			name: "Lunar new year", method: http.MethodPost, path: "/api/business-hours",
			body: map[string]string{"check_time": "2025-01-28T10:00:00", "timezone": "Asia/Seoul"},
			open: false, currentTime: "2025-01-28T10:00:00+09:00", next: "2025-01-31T09:00:00+09:00", message: hours.MessageClosed,
		},
		{
			name: "Unknown zone uses canonical", method: http.MethodGet,
			path: "/api/business-hours?check_time=2025-01-18T10:00:00&timezone=Mars/Olympus",
			open: false, currentTime: "2025-01-18T10:00:00+09:00", next: "2025-01-20T09:00:00+09:00", message: hours.MessageClosed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			got := decode(t, w)
			assert.Equal(t, tc.open, got["is_business_hours"])
			assert.Equal(t, tc.currentTime, got["current_time"])
			assert.Equal(t, tc.next, got["next_business_day"])
			assert.Equal(t, testBusinessHours, got["business_hours"])
			assert.Equal(t, tc.message, got["message"])
			assert.NotContains(t, got, "error")
		})
	}
}

func TestBusinessHours_Now(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, w := range []*httptest.ResponseRecorder{
		env.do(http.MethodGet, "/api/business-hours", nil),
		env.do(http.MethodPost, "/api/business-hours", nil),
		env.do(http.MethodPost, "/api/business-hours", "{}"),
	} {
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decode(t, w)
		assert.NotNil(t, got["current_time"])
		assert.NotNil(t, got["next_business_day"])
	}
}

func TestBusinessHours_InvalidTimestamp(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/business-hours?check_time=invalid-time-format", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{
		"error": true,
		"is_business_hours": false,
		"current_time": null,
		"business_hours": "평일 09:00-18:00 (한국시간)",
		"next_business_day": null,
		"message": "잘못된 시간 형식입니다."
	}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/business-hours", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MessageBadRequest, decode(t, w)["message"])

	assert.Equal(t, []string{"invalid"}, env.sink.results())
}

func TestBusinessHours_FailOpen(t *testing.T) {
	env := newTestEnv(t, panickingCalendar{})

	w := env.do(http.MethodGet, "/api/business-hours?check_time=2025-01-15T10:00:00%2B09:00", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"error": true,
		"is_business_hours": true,
		"current_time": null,
		"business_hours": "평일 09:00-18:00 (한국시간)",
		"next_business_day": null,
		"message": "업무시간 확인에 실패하여 업무시간으로 처리합니다"
	}`, w.Body.String())
	assert.Equal(t, []string{"failopen"}, env.sink.results())
}

func TestRecovery(t *testing.T) {
	env := newTestEnv(t, nil)
	env.router.GET("/api/panic", func(c *gin.Context) { panic("boom") })

	w := env.do(http.MethodGet, "/api/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":true,"message":"시스템 오류가 발생했습니다. 잠시 후 다시 시도해주세요."}`, w.Body.String())
}

func TestHealthzAndHolidays(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/holidays", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, float64(len(testHolidays)), got["count"])
	assert.Equal(t, "2025-01-01", got["holidays"].([]any)[0])
	assert.Equal(t, "HIT", env.do(http.MethodGet, "/api/holidays", nil).Header().Get("X-Cache"))
}

func TestLookupCustomer(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.db.Create(&model.Customer{
		CustomerID: "cust_001", CompanyName: "테스트회사", AWSAccountID: "123456781234", SupportLevel: "MSP", AssignedEngineer: "eng_001",
	}).Error)
	require.NoError(t, env.db.Create(&model.Engineer{
		EngineerID: "eng_001", Name: "김엔지니어", Part: "MSP팀", Phone: "010-1111-2222", IsAvailable: true,
	}).Error)

	testCases := []struct {
		name     string
		body     any
		status   int
		expected string
	}{
		{
			name: "Found", body: map[string]string{"company_name": "테스트회사", "aws_account_id": "1234"}, status: http.StatusOK,
			expected: `{"customer_found":true,"customer_type":"MSP","message":"MSP 고객으로 확인되었습니다.",
				"customer_info":{"customer_id":"cust_001","company_name":"테스트회사","support_level":"MSP",
				"assigned_engineer":{"engineer_id":"eng_001","name":"김엔지니어","part":"MSP팀","phone":"010-1111-2222","is_available":true}}}`,
		},
		{
			name: "Not found", body: map[string]string{"company_name": "테스트회사", "aws_account_id": "9999"}, status: http.StatusOK,
			expected: `{"customer_found":false,"customer_type":"Unknown","customer_info":null,"message":"등록되지 않은 고객입니다. 신규 고객 처리 절차를 진행합니다."}`,
		},
		{
			name: "Missing fields", body: map[string]string{"company_name": "테스트회사"}, status: http.StatusBadRequest,
			expected: `{"customer_found":false,"customer_type":"Unknown","customer_info":null,"message":"회사명과 AWS Account ID는 필수 입력 항목입니다.","error":true}`,
		},
		{
			name: "Bad account id", body: map[string]string{"company_name": "테스트회사", "aws_account_id": "12345"}, status: http.StatusBadRequest,
			expected: `{"customer_found":false,"customer_type":"Unknown","customer_info":null,"message":"AWS Account ID는 4자리 숫자여야 합니다.","error":true}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/customers/lookup", tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.expected, w.Body.String())
		})
	}
}

func TestLookupCustomer_StoreError(t *testing.T) {
	env := newTestEnv(t, nil)
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := env.do(http.MethodPost, "/api/customers/lookup", map[string]string{"company_name": "테스트회사", "aws_account_id": "1234"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	got := decode(t, w)
	assert.Equal(t, MessageSystemError, got["message"])
	assert.Equal(t, true, got["error"])
	assert.Equal(t, "Unknown", got["customer_type"])
}

func TestLogCall(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/calls", map[string]any{
		"action":        "start",
		"phone_number":  "010-1234-5678",
		"customer_info": map[string]string{"customer_id": "cust_001", "company_name": "테스트회사", "support_level": "MSP"},
		"flow_path":     []string{"Main Entry"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	started := decode(t, w)
	assert.Equal(t, true, started["success"])
	assert.Equal(t, calllog.MessageStarted, started["message"])
	callID := started["call_id"].(string)
	assert.Regexp(t, `^call_\d{14}_[0-9a-f]{8}$`, callID)

	w = env.do(http.MethodPost, "/api/calls", map[string]any{
		"action":        "end",
		"call_id":       callID,
		"phone_number":  "010-1234-5678",
		"flow_path":     []string{"Customer Auth", "MSP Flow"},
		"assigned_to":   "eng_001",
		"call_duration": 95,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, fmt.Sprintf(`{"success":true,"call_id":%q,"message":%q}`, callID, calllog.MessageEnded), w.Body.String())

	var stored model.CallLog
	require.NoError(t, env.db.First(&stored, "call_id = ?", callID).Error)
	assert.Equal(t, model.CallStatusCompleted, stored.CallStatus)
	assert.Equal(t, "010******5678", stored.MaskedPhoneNumber)
	assert.Equal(t, []string{"Main Entry", "Customer Auth", "MSP Flow"}, stored.FlowPath)
	assert.Equal(t, 95, stored.CallDuration)
	require.Len(t, env.alerts.jobs, 1)
	assert.Equal(t, "eng_001", env.alerts.jobs[0].EngineerID)
}

func TestLogCall_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	testCases := []struct {
		name     string
		body     any
		status   int
		expected string
	}{
		{
			name: "Invalid action", body: map[string]string{"action": "transfer", "phone_number": "0101"}, status: http.StatusBadRequest,
			expected: `{"success":false,"call_id":null,"message":"action은 'start', 'end', 'update' 중 하나여야 합니다.","error":true}`,
		},
		{
			name: "Missing phone", body: map[string]string{"action": "start"}, status: http.StatusBadRequest,
			expected: `{"success":false,"call_id":null,"message":"발신자 번호는 필수 입력 항목입니다.","error":true}`,
		},
		{
			name: "End without id", body: map[string]string{"action": "end", "phone_number": "0101"}, status: http.StatusOK,
			expected: `{"success":false,"message":"통화 ID가 필요합니다."}`,
		},
		{
			name: "Update unknown id", body: map[string]string{"action": "update", "call_id": "call_none", "phone_number": "0101"}, status: http.StatusOK,
			expected: `{"success":false,"message":"해당 통화 로그를 찾을 수 없습니다."}`,
		},
		{
			name: "Malformed body", body: "[", status: http.StatusBadRequest,
			expected: `{"success":false,"call_id":null,"message":"잘못된 요청 형식입니다.","error":true}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/calls", tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.expected, w.Body.String())
		})
	}
}
