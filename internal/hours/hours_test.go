package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var koreanHolidays2025 = []string{
	"2025-01-01", "2025-01-28", "2025-01-29", "2025-01-30",
	"2025-03-01", "2025-05-05", "2025-05-13", "2025-06-06",
	"2025-08-15", "2025-09-06", "2025-09-07", "2025-09-08",
	"2025-09-09", "2025-10-03", "2025-10-09", "2025-12-25",
}

var weekdayHours = OperatingHours{OpenHour: 9, CloseHour: 18, Weekdays: []int{0, 1, 2, 3, 4}}

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return loc
}

func newTestEvaluator(t *testing.T, holidays []string) *Evaluator {
	t.Helper()
	cal, err := NewStaticCalendar(holidays)
	require.NoError(t, err)
	e, err := NewEvaluator(weekdayHours, cal, seoul(t))
	require.NoError(t, err)
	return e
}

func kst(t *testing.T, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	return time.Date(y, m, d, hh, mm, 0, 0, seoul(t))
}
