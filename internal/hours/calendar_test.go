package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCalendar_IsHoliday(t *testing.T) {
	cal, err := NewStaticCalendar(koreanHolidays2025)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		date     time.Time
		expected bool
	}{
		{"New Year", kst(t, 2025, 1, 1, 10, 0), true},
		{"Seollal", kst(t, 2025, 1, 29, 0, 0), true},
		{"Regular weekday", kst(t, 2025, 1, 15, 10, 0), false},
		{"Same date next year", kst(t, 2026, 1, 1, 10, 0), false},
		{"Last minute of Christmas", kst(t, 2025, 12, 25, 23, 59), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, cal.IsHoliday(tc.date))
		})
	}
}

func TestStaticCalendar_MatchesInGivenZone(t *testing.T) {
	cal, err := NewStaticCalendar([]string{"2025-01-01"})
	require.NoError(t, err)

	// 2024-12-31T16:00Z is already 2025-01-01 01:00 in Seoul.
	utc := time.Date(2024, 12, 31, 16, 0, 0, 0, time.UTC)
	assert.False(t, cal.IsHoliday(utc))
	assert.True(t, cal.IsHoliday(utc.In(seoul(t))))
}

func TestNewStaticCalendar(t *testing.T) {
	cal, err := NewStaticCalendar([]string{"2025-05-05", " 2025-01-01 ", "2025-05-05"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01", "2025-05-05"}, cal.Dates())
	assert.Equal(t, 2, cal.Len())

	_, err = NewStaticCalendar([]string{"2025-02-30"})
	assert.Error(t, err)

	_, err = NewStaticCalendar([]string{"01/01/2025"})
	assert.Error(t, err)
}

func TestReloadableCalendar_Replace(t *testing.T) {
	first, err := NewStaticCalendar([]string{"2025-01-01"})
	require.NoError(t, err)
	second, err := NewStaticCalendar([]string{"2025-01-02"})
	require.NoError(t, err)

	cal := NewReloadableCalendar(first)
	assert.True(t, cal.IsHoliday(kst(t, 2025, 1, 1, 12, 0)))

	cal.Replace(second)
	assert.False(t, cal.IsHoliday(kst(t, 2025, 1, 1, 12, 0)))
	assert.True(t, cal.IsHoliday(kst(t, 2025, 1, 2, 12, 0)))
	assert.Equal(t, []string{"2025-01-02"}, cal.Dates())
}
