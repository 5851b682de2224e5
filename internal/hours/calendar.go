package hours

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DateLayout is the canonical form of a holiday date.
const DateLayout = "2006-01-02"

// HolidayCalendar reports whether a calendar date is a holiday.
type HolidayCalendar interface {
	IsHoliday(date time.Time) bool
}

// StaticCalendar is an immutable set of holiday dates.
type StaticCalendar struct {
	dates map[string]struct{}
}

// NewStaticCalendar builds a calendar from YYYY-MM-DD strings. Duplicates are collapsed.
func NewStaticCalendar(dates []string) (*StaticCalendar, error) {
	set := make(map[string]struct{}, len(dates))
	for _, raw := range dates {
		d := strings.TrimSpace(raw)
		if _, err := time.Parse(DateLayout, d); err != nil {
			return nil, fmt.Errorf("invalid holiday date %q: %w", raw, err)
		}
		set[d] = struct{}{}
	}
	return &StaticCalendar{dates: set}, nil
}

// IsHoliday matches the date portion of t, as rendered in t's own location.
func (c *StaticCalendar) IsHoliday(date time.Time) bool {
	if c == nil {
		return false
	}
	_, ok := c.dates[date.Format(DateLayout)]
	return ok
}

// Dates returns the holiday set in ascending order.
func (c *StaticCalendar) Dates() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.dates))
	for d := range c.dates {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of holidays.
func (c *StaticCalendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.dates)
}

// ReloadableCalendar lets a background refresher swap the holiday set
// without blocking readers.
type ReloadableCalendar struct {
	current atomic.Pointer[StaticCalendar]

	mu     sync.Mutex
	onSwap []func()
}

// NewReloadableCalendar wraps an initial calendar.
func NewReloadableCalendar(initial *StaticCalendar) *ReloadableCalendar {
	c := &ReloadableCalendar{}
	c.current.Store(initial)
	return c
}

func (c *ReloadableCalendar) IsHoliday(date time.Time) bool {
	return c.current.Load().IsHoliday(date)
}

// OnReplace registers fn to run after every Replace, once the new set is
// visible to readers.
func (c *ReloadableCalendar) OnReplace(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSwap = append(c.onSwap, fn)
}

// Replace installs next as the active holiday set.
func (c *ReloadableCalendar) Replace(next *StaticCalendar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Store(next)
	for _, fn := range c.onSwap {
		fn()
	}
}

func (c *ReloadableCalendar) Dates() []string {
	return c.current.Load().Dates()
}
