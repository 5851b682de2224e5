package hours

import (
	"errors"
	"fmt"
	"time"
)

// OperatingHours is the weekly opening window. Weekdays use Monday=0..Sunday=6.
type OperatingHours struct {
	OpenHour  int
	CloseHour int
	Weekdays  []int
}

// Validate checks the hour range and weekday indexes.
func (h OperatingHours) Validate() error {
	if h.OpenHour < 0 || h.OpenHour > 23 || h.CloseHour < 0 || h.CloseHour > 23 {
		return fmt.Errorf("hours must be within [0,23], got open=%d close=%d", h.OpenHour, h.CloseHour)
	}
	if h.OpenHour >= h.CloseHour {
		return fmt.Errorf("open hour %d must be before close hour %d", h.OpenHour, h.CloseHour)
	}
	if len(h.Weekdays) == 0 {
		return errors.New("at least one open weekday is required")
	}
	for _, d := range h.Weekdays {
		if d < 0 || d > 6 {
			return fmt.Errorf("weekday %d out of range [0,6]", d)
		}
	}
	return nil
}

// Weekday maps t to Monday=0..Sunday=6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Evaluator decides open/closed in the canonical operating zone.
type Evaluator struct {
	hours    OperatingHours
	openDays [7]bool
	calendar HolidayCalendar
	loc      *time.Location
}

// NewEvaluator validates the hours and binds them to a calendar and zone.
func NewEvaluator(h OperatingHours, calendar HolidayCalendar, loc *time.Location) (*Evaluator, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, errors.New("canonical location is required")
	}
	e := &Evaluator{hours: h, calendar: calendar, loc: loc}
	for _, d := range h.Weekdays {
		e.openDays[d] = true
	}
	return e, nil
}

// Hours returns the configured window.
func (e *Evaluator) Hours() OperatingHours {
	return e.hours
}

// Location returns the canonical operating zone.
func (e *Evaluator) Location() *time.Location {
	return e.loc
}

// IsOpen reports whether t falls in the half-open window [open, close)
// on an open weekday that is not a holiday.
func (e *Evaluator) IsOpen(t time.Time) bool {
	t = t.In(e.loc)
	if !e.isOpenDay(t) {
		return false
	}
	return e.hours.OpenHour <= t.Hour() && t.Hour() < e.hours.CloseHour
}

func (e *Evaluator) isOpenDay(t time.Time) bool {
	if !e.openDays[Weekday(t)] {
		return false
	}
	return e.calendar == nil || !e.calendar.IsHoliday(t)
}
