package hours

import "time"

// SearchBudgetDays bounds the forward walk of NextOpenAt.
const SearchBudgetDays = 10

// NextOpenAt returns the start of the opening window for the day that is
// open now, later today, or next. found is false when no open day exists in
// the budget; the fallback is then t plus one calendar day with its
// time-of-day untouched, and it is not checked against the rules.
func (e *Evaluator) NextOpenAt(t time.Time) (next time.Time, found bool) {
	t = t.In(e.loc)
	y, m, d := t.Date()
	today := time.Date(y, m, d, e.hours.OpenHour, 0, 0, 0, e.loc)

	if e.IsOpen(t) {
		return today, true
	}
	if e.isOpenDay(t) && t.Before(today) {
		return today, true
	}

	for i := 1; i <= SearchBudgetDays; i++ {
		candidate := time.Date(y, m, d+i, e.hours.OpenHour, 0, 0, 0, e.loc)
		if e.isOpenDay(candidate) {
			return candidate, true
		}
	}
	return t.AddDate(0, 0, 1), false
}
