package stats

import "time"

// MonthCursor navigates whole calendar months for the per-month daily
// view. It cannot be advanced past the real current month.
type MonthCursor struct {
	year  int
	month time.Month
	now   func() time.Time
}

// NewMonthCursor starts at the current calendar month.
func NewMonthCursor() MonthCursor {
	return newMonthCursorAt(time.Now)
}

func newMonthCursorAt(now func() time.Time) MonthCursor {
	t := now()
	return MonthCursor{year: t.Year(), month: t.Month(), now: now}
}

// CursorFor positions a cursor at an arbitrary month, clamped so it does
// not point past the current one.
func CursorFor(year int, month time.Month) MonthCursor {
	c := MonthCursor{year: year, month: month, now: time.Now}
	return c.clamp()
}

func (c MonthCursor) Year() int         { return c.year }
func (c MonthCursor) Month() time.Month { return c.month }

// Key returns the cursor month formatted as 2006-01.
func (c MonthCursor) Key() string {
	return time.Date(c.year, c.month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// Prev returns the cursor moved one month back.
func (c MonthCursor) Prev() MonthCursor {
	t := time.Date(c.year, c.month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return MonthCursor{year: t.Year(), month: t.Month(), now: c.now}
}

// Next returns the cursor moved one month forward, clamped at the real
// current month.
func (c MonthCursor) Next() MonthCursor {
	t := time.Date(c.year, c.month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	next := MonthCursor{year: t.Year(), month: t.Month(), now: c.now}
	return next.clamp()
}

// AtCurrent reports whether the cursor sits on the real current month.
func (c MonthCursor) AtCurrent() bool {
	t := c.nowFunc()()
	return c.year == t.Year() && c.month == t.Month()
}

func (c MonthCursor) clamp() MonthCursor {
	t := c.nowFunc()()
	cur := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	own := time.Date(c.year, c.month, 1, 0, 0, 0, 0, time.UTC)
	if own.After(cur) {
		return MonthCursor{year: t.Year(), month: t.Month(), now: c.now}
	}
	return c
}

func (c MonthCursor) nowFunc() func() time.Time {
	if c.now != nil {
		return c.now
	}
	return time.Now
}
