package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date (UTC)
// =============================================================================

// Date is a calendar date with day granularity. All constructors normalize to
// midnight UTC so values compare with ==.
type Date struct {
	t time.Time
}

// NewDate constructs a date from year/month/day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Properties
func (d Date) Year() int            { return d.t.Year() }
func (d Date) Month() time.Month    { return d.t.Month() }
func (d Date) Day() int             { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool         { return d.t.IsZero() }
func (d Date) Time() time.Time      { return d.t }

// Comparison
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// AddDays shifts the date by whole days.
func (d Date) AddDays(n int) Date { return DateOf(d.t.AddDate(0, 0, n)) }

// AddMonths shifts the date by whole months, clamping the day-of-month to the
// destination month's last day (Jan 31 + 1 month = Feb 28/29). This differs
// from time.Time.AddDate, which normalizes overflow into the next month.
func (d Date) AddMonths(n int) Date {
	monthIndex := int(d.Month()) - 1 + n
	year := d.Year() + monthIndex/12
	monthIndex = monthIndex % 12
	if monthIndex < 0 {
		monthIndex += 12
		year--
	}
	month := time.Month(monthIndex + 1)

	day := d.Day()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

func (d Date) String() string { return d.t.Format("2006-01-02") }

// MarshalJSON encodes as "2006-01-02".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes "2006-01-02".
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsWeekend reports Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// =============================================================================
// MONTH HELPERS
// =============================================================================

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthStart returns the first day of the month.
func MonthStart(year, month int) Date {
	return NewDate(year, time.Month(month), 1)
}

// MonthEnd returns the last day of the month.
func MonthEnd(year, month int) Date {
	m := time.Month(month)
	return NewDate(year, m, DaysInMonth(year, m))
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// =============================================================================
// HOLIDAY CALENDAR - Business-day arithmetic for issue dates
// =============================================================================

// HolidayCalendar answers whether a date is a non-business holiday.
type HolidayCalendar interface {
	IsHoliday(d Date) bool
}

// HolidaySet is an in-memory HolidayCalendar.
type HolidaySet struct {
	days map[string]struct{}
}

// NewHolidaySet builds a calendar from explicit dates.
func NewHolidaySet(dates ...Date) *HolidaySet {
	s := &HolidaySet{days: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		s.days[d.String()] = struct{}{}
	}
	return s
}

// NewHolidaySetFromHolidays builds a calendar from stored holiday rows.
func NewHolidaySetFromHolidays(holidays []Holiday) *HolidaySet {
	s := &HolidaySet{days: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		s.days[h.Date.String()] = struct{}{}
	}
	return s
}

func (s *HolidaySet) IsHoliday(d Date) bool {
	_, ok := s.days[d.String()]
	return ok
}

// PreviousBusinessDay rolls backward one day at a time while the date falls on
// a weekend or in the holiday calendar. A business day is returned unchanged.
func PreviousBusinessDay(d Date, cal HolidayCalendar) Date {
	result := d
	for result.IsWeekend() || (cal != nil && cal.IsHoliday(result)) {
		result = result.AddDays(-1)
	}
	return result
}
