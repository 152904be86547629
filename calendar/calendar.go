/*
Package calendar computes working days and return-to-work dates.

PURPOSE:
  Every duration the leave engine handles is expressed in working days:
  weekdays that are neither statutory holidays (computed from country
  rules) nor custom holidays (stored by the organisation). This package
  owns that arithmetic and nothing else.

KEY CONCEPTS:
  - HolidaySet: immutable value, the union of statutory and custom
    holidays for a year window, keyed by date.
  - WorkingDaysBetween / NextWorkingDay: pure functions over a set.
  - Engine: assembles HolidaySets, degrading to statutory-only when the
    custom-holiday source fails (logged, never fatal).

SEE ALSO:
  - statutory.go: per-country holiday rules
  - conges/: the leave manager consuming these computations
*/
package calendar

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const dayKeyFormat = "2006-01-02"

// HolidaySet is a set of holiday dates with display labels.
// Membership is by calendar date; the time-of-day component is ignored.
type HolidaySet map[string]string

// Add inserts a date. A later Add for the same date overrides the label,
// which is how custom holidays shadow statutory ones.
func (s HolidaySet) Add(date time.Time, label string) {
	s[date.Format(dayKeyFormat)] = label
}

// Has reports whether the date is a holiday.
func (s HolidaySet) Has(date time.Time) bool {
	_, ok := s[date.Format(dayKeyFormat)]
	return ok
}

// Label returns the holiday name for a date, or "".
func (s HolidaySet) Label(date time.Time) string {
	return s[date.Format(dayKeyFormat)]
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WorkingDaysBetween counts dates in the inclusive range [start, end]
// that fall on a weekday and are not in holidays. Returns 0 when end is
// before start or either bound is the zero time.
func WorkingDaysBetween(start, end time.Time, holidays HolidaySet) int {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	days := 0
	for d := truncateDay(start); !d.After(truncateDay(end)); d = d.AddDate(0, 0, 1) {
		if !isWeekend(d) && !holidays.Has(d) {
			days++
		}
	}
	return days
}

// NextWorkingDay returns the first date strictly after date that is a
// weekday not present in holidays. This is the return-to-work date after
// a leave ending on date. Returns the zero time only for zero input;
// otherwise it terminates because working days recur every week.
func NextWorkingDay(date time.Time, holidays HolidaySet) time.Time {
	if date.IsZero() {
		return time.Time{}
	}
	d := truncateDay(date).AddDate(0, 0, 1)
	for isWeekend(d) || holidays.Has(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// ENGINE - Holiday set assembly
// =============================================================================

// CustomHoliday is an organisation-specific holiday read from the store.
type CustomHoliday struct {
	Date  time.Time
	Label string
}

// CustomHolidaySource provides stored holidays for one year.
// Implemented by the persistence layer; nil disables custom holidays.
type CustomHolidaySource interface {
	HolidaysForYear(ctx context.Context, year int) ([]CustomHoliday, error)
}

// Engine builds HolidaySets for year windows. Construct once with the
// configured country code and keep it for the process lifetime.
type Engine struct {
	country string
	source  CustomHolidaySource
	log     zerolog.Logger
}

func NewEngine(country string, source CustomHolidaySource, log zerolog.Logger) *Engine {
	return &Engine{country: country, source: source, log: log}
}

// HolidaySetForPeriod returns the union of statutory holidays for every
// year in [startYear, endYear+1] and custom holidays in the same span.
// The extra year guards leaves spanning a year boundary: the return-to-work
// date of a late-December leave needs January's holidays.
//
// A failing custom-holiday read degrades that year to statutory-only with
// a logged warning. This method never fails.
func (e *Engine) HolidaySetForPeriod(ctx context.Context, startYear, endYear int) HolidaySet {
	set := make(HolidaySet)
	for year := startYear; year <= endYear+1; year++ {
		for _, h := range statutoryHolidays(e.country, year) {
			set.Add(h.Date, h.Label)
		}
		if e.source == nil {
			continue
		}
		custom, err := e.source.HolidaysForYear(ctx, year)
		if err != nil {
			e.log.Warn().Err(err).Int("year", year).
				Msg("custom holidays unavailable, using statutory only")
			continue
		}
		for _, h := range custom {
			set.Add(h.Date, h.Label)
		}
	}
	return set
}

// Country returns the configured statutory country code.
func (e *Engine) Country() string { return e.country }
