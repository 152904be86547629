package calendar_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigrh/conges/calendar"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// WORKING DAY COUNTS
// =============================================================================

func TestWorkingDaysBetween_SingleDay(t *testing.T) {
	none := calendar.HolidaySet{}

	// A lone weekday counts as one working day.
	monday := date(2024, time.March, 4)
	assert.Equal(t, 1, calendar.WorkingDaysBetween(monday, monday, none))

	// A lone weekend day counts as zero.
	saturday := date(2024, time.March, 2)
	assert.Equal(t, 0, calendar.WorkingDaysBetween(saturday, saturday, none))
}

func TestWorkingDaysBetween_EndBeforeStart(t *testing.T) {
	none := calendar.HolidaySet{}
	assert.Equal(t, 0, calendar.WorkingDaysBetween(date(2024, time.March, 10), date(2024, time.March, 4), none))
}

func TestWorkingDaysBetween_ZeroBounds(t *testing.T) {
	none := calendar.HolidaySet{}
	assert.Equal(t, 0, calendar.WorkingDaysBetween(time.Time{}, date(2024, time.March, 4), none))
	assert.Equal(t, 0, calendar.WorkingDaysBetween(date(2024, time.March, 4), time.Time{}, none))
}

func TestWorkingDaysBetween_HolidayExcluded(t *testing.T) {
	// GIVEN: Monday Jan 1 through Friday Jan 5, with Jan 1 a holiday
	// THEN: four working days remain
	holidays := calendar.HolidaySet{}
	holidays.Add(date(2024, time.January, 1), "Nouvel An")

	got := calendar.WorkingDaysBetween(date(2024, time.January, 1), date(2024, time.January, 5), holidays)
	assert.Equal(t, 4, got)
}

func TestWorkingDaysBetween_FullWeekSpansWeekend(t *testing.T) {
	// Mon Jan 1 .. Mon Jan 8 inclusive = 6 weekdays
	none := calendar.HolidaySet{}
	got := calendar.WorkingDaysBetween(date(2024, time.January, 1), date(2024, time.January, 8), none)
	assert.Equal(t, 6, got)
}

// =============================================================================
// RETURN-TO-WORK DATE
// =============================================================================

func TestNextWorkingDay_SkipsWeekend(t *testing.T) {
	// Leave ends Friday Jan 5; return to work Monday Jan 8.
	holidays := calendar.HolidaySet{}
	holidays.Add(date(2024, time.January, 1), "Nouvel An")

	got := calendar.NextWorkingDay(date(2024, time.January, 5), holidays)
	assert.Equal(t, date(2024, time.January, 8), got)
}

func TestNextWorkingDay_SkipsHolidayRun(t *testing.T) {
	// Thu Jan 4 -> Fri Jan 5 is a holiday -> weekend -> Mon Jan 8
	holidays := calendar.HolidaySet{}
	holidays.Add(date(2024, time.January, 5), "Fermeture")

	got := calendar.NextWorkingDay(date(2024, time.January, 4), holidays)
	assert.Equal(t, date(2024, time.January, 8), got)
}

func TestNextWorkingDay_NeverReturnsHolidayOrWeekend(t *testing.T) {
	holidays := calendar.HolidaySet{}
	holidays.Add(date(2024, time.May, 1), "Fête du Travail")

	d := date(2024, time.April, 26) // Friday before the May 1 week
	for i := 0; i < 30; i++ {
		d = calendar.NextWorkingDay(d, holidays)
		wd := d.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
		assert.False(t, holidays.Has(d))
	}
}

func TestNextWorkingDay_ZeroInput(t *testing.T) {
	assert.True(t, calendar.NextWorkingDay(time.Time{}, calendar.HolidaySet{}).IsZero())
}

// =============================================================================
// HOLIDAY SET ASSEMBLY
// =============================================================================

type stubSource struct {
	holidays map[int][]calendar.CustomHoliday
	err      error
}

func (s *stubSource) HolidaysForYear(_ context.Context, year int) ([]calendar.CustomHoliday, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.holidays[year], nil
}

func TestHolidaySetForPeriod_UnionWithYearGuard(t *testing.T) {
	// GIVEN: a custom closure day in 2024 and the MA statutory rules
	// WHEN: building the set for [2024, 2024]
	// THEN: statutory days of 2024 AND 2025 are present (boundary guard),
	//       plus the custom day
	source := &stubSource{holidays: map[int][]calendar.CustomHoliday{
		2024: {{Date: date(2024, time.April, 10), Label: "Aïd el-Fitr"}},
	}}
	engine := calendar.NewEngine("MA", source, zerolog.Nop())

	set := engine.HolidaySetForPeriod(context.Background(), 2024, 2024)

	assert.True(t, set.Has(date(2024, time.November, 6)), "Marche Verte 2024")
	assert.True(t, set.Has(date(2025, time.January, 1)), "next-year guard")
	assert.True(t, set.Has(date(2024, time.April, 10)), "custom holiday")
	assert.Equal(t, "Aïd el-Fitr", set.Label(date(2024, time.April, 10)))
}

func TestHolidaySetForPeriod_CustomOverridesStatutoryLabel(t *testing.T) {
	source := &stubSource{holidays: map[int][]calendar.CustomHoliday{
		2024: {{Date: date(2024, time.January, 1), Label: "Jour chômé"}},
	}}
	engine := calendar.NewEngine("MA", source, zerolog.Nop())

	set := engine.HolidaySetForPeriod(context.Background(), 2024, 2024)
	require.True(t, set.Has(date(2024, time.January, 1)))
	assert.Equal(t, "Jour chômé", set.Label(date(2024, time.January, 1)))
}

func TestHolidaySetForPeriod_DegradesToStatutoryOnSourceError(t *testing.T) {
	source := &stubSource{err: errors.New("database locked")}
	engine := calendar.NewEngine("MA", source, zerolog.Nop())

	set := engine.HolidaySetForPeriod(context.Background(), 2024, 2024)

	// Statutory content survives the failing custom source.
	assert.True(t, set.Has(date(2024, time.July, 30)), "Fête du Trône")
	assert.NotEmpty(t, set)
}

func TestHolidaySetForPeriod_UnknownCountry(t *testing.T) {
	engine := calendar.NewEngine("XX", nil, zerolog.Nop())
	set := engine.HolidaySetForPeriod(context.Background(), 2024, 2024)
	assert.Empty(t, set)
}

func TestStatutory_FrenchMovableFeasts(t *testing.T) {
	engine := calendar.NewEngine("FR", nil, zerolog.Nop())
	set := engine.HolidaySetForPeriod(context.Background(), 2024, 2024)

	// Easter 2024 fell on March 31: Easter Monday April 1,
	// Ascension May 9, Whit Monday May 20.
	assert.True(t, set.Has(date(2024, time.April, 1)))
	assert.True(t, set.Has(date(2024, time.May, 9)))
	assert.True(t, set.Has(date(2024, time.May, 20)))
}
