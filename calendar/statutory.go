package calendar

import "time"

// fixedDate is a holiday recurring on the same Gregorian month/day.
type fixedDate struct {
	month time.Month
	day   int
	label string
}

// Statutory rules per country. Morocco's lunar-calendar feasts (Aïd
// el-Fitr, Aïd el-Adha, ...) shift against the Gregorian calendar and are
// published yearly; they are entered as custom holidays rather than
// computed here.
var fixedByCountry = map[string][]fixedDate{
	"MA": {
		{time.January, 1, "Nouvel An"},
		{time.January, 11, "Manifeste de l'Indépendance"},
		{time.May, 1, "Fête du Travail"},
		{time.July, 30, "Fête du Trône"},
		{time.August, 14, "Allégeance Oued Eddahab"},
		{time.August, 20, "Révolution du Roi et du Peuple"},
		{time.August, 21, "Fête de la Jeunesse"},
		{time.November, 6, "Marche Verte"},
		{time.November, 18, "Fête de l'Indépendance"},
	},
	"FR": {
		{time.January, 1, "Jour de l'An"},
		{time.May, 1, "Fête du Travail"},
		{time.May, 8, "Victoire 1945"},
		{time.July, 14, "Fête Nationale"},
		{time.August, 15, "Assomption"},
		{time.November, 1, "Toussaint"},
		{time.November, 11, "Armistice 1918"},
		{time.December, 25, "Noël"},
	},
}

// statutoryHolidays returns the statutory holidays of a country for one
// year. Unknown country codes yield nil; the engine then relies entirely
// on custom holidays.
func statutoryHolidays(country string, year int) []CustomHoliday {
	fixed, ok := fixedByCountry[country]
	if !ok {
		return nil
	}
	holidays := make([]CustomHoliday, 0, len(fixed)+3)
	for _, f := range fixed {
		holidays = append(holidays, CustomHoliday{
			Date:  time.Date(year, f.month, f.day, 0, 0, 0, 0, time.UTC),
			Label: f.label,
		})
	}
	if country == "FR" {
		easter := easterSunday(year)
		holidays = append(holidays,
			CustomHoliday{Date: easter.AddDate(0, 0, 1), Label: "Lundi de Pâques"},
			CustomHoliday{Date: easter.AddDate(0, 0, 39), Label: "Ascension"},
			CustomHoliday{Date: easter.AddDate(0, 0, 50), Label: "Lundi de Pentecôte"},
		)
	}
	return holidays
}

// easterSunday computes Gregorian Easter with the anonymous computus.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
