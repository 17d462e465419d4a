// Package calendar turns a booking snapshot into a positioned day, week or
// month grid and resolves taps on that grid into intents.
package calendar

import "time"

const (
	DateLayout     = "2006-01-02"
	DaysPerWeek    = 7
	MonthGridCells = 6 * DaysPerWeek
)

// TruncateDate returns local midnight of t in t's location.
func TruncateDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DateKey formats the calendar date of t from its own wall clock.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func DayDates(anchor time.Time) []time.Time {
	return []time.Time{TruncateDate(anchor)}
}

// WeekDates returns the Sunday on or before anchor followed by the next six days.
func WeekDates(anchor time.Time) []time.Time {
	start := TruncateDate(anchor).AddDate(0, 0, -int(anchor.Weekday()))
	dates := make([]time.Time, DaysPerWeek)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

type MonthCell struct {
	Date           time.Time `json:"date"`
	IsCurrentMonth bool      `json:"isCurrentMonth"`
}

// MonthGridDates always returns six full Sunday-aligned weeks so the month
// view keeps a constant height: padding from the previous month, every day of
// anchor's month, then days of the next month.
func MonthGridDates(anchor time.Time) []MonthCell {
	year, month, _ := anchor.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, anchor.Location())
	start := first.AddDate(0, 0, -int(first.Weekday()))

	cells := make([]MonthCell, MonthGridCells)
	for i := range cells {
		date := start.AddDate(0, 0, i)
		cells[i] = MonthCell{
			Date:           date,
			IsCurrentMonth: date.Year() == year && date.Month() == month,
		}
	}
	return cells
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
