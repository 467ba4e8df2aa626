// Package calendar lays out a month as a 7-column grid starting on Sunday.
package calendar

import (
	"fmt"
	"time"
)

// WeekdayLabels are the grid's column headers.
var WeekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Month identifies a calendar month in a location.
type Month struct {
	Year  int
	Month time.Month
	Loc   *time.Location
}

// MonthOf returns the month containing t, in t's location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month(), Loc: t.Location()}
}

// ParseMonth parses "2006-01" in loc.
func ParseMonth(s string, loc *time.Location) (Month, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01", s, loc)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) location() *time.Location {
	if m.Loc == nil {
		return time.Local
	}
	return m.Loc
}

// First returns midnight on the first day of the month.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, m.location())
}

// DaysInMonth returns the number of days in the month.
func (m Month) DaysInMonth() int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, m.location()).Day()
}

// FirstWeekdayOffset is the zero-based weekday of the 1st (Sunday = 0), which
// is also the number of blank cells leading the grid.
func (m Month) FirstWeekdayOffset() int {
	return int(m.First().Weekday())
}

// DateForDay returns midnight on the given day of the month.
func (m Month) DateForDay(day int) time.Time {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, m.location())
}

// Contains reports whether t falls inside the month.
func (m Month) Contains(t time.Time) bool {
	t = t.In(m.location())
	return t.Year() == m.Year && t.Month() == m.Month
}

func (m Month) Prev() Month {
	return MonthOf(m.First().AddDate(0, -1, 0))
}

func (m Month) Next() Month {
	return MonthOf(m.First().AddDate(0, 1, 0))
}

// Title renders the month as "January 2006".
func (m Month) Title() string {
	return m.First().Format("January 2006")
}

// String renders the month as "2006-01".
func (m Month) String() string {
	return m.First().Format("2006-01")
}

// Cell is one slot of the grid. Blank cells pad the first week.
type Cell struct {
	Blank    bool
	Day      int
	Date     time.Time
	HasEntry bool
	Selected bool
}

// Grid returns FirstWeekdayOffset blank cells followed by one cell per day.
// hasEntry marks days with a recorded entry and may be nil. selected marks the
// cell on the same day; a zero time selects nothing.
func (m Month) Grid(hasEntry func(time.Time) bool, selected time.Time) []Cell {
	offset := m.FirstWeekdayOffset()
	days := m.DaysInMonth()

	cells := make([]Cell, 0, offset+days)
	for i := 0; i < offset; i++ {
		cells = append(cells, Cell{Blank: true})
	}

	var selY, selD int
	var selM time.Month
	if !selected.IsZero() {
		selY, selM, selD = selected.In(m.location()).Date()
	}

	for day := 1; day <= days; day++ {
		date := m.DateForDay(day)
		cell := Cell{Day: day, Date: date}
		if hasEntry != nil {
			cell.HasEntry = hasEntry(date)
		}
		cell.Selected = !selected.IsZero() && selY == m.Year && selM == m.Month && selD == day
		cells = append(cells, cell)
	}
	return cells
}

// Weeks chunks Grid into rows of seven. The last row is not padded.
func (m Month) Weeks(hasEntry func(time.Time) bool, selected time.Time) [][]Cell {
	cells := m.Grid(hasEntry, selected)
	weeks := make([][]Cell, 0, (len(cells)+6)/7)
	for start := 0; start < len(cells); start += 7 {
		end := min(start+7, len(cells))
		weeks = append(weeks, cells[start:end])
	}
	return weeks
}
