// Package calendar lays out month grids and exports entries as iCalendar.
package calendar

import "time"

// YearMonth identifies a month.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Month is a month grid. Weeks start on Monday; days outside the month are 0.
type Month struct {
	YearMonth
	Name  string   `json:"name"`
	Weeks [][7]int `json:"weeks"`
	// HighlightDay is today's day of month when the grid shows the current
	// month, otherwise 0.
	HighlightDay int       `json:"highlight_day,omitempty"`
	Prev         YearMonth `json:"prev"`
	Next         YearMonth `json:"next"`
}

// Normalize folds an out-of-range month into the adjacent year, so month 0
// is December of the previous year and month 13 is January of the next.
func Normalize(year, month int) YearMonth {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

// mondayIndex maps a weekday to its column in a Monday-first week.
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// BuildMonth lays out the given month. now decides the highlighted day.
func BuildMonth(year, month int, now time.Time) Month {
	ym := Normalize(year, month)
	first := time.Date(ym.Year, time.Month(ym.Month), 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()

	m := Month{
		YearMonth: ym,
		Name:      first.Month().String(),
		Prev:      Normalize(ym.Year, ym.Month-1),
		Next:      Normalize(ym.Year, ym.Month+1),
	}

	var week [7]int
	col := mondayIndex(first.Weekday())
	for d := 1; d <= days; d++ {
		week[col] = d
		col++
		if col == 7 {
			m.Weeks = append(m.Weeks, week)
			week = [7]int{}
			col = 0
		}
	}
	if col > 0 {
		m.Weeks = append(m.Weeks, week)
	}

	if now.Year() == ym.Year && int(now.Month()) == ym.Month {
		m.HighlightDay = now.Day()
	}
	return m
}
