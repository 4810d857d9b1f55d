// Package recurrence expands repeating calendar entries into dated
// occurrences using RFC 5545 rules.
package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/dukerupert/pocketcal/internal/model"
)

// maxOccurrences caps the instances produced for one entry in one range.
const maxOccurrences = 1000

// Occurrence is one dated instance of an entry.
type Occurrence struct {
	Entry model.CalendarEntry `json:"entry"`
	Date  string              `json:"date"`
	Start time.Time           `json:"start"`
}

var frequencies = map[model.Recurrence]rrule.Frequency{
	model.RecurDaily:   rrule.DAILY,
	model.RecurWeekly:  rrule.WEEKLY,
	model.RecurMonthly: rrule.MONTHLY,
	model.RecurYearly:  rrule.YEARLY,
}

// Rule returns the rule an entry repeats by, or nil for entries that do not
// repeat.
func Rule(e model.CalendarEntry, loc *time.Location) (*rrule.RRule, error) {
	freq, ok := frequencies[e.Recurrence]
	if !ok {
		return nil, nil
	}
	start, err := e.StartsAt(loc)
	if err != nil {
		return nil, fmt.Errorf("entry %d start: %w", e.ID, err)
	}
	r, err := rrule.NewRRule(rrule.ROption{Freq: freq, Dtstart: start})
	if err != nil {
		return nil, fmt.Errorf("entry %d rule: %w", e.ID, err)
	}
	return r, nil
}

// RRule returns the RRULE value for a recurrence tag, e.g. "FREQ=WEEKLY",
// or "" when the tag does not repeat.
func RRule(r model.Recurrence) string {
	freq, ok := frequencies[r]
	if !ok {
		return ""
	}
	opt := rrule.ROption{Freq: freq}
	return opt.RRuleString()
}

// Expand returns the start times of e within [from, to). A non-repeating
// entry yields at most its own start.
func Expand(e model.CalendarEntry, from, to time.Time, loc *time.Location) ([]time.Time, error) {
	r, err := Rule(e, loc)
	if err != nil {
		return nil, err
	}
	if r == nil {
		start, err := e.StartsAt(loc)
		if err != nil {
			return nil, fmt.Errorf("entry %d start: %w", e.ID, err)
		}
		if !start.Before(from) && start.Before(to) {
			return []time.Time{start}, nil
		}
		return nil, nil
	}

	var out []time.Time
	for _, t := range r.Between(from, to, true) {
		if !t.Before(to) {
			break
		}
		out = append(out, t)
		if len(out) == maxOccurrences {
			break
		}
	}
	return out, nil
}

// ExpandAll expands every entry and returns the occurrences ordered by start.
// Entries whose date cannot be parsed are skipped.
func ExpandAll(entries []model.CalendarEntry, from, to time.Time, loc *time.Location) []Occurrence {
	var out []Occurrence
	for _, e := range entries {
		starts, err := Expand(e, from, to, loc)
		if err != nil {
			continue
		}
		for _, s := range starts {
			out = append(out, Occurrence{Entry: e, Date: s.Format(model.DateLayout), Start: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// MonthRange returns [first day of month, first day of next month) in loc.
// Out-of-range months are normalized, so month 13 is January of year+1.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}
