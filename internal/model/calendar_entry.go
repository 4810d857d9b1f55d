package model

import (
	"strings"
	"time"
)

// DateLayout and TimeLayout are the stored forms of an entry's date and time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// EntryType is the closed set of calendar entry kinds.
type EntryType string

const (
	EntryEvent    EntryType = "event"
	EntryReminder EntryType = "reminder"
	EntryTask     EntryType = "task"
)

// EntryTypes lists every valid EntryType in display order.
var EntryTypes = []EntryType{EntryEvent, EntryReminder, EntryTask}

// ParseEntryType matches s case-insensitively. Unknown values return
// EntryEvent and false.
func ParseEntryType(s string) (EntryType, bool) {
	switch EntryType(strings.ToLower(strings.TrimSpace(s))) {
	case EntryEvent:
		return EntryEvent, true
	case EntryReminder:
		return EntryReminder, true
	case EntryTask:
		return EntryTask, true
	}
	return EntryEvent, false
}

// Title returns the capitalized type name, e.g. "Reminder".
func (t EntryType) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// Recurrence is the closed set of repeat tags an entry can carry.
type Recurrence string

const (
	RecurNone    Recurrence = "none"
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
	RecurYearly  Recurrence = "yearly"
)

// ParseRecurrence matches s case-insensitively. Unknown or empty values
// return RecurNone and false.
func ParseRecurrence(s string) (Recurrence, bool) {
	switch Recurrence(strings.ToLower(strings.TrimSpace(s))) {
	case RecurNone:
		return RecurNone, true
	case RecurDaily:
		return RecurDaily, true
	case RecurWeekly:
		return RecurWeekly, true
	case RecurMonthly:
		return RecurMonthly, true
	case RecurYearly:
		return RecurYearly, true
	}
	return RecurNone, false
}

type CalendarEntry struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	Time        string     `json:"time"`
	Recurrence  Recurrence `json:"recurrence"`
	Type        EntryType  `json:"type"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StartsAt combines Date and Time in loc. An unparseable time is treated as midnight.
func (e CalendarEntry) StartsAt(loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, e.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(TimeLayout, e.Time); err == nil {
		d = d.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	}
	return d, nil
}
