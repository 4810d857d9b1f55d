package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/pocketcal/internal/model"
)

// User-visible messages for the repair paths.
const (
	TroubleText    = "I'm sorry, I had trouble processing your request. Please try again."
	EventErrorText = "I'm sorry, I encountered an error while creating your event. Please try again."
	TodoErrorText  = " (But there was an error saving your to-do list.)"
	InternalText   = "I'm sorry, an error occurred while processing your request."

	defaultTitle = "Untitled Event"
	defaultTime  = "00:00"
)

// Kind classifies a completion.
type Kind int

const (
	// KindEmpty is blank text, or JSON that is not an object.
	KindEmpty Kind = iota
	// KindRawText is non-JSON text shown to the user as is.
	KindRawText
	// KindParsed is a JSON object.
	KindParsed
)

func (k Kind) String() string {
	switch k {
	case KindRawText:
		return "raw_text"
	case KindParsed:
		return "parsed"
	default:
		return "empty"
	}
}

// Completion is a classified completion text.
type Completion struct {
	Kind   Kind
	Text   string
	Fields fields
}

// fields is a decoded JSON object whose values are decoded lazily, so a
// malformed value in one field does not discard the others.
type fields map[string]json.RawMessage

// Classify decodes text strictly as JSON.
func Classify(text string) Completion {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return Completion{Kind: KindEmpty}
		}
		return Completion{Kind: KindRawText, Text: trimmed}
	}
	var obj fields
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		return Completion{Kind: KindEmpty}
	}
	return Completion{Kind: KindParsed, Fields: obj}
}

func (f fields) has(key string) bool {
	raw, ok := f[key]
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// str returns the field as a string. Non-string scalars are formatted, and
// missing or null fields yield "".
func (f fields) str(key string) string {
	raw, ok := f[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// object returns the field as a nested object. It reports false when the
// field is missing, null, empty, or not an object.
func (f fields) object(key string) (fields, bool) {
	raw, ok := f[key]
	if !ok {
		return nil, false
	}
	var obj fields
	if err := json.Unmarshal(raw, &obj); err != nil || len(obj) == 0 {
		return nil, false
	}
	return obj, true
}

// EventDraft is a repaired event payload ready to persist.
type EventDraft struct {
	Title       string
	Description string
	Date        string
	Time        string
	Recurrence  model.Recurrence
	Type        model.EntryType
}

// normalizeEvent repairs an event payload relative to now, whose location is
// the calendar's time zone. It reports whether the payload's date parsed;
// when it did not, the draft is dated today.
func normalizeEvent(ev fields, now time.Time) (EventDraft, bool) {
	loc := now.Location()
	today := day(now, 0)

	d := EventDraft{
		Title:       strings.TrimSpace(ev.str("title")),
		Description: ev.str("description"),
		Time:        defaultTime,
	}
	if d.Title == "" {
		d.Title = defaultTitle
	}
	d.Type, _ = model.ParseEntryType(ev.str("type"))
	d.Recurrence, _ = model.ParseRecurrence(ev.str("recurrence"))

	clock, timeErr := time.Parse(model.TimeLayout, strings.TrimSpace(ev.str("time")))
	if timeErr == nil {
		d.Time = clock.Format(model.TimeLayout)
	}

	date, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(ev.str("date")), loc)
	if err != nil {
		d.Date = today.Format(model.DateLayout)
		return d, false
	}
	d.Date = date.Format(model.DateLayout)

	if date.Equal(today) && timeErr == nil {
		at := time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
		if at.Before(now) {
			d.Date = day(now, 1).Format(model.DateLayout)
		}
	}
	if date.Before(today) {
		d.Date = today.Format(model.DateLayout)
	}
	return d, true
}

// confirmation renders the message shown after an event is scheduled.
func confirmation(d EventDraft, loc *time.Location) string {
	date, err := time.ParseInLocation(model.DateLayout, d.Date, loc)
	if err != nil {
		return ""
	}
	clock, err := time.Parse(model.TimeLayout, d.Time)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("I've scheduled your %s: '%s' for %s at %s. You can view it in your calendar.",
		d.Type.Title(), d.Title, date.Format(displayDateLayout), clock.Format(displayTimeLayout))
}
