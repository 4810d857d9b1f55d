package calendar

import (
	"fmt"
	"log/slog"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/dukerupert/pocketcal/internal/model"
	"github.com/dukerupert/pocketcal/internal/recurrence"
)

const productID = "-//pocketcal//calendar export//EN"

// UID returns the stable iCalendar UID of an entry.
func UID(e model.CalendarEntry) string {
	return fmt.Sprintf("entry-%d@pocketcal", e.ID)
}

// ExportICS serializes entries as a VCALENDAR. Entries are read in loc;
// entries with an unparseable date are skipped.
func ExportICS(name string, entries []model.CalendarEntry, loc *time.Location, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, e := range entries {
		start, err := e.StartsAt(loc)
		if err != nil {
			slog.Warn("skip entry in ics export", "component", "calendar", "entry_id", e.ID, "date", e.Date, "error", err)
			continue
		}

		ev := cal.AddEvent(UID(e))
		ev.SetDtStampTime(now)
		ev.SetCreatedTime(e.CreatedAt)
		ev.SetModifiedAt(e.UpdatedAt)
		ev.SetStartAt(start)
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		ev.AddProperty(ical.ComponentPropertyCategories, e.Type.Title())
		if rule := recurrence.RRule(e.Recurrence); rule != "" {
			ev.AddRrule(rule)
		}
	}
	return cal.Serialize()
}
