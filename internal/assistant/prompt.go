package assistant

import (
	"strings"
	"text/template"
	"time"

	"github.com/dukerupert/pocketcal/internal/model"
)

const (
	displayDateLayout = "Monday, January 02"
	displayTimeLayout = "03:04 PM"
)

// weekOrder is the order weekday facts appear in the prompt.
var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// DateFacts are the literal dates the model is given so it never has to do
// calendar arithmetic itself.
type DateFacts struct {
	Today           string
	TodayDisplay    string
	CurrentTime     string
	CurrentDay      string
	Tomorrow        string
	NextMonthFirst  string
	NextMonthSecond string

	// FirstInNextMonth maps each weekday to its first date in next month.
	FirstInNextMonth map[time.Weekday]string
	// Next maps each weekday to its next date after today. Today's own
	// weekday resolves to one week ahead.
	Next map[time.Weekday]string
}

// day returns the civil date n days after t's date, at midnight in t's location.
func day(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, 0, 0, 0, 0, t.Location())
}

// ComputeDateFacts derives DateFacts from now, in now's location.
func ComputeDateFacts(now time.Time) DateFacts {
	today := day(now, 0)
	nextMonth := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())

	f := DateFacts{
		Today:            today.Format(model.DateLayout),
		TodayDisplay:     now.Format(displayDateLayout),
		CurrentTime:      now.Format(model.TimeLayout),
		CurrentDay:       now.Weekday().String(),
		Tomorrow:         day(now, 1).Format(model.DateLayout),
		NextMonthFirst:   nextMonth.Format(model.DateLayout),
		NextMonthSecond:  day(nextMonth, 1).Format(model.DateLayout),
		FirstInNextMonth: make(map[time.Weekday]string, 7),
		Next:             make(map[time.Weekday]string, 7),
	}

	for _, wd := range weekOrder {
		offset := (int(wd) - int(nextMonth.Weekday()) + 7) % 7
		f.FirstInNextMonth[wd] = day(nextMonth, offset).Format(model.DateLayout)

		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		f.Next[wd] = day(now, ahead).Format(model.DateLayout)
	}
	return f
}

type promptData struct {
	Transcript string
	Facts      DateFacts
	Weekdays   []time.Weekday
	EntryTypes string
	Message    string
}

var promptTmpl = template.Must(template.New("prompt").Parse(`{{.Transcript}}
Current Date and Time Information:
- Today's date: {{.Facts.Today}}
- Current date display: {{.Facts.TodayDisplay}}
- Current time: {{.Facts.CurrentTime}}
- Current day: {{.Facts.CurrentDay}}
- Tomorrow's date: {{.Facts.Tomorrow}}
- Next month's first day: {{.Facts.NextMonthFirst}}
- Next month's second day: {{.Facts.NextMonthSecond}}
{{- range .Weekdays}}
- Next month's first {{.}}: {{index $.Facts.FirstInNextMonth .}}
{{- end}}
{{- range .Weekdays}}
- Next {{.}}: {{index $.Facts.Next .}}
{{- end}}

You are the assistant of a personal calendar application. You can help the user:
- create events, reminders and tasks
- create and manage to-do lists (create, add items, rename, delete, mark items complete)
- describe what is scheduled on a given day, week or month
- answer questions about their calendar and suggest how to plan it

You MUST reply with valid JSON only, shaped like this:
{
  "output_llm": "message shown to the user",
  "event_data": {
    "title": "...",
    "description": "...",
    "date": "YYYY-MM-DD",
    "time": "HH:MM",
    "recurrence": "none|daily|weekly|monthly|yearly",
    "type": "{{.EntryTypes}}"
  },
  "todo_data": {
    "action": "create|add_item|rename|delete|toggle_complete",
    "list_name": "...",
    "item_text": "...",
    "item_index": 0
  }
}

Rules:
- Use the dates listed above; never compute a date yourself.
- Times are 24-hour HH:MM.
- If the time is ambiguous (for example "at 11" without morning or evening), ask which one is meant and set "event_data" to null.
- Set "event_data" to null when the user is not asking to schedule something.

To-do lists:
- create: set "list_name"; "item_text" may hold the initial items separated by commas.
- add_item: set "list_name" and "item_text" (one item, or several separated by commas).
- rename: set "list_name" to the current name and "item_text" to the new name.
- delete: set "list_name".
- toggle_complete: set "list_name" and "item_index" (0 is the first item).
- Set "todo_data" to null when the request is not about to-do lists.

Example, new to-do list:
{"output_llm": "I've created a to-do list called 'Groceries' with milk, bread and eggs.", "todo_data": {"action": "create", "list_name": "Groceries", "item_text": "milk, bread, eggs", "item_index": null}}

Example, reminder:
{"output_llm": "I've scheduled your Reminder: 'Bathing' for {{.Facts.TodayDisplay}} at 11:00 AM. You can view it in your calendar.", "event_data": {"title": "Bathing", "description": "Daily bathing reminder", "date": "{{.Facts.Today}}", "time": "11:00", "recurrence": "none", "type": "reminder"}}

Example, unclear time:
{"output_llm": "Would you like this at 11:00 AM or 11:00 PM?", "event_data": null}

Example, greeting:
{"output_llm": "Hello! How can I help with your calendar today?", "event_data": null}


User: {{.Message}}
Assistant:`))

// AssemblePrompt builds the full prompt sent to the completion backend.
func AssemblePrompt(facts DateFacts, transcript, message string) string {
	types := make([]string, len(model.EntryTypes))
	for i, t := range model.EntryTypes {
		types[i] = string(t)
	}

	var b strings.Builder
	// strings.Builder never returns a write error.
	_ = promptTmpl.Execute(&b, promptData{
		Transcript: transcript,
		Facts:      facts,
		Weekdays:   weekOrder,
		EntryTypes: strings.Join(types, "|"),
		Message:    message,
	})
	return b.String()
}
