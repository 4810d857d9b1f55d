package assistant

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeDateFacts(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC) // Thursday
	f := ComputeDateFacts(now)

	assert.Equal(t, "2026-10-15", f.Today)
	assert.Equal(t, "2026-10-16", f.Tomorrow)
	assert.Equal(t, "Thursday, October 15", f.TodayDisplay)
	assert.Equal(t, "09:30", f.CurrentTime)
	assert.Equal(t, "Thursday", f.CurrentDay)
	assert.Equal(t, "2026-11-01", f.NextMonthFirst)
	assert.Equal(t, "2026-11-02", f.NextMonthSecond)

	assert.Equal(t, map[time.Weekday]string{
		time.Monday:    "2026-11-02",
		time.Tuesday:   "2026-11-03",
		time.Wednesday: "2026-11-04",
		time.Thursday:  "2026-11-05",
		time.Friday:    "2026-11-06",
		time.Saturday:  "2026-11-07",
		time.Sunday:    "2026-11-01",
	}, f.FirstInNextMonth)

	assert.Equal(t, map[time.Weekday]string{
		time.Monday:    "2026-10-19",
		time.Tuesday:   "2026-10-20",
		time.Wednesday: "2026-10-21",
		time.Thursday:  "2026-10-22",
		time.Friday:    "2026-10-16",
		time.Saturday:  "2026-10-17",
		time.Sunday:    "2026-10-18",
	}, f.Next)
}

func TestComputeDateFactsYearRollover(t *testing.T) {
	now := time.Date(2026, 12, 20, 18, 0, 0, 0, time.UTC) // Sunday
	f := ComputeDateFacts(now)

	assert.Equal(t, "2027-01-01", f.NextMonthFirst)
	assert.Equal(t, "2027-01-02", f.NextMonthSecond)
	assert.Equal(t, "2027-01-01", f.FirstInNextMonth[time.Friday])
	assert.Equal(t, "2027-01-04", f.FirstInNextMonth[time.Monday])
	assert.Equal(t, "2026-12-27", f.Next[time.Sunday])
	assert.Equal(t, "2026-12-21", f.Next[time.Monday])
}

func TestAssemblePrompt(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	transcript := formatTranscript(buildTurns(nil, "lunch with Sam on Friday"))
	p := AssemblePrompt(ComputeDateFacts(now), transcript, "lunch with Sam on Friday")

	assert.True(t, strings.HasPrefix(p, "Previous conversation:\nUser: lunch with Sam on Friday\n"))
	assert.True(t, strings.HasSuffix(p, "\n\nUser: lunch with Sam on Friday\nAssistant:"))
	assert.Contains(t, p, "- Today's date: 2026-10-15")
	assert.Contains(t, p, "- Tomorrow's date: 2026-10-16")
	assert.Contains(t, p, "- Next month's first Sunday: 2026-11-01")
	assert.Contains(t, p, "- Next Friday: 2026-10-16")
	assert.Contains(t, p, "- Next Thursday: 2026-10-22")
	assert.Contains(t, p, `"type": "event|reminder|task"`)
	assert.Contains(t, p, "toggle_complete")
	assert.Contains(t, p, "ambiguous")
}
