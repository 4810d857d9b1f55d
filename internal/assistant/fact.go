package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/pocketcal/internal/completion"
	"github.com/dukerupert/pocketcal/internal/model"
)

const factDateLayout = "January 02"

func genericFact(dateDisplay string) string {
	return fmt.Sprintf("Did you know that on %s, many significant events in history have occurred? Today is a great day to learn something new!", dateDisplay)
}

func factPrompt(dateDisplay string) string {
	return fmt.Sprintf(`Today is %[1]s. Write one interesting "Did You Know?" fact tied to this date (month and day) in history or science.
The fact must be:
- true and verifiable
- educational and surprising
- suitable for all ages
- about science, history, technology or general knowledge

Reply with a JSON object holding a single field "fact". Keep it to one or two sentences.
Example: {"fact": "Did you know that on %[1]s, ...?"}`, dateDisplay)
}

// DailyFact returns today's cached fact, generating it when missing.
func (s *Service) DailyFact(ctx context.Context) string {
	today := s.localNow().Format(model.DateLayout)
	f, err := s.facts.Get(today)
	if err != nil {
		s.logger.Error("get daily fact", "date", today, "error", err)
	}
	if f != nil {
		return f.Fact
	}
	return s.GenerateDailyFact(ctx)
}

// GenerateDailyFact asks the backend for today's fact and caches it. When the
// backend is unreachable the fallback text is returned and nothing is cached.
func (s *Service) GenerateDailyFact(ctx context.Context) string {
	now := s.localNow()
	display := now.Format(factDateLayout)

	text := s.backend.Complete(ctx, factPrompt(display))
	if completion.IsFallback(text) {
		return text
	}

	var fact string
	c := Classify(text)
	switch c.Kind {
	case KindParsed:
		fact = strings.TrimSpace(c.Fields.str("fact"))
	case KindRawText:
		fact = c.Text
	}
	if fact == "" {
		fact = genericFact(display)
	}

	date := now.Format(model.DateLayout)
	if _, err := s.facts.Upsert(date, fact); err != nil {
		s.logger.Error("store daily fact", "date", date, "error", err)
	}
	return fact
}
