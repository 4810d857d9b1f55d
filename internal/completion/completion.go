// Package completion talks to the external text-generation backend. Callers
// always receive text: transport failures degrade to FallbackText.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/pocketcal/internal/metrics"
)

const (
	// FallbackText is returned when the backend cannot be reached or answers
	// with an error status.
	FallbackText = "I'm sorry, I'm having trouble connecting to the AI service right now."

	// NoResponseText is returned when the backend answers but carries no
	// completion.
	NoResponseText = "I'm sorry, I couldn't generate a response."
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Backend turns a prompt into completion text. Complete never fails; see
// FallbackText.
type Backend interface {
	Complete(ctx context.Context, prompt string) string
}

// Config selects and configures a Backend.
type Config struct {
	Provider string
	URL      string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// New builds the Backend named by cfg.Provider.
func New(cfg Config) (Backend, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllama(cfg.URL, cfg.Model, cfg.Timeout), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.URL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}

// IsFallback reports whether text is the connection-failure fallback.
func IsFallback(text string) bool {
	return text == FallbackText
}

// errNoResponse marks a reply that reached us but held no completion.
var errNoResponse = errors.New("no completion in response")

// finish records metrics for one call and maps its error to the caller-facing text.
func finish(provider string, start time.Time, text string, err error) string {
	metrics.CompletionLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	switch {
	case errors.Is(err, errNoResponse):
		metrics.CompletionCalls.WithLabelValues(provider, "empty").Inc()
		slog.Warn("completion returned no response", "component", "completion", "provider", provider)
		return NoResponseText
	case err != nil:
		metrics.CompletionCalls.WithLabelValues(provider, "error").Inc()
		slog.Error("completion request failed", "component", "completion", "provider", provider, "error", err)
		return FallbackText
	}
	metrics.CompletionCalls.WithLabelValues(provider, "ok").Inc()
	return text
}
