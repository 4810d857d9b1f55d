package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultOllamaURL is the generate endpoint of a local Ollama server.
const DefaultOllamaURL = "http://localhost:11434/api/generate"

// Ollama calls the Ollama generate API with streaming disabled.
type Ollama struct {
	client *resty.Client
	url    string
	model  string
}

// NewOllama creates an Ollama backend. url is the full generate endpoint; an
// empty url selects DefaultOllamaURL.
func NewOllama(url, model string, timeout time.Duration) *Ollama {
	if url == "" {
		url = DefaultOllamaURL
	}
	c := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &Ollama{client: c, url: url, model: model}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

func (o *Ollama) Complete(ctx context.Context, prompt string) string {
	start := time.Now()
	text, err := o.generate(ctx, prompt)
	return finish(ProviderOllama, start, text, err)
}

func (o *Ollama) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(&generateRequest{Model: o.model, Prompt: prompt}).
		Post(o.url)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode(), resp.String())
	}

	var gr generateResponse
	if err := json.Unmarshal(resp.Body(), &gr); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if gr.Response == nil {
		return "", errNoResponse
	}
	return *gr.Response, nil
}
