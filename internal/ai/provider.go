// Package ai talks to an external generative-text provider and turns
// its free-form output into a bounded list of subtask suggestions.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNoAPIKey            = errors.New("AI_API_KEY not configured")
	ErrUnsupportedProvider = errors.New("unsupported AI provider")
)

// Provider completes a prompt against one upstream service. The call
// is never retried and never cached; a timeout on the underlying
// client is the only safeguard.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewProvider selects the configured provider once at startup. Call
// sites never switch on the provider name again.
func NewProvider(name, apiKey, model string, timeout time.Duration) (Provider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpc := &http.Client{Timeout: timeout}

	switch name {
	case "groq":
		return &groqClient{
			apiKey:  apiKey,
			baseURL: "https://api.groq.com",
			httpc:   httpc,
		}, nil
	case "openai":
		return &openaiClient{
			apiKey:  apiKey,
			model:   model,
			baseURL: "https://api.openai.com",
			httpc:   httpc,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
}

// Unavailable is wired in place of a real provider when startup
// configuration failed, so suggest requests surface the cause instead
// of panicking on a nil provider.
func Unavailable(err error) Provider {
	return unavailable{err: err}
}

type unavailable struct {
	err error
}

func (u unavailable) Complete(context.Context, string) (string, error) {
	return "", u.err
}
