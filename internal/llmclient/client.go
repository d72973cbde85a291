// Package llmclient abstracts the single LLM operation the rest of
// Argus needs: turn a prompt into text. Every caller (Invariant
// Discovery's proposer, the LLM translator, the Repair Engine) is a
// one-shot completion with no conversation history and no streaming,
// so the interface is trimmed to that shape rather than carrying the
// chat/stream surface a general assistant backend would need.
package llmclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/argusverify/argus/internal/credential"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"golang.org/x/time/rate"
)

// ErrNoCredential is returned by every Client method when no API key
// was configured. Callers should treat it the same way the rest of the
// pipeline treats a missing GEMINI_API_KEY: the relevant proposer,
// translator, or repair step is simply unavailable, not an error
// condition (spec §5).
var ErrNoCredential = errors.New("llmclient: no credential configured")

// Client produces text completions. The Client New returns when no
// credential is available is safe to call Generate on; it always
// returns ErrNoCredential.
type Client interface {
	// Generate completes prompt and returns the model's raw text
	// response. Implementations never affect pipeline verdicts
	// directly (spec §3's "LLM never decides VERIFIED/FIXED") — only
	// the callers that consume the returned text do.
	Generate(ctx context.Context, prompt string) (string, error)
}

// noCredentialClient is the zero-value behavior when Secret is nil.
type noCredentialClient struct{}

func (noCredentialClient) Generate(ctx context.Context, prompt string) (string, error) {
	return "", ErrNoCredential
}

// geminiClient wraps langchaingo's Google AI backend behind a rate
// limiter, so the proposer, translator, and repair loop share one
// budget instead of each hammering the API independently.
type geminiClient struct {
	model   llms.Model
	modelID string
	limiter *rate.Limiter
}

// Option configures New.
type Option func(*options)

type options struct {
	modelID      string
	ratePerSec   float64
	burst        int
}

// WithModelID overrides the Gemini model identifier (default
// "gemini-2.5-pro", matching config.Config's default).
func WithModelID(id string) Option {
	return func(o *options) { o.modelID = id }
}

// WithRateLimit overrides the token-bucket rate (requests/sec and
// burst) shared by every Generate call from this Client.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) { o.ratePerSec = perSecond; o.burst = burst }
}

// New builds a Client from secret. A nil secret (no GEMINI_API_KEY
// configured) yields a Client whose Generate always fails with
// ErrNoCredential, letting callers treat "no LLM" uniformly rather
// than branching on secret's presence everywhere.
func New(ctx context.Context, secret *credential.Secret, opts ...Option) (Client, error) {
	if secret == nil {
		return noCredentialClient{}, nil
	}

	o := options{modelID: "gemini-2.5-pro", ratePerSec: 1, burst: 2}
	for _, opt := range opts {
		opt(&o)
	}

	var client Client
	var buildErr error
	err := secret.Use(func(apiKey string) error {
		backend, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(o.modelID))
		if err != nil {
			buildErr = fmt.Errorf("llmclient: construct google ai backend: %w", err)
			return buildErr
		}
		client = &geminiClient{
			model:   backend,
			modelID: o.modelID,
			limiter: rate.NewLimiter(rate.Limit(o.ratePerSec), o.burst),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, buildErr
}

func (c *geminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llmclient: rate limit wait: %w", err)
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt)
	if err != nil {
		return "", fmt.Errorf("llmclient: generate: %w", err)
	}
	return text, nil
}
