// Package commentary turns a match and its tracked participants into one
// commentary string per participant.
//
// The engine is a pure function over (match, participants) parameterized by a
// pluggable llm.Provider. It owns no durable state. A single tracked
// participant gets a dedicated prompt whose raw response is the commentary; a
// group gets one batched prompt whose response is split back per participant
// by name tags. Every participant is guaranteed a non-empty comment: when the
// backend fails, returns the error sentinel, or a tag cannot be attributed,
// a deterministic templated sentence takes its place.
package commentary

import (
	"context"
	"log/slog"
	"strings"

	"matchherald/internal/observe"
	"matchherald/internal/stats"
	"matchherald/pkg/provider/llm"
)

// ErrorSentinel is the reserved string a degraded generation path yields in
// place of real commentary. Any response equal to it is treated as a failure.
const ErrorSentinel = "Error generating comment"

const (
	defaultTemperature = 0.9
	defaultMaxTokens   = 200

	// batchedTokensPerExtra widens the completion budget for each participant
	// beyond the first in a batched prompt.
	batchedTokensPerExtra = 120
)

// Engine generates per-participant match commentary through an llm.Provider.
type Engine struct {
	provider     llm.Provider
	providerName string
	tone         string
	temperature  float64
	maxTokens    int
	metrics      *observe.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithTone overrides the default commentator tone directive in the system prompt.
func WithTone(tone string) Option {
	return func(e *Engine) {
		if tone != "" {
			e.tone = tone
		}
	}
}

// WithTemperature overrides the default sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *Engine) {
		if t > 0 {
			e.temperature = t
		}
	}
}

// WithMaxTokens overrides the per-participant completion token budget.
func WithMaxTokens(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithProviderName sets the provider label attached to generation failure
// metrics.
func WithProviderName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.providerName = name
		}
	}
}

// WithMetrics overrides the metrics sink, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// NewEngine creates an Engine backed by the given provider.
func NewEngine(provider llm.Provider, opts ...Option) *Engine {
	e := &Engine{
		provider:     provider,
		providerName: "unknown",
		tone:         defaultTone,
		temperature:  defaultTemperature,
		maxTokens:    defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Generate produces one commentary string per tracked participant of m,
// keyed by Steam ID. The returned map always has exactly one non-empty entry
// for every tracked participant present in the match; entries the backend
// could not serve contain deterministic fallback text. An empty map means the
// match has no tracked participants.
func (e *Engine) Generate(ctx context.Context, m *stats.Match, trackedIDs []string) map[string]string {
	tracked := m.TrackedPlayers(trackedIDs)
	if len(tracked) == 0 {
		return map[string]string{}
	}
	// A lone participant always takes the single path. Tag parsing adds
	// failure surface for no benefit.
	if len(tracked) == 1 {
		return map[string]string{
			tracked[0].SteamID: e.singleComment(ctx, m, tracked[0], trackedIDs),
		}
	}
	return e.batchedComments(ctx, m, tracked, trackedIDs)
}

// singleComment runs the one-participant cycle. The raw response is the
// commentary; no parsing beyond sentinel and emptiness checks.
func (e *Engine) singleComment(ctx context.Context, m *stats.Match, p *stats.PlayerPerformance, trackedIDs []string) string {
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: e.systemPrompt(),
		Prompt:       buildSinglePrompt(m, p, trackedIDs),
		Temperature:  e.temperature,
		MaxTokens:    e.maxTokens,
	})
	if err != nil {
		slog.Warn("commentary generation failed, using fallback",
			"match_id", m.ID, "player", p.Name, "error", err)
		e.metrics.RecordGenerationFailure(ctx, e.providerName)
		return FallbackComment(p)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" || text == ErrorSentinel {
		slog.Warn("commentary generation returned no usable text, using fallback",
			"match_id", m.ID, "player", p.Name)
		e.metrics.RecordGenerationFailure(ctx, e.providerName)
		return FallbackComment(p)
	}
	return text
}

// batchedComments runs the multi-participant cycle: one prompt, one call,
// and a per-participant split of the response by name tag. Participants whose
// tag is missing or empty fall back individually.
func (e *Engine) batchedComments(ctx context.Context, m *stats.Match, tracked []*stats.PlayerPerformance, trackedIDs []string) map[string]string {
	out := make(map[string]string, len(tracked))

	maxTokens := e.maxTokens + batchedTokensPerExtra*(len(tracked)-1)
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: e.systemPrompt(),
		Prompt:       buildBatchedPrompt(m, tracked, trackedIDs),
		Temperature:  e.temperature,
		MaxTokens:    maxTokens,
	})

	var sections map[string]string
	switch {
	case err != nil:
		slog.Warn("batched commentary generation failed, using fallbacks",
			"match_id", m.ID, "participants", len(tracked), "error", err)
	case strings.TrimSpace(resp.Content) == ErrorSentinel:
		slog.Warn("batched commentary returned error sentinel, using fallbacks",
			"match_id", m.ID, "participants", len(tracked))
	default:
		names := make([]string, len(tracked))
		for i, p := range tracked {
			names[i] = p.Name
		}
		sections = attribute(resp.Content, names)
	}

	for _, p := range tracked {
		if text, ok := sections[p.Name]; ok && text != ErrorSentinel {
			out[p.SteamID] = text
			continue
		}
		slog.Debug("no attributed commentary for participant, using fallback",
			"match_id", m.ID, "player", p.Name)
		e.metrics.RecordGenerationFailure(ctx, e.providerName)
		out[p.SteamID] = FallbackComment(p)
	}
	return out
}

func (e *Engine) systemPrompt() string {
	return systemPromptPrefix + e.tone
}
