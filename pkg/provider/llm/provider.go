// Package llm defines the Provider interface for the text-generation backends
// used to produce match commentary.
//
// A provider wraps a remote or local chat-completion API (e.g., Groq, OpenAI,
// or a local Ollama instance) and exposes a single request/response call. The
// commentary engine never streams: one prompt in, one block of text out.
//
// Implementations must be safe for concurrent use and must return promptly
// when the supplied context is cancelled.
package llm

import "context"

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit and may differ between providers for identical text.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the system prompt and
	// user message.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Some providers return it
	// directly rather than computing it from the parts.
	TotalTokens int
}

// CompletionRequest carries everything the backend needs to produce one
// commentary response. Prompt must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is a high-priority instruction injected before the user
	// message (the commentator persona and tone directive).
	SystemPrompt string

	// Prompt is the user-role message containing the match context.
	Prompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero means use the
	// provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the backend's reply to a CompletionRequest.
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any chat-completion backend.
//
// Complete sends the request and waits for the full response. It returns an
// error if the request fails, the response is empty, or ctx is cancelled
// before the completion arrives.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
