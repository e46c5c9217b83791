// Package llm provides an abstraction over LLM backends.
package llm

import (
	"context"
	"iter"
	"time"
)

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation sent to a provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response is a completed generation.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	StopReason   string `json:"stop_reason,omitempty"`
}

// TotalTokens returns input plus output tokens.
func (r *Response) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	Name                    string `json:"name"`
	Provider                string `json:"provider"`
	MaxContextTokens        int    `json:"max_context_tokens"`
	SupportsStreaming       bool   `json:"supports_streaming"`
	SupportsVision          bool   `json:"supports_vision"`
	SupportsFunctionCalling bool   `json:"supports_function_calling"`
}

// Provider is the capability every LLM backend implements.
type Provider interface {
	// Send returns the complete response for messages.
	Send(ctx context.Context, messages []Message, opts ...Option) (*Response, error)

	// Stream yields response fragments in order. Concatenated, they form the
	// full content. The sequence can be iterated once.
	Stream(ctx context.Context, messages []Message, opts ...Option) iter.Seq2[string, error]

	// CountTokens estimates the number of tokens in text.
	CountTokens(text string) int

	// Describe reports static model information.
	Describe() ModelInfo

	// Validate reports whether the provider is configured well enough to call.
	Validate() bool
}

// ProviderConfig configures a single provider instance.
type ProviderConfig struct {
	Name        string
	Type        string
	Model       string
	APIKey      string
	Endpoint    string
	MaxTokens   *int
	Temperature *float64
	Timeout     time.Duration
}

// Ensure implementations satisfy Provider.
var (
	_ Provider = (*MockProvider)(nil)
	_ Provider = (*AnthropicProvider)(nil)
	_ Provider = (*OpenAIProvider)(nil)
	_ Provider = (*CachedProvider)(nil)
)
