package llm

import (
	"context"
	"iter"
	"strings"
	"sync"
)

const (
	// DefaultMockModel is used when a mock provider has no model configured.
	DefaultMockModel = "mock-model"

	mockContextTokens = 100000
	mockPrefix        = "Mock response to: "
	mockPreviewRunes  = 50
)

// MockCall is one recorded call to a MockProvider.
type MockCall struct {
	Messages []Message
	Response Response
}

// MockProvider is a deterministic Provider for tests and local runs. It makes
// no network calls and records every call it receives.
type MockProvider struct {
	cfg ProviderConfig

	mu       sync.Mutex
	response string
	history  []MockCall
}

// NewMockProvider creates a mock provider.
func NewMockProvider(cfg ProviderConfig) *MockProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultMockModel
	}
	return &MockProvider{cfg: cfg}
}

// SetResponse fixes the content returned by later calls. An empty string
// restores the default echo response.
func (m *MockProvider) SetResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
}

// History returns a copy of the recorded calls, oldest first.
func (m *MockProvider) History() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.history))
	copy(out, m.history)
	return out
}

// Send returns the configured response, or an echo of the last message.
func (m *MockProvider) Send(ctx context.Context, messages []Message, opts ...Option) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := m.respond(messages, m.cfg.callOptions(opts))
	return &resp, nil
}

// Stream yields the Send content split after each space.
func (m *MockProvider) Stream(ctx context.Context, messages []Message, opts ...Option) iter.Seq2[string, error] {
	call := m.cfg.callOptions(opts)
	return singleUse(func(yield func(string, error) bool) {
		resp := m.respond(messages, call)
		for _, fragment := range strings.SplitAfter(resp.Content, " ") {
			if fragment == "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
	})
}

// CountTokens uses the four-characters-per-token heuristic.
func (m *MockProvider) CountTokens(text string) int {
	return EstimateTokens(text)
}

// Describe reports the mock model.
func (m *MockProvider) Describe() ModelInfo {
	return ModelInfo{
		Name:              m.cfg.Model,
		Provider:          TypeMock,
		MaxContextTokens:  mockContextTokens,
		SupportsStreaming: true,
	}
}

// Validate always succeeds.
func (m *MockProvider) Validate() bool {
	return true
}

func (m *MockProvider) respond(messages []Message, call CallOptions) Response {
	m.mu.Lock()
	defer m.mu.Unlock()

	content := m.response
	if content == "" {
		var last string
		if len(messages) > 0 {
			last = messages[len(messages)-1].Content
		}
		content = mockPrefix + truncateRunes(last, mockPreviewRunes)
	}

	input := 0
	for _, msg := range messages {
		input += m.CountTokens(msg.Content)
	}

	resp := Response{
		Content:      content,
		Model:        call.Model,
		InputTokens:  input,
		OutputTokens: m.CountTokens(content),
		StopReason:   "end_turn",
	}
	recorded := make([]Message, len(messages))
	copy(recorded, messages)
	m.history = append(m.history, MockCall{Messages: recorded, Response: resp})
	return resp
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
