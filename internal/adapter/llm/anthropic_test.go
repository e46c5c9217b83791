package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnthropicTestProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAnthropicProvider(ProviderConfig{
		Name:     "claude",
		Type:     TypeAnthropic,
		Model:    "claude-3-5-sonnet-20241022",
		APIKey:   "test-key",
		Endpoint: server.URL,
		Timeout:  5 * time.Second,
	})
}

func TestAnthropicSendShapesRequest(t *testing.T) {
	var captured map[string]any
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "Hi there"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 3}
		}`))
	})

	resp, err := p.Send(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are terse."},
		{Role: RoleUser, Content: "Hello"},
		{Role: RoleSystem, Content: "ignored"},
		{Role: RoleAssistant, Content: "Hi"},
		{Role: RoleUser, Content: "Again"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", resp.Content)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 3, resp.OutputTokens)
	assert.Equal(t, "end_turn", resp.StopReason)

	assert.Equal(t, "You are terse.", captured["system"])
	assert.Equal(t, float64(4096), captured["max_tokens"])
	assert.NotContains(t, captured, "temperature")
	assert.NotContains(t, captured, "stream")

	turns := captured["messages"].([]any)
	require.Len(t, turns, 3)
	for _, turn := range turns {
		assert.NotEqual(t, "system", turn.(map[string]any)["role"])
	}
}

func TestAnthropicSendPassesOptions(t *testing.T) {
	var captured map[string]any
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}],"usage":{}}`))
	})

	resp, err := p.Send(context.Background(),
		[]Message{{Role: RoleUser, Content: "x"}},
		WithMaxTokens(256), WithTemperature(0.2), WithModel("claude-3-haiku-20240307"),
	)
	require.NoError(t, err)
	assert.Equal(t, "claude-3-haiku-20240307", resp.Model)
	assert.Equal(t, float64(256), captured["max_tokens"])
	assert.InDelta(t, 0.2, captured["temperature"], 1e-9)
	assert.Equal(t, "claude-3-haiku-20240307", captured["model"])
	assert.NotContains(t, captured, "system")
}

func TestAnthropicSendAPIError(t *testing.T) {
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	})

	_, err := p.Send(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.Equal(t, "rate_limit_error", perr.Type)
	assert.Equal(t, "slow down", perr.Message)
	assert.True(t, perr.Retryable())
	assert.Contains(t, err.Error(), "[429]")
}

func TestAnthropicSendBadRequestNotRetryable(t *testing.T) {
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := p.Send(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "not json", perr.Message)
	assert.False(t, perr.Retryable())
	assert.False(t, IsRetryable(err))
}

func TestAnthropicTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)

	p := NewAnthropicProvider(ProviderConfig{
		Model: "claude", APIKey: "k", Endpoint: server.URL, Timeout: 50 * time.Millisecond,
	})
	_, err := p.Send(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Timeout())
	assert.True(t, perr.Retryable())
}

func TestAnthropicNotConfigured(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(server.Close)

	p := NewAnthropicProvider(ProviderConfig{Model: "claude", Endpoint: server.URL})
	assert.False(t, p.Validate())

	_, err := p.Send(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = Collect(p.Stream(context.Background(), []Message{{Role: RoleUser, Content: "x"}}))
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, called)
}

func writeSSE(w http.ResponseWriter, event string, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestAnthropicStream(t *testing.T) {
	var captured map[string]any
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, "message_start", `{"type":"message_start","message":{}}`)
		writeSSE(w, "content_block_start", `{"type":"content_block_start","index":0}`)
		writeSSE(w, "ping", `{"type":"ping"}`)
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello"}}`)
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":", world"}}`)
		writeSSE(w, "message_stop", `{"type":"message_stop"}`)
	})

	content, err := Collect(p.Stream(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hi"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", content)
	assert.Equal(t, true, captured["stream"])
	assert.Equal(t, "sys", captured["system"])
}

func TestAnthropicStreamErrorEvent(t *testing.T) {
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"partial"}}`)
		writeSSE(w, "error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	})

	content, err := Collect(p.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
	assert.Equal(t, "partial", content)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "overloaded_error", perr.Type)
	assert.True(t, perr.Retryable())
}

func TestAnthropicStreamEarlyBreakReleasesConnection(t *testing.T) {
	done := make(chan struct{})
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"first"}}`)
		<-r.Context().Done()
		close(done)
	})

	stream := p.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	for fragment, err := range stream {
		require.NoError(t, err)
		assert.Equal(t, "first", fragment)
		break
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server request was not cancelled after early break")
	}

	_, err := Collect(stream)
	assert.True(t, errors.Is(err, ErrStreamConsumed))
}

func TestAnthropicDescribe(t *testing.T) {
	p := NewAnthropicProvider(ProviderConfig{Model: "claude-unknown", APIKey: "k"})
	info := p.Describe()
	assert.Equal(t, "anthropic", info.Provider)
	assert.Equal(t, 200000, info.MaxContextTokens)
	assert.True(t, info.SupportsVision)
	assert.True(t, info.SupportsFunctionCalling)
	assert.True(t, p.Validate())
	assert.Equal(t, 2, p.CountTokens("12345678"))
}
