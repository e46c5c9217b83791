package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
)

const (
	// DefaultAnthropicEndpoint is the public Messages API host.
	DefaultAnthropicEndpoint = "https://api.anthropic.com"

	anthropicVersion          = "2023-06-01"
	anthropicDefaultMaxTokens = 4096
	anthropicDefaultContext   = 200000
)

var anthropicContextSizes = map[string]int{
	"claude-3-5-sonnet-20241022": 200000,
	"claude-3-5-haiku-20241022":  200000,
	"claude-3-opus-20240229":     200000,
	"claude-3-sonnet-20240229":   200000,
	"claude-3-haiku-20240307":    200000,
}

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	cfg        ProviderConfig
	endpoint   string
	httpClient *http.Client
}

// NewAnthropicProvider creates an Anthropic provider. The per-call timeout is
// applied through the request context, not the HTTP client.
func NewAnthropicProvider(cfg ProviderConfig) *AnthropicProvider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultAnthropicEndpoint
	}
	return &AnthropicProvider{
		cfg:        cfg,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{},
	}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicErrorResponse struct {
	Error *anthropicAPIError `json:"error"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *anthropicAPIError `json:"error"`
}

// Send posts a non-streaming Messages request.
func (p *AnthropicProvider) Send(ctx context.Context, messages []Message, opts ...Option) (*Response, error) {
	if !p.Validate() {
		return nil, fmt.Errorf("%s: %w", TypeAnthropic, ErrNotConfigured)
	}
	call := p.cfg.callOptions(opts)

	ctx, cancel := p.cfg.withTimeout(ctx)
	defer cancel()

	resp, err := p.do(ctx, p.buildRequest(messages, call, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(TypeAnthropic, err)
	}

	var result anthropicResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	var content string
	for _, block := range result.Content {
		if block.Type == "text" {
			content = block.Text
			break
		}
	}
	model := result.Model
	if model == "" {
		model = call.Model
	}

	return &Response{
		Content:      content,
		Model:        model,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		StopReason:   result.StopReason,
	}, nil
}

// Stream posts a streaming Messages request and yields text deltas.
func (p *AnthropicProvider) Stream(ctx context.Context, messages []Message, opts ...Option) iter.Seq2[string, error] {
	if !p.Validate() {
		return failedStream(fmt.Errorf("%s: %w", TypeAnthropic, ErrNotConfigured))
	}
	call := p.cfg.callOptions(opts)

	return singleUse(func(yield func(string, error) bool) {
		ctx, cancel := p.cfg.withTimeout(ctx)
		defer cancel()

		resp, err := p.do(ctx, p.buildRequest(messages, call, true))
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		// Parse SSE stream
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield("", transportError(TypeAnthropic, err))
				}
				return
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			var event anthropicStreamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				// Skip malformed events
				continue
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta.Text == "" {
					continue
				}
				if !yield(event.Delta.Text, nil) {
					return
				}
			case "error":
				perr := &ProviderError{Provider: TypeAnthropic, Message: "stream error"}
				if event.Error != nil {
					perr.Type = event.Error.Type
					perr.Message = event.Error.Message
				}
				yield("", perr)
				return
			case "message_stop":
				return
			}
		}
	})
}

// CountTokens estimates tokens with the character heuristic.
func (p *AnthropicProvider) CountTokens(text string) int {
	return EstimateTokens(text)
}

// Describe reports the configured Claude model.
func (p *AnthropicProvider) Describe() ModelInfo {
	size, ok := anthropicContextSizes[p.cfg.Model]
	if !ok {
		size = anthropicDefaultContext
	}
	return ModelInfo{
		Name:                    p.cfg.Model,
		Provider:                TypeAnthropic,
		MaxContextTokens:        size,
		SupportsStreaming:       true,
		SupportsVision:          true,
		SupportsFunctionCalling: true,
	}
}

// Validate requires an API key.
func (p *AnthropicProvider) Validate() bool {
	return p.cfg.APIKey != ""
}

func (p *AnthropicProvider) buildRequest(messages []Message, call CallOptions, stream bool) *anthropicRequest {
	system, turns := splitSystem(messages)
	req := &anthropicRequest{
		Model:       call.Model,
		MaxTokens:   anthropicDefaultMaxTokens,
		System:      system,
		Messages:    make([]anthropicMessage, 0, len(turns)),
		Temperature: call.Temperature,
		Stream:      stream,
	}
	if call.MaxTokens != nil {
		req.MaxTokens = *call.MaxTokens
	}
	for _, m := range turns {
		req.Messages = append(req.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}
	return req
}

// do sends req and returns the response when the status is 200. Any other
// status is converted to a ProviderError and the body is closed.
func (p *AnthropicProvider) do(ctx context.Context, req *anthropicRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(TypeAnthropic, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		perr := &ProviderError{Provider: TypeAnthropic, StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp anthropicErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			perr.Type = errResp.Error.Type
			perr.Message = errResp.Error.Message
		}
		return nil, perr
	}

	return resp, nil
}
