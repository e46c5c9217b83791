package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiaot623/clouseau/internal/adapter/llm"
	"github.com/xiaot623/clouseau/internal/domain"
)

// GenerateRequest is a one-off provider call that persists nothing.
type GenerateRequest struct {
	Provider    string
	Messages    []llm.Message
	Model       string
	MaxTokens   *int
	Temperature *float64
	Stream      bool
}

// ProviderStatus describes a registered provider.
type ProviderStatus struct {
	Name    string        `json:"name"`
	Default bool          `json:"default"`
	Valid   bool          `json:"valid"`
	Model   llm.ModelInfo `json:"model"`
}

// Generate calls a provider with the given messages and returns its response.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*llm.Response, error) {
	if len(req.Messages) == 0 {
		return nil, &domain.ValidationError{Field: "messages", Message: "must not be empty"}
	}
	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}
	return s.call(ctx, req.Provider, provider, req.Messages, req.Stream, s.callOptions(req.Model, req.MaxTokens, req.Temperature))
}

// GenerateExchange answers req.Message in the context of a conversation and
// stores the result as a new exchange. Nothing is stored when the provider
// call fails.
func (s *Service) GenerateExchange(ctx context.Context, conversationID int64, req domain.ChatRequest) (*domain.Exchange, error) {
	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, &domain.NotFoundError{Entity: domain.EntityConversation, ID: conversationID, Parent: true}
	}
	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	messages, err := s.buildMessages(ctx, conversationID, req)
	if err != nil {
		return nil, err
	}

	var model string
	if req.Model != nil {
		model = *req.Model
	}
	resp, err := s.call(ctx, req.Provider, provider, messages, req.Stream, s.callOptions(model, req.MaxTokens, req.Temperature))
	if err != nil {
		return nil, err
	}
	if resp.Content == "" {
		return nil, &llm.ProviderError{Provider: provider.Describe().Provider, Message: "provider returned an empty response"}
	}

	in := domain.ExchangeCreate{
		ConversationID:   conversationID,
		UserMessage:      req.Message,
		AssistantMessage: resp.Content,
		InputTokens:      &resp.InputTokens,
		OutputTokens:     &resp.OutputTokens,
	}
	if resp.Model != "" {
		in.Model = &resp.Model
	}
	ex, err := s.store.CreateExchange(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create exchange: %w", err)
	}
	return ex, nil
}

// ListProviders describes every registered provider in registration order.
func (s *Service) ListProviders() []ProviderStatus {
	names := s.providers.Names()
	out := make([]ProviderStatus, 0, len(names))
	for _, name := range names {
		status, err := s.DescribeProvider(name)
		if err != nil {
			continue
		}
		out = append(out, *status)
	}
	return out
}

// DescribeProvider describes one provider.
func (s *Service) DescribeProvider(name string) (*ProviderStatus, error) {
	p, err := s.providers.Get(name)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = s.providers.Default()
	}
	return &ProviderStatus{
		Name:    name,
		Default: name == s.providers.Default(),
		Valid:   p.Validate(),
		Model:   p.Describe(),
	}, nil
}

// CountTokens estimates tokens in text using the named provider.
func (s *Service) CountTokens(name, text string) (int, error) {
	p, err := s.providers.Get(name)
	if err != nil {
		return 0, err
	}
	return p.CountTokens(text), nil
}

// buildMessages replays the conversation oldest first after the system
// prompt and appends the new user message.
func (s *Service) buildMessages(ctx context.Context, conversationID int64, req domain.ChatRequest) ([]llm.Message, error) {
	var messages []llm.Message

	system := s.config.Models.DefaultSystemPrompt
	if req.SystemPrompt != nil {
		system = *req.SystemPrompt
	}
	if system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}

	page := domain.PageRequest{Page: 1, PageSize: domain.MaxExchangePageSize}
	for {
		items, total, err := s.store.ListExchangesByConversation(ctx, conversationID, page)
		if err != nil {
			return nil, fmt.Errorf("load conversation history: %w", err)
		}
		for _, ex := range items {
			messages = append(messages,
				llm.Message{Role: llm.RoleUser, Content: ex.UserMessage},
				llm.Message{Role: llm.RoleAssistant, Content: ex.AssistantMessage},
			)
		}
		if len(items) == 0 || int64(page.Offset()+len(items)) >= total {
			break
		}
		page.Page++
	}

	return append(messages, llm.Message{Role: llm.RoleUser, Content: req.Message}), nil
}

// callOptions layers per-request values over the configured model defaults.
func (s *Service) callOptions(model string, maxTokens *int, temperature *float64) []llm.Option {
	var opts []llm.Option
	if model != "" {
		opts = append(opts, llm.WithModel(model))
	}
	if maxTokens == nil {
		maxTokens = s.config.Models.DefaultMaxTokens
	}
	if maxTokens != nil {
		opts = append(opts, llm.WithMaxTokens(*maxTokens))
	}
	if temperature == nil {
		temperature = s.config.Models.DefaultTemperature
	}
	if temperature != nil {
		opts = append(opts, llm.WithTemperature(*temperature))
	}
	return opts
}

// call runs one generation with retry and logs its outcome.
func (s *Service) call(ctx context.Context, name string, provider llm.Provider, messages []llm.Message, stream bool, opts []llm.Option) (*llm.Response, error) {
	requestID := "gen_" + uuid.New().String()[:8]
	info := provider.Describe()
	log := s.logger.With(
		zap.String("request_id", requestID),
		zap.String("provider", name),
		zap.String("provider_type", info.Provider),
		zap.Bool("stream", stream),
	)
	log.Debug("generation started", zap.Int("messages", len(messages)))
	start := time.Now()

	attempt := 0
	op := func() (*llm.Response, error) {
		attempt++
		var (
			resp *llm.Response
			err  error
		)
		if stream {
			resp, err = s.collectStream(ctx, provider, messages, opts)
		} else {
			resp, err = provider.Send(ctx, messages, opts...)
		}
		if err != nil && !llm.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}

	var (
		resp *llm.Response
		err  error
	)
	if maxRetries := s.config.Models.MaxRetries; s.config.Models.RetryOnFailure && maxRetries > 0 {
		resp, err = backoff.Retry(ctx, op,
			backoff.WithBackOff(s.newBackOff()),
			backoff.WithMaxTries(uint(maxRetries)+1),
			backoff.WithNotify(func(err error, next time.Duration) {
				log.Warn("generation failed, retrying", zap.Error(err), zap.Duration("backoff", next))
			}),
		)
	} else {
		resp, err = op()
	}

	latency := time.Since(start)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		log.Error("generation failed", zap.Error(err), zap.Int("attempts", attempt), zap.Duration("latency", latency))
		return nil, err
	}

	log.Info("generation finished",
		zap.String("model", resp.Model),
		zap.Int("attempts", attempt),
		zap.Duration("latency", latency),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
	)
	return resp, nil
}

// collectStream drains a provider stream into a Response, estimating tokens
// with the provider's counter.
func (s *Service) collectStream(ctx context.Context, provider llm.Provider, messages []llm.Message, opts []llm.Option) (*llm.Response, error) {
	content, err := llm.Collect(provider.Stream(ctx, messages, opts...))
	if err != nil {
		return nil, err
	}

	resolved := llm.CallOptions{Model: provider.Describe().Name}
	for _, opt := range opts {
		opt(&resolved)
	}

	input := 0
	for _, m := range messages {
		input += provider.CountTokens(m.Content)
	}
	return &llm.Response{
		Content:      content,
		Model:        resolved.Model,
		InputTokens:  input,
		OutputTokens: provider.CountTokens(content),
	}, nil
}
