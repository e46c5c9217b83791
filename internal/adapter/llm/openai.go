package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const openaiDefaultContext = 128000

var openaiContextSizes = map[string]int{
	"gpt-4o":        128000,
	"gpt-4o-mini":   128000,
	"gpt-4-turbo":   128000,
	"gpt-4":         8192,
	"gpt-3.5-turbo": 16385,
}

// OpenAIProvider calls an OpenAI-compatible chat completions API through an
// eino chat model.
type OpenAIProvider struct {
	cfg  ProviderConfig
	chat model.BaseChatModel
}

// NewOpenAIProvider creates an OpenAI provider. Without an API key the
// provider is returned unconfigured and Validate reports false.
func NewOpenAIProvider(ctx context.Context, cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return &OpenAIProvider{cfg: cfg}, nil
	}

	modelCfg := &openai.ChatModelConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.Endpoint,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
	}
	if cfg.Temperature != nil {
		t := float32(*cfg.Temperature)
		modelCfg.Temperature = &t
	}

	chat, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai chat model: %w", err)
	}
	return &OpenAIProvider{cfg: cfg, chat: chat}, nil
}

// newOpenAIProviderWithModel wires an existing chat model.
func newOpenAIProviderWithModel(cfg ProviderConfig, chat model.BaseChatModel) *OpenAIProvider {
	return &OpenAIProvider{cfg: cfg, chat: chat}
}

// Send calls Generate on the chat model.
func (p *OpenAIProvider) Send(ctx context.Context, messages []Message, opts ...Option) (*Response, error) {
	if !p.Validate() {
		return nil, fmt.Errorf("%s: %w", TypeOpenAI, ErrNotConfigured)
	}
	call := p.cfg.callOptions(opts)

	ctx, cancel := p.cfg.withTimeout(ctx)
	defer cancel()

	input := toSchemaMessages(messages)
	msg, err := p.chat.Generate(ctx, input, modelOptions(call)...)
	if err != nil {
		return nil, p.wrapError(ctx, err)
	}

	resp := &Response{Content: msg.Content, Model: call.Model}
	if meta := msg.ResponseMeta; meta != nil {
		resp.StopReason = meta.FinishReason
		if meta.Usage != nil {
			resp.InputTokens = meta.Usage.PromptTokens
			resp.OutputTokens = meta.Usage.CompletionTokens
		}
	}
	if resp.InputTokens == 0 && resp.OutputTokens == 0 {
		for _, m := range input {
			resp.InputTokens += p.CountTokens(m.Content)
		}
		resp.OutputTokens = p.CountTokens(resp.Content)
	}
	return resp, nil
}

// Stream reads the chat model stream and yields content chunks.
func (p *OpenAIProvider) Stream(ctx context.Context, messages []Message, opts ...Option) iter.Seq2[string, error] {
	if !p.Validate() {
		return failedStream(fmt.Errorf("%s: %w", TypeOpenAI, ErrNotConfigured))
	}
	call := p.cfg.callOptions(opts)

	return singleUse(func(yield func(string, error) bool) {
		ctx, cancel := p.cfg.withTimeout(ctx)
		defer cancel()

		reader, err := p.chat.Stream(ctx, toSchemaMessages(messages), modelOptions(call)...)
		if err != nil {
			yield("", p.wrapError(ctx, err))
			return
		}
		defer reader.Close()

		for {
			chunk, err := reader.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", p.wrapError(ctx, err))
				return
			}
			if chunk == nil || chunk.Content == "" {
				continue
			}
			if !yield(chunk.Content, nil) {
				return
			}
		}
	})
}

// CountTokens estimates tokens with the character heuristic.
func (p *OpenAIProvider) CountTokens(text string) int {
	return EstimateTokens(text)
}

// Describe reports the configured model.
func (p *OpenAIProvider) Describe() ModelInfo {
	size, ok := openaiContextSizes[p.cfg.Model]
	if !ok {
		size = openaiDefaultContext
	}
	return ModelInfo{
		Name:                    p.cfg.Model,
		Provider:                TypeOpenAI,
		MaxContextTokens:        size,
		SupportsStreaming:       true,
		SupportsVision:          true,
		SupportsFunctionCalling: true,
	}
}

// Validate requires an API key and a chat model.
func (p *OpenAIProvider) Validate() bool {
	return p.cfg.APIKey != "" && p.chat != nil
}

func (p *OpenAIProvider) wrapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return transportError(TypeOpenAI, err)
}

// toSchemaMessages keeps the first system message at the front and drops
// any later ones.
func toSchemaMessages(messages []Message) []*schema.Message {
	system, turns := splitSystem(messages)
	out := make([]*schema.Message, 0, len(turns)+1)
	if system != "" {
		out = append(out, schema.SystemMessage(system))
	}
	for _, m := range turns {
		switch m.Role {
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

func modelOptions(call CallOptions) []model.Option {
	var opts []model.Option
	if call.Model != "" {
		opts = append(opts, model.WithModel(call.Model))
	}
	if call.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*call.MaxTokens))
	}
	if call.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*call.Temperature)))
	}
	return opts
}
