package llm

import "context"

// CallOptions are the per-call request parameters. Nil fields are omitted
// from the vendor request.
type CallOptions struct {
	Model       string
	MaxTokens   *int
	Temperature *float64
}

// Option overrides a request parameter for one call.
type Option func(*CallOptions)

// WithModel overrides the model.
func WithModel(model string) Option {
	return func(o *CallOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

// WithMaxTokens caps the number of output tokens.
func WithMaxTokens(n int) Option {
	return func(o *CallOptions) {
		o.MaxTokens = &n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *CallOptions) {
		o.Temperature = &t
	}
}

// callOptions resolves opts on top of the configured defaults.
func (c ProviderConfig) callOptions(opts []Option) CallOptions {
	call := CallOptions{
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
	for _, opt := range opts {
		opt(&call)
	}
	return call
}

// withTimeout bounds ctx by the configured per-call timeout.
func (c ProviderConfig) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return context.WithCancel(ctx)
}

// splitSystem returns the first system message and the remaining turns with
// every system message removed.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	var seen bool
	turns := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if !seen {
				system = m.Content
				seen = true
			}
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}
