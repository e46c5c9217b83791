package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ModeMock is the configured mode that builds every provider as a mock.
const ModeMock = "MOCK"

// Provider types accepted in configuration.
const (
	TypeMock      = "mock"
	TypeAnthropic = "anthropic"
	TypeOpenAI    = "openai"
)

// RegistryConfig describes every provider the process should expose.
type RegistryConfig struct {
	Providers       []ProviderConfig
	DefaultProvider string
	Mock            bool
	CacheResponses  bool
	CacheTTL        time.Duration
	MaxCacheSize    int
}

// NewProvider builds one provider from its configuration.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(cfg.Type) {
	case TypeMock:
		return NewMockProvider(cfg), nil
	case TypeAnthropic:
		return NewAnthropicProvider(cfg), nil
	case TypeOpenAI:
		return NewOpenAIProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnknownProvider, cfg.Type)
	}
}

// NewRegistryFromConfig builds and registers every configured provider.
// In mock mode (cfg.Mock) each entry is built as a
// MockProvider. With no entries at all a single "mock" provider is registered.
func NewRegistryFromConfig(ctx context.Context, cfg RegistryConfig, logger *zap.Logger) (*Registry, error) {
	mock := cfg.Mock
	if mock {
		logger.Info("mock mode enabled, all providers use the mock backend")
	}

	registry := NewRegistry()
	for _, pc := range cfg.Providers {
		if pc.Name == "" {
			pc.Name = pc.Type
		}

		var (
			p   Provider
			err error
		)
		if mock {
			p = NewMockProvider(pc)
		} else {
			p, err = NewProvider(ctx, pc)
			if err != nil {
				return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
			}
			if cfg.CacheResponses && !strings.EqualFold(pc.Type, TypeMock) {
				p = NewCachedProvider(p, cfg.CacheTTL, cfg.MaxCacheSize)
			}
		}

		if !p.Validate() {
			logger.Warn("provider is not configured", zap.String("provider", pc.Name), zap.String("type", pc.Type))
		}
		registry.Register(pc.Name, p)
		logger.Info("registered provider",
			zap.String("provider", pc.Name),
			zap.String("type", p.Describe().Provider),
			zap.String("model", p.Describe().Name),
		)
	}

	if len(registry.Names()) == 0 {
		registry.Register(TypeMock, NewMockProvider(ProviderConfig{Name: TypeMock, Type: TypeMock}))
		logger.Info("no providers configured, registered the mock provider")
	}

	if cfg.DefaultProvider != "" {
		if err := registry.SetDefault(cfg.DefaultProvider); err != nil {
			return nil, fmt.Errorf("default provider: %w", err)
		}
	}
	return registry, nil
}
