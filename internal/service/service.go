// Package service is the single read/write entry point over the record store
// and the LLM providers.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/xiaot623/clouseau/internal/adapter/llm"
	"github.com/xiaot623/clouseau/internal/config"
	"github.com/xiaot623/clouseau/internal/domain"
	"github.com/xiaot623/clouseau/internal/repository"
)

// Service validates requests and coordinates the store with the providers.
type Service struct {
	store      repository.Store
	providers  *llm.Registry
	config     *config.Config
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// Option configures a Service.
type Option func(*Service)

// WithBackOff replaces the retry schedule used for provider calls.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *Service) {
		s.newBackOff = newBackOff
	}
}

// New creates a service. A nil logger or config falls back to a no-op logger
// and zero configuration.
func New(store repository.Store, providers *llm.Registry, cfg *config.Config, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	s := &Service{
		store:     store,
		providers: providers,
		config:    cfg,
		logger:    logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// checkPage rejects page numbers below 1, sizes outside 1..maxSize and pages
// whose offset would overflow.
func checkPage(page domain.PageRequest, maxSize int) error {
	if page.Page < 1 {
		return &domain.ValidationError{Field: "page", Message: "must be greater than or equal to 1"}
	}
	if page.PageSize < 1 || page.PageSize > maxSize {
		return &domain.ValidationError{Field: "page_size", Message: fmt.Sprintf("must be between 1 and %d", maxSize)}
	}
	if page.Page > domain.MaxPage(page.PageSize) {
		return &domain.ValidationError{Field: "page", Message: fmt.Sprintf("must be less than or equal to %d", domain.MaxPage(page.PageSize))}
	}
	return nil
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
