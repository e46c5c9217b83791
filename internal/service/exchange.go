package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/clouseau/internal/domain"
)

// CreateExchange records an exchange under an existing conversation.
func (s *Service) CreateExchange(ctx context.Context, in domain.ExchangeCreate) (*domain.Exchange, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	conv, err := s.store.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, &domain.NotFoundError{Entity: domain.EntityConversation, ID: in.ConversationID, Parent: true}
	}
	ex, err := s.store.CreateExchange(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create exchange: %w", err)
	}
	return ex, nil
}

// GetExchange returns an exchange or a NotFoundError.
func (s *Service) GetExchange(ctx context.Context, id int64) (*domain.Exchange, error) {
	ex, err := s.store.GetExchange(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get exchange: %w", err)
	}
	if ex == nil {
		return nil, &domain.NotFoundError{Entity: domain.EntityExchange, ID: id}
	}
	return ex, nil
}

// ListExchangesByConversation returns a page of a conversation's exchanges,
// oldest first. It does not check that the conversation exists.
func (s *Service) ListExchangesByConversation(ctx context.Context, conversationID int64, page domain.PageRequest) (*domain.Page[domain.Exchange], error) {
	if err := checkPage(page, domain.MaxExchangePageSize); err != nil {
		return nil, err
	}
	items, total, err := s.store.ListExchangesByConversation(ctx, conversationID, page)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	return domain.NewPage(items, total, page), nil
}

// DeleteExchange deletes one exchange.
func (s *Service) DeleteExchange(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteExchange(ctx, id)
	if err != nil {
		return fmt.Errorf("delete exchange: %w", err)
	}
	if !deleted {
		return &domain.NotFoundError{Entity: domain.EntityExchange, ID: id}
	}
	return nil
}
