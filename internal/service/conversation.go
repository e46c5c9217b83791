package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/clouseau/internal/domain"
)

// CreateConversation creates a conversation under an existing session.
//
// The session lookup and the insert are separate steps; a session deleted in
// between makes the insert fail on the foreign key instead.
func (s *Service) CreateConversation(ctx context.Context, in domain.ConversationCreate) (*domain.Conversation, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	sess, err := s.store.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, &domain.NotFoundError{Entity: domain.EntitySession, ID: in.SessionID, Parent: true}
	}
	conv, err := s.store.CreateConversation(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation returns a conversation or a NotFoundError.
func (s *Service) GetConversation(ctx context.Context, id int64) (*domain.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, &domain.NotFoundError{Entity: domain.EntityConversation, ID: id}
	}
	return conv, nil
}

// ListConversationsBySession returns a page of a session's conversations.
// It does not check that the session exists.
func (s *Service) ListConversationsBySession(ctx context.Context, sessionID int64, page domain.PageRequest) (*domain.Page[domain.Conversation], error) {
	if err := checkPage(page, domain.MaxPageSize); err != nil {
		return nil, err
	}
	items, total, err := s.store.ListConversationsBySession(ctx, sessionID, page)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return domain.NewPage(items, total, page), nil
}

// UpdateConversation applies a merge patch to a conversation.
func (s *Service) UpdateConversation(ctx context.Context, id int64, in domain.ConversationUpdate) (*domain.Conversation, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	conv, err := s.store.UpdateConversation(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}
	if conv == nil {
		return nil, &domain.NotFoundError{Entity: domain.EntityConversation, ID: id}
	}
	return conv, nil
}

// DeleteConversation deletes a conversation and its exchanges.
func (s *Service) DeleteConversation(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if !deleted {
		return &domain.NotFoundError{Entity: domain.EntityConversation, ID: id}
	}
	return nil
}
