package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/clouseau/internal/domain"
)

// CreateSession creates a session.
func (s *Service) CreateSession(ctx context.Context, in domain.SessionCreate) (*domain.Session, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	sess, err := s.store.CreateSession(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// GetSession returns a session or a NotFoundError.
func (s *Service) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, &domain.NotFoundError{Entity: domain.EntitySession, ID: id}
	}
	return sess, nil
}

// ListSessions returns a page of sessions, most recently updated first.
func (s *Service) ListSessions(ctx context.Context, page domain.PageRequest) (*domain.Page[domain.Session], error) {
	if err := checkPage(page, domain.MaxPageSize); err != nil {
		return nil, err
	}
	items, total, err := s.store.ListSessions(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return domain.NewPage(items, total, page), nil
}

// UpdateSession applies a merge patch to a session.
func (s *Service) UpdateSession(ctx context.Context, id int64, in domain.SessionUpdate) (*domain.Session, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	sess, err := s.store.UpdateSession(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if sess == nil {
		return nil, &domain.NotFoundError{Entity: domain.EntitySession, ID: id}
	}
	return sess, nil
}

// DeleteSession deletes a session and everything under it.
func (s *Service) DeleteSession(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteSession(ctx, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !deleted {
		return &domain.NotFoundError{Entity: domain.EntitySession, ID: id}
	}
	return nil
}
