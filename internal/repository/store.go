// Package repository defines the record store and its SQLite implementation.
package repository

import (
	"context"

	"github.com/xiaot623/clouseau/internal/domain"
)

// Store persists sessions, conversations and exchanges.
//
// Get and Update return nil, nil when the record does not exist; Delete
// reports false. Not found is an expected outcome, never an error here.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, in domain.SessionCreate) (*domain.Session, error)
	GetSession(ctx context.Context, id int64) (*domain.Session, error)
	ListSessions(ctx context.Context, page domain.PageRequest) ([]domain.Session, int64, error)
	UpdateSession(ctx context.Context, id int64, in domain.SessionUpdate) (*domain.Session, error)
	DeleteSession(ctx context.Context, id int64) (bool, error)

	// Conversation operations
	CreateConversation(ctx context.Context, in domain.ConversationCreate) (*domain.Conversation, error)
	GetConversation(ctx context.Context, id int64) (*domain.Conversation, error)
	ListConversationsBySession(ctx context.Context, sessionID int64, page domain.PageRequest) ([]domain.Conversation, int64, error)
	UpdateConversation(ctx context.Context, id int64, in domain.ConversationUpdate) (*domain.Conversation, error)
	DeleteConversation(ctx context.Context, id int64) (bool, error)

	// Exchange operations
	CreateExchange(ctx context.Context, in domain.ExchangeCreate) (*domain.Exchange, error)
	GetExchange(ctx context.Context, id int64) (*domain.Exchange, error)
	ListExchangesByConversation(ctx context.Context, conversationID int64, page domain.PageRequest) ([]domain.Exchange, int64, error)
	DeleteExchange(ctx context.Context, id int64) (bool, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
