package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xiaot623/clouseau/internal/domain"
)

const conversationColumns = `id, session_id, title, created_at, updated_at`

func scanConversation(row scanner) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := row.Scan(&conv.ID, &conv.SessionID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, err
	}
	return &conv, nil
}

func getConversation(ctx context.Context, q queryer, id int64) (*domain.Conversation, error) {
	row := q.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// CreateConversation inserts a conversation. The owning session must exist;
// the foreign key rejects the insert otherwise.
func (s *SQLiteStore) CreateConversation(ctx context.Context, in domain.ConversationCreate) (*domain.Conversation, error) {
	now := s.now()
	conv := &domain.Conversation{
		SessionID: in.SessionID,
		Title:     in.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (session_id, title, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, conv.SessionID, conv.Title, now, now)
		if err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		conv.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (*domain.Conversation, error) {
	return getConversation(ctx, s.db, id)
}

// ListConversationsBySession returns a page of a session's conversations,
// most recently updated first.
func (s *SQLiteStore) ListConversationsBySession(ctx context.Context, sessionID int64, page domain.PageRequest) ([]domain.Conversation, int64, error) {
	var convs []domain.Conversation
	var total int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM conversations WHERE session_id = ?`, sessionID,
		).Scan(&total); err != nil {
			return fmt.Errorf("failed to count conversations: %w", err)
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT `+conversationColumns+` FROM conversations
			WHERE session_id = ?
			ORDER BY updated_at DESC, id DESC
			LIMIT ? OFFSET ?
		`, sessionID, page.PageSize, page.Offset())
		if err != nil {
			return fmt.Errorf("failed to list conversations: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			conv, err := scanConversation(rows)
			if err != nil {
				return fmt.Errorf("failed to scan conversation: %w", err)
			}
			convs = append(convs, *conv)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

// UpdateConversation applies a merge patch to the title.
func (s *SQLiteStore) UpdateConversation(ctx context.Context, id int64, in domain.ConversationUpdate) (*domain.Conversation, error) {
	var updated *domain.Conversation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		conv, err := getConversation(ctx, tx, id)
		if err != nil || conv == nil {
			return err
		}
		if !in.Title.Set || in.Title.Value == nil {
			updated = conv
			return nil
		}
		conv.Title = *in.Title.Value
		conv.UpdatedAt = s.now()

		if _, err := tx.ExecContext(ctx,
			`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
			conv.Title, conv.UpdatedAt, id,
		); err != nil {
			return fmt.Errorf("failed to update conversation: %w", err)
		}
		updated = conv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteConversation removes a conversation and its exchanges.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM exchanges WHERE conversation_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete conversation exchanges: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}
