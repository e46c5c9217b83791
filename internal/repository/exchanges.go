package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xiaot623/clouseau/internal/domain"
)

const exchangeColumns = `id, conversation_id, user_message, assistant_message, model, input_tokens, output_tokens, created_at`

func scanExchange(row scanner) (*domain.Exchange, error) {
	var ex domain.Exchange
	var model sql.NullString
	var inputTokens, outputTokens sql.NullInt64
	if err := row.Scan(
		&ex.ID, &ex.ConversationID, &ex.UserMessage, &ex.AssistantMessage,
		&model, &inputTokens, &outputTokens, &ex.CreatedAt,
	); err != nil {
		return nil, err
	}
	ex.Model = stringPtr(model)
	ex.InputTokens = intPtr(inputTokens)
	ex.OutputTokens = intPtr(outputTokens)
	return &ex, nil
}

// CreateExchange inserts an exchange. Exchanges are immutable once written.
func (s *SQLiteStore) CreateExchange(ctx context.Context, in domain.ExchangeCreate) (*domain.Exchange, error) {
	ex := &domain.Exchange{
		ConversationID:   in.ConversationID,
		UserMessage:      in.UserMessage,
		AssistantMessage: in.AssistantMessage,
		Model:            cloneString(in.Model),
		InputTokens:      cloneInt(in.InputTokens),
		OutputTokens:     cloneInt(in.OutputTokens),
		CreatedAt:        s.now(),
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO exchanges (conversation_id, user_message, assistant_message, model, input_tokens, output_tokens, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, ex.ConversationID, ex.UserMessage, ex.AssistantMessage,
			nullString(ex.Model), nullInt(ex.InputTokens), nullInt(ex.OutputTokens), ex.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create exchange: %w", err)
		}
		ex.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// GetExchange retrieves an exchange by ID.
func (s *SQLiteStore) GetExchange(ctx context.Context, id int64) (*domain.Exchange, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+exchangeColumns+` FROM exchanges WHERE id = ?`, id)
	ex, err := scanExchange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}
	return ex, nil
}

// ListExchangesByConversation returns a page of a conversation's exchanges
// in chronological order.
func (s *SQLiteStore) ListExchangesByConversation(ctx context.Context, conversationID int64, page domain.PageRequest) ([]domain.Exchange, int64, error) {
	var exchanges []domain.Exchange
	var total int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM exchanges WHERE conversation_id = ?`, conversationID,
		).Scan(&total); err != nil {
			return fmt.Errorf("failed to count exchanges: %w", err)
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT `+exchangeColumns+` FROM exchanges
			WHERE conversation_id = ?
			ORDER BY created_at ASC, id ASC
			LIMIT ? OFFSET ?
		`, conversationID, page.PageSize, page.Offset())
		if err != nil {
			return fmt.Errorf("failed to list exchanges: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			ex, err := scanExchange(rows)
			if err != nil {
				return fmt.Errorf("failed to scan exchange: %w", err)
			}
			exchanges = append(exchanges, *ex)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return exchanges, total, nil
}

// DeleteExchange removes a single exchange.
func (s *SQLiteStore) DeleteExchange(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM exchanges WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete exchange: %w", err)
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
