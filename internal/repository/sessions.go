package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xiaot623/clouseau/internal/domain"
)

const sessionColumns = `id, name, description, created_at, updated_at`

func scanSession(row scanner) (*domain.Session, error) {
	var sess domain.Session
	var description sql.NullString
	if err := row.Scan(&sess.ID, &sess.Name, &description, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return nil, err
	}
	sess.Description = stringPtr(description)
	return &sess, nil
}

func getSession(ctx context.Context, q queryer, id int64) (*domain.Session, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// CreateSession inserts a session.
func (s *SQLiteStore) CreateSession(ctx context.Context, in domain.SessionCreate) (*domain.Session, error) {
	now := s.now()
	sess := &domain.Session{
		Name:        in.Name,
		Description: cloneString(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (name, description, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, sess.Name, nullString(sess.Description), now, now)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		sess.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	return getSession(ctx, s.db, id)
}

// ListSessions returns a page of sessions, most recently updated first, and
// the total number of sessions.
func (s *SQLiteStore) ListSessions(ctx context.Context, page domain.PageRequest) ([]domain.Session, int64, error) {
	var sessions []domain.Session
	var total int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
			return fmt.Errorf("failed to count sessions: %w", err)
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT `+sessionColumns+` FROM sessions
			ORDER BY updated_at DESC, id DESC
			LIMIT ? OFFSET ?
		`, page.PageSize, page.Offset())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			sess, err := scanSession(rows)
			if err != nil {
				return fmt.Errorf("failed to scan session: %w", err)
			}
			sessions = append(sessions, *sess)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// UpdateSession applies a merge patch. Fields absent from the patch keep
// their stored value; updated_at is refreshed when any field is present.
func (s *SQLiteStore) UpdateSession(ctx context.Context, id int64, in domain.SessionUpdate) (*domain.Session, error) {
	var updated *domain.Session
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sess, err := getSession(ctx, tx, id)
		if err != nil || sess == nil {
			return err
		}
		if !in.Name.Set && !in.Description.Set {
			updated = sess
			return nil
		}
		if in.Name.Set && in.Name.Value != nil {
			sess.Name = *in.Name.Value
		}
		if in.Description.Set {
			sess.Description = cloneString(in.Description.Value)
		}
		sess.UpdatedAt = s.now()

		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET name = ?, description = ?, updated_at = ?
			WHERE id = ?
		`, sess.Name, nullString(sess.Description), sess.UpdatedAt, id); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		updated = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSession removes a session together with its conversations and
// their exchanges. It reports whether the session existed.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM exchanges WHERE conversation_id IN (
				SELECT id FROM conversations WHERE session_id = ?
			)
		`, id); err != nil {
			return fmt.Errorf("failed to delete session exchanges: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete session conversations: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
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
