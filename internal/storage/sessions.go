package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/luff543/EventChatBotBackend/internal/model"
)

type sessionRow struct {
	ID           int64  `db:"id"`
	SessionID    string `db:"session_id"`
	IPAddress    string `db:"ip_address"`
	MessageCount int    `db:"message_count"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func (r sessionRow) toModel() model.Session {
	return model.Session{
		ID:           r.ID,
		SessionID:    r.SessionID,
		IPAddress:    r.IPAddress,
		MessageCount: r.MessageCount,
		CreatedAt:    parseTime(r.CreatedAt),
		UpdatedAt:    parseTime(r.UpdatedAt),
	}
}

// CreateSession inserts a new session for the given client address.
func (s *Store) CreateSession(ctx context.Context, sessionID, ip string) (model.Session, error) {
	now := nowUTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, ip_address, message_count, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)`,
		sessionID, ip, now, now,
	)
	if err != nil {
		return model.Session{}, fmt.Errorf("creating session: %w", err)
	}
	return s.GetSession(ctx, sessionID)
}

// GetSession returns the session with the given identifier.
func (s *Store) GetSession(ctx context.Context, sessionID string) (model.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, session_id, ip_address, message_count, created_at, updated_at
		FROM sessions WHERE session_id = ?`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	return row.toModel(), nil
}

// LatestActiveSession returns the most recent session for a client address
// that has not yet reached the message limit.
func (s *Store) LatestActiveSession(ctx context.Context, ip string, messageLimit int) (model.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, session_id, ip_address, message_count, created_at, updated_at
		FROM sessions
		WHERE ip_address = ? AND message_count < ?
		ORDER BY updated_at DESC LIMIT 1`, ip, messageLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	return row.toModel(), nil
}

// CountSessionsBefore counts sessions for a client address created strictly
// before the given session, used to derive the visit count.
func (s *Store) CountSessionsBefore(ctx context.Context, ip, sessionID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM sessions
		WHERE ip_address = ?
		  AND created_at < (SELECT created_at FROM sessions WHERE session_id = ?)`,
		ip, sessionID)
	return count, err
}

// SessionIDsForIP returns every session identifier recorded for a client
// address, oldest first.
func (s *Store) SessionIDsForIP(ctx context.Context, ip string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT session_id FROM sessions WHERE ip_address = ? ORDER BY created_at ASC`, ip)
	return ids, err
}

// IncrementMessageCount bumps the session message counter and refreshes
// updated_at.
func (s *Store) IncrementMessageCount(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET message_count = message_count + 1, updated_at = ?
		WHERE session_id = ?`, nowUTC(), sessionID)
	return err
}

type messageRow struct {
	ID        string `db:"id"`
	SessionID string `db:"session_id"`
	Role      string `db:"role"`
	Content   string `db:"content"`
	CreatedAt string `db:"created_at"`
}

// AddMessage appends a conversation turn to the session transcript.
func (s *Store) AddMessage(ctx context.Context, msg model.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, nowUTC(),
	)
	if err != nil {
		return fmt.Errorf("adding message: %w", err)
	}
	return nil
}

// GetMessages returns the session transcript in arrival order, capped at
// limit when limit > 0.
func (s *Store) GetMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	query := `
		SELECT id, session_id, role, content, created_at
		FROM messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	messages := make([]model.Message, len(rows))
	for i, r := range rows {
		messages[i] = model.Message{
			ID:        r.ID,
			SessionID: r.SessionID,
			Role:      model.Role(r.Role),
			Content:   r.Content,
			CreatedAt: parseTime(r.CreatedAt),
		}
	}
	return messages, nil
}
