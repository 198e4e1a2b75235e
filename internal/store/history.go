package store

import (
	"context"
	"fmt"
	"time"
)

// Message is a stored chat message.
type Message struct {
	UserID int64  `db:"user_id"`
	ChatID int64  `db:"chat_id"`
	Text   string `db:"message_text"`
	SentAt int64  `db:"sent_at"`
}

// AddMessage stores a message and trims the table to the newest messages.
func (s *Store) AddMessage(ctx context.Context, m Message) error {
	if err := s.ready(); err != nil {
		return err
	}
	if m.SentAt == 0 {
		m.SentAt = time.Now().Unix()
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO messages (user_id, chat_id, message_text, sent_at)
		VALUES (:user_id, :chat_id, :message_text, :sent_at)
	`, m); err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM messages
		WHERE id NOT IN (
			SELECT id FROM messages
			ORDER BY sent_at DESC, id DESC
			LIMIT ?
		)
	`, s.messageLimit); err != nil {
		return fmt.Errorf("trim messages: %w", err)
	}
	return tx.Commit()
}

// RecentMessages returns up to limit newest messages, newest first.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var msgs []Message
	err := s.db.SelectContext(ctx, &msgs, `
		SELECT user_id, chat_id, message_text, sent_at
		FROM messages
		ORDER BY sent_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return msgs, nil
}

// LogActivity records an accepted request and keeps only the user's newest
// activity rows.
func (s *Store) LogActivity(ctx context.Context, userID int64, at time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `INSERT INTO user_activity (user_id, request_time) VALUES (?, ?)`, userID, at.UnixMilli()); err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM user_activity
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM user_activity
			WHERE user_id = ?
			ORDER BY request_time DESC, id DESC
			LIMIT ?
		)
	`, userID, userID, s.activityLimit); err != nil {
		return fmt.Errorf("trim activity: %w", err)
	}
	return tx.Commit()
}

// RecentActivity returns the user's stored request times, newest first.
func (s *Store) RecentActivity(ctx context.Context, userID int64) ([]time.Time, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var millis []int64
	err := s.db.SelectContext(ctx, &millis, `
		SELECT request_time FROM user_activity
		WHERE user_id = ?
		ORDER BY request_time DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	out := make([]time.Time, 0, len(millis))
	for _, ms := range millis {
		out = append(out, time.UnixMilli(ms).UTC())
	}
	return out, nil
}
