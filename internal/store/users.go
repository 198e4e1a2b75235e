package store

import (
	"context"
	"fmt"
	"time"
)

// User is a known member of a chat.
type User struct {
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
	FullName string `db:"full_name"`
	ChatID   int64  `db:"chat_id"`
	JoinedAt int64  `db:"joined_at"`
}

// AddUser records chat membership. Known members keep their join time but get
// their username and name refreshed.
func (s *Store) AddUser(ctx context.Context, u User) error {
	if err := s.ready(); err != nil {
		return err
	}
	if u.JoinedAt == 0 {
		u.JoinedAt = time.Now().Unix()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (user_id, username, full_name, chat_id, joined_at)
		VALUES (:user_id, :username, :full_name, :chat_id, :joined_at)
		ON CONFLICT(user_id, chat_id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name
	`, u)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

// RemoveUser forgets a member of a chat.
func (s *Store) RemoveUser(ctx context.Context, chatID, userID int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE chat_id = ? AND user_id = ?`, chatID, userID); err != nil {
		return fmt.Errorf("remove user: %w", err)
	}
	return nil
}

// UsersInChat lists known members of a chat in join order.
func (s *Store) UsersInChat(ctx context.Context, chatID int64) ([]User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var users []User
	err := s.db.SelectContext(ctx, &users, `
		SELECT user_id, username, full_name, chat_id, joined_at
		FROM users
		WHERE chat_id = ?
		ORDER BY joined_at, id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("users in chat: %w", err)
	}
	return users, nil
}

// CleanupInactiveUsers removes members of chats that no longer have a role.
func (s *Store) CleanupInactiveUsers(ctx context.Context) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE chat_id NOT IN (SELECT chat_id FROM chats)`)
	if err != nil {
		return 0, fmt.Errorf("cleanup users: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
