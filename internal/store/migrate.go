package store

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_type TEXT NOT NULL UNIQUE,
		chat_id INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL DEFAULT '',
		chat_id INTEGER NOT NULL,
		joined_at INTEGER NOT NULL,
		UNIQUE(user_id, chat_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_chat ON users(chat_id);`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		chat_id INTEGER NOT NULL,
		message_text TEXT NOT NULL DEFAULT '',
		sent_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS user_activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		request_time INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_user_activity_user ON user_activity(user_id, request_time);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}
	return nil
}
