package store

import (
	"context"
	"fmt"
	"strings"
)

// Chat roles persisted in the chats table.
const (
	RoleInviting = "INVITING_CHAT"
	RoleInvited  = "INVITED_CHAT"
)

// SaveChat binds a role to a chat, replacing any previous binding.
func (s *Store) SaveChat(ctx context.Context, role string, chatID int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return fmt.Errorf("save chat: role is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (chat_type, chat_id) VALUES (?, ?)
		ON CONFLICT(chat_type) DO UPDATE SET chat_id = excluded.chat_id
	`, role, chatID)
	if err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	return nil
}

// LoadChats returns the persisted role to chat mapping.
func (s *Store) LoadChats(ctx context.Context) (map[string]int64, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var rows []struct {
		Role   string `db:"chat_type"`
		ChatID int64  `db:"chat_id"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT chat_type, chat_id FROM chats`); err != nil {
		return nil, fmt.Errorf("load chats: %w", err)
	}
	chats := make(map[string]int64, len(rows))
	for _, r := range rows {
		chats[r.Role] = r.ChatID
	}
	return chats, nil
}
