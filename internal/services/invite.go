package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sharyinets/gatekeeper/internal/api"
	"sharyinets/gatekeeper/internal/chats"
)

var (
	ErrNotConfigured = errors.New("chats are not configured")
	ErrBotNotAdmin   = errors.New("bot is not an administrator")
	ErrNotMember     = errors.New("user is not a member")
)

// InviteService issues invite links to members of the inviting chat.
type InviteService struct {
	api   api.Client
	chats *chats.Registry
	botID int64
}

// NewInvites creates an invite service for the bot with botID.
func NewInvites(client api.Client, reg *chats.Registry, botID int64) *InviteService {
	return &InviteService{api: client, chats: reg, botID: botID}
}

// Issue returns an invite link to the invited chat for userID.
func (s *InviteService) Issue(ctx context.Context, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.chats.Configured() {
		return "", ErrNotConfigured
	}
	inviting, invited := s.chats.Inviting(), s.chats.Invited()

	bot, err := s.api.GetChatMember(api.ChatMemberConfig(invited, s.botID))
	if err != nil {
		return "", fmt.Errorf("check bot rights: %w", err)
	}
	if !isAdmin(bot) {
		return "", ErrBotNotAdmin
	}

	member, err := s.api.GetChatMember(api.ChatMemberConfig(inviting, userID))
	if err != nil {
		if isUnknownMember(err) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("check membership: %w", err)
	}
	if !isMember(member) {
		return "", ErrNotMember
	}

	link, err := s.api.GetInviteLink(tgbotapi.ChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: invited},
	})
	if err != nil {
		return "", fmt.Errorf("export invite link: %w", err)
	}
	return link, nil
}

func isAdmin(m tgbotapi.ChatMember) bool {
	return m.Status == "administrator" || m.Status == "creator"
}

func isMember(m tgbotapi.ChatMember) bool {
	switch m.Status {
	case "member", "administrator", "creator":
		return true
	case "restricted":
		return m.IsMember
	}
	return false
}

// isUnknownMember reports whether err is the API's answer for a user that
// never joined the chat.
func isUnknownMember(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 400 {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "user not found") || strings.Contains(msg, "participant_id_invalid")
}
