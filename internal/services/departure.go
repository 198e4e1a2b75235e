package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sharyinets/gatekeeper/internal/api"
)

// DeparturePhrase is the message a member sends when leaving for a while.
const DeparturePhrase = "я уехал"

// IsDeparture reports whether text announces departure.
func IsDeparture(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), DeparturePhrase)
}

// DepartureService temporarily mutes departing members.
type DepartureService struct {
	api  api.Client
	mute time.Duration
	now  func() time.Time
}

// NewDeparture creates a departure service muting for d.
func NewDeparture(client api.Client, d time.Duration) *DepartureService {
	return &DepartureService{api: client, mute: d, now: time.Now}
}

// Mute forbids userID from sending messages in chatID and returns when the
// restriction ends.
func (s *DepartureService) Mute(ctx context.Context, chatID, userID int64) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	until := s.now().Add(s.mute)
	_, err := s.api.Request(tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		UntilDate:        until.Unix(),
		Permissions:      &tgbotapi.ChatPermissions{CanSendMessages: false},
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("restrict member: %w", err)
	}
	return until, nil
}
