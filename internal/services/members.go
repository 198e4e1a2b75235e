package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sharyinets/gatekeeper/internal/api"
	"sharyinets/gatekeeper/internal/store"
)

// MessageLimit is Telegram's maximum message length.
const MessageLimit = 4096

// MemberStore persists chat membership.
type MemberStore interface {
	AddUser(ctx context.Context, u store.User) error
	RemoveUser(ctx context.Context, chatID, userID int64) error
	UsersInChat(ctx context.Context, chatID int64) ([]store.User, error)
}

// MemberService tracks who is in which chat.
type MemberService struct {
	api   api.Client
	store MemberStore
}

// NewMembers creates a member service.
func NewMembers(client api.Client, st MemberStore) *MemberService {
	return &MemberService{api: client, store: st}
}

// Remember stores u as a member of chatID. Bots are ignored.
func (s *MemberService) Remember(ctx context.Context, chatID int64, u *tgbotapi.User) error {
	if u == nil || u.IsBot {
		return nil
	}
	return s.store.AddUser(ctx, store.User{
		UserID:   u.ID,
		Username: u.UserName,
		FullName: api.FullName(u),
		ChatID:   chatID,
		JoinedAt: time.Now().Unix(),
	})
}

// Forget removes userID from chatID.
func (s *MemberService) Forget(ctx context.Context, chatID, userID int64) error {
	return s.store.RemoveUser(ctx, chatID, userID)
}

// SyncAdministrators stores the chat's administrators. The Bot API does not
// list ordinary members; those are learned from their messages and joins.
func (s *MemberService) SyncAdministrators(ctx context.Context, chatID int64) (int, error) {
	admins, err := s.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return 0, fmt.Errorf("get administrators of %d: %w", chatID, err)
	}
	added := 0
	for _, m := range admins {
		if m.User == nil || m.User.IsBot || m.Status == "kicked" || m.Status == "left" {
			continue
		}
		if err := s.Remember(ctx, chatID, m.User); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Mentions returns an HTML mention for every known member of chatID.
func (s *MemberService) Mentions(ctx context.Context, chatID int64) ([]string, error) {
	users, err := s.store.UsersInChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, Mention(u))
	}
	return out, nil
}

// Mention renders @username, or a user link labelled with the full name.
func Mention(u store.User) string {
	if u.Username != "" {
		return "@" + html.EscapeString(u.Username)
	}
	name := strings.TrimSpace(u.FullName)
	if name == "" {
		name = "участник"
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.UserID, html.EscapeString(name))
}

// Announcement formats "<mentions>, <text>" as HTML messages no longer than limit.
// Mentions are never split; text joins the last chunk when it fits.
func Announcement(mentions []string, text string, limit int) []string {
	tail := html.EscapeString(strings.TrimSpace(text))
	if len(mentions) == 0 {
		return []string{tail}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	for _, m := range mentions {
		n := utf8.RuneCountInString(m)
		if curLen > 0 && curLen+1+n > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(m)
		curLen += n
	}

	if tail == "" {
		return append(chunks, cur.String())
	}
	if curLen+2+utf8.RuneCountInString(tail) <= limit {
		return append(chunks, cur.String()+", "+tail)
	}
	return append(chunks, cur.String(), tail)
}
