// Package apitest provides an in-memory Telegram client for tests.
package apitest

import (
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrNoMember is the API error GetChatMember returns for unknown members.
var ErrNoMember = &tgbotapi.Error{Code: 400, Message: "Bad Request: user not found"}

// Fake records outgoing requests and answers member/invite lookups from maps.
type Fake struct {
	mu sync.Mutex

	Sent     []tgbotapi.Chattable
	Requests []tgbotapi.Chattable

	// Members maps chat -> user -> status.
	Members map[int64]map[int64]string
	// Admins maps chat -> administrators.
	Admins map[int64][]tgbotapi.ChatMember
	// Links maps chat -> invite link.
	Links map[int64]string
	// MemberErr maps chat -> error returned by GetChatMember.
	MemberErr map[int64]error

	SendErr    error
	RequestErr error
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		Members:   make(map[int64]map[int64]string),
		Admins:    make(map[int64][]tgbotapi.ChatMember),
		Links:     make(map[int64]string),
		MemberErr: make(map[int64]error),
	}
}

// SetMember sets userID's status in chatID.
func (f *Fake) SetMember(chatID, userID int64, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Members[chatID] == nil {
		f.Members[chatID] = make(map[int64]string)
	}
	f.Members[chatID][userID] = status
}

// Send implements api.Client.
func (f *Fake) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return tgbotapi.Message{}, f.SendErr
	}
	f.Sent = append(f.Sent, c)
	return tgbotapi.Message{MessageID: len(f.Sent)}, nil
}

// Request implements api.Client.
func (f *Fake) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, c)
	if f.RequestErr != nil {
		return nil, f.RequestErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// GetChatMember implements api.Client.
func (f *Fake) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.MemberErr[config.ChatID]; err != nil {
		return tgbotapi.ChatMember{}, err
	}
	status, ok := f.Members[config.ChatID][config.UserID]
	if !ok {
		return tgbotapi.ChatMember{}, ErrNoMember
	}
	return tgbotapi.ChatMember{User: &tgbotapi.User{ID: config.UserID}, Status: status}, nil
}

// GetChatAdministrators implements api.Client.
func (f *Fake) GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	admins, ok := f.Admins[config.ChatID]
	if !ok {
		return nil, errors.New("Bad Request: chat not found")
	}
	return admins, nil
}

// GetInviteLink implements api.Client.
func (f *Fake) GetInviteLink(config tgbotapi.ChatInviteLinkConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.Links[config.ChatID]
	if !ok {
		return "", errors.New("Bad Request: not enough rights to manage chat invite link")
	}
	return link, nil
}

// Texts returns the text of every sent message addressed to chatID.
func (f *Fake) Texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

// SentCount returns how many messages were sent.
func (f *Fake) SentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}

// RequestsOf returns recorded requests of type T.
func RequestsOf[T tgbotapi.Chattable](f *Fake) []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []T
	for _, c := range f.Requests {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
