package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client is the subset of the Telegram Bot API used by the bot.
// *tgbotapi.BotAPI satisfies it.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
	GetInviteLink(config tgbotapi.ChatInviteLinkConfig) (string, error)
}

// NewBot connects to Telegram, optionally through an HTTP proxy.
// pollTimeout is the long-poll wait in seconds; the HTTP timeout is set above it.
func NewBot(token, proxyURL string, pollTimeout int) (*tgbotapi.BotAPI, error) {
	httpClient, err := newHTTPClient(proxyURL, time.Duration(pollTimeout+10)*time.Second)
	if err != nil {
		return nil, err
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	bot.Debug = false
	return bot, nil
}

func newHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if p := strings.TrimSpace(proxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", proxyURL)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// ChatMemberConfig builds a GetChatMemberConfig for userID in chatID.
func ChatMemberConfig(chatID, userID int64) tgbotapi.GetChatMemberConfig {
	return tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	}
}

// FullName joins first and last name.
func FullName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
