package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"sharyinets/gatekeeper/internal/api"
	"sharyinets/gatekeeper/internal/metrics"
)

// Notifier sends outgoing messages at a bounded rate. Failures are logged
// and counted, never returned to the caller's decision path.
type Notifier struct {
	api     api.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a notifier sending at most perSecond messages with the given burst.
func New(client api.Client, perSecond float64, burst int, m *metrics.Metrics, logger zerolog.Logger) *Notifier {
	return &Notifier{
		api:     client,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		metrics: m,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// Send posts plain text to a chat.
func (n *Notifier) Send(ctx context.Context, chatID int64, text string) *tgbotapi.Message {
	return n.deliver(ctx, tgbotapi.NewMessage(chatID, text))
}

// SendHTML posts HTML formatted text to a chat.
func (n *Notifier) SendHTML(ctx context.Context, chatID int64, html string) *tgbotapi.Message {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return n.deliver(ctx, msg)
}

// SendKeyboard posts text with an inline keyboard.
func (n *Notifier) SendKeyboard(ctx context.Context, chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) *tgbotapi.Message {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	return n.deliver(ctx, msg)
}

// Answer acknowledges a callback query, optionally showing text to the user.
func (n *Notifier) Answer(callbackID, text string) {
	if callbackID == "" {
		return
	}
	if _, err := n.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		n.metrics.SendError()
		n.logger.Warn().Err(err).Msg("answer callback failed")
	}
}

func (n *Notifier) deliver(ctx context.Context, msg tgbotapi.MessageConfig) *tgbotapi.Message {
	if err := n.limiter.Wait(ctx); err != nil {
		n.logger.Warn().Err(err).Int64("chat", msg.ChatID).Msg("send cancelled")
		return nil
	}
	sent, err := n.api.Send(msg)
	if err != nil {
		n.metrics.SendError()
		n.logger.Error().Err(err).Int64("chat", msg.ChatID).Msg("send message failed")
		return nil
	}
	return &sent
}
