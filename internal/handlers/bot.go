package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"sharyinets/gatekeeper/internal/api"
	"sharyinets/gatekeeper/internal/auth"
	"sharyinets/gatekeeper/internal/chats"
	"sharyinets/gatekeeper/internal/metrics"
	"sharyinets/gatekeeper/internal/notify"
	"sharyinets/gatekeeper/internal/prompt"
	"sharyinets/gatekeeper/internal/security/audit"
	"sharyinets/gatekeeper/internal/security/throttle"
	"sharyinets/gatekeeper/internal/services"
	"sharyinets/gatekeeper/internal/store"
)

// Repository is the persistence the dispatcher writes to directly.
type Repository interface {
	SaveChat(ctx context.Context, role string, chatID int64) error
	CleanupInactiveUsers(ctx context.Context) (int64, error)
	AddMessage(ctx context.Context, m store.Message) error
	LogActivity(ctx context.Context, userID int64, at time.Time) error
}

// Deps wires the dispatcher's collaborators.
type Deps struct {
	Notifier    *notify.Notifier
	Throttle    *throttle.Throttle
	Store       Repository
	Members     *services.MemberService
	Invites     *services.InviteService
	Departure   *services.DepartureService
	Prompts     *prompt.Manager
	Chats       *chats.Registry
	Auth        *auth.Authorizer
	Audit       *audit.Logger
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	WarningText string
}

// Bot routes Telegram updates to the bot features.
type Bot struct {
	notify    *notify.Notifier
	throttle  *throttle.Throttle
	store     Repository
	members   *services.MemberService
	invites   *services.InviteService
	departure *services.DepartureService
	prompts   *prompt.Manager
	chats     *chats.Registry
	auth      *auth.Authorizer
	audit     *audit.Logger
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	warning   string
	now       func() time.Time
}

// New constructs bot handler.
func New(d Deps) *Bot {
	return &Bot{
		notify:    d.Notifier,
		throttle:  d.Throttle,
		store:     d.Store,
		members:   d.Members,
		invites:   d.Invites,
		departure: d.Departure,
		prompts:   d.Prompts,
		chats:     d.Chats,
		auth:      d.Auth,
		audit:     d.Audit,
		metrics:   d.Metrics,
		logger:    d.Logger.With().Str("component", "bot").Logger(),
		warning:   d.WarningText,
		now:       time.Now,
	}
}

// Start handles updates one at a time until ctx is done or updates closes.
func (b *Bot) Start(ctx context.Context, updates <-chan tgbotapi.Update) error {
	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sweep.C:
			b.prompts.Sweep()
		case update, ok := <-updates:
			if !ok {
				return errors.New("updates channel closed")
			}
			b.handleUpdateSafe(ctx, update)
		}
	}
}

// handleUpdateSafe ensures panics are recovered and logged.
func (b *Bot) handleUpdateSafe(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Int("update", u.UpdateID).Msg("panic in handler")
		}
	}()
	b.handleUpdate(ctx, u)
}

func (b *Bot) handleUpdate(ctx context.Context, u tgbotapi.Update) {
	switch {
	case u.Message != nil:
		b.metrics.Update("message")
		b.handleMessage(ctx, u.Message)
	case u.CallbackQuery != nil:
		b.metrics.Update("callback")
		b.handleCallback(ctx, u.CallbackQuery)
	case u.ChatJoinRequest != nil:
		b.metrics.Update("join_request")
		b.handleJoinRequest(ctx, u.ChatJoinRequest)
	default:
		b.metrics.Update("other")
	}
}

// allow runs the spam check for a user request. Spam gets one warning in
// chatID; accepted requests are logged as activity.
func (b *Bot) allow(ctx context.Context, userID, chatID int64, callbackID string) bool {
	now := b.now()
	spam := b.throttle.IsSpam(userID, now)
	b.metrics.Verdict(spam)
	if spam {
		b.logger.Debug().Int64("user", userID).Int64("chat", chatID).Msg("request throttled")
		b.notify.Send(ctx, chatID, b.warning)
		b.notify.Answer(callbackID, "")
		b.audit.Write(userID, "throttle", "deny", nil)
		return false
	}
	if err := b.store.LogActivity(ctx, userID, now); err != nil {
		b.storeFailed("log_activity", err)
	}
	return true
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil {
		return
	}
	// service messages are not user requests
	if len(m.NewChatMembers) > 0 || m.LeftChatMember != nil {
		b.handleMembership(ctx, m)
		return
	}
	if !b.allow(ctx, m.From.ID, m.Chat.ID, "") {
		return
	}

	if m.Text != "" {
		err := b.store.AddMessage(ctx, store.Message{
			UserID: m.From.ID,
			ChatID: m.Chat.ID,
			Text:   m.Text,
			SentAt: int64(m.Date),
		})
		if err != nil {
			b.storeFailed("add_message", err)
		}
	}
	if !m.Chat.IsPrivate() && b.chats.Managed(m.Chat.ID) {
		if err := b.members.Remember(ctx, m.Chat.ID, m.From); err != nil {
			b.storeFailed("add_user", err)
		}
	}

	if m.IsCommand() {
		b.routeCommand(ctx, m)
		return
	}
	if m.Chat.IsPrivate() {
		if m.Text != "" {
			b.completeEvent(ctx, m)
		}
		return
	}
	if services.IsDeparture(m.Text) && b.chats.IsInvited(m.Chat.ID) {
		b.handleDeparture(ctx, m)
	}
}

func (b *Bot) routeCommand(ctx context.Context, m *tgbotapi.Message) {
	switch strings.ToLower(m.Command()) {
	case "start":
		b.notify.SendKeyboard(ctx, m.Chat.ID, startText, startKeyboard())
	case "help":
		b.notify.Send(ctx, m.Chat.ID, helpText)
	case "set_chats":
		b.handleSetChats(ctx, m)
	default:
		if m.Chat.IsPrivate() {
			b.notify.Send(ctx, m.Chat.ID, unknownCommandText)
		}
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil {
		return
	}
	chatID := q.From.ID
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}
	if !b.allow(ctx, q.From.ID, chatID, q.ID) {
		return
	}

	switch q.Data {
	case callbackHelp:
		b.notify.Send(ctx, chatID, helpText)
		b.notify.Answer(q.ID, "")
	case callbackInvite:
		b.handleInvite(ctx, q)
	case callbackEvent:
		b.handleEvent(ctx, q, chatID)
	default:
		b.notify.Answer(q.ID, "")
	}
}

func (b *Bot) handleInvite(ctx context.Context, q *tgbotapi.CallbackQuery) {
	userID := q.From.ID
	link, err := b.invites.Issue(ctx, userID)

	var text string
	status := "ok"
	switch {
	case err == nil:
		text = fmt.Sprintf(inviteLinkText, link)
	case errors.Is(err, services.ErrBotNotAdmin):
		text, status = inviteNoRightsText, "deny"
	case errors.Is(err, services.ErrNotMember):
		text, status = inviteNotMemberText, "deny"
	case errors.Is(err, services.ErrNotConfigured):
		text, status = inviteNoChatsText, "deny"
	default:
		b.logger.Error().Err(err).Int64("user", userID).Msg("invite failed")
		text, status = inviteFailedText, "error"
	}

	if b.notify.Send(ctx, userID, text) == nil {
		b.notify.Answer(q.ID, openPrivateText)
	} else {
		b.notify.Answer(q.ID, "")
	}
	b.audit.Write(userID, "invite", status, nil)
}

func (b *Bot) handleEvent(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64) {
	if !b.chats.IsInvited(chatID) {
		b.notify.Answer(q.ID, eventOnlyGroupText)
		return
	}
	mentions, err := b.members.Mentions(ctx, chatID)
	if err != nil {
		b.storeFailed("users_in_chat", err)
		b.notify.Answer(q.ID, eventMembersText)
		return
	}
	b.prompts.Issue(q.From.ID, chatID, mentions)

	// the text is collected in private chat; fall back to the group when the
	// user has not opened a conversation with the bot yet
	if b.notify.Send(ctx, q.From.ID, eventPromptText) == nil {
		b.notify.Send(ctx, chatID, eventPromptText)
	}
	b.notify.Answer(q.ID, "")
}

func (b *Bot) completeEvent(ctx context.Context, m *tgbotapi.Message) {
	p, err := b.prompts.Consume(m.From.ID)
	if errors.Is(err, prompt.ErrNotFound) {
		return
	}
	if err != nil {
		b.notify.Send(ctx, m.Chat.ID, eventExpiredText)
		return
	}
	for _, chunk := range services.Announcement(p.Mentions, m.Text, services.MessageLimit) {
		b.notify.SendHTML(ctx, p.ChatID, chunk)
	}
	b.notify.Send(ctx, m.Chat.ID, eventPostedText)
	b.audit.Write(m.From.ID, "event", "ok", map[string]string{
		"chat":     strconv.FormatInt(p.ChatID, 10),
		"mentions": strconv.Itoa(len(p.Mentions)),
	})
}

func (b *Bot) handleDeparture(ctx context.Context, m *tgbotapi.Message) {
	userID := m.From.ID
	until, err := b.departure.Mute(ctx, m.Chat.ID, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user", userID).Int64("chat", m.Chat.ID).Msg("departure mute failed")
		b.audit.Write(userID, "departure", "error", nil)
		return
	}
	b.notify.Send(ctx, m.Chat.ID, fmt.Sprintf(departureChatText, api.FullName(m.From)))
	b.notify.Send(ctx, userID, departureUserText)
	b.audit.Write(userID, "departure", "ok", map[string]string{"until": until.UTC().Format(time.RFC3339)})
}

func (b *Bot) handleSetChats(ctx context.Context, m *tgbotapi.Message) {
	userID := m.From.ID
	if !b.auth.IsAdmin(userID) {
		b.notify.Send(ctx, m.Chat.ID, forbiddenText)
		b.audit.Write(userID, "set_chats", "deny", nil)
		return
	}
	inviting, invited, ok := parseChatPair(m.CommandArguments())
	if !ok {
		b.notify.Send(ctx, m.Chat.ID, setChatsUsageText)
		return
	}

	if err := b.store.SaveChat(ctx, store.RoleInviting, inviting); err != nil {
		b.storeFailed("save_chat", err)
		b.notify.Send(ctx, m.Chat.ID, setChatsFailedText)
		return
	}
	if err := b.store.SaveChat(ctx, store.RoleInvited, invited); err != nil {
		b.storeFailed("save_chat", err)
		b.notify.Send(ctx, m.Chat.ID, setChatsFailedText)
		return
	}
	b.chats.Set(inviting, invited)

	if n, err := b.store.CleanupInactiveUsers(ctx); err != nil {
		b.storeFailed("cleanup_users", err)
	} else if n > 0 {
		b.logger.Info().Int64("removed", n).Msg("removed members of unconfigured chats")
	}
	for _, chatID := range []int64{inviting, invited} {
		if _, err := b.members.SyncAdministrators(ctx, chatID); err != nil {
			b.logger.Warn().Err(err).Int64("chat", chatID).Msg("administrator sync failed")
		}
	}

	b.notify.Send(ctx, m.Chat.ID, fmt.Sprintf(setChatsDoneText, inviting, invited))
	b.audit.Write(userID, "set_chats", "ok", map[string]string{
		"inviting": strconv.FormatInt(inviting, 10),
		"invited":  strconv.FormatInt(invited, 10),
	})
}

func (b *Bot) handleMembership(ctx context.Context, m *tgbotapi.Message) {
	if !b.chats.Managed(m.Chat.ID) {
		return
	}
	for i := range m.NewChatMembers {
		if err := b.members.Remember(ctx, m.Chat.ID, &m.NewChatMembers[i]); err != nil {
			b.storeFailed("add_user", err)
		}
	}
	if m.LeftChatMember != nil {
		if err := b.members.Forget(ctx, m.Chat.ID, m.LeftChatMember.ID); err != nil {
			b.storeFailed("remove_user", err)
		}
	}
}

func (b *Bot) handleJoinRequest(ctx context.Context, r *tgbotapi.ChatJoinRequest) {
	if b.chats.Managed(r.Chat.ID) {
		if err := b.members.Remember(ctx, r.Chat.ID, &r.From); err != nil {
			b.storeFailed("add_user", err)
		}
	}
	b.logger.Info().Int64("user", r.From.ID).Int64("chat", r.Chat.ID).Msg("join request recorded")
	b.notify.Send(ctx, r.Chat.ID, fmt.Sprintf(welcomeText, r.From.FirstName))
}

func (b *Bot) storeFailed(op string, err error) {
	b.metrics.StoreError(op)
	b.logger.Error().Err(err).Str("op", op).Msg("store operation failed")
}

func parseChatPair(args string) (int64, int64, bool) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, false
	}
	inviting, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	invited, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return inviting, invited, true
}
