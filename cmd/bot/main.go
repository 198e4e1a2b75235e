package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"sharyinets/gatekeeper/internal/api"
	"sharyinets/gatekeeper/internal/auth"
	"sharyinets/gatekeeper/internal/chats"
	"sharyinets/gatekeeper/internal/config"
	"sharyinets/gatekeeper/internal/handlers"
	"sharyinets/gatekeeper/internal/metrics"
	"sharyinets/gatekeeper/internal/notify"
	"sharyinets/gatekeeper/internal/prompt"
	"sharyinets/gatekeeper/internal/security/audit"
	"sharyinets/gatekeeper/internal/security/throttle"
	"sharyinets/gatekeeper/internal/services"
	"sharyinets/gatekeeper/internal/store"
	"sharyinets/gatekeeper/pkg/datadir"
	"sharyinets/gatekeeper/pkg/logger"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("fatal panic: %v", r)
		}
	}()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logg := logger.New(logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File})

	botAPI, err := api.NewBot(cfg.Telegram.Token, cfg.Telegram.ProxyURL, cfg.Telegram.PollTimeout)
	if err != nil {
		logg.Fatal().Err(err).Msg("telegram init")
	}
	botAPI.Debug = false
	_, _ = botAPI.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false})
	logg.Info().Str("bot", botAPI.Self.UserName).Msg("authorized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		logg.Fatal().Err(err).Msg("store init")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logg.Fatal().Err(err).Msg("store migrate")
	}

	registry := chats.New(cfg.Telegram.InvitingChatID, cfg.Telegram.InvitedChatID)
	if persisted, err := db.LoadChats(ctx); err != nil {
		logg.Warn().Err(err).Msg("load chats")
	} else {
		registry.Merge(persisted, store.RoleInviting, store.RoleInvited)
	}
	if !registry.Configured() {
		logg.Warn().Msg("chats are not configured, use /set_chats")
	}

	m := metrics.New()
	members := services.NewMembers(botAPI, db)
	for _, chatID := range []int64{registry.Inviting(), registry.Invited()} {
		if chatID == 0 {
			continue
		}
		if n, err := members.SyncAdministrators(ctx, chatID); err != nil {
			logg.Warn().Err(err).Int64("chat", chatID).Msg("administrator sync failed")
		} else {
			logg.Info().Int("count", n).Int64("chat", chatID).Msg("administrators synced")
		}
	}

	limiter := throttle.New(
		throttle.WithIdleTTL(cfg.IdleTTL()),
		throttle.WithOnSpam(func(user int64) {
			logg.Info().Int64("user", user).Msg("spam detected")
		}),
	)
	go limiter.Run(ctx)
	m.TrackUsers(limiter.Users)

	dataDir, err := datadir.New(cfg.DataDir)
	if err != nil {
		logg.Fatal().Err(err).Msg("data dir init")
	}
	auditPath, err := dataDir.Path("audit.log")
	if err != nil {
		logg.Fatal().Err(err).Msg("audit path")
	}
	auditLog := audit.New(auditPath)
	defer auditLog.Close()

	bot := handlers.New(handlers.Deps{
		Notifier:    notify.New(botAPI, cfg.Bot.SendPerSecond, cfg.Bot.SendBurst, m, logg),
		Throttle:    limiter,
		Store:       db,
		Members:     members,
		Invites:     services.NewInvites(botAPI, registry, botAPI.Self.ID),
		Departure:   services.NewDeparture(botAPI, cfg.DepartureMute()),
		Prompts:     prompt.New(cfg.PromptTTL()),
		Chats:       registry,
		Auth:        auth.New(cfg.Telegram.AdminUserIDs),
		Audit:       auditLog,
		Metrics:     m,
		Logger:      logg,
		WarningText: cfg.Throttle.WarningText,
	})

	// health and metrics on localhost for container orchestration
	srv := startHealthServer(cfg.Server.HealthAddr, m, logg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Telegram.PollTimeout
	u.AllowedUpdates = []string{"message", "callback_query", "chat_join_request"}
	updates := botAPI.GetUpdatesChan(u)
	defer botAPI.StopReceivingUpdates()

	logg.Info().Msg("bot started")
	if err := bot.Start(ctx, updates); err != nil {
		logg.Error().Err(err).Msg("bot stopped")
	}
	logg.Info().Msg("shutting down")
}

func startHealthServer(addr string, m *metrics.Metrics, logg zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logg.Error().Interface("panic", r).Msg("health server panic")
			}
		}()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error().Err(err).Str("addr", addr).Msg("health server failed")
		}
	}()
	return srv
}
