package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultWarningText is sent to a user whose request was throttled.
const DefaultWarningText = "Слишком много запросов! Пожалуйста, подождите 30 секунд."

// AppConfig holds all configuration loaded from env or YAML.
type AppConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Store    StoreConfig    `yaml:"store"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Bot      BotConfig      `yaml:"bot"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	DataDir  string         `yaml:"data_dir"`
}

// TelegramConfig describes Telegram bot settings.
type TelegramConfig struct {
	Token          string  `yaml:"token"`
	ProxyURL       string  `yaml:"proxy_url"`
	PollTimeout    int     `yaml:"poll_timeout"`
	AdminUserIDs   []int64 `yaml:"admin_user_ids"`
	InvitingChatID int64   `yaml:"inviting_chat_id"`
	InvitedChatID  int64   `yaml:"invited_chat_id"`
}

// StoreConfig describes the local SQLite database.
type StoreConfig struct {
	Path                 string `yaml:"path"`
	MessageHistoryLimit  int    `yaml:"message_history_limit"`
	ActivityHistoryLimit int    `yaml:"activity_history_limit"`
}

// ThrottleConfig tunes the anti-spam throttle. Window and limit are fixed.
type ThrottleConfig struct {
	WarningText    string `yaml:"warning_text"`
	IdleTTLMinutes int    `yaml:"idle_ttl_minutes"`
}

// BotConfig holds feature settings.
type BotConfig struct {
	DepartureMuteMinutes int     `yaml:"departure_mute_minutes"`
	PromptTTLSeconds     int     `yaml:"prompt_ttl_seconds"`
	SendPerSecond        float64 `yaml:"send_per_second"`
	SendBurst            int     `yaml:"send_burst"`
}

// LoggingConfig controls log level/output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ServerConfig holds the health/metrics listener.
type ServerConfig struct {
	HealthAddr string `yaml:"health_addr"`
}

// Load reads YAML config (if present), then .env, and overrides with env vars.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("parse yaml: %w", err)
			}
		}
	}

	// .env is optional; real environment variables take precedence over it
	_ = godotenv.Load()

	if err := overrideFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Telegram: TelegramConfig{
			PollTimeout: 30,
		},
		Store: StoreConfig{
			Path:                 "data/identifier.sqlite",
			MessageHistoryLimit:  100,
			ActivityHistoryLimit: 50,
		},
		Throttle: ThrottleConfig{
			WarningText:    DefaultWarningText,
			IdleTTLMinutes: 60,
		},
		Bot: BotConfig{
			DepartureMuteMinutes: 1,
			PromptTTLSeconds:     600,
			SendPerSecond:        25,
			SendBurst:            5,
		},
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{HealthAddr: "127.0.0.1:8080"},
		DataDir: "data",
	}
}

func overrideFromEnv(cfg *AppConfig) error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("PROXY_URL"); v != "" {
		cfg.Telegram.ProxyURL = v
	}
	if v := os.Getenv("ADMIN_USER_IDS"); v != "" {
		ids, err := parseIDs(v)
		if err != nil {
			return fmt.Errorf("ADMIN_USER_IDS: %w", err)
		}
		cfg.Telegram.AdminUserIDs = ids
	}
	if v := os.Getenv("INVITING_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("INVITING_CHAT_ID: %w", err)
		}
		cfg.Telegram.InvitingChatID = id
	}
	if v := os.Getenv("INVITED_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("INVITED_CHAT_ID: %w", err)
		}
		cfg.Telegram.InvitedChatID = id
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("HEALTH_ADDR"); v != "" {
		cfg.Server.HealthAddr = v
	}
	return nil
}

func parseIDs(v string) ([]int64, error) {
	parts := strings.Split(v, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *AppConfig) validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token required")
	}
	if c.Telegram.PollTimeout <= 0 {
		return errors.New("poll timeout must be >0")
	}
	if c.Store.Path == "" {
		return errors.New("store path required")
	}
	if c.Store.MessageHistoryLimit <= 0 || c.Store.ActivityHistoryLimit <= 0 {
		return errors.New("history limits must be >0")
	}
	if strings.TrimSpace(c.Throttle.WarningText) == "" {
		c.Throttle.WarningText = DefaultWarningText
	}
	if c.Throttle.IdleTTLMinutes < 0 {
		return errors.New("idle ttl must be >=0")
	}
	if c.Bot.DepartureMuteMinutes <= 0 {
		return errors.New("departure mute must be >0")
	}
	if c.Bot.PromptTTLSeconds <= 0 {
		return errors.New("prompt ttl must be >0")
	}
	if c.Bot.SendPerSecond <= 0 || c.Bot.SendBurst <= 0 {
		return errors.New("send rate must be >0")
	}
	if c.DataDir == "" {
		return errors.New("data dir required")
	}
	return nil
}

// IdleTTL returns the throttle idle eviction TTL; zero disables eviction.
func (c *AppConfig) IdleTTL() time.Duration {
	return time.Duration(c.Throttle.IdleTTLMinutes) * time.Minute
}

// DepartureMute returns how long a departing member stays muted.
func (c *AppConfig) DepartureMute() time.Duration {
	return time.Duration(c.Bot.DepartureMuteMinutes) * time.Minute
}

// PromptTTL returns how long an event prompt waits for its text.
func (c *AppConfig) PromptTTL() time.Duration {
	return time.Duration(c.Bot.PromptTTLSeconds) * time.Second
}
