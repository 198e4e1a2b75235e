package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/tursodatabase/go-libsql"

	"sharyinets/gatekeeper/internal/config"
)

const driverLibsql = "libsql"

// ErrNotInitialized is returned by methods called on a closed or nil store.
var ErrNotInitialized = errors.New("store is not initialized")

// Store wraps the local SQLite database.
type Store struct {
	db            *sqlx.DB
	messageLimit  int
	activityLimit int
}

// Open connects to the database described by cfg and verifies it.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	dsn, err := buildDSN(cfg.Path)
	if err != nil {
		return nil, err
	}

	raw, err := sql.Open(driverLibsql, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// sqlite has a single writer; one connection also keeps :memory: databases intact
	raw.SetMaxOpenConns(1)
	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	s := &Store{
		db:            sqlx.NewDb(raw, "sqlite3"),
		messageLimit:  cfg.MessageHistoryLimit,
		activityLimit: cfg.ActivityHistoryLimit,
	}
	if s.messageLimit <= 0 {
		s.messageLimit = 100
	}
	if s.activityLimit <= 0 {
		s.activityLimit = 50
	}
	return s, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	return nil
}

func buildDSN(path string) (string, error) {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return "", errors.New("store path is required")
	case path == ":memory:":
		return path, nil
	case strings.HasPrefix(path, "file:"):
		if err := ensureDir(strings.TrimPrefix(path, "file:")); err != nil {
			return "", err
		}
		return path, nil
	}
	if err := ensureDir(path); err != nil {
		return "", err
	}
	return "file:" + filepath.Clean(path), nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
