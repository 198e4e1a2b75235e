package audit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Logger writes an append-only JSON lines audit trail of moderation actions.
type Logger struct {
	path string
	mu   sync.Mutex
	log  zerolog.Logger
	file *os.File
}

// New creates audit logger writing to path. An unwritable path disables the
// trail instead of failing startup.
func New(path string) *Logger {
	l := &Logger{path: path, log: zerolog.Nop()}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return l
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return l
	}
	l.file = f
	l.log = zerolog.New(f).With().Timestamp().Logger()
	return l
}

// Write records an audit event.
func (l *Logger) Write(userID int64, action string, status string, meta map[string]string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := l.log.Log().Int64("user", userID).Str("action", action).Str("status", status)
	if len(meta) > 0 {
		ev = ev.Interface("meta", meta)
	}
	ev.Send()
}

// Close flushes and closes the audit file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.file.Close()
	l.file = nil
	l.log = zerolog.Nop()
	return err
}
