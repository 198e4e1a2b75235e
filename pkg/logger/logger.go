package logger

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls log level and the optional rotating file sink.
type Options struct {
	Level string
	File  string
}

// New returns a configured zerolog logger. Console output is human readable;
// the file sink, when set, receives JSON lines rotated at 5 MB with 3 backups.
func New(opts Options) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	console := zerolog.ConsoleWriter{Out: os.Stdout}
	if opts.File == "" {
		return zerolog.New(console).With().Timestamp().Logger()
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		l := zerolog.New(console).With().Timestamp().Logger()
		l.Warn().Err(err).Str("file", opts.File).Msg("log file disabled")
		return l
	}
	out := zerolog.MultiLevelWriter(console, &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    5,
		MaxBackups: 3,
	})
	return zerolog.New(out).With().Timestamp().Logger()
}
