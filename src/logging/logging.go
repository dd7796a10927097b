package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"restic-backup-service/src/config"
)

// Setup builds the process logger: a console writer on stderr plus, when
// cfg.File is set, a rotating log file. The logger is also installed as the
// zerolog global and tagged with the invocation id.
func Setup(cfg config.Logging, stderr io.Writer, invocation string) (zerolog.Logger, io.Closer, error) {
	if stderr == nil {
		stderr = os.Stderr
	}
	var out io.Writer = zerolog.ConsoleWriter{Out: stderr, TimeFormat: "15:04:05"}
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("logging: create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	level, levelErr := ParseLevel(cfg.Level)
	logger := zerolog.New(out).Level(level).With().Timestamp().Str("invocation", invocation).Logger()
	if levelErr != nil {
		logger.Warn().Str("invalid_level", cfg.Level).Msg("invalid log level, using info")
	}
	log.Logger = logger
	return logger, closer, nil
}

// ParseLevel parses a zerolog level name. Empty means info; an unknown name
// returns info together with an error.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
