// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	LevelEnv     = "DOTENVY_LOG_LEVEL"
	DefaultLevel = zerolog.WarnLevel
)

// ParseLevel accepts debug, info, warn, error, or "" for the default.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log level %q: want debug, info, warn or error", s)
}

// Setup sends human-readable logs to w. The flag value wins over
// $DOTENVY_LOG_LEVEL.
func Setup(w io.Writer, flagLevel string) error {
	if w == nil {
		w = os.Stderr
	}
	raw := flagLevel
	if raw == "" {
		raw = os.Getenv(LevelEnv)
	}
	level, err := ParseLevel(raw)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	return nil
}
