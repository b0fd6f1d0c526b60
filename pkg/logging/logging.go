// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatText = "text"
)

type Settings struct {
	Level  string
	Format string
}

// ParseLevel converts a level name into a zerolog.Level. Unknown names map to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "info":
		fallthrough
	default:
		return zerolog.InfoLevel
	}
}

func ValidFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatAuto, FormatJSON, FormatText:
		return true
	}
	return false
}

// New builds a logger writing to w. With the auto format, terminals get the
// console writer and everything else gets JSON lines.
func New(w io.Writer, s Settings, terminal bool) (zerolog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(s.Format))
	if !ValidFormat(format) {
		return zerolog.Nop(), errors.Errorf("logging: unknown format %q", s.Format)
	}
	if format == FormatText || ((format == "" || format == FormatAuto) && terminal) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !terminal}
	}
	return zerolog.New(w).Level(ParseLevel(s.Level)).With().Timestamp().Logger(), nil
}

// Init replaces the global logger with one writing to stderr.
func Init(s Settings) error {
	logger, err := New(os.Stderr, s, isatty.IsTerminal(os.Stderr.Fd()))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(ParseLevel(s.Level))
	log.Logger = logger
	return nil
}
