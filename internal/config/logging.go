package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// ParseLevel maps a configured level string to a zerolog level.
// Unknown values fall back to error, matching the config default.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return zerolog.Disabled
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "":
		return zerolog.ErrorLevel
	default:
		return zerolog.ErrorLevel
	}
}

// NewLogger builds the application logger from the logging config. With a
// file path set it appends JSON lines there; otherwise it writes to
// stderr. The returned close func is a no-op for stderr logging.
func NewLogger(cfg LoggingConfig) (zerolog.Logger, func() error, error) {
	level := ParseLevel(cfg.Level)
	noop := func() error { return nil }

	if level == zerolog.Disabled {
		return zerolog.Nop(), noop, nil
	}

	var w io.Writer = os.Stderr
	closeFn := noop
	if cfg.File != "" {
		path, err := expandHome(cfg.File)
		if err != nil {
			return zerolog.Nop(), noop, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return zerolog.Nop(), noop, err
		}
		// #nosec G304 -- log file path is from validated config
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return zerolog.Nop(), noop, err
		}
		w = f
		closeFn = f.Close
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger, closeFn, nil
}

// expandHome expands a leading ~/ to the user's home directory.
func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}
