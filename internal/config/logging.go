package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Hihi1310/vietnamese-interpreter/internal/logging"
)

// ParseLevel maps a config level name to a slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogging opens the per-concern log files and installs the system logger
// as the slog default. Verbose lowers every threshold to debug and echoes the
// records on the console (stderr when nil); otherwise only warnings reach it.
func SetupLogging(c *Config, verbose bool, stderr io.Writer) (*logging.Set, error) {
	if stderr == nil {
		stderr = os.Stderr
	}
	level := ParseLevel(c.Logging.Level)
	consoleLevel := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
		consoleLevel = slog.LevelDebug
	}

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: consoleLevel}
	var console slog.Handler
	if strings.ToLower(c.Logging.Format) == "json" {
		console = slog.NewJSONHandler(stderr, opts)
	} else {
		console = slog.NewTextHandler(stderr, opts)
	}

	set, err := logging.Open(c.Paths.LogsDir, level, loc, console)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(set.System)
	return set, nil
}
