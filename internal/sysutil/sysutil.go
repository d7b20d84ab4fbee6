// Package sysutil holds process-level helpers: global log level and the
// zerolog sinks (stderr, optionally pretty, plus a rotating file).
package sysutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// LogOptions selects the log sinks.
type LogOptions struct {
	Level  string
	Pretty bool   // human-readable console output on stderr
	File   string // rotating JSON file; empty disables it
	Out    io.Writer

	// Rotation limits for File. Zero values use 10 MiB, 3 backups, 28 days.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// SetupLogger installs the global zerolog logger. The returned closer
// releases the log file and is never nil.
func SetupLogger(o LogOptions) (io.Closer, error) {
	SetLogLevel(o.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	if o.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	var closer io.Closer = nopCloser{}
	if o.File != "" {
		if err := os.MkdirAll(filepath.Dir(o.File), 0o755); err != nil {
			return closer, err
		}
		fw := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    orDefault(o.MaxSizeMB, 10),
			MaxBackups: orDefault(o.MaxBackups, 3),
			MaxAge:     orDefault(o.MaxAgeDays, 28),
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, fw)
		closer = fw
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
