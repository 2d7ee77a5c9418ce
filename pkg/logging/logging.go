// Package logging builds the zerolog logger shared by the commands: a
// console writer on stderr and, when a file is named, a rotating JSON log.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	App     string
	Debug   bool
	NoColor bool

	// File enables the rotating log. Sizes are in megabytes, ages in days.
	File       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool

	// Console defaults to stderr.
	Console io.Writer
}

// Logger owns the rotating file, Close flushes and releases it.
type Logger struct {
	zerolog.Logger
	rotator *lumberjack.Logger
}

func New(cfg Config) *Logger {
	out := cfg.Console
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.TimeOnly,
		NoColor:    cfg.NoColor,
	}}

	var rotator *lumberjack.Logger
	if cfg.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			Compress:   cfg.Compress,
		}
		writers = append(writers, rotator)
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Str("app", cfg.App).
		Logger()
	log.Logger = l
	return &Logger{Logger: l, rotator: rotator}
}

func (l *Logger) Close() error {
	if l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
