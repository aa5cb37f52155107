package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ekisa-team/modelserve/internal/env"
)

// Options holds logger configuration.
type Options struct {
	Level     slog.Leveler
	LogFile   string
	LogToFile bool
}

// Option configures the logger.
type Option func(*Options)

// WithLevel sets the minimum log level.
func WithLevel(level slog.Leveler) Option {
	return func(o *Options) { o.Level = level }
}

// WithLogToFile enables mirroring log output to a rotating file.
func WithLogToFile(enabled bool) Option {
	return func(o *Options) { o.LogToFile = enabled }
}

// WithLogFile sets the log file path used when file output is enabled.
func WithLogFile(path string) Option {
	return func(o *Options) { o.LogFile = path }
}

// New creates a slog.Logger appropriate for the given environment tier.
// Dev gets a colored human-readable handler; staging and prod get JSON.
func New(environment env.Environment, opts ...Option) *slog.Logger {
	options := Options{
		Level:   slog.LevelInfo,
		LogFile: "logs/modelserve.log",
	}
	for _, opt := range opts {
		opt(&options)
	}

	var w io.Writer = os.Stderr
	if options.LogToFile {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   options.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	var handler slog.Handler
	if environment == env.Dev {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      options.Level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: options.Level,
		})
	}

	return slog.New(handler)
}
