// Package logging configures the process-wide slog logger with optional file rotation.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	global *slog.Logger
)

// Config selects level, format and destination.
type Config struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: json or text
	Format string `mapstructure:"format"`
	// Output: stdout, stderr, file, both
	Output string `mapstructure:"output"`
	// FilePath is used when Output is file or both.
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// DefaultConfig logs text at info level to stderr.
var DefaultConfig = Config{
	Level:      "info",
	Format:     "text",
	Output:     "stderr",
	FilePath:   "logs/termfit.log",
	MaxSize:    100,
	MaxBackups: 10,
	MaxAge:     30,
	Compress:   true,
}

// ParseLevel maps a level name to slog.Level; unknown names mean info.
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

// New builds a logger from cfg without installing it.
func New(cfg Config) (*slog.Logger, error) {
	var output io.Writer
	fileWriter := func() (io.Writer, error) {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, err
		}
		return &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}, nil
	}

	switch cfg.Output {
	case "file":
		w, err := fileWriter()
		if err != nil {
			return nil, err
		}
		output = w
	case "both":
		w, err := fileWriter()
		if err != nil {
			return nil, err
		}
		output = io.MultiWriter(os.Stdout, w)
	case "stdout":
		output = os.Stdout
	default:
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.WithCaller,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	return slog.New(handler), nil
}

// Init installs the global logger and makes it slog's default.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set replaces the global logger.
func Set(l *slog.Logger) {
	mu.Lock()
	global = l
	mu.Unlock()
	slog.SetDefault(l)
}

// Get returns the global logger, or slog's default before Init.
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return slog.Default()
	}
	return global
}
