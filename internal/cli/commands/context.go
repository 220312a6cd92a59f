package commands

import (
	"context"
	"log/slog"

	"github.com/epitopelab/bindscope/internal/config"
)

type (
	configKey  struct{}
	loggerKey  struct{}
	cleanupKey struct{}
)

// WithConfig stores the loaded configuration in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the configuration from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{
		Port:         config.DefaultPort,
		APIBaseURL:   config.DefaultAPIBaseURL,
		StatePath:    config.DefaultStatePath,
		LogFile:      config.DefaultLogFile,
		PollInterval: config.DefaultPollInterval,
	}
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// WithCleanup stores the logger cleanup func in the context.
func WithCleanup(ctx context.Context, fn func() error) context.Context {
	return context.WithValue(ctx, cleanupKey{}, fn)
}

// Cleanup runs the stored cleanup func, if any.
func Cleanup(ctx context.Context) {
	if fn, ok := ctx.Value(cleanupKey{}).(func() error); ok {
		_ = fn()
	}
}
