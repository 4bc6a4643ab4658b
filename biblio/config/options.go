package config

import (
	"go.uber.org/zap/zapcore"
)

type Option func(cfg *Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(cfg *Config) {
		cfg.Log.LogLevel = level
	}
}

// WithStorage sets the storage used when BIBLIO_STORAGE is unset.
func WithStorage(storage string) Option {
	return func(cfg *Config) {
		cfg.Storage = storage
	}
}
