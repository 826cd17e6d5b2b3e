package testsupport

import (
	"path/filepath"
	"testing"

	"marquee/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Sign.Address = "FF:22:12:22:70:EE"
	cfg.Sign.AnimationsDir = filepath.Join(base, "animations")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Presets.File = filepath.Join(base, "presets.yaml")
	cfg.History.Path = filepath.Join(base, "data", "history.db")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithQueueLimit caps the dispatch queue on the test config.
func WithQueueLimit(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sign.QueueLimit = limit
	}
}

// WithHistoryKeep overrides the history retention cap on the test config.
func WithHistoryKeep(keep int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.History.Keep = keep
	}
}

// WithFastRetries makes reconnect waits effectively instant so worker tests
// do not sleep through real backoff delays.
func WithFastRetries() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sign.ReconnectDelay = 0
		cfg.Sign.ConnectRetries = 1
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
