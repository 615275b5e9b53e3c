package config

import (
	"fmt"
	"strings"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DataDir == "" && cfg.Ledger.Backend != BackendMemory && cfg.Ledger.Path == "" {
		return fmt.Errorf("datadir or ledger.path is required for a persistent ledger")
	}

	switch cfg.Ledger.Backend {
	case BackendMemory, BackendBadger, BackendSQLite:
	case "":
		cfg.Ledger.Backend = BackendBadger
	default:
		return fmt.Errorf("ledger.backend must be %s, %s or %s", BackendMemory, BackendBadger, BackendSQLite)
	}

	if cfg.Mempool.MaxSize < 0 {
		return fmt.Errorf("mempool.maxsize must not be negative")
	}
	if cfg.Mempool.MaxSize == 0 {
		cfg.Mempool.MaxSize = DefaultMempoolSize
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled", "off":
	default:
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}

	return nil
}
