// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Protocol rules: transaction limits and the genesis allocation, which
//     must match across every ledger replica
//   - Node settings: runtime configuration, can vary per installation
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Backend names a key-value storage engine for the ledger.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendBadger Backend = "badger"
	BackendSQLite Backend = "sqlite"
)

// =============================================================================
// Node Configuration (runtime, per-installation settings)
// =============================================================================

// Config holds runtime configuration.
type Config struct {
	// Core
	DataDir string `conf:"datadir"`
	Genesis string `conf:"genesis"` // Genesis file; empty = built-in dev genesis

	// Ledger storage
	Ledger LedgerConfig

	// Mempool
	Mempool MempoolConfig

	// Logging
	Log LogConfig
}

// LedgerConfig selects where the ledger lives.
type LedgerConfig struct {
	Backend Backend `conf:"ledger.backend"` // memory, badger or sqlite
	Path    string  `conf:"ledger.path"`    // Defaults to <datadir>/ledger
}

// MempoolConfig holds pending-transaction pool settings.
type MempoolConfig struct {
	MaxSize int `conf:"mempool.maxsize"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingdex
//	macOS:   ~/Library/Application Support/Klingdex
//	Windows: %APPDATA%\Klingdex
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingdex"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Klingdex")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Klingdex")
		}
		return filepath.Join(home, "AppData", "Roaming", "Klingdex")
	default:
		return filepath.Join(home, ".klingdex")
	}
}

// LedgerPath returns the ledger database location for the configured backend.
func (c *Config) LedgerPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	if c.Ledger.Backend == BackendSQLite {
		return filepath.Join(c.DataDir, "ledger.db")
	}
	return filepath.Join(c.DataDir, "ledger")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// KeystoreDir returns the wallet keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.DataDir, "keystore")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingdex.conf")
}
