package config

// DefaultMempoolSize is the default maximum number of pending transactions.
const DefaultMempoolSize = 5000

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Ledger: LedgerConfig{
			Backend: BackendBadger,
		},
		Mempool: MempoolConfig{
			MaxSize: DefaultMempoolSize,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
