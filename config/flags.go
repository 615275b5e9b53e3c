package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	DataDir string
	Config  string
	Genesis string

	// Ledger
	Backend    string
	LedgerPath string

	// Mempool
	MempoolSize int

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args (subcommand and its operands)
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetLogJSON bool
}

// ParseFlags parses command-line flags from args (without the program name).
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	// Core
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.StringVar(&f.Genesis, "genesis", "", "Genesis file path")

	// Ledger
	fs.StringVar(&f.Backend, "backend", "", "Ledger backend (memory, badger, sqlite)")
	fs.StringVar(&f.LedgerPath, "ledger-path", "", "Ledger database path")

	// Mempool
	fs.IntVar(&f.MempoolSize, "mempool-size", 0, "Maximum pending transactions")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			f.Help = true
			return f, nil
		}
		return nil, err
	}

	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()

	// Flags after the subcommand are not parsed by the flag package.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("flag %q was not parsed (flags must precede the command)", arg)
		}
	}

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.Genesis != "" {
		cfg.Genesis = f.Genesis
	}

	// Ledger
	if f.Backend != "" {
		cfg.Ledger.Backend = Backend(strings.ToLower(f.Backend))
	}
	if f.LedgerPath != "" {
		cfg.Ledger.Path = f.LedgerPath
	}

	// Mempool
	if f.MempoolSize != 0 {
		cfg.Mempool.MaxSize = f.MempoolSize
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the command-line help to w.
func PrintUsage(w io.Writer) {
	usage := `ledgerctl - inspect and drive a Klingdex UTXO ledger

Usage:
  ledgerctl [options] <command> [arguments]

Commands:
  init                 Create the ledger and insert the genesis outputs
  reset                Delete every output of this chain id
  validate <tx.json>   Check a transaction without applying it
  apply <tx.json>...   Validate and apply transactions in order
  sign <tx.json> <key> Sign the inputs owned by a hex key file
  get <ref>            Show a live output (hex or base58 reference)
  list [address]       List live outputs, optionally for one owner
  commitment           Print the ledger commitment
  types                List known payload types and checkers
  keygen               Generate a key pair
  wallet <subcommand>  Manage keystore wallets (create, new, keys, list, export)
  transfer <a|b> <wallet> <address> <amount>
                       Build and sign a coin transfer from wallet funds

Wallet passwords are read from KLINGDEX_PASSWORD or the terminal.

Options:
  --datadir       Data directory (default: ~/.klingdex)
  --config, -c    Config file path (default: <datadir>/klingdex.conf)
  --genesis       Genesis file (default: built-in development genesis)
  --backend       Ledger backend: memory, badger (default), sqlite
  --ledger-path   Ledger database path (default: <datadir>/ledger)
  --mempool-size  Maximum pending transactions (default: 5000)
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: stderr)
  --log-json      Output logs as JSON
  --help, -h      Show this help message
  --version       Show version information
`
	fmt.Fprint(w, usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dir + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}

	cfg := Default()
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	// Flags have the highest precedence.
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
