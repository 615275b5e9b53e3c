// ledgerctl inspects and drives a UTXO ledger with the order-book pieces.
//
// Usage:
//
//	ledgerctl [options] init                 Create the ledger from genesis
//	ledgerctl [options] apply <tx.json>...   Validate and apply transactions
//	ledgerctl [options] wallet create maker  Create an encrypted wallet
//	ledgerctl --help                         Show help
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Klingon-tech/klingnet-dex/config"
	klog "github.com/Klingon-tech/klingnet-dex/internal/log"
)

const version = "0.1.0"

// errRejected signals that at least one transaction was rejected; the
// details have already been printed.
var errRejected = errors.New("transactions rejected")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	cfg, flags, err := config.Load(args)
	if err != nil {
		return err
	}
	if flags.Help {
		config.PrintUsage(stdout)
		return nil
	}
	if flags.Version {
		fmt.Fprintf(stdout, "ledgerctl %s\n", version)
		return nil
	}
	if len(flags.Args) == 0 {
		config.PrintUsage(os.Stderr)
		return fmt.Errorf("no command given")
	}

	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	cmd, cmdArgs := flags.Args[0], flags.Args[1:]

	// Commands that need no ledger.
	switch cmd {
	case "types":
		return cmdTypes(stdout)
	case "keygen":
		return cmdKeygen(stdout)
	case "wallet":
		return cmdWallet(cfg, cmdArgs, stdout)
	}

	l, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	switch cmd {
	case "init":
		return cmdInit(l, stdout)
	case "reset":
		return cmdReset(l, stdout)
	}

	if err := l.requireInitialized(); err != nil {
		return err
	}

	switch cmd {
	case "validate":
		return cmdValidate(l, cmdArgs, stdout)
	case "apply":
		return cmdApply(l, cmdArgs, cfg.Mempool.MaxSize, stdout)
	case "sign":
		return cmdSign(l, cmdArgs, stdout)
	case "get":
		return cmdGet(l, cmdArgs, stdout)
	case "list":
		return cmdList(l, cmdArgs, stdout)
	case "commitment":
		return cmdCommitment(l, stdout)
	case "transfer":
		return cmdTransfer(l, cfg, cmdArgs, stdout)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}
