package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-dex/config"
	"github.com/Klingon-tech/klingnet-dex/internal/executive"
	klog "github.com/Klingon-tech/klingnet-dex/internal/log"
	"github.com/Klingon-tech/klingnet-dex/internal/pieces"
	"github.com/Klingon-tech/klingnet-dex/internal/storage"
	"github.com/Klingon-tech/klingnet-dex/internal/utxo"
	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// metaGenesisKey records the genesis hash once init has run.
var metaGenesisKey = []byte("m/genesis")

// ledger bundles everything a command needs. Each chain id lives in its
// own namespace of the backing database.
type ledger struct {
	db       storage.DB
	ns       *storage.PrefixDB
	store    *utxo.Store
	exec     *executive.Executive
	genesis  *config.Genesis
	payloads *payload.Registry
	logger   zerolog.Logger
}

// openDB opens the configured storage backend.
func openDB(cfg *config.Config) (storage.DB, error) {
	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendSQLite:
		return storage.NewSQLite(cfg.LedgerPath())
	case config.BackendBadger, "":
		return storage.NewBadger(cfg.LedgerPath())
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func openLedger(cfg *config.Config) (*ledger, error) {
	gen := config.DevGenesis()
	if cfg.Genesis != "" {
		var err error
		if gen, err = config.LoadGenesis(cfg.Genesis); err != nil {
			return nil, err
		}
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	ns := storage.NewPrefixDB(db, []byte(gen.ChainID+"/"))
	store := utxo.NewStore(ns)
	exec, err := executive.New(store, pieces.Checkers(), crypto.SchnorrVerifier{})
	if err != nil {
		db.Close()
		return nil, err
	}

	l := &ledger{
		db:       db,
		ns:       ns,
		store:    store,
		exec:     exec,
		genesis:  gen,
		payloads: pieces.Payloads(),
		logger:   klog.Ledger.With().Str("chain_id", gen.ChainID).Logger(),
	}
	l.logger.Debug().
		Str("backend", string(cfg.Ledger.Backend)).
		Str("path", cfg.LedgerPath()).
		Msg("Ledger opened")

	// A memory ledger starts empty on every run.
	if cfg.Ledger.Backend == config.BackendMemory {
		if err := l.init(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return l, nil
}

// Close closes the backing database.
func (l *ledger) Close() error {
	return l.db.Close()
}

// init inserts the genesis outputs and records the genesis hash.
func (l *ledger) init() error {
	entries, err := pieces.GenesisEntries(l.genesis)
	if err != nil {
		return err
	}
	h, err := l.genesis.Hash()
	if err != nil {
		return fmt.Errorf("hash genesis: %w", err)
	}
	if err := l.exec.InitGenesis(entries); err != nil {
		return fmt.Errorf("ledger %s: %w", l.genesis.ChainID, err)
	}
	if err := l.ns.Put(metaGenesisKey, h[:]); err != nil {
		return fmt.Errorf("record genesis: %w", err)
	}
	l.logger.Info().Str("genesis", h.String()).Int("outputs", len(entries)).Msg("Ledger initialized")
	return nil
}

// requireInitialized fails unless init has run with the current genesis.
func (l *ledger) requireInitialized() error {
	recorded, err := l.ns.Get(metaGenesisKey)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("ledger %s is not initialized (run ledgerctl init)", l.genesis.ChainID)
	}
	if err != nil {
		return fmt.Errorf("read genesis record: %w", err)
	}
	h, err := l.genesis.Hash()
	if err != nil {
		return fmt.Errorf("hash genesis: %w", err)
	}
	if !bytes.Equal(recorded, h[:]) {
		var got types.Hash
		copy(got[:], recorded)
		return fmt.Errorf("ledger was initialized with genesis %s, config has %s", got, h)
	}
	return nil
}
