// Package executive runs transactions against the ledger: structural
// checks, pre-validation, the declared constraint checker, and finally
// the atomic ledger update.
package executive

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-dex/internal/log"
	"github.com/Klingon-tech/klingnet-dex/internal/utxo"
	"github.com/Klingon-tech/klingnet-dex/pkg/constraint"
	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Executive errors. Every rejection wraps exactly one of
// ErrPreValidation and ErrConstraint.
var (
	ErrPreValidation  = errors.New("pre-validation failed")
	ErrConstraint     = errors.New("constraint check failed")
	ErrGenesisApplied = errors.New("genesis already applied")
)

// Executive validates and applies transactions. Validation is safe to run
// concurrently; Apply is serialised.
type Executive struct {
	mu       sync.Mutex // serialises Apply and InitGenesis
	ledger   *utxo.Store
	checkers *constraint.Registry
	verifier crypto.Verifier
	logger   zerolog.Logger
}

// New creates an executive over ledger that dispatches on checkers.
func New(ledger *utxo.Store, checkers *constraint.Registry, v crypto.Verifier) (*Executive, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	if checkers == nil {
		return nil, fmt.Errorf("checker registry is nil")
	}
	if v == nil {
		return nil, fmt.Errorf("verifier is nil")
	}
	return &Executive{
		ledger:   ledger,
		checkers: checkers,
		verifier: v,
		logger:   log.Executive,
	}, nil
}

// Ledger returns the store the executive writes to.
func (e *Executive) Ledger() *utxo.Store {
	return e.ledger
}

// Validate runs every check without touching the ledger and returns the
// priority the checker assigned.
func (e *Executive) Validate(t *tx.Transaction) (constraint.Priority, error) {
	prio, err := e.validate(t)
	if err != nil {
		e.logger.Debug().Err(err).Str("tx", t.Hash().String()).Str("checker", t.Checker).Msg("Transaction rejected")
		return 0, err
	}
	return prio, nil
}

func (e *Executive) validate(t *tx.Transaction) (constraint.Priority, error) {
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPreValidation, err)
	}
	resolved, err := t.PreValidate(e.ledger, e.verifier)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPreValidation, err)
	}
	checker, err := e.checkers.Lookup(t.Checker)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	prio, err := checker.CheckFull(resolved.Inputs, resolved.Peeks, t.Outputs)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrConstraint, t.Checker, err)
	}
	return prio, nil
}

// Apply commits the transaction's effect: its inputs are nullified and its
// outputs inserted, as one unit. Apply does not re-run the checker. It
// fails with utxo.ErrSpent if an input or peek is no longer live, which is
// how a transaction that lost a race after validating is rejected.
func (e *Executive) Apply(t *tx.Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(t)
}

func (e *Executive) apply(t *tx.Transaction) error {
	h := t.Hash()

	for i, p := range t.Peeks {
		ok, err := e.ledger.Contains(p.Ref)
		if err != nil {
			return fmt.Errorf("apply %s: %w", h, err)
		}
		if !ok {
			return fmt.Errorf("apply %s: peek %d: %w: %s", h, i, utxo.ErrSpent, p.Ref)
		}
	}

	spend := make([]types.OutputRef, len(t.Inputs))
	for i, in := range t.Inputs {
		spend[i] = in.Ref
	}
	create := make([]utxo.Entry, len(t.Outputs))
	for i, out := range t.Outputs {
		create[i] = utxo.Entry{Ref: types.DeriveOutputRef(h, uint32(i)), Output: out}
	}

	if _, err := e.ledger.Apply(spend, create); err != nil {
		if errors.Is(err, utxo.ErrSpent) || errors.Is(err, utxo.ErrExists) {
			e.logger.Warn().Err(err).Str("tx", h.String()).Msg("Ledger conflict at apply")
		}
		return fmt.Errorf("apply %s: %w", h, err)
	}

	e.logger.Debug().
		Str("tx", h.String()).
		Str("checker", t.Checker).
		Int("spent", len(spend)).
		Int("created", len(create)).
		Msg("Transaction applied")
	return nil
}

// Execute validates t and, if it is accepted, applies it. Validation and
// application happen under the apply lock, so Execute never commits a
// transaction whose inputs changed after it was checked.
func (e *Executive) Execute(t *tx.Transaction) (constraint.Priority, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prio, err := e.Validate(t)
	if err != nil {
		return 0, err
	}
	if err := e.apply(t); err != nil {
		return 0, err
	}
	return prio, nil
}

// InitGenesis inserts the initial ledger entries. It fails with
// ErrGenesisApplied if any of them is already present.
func (e *Executive) InitGenesis(entries []utxo.Entry) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.ledger.Apply(nil, entries); err != nil {
		if errors.Is(err, utxo.ErrExists) {
			return fmt.Errorf("%w: %w", ErrGenesisApplied, err)
		}
		return fmt.Errorf("apply genesis: %w", err)
	}
	e.logger.Info().Int("outputs", len(entries)).Msg("Genesis applied")
	return nil
}
