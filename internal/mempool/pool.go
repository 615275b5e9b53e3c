// Package mempool holds validated transactions waiting to be applied.
package mempool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-dex/internal/log"
	"github.com/Klingon-tech/klingnet-dex/pkg/constraint"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// DefaultMaxSize is the pool capacity used when none is given.
const DefaultMaxSize = 5000

// Mempool errors.
var (
	ErrAlreadyExists = errors.New("transaction already in mempool")
	ErrConflict      = errors.New("transaction conflicts with existing mempool entry")
	ErrPoolFull      = errors.New("mempool is full")
	ErrValidation    = errors.New("transaction failed validation")
)

// Validator checks a transaction against the current ledger without
// applying it.
type Validator interface {
	Validate(t *tx.Transaction) (constraint.Priority, error)
}

// entry wraps a transaction with its priority and arrival order.
type entry struct {
	tx       *tx.Transaction
	txHash   types.Hash
	priority constraint.Priority
	seq      uint64
}

// before reports whether e is served before o: higher priority first,
// then earlier arrival.
func (e *entry) before(o *entry) bool {
	if e.priority != o.priority {
		return e.priority > o.priority
	}
	return e.seq < o.seq
}

// Pool holds unapplied transactions.
type Pool struct {
	mu        sync.RWMutex
	txs       map[types.Hash]*entry            // txHash -> entry
	spends    map[types.OutputRef]types.Hash   // ref -> txHash (conflict index)
	maxSize   int
	seq       uint64
	validator Validator
	policy    *Policy
	logger    zerolog.Logger
}

// New creates a new mempool that validates with v and holds at most
// maxSize transactions.
func New(v Validator, maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Pool{
		txs:       make(map[types.Hash]*entry),
		spends:    make(map[types.OutputRef]types.Hash),
		maxSize:   maxSize,
		validator: v,
		policy:    DefaultPolicy(),
		logger:    log.Mempool,
	}
}

// SetPolicy replaces the acceptance policy.
func (p *Pool) SetPolicy(policy *Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
}

// Add validates and adds a transaction to the mempool and returns the
// priority its checker assigned. Rejects duplicates and transactions that
// spend an input another pending transaction already spends.
func (p *Pool) Add(transaction *tx.Transaction) (constraint.Priority, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	txHash := transaction.Hash()

	if _, exists := p.txs[txHash]; exists {
		return 0, ErrAlreadyExists
	}

	if p.policy != nil {
		if err := p.policy.Check(transaction); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	for _, in := range transaction.Inputs {
		if conflictHash, exists := p.spends[in.Ref]; exists {
			return 0, fmt.Errorf("%w: input %s already spent by %s", ErrConflict, in.Ref, conflictHash)
		}
	}

	prio, err := p.validator.Validate(transaction)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	p.seq++
	e := &entry{
		tx:       transaction,
		txHash:   txHash,
		priority: prio,
		seq:      p.seq,
	}

	// At capacity the new entry must beat the worst one to get in.
	if len(p.txs) >= p.maxSize {
		worst := p.worstLocked()
		if !e.before(worst) {
			return 0, ErrPoolFull
		}
		p.removeLocked(worst.txHash)
		p.logger.Debug().Str("tx", worst.txHash.String()).Msg("Evicted for higher priority")
	}

	p.txs[txHash] = e
	for _, in := range transaction.Inputs {
		p.spends[in.Ref] = txHash
	}

	p.logger.Debug().
		Str("tx", txHash.String()).
		Str("checker", transaction.Checker).
		Uint64("priority", uint64(prio)).
		Msg("Transaction added")
	return prio, nil
}

// Remove removes a transaction from the mempool by hash.
func (p *Pool) Remove(txHash types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(txHash)
}

func (p *Pool) removeLocked(txHash types.Hash) {
	e, exists := p.txs[txHash]
	if !exists {
		return
	}
	for _, in := range e.tx.Inputs {
		if p.spends[in.Ref] == txHash {
			delete(p.spends, in.Ref)
		}
	}
	delete(p.txs, txHash)
}

// RemoveConfirmed drops transactions that were applied to the ledger,
// together with any pending transaction that spends one of their inputs.
// It returns the number of entries removed.
func (p *Pool) RemoveConfirmed(transactions []*tx.Transaction) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	before := len(p.txs)
	for _, t := range transactions {
		p.removeLocked(t.Hash())
		for _, in := range t.Inputs {
			if other, ok := p.spends[in.Ref]; ok {
				p.removeLocked(other)
			}
		}
	}
	return before - len(p.txs)
}

// Resubmit re-validates every entry against the current ledger, in
// serving order, and drops those that no longer pass. It returns the
// hashes of the dropped transactions.
func (p *Pool) Resubmit() []types.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()

	var dropped []types.Hash
	for _, e := range p.sortedLocked() {
		prio, err := p.validator.Validate(e.tx)
		if err != nil {
			p.removeLocked(e.txHash)
			dropped = append(dropped, e.txHash)
			p.logger.Debug().Err(err).Str("tx", e.txHash.String()).Msg("Dropped on resubmit")
			continue
		}
		e.priority = prio
	}
	return dropped
}

// Has checks if a transaction exists in the mempool.
func (p *Pool) Has(txHash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.txs[txHash]
	return exists
}

// Get retrieves a transaction from the mempool.
func (p *Pool) Get(txHash types.Hash) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[txHash]
	if !exists {
		return nil
	}
	return e.tx
}

// GetPriority returns the priority of a pending transaction (0 if not found).
func (p *Pool) GetPriority(txHash types.Hash) constraint.Priority {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[txHash]
	if !exists {
		return 0
	}
	return e.priority
}

// Count returns the number of transactions in the mempool.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// Hashes returns the hashes of all pending transactions in serving order.
func (p *Pool) Hashes() []types.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := p.sortedLocked()
	hashes := make([]types.Hash, len(entries))
	for i, e := range entries {
		hashes[i] = e.txHash
	}
	return hashes
}

// Pending returns up to limit transactions, highest priority first and
// earliest arrival first among equals. A limit <= 0 returns all.
func (p *Pool) Pending(limit int) []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := p.sortedLocked()
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	result := make([]*tx.Transaction, limit)
	for i := 0; i < limit; i++ {
		result[i] = entries[i].tx
	}
	return result
}

// sortedLocked returns all entries in serving order.
// Must be called with p.mu held.
func (p *Pool) sortedLocked() []*entry {
	entries := make([]*entry, 0, len(p.txs))
	for _, e := range p.txs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].before(entries[j])
	})
	return entries
}

// worstLocked returns the entry served last.
// Must be called with p.mu held and a non-empty pool.
func (p *Pool) worstLocked() *entry {
	var worst *entry
	for _, e := range p.txs {
		if worst == nil || worst.before(e) {
			worst = e
		}
	}
	return worst
}
