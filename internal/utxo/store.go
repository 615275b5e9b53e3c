package utxo

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-dex/internal/storage"
	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Apply errors. A failed Apply leaves the store unchanged.
var (
	ErrSpent  = errors.New("output not live")
	ErrExists = errors.New("output already exists")
)

// Key prefixes for the ledger store.
var (
	prefixUTXO = []byte("u/") // u/<ref> -> canonical output bytes
	prefixAddr = []byte("a/") // a/<address><ref> -> empty (owner index)
)

// Store implements Set backed by a storage.DB.
type Store struct {
	mu sync.Mutex // serialises mutation; reads go straight to the db
	db storage.DB
}

// NewStore creates a new ledger store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

var _ Set = (*Store)(nil)
var _ tx.OutputProvider = (*Store)(nil)

// utxoKey builds a storage key for a reference: "u/" + ref(32).
func utxoKey(ref types.OutputRef) []byte {
	key := make([]byte, len(prefixUTXO)+types.HashSize)
	copy(key, prefixUTXO)
	copy(key[len(prefixUTXO):], ref[:])
	return key
}

// addrKey builds an owner index key: "a/" + addr(20) + ref(32).
func addrKey(addr types.Address, ref types.OutputRef) []byte {
	key := make([]byte, len(prefixAddr)+types.AddressSize+types.HashSize)
	copy(key, prefixAddr)
	copy(key[len(prefixAddr):], addr[:])
	copy(key[len(prefixAddr)+types.AddressSize:], ref[:])
	return key
}

// ownerAddress returns the address behind an owner script, if it has one.
// P2PKH carries the address; SigCheck carries the key it is derived from.
func ownerAddress(s types.Script) (types.Address, bool) {
	switch s.Type {
	case types.ScriptTypeP2PKH:
		if len(s.Data) == types.AddressSize {
			var addr types.Address
			copy(addr[:], s.Data)
			return addr, true
		}
	case types.ScriptTypeSigCheck:
		if len(s.Data) == crypto.PubKeySize {
			return crypto.AddressFromPubKey(s.Data), true
		}
	}
	return types.Address{}, false
}

func putEntry(b storage.Batch, ref types.OutputRef, out tx.Output) error {
	if err := b.Put(utxoKey(ref), out.Bytes()); err != nil {
		return err
	}
	if addr, ok := ownerAddress(out.Owner); ok {
		return b.Put(addrKey(addr, ref), []byte{})
	}
	return nil
}

func deleteEntry(b storage.Batch, ref types.OutputRef, out tx.Output) error {
	if err := b.Delete(utxoKey(ref)); err != nil {
		return err
	}
	if addr, ok := ownerAddress(out.Owner); ok {
		return b.Delete(addrKey(addr, ref))
	}
	return nil
}

// Contains reports whether ref is live.
func (s *Store) Contains(ref types.OutputRef) (bool, error) {
	ok, err := s.db.Has(utxoKey(ref))
	if err != nil {
		return false, fmt.Errorf("utxo contains: %w", err)
	}
	return ok, nil
}

// Peek returns the live output under ref without modifying the store,
// or nil if there is none.
func (s *Store) Peek(ref types.OutputRef) (*tx.Output, error) {
	data, err := s.db.Get(utxoKey(ref))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("utxo peek: %w", err)
	}
	out, err := tx.ParseOutput(data)
	if err != nil {
		return nil, fmt.Errorf("utxo peek %s: %w", ref, err)
	}
	return &out, nil
}

// Insert stores out under ref. It returns false, and changes nothing,
// if ref is already live.
func (s *Store) Insert(ref types.OutputRef, out tx.Output) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.db.Has(utxoKey(ref))
	if err != nil {
		return false, fmt.Errorf("utxo insert: %w", err)
	}
	if ok {
		return false, nil
	}

	b := storage.NewBatch(s.db)
	if err := putEntry(b, ref, out); err != nil {
		return false, fmt.Errorf("utxo insert: %w", err)
	}
	if err := b.Commit(); err != nil {
		return false, fmt.Errorf("utxo insert: %w", err)
	}
	return true, nil
}

// Nullify removes and returns the live output under ref, or nil if there
// is none. At most one caller ever receives a given output.
func (s *Store) Nullify(ref types.OutputRef) (*tx.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.Peek(ref)
	if err != nil || out == nil {
		return nil, err
	}

	b := storage.NewBatch(s.db)
	if err := deleteEntry(b, ref, *out); err != nil {
		return nil, fmt.Errorf("utxo nullify: %w", err)
	}
	if err := b.Commit(); err != nil {
		return nil, fmt.Errorf("utxo nullify: %w", err)
	}
	return out, nil
}

// Apply nullifies every ref in spend and inserts every entry in create as
// one unit. If any spend is not live it fails with ErrSpent; if any
// create is already live (or listed twice) it fails with ErrExists. In
// both cases nothing is written. Apply returns the nullified outputs in
// spend order.
func (s *Store) Apply(spend []types.OutputRef, create []Entry) ([]tx.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := storage.NewBatch(s.db)
	spent := make([]tx.Output, 0, len(spend))
	seen := make(map[types.OutputRef]struct{}, len(spend))
	for _, ref := range spend {
		if _, dup := seen[ref]; dup {
			return nil, fmt.Errorf("%w: %s spent twice", ErrSpent, ref)
		}
		seen[ref] = struct{}{}

		out, err := s.Peek(ref)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, fmt.Errorf("%w: %s", ErrSpent, ref)
		}
		if err := deleteEntry(b, ref, *out); err != nil {
			return nil, fmt.Errorf("utxo apply: %w", err)
		}
		spent = append(spent, *out)
	}

	created := make(map[types.OutputRef]struct{}, len(create))
	for _, e := range create {
		if _, dup := created[e.Ref]; dup {
			return nil, fmt.Errorf("%w: %s created twice", ErrExists, e.Ref)
		}
		created[e.Ref] = struct{}{}

		ok, err := s.db.Has(utxoKey(e.Ref))
		if err != nil {
			return nil, fmt.Errorf("utxo apply: %w", err)
		}
		if ok {
			return nil, fmt.Errorf("%w: %s", ErrExists, e.Ref)
		}
		if err := putEntry(b, e.Ref, e.Output); err != nil {
			return nil, fmt.Errorf("utxo apply: %w", err)
		}
	}

	if err := b.Commit(); err != nil {
		return nil, fmt.Errorf("utxo apply commit: %w", err)
	}
	return spent, nil
}

// ForEach iterates over all live entries in reference order.
func (s *Store) ForEach(fn func(Entry) error) error {
	return s.db.ForEach(prefixUTXO, func(key, value []byte) error {
		if len(key) != len(prefixUTXO)+types.HashSize {
			return nil // Malformed key, skip.
		}
		var ref types.OutputRef
		copy(ref[:], key[len(prefixUTXO):])
		out, err := tx.ParseOutput(value)
		if err != nil {
			return fmt.Errorf("utxo %s: %w", ref, err)
		}
		return fn(Entry{Ref: ref, Output: out})
	})
}

// GetByAddress returns all live entries owned by the given address.
// It scans the owner index and loads each referenced output.
func (s *Store) GetByAddress(addr types.Address) ([]Entry, error) {
	prefix := make([]byte, len(prefixAddr)+types.AddressSize)
	copy(prefix, prefixAddr)
	copy(prefix[len(prefixAddr):], addr[:])

	var entries []Entry
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		if len(key) != len(prefix)+types.HashSize {
			return nil // Malformed key, skip.
		}
		var ref types.OutputRef
		copy(ref[:], key[len(prefix):])

		out, err := s.Peek(ref)
		if err != nil {
			return err
		}
		if out == nil {
			return nil // Index entry outlived its output, skip.
		}
		entries = append(entries, Entry{Ref: ref, Output: *out})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan address index: %w", err)
	}
	return entries, nil
}

// ClearAll removes every entry and index key in one batch.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := storage.NewBatch(s.db)
	for _, prefix := range [][]byte{prefixUTXO, prefixAddr} {
		if err := s.db.ForEach(prefix, func(key, _ []byte) error {
			return b.Delete(key)
		}); err != nil {
			return fmt.Errorf("scan prefix %s: %w", prefix, err)
		}
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("clear utxo set: %w", err)
	}
	return nil
}
