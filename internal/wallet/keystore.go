package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Klingon-tech/klingnet-dex/internal/log"
	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

const (
	keystoreVersion = 1
	walletExt       = ".wallet"
)

// Keystore errors.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrWalletNotFound = errors.New("wallet not found")
)

// keystoreFile is the on-disk JSON form of a wallet.
type keystoreFile struct {
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	SealedSeed []byte     `json:"sealed_seed"`
	Account    uint32     `json:"account"`
	Keys       []KeyEntry `json:"keys"`
	NextIndex  uint32     `json:"next_index"`
}

// KeyEntry records a derived owner key.
type KeyEntry struct {
	Index   uint32        `json:"index"`
	Label   string        `json:"label,omitempty"`
	Address types.Address `json:"address"`
	PubKey  string        `json:"pubkey"`
}

// Keystore manages encrypted wallets in one directory, one file each.
type Keystore struct {
	mu     sync.Mutex
	dir    string
	Params KDFParams
}

// NewKeystore opens dir, creating it if needed.
func NewKeystore(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{dir: dir, Params: DefaultKDFParams()}, nil
}

func (ks *Keystore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid wallet name %q", name)
	}
	return filepath.Join(ks.dir, name+walletExt), nil
}

// Create stores the seed of mnemonic under name, sealed with password.
func (ks *Keystore) Create(name, mnemonic string, password []byte) error {
	seed, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return err
	}
	defer zero(seed)

	ks.mu.Lock()
	defer ks.mu.Unlock()

	path, err := ks.path(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrWalletExists, name)
	}

	sealed, err := Seal(seed, password, ks.Params)
	if err != nil {
		return fmt.Errorf("seal seed: %w", err)
	}
	if err := writeKeystoreFile(path, &keystoreFile{
		Version:    keystoreVersion,
		CreatedAt:  time.Now().UTC(),
		SealedSeed: sealed,
		Keys:       []KeyEntry{},
	}); err != nil {
		return err
	}
	log.Wallet.Info().Str("wallet", name).Msg("Wallet created")
	return nil
}

// unlock opens the wallet and derives its account node.
func (ks *Keystore) unlock(name string, password []byte) (string, *keystoreFile, *HDKey, error) {
	path, err := ks.path(name)
	if err != nil {
		return "", nil, nil, err
	}
	kf, err := readKeystoreFile(path)
	if err != nil {
		return "", nil, nil, err
	}
	seed, err := Open(kf.SealedSeed, password)
	if err != nil {
		return "", nil, nil, fmt.Errorf("unlock %s: %w", name, err)
	}
	defer zero(seed)
	master, err := NewMasterKey(seed)
	if err != nil {
		return "", nil, nil, err
	}
	return path, kf, master, nil
}

// NewKey derives the next owner key of a wallet and records it.
func (ks *Keystore) NewKey(name string, password []byte, label string) (KeyEntry, *crypto.PrivateKey, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	path, kf, master, err := ks.unlock(name, password)
	if err != nil {
		return KeyEntry{}, nil, err
	}
	node, err := master.DeriveOwner(kf.Account, kf.NextIndex)
	if err != nil {
		return KeyEntry{}, nil, err
	}
	key, err := node.PrivateKey()
	if err != nil {
		return KeyEntry{}, nil, err
	}

	entry := KeyEntry{
		Index:   kf.NextIndex,
		Label:   label,
		Address: node.Address(),
		PubKey:  fmt.Sprintf("%x", node.PublicKey()),
	}
	kf.Keys = append(kf.Keys, entry)
	kf.NextIndex++
	if err := writeKeystoreFile(path, kf); err != nil {
		key.Zero()
		return KeyEntry{}, nil, err
	}
	log.Wallet.Debug().
		Str("wallet", name).
		Uint32("index", entry.Index).
		Str("address", entry.Address.String()).
		Msg("Derived owner key")
	return entry, key, nil
}

// Key re-derives the key at index.
func (ks *Keystore) Key(name string, password []byte, index uint32) (*crypto.PrivateKey, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	_, kf, master, err := ks.unlock(name, password)
	if err != nil {
		return nil, err
	}
	node, err := master.DeriveOwner(kf.Account, index)
	if err != nil {
		return nil, err
	}
	return node.PrivateKey()
}

// Signers derives every recorded key of a wallet, keyed by address.
func (ks *Keystore) Signers(name string, password []byte) (map[types.Address]*crypto.PrivateKey, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	_, kf, master, err := ks.unlock(name, password)
	if err != nil {
		return nil, err
	}
	signers := make(map[types.Address]*crypto.PrivateKey, len(kf.Keys))
	for _, e := range kf.Keys {
		node, err := master.DeriveOwner(kf.Account, e.Index)
		if err != nil {
			return nil, err
		}
		key, err := node.PrivateKey()
		if err != nil {
			return nil, err
		}
		signers[node.Address()] = key
	}
	return signers, nil
}

// Keys lists the recorded keys of a wallet without unlocking it.
func (ks *Keystore) Keys(name string) ([]KeyEntry, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	path, err := ks.path(name)
	if err != nil {
		return nil, err
	}
	kf, err := readKeystoreFile(path)
	if err != nil {
		return nil, err
	}
	return kf.Keys, nil
}

// List returns the wallet names in the keystore, sorted.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == walletExt {
			names = append(names, strings.TrimSuffix(e.Name(), walletExt))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	path, err := ks.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrWalletNotFound, name)
		}
		return err
	}
	return nil
}

func writeKeystoreFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return os.Rename(tmp, path)
}

func readKeystoreFile(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, strings.TrimSuffix(filepath.Base(path), walletExt))
		}
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}
