package utxo

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Commitment computes a merkle root over all live entries in the store.
// Each entry is hashed deterministically, the hashes are sorted, and a
// merkle tree is built from them. Returns a zero hash for an empty set.
func Commitment(store *Store) (types.Hash, error) {
	var hashes []types.Hash

	err := store.ForEach(func(e Entry) error {
		hashes = append(hashes, hashEntry(e))
		return nil
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("utxo commitment: %w", err)
	}

	if len(hashes) == 0 {
		return types.Hash{}, nil
	}

	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})

	return crypto.MerkleRoot(hashes), nil
}

// hashEntry produces a deterministic BLAKE3 hash of an entry.
// Format: ref(32) | owner | payload
func hashEntry(e Entry) types.Hash {
	buf := append([]byte(nil), e.Ref[:]...)
	buf = append(buf, e.Output.Bytes()...)
	return crypto.Hash(buf)
}
