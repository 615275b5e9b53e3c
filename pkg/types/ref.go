package types

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// OutputRef is the opaque identifier of a ledger output. The ledger never
// interprets it; it only has to be unique.
type OutputRef Hash

// DeriveOutputRef computes the reference of the output at index in the
// transaction with the given hash: BLAKE2b-256(tx_hash || index_le32).
func DeriveOutputRef(txHash Hash, index uint32) OutputRef {
	var buf [HashSize + 4]byte
	copy(buf[:HashSize], txHash[:])
	binary.LittleEndian.PutUint32(buf[HashSize:], index)
	return OutputRef(blake2b.Sum256(buf[:]))
}

// IsZero returns true if the reference is all zeros.
func (r OutputRef) IsZero() bool {
	return Hash(r).IsZero()
}

// String returns the hex-encoded reference.
func (r OutputRef) String() string {
	return Hash(r).String()
}

// Base58 returns the base58-encoded reference.
func (r OutputRef) Base58() string {
	return base58.Encode(r[:])
}

// MarshalJSON encodes the reference as a hex string.
func (r OutputRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a hex or base58 string into a reference.
func (r *OutputRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOutputRef(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseOutputRef parses a 64-character hex string or a base58 string.
func ParseOutputRef(s string) (OutputRef, error) {
	if s == "" {
		return OutputRef{}, fmt.Errorf("empty output reference")
	}
	var b []byte
	if len(s) == 2*HashSize {
		decoded, err := hex.DecodeString(s)
		if err == nil {
			b = decoded
		}
	}
	if b == nil {
		decoded, err := base58.Decode(s)
		if err != nil {
			return OutputRef{}, fmt.Errorf("invalid output reference %q: %w", s, err)
		}
		b = decoded
	}
	if len(b) != HashSize {
		return OutputRef{}, fmt.Errorf("output reference must be %d bytes, got %d", HashSize, len(b))
	}
	var r OutputRef
	copy(r[:], b)
	return r, nil
}
