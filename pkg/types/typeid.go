package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// TypeIDSize is the length of a payload type tag.
const TypeIDSize = 4

// TypeID tags the encoding of a typed payload.
type TypeID [TypeIDSize]byte

// String returns the tag as text when every byte is printable ASCII,
// otherwise as hex.
func (t TypeID) String() string {
	for _, c := range t {
		if c < 0x20 || c > 0x7e {
			return "0x" + hex.EncodeToString(t[:])
		}
	}
	return string(t[:])
}

// MarshalJSON encodes the tag as a hex string.
func (t TypeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(t[:]))
}

// UnmarshalJSON decodes a hex string into a tag.
func (t *TypeID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid type id hex: %w", err)
	}
	if len(b) != TypeIDSize {
		return fmt.Errorf("type id must be %d bytes, got %d", TypeIDSize, len(b))
	}
	copy(t[:], b)
	return nil
}
