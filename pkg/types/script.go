package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"

	"github.com/Klingon-tech/klingnet-dex/pkg/codec"
)

// ScriptType identifies how an output's owner authorizes consumption.
type ScriptType uint8

const (
	ScriptTypeSigCheck   ScriptType = 0x01 // Schnorr signature by a compressed pubkey (data = 33 bytes)
	ScriptTypeP2PKH      ScriptType = 0x02 // Pay to public key hash (data = 20-byte address)
	ScriptTypeUpForGrabs ScriptType = 0x03 // Anyone may consume
	ScriptTypeBurn       ScriptType = 0x11 // Never consumable
	ScriptTypeTest       ScriptType = 0xF0 // Fixture: data[0] != 0 redeems
)

// String returns a human-readable name for the script type.
func (st ScriptType) String() string {
	switch st {
	case ScriptTypeSigCheck:
		return "SigCheck"
	case ScriptTypeP2PKH:
		return "P2PKH"
	case ScriptTypeUpForGrabs:
		return "UpForGrabs"
	case ScriptTypeBurn:
		return "Burn"
	case ScriptTypeTest:
		return "Test"
	default:
		return "Unknown"
	}
}

// Script is the owner credential of an output. Two scripts are the same
// credential exactly when Type and Data are equal.
type Script struct {
	Type ScriptType `json:"type"`
	Data []byte     `json:"data"`
}

// SigCheckScript locks an output to a compressed secp256k1 public key.
func SigCheckScript(pubKey []byte) Script {
	return Script{Type: ScriptTypeSigCheck, Data: append([]byte(nil), pubKey...)}
}

// P2PKHScript locks an output to an address.
func P2PKHScript(addr Address) Script {
	return Script{Type: ScriptTypeP2PKH, Data: addr.Bytes()}
}

// UpForGrabsScript returns a script anyone can redeem.
func UpForGrabsScript() Script {
	return Script{Type: ScriptTypeUpForGrabs}
}

// TestScript returns a fixture script that redeems iff verifies is true.
func TestScript(verifies bool) Script {
	if verifies {
		return Script{Type: ScriptTypeTest, Data: []byte{1}}
	}
	return Script{Type: ScriptTypeTest, Data: []byte{0}}
}

// Equal reports whether s and o are the same credential.
func (s Script) Equal(o Script) bool {
	return s.Type == o.Type && bytes.Equal(s.Data, o.Data)
}

// Encode appends the canonical encoding: type(1) | data_len(4) | data.
func (s Script) Encode(w *codec.Writer) {
	w.Uint8(uint8(s.Type))
	w.Bytes(s.Data)
}

// DecodeScript reads a script written by Encode.
func DecodeScript(r *codec.Reader) Script {
	st := ScriptType(r.Uint8())
	data := r.Bytes()
	if len(data) == 0 {
		data = nil
	}
	return Script{Type: st, Data: data}
}

// scriptJSON is the JSON representation of a Script with hex-encoded data.
type scriptJSON struct {
	Type ScriptType `json:"type"`
	Data string     `json:"data"`
}

// MarshalJSON encodes the script with hex-encoded data.
func (s Script) MarshalJSON() ([]byte, error) {
	return json.Marshal(scriptJSON{
		Type: s.Type,
		Data: hex.EncodeToString(s.Data),
	})
}

// UnmarshalJSON decodes a script with hex-encoded data.
func (s *Script) UnmarshalJSON(data []byte) error {
	var j scriptJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	s.Type = j.Type
	s.Data = nil
	if j.Data != "" {
		b, err := hex.DecodeString(j.Data)
		if err != nil {
			return err
		}
		s.Data = b
	}
	return nil
}
