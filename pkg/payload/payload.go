// Package payload implements typed payloads: a byte encoding tagged with a
// 4-byte type identifier. Every output stores one, which lets a single
// ledger hold coins, orders and any other application record, and lets a
// constraint checker turn the bytes back into a concrete Go type.
package payload

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-dex/pkg/codec"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Extraction errors.
var (
	ErrWrongType   = errors.New("payload type mismatch")
	ErrUndecodable = errors.New("payload does not decode")
)

// Data is implemented by every value that can be stored in an output.
// TypeID must not depend on the receiver's field values.
type Data interface {
	TypeID() types.TypeID
	Encode() []byte
}

// Decoder is implemented by the pointer type of a Data value.
type Decoder interface {
	Decode(data []byte) error
}

// Payload is a tagged, encoded value.
type Payload struct {
	TypeID types.TypeID
	Data   []byte
}

// New encodes d into a payload.
func New(d Data) Payload {
	return Payload{TypeID: d.TypeID(), Data: d.Encode()}
}

// Extract decodes p as a T. It fails with ErrWrongType when the tag is not
// T's tag and with ErrUndecodable when the bytes are not a complete T
// encoding. On failure the zero T is returned, never a partial value.
func Extract[T Data, PT interface {
	*T
	Decoder
}](p Payload) (T, error) {
	var zero T
	want := zero.TypeID()
	if p.TypeID != want {
		return zero, fmt.Errorf("%w: have %s, want %s", ErrWrongType, p.TypeID, want)
	}
	var v T
	if err := PT(&v).Decode(p.Data); err != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrUndecodable, want, err)
	}
	return v, nil
}

// Is reports whether p carries T's tag, without decoding.
func Is[T Data](p Payload) bool {
	var zero T
	return p.TypeID == zero.TypeID()
}

// Encode appends the canonical encoding: type_id(4) | data_len(4) | data.
func (p Payload) Encode(w *codec.Writer) {
	w.Fixed(p.TypeID[:])
	w.Bytes(p.Data)
}

// DecodePayload reads a payload written by Encode.
func DecodePayload(r *codec.Reader) Payload {
	var p Payload
	r.Fixed(p.TypeID[:])
	p.Data = r.Bytes()
	return p
}

// payloadJSON is the JSON representation of a Payload with hex-encoded data.
type payloadJSON struct {
	TypeID types.TypeID `json:"type_id"`
	Data   string       `json:"data"`
}

// MarshalJSON encodes the payload with hex-encoded data.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(payloadJSON{TypeID: p.TypeID, Data: hex.EncodeToString(p.Data)})
}

// UnmarshalJSON decodes a payload with hex-encoded data.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var j payloadJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	b, err := hex.DecodeString(j.Data)
	if err != nil {
		return fmt.Errorf("invalid payload hex: %w", err)
	}
	p.TypeID = j.TypeID
	p.Data = b
	return nil
}
