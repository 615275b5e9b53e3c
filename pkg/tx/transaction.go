// Package tx defines ledger transactions, their canonical encoding and the
// pre-validation that runs before any constraint checker.
package tx

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-dex/pkg/codec"
	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Transaction consumes existing outputs, reads others without consuming
// them, and creates new ones. Checker names the constraint checker that
// decides whether the transition is admissible.
type Transaction struct {
	Checker string   `json:"checker"`
	Inputs  []Input  `json:"inputs"`
	Peeks   []Input  `json:"peeks,omitempty"`
	Outputs []Output `json:"outputs"`
}

// Input references an output being consumed (or peeked) together with the
// witness that satisfies its owner.
type Input struct {
	Ref     types.OutputRef `json:"ref"`
	Witness []byte          `json:"witness"`
}

// inputJSON is the JSON representation of Input with a hex-encoded witness.
type inputJSON struct {
	Ref     types.OutputRef `json:"ref"`
	Witness string          `json:"witness"`
}

// MarshalJSON encodes the input with a hex-encoded witness.
func (in Input) MarshalJSON() ([]byte, error) {
	return json.Marshal(inputJSON{Ref: in.Ref, Witness: hex.EncodeToString(in.Witness)})
}

// UnmarshalJSON decodes an input with a hex-encoded witness.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	in.Ref = j.Ref
	in.Witness = nil
	if j.Witness != "" {
		b, err := hex.DecodeString(j.Witness)
		if err != nil {
			return fmt.Errorf("invalid witness hex: %w", err)
		}
		in.Witness = b
	}
	return nil
}

// Output is a ledger record: who may consume it and what it holds.
type Output struct {
	Owner   types.Script    `json:"owner"`
	Payload payload.Payload `json:"payload"`
}

// NewOutput builds an output holding d.
func NewOutput(owner types.Script, d payload.Data) Output {
	return Output{Owner: owner, Payload: payload.New(d)}
}

// Encode appends the canonical output encoding: owner | payload.
func (o Output) Encode(w *codec.Writer) {
	o.Owner.Encode(w)
	o.Payload.Encode(w)
}

// Bytes returns the standalone canonical encoding of the output.
func (o Output) Bytes() []byte {
	w := codec.NewWriter(16 + len(o.Owner.Data) + len(o.Payload.Data))
	o.Encode(w)
	return w.Finish()
}

// DecodeOutput reads an output written by Encode.
func DecodeOutput(r *codec.Reader) Output {
	owner := types.DecodeScript(r)
	p := payload.DecodePayload(r)
	return Output{Owner: owner, Payload: p}
}

// ParseOutput decodes a standalone output encoding produced by Bytes.
func ParseOutput(data []byte) (Output, error) {
	r := codec.NewReader(data)
	out := DecodeOutput(r)
	if err := r.Finish(); err != nil {
		return Output{}, fmt.Errorf("decode output: %w", err)
	}
	return out, nil
}

// Hash computes the transaction ID (BLAKE3 of the signing bytes).
// Witnesses are excluded so that signing does not change the ID.
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.SigningBytes())
}

// OutputRef returns the reference the ledger stores the i-th output under.
func (tx *Transaction) OutputRef(i int) types.OutputRef {
	return types.DeriveOutputRef(tx.Hash(), uint32(i))
}

// SigningBytes returns the canonical byte representation used for signing.
// Format: checker | input_count(4) | [ref(32)]... | peek_count(4) | [ref(32)]... |
// output_count(4) | [owner | payload]...
func (tx *Transaction) SigningBytes() []byte {
	return tx.encode(false)
}

// Encode returns the full canonical encoding, witnesses included.
func (tx *Transaction) Encode() []byte {
	return tx.encode(true)
}

func (tx *Transaction) encode(withWitness bool) []byte {
	w := codec.NewWriter(256)
	w.Bytes([]byte(tx.Checker))
	writeInputs := func(ins []Input) {
		w.Uint32(uint32(len(ins)))
		for _, in := range ins {
			w.Fixed(in.Ref[:])
			if withWitness {
				w.Bytes(in.Witness)
			}
		}
	}
	writeInputs(tx.Inputs)
	writeInputs(tx.Peeks)
	w.Uint32(uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		out.Encode(w)
	}
	return w.Finish()
}

// Minimum encoded sizes, used to bound counts read from untrusted input.
const (
	minInputSize  = types.HashSize + 4
	minOutputSize = 1 + 4 + types.TypeIDSize + 4
)

// Decode parses a transaction produced by Encode. Absent peeks decode as nil.
func Decode(data []byte) (*Transaction, error) {
	r := codec.NewReader(data)
	tx := &Transaction{Checker: string(r.Bytes())}
	tx.Inputs = readInputs(r)
	tx.Peeks = readInputs(r)
	if n := r.Count(minOutputSize); n > 0 {
		tx.Outputs = make([]Output, n)
		for i := range tx.Outputs {
			tx.Outputs[i] = DecodeOutput(r)
		}
	}
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

func readInputs(r *codec.Reader) []Input {
	n := r.Count(minInputSize)
	if n == 0 {
		return nil
	}
	ins := make([]Input, n)
	for i := range ins {
		r.Fixed(ins[i].Ref[:])
		ins[i].Witness = r.Bytes()
		if len(ins[i].Witness) == 0 {
			ins[i].Witness = nil
		}
	}
	return ins
}
