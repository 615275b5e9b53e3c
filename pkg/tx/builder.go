package tx

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a builder for a transaction dispatched to checker.
func NewBuilder(checker string) *Builder {
	return &Builder{
		tx: &Transaction{Checker: checker},
	}
}

// NewBuilderFrom continues building t in place, typically to sign a
// transaction read from disk.
func NewBuilderFrom(t *Transaction) *Builder {
	return &Builder{tx: t}
}

// AddInput adds an input consuming ref.
func (b *Builder) AddInput(ref types.OutputRef) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{Ref: ref})
	return b
}

// AddPeek adds a read-only reference to ref.
func (b *Builder) AddPeek(ref types.OutputRef) *Builder {
	b.tx.Peeks = append(b.tx.Peeks, Input{Ref: ref})
	return b
}

// AddOutput adds an output holding d, owned by owner.
func (b *Builder) AddOutput(owner types.Script, d payload.Data) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, NewOutput(owner, d))
	return b
}

// AddRawOutput adds a pre-built output.
func (b *Builder) AddRawOutput(out Output) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, out)
	return b
}

// SetWitness sets the witness of input i directly.
func (b *Builder) SetWitness(i int, witness []byte) *Builder {
	b.tx.Inputs[i].Witness = witness
	return b
}

// Sign signs all inputs with key, assuming SigCheck owners.
// Each input gets the same signature (single-key spending).
func (b *Builder) Sign(key *crypto.PrivateKey) error {
	sig, err := key.Sign(b.tx.SigningBytes())
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	for i := range b.tx.Inputs {
		b.tx.Inputs[i].Witness = sig
	}
	return nil
}

// SignMulti signs each input with the key that owns it.
// owners maps each input's reference to the owner script of the output it
// consumes; signers maps addresses to keys. Inputs whose owner needs no
// signature are left untouched.
func (b *Builder) SignMulti(
	owners map[types.OutputRef]types.Script,
	signers map[types.Address]*crypto.PrivateKey,
) error {
	msg := b.tx.SigningBytes()

	for i := range b.tx.Inputs {
		ref := b.tx.Inputs[i].Ref
		owner, ok := owners[ref]
		if !ok {
			return fmt.Errorf("no owner mapping for input %d (%s)", i, ref)
		}

		var addr types.Address
		switch owner.Type {
		case types.ScriptTypeSigCheck:
			addr = crypto.AddressFromPubKey(owner.Data)
		case types.ScriptTypeP2PKH:
			copy(addr[:], owner.Data)
		default:
			continue
		}
		key, ok := signers[addr]
		if !ok {
			return fmt.Errorf("no signer for address %s (input %d)", addr, i)
		}
		w, err := SignWitness(owner, msg, key)
		if err != nil {
			return fmt.Errorf("sign input %d: %w", i, err)
		}
		b.tx.Inputs[i].Witness = w
	}
	return nil
}

// Build returns the constructed transaction.
// Does NOT validate; call tx.Validate() separately.
func (b *Builder) Build() *Transaction {
	return b.tx
}
