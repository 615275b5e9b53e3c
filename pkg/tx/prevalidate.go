package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Pre-validation errors.
var (
	ErrInputNotFound = errors.New("input not found")
	ErrPeekNotFound  = errors.New("peeked output not found")
	ErrRedeemFailed  = errors.New("redeemer rejected witness")
)

// OutputProvider gives read-only access to the ledger for validation.
// Peek returns nil, nil when the reference is not live.
type OutputProvider interface {
	Peek(ref types.OutputRef) (*Output, error)
}

// Resolved holds the live outputs a transaction consumes and peeks, in
// transaction order. It is what the constraint checker sees on the input side.
type Resolved struct {
	Inputs []Output
	Peeks  []Output
}

// PreValidate checks that every input names a distinct live output whose
// owner is satisfied by the input's witness, and that every peek names a
// live output. The first failure aborts. The ledger is not modified.
func (tx *Transaction) PreValidate(provider OutputProvider, v crypto.Verifier) (*Resolved, error) {
	if err := checkDuplicates(tx.Inputs); err != nil {
		return nil, err
	}

	res := &Resolved{Inputs: make([]Output, 0, len(tx.Inputs))}
	var msg []byte
	for i, in := range tx.Inputs {
		out, err := provider.Peek(in.Ref)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		if out == nil {
			return nil, fmt.Errorf("input %d (%s): %w", i, in.Ref, ErrInputNotFound)
		}
		if msg == nil {
			msg = tx.SigningBytes()
		}
		if !Redeem(out.Owner, msg, in.Witness, v) {
			return nil, fmt.Errorf("input %d (%s): %w: %s owner", i, in.Ref, ErrRedeemFailed, out.Owner.Type)
		}
		res.Inputs = append(res.Inputs, *out)
	}

	if len(tx.Peeks) > 0 {
		res.Peeks = make([]Output, 0, len(tx.Peeks))
	}
	for i, p := range tx.Peeks {
		out, err := provider.Peek(p.Ref)
		if err != nil {
			return nil, fmt.Errorf("peek %d: %w", i, err)
		}
		if out == nil {
			return nil, fmt.Errorf("peek %d (%s): %w", i, p.Ref, ErrPeekNotFound)
		}
		res.Peeks = append(res.Peeks, *out)
	}
	return res, nil
}
