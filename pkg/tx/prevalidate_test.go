package tx

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// mapProvider is an in-memory OutputProvider.
type mapProvider map[types.OutputRef]Output

func (m mapProvider) Peek(ref types.OutputRef) (*Output, error) {
	out, ok := m[ref]
	if !ok {
		return nil, nil
	}
	return &out, nil
}

var errBackend = errors.New("backend down")

type failingProvider struct{}

func (failingProvider) Peek(types.OutputRef) (*Output, error) { return nil, errBackend }

func TestPreValidate_Success(t *testing.T) {
	ledger := mapProvider{
		{1}: NewOutput(types.TestScript(true), note{V: 10}),
		{2}: NewOutput(types.UpForGrabsScript(), note{V: 20}),
		{3}: NewOutput(types.TestScript(false), note{V: 30}),
	}
	tx := &Transaction{
		Checker: "note",
		Inputs:  []Input{{Ref: types.OutputRef{2}}, {Ref: types.OutputRef{1}}},
		Peeks:   []Input{{Ref: types.OutputRef{3}}},
	}

	res, err := tx.PreValidate(ledger, crypto.SchnorrVerifier{})
	if err != nil {
		t.Fatalf("PreValidate() error: %v", err)
	}
	if len(res.Inputs) != 2 || len(res.Peeks) != 1 {
		t.Fatalf("resolved %d inputs, %d peeks", len(res.Inputs), len(res.Peeks))
	}
	// Resolution preserves transaction order.
	if res.Inputs[0].Payload.Data[0] != 20 || res.Inputs[1].Payload.Data[0] != 10 {
		t.Error("resolved inputs are out of order")
	}
	// Peeked outputs are not redeemed, so a non-verifying owner is fine.
	if res.Peeks[0].Payload.Data[0] != 30 {
		t.Error("wrong peeked output")
	}
}

func TestPreValidate_NoPeeksIsNil(t *testing.T) {
	ledger := mapProvider{{1}: NewOutput(types.UpForGrabsScript(), note{})}
	tx := &Transaction{Checker: "note", Inputs: []Input{{Ref: types.OutputRef{1}}}}
	res, err := tx.PreValidate(ledger, crypto.SchnorrVerifier{})
	if err != nil {
		t.Fatalf("PreValidate() error: %v", err)
	}
	if res.Peeks != nil {
		t.Errorf("Peeks = %v, want nil", res.Peeks)
	}
}

func TestPreValidate_Failures(t *testing.T) {
	ledger := mapProvider{
		{1}: NewOutput(types.TestScript(true), note{}),
		{2}: NewOutput(types.TestScript(false), note{}),
		{3}: NewOutput(types.Script{Type: types.ScriptTypeBurn}, note{}),
	}

	tests := []struct {
		name string
		tx   *Transaction
		want error
	}{
		{
			"duplicate input",
			&Transaction{Inputs: []Input{{Ref: types.OutputRef{1}}, {Ref: types.OutputRef{1}}}},
			ErrDuplicateInput,
		},
		{
			"missing input",
			&Transaction{Inputs: []Input{{Ref: types.OutputRef{1}}, {Ref: types.OutputRef{9}}}},
			ErrInputNotFound,
		},
		{
			"redeemer rejects",
			&Transaction{Inputs: []Input{{Ref: types.OutputRef{2}}}},
			ErrRedeemFailed,
		},
		{
			"burned output",
			&Transaction{Inputs: []Input{{Ref: types.OutputRef{3}}}},
			ErrRedeemFailed,
		},
		{
			"missing peek",
			&Transaction{Inputs: []Input{{Ref: types.OutputRef{1}}}, Peeks: []Input{{Ref: types.OutputRef{8}}}},
			ErrPeekNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.tx.PreValidate(ledger, crypto.SchnorrVerifier{})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
			if res != nil {
				t.Error("failed pre-validation returned a result")
			}
		})
	}
}

func TestPreValidate_FirstFailureWins(t *testing.T) {
	// Input 0 fails redemption before input 1 is found missing.
	ledger := mapProvider{{2}: NewOutput(types.TestScript(false), note{})}
	tx := &Transaction{Inputs: []Input{{Ref: types.OutputRef{2}}, {Ref: types.OutputRef{9}}}}
	_, err := tx.PreValidate(ledger, crypto.SchnorrVerifier{})
	if !errors.Is(err, ErrRedeemFailed) {
		t.Errorf("expected ErrRedeemFailed, got: %v", err)
	}
}

func TestPreValidate_ProviderError(t *testing.T) {
	tx := &Transaction{Inputs: []Input{{Ref: types.OutputRef{1}}}}
	_, err := tx.PreValidate(failingProvider{}, crypto.SchnorrVerifier{})
	if !errors.Is(err, errBackend) {
		t.Errorf("expected backend error, got: %v", err)
	}
}

func TestPreValidate_Signatures(t *testing.T) {
	key, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()
	owner := types.SigCheckScript(key.PublicKey())
	ledger := mapProvider{{1}: NewOutput(owner, note{V: 1})}

	build := func(k *crypto.PrivateKey) *Transaction {
		b := NewBuilder("note").AddInput(types.OutputRef{1}).
			AddOutput(types.UpForGrabsScript(), note{V: 1})
		if err := b.Sign(k); err != nil {
			t.Fatalf("Sign() error: %v", err)
		}
		return b.Build()
	}

	if _, err := build(key).PreValidate(ledger, crypto.SchnorrVerifier{}); err != nil {
		t.Errorf("correctly signed tx rejected: %v", err)
	}
	if _, err := build(other).PreValidate(ledger, crypto.SchnorrVerifier{}); !errors.Is(err, ErrRedeemFailed) {
		t.Errorf("wrong key: expected ErrRedeemFailed, got: %v", err)
	}

	// Changing an output after signing invalidates the witness.
	tampered := build(key)
	tampered.Outputs[0] = NewOutput(types.UpForGrabsScript(), note{V: 2})
	if _, err := tampered.PreValidate(ledger, crypto.SchnorrVerifier{}); !errors.Is(err, ErrRedeemFailed) {
		t.Errorf("tampered output: expected ErrRedeemFailed, got: %v", err)
	}
}
