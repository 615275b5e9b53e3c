package pieces

import (
	"errors"
	"testing"

	"lukechampine.com/uint128"

	"github.com/Klingon-tech/klingnet-dex/config"
	"github.com/Klingon-tech/klingnet-dex/pkg/constraint"
	"github.com/Klingon-tech/klingnet-dex/pkg/dex"
	"github.com/Klingon-tech/klingnet-dex/pkg/money"
	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

func TestCheckers_Kinds(t *testing.T) {
	want := []string{TagMakeAB, TagMakeBA, TagMatchPair, TagMintA, TagMintB, TagSpendA, TagSpendB}
	got := Checkers().Kinds()
	if len(got) != len(want) {
		t.Fatalf("Kinds() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Kinds() = %v, want %v", got, want)
		}
	}
}

func TestCheckers_Dispatch(t *testing.T) {
	r := Checkers()
	owner := types.UpForGrabsScript()

	tests := []struct {
		tag     string
		inputs  []tx.Output
		outputs []tx.Output
		wantErr error
	}{
		{
			tag:     TagMintA,
			outputs: []tx.Output{tx.NewOutput(owner, money.NewCoin[money.TokenA](5))},
		},
		{
			tag:     TagMintA,
			outputs: []tx.Output{tx.NewOutput(owner, money.NewCoin[money.TokenB](5))},
			wantErr: money.ErrBadlyTyped,
		},
		{
			tag:     TagSpendB,
			inputs:  []tx.Output{tx.NewOutput(owner, money.NewCoin[money.TokenB](5))},
			outputs: []tx.Output{tx.NewOutput(owner, money.NewCoin[money.TokenB](6))},
			wantErr: money.ErrOutputsExceedInputs,
		},
		{
			tag:    TagMakeBA,
			inputs: []tx.Output{tx.NewOutput(owner, money.NewCoin[money.TokenB](5))},
			outputs: []tx.Output{tx.NewOutput(owner, dex.Order[money.TokenB, money.TokenA]{
				OfferAmount:    uint128.From64(5),
				AskAmount:      uint128.From64(1),
				PayoutVerifier: owner,
			})},
		},
		{
			tag:     TagMakeAB,
			inputs:  []tx.Output{tx.NewOutput(owner, money.NewCoin[money.TokenB](5))},
			outputs: []tx.Output{tx.NewOutput(owner, money.NewCoin[money.TokenB](5))},
			wantErr: dex.ErrTypeError,
		},
		{
			tag: TagMatchPair,
		},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			c, err := r.Lookup(tt.tag)
			if err != nil {
				t.Fatalf("Lookup(%q) error: %v", tt.tag, err)
			}
			_, err = c.CheckFull(tt.inputs, nil, tt.outputs)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("CheckFull() error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckFull() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := r.Lookup("dex/match/ba"); !errors.Is(err, constraint.ErrUnknownChecker) {
		t.Errorf("Lookup(unknown) error = %v, want ErrUnknownChecker", err)
	}
}

func TestPayloads(t *testing.T) {
	r := Payloads()
	if n := len(r.Types()); n != 4 {
		t.Fatalf("registered %d payload types, want 4", n)
	}

	tests := []struct {
		data payload.Data
		name string
	}{
		{money.NewCoin[money.TokenA](1), "coin/a"},
		{money.NewCoin[money.TokenB](1), "coin/b"},
		{dex.Order[money.TokenA, money.TokenB]{PayoutVerifier: types.UpForGrabsScript()}, "order/ab"},
		{dex.Order[money.TokenB, money.TokenA]{PayoutVerifier: types.UpForGrabsScript()}, "order/ba"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := r.Name(tt.data.TypeID())
			if !ok || name != tt.name {
				t.Fatalf("Name() = %q, %v; want %q", name, ok, tt.name)
			}
			if _, err := r.Decode(payload.New(tt.data)); err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
		})
	}
}

func TestGenesisEntries(t *testing.T) {
	gen := config.DevGenesis()
	entries, err := GenesisEntries(gen)
	if err != nil {
		t.Fatalf("GenesisEntries() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	h, _ := gen.Hash()
	if entries[0].Ref != types.DeriveOutputRef(h, 0) || entries[1].Ref != types.DeriveOutputRef(h, 1) {
		t.Error("genesis refs not derived from the genesis hash")
	}
	a, err := payload.Extract[money.Coin[money.TokenA]](entries[0].Output.Payload)
	if err != nil || !a.Value.Equals64(1000000) {
		t.Errorf("entry 0 = %v, %v; want 1000000 of token A", a, err)
	}
	if _, err := payload.Extract[money.Coin[money.TokenB]](entries[1].Output.Payload); err != nil {
		t.Errorf("entry 1 is not a token B coin: %v", err)
	}
}

func TestGenesisEntries_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		alloc config.Allocation
	}{
		{"unknown token", config.Allocation{Token: 7, Owner: types.UpForGrabsScript(), Amount: "1"}},
		{"zero amount", config.Allocation{Token: 0, Owner: types.UpForGrabsScript(), Amount: "0"}},
		{"bad amount", config.Allocation{Token: 0, Owner: types.UpForGrabsScript(), Amount: "lots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &config.Genesis{ChainID: "test", Alloc: []config.Allocation{tt.alloc}}
			if _, err := GenesisEntries(gen); err == nil {
				t.Fatal("GenesisEntries() should fail")
			}
		})
	}
}
