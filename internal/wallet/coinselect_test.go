package wallet

import (
	"errors"
	"testing"

	"lukechampine.com/uint128"

	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

func makeCoins(values ...uint64) []Candidate {
	coins := make([]Candidate, len(values))
	for i, v := range values {
		coins[i] = Candidate{Ref: types.OutputRef{byte(i + 1)}, Value: uint128.From64(v)}
	}
	return coins
}

func TestSelectCoins(t *testing.T) {
	tests := []struct {
		name       string
		coins      []uint64
		target     uint64
		wantTotal  uint64
		wantChange uint64
		wantInputs int
	}{
		{"exact single", []uint64{1000, 2000, 3000}, 2000, 2000, 0, 1},
		{"smallest covering", []uint64{500, 5000, 9000}, 3000, 5000, 2000, 1},
		{"accumulate", []uint64{1000, 2000, 3000}, 4500, 5000, 500, 2},
		{"accumulate all", []uint64{10, 20, 30}, 60, 60, 0, 3},
		{"skip zero", []uint64{0, 0, 7}, 7, 7, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := SelectCoins(makeCoins(tt.coins...), uint128.From64(tt.target))
			if err != nil {
				t.Fatalf("SelectCoins: %v", err)
			}
			if sel.Total != uint128.From64(tt.wantTotal) || sel.Change != uint128.From64(tt.wantChange) {
				t.Errorf("total/change = %s/%s, want %d/%d", sel.Total, sel.Change, tt.wantTotal, tt.wantChange)
			}
			if len(sel.Inputs) != tt.wantInputs {
				t.Errorf("inputs = %d, want %d", len(sel.Inputs), tt.wantInputs)
			}
		})
	}
}

func TestSelectCoins_Errors(t *testing.T) {
	if _, err := SelectCoins(nil, uint128.From64(1)); !errors.Is(err, ErrNoCoins) {
		t.Errorf("no coins: %v", err)
	}
	if _, err := SelectCoins(makeCoins(0, 0), uint128.From64(1)); !errors.Is(err, ErrNoCoins) {
		t.Errorf("zero coins: %v", err)
	}
	if _, err := SelectCoins(makeCoins(1, 2), uint128.From64(10)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("insufficient: %v", err)
	}
	if _, err := SelectCoins(makeCoins(5), uint128.Zero); err == nil {
		t.Error("zero target accepted")
	}
}

func TestSelectCoins_Large(t *testing.T) {
	big := uint128.Max.Rsh(1)
	coins := []Candidate{{Value: big}, {Value: big}}
	sel, err := SelectCoins(coins, big.Add64(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(sel.Inputs) != 2 || sel.Change != big.Sub64(1) {
		t.Errorf("inputs = %d change = %s", len(sel.Inputs), sel.Change)
	}
}
