package wallet

import (
	"errors"
	"fmt"
	"sort"

	"lukechampine.com/uint128"

	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoCoins           = errors.New("no coins available")
)

// Candidate is a live coin the wallet can spend.
type Candidate struct {
	Ref   types.OutputRef
	Owner types.Script
	Value uint128.Uint128
}

// Selection is the result of coin selection.
type Selection struct {
	Inputs []Candidate
	Total  uint128.Uint128
	Change uint128.Uint128
}

// SelectCoins picks coins covering target. It compares the smallest single
// coin that covers the target with largest-first accumulation and returns
// whichever leaves less change.
func SelectCoins(coins []Candidate, target uint128.Uint128) (*Selection, error) {
	if target.IsZero() {
		return nil, fmt.Errorf("target must be positive")
	}
	candidates := make([]Candidate, 0, len(coins))
	for _, c := range coins {
		if !c.Value.IsZero() {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoCoins
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Value.Cmp(candidates[j].Value) < 0
	})

	var single *Selection
	for _, c := range candidates {
		if c.Value.Cmp(target) >= 0 {
			single = &Selection{Inputs: []Candidate{c}, Total: c.Value, Change: c.Value.Sub(target)}
			break
		}
	}

	var accum *Selection
	var total uint128.Uint128
	for i := len(candidates) - 1; i >= 0; i-- {
		next := total.AddWrap(candidates[i].Value)
		if next.Cmp(total) < 0 {
			return nil, fmt.Errorf("selected coins overflow 128 bits")
		}
		total = next
		if total.Cmp(target) >= 0 {
			picked := append([]Candidate(nil), candidates[i:]...)
			reverse(picked)
			accum = &Selection{Inputs: picked, Total: total, Change: total.Sub(target)}
			break
		}
	}

	switch {
	case single != nil && accum != nil:
		if single.Change.Cmp(accum.Change) <= 0 {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	default:
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, total, target)
	}
}

func reverse(cs []Candidate) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}
