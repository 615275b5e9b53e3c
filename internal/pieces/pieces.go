// Package pieces binds the checker tags and payload types this ledger
// understands to their implementations.
package pieces

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-dex/config"
	"github.com/Klingon-tech/klingnet-dex/internal/utxo"
	"github.com/Klingon-tech/klingnet-dex/pkg/constraint"
	"github.com/Klingon-tech/klingnet-dex/pkg/dex"
	"github.com/Klingon-tech/klingnet-dex/pkg/money"
	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Checker tags a transaction may declare.
const (
	TagMintA     = "mint/a"
	TagMintB     = "mint/b"
	TagSpendA    = "spend/a"
	TagSpendB    = "spend/b"
	TagMakeAB    = "dex/make/ab" // offer A, ask B
	TagMakeBA    = "dex/make/ba" // offer B, ask A
	TagMatchPair = "dex/match/ab"
)

// Checkers returns a registry holding every checker of the A/B pair.
// MatchOrders settles both sides of the pair, so one tag covers it.
func Checkers() *constraint.Registry {
	r := constraint.NewRegistry()
	r.MustRegister(TagMintA, constraint.Simple(money.Mint[money.TokenA]{}))
	r.MustRegister(TagMintB, constraint.Simple(money.Mint[money.TokenB]{}))
	r.MustRegister(TagSpendA, constraint.Simple(money.Spend[money.TokenA]{}))
	r.MustRegister(TagSpendB, constraint.Simple(money.Spend[money.TokenB]{}))
	r.MustRegister(TagMakeAB, constraint.Simple(dex.MakeOrder[money.TokenA, money.TokenB]{}))
	r.MustRegister(TagMakeBA, constraint.Simple(dex.MakeOrder[money.TokenB, money.TokenA]{}))
	r.MustRegister(TagMatchPair, dex.MatchOrders[money.TokenA, money.TokenB]{})
	return r
}

// Payloads returns a registry naming and decoding every payload type the
// checkers produce.
func Payloads() *payload.Registry {
	r := payload.NewRegistry()
	must(payload.RegisterType[money.Coin[money.TokenA]](r, "coin/a"))
	must(payload.RegisterType[money.Coin[money.TokenB]](r, "coin/b"))
	must(payload.RegisterType[dex.Order[money.TokenA, money.TokenB]](r, "order/ab"))
	must(payload.RegisterType[dex.Order[money.TokenB, money.TokenA]](r, "order/ba"))
	return r
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// GenesisEntries turns the genesis allocations into ledger entries. The
// i-th allocation is stored under DeriveOutputRef(genesis hash, i).
func GenesisEntries(gen *config.Genesis) ([]utxo.Entry, error) {
	if err := gen.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}
	h, err := gen.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash genesis: %w", err)
	}

	entries := make([]utxo.Entry, 0, len(gen.Alloc))
	for i, a := range gen.Alloc {
		v, err := a.Value()
		if err != nil {
			return nil, fmt.Errorf("alloc %d: %w", i, err)
		}
		var d payload.Data
		switch a.Token {
		case money.TokenA{}.TokenID():
			d = money.Coin[money.TokenA]{Value: v}
		case money.TokenB{}.TokenID():
			d = money.Coin[money.TokenB]{Value: v}
		default:
			return nil, fmt.Errorf("alloc %d: unknown token %d", i, a.Token)
		}
		entries = append(entries, utxo.Entry{
			Ref:    types.DeriveOutputRef(h, uint32(i)),
			Output: tx.NewOutput(a.Owner, d),
		})
	}
	return entries, nil
}
