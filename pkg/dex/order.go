// Package dex implements an order-book exchange as two constraint checkers:
// MakeOrder locks coins of token A into an order asking for token B, and
// MatchOrders settles a batch of orders from both sides of the pair.
//
// A trading pair is a pair of token types. Order[A, B] offers A and asks
// for B; its mirror Order[B, A] is the opposite side of the same pair.
// Each instantiation has its own payload type tag.
package dex

import (
	"errors"

	"lukechampine.com/uint128"

	"github.com/Klingon-tech/klingnet-dex/pkg/codec"
	"github.com/Klingon-tech/klingnet-dex/pkg/money"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Exchange errors.
var (
	ErrTypeError                      = errors.New("payload is not of the expected type")
	ErrOrderMissing                   = errors.New("no order output")
	ErrTooManyOutputsWhenMakingOrder  = errors.New("making an order takes exactly one output")
	ErrNotEnoughCollateralToOpenOrder = errors.New("collateral does not equal order offer")
	ErrOrderAndPayoutCountDiffer      = errors.New("order and payout counts differ")
	ErrPayoutDoesNotSatisfyOrder      = errors.New("payout does not equal order ask")
	ErrInsufficientTokenAForMatch     = errors.New("insufficient token A offered for match")
	ErrInsufficientTokenBForMatch     = errors.New("insufficient token B offered for match")
	ErrVerifierMismatchForTrade       = errors.New("payout owner does not match order payout verifier")
	ErrAmountOverflow                 = errors.New("amount overflows 128 bits")
)

// Order is a collateralized offer to trade OfferAmount of A for exactly
// AskAmount of B, paid to PayoutVerifier.
type Order[A, B money.Token] struct {
	OfferAmount    uint128.Uint128
	AskAmount      uint128.Uint128
	PayoutVerifier types.Script
}

// OrderTypeID returns the type tag of orders offering token offer and
// asking for token ask.
func OrderTypeID(offer, ask byte) types.TypeID {
	return types.TypeID{'o', 'r', offer, ask}
}

// TypeID returns "or" followed by the offered and asked token ids.
func (Order[A, B]) TypeID() types.TypeID {
	var a A
	var b B
	return OrderTypeID(a.TokenID(), b.TokenID())
}

// Encode returns offer(16) | ask(16) | payout verifier.
func (o Order[A, B]) Encode() []byte {
	w := codec.NewWriter(2*codec.Uint128Size + 5 + len(o.PayoutVerifier.Data))
	w.Uint128(o.OfferAmount)
	w.Uint128(o.AskAmount)
	o.PayoutVerifier.Encode(w)
	return w.Finish()
}

// Decode parses an encoding produced by Encode.
func (o *Order[A, B]) Decode(data []byte) error {
	r := codec.NewReader(data)
	offer := r.Uint128()
	ask := r.Uint128()
	verifier := types.DecodeScript(r)
	if err := r.Finish(); err != nil {
		return err
	}
	*o = Order[A, B]{OfferAmount: offer, AskAmount: ask, PayoutVerifier: verifier}
	return nil
}
