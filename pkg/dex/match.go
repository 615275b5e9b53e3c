package dex

import (
	"fmt"

	"lukechampine.com/uint128"

	"github.com/Klingon-tech/klingnet-dex/pkg/constraint"
	"github.com/Klingon-tech/klingnet-dex/pkg/money"
	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// MatchOrders settles a batch of orders on both sides of the (A, B) pair.
// Input i is an order and output i is its payout: a coin of the asked
// token, worth exactly the ask, owned by the order's payout verifier.
// The batch must offer at least as much of each token as it pays out.
type MatchOrders[A, B money.Token] struct{}

// tally accumulates offers and asks across a batch.
type tally struct {
	aSoFar, bSoFar       uint128.Uint128
	aRequired, bRequired uint128.Uint128
}

func accumulate(acc *uint128.Uint128, v uint128.Uint128, i int) error {
	sum, ok := money.AddChecked(*acc, v)
	if !ok {
		return fmt.Errorf("pair %d: %w", i, ErrAmountOverflow)
	}
	*acc = sum
	return nil
}

// CheckFull implements constraint.Checker.
func (MatchOrders[A, B]) CheckFull(inputs, _, outputs []tx.Output) (constraint.Priority, error) {
	if len(inputs) != len(outputs) {
		return 0, fmt.Errorf("%w: %d orders, %d payouts", ErrOrderAndPayoutCountDiffer, len(inputs), len(outputs))
	}

	var t tally
	for i := range inputs {
		in, out := inputs[i].Payload, outputs[i]

		if order, err := payload.Extract[Order[A, B]](in); err == nil {
			if err := accumulate(&t.aSoFar, order.OfferAmount, i); err != nil {
				return 0, err
			}
			if err := accumulate(&t.bRequired, order.AskAmount, i); err != nil {
				return 0, err
			}
			if err := checkPayout[B](i, out, order.AskAmount, order.PayoutVerifier); err != nil {
				return 0, err
			}
			continue
		}

		order, err := payload.Extract[Order[B, A]](in)
		if err != nil {
			return 0, fmt.Errorf("input %d: %w: not an order of either side: %v", i, ErrTypeError, err)
		}
		if err := accumulate(&t.bSoFar, order.OfferAmount, i); err != nil {
			return 0, err
		}
		if err := accumulate(&t.aRequired, order.AskAmount, i); err != nil {
			return 0, err
		}
		if err := checkPayout[A](i, out, order.AskAmount, order.PayoutVerifier); err != nil {
			return 0, err
		}
	}

	// Surplus on either side stays unclaimed; only deficits are rejected.
	if t.aSoFar.Cmp(t.aRequired) < 0 {
		return 0, fmt.Errorf("%w: offered %s, required %s", ErrInsufficientTokenAForMatch, t.aSoFar, t.aRequired)
	}
	if t.bSoFar.Cmp(t.bRequired) < 0 {
		return 0, fmt.Errorf("%w: offered %s, required %s", ErrInsufficientTokenBForMatch, t.bSoFar, t.bRequired)
	}
	return 0, nil
}

// checkPayout verifies that out pays exactly ask units of T to verifier.
func checkPayout[T money.Token](i int, out tx.Output, ask uint128.Uint128, verifier types.Script) error {
	coin, err := payload.Extract[money.Coin[T]](out.Payload)
	if err != nil {
		return fmt.Errorf("payout %d: %w: %v", i, ErrTypeError, err)
	}
	if !coin.Value.Equals(ask) {
		return fmt.Errorf("payout %d: %w: paid %s, ask %s", i, ErrPayoutDoesNotSatisfyOrder, coin.Value, ask)
	}
	if !out.Owner.Equal(verifier) {
		return fmt.Errorf("payout %d: %w", i, ErrVerifierMismatchForTrade)
	}
	return nil
}
