package dex

import (
	"fmt"

	"lukechampine.com/uint128"

	"github.com/Klingon-tech/klingnet-dex/pkg/constraint"
	"github.com/Klingon-tech/klingnet-dex/pkg/money"
	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
)

// MakeOrder opens an Order[A, B]. The inputs are coins of A whose total
// must equal the order's offer exactly; the single output is the order.
type MakeOrder[A, B money.Token] struct{}

// Check implements constraint.SimpleChecker.
func (MakeOrder[A, B]) Check(inputs, outputs []payload.Payload) (constraint.Priority, error) {
	if len(outputs) == 0 {
		return 0, ErrOrderMissing
	}
	if len(outputs) != 1 {
		return 0, fmt.Errorf("%w: got %d", ErrTooManyOutputsWhenMakingOrder, len(outputs))
	}
	order, err := payload.Extract[Order[A, B]](outputs[0])
	if err != nil {
		return 0, fmt.Errorf("order output: %w: %v", ErrTypeError, err)
	}

	collateral := uint128.Zero
	for i, in := range inputs {
		coin, err := payload.Extract[money.Coin[A]](in)
		if err != nil {
			return 0, fmt.Errorf("input %d: %w: %v", i, ErrTypeError, err)
		}
		var ok bool
		if collateral, ok = money.AddChecked(collateral, coin.Value); !ok {
			return 0, fmt.Errorf("input %d: %w", i, ErrAmountOverflow)
		}
	}

	// Exact equality: overpaying collateral is rejected like underpaying.
	if !collateral.Equals(order.OfferAmount) {
		return 0, fmt.Errorf("%w: collateral %s, offer %s",
			ErrNotEnoughCollateralToOpenOrder, collateral, order.OfferAmount)
	}
	return 0, nil
}
