package money

import (
	"errors"
	"fmt"

	"lukechampine.com/uint128"

	"github.com/Klingon-tech/klingnet-dex/pkg/constraint"
	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
)

// Money checker errors.
var (
	ErrBadlyTyped          = errors.New("payload is not a coin of this token")
	ErrMintingWithInputs   = errors.New("minting must not consume inputs")
	ErrMintingNothing      = errors.New("minting must create at least one coin")
	ErrSpendingNothing     = errors.New("spending must consume at least one coin")
	ErrZeroValueCoin       = errors.New("coin value is zero")
	ErrOutputsExceedInputs = errors.New("output value exceeds input value")
	ErrValueOverflow       = errors.New("coin values overflow")
)

// Mint creates new coins of T from nothing.
type Mint[T Token] struct{}

// Check implements constraint.SimpleChecker.
func (Mint[T]) Check(inputs, outputs []payload.Payload) (constraint.Priority, error) {
	if len(inputs) != 0 {
		return 0, ErrMintingWithInputs
	}
	if len(outputs) == 0 {
		return 0, ErrMintingNothing
	}
	if _, err := sum[T](outputs, "output"); err != nil {
		return 0, err
	}
	return 0, nil
}

// Spend moves coins of T between owners. Value may be destroyed but never
// created.
type Spend[T Token] struct{}

// Check implements constraint.SimpleChecker.
func (Spend[T]) Check(inputs, outputs []payload.Payload) (constraint.Priority, error) {
	if len(inputs) == 0 {
		return 0, ErrSpendingNothing
	}
	in, err := sum[T](inputs, "input")
	if err != nil {
		return 0, err
	}
	out, err := sum[T](outputs, "output")
	if err != nil {
		return 0, err
	}
	if out.Cmp(in) > 0 {
		return 0, fmt.Errorf("%w: outputs=%s inputs=%s", ErrOutputsExceedInputs, out, in)
	}
	return 0, nil
}

// sum totals a list of non-zero T coins.
func sum[T Token](ps []payload.Payload, side string) (uint128.Uint128, error) {
	total := uint128.Zero
	for i, p := range ps {
		c, err := payload.Extract[Coin[T]](p)
		if err != nil {
			return uint128.Zero, fmt.Errorf("%s %d: %w: %v", side, i, ErrBadlyTyped, err)
		}
		if c.Value.IsZero() {
			return uint128.Zero, fmt.Errorf("%s %d: %w", side, i, ErrZeroValueCoin)
		}
		var ok bool
		if total, ok = AddChecked(total, c.Value); !ok {
			return uint128.Zero, fmt.Errorf("%s %d: %w", side, i, ErrValueOverflow)
		}
	}
	return total, nil
}
