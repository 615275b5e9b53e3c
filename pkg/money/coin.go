// Package money implements fungible coins stored as typed payloads, with
// checkers to mint and spend them. Coins of different tokens have
// different type tags and never mix.
package money

import (
	"lukechampine.com/uint128"

	"github.com/Klingon-tech/klingnet-dex/pkg/codec"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Token identifies a kind of coin. Implementations are empty marker types.
type Token interface {
	TokenID() byte
}

// TokenA is the first token of the default trading pair.
type TokenA struct{}

// TokenID implements Token.
func (TokenA) TokenID() byte { return 0 }

// TokenB is the second token of the default trading pair.
type TokenB struct{}

// TokenID implements Token.
func (TokenB) TokenID() byte { return 1 }

// Coin is an amount of token T.
type Coin[T Token] struct {
	Value uint128.Uint128
}

// NewCoin returns a coin worth v units of T.
func NewCoin[T Token](v uint64) Coin[T] {
	return Coin[T]{Value: uint128.From64(v)}
}

// CoinTypeID returns the type tag of coins with the given token id.
func CoinTypeID(tokenID byte) types.TypeID {
	return types.TypeID{'c', 'o', 'i', tokenID}
}

// TypeID returns "coi" followed by the token id.
func (Coin[T]) TypeID() types.TypeID {
	var t T
	return CoinTypeID(t.TokenID())
}

// Encode returns the 16-byte little-endian value.
func (c Coin[T]) Encode() []byte {
	w := codec.NewWriter(codec.Uint128Size)
	w.Uint128(c.Value)
	return w.Finish()
}

// Decode parses an encoding produced by Encode.
func (c *Coin[T]) Decode(data []byte) error {
	r := codec.NewReader(data)
	v := r.Uint128()
	if err := r.Finish(); err != nil {
		return err
	}
	c.Value = v
	return nil
}

// AddChecked returns a+b, or false if the sum does not fit in 128 bits.
func AddChecked(a, b uint128.Uint128) (uint128.Uint128, bool) {
	sum := a.AddWrap(b)
	if sum.Cmp(a) < 0 {
		return uint128.Zero, false
	}
	return sum, true
}
