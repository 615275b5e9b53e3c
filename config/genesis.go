package config

import (
	"encoding/json"
	"fmt"
	"os"

	"lukechampine.com/uint128"

	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// =============================================================================
// Protocol Rules (immutable)
// These MUST match across all replicas or they will disagree on admission.
// =============================================================================

// Transaction size limits.
const (
	MaxTxInputs    = 2500   // Max inputs per transaction
	MaxTxOutputs   = 2500   // Max outputs per transaction
	MaxTxPeeks     = 2500   // Max peeked outputs per transaction
	MaxPayloadSize = 65_536 // 64 KB max payload data per output
)

// Genesis describes the outputs the ledger starts with.
type Genesis struct {
	ChainID   string `json:"chain_id"`
	ExtraData string `json:"extra_data,omitempty"`

	// Initial coin allocations, inserted in order.
	Alloc []Allocation `json:"alloc"`
}

// Allocation mints Amount units of the token with the given id to Owner.
type Allocation struct {
	Token  uint8        `json:"token"`
	Owner  types.Script `json:"owner"`
	Amount string       `json:"amount"` // Decimal, up to 128 bits
}

// Value parses the allocation amount.
func (a Allocation) Value() (uint128.Uint128, error) {
	v, err := uint128.FromString(a.Amount)
	if err != nil {
		return uint128.Zero, fmt.Errorf("amount %q: %w", a.Amount, err)
	}
	return v, nil
}

// DevGenesis returns a development genesis that gives both tokens of the
// default trading pair to an up-for-grabs owner.
func DevGenesis() *Genesis {
	return &Genesis{
		ChainID:   "klingdex-dev-1",
		ExtraData: "Klingdex Development Genesis",
		Alloc: []Allocation{
			{Token: 0, Owner: types.UpForGrabsScript(), Amount: "1000000"},
			{Token: 1, Owner: types.UpForGrabsScript(), Amount: "1000000"},
		},
	}
}

// =============================================================================
// Genesis file I/O
// =============================================================================

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}

	return nil
}

// Validate checks that the genesis configuration is valid.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if len(g.Alloc) > MaxTxOutputs {
		return fmt.Errorf("%d allocations, max %d", len(g.Alloc), MaxTxOutputs)
	}
	for i, a := range g.Alloc {
		v, err := a.Value()
		if err != nil {
			return fmt.Errorf("alloc %d: %w", i, err)
		}
		if v.IsZero() {
			return fmt.Errorf("alloc %d: amount must be positive", i)
		}
		if a.Owner.Type == 0 {
			return fmt.Errorf("alloc %d: owner is required", i)
		}
	}
	return nil
}

// Hash returns a BLAKE3 hash of the genesis configuration. It stands in
// for the transaction hash when deriving genesis output references.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
