package mempool

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-dex/config"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
)

// DefaultMaxTxSize is the maximum transaction size in bytes (full encoding).
const DefaultMaxTxSize = 1_000_000

// Policy defines local acceptance rules on top of ledger validation.
type Policy struct {
	MaxTxSize int      // Maximum encoded transaction size.
	Checkers  []string // Accepted checker tags; empty accepts all.
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxTxSize: DefaultMaxTxSize,
	}
}

// Check validates a transaction against policy rules.
// Protocol limits are checked here too so oversized transactions are
// rejected before any ledger reads.
func (p *Policy) Check(transaction *tx.Transaction) error {
	size := len(transaction.Encode())
	if p.MaxTxSize > 0 && size > p.MaxTxSize {
		return fmt.Errorf("transaction too large: %d bytes, max %d", size, p.MaxTxSize)
	}
	if len(transaction.Inputs) > config.MaxTxInputs {
		return fmt.Errorf("too many inputs: %d, max %d", len(transaction.Inputs), config.MaxTxInputs)
	}
	if len(transaction.Peeks) > config.MaxTxPeeks {
		return fmt.Errorf("too many peeks: %d, max %d", len(transaction.Peeks), config.MaxTxPeeks)
	}
	if len(transaction.Outputs) > config.MaxTxOutputs {
		return fmt.Errorf("too many outputs: %d, max %d", len(transaction.Outputs), config.MaxTxOutputs)
	}
	if len(p.Checkers) > 0 && !contains(p.Checkers, transaction.Checker) {
		return fmt.Errorf("checker %q not accepted by policy", transaction.Checker)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
