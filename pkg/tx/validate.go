package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-dex/config"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Validation errors.
var (
	ErrEmptyChecker    = errors.New("transaction names no checker")
	ErrDuplicateInput  = errors.New("duplicate input")
	ErrTooManyInputs   = errors.New("too many inputs")
	ErrTooManyOutputs  = errors.New("too many outputs")
	ErrTooManyPeeks    = errors.New("too many peeks")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Validate checks transaction structure and protocol limits.
// This does NOT check that inputs exist (that requires the ledger).
func (tx *Transaction) Validate() error {
	if tx.Checker == "" {
		return ErrEmptyChecker
	}
	if len(tx.Inputs) > config.MaxTxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(tx.Inputs), config.MaxTxInputs)
	}
	if len(tx.Peeks) > config.MaxTxPeeks {
		return fmt.Errorf("%w: %d peeks, max %d", ErrTooManyPeeks, len(tx.Peeks), config.MaxTxPeeks)
	}
	if len(tx.Outputs) > config.MaxTxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(tx.Outputs), config.MaxTxOutputs)
	}

	if err := checkDuplicates(tx.Inputs); err != nil {
		return err
	}

	for i, out := range tx.Outputs {
		if len(out.Payload.Data) > config.MaxPayloadSize {
			return fmt.Errorf("output %d: %w: %d bytes, max %d",
				i, ErrPayloadTooLarge, len(out.Payload.Data), config.MaxPayloadSize)
		}
	}
	return nil
}

// checkDuplicates rejects an input list that names the same output twice.
func checkDuplicates(ins []Input) error {
	seen := make(map[types.OutputRef]bool, len(ins))
	for i, in := range ins {
		if seen[in.Ref] {
			return fmt.Errorf("input %d (%s): %w", i, in.Ref, ErrDuplicateInput)
		}
		seen[in.Ref] = true
	}
	return nil
}
