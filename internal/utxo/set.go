// Package utxo manages the set of unspent outputs.
package utxo

import (
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Entry is a live output and the reference it is stored under.
type Entry struct {
	Ref    types.OutputRef `json:"ref"`
	Output tx.Output       `json:"output"`
}

// Set is the interface for ledger storage.
// Peek returns nil, nil when the reference is not live.
type Set interface {
	Contains(ref types.OutputRef) (bool, error)
	Insert(ref types.OutputRef, out tx.Output) (bool, error)
	Nullify(ref types.OutputRef) (*tx.Output, error)
	Peek(ref types.OutputRef) (*tx.Output, error)
}
