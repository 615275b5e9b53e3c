// Package constraint defines the pluggable economic validation that runs
// after pre-validation. A checker inspects the outputs a transaction
// consumes and creates and either accepts it with a priority or rejects it
// with a typed error.
package constraint

import (
	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
)

// Priority orders accepted transactions; higher is preferred.
type Priority uint64

// SimpleChecker sees only the payloads of consumed and created outputs.
// Use it when the pre-validator handles all authorization.
type SimpleChecker interface {
	Check(inputs, outputs []payload.Payload) (Priority, error)
}

// Checker sees complete output records, owners included, plus the outputs
// the transaction peeks at.
type Checker interface {
	CheckFull(inputs, peeks, outputs []tx.Output) (Priority, error)
}

// Simple adapts a SimpleChecker to the full form by projecting payloads.
// Peeks are not visible to a simple checker.
func Simple(s SimpleChecker) Checker {
	return simpleAdapter{s}
}

type simpleAdapter struct {
	s SimpleChecker
}

func (a simpleAdapter) CheckFull(inputs, _, outputs []tx.Output) (Priority, error) {
	return a.s.Check(Payloads(inputs), Payloads(outputs))
}

// Payloads projects outputs to their payloads, preserving order.
func Payloads(outs []tx.Output) []payload.Payload {
	ps := make([]payload.Payload, len(outs))
	for i, o := range outs {
		ps[i] = o.Payload
	}
	return ps
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(inputs, peeks, outputs []tx.Output) (Priority, error)

// CheckFull calls f.
func (f CheckerFunc) CheckFull(inputs, peeks, outputs []tx.Output) (Priority, error) {
	return f(inputs, peeks, outputs)
}
