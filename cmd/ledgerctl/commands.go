package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Klingon-tech/klingnet-dex/internal/executive"
	"github.com/Klingon-tech/klingnet-dex/internal/mempool"
	"github.com/Klingon-tech/klingnet-dex/internal/pieces"
	"github.com/Klingon-tech/klingnet-dex/internal/utxo"
	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/dex"
	"github.com/Klingon-tech/klingnet-dex/pkg/money"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

func cmdInit(l *ledger, w io.Writer) error {
	if err := l.init(); err != nil {
		if errors.Is(err, executive.ErrGenesisApplied) {
			fmt.Fprintf(w, "ledger %s already initialized\n", l.genesis.ChainID)
			return nil
		}
		return err
	}
	h, _ := l.genesis.Hash()
	fmt.Fprintf(w, "initialized %s genesis %s outputs %d\n", l.genesis.ChainID, h, len(l.genesis.Alloc))
	return nil
}

func cmdReset(l *ledger, w io.Writer) error {
	if err := l.ns.DeleteAll(); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	l.logger.Warn().Msg("Ledger reset")
	fmt.Fprintf(w, "reset %s\n", l.genesis.ChainID)
	return nil
}

func cmdTypes(w io.Writer) error {
	reg := pieces.Payloads()
	fmt.Fprintln(w, "Payload types:")
	for _, id := range reg.Types() {
		name, _ := reg.Name(id)
		fmt.Fprintf(w, "  %s  %s\n", id, name)
	}
	fmt.Fprintln(w, "Checkers:")
	for _, tag := range pieces.Checkers().Kinds() {
		fmt.Fprintf(w, "  %s\n", tag)
	}
	return nil
}

type keyJSON struct {
	PrivateKey string        `json:"private_key"`
	PublicKey  string        `json:"public_key"`
	Address    types.Address `json:"address"`
}

func cmdKeygen(w io.Writer) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	defer key.Zero()
	return writeKeyJSON(w, key)
}

func cmdValidate(l *ledger, args []string, w io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: validate <tx.json>")
	}
	t, err := loadTx(args[0])
	if err != nil {
		return err
	}
	prio, err := l.exec.Validate(t)
	if err != nil {
		fmt.Fprintf(w, "invalid %s: %v\n", t.Hash(), err)
		return errRejected
	}
	fmt.Fprintf(w, "valid %s priority %d\n", t.Hash(), prio)
	return nil
}

// cmdApply admits the transactions through a mempool and applies them in
// serving order. A transaction spending an output created by another one
// in the batch is retried in a later round, once its parent is applied.
func cmdApply(l *ledger, args []string, maxSize int, w io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: apply <tx.json>...")
	}
	waiting := make([]*tx.Transaction, 0, len(args))
	for _, path := range args {
		t, err := loadTx(path)
		if err != nil {
			return err
		}
		waiting = append(waiting, t)
	}

	pool := mempool.New(l.exec, maxSize)
	rejected := 0
	lastErr := make(map[types.Hash]error)

	for len(waiting) > 0 {
		var deferred []*tx.Transaction
		prios := make(map[types.Hash]uint64)
		for _, t := range waiting {
			prio, err := pool.Add(t)
			switch {
			case err == nil:
				prios[t.Hash()] = uint64(prio)
			case errors.Is(err, tx.ErrInputNotFound):
				lastErr[t.Hash()] = err
				deferred = append(deferred, t)
			default:
				fmt.Fprintf(w, "rejected %s: %v\n", t.Hash(), err)
				rejected++
			}
		}

		var applied []*tx.Transaction
		for _, t := range pool.Pending(0) {
			if err := l.exec.Apply(t); err != nil {
				fmt.Fprintf(w, "rejected %s: %v\n", t.Hash(), err)
				rejected++
				pool.Remove(t.Hash())
				continue
			}
			applied = append(applied, t)
			fmt.Fprintf(w, "applied %s priority %d\n", t.Hash(), prios[t.Hash()])
		}
		pool.RemoveConfirmed(applied)

		if len(applied) == 0 {
			for _, t := range deferred {
				fmt.Fprintf(w, "rejected %s: %v\n", t.Hash(), lastErr[t.Hash()])
				rejected++
			}
			break
		}
		waiting = deferred
	}

	if rejected > 0 {
		return errRejected
	}
	return nil
}

// cmdSign signs every input owned by the key in keyfile and prints the
// transaction.
func cmdSign(l *ledger, args []string, w io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sign <tx.json> <keyfile>")
	}
	t, err := loadTx(args[0])
	if err != nil {
		return err
	}
	key, err := loadKey(args[1])
	if err != nil {
		return err
	}
	defer key.Zero()

	owners := make(map[types.OutputRef]types.Script, len(t.Inputs))
	for _, in := range t.Inputs {
		out, err := l.store.Peek(in.Ref)
		if err != nil {
			return err
		}
		if out == nil {
			return fmt.Errorf("%w: %s", tx.ErrInputNotFound, in.Ref)
		}
		owners[in.Ref] = out.Owner
	}
	signers := map[types.Address]*crypto.PrivateKey{
		crypto.AddressFromPubKey(key.PublicKey()): key,
	}
	if err := tx.NewBuilderFrom(t).SignMulti(owners, signers); err != nil {
		return err
	}
	return writeJSON(w, t)
}

func cmdGet(l *ledger, args []string, w io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: get <ref>")
	}
	ref, err := types.ParseOutputRef(args[0])
	if err != nil {
		return err
	}
	out, err := l.store.Peek(ref)
	if err != nil {
		return err
	}
	if out == nil {
		return fmt.Errorf("%w: %s", utxo.ErrSpent, ref)
	}
	return writeJSON(w, l.view(utxo.Entry{Ref: ref, Output: *out}))
}

func cmdList(l *ledger, args []string, w io.Writer) error {
	var entries []utxo.Entry
	switch len(args) {
	case 0:
		err := l.store.ForEach(func(e utxo.Entry) error {
			entries = append(entries, e)
			return nil
		})
		if err != nil {
			return err
		}
	case 1:
		addr, err := types.HexToAddress(args[0])
		if err != nil {
			return err
		}
		if entries, err = l.store.GetByAddress(addr); err != nil {
			return err
		}
	default:
		return fmt.Errorf("usage: list [address]")
	}

	views := make([]outputView, len(entries))
	for i, e := range entries {
		views[i] = l.view(e)
	}
	return writeJSON(w, views)
}

func cmdCommitment(l *ledger, w io.Writer) error {
	root, err := utxo.Commitment(l.store)
	if err != nil {
		return err
	}
	n := 0
	if err := l.store.ForEach(func(utxo.Entry) error { n++; return nil }); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %d\n", root, n)
	return nil
}

// loadTx reads a transaction as JSON or as hex of its canonical encoding.
func loadTx(path string) (*tx.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transaction: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var t tx.Transaction
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return &t, nil
	}
	raw, err := hex.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: not JSON or hex: %w", path, err)
	}
	return tx.Decode(raw)
}

// loadKey reads a hex private key, or the private_key field of keygen output.
func loadKey(path string) (*crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, "{") {
		var k keyJSON
		if err := json.Unmarshal([]byte(s), &k); err != nil {
			return nil, fmt.Errorf("parse key file: %w", err)
		}
		s = k.PrivateKey
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse key: %w", err)
	}
	return crypto.PrivateKeyFromBytes(raw)
}

type payloadView struct {
	Type   types.TypeID  `json:"type"`
	Name   string        `json:"name,omitempty"`
	Amount string        `json:"amount,omitempty"`
	Offer  string        `json:"offer,omitempty"`
	Ask    string        `json:"ask,omitempty"`
	Payout *types.Script `json:"payout,omitempty"`
	Data   string        `json:"data,omitempty"`
}

type outputView struct {
	Ref     types.OutputRef `json:"ref"`
	Base58  string          `json:"base58"`
	Owner   types.Script    `json:"owner"`
	Payload payloadView     `json:"payload"`
}

// view renders an entry with its payload decoded where the type is known.
func (l *ledger) view(e utxo.Entry) outputView {
	p := e.Output.Payload
	pv := payloadView{Type: p.TypeID}
	pv.Name, _ = l.payloads.Name(p.TypeID)

	v, err := l.payloads.Decode(p)
	if err != nil {
		l.logger.Debug().Err(err).Str("ref", e.Ref.String()).Msg("Undecodable payload")
		v = nil
	}
	switch d := v.(type) {
	case money.Coin[money.TokenA]:
		pv.Amount = d.Value.String()
	case money.Coin[money.TokenB]:
		pv.Amount = d.Value.String()
	case dex.Order[money.TokenA, money.TokenB]:
		pv.Offer, pv.Ask, pv.Payout = d.OfferAmount.String(), d.AskAmount.String(), &d.PayoutVerifier
	case dex.Order[money.TokenB, money.TokenA]:
		pv.Offer, pv.Ask, pv.Payout = d.OfferAmount.String(), d.AskAmount.String(), &d.PayoutVerifier
	default:
		pv.Data = hex.EncodeToString(p.Data)
	}

	return outputView{
		Ref:     e.Ref,
		Base58:  e.Ref.Base58(),
		Owner:   e.Output.Owner,
		Payload: pv,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
