package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"lukechampine.com/uint128"

	"github.com/Klingon-tech/klingnet-dex/config"
	"github.com/Klingon-tech/klingnet-dex/internal/pieces"
	"github.com/Klingon-tech/klingnet-dex/internal/wallet"
	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/money"
	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// passwordEnv names the environment variable holding the wallet password.
const passwordEnv = "KLINGDEX_PASSWORD"

func readPassword() ([]byte, error) {
	if pw, ok := os.LookupEnv(passwordEnv); ok {
		return []byte(pw), nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("no terminal for password prompt; set %s", passwordEnv)
	}
	fmt.Fprint(os.Stderr, "Wallet password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}

func openKeystore(cfg *config.Config) (*wallet.Keystore, error) {
	return wallet.NewKeystore(cfg.KeystoreDir())
}

type walletCreated struct {
	Name     string          `json:"name"`
	Mnemonic string          `json:"mnemonic,omitempty"`
	Key      wallet.KeyEntry `json:"key"`
}

func cmdWallet(cfg *config.Config, args []string, w io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: wallet <create|new|keys|list|export> ...")
	}
	ks, err := openKeystore(cfg)
	if err != nil {
		return err
	}

	sub, args := args[0], args[1:]
	switch sub {
	case "list":
		names, err := ks.List()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(w, n)
		}
		return nil

	case "keys":
		if len(args) != 1 {
			return fmt.Errorf("usage: wallet keys <name>")
		}
		keys, err := ks.Keys(args[0])
		if err != nil {
			return err
		}
		return writeJSON(w, keys)

	case "create":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: wallet create <name> [mnemonic-file]")
		}
		out := walletCreated{Name: args[0]}
		var mnemonic string
		if len(args) == 2 {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read mnemonic: %w", err)
			}
			mnemonic = strings.Join(strings.Fields(string(data)), " ")
		} else {
			if mnemonic, err = wallet.GenerateMnemonic(); err != nil {
				return err
			}
			out.Mnemonic = mnemonic
		}
		pw, err := readPassword()
		if err != nil {
			return err
		}
		if err := ks.Create(args[0], mnemonic, pw); err != nil {
			return err
		}
		entry, key, err := ks.NewKey(args[0], pw, "default")
		if err != nil {
			return err
		}
		key.Zero()
		out.Key = entry
		return writeJSON(w, out)

	case "new":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: wallet new <name> [label]")
		}
		label := ""
		if len(args) == 2 {
			label = args[1]
		}
		pw, err := readPassword()
		if err != nil {
			return err
		}
		entry, key, err := ks.NewKey(args[0], pw, label)
		if err != nil {
			return err
		}
		key.Zero()
		return writeJSON(w, entry)

	case "export":
		if len(args) != 2 {
			return fmt.Errorf("usage: wallet export <name> <index>")
		}
		var index uint32
		if _, err := fmt.Sscan(args[1], &index); err != nil {
			return fmt.Errorf("invalid index %q", args[1])
		}
		pw, err := readPassword()
		if err != nil {
			return err
		}
		key, err := ks.Key(args[0], pw, index)
		if err != nil {
			return err
		}
		defer key.Zero()
		return writeKeyJSON(w, key)

	default:
		return fmt.Errorf("unknown wallet command: %s", sub)
	}
}

// coinTag returns the spend checker and coin type of a token name.
func coinTag(token string) (string, types.TypeID, error) {
	switch strings.ToLower(token) {
	case "a":
		return pieces.TagSpendA, money.CoinTypeID(money.TokenA{}.TokenID()), nil
	case "b":
		return pieces.TagSpendB, money.CoinTypeID(money.TokenB{}.TokenID()), nil
	default:
		return "", types.TypeID{}, fmt.Errorf("unknown token %q (want a or b)", token)
	}
}

func coinValue(p payload.Payload) (uint128.Uint128, error) {
	switch {
	case payload.Is[money.Coin[money.TokenA]](p):
		c, err := payload.Extract[money.Coin[money.TokenA]](p)
		return c.Value, err
	case payload.Is[money.Coin[money.TokenB]](p):
		c, err := payload.Extract[money.Coin[money.TokenB]](p)
		return c.Value, err
	}
	return uint128.Zero, errors.New("not a coin")
}

// cmdTransfer spends wallet coins of one token to an address, returning
// change to the wallet's first key. The signed transaction is printed.
func cmdTransfer(l *ledger, cfg *config.Config, args []string, w io.Writer) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: transfer <a|b> <wallet> <address> <amount>")
	}
	tag, coinType, err := coinTag(args[0])
	if err != nil {
		return err
	}
	to, err := types.HexToAddress(args[2])
	if err != nil {
		return err
	}
	amount, err := uint128.FromString(args[3])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[3], err)
	}

	ks, err := openKeystore(cfg)
	if err != nil {
		return err
	}
	keys, err := ks.Keys(args[1])
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("wallet %s has no keys", args[1])
	}

	var coins []wallet.Candidate
	for _, k := range keys {
		entries, err := l.store.GetByAddress(k.Address)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Output.Payload.TypeID != coinType {
				continue
			}
			v, err := coinValue(e.Output.Payload)
			if err != nil {
				return fmt.Errorf("output %s: %w", e.Ref, err)
			}
			coins = append(coins, wallet.Candidate{Ref: e.Ref, Owner: e.Output.Owner, Value: v})
		}
	}

	sel, err := wallet.SelectCoins(coins, amount)
	if err != nil {
		return err
	}

	pw, err := readPassword()
	if err != nil {
		return err
	}
	signers, err := ks.Signers(args[1], pw)
	if err != nil {
		return err
	}
	defer func() {
		for _, k := range signers {
			k.Zero()
		}
	}()

	b := tx.NewBuilder(tag)
	owners := make(map[types.OutputRef]types.Script, len(sel.Inputs))
	for _, c := range sel.Inputs {
		b.AddInput(c.Ref)
		owners[c.Ref] = c.Owner
	}
	b.AddOutput(types.P2PKHScript(to), coinOf(coinType, amount))
	if !sel.Change.IsZero() {
		b.AddOutput(types.P2PKHScript(keys[0].Address), coinOf(coinType, sel.Change))
	}
	if err := b.SignMulti(owners, signers); err != nil {
		return err
	}

	t := b.Build()
	l.logger.Info().
		Str("tx", t.Hash().String()).
		Int("inputs", len(t.Inputs)).
		Str("amount", amount.String()).
		Msg("Transfer built")
	return writeJSON(w, t)
}

func coinOf(coinType types.TypeID, v uint128.Uint128) payload.Data {
	if coinType == money.CoinTypeID(money.TokenB{}.TokenID()) {
		return money.Coin[money.TokenB]{Value: v}
	}
	return money.Coin[money.TokenA]{Value: v}
}

func writeKeyJSON(w io.Writer, key *crypto.PrivateKey) error {
	pub := key.PublicKey()
	return writeJSON(w, keyJSON{
		PrivateKey: fmt.Sprintf("%x", key.Serialize()),
		PublicKey:  fmt.Sprintf("%x", pub),
		Address:    crypto.AddressFromPubKey(pub),
	})
}
