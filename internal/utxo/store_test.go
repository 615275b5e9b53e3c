package utxo

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/Klingon-tech/klingnet-dex/internal/storage"
	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/money"
	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(storage.NewMemory())
}

func makeRef(data string, index uint32) types.OutputRef {
	return types.DeriveOutputRef(crypto.Hash([]byte(data)), index)
}

var testAddr = types.Address{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	0x11, 0x12, 0x13, 0x14}

func makeOutput(value uint64) tx.Output {
	return tx.NewOutput(types.P2PKHScript(testAddr), money.NewCoin[money.TokenA](value))
}

func coinValue(t *testing.T, out *tx.Output) uint64 {
	t.Helper()
	c, err := payload.Extract[money.Coin[money.TokenA]](out.Payload)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	return c.Value.Lo
}

func mustInsert(t *testing.T, s *Store, ref types.OutputRef, out tx.Output) {
	t.Helper()
	ok, err := s.Insert(ref, out)
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if !ok {
		t.Fatalf("Insert(%s) = false, want true", ref)
	}
}

func TestStore_InsertAndPeek(t *testing.T) {
	s := testStore(t)
	ref := makeRef("tx1", 0)
	mustInsert(t, s, ref, makeOutput(5000))

	got, err := s.Peek(ref)
	if err != nil {
		t.Fatalf("Peek() error: %v", err)
	}
	if got == nil {
		t.Fatal("Peek() = nil for live output")
	}
	if v := coinValue(t, got); v != 5000 {
		t.Errorf("value = %d, want 5000", v)
	}
	if !got.Owner.Equal(types.P2PKHScript(testAddr)) {
		t.Error("owner mismatch")
	}

	// Peek does not consume.
	if ok, _ := s.Contains(ref); !ok {
		t.Error("Contains() = false after Peek()")
	}
}

func TestStore_PeekMissing(t *testing.T) {
	s := testStore(t)
	got, err := s.Peek(makeRef("nope", 0))
	if err != nil {
		t.Fatalf("Peek() error: %v", err)
	}
	if got != nil {
		t.Error("Peek() for missing ref should return nil")
	}
}

func TestStore_InsertNoOverwrite(t *testing.T) {
	s := testStore(t)
	ref := makeRef("tx1", 0)
	mustInsert(t, s, ref, makeOutput(1))

	ok, err := s.Insert(ref, makeOutput(2))
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if ok {
		t.Fatal("second Insert() = true, want false")
	}

	got, _ := s.Peek(ref)
	if v := coinValue(t, got); v != 1 {
		t.Errorf("value after rejected insert = %d, want 1", v)
	}
}

func TestStore_NullifyOnce(t *testing.T) {
	s := testStore(t)
	ref := makeRef("tx1", 0)
	mustInsert(t, s, ref, makeOutput(7))

	got, err := s.Nullify(ref)
	if err != nil {
		t.Fatalf("Nullify() error: %v", err)
	}
	if got == nil || coinValue(t, got) != 7 {
		t.Fatalf("Nullify() = %v, want the stored output", got)
	}

	if ok, _ := s.Contains(ref); ok {
		t.Error("Contains() = true after Nullify()")
	}

	again, err := s.Nullify(ref)
	if err != nil {
		t.Fatalf("second Nullify() error: %v", err)
	}
	if again != nil {
		t.Error("second Nullify() should return nil")
	}
}

func TestStore_NullifyConcurrent(t *testing.T) {
	s := testStore(t)
	ref := makeRef("tx1", 0)
	mustInsert(t, s, ref, makeOutput(1))

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.Nullify(ref)
			if err != nil {
				t.Errorf("Nullify() error: %v", err)
				return
			}
			if out != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("%d callers received the output, want 1", wins)
	}
}

func TestStore_Apply(t *testing.T) {
	s := testStore(t)
	in0, in1 := makeRef("funding", 0), makeRef("funding", 1)
	mustInsert(t, s, in0, makeOutput(10))
	mustInsert(t, s, in1, makeOutput(20))

	create := []Entry{
		{Ref: makeRef("spender", 0), Output: makeOutput(25)},
		{Ref: makeRef("spender", 1), Output: makeOutput(5)},
	}
	spent, err := s.Apply([]types.OutputRef{in0, in1}, create)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if len(spent) != 2 || coinValue(t, &spent[0]) != 10 || coinValue(t, &spent[1]) != 20 {
		t.Fatalf("Apply() spent = %v, want the two funding outputs in order", spent)
	}

	for _, ref := range []types.OutputRef{in0, in1} {
		if ok, _ := s.Contains(ref); ok {
			t.Errorf("%s still live after Apply()", ref)
		}
	}
	for _, e := range create {
		if ok, _ := s.Contains(e.Ref); !ok {
			t.Errorf("%s missing after Apply()", e.Ref)
		}
	}
}

func TestStore_ApplyConflictsLeaveStoreUnchanged(t *testing.T) {
	live := makeRef("live", 0)
	other := makeRef("other", 0)

	tests := []struct {
		name   string
		spend  []types.OutputRef
		create []Entry
		want   error
	}{
		{
			name:  "spend missing",
			spend: []types.OutputRef{live, makeRef("ghost", 0)},
			want:  ErrSpent,
		},
		{
			name:  "spend twice",
			spend: []types.OutputRef{live, live},
			want:  ErrSpent,
		},
		{
			name:   "create existing",
			spend:  []types.OutputRef{live},
			create: []Entry{{Ref: other, Output: makeOutput(1)}},
			want:   ErrExists,
		},
		{
			name:  "create twice",
			spend: []types.OutputRef{live},
			create: []Entry{
				{Ref: makeRef("new", 0), Output: makeOutput(1)},
				{Ref: makeRef("new", 0), Output: makeOutput(1)},
			},
			want: ErrExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore(t)
			mustInsert(t, s, live, makeOutput(3))
			mustInsert(t, s, other, makeOutput(4))
			before, _ := Commitment(s)

			_, err := s.Apply(tt.spend, tt.create)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.want)
			}

			after, _ := Commitment(s)
			if before != after {
				t.Error("failed Apply() modified the store")
			}
			if ok, _ := s.Contains(makeRef("new", 0)); ok {
				t.Error("failed Apply() created an output")
			}
		})
	}
}

func TestStore_ApplyConcurrentConflict(t *testing.T) {
	s := testStore(t)
	shared := makeRef("shared", 0)
	mustInsert(t, s, shared, makeOutput(100))

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			create := []Entry{{Ref: makeRef("spender", uint32(i)), Output: makeOutput(100)}}
			_, errs[i] = s.Apply([]types.OutputRef{shared}, create)
		}(i)
	}
	wg.Wait()

	var ok, spent int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSpent):
			spent++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || spent != workers-1 {
		t.Fatalf("applied %d, rejected %d; want 1 and %d", ok, spent, workers-1)
	}

	var live int
	s.ForEach(func(Entry) error { live++; return nil })
	if live != 1 {
		t.Errorf("live entries = %d, want 1", live)
	}
}

func TestStore_ForEach(t *testing.T) {
	s := testStore(t)
	for i := uint32(0); i < 5; i++ {
		mustInsert(t, s, makeRef("tx", i), makeOutput(uint64(i+1)))
	}
	s.Nullify(makeRef("tx", 2))

	var (
		count int
		prev  types.OutputRef
		total uint64
	)
	err := s.ForEach(func(e Entry) error {
		if count > 0 && bytes.Compare(prev[:], e.Ref[:]) >= 0 {
			t.Error("ForEach not in reference order")
		}
		prev = e.Ref
		count++
		total += coinValue(t, &e.Output)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach() error: %v", err)
	}
	if count != 4 {
		t.Errorf("ForEach count = %d, want 4", count)
	}
	if total != 1+2+4+5 {
		t.Errorf("ForEach total = %d, want 12", total)
	}
}

func TestStore_GetByAddress(t *testing.T) {
	s := testStore(t)

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	keyAddr := crypto.AddressFromPubKey(key.PublicKey())
	sigCheck := tx.NewOutput(types.SigCheckScript(key.PublicKey()), money.NewCoin[money.TokenA](9))

	mustInsert(t, s, makeRef("a", 0), makeOutput(1))
	mustInsert(t, s, makeRef("a", 1), makeOutput(2))
	mustInsert(t, s, makeRef("b", 0), sigCheck)
	mustInsert(t, s, makeRef("c", 0), tx.NewOutput(types.UpForGrabsScript(), money.NewCoin[money.TokenA](3)))

	got, err := s.GetByAddress(testAddr)
	if err != nil {
		t.Fatalf("GetByAddress() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetByAddress() returned %d entries, want 2", len(got))
	}

	got, err = s.GetByAddress(keyAddr)
	if err != nil {
		t.Fatalf("GetByAddress() error: %v", err)
	}
	if len(got) != 1 || got[0].Ref != makeRef("b", 0) {
		t.Fatalf("GetByAddress(sigcheck) = %v, want the SigCheck output", got)
	}

	// Spending removes the index entry too.
	if _, err := s.Apply([]types.OutputRef{makeRef("a", 0)}, nil); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	got, _ = s.GetByAddress(testAddr)
	if len(got) != 1 {
		t.Errorf("GetByAddress() after spend returned %d entries, want 1", len(got))
	}
}

func TestStore_ClearAll(t *testing.T) {
	s := testStore(t)
	mustInsert(t, s, makeRef("a", 0), makeOutput(1))
	mustInsert(t, s, makeRef("a", 1), makeOutput(2))

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll() error: %v", err)
	}

	var count int
	s.ForEach(func(Entry) error { count++; return nil })
	if count != 0 {
		t.Errorf("entries after ClearAll = %d, want 0", count)
	}
	got, _ := s.GetByAddress(testAddr)
	if len(got) != 0 {
		t.Errorf("index entries after ClearAll = %d, want 0", len(got))
	}
}

func TestStore_Backends(t *testing.T) {
	badgerDB, err := storage.NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer badgerDB.Close()
	sqliteDB, err := storage.NewSQLite(t.TempDir() + "/ledger.db")
	if err != nil {
		t.Fatalf("NewSQLite() error: %v", err)
	}
	defer sqliteDB.Close()

	for name, db := range map[string]storage.DB{"badger": badgerDB, "sqlite": sqliteDB} {
		t.Run(name, func(t *testing.T) {
			s := NewStore(storage.NewPrefixDB(db, []byte("chain/")))
			in := makeRef("funding", 0)
			mustInsert(t, s, in, makeOutput(10))

			create := []Entry{{Ref: makeRef("spend", 0), Output: makeOutput(10)}}
			if _, err := s.Apply([]types.OutputRef{in}, create); err != nil {
				t.Fatalf("Apply() error: %v", err)
			}
			if _, err := s.Apply([]types.OutputRef{in}, nil); !errors.Is(err, ErrSpent) {
				t.Fatalf("replayed Apply() error = %v, want ErrSpent", err)
			}

			got, err := s.Peek(create[0].Ref)
			if err != nil || got == nil {
				t.Fatalf("Peek() = %v, %v", got, err)
			}
			if coinValue(t, got) != 10 {
				t.Error("value mismatch after Apply()")
			}
		})
	}
}
