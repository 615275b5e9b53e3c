package constraint

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-dex/pkg/payload"
	"github.com/Klingon-tech/klingnet-dex/pkg/tx"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// countChecker accepts when there are at least as many inputs as outputs
// and reports the difference as priority.
type countChecker struct {
	gotInputs, gotOutputs []payload.Payload
}

var errMoreOutputs = errors.New("more outputs than inputs")

func (c *countChecker) Check(inputs, outputs []payload.Payload) (Priority, error) {
	c.gotInputs, c.gotOutputs = inputs, outputs
	if len(outputs) > len(inputs) {
		return 0, errMoreOutputs
	}
	return Priority(len(inputs) - len(outputs)), nil
}

func output(owner types.Script, tag byte) tx.Output {
	return tx.Output{
		Owner:   owner,
		Payload: payload.Payload{TypeID: types.TypeID{'t', 'e', 's', tag}, Data: []byte{tag}},
	}
}

func TestSimple_ProjectsPayloads(t *testing.T) {
	cc := &countChecker{}
	c := Simple(cc)

	ins := []tx.Output{output(types.TestScript(true), 1), output(types.UpForGrabsScript(), 2)}
	peeks := []tx.Output{output(types.UpForGrabsScript(), 9)}
	outs := []tx.Output{output(types.TestScript(false), 3)}

	prio, err := c.CheckFull(ins, peeks, outs)
	if err != nil {
		t.Fatalf("CheckFull() error: %v", err)
	}
	if prio != 1 {
		t.Errorf("priority = %d, want 1", prio)
	}
	if len(cc.gotInputs) != 2 || cc.gotInputs[0].Data[0] != 1 || cc.gotInputs[1].Data[0] != 2 {
		t.Errorf("inputs seen = %v", cc.gotInputs)
	}
	if len(cc.gotOutputs) != 1 || cc.gotOutputs[0].Data[0] != 3 {
		t.Errorf("outputs seen = %v", cc.gotOutputs)
	}
}

func TestSimple_PropagatesError(t *testing.T) {
	c := Simple(&countChecker{})
	_, err := c.CheckFull(nil, nil, []tx.Output{output(types.UpForGrabsScript(), 1)})
	if !errors.Is(err, errMoreOutputs) {
		t.Errorf("expected errMoreOutputs, got: %v", err)
	}
}

func TestCheckerFunc(t *testing.T) {
	var sawPeeks int
	c := CheckerFunc(func(_, peeks, _ []tx.Output) (Priority, error) {
		sawPeeks = len(peeks)
		return 7, nil
	})
	prio, err := c.CheckFull(nil, []tx.Output{{}, {}}, nil)
	if err != nil || prio != 7 || sawPeeks != 2 {
		t.Errorf("CheckFull() = %d, %v; peeks seen %d", prio, err, sawPeeks)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := Simple(&countChecker{})
	if err := r.Register("b", a); err != nil {
		t.Fatalf("Register(b): %v", err)
	}
	r.MustRegister("a", a)

	if err := r.Register("a", a); !errors.Is(err, ErrDuplicateChecker) {
		t.Errorf("duplicate Register() error = %v", err)
	}
	if err := r.Register("", a); err == nil {
		t.Error("empty tag should be rejected")
	}

	if _, err := r.Lookup("a"); err != nil {
		t.Errorf("Lookup(a): %v", err)
	}
	if _, err := r.Lookup("zzz"); !errors.Is(err, ErrUnknownChecker) {
		t.Errorf("Lookup(zzz) error = %v, want ErrUnknownChecker", err)
	}

	kinds := r.Kinds()
	if len(kinds) != 2 || kinds[0] != "a" || kinds[1] != "b" {
		t.Errorf("Kinds() = %v", kinds)
	}
}

func TestMustRegister_Panics(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("x", Simple(&countChecker{}))
	defer func() {
		if recover() == nil {
			t.Error("MustRegister with duplicate tag should panic")
		}
	}()
	r.MustRegister("x", Simple(&countChecker{}))
}
