package config

import (
	"path/filepath"
	"testing"

	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

func TestDevGenesis_Valid(t *testing.T) {
	g := DevGenesis()
	if err := g.Validate(); err != nil {
		t.Errorf("dev genesis should be valid: %v", err)
	}
	if len(g.Alloc) != 2 {
		t.Errorf("dev genesis has %d allocations, want 2", len(g.Alloc))
	}
}

func TestGenesis_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *Genesis)
	}{
		{"no chain id", func(g *Genesis) { g.ChainID = "" }},
		{"zero amount", func(g *Genesis) { g.Alloc[0].Amount = "0" }},
		{"bad amount", func(g *Genesis) { g.Alloc[0].Amount = "ten" }},
		{"negative amount", func(g *Genesis) { g.Alloc[0].Amount = "-5" }},
		{"amount over 128 bits", func(g *Genesis) { g.Alloc[0].Amount = "340282366920938463463374607431768211456" }},
		{"no owner", func(g *Genesis) { g.Alloc[1].Owner = types.Script{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DevGenesis()
			tt.mutate(g)
			if err := g.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAllocation_Value_Max(t *testing.T) {
	a := Allocation{Amount: "340282366920938463463374607431768211455"}
	v, err := a.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}
	if v.Lo != ^uint64(0) || v.Hi != ^uint64(0) {
		t.Errorf("Value() = %s, want 2^128-1", v)
	}
}

func TestGenesis_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	g := DevGenesis()
	g.Alloc = append(g.Alloc, Allocation{Token: 1, Owner: types.TestScript(true), Amount: "42"})
	if err := g.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("LoadGenesis() error: %v", err)
	}
	h1, _ := g.Hash()
	h2, _ := got.Hash()
	if h1 != h2 {
		t.Error("genesis hash changed through save/load")
	}
	if !got.Alloc[2].Owner.Equal(types.TestScript(true)) {
		t.Error("allocation owner lost through save/load")
	}
}

func TestGenesis_Hash_ChangesWithAlloc(t *testing.T) {
	a := DevGenesis()
	b := DevGenesis()
	b.Alloc[0].Amount = "999"
	ha, _ := a.Hash()
	hb, _ := b.Hash()
	if ha == hb {
		t.Error("different genesis configs hash the same")
	}
}
