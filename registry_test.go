package jaat

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_LazyPerNamespace(t *testing.T) {
	reg := NewRegistry(NewInMemoryKVStore())
	built := 0
	cfg := testPersona()
	reg.Register(cfg, func(store *PreferenceStore, opts ...ModeOption) *Mode {
		built++
		return NewMode(cfg, store, opts...)
	})
	if built != 0 {
		t.Fatal("factory ran at registration")
	}

	a1, err := reg.Mode("alice", "99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a2, _ := reg.Mode("alice", "99")
	b, _ := reg.Mode("bob", "99")
	if a1 != a2 {
		t.Fatal("expected cached instance for same namespace")
	}
	if a1 == b {
		t.Fatal("expected distinct instances per namespace")
	}
	if built != 2 {
		t.Fatalf("expected 2 constructions, got %d", built)
	}
	if !a1.Ready() {
		t.Fatal("registry should initialize modes")
	}

	a1.ProcessInput(context.Background(), "joke", nil)
	if len(b.History()) != 0 {
		t.Fatal("history leaked across namespaces")
	}
}

func TestRegistry_UnknownPersona(t *testing.T) {
	reg := NewRegistry(nil)
	if _, err := reg.Mode("u", "404"); !errors.Is(err, ErrUnknownPersona) {
		t.Fatalf("expected ErrUnknownPersona, got %v", err)
	}
}

func TestRegistry_ReRegisterDropsCache(t *testing.T) {
	reg := NewRegistry(nil)
	cfg := testPersona()
	reg.Register(cfg, nil)
	m1, _ := reg.Mode("u", "99")
	reg.Register(cfg, nil)
	m2, _ := reg.Mode("u", "99")
	if m1 == m2 {
		t.Fatal("expected a fresh instance after re-registration")
	}
	if ids := reg.IDs(); len(ids) != 1 || ids[0] != "99" || reg.Len() != 1 {
		t.Fatalf("unexpected ids %v", ids)
	}
	reg.Evict("u")
	m3, _ := reg.Mode("u", "99")
	if m3 == m2 {
		t.Fatal("expected eviction to drop the instance")
	}
}

func TestRegistry_Infos(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(testPersona(), nil)
	infos := reg.Infos("u")
	if len(infos) != 1 {
		t.Fatalf("expected 1 info, got %d", len(infos))
	}
	if infos[0].ID != "99" || !infos[0].Ready {
		t.Fatalf("unexpected info %+v", infos[0])
	}
}
