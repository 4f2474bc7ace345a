package persona

import (
	"errors"
	"testing"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

func testStores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewInMemoryStore(),
		"file":   NewFileStore(t.TempDir()),
	}
}

func TestStore_VersionsAndLatest(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			v1 := &Definition{ID: "c", Name: "Custom", Version: "1.0.0"}
			v2 := &Definition{ID: "c", Name: "Custom v2", Version: "1.1.0"}
			if err := s.Save(v1); err != nil {
				t.Fatalf("save v1: %v", err)
			}
			if err := s.Save(v2); err != nil {
				t.Fatalf("save v2: %v", err)
			}
			if err := s.Save(&Definition{ID: "c", Name: "Custom", Version: "1.0.0"}); err != nil {
				t.Fatalf("identical re-save should be a no-op, got %v", err)
			}
			if err := s.Save(&Definition{ID: "c", Name: "Edited", Version: "1.0.0"}); !errors.Is(err, ErrVersionExists) {
				t.Fatalf("expected ErrVersionExists, got %v", err)
			}

			latest, err := s.Get("c")
			if err != nil || latest.Name != "Custom v2" {
				t.Fatalf("unexpected latest %+v, %v", latest, err)
			}
			old, err := s.GetVersion("c", "1.0.0")
			if err != nil || old.Name != "Custom" {
				t.Fatalf("unexpected v1 %+v, %v", old, err)
			}
			versions, _ := s.ListVersions("c")
			if len(versions) != 2 || versions[0] != "1.0.0" {
				t.Fatalf("unexpected versions %v", versions)
			}
			byHash, _ := s.GetByHash(v1.Hash())
			if byHash == nil || byHash.Version != "1.0.0" {
				t.Fatalf("hash lookup failed: %+v", byHash)
			}
			if missing, _ := s.GetByHash("nope"); missing != nil {
				t.Fatal("expected nil for unknown hash")
			}
			if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			ids, _ := s.IDs()
			if len(ids) != 1 || ids[0] != "c" {
				t.Fatalf("unexpected ids %v", ids)
			}
		})
	}
}

func TestStore_IdenticalResaveKeepsLatest(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			v1 := &Definition{ID: "c", Name: "Custom", Version: "1.0.0"}
			v2 := &Definition{ID: "c", Name: "Custom v2", Version: "1.1.0"}
			for _, d := range []*Definition{v1, v2, v1} {
				if err := s.Save(d); err != nil {
					t.Fatalf("save %s: %v", d.Version, err)
				}
			}
			latest, err := s.Get("c")
			if err != nil || latest.Version != "1.1.0" {
				t.Fatalf("re-save moved latest: %+v, %v", latest, err)
			}
			versions, _ := s.ListVersions("c")
			if len(versions) != 2 {
				t.Fatalf("unexpected versions %v", versions)
			}
			// Same content under another id is its own persona.
			if err := s.Save(&Definition{ID: "d", Name: "Custom", Version: "1.0.0"}); err != nil {
				t.Fatalf("save d: %v", err)
			}
			if ids, _ := s.IDs(); len(ids) != 2 {
				t.Fatalf("unexpected ids %v", ids)
			}
		})
	}
}

func TestLibrary_LoadStore(t *testing.T) {
	s := NewInMemoryStore()
	_ = s.Save(&Definition{ID: "c1", Name: "One", Version: "1.0.0"})
	_ = s.Save(&Definition{ID: "c2", Name: "Two", Version: "1.0.0"})

	reg := jaat.NewRegistry(nil)
	lib := NewLibrary(reg, nil)
	defer lib.Close()
	if err := lib.LoadStore(s); err != nil {
		t.Fatalf("load store: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 registered personas, got %d", reg.Len())
	}
	if _, ok := lib.Get("c1"); !ok {
		t.Fatal("expected compiled persona c1")
	}
}

func TestLibrary_LoadStoreSkipsProtected(t *testing.T) {
	s := NewInMemoryStore()
	_ = s.Save(&Definition{ID: "builtin", Name: "Hijack", Version: "9.0.0"})
	_ = s.Save(&Definition{ID: "c1", Name: "One", Version: "1.0.0"})

	reg := jaat.NewRegistry(nil)
	lib := NewLibrary(reg, nil)
	defer lib.Close()
	if _, err := lib.Add(&Definition{ID: "builtin", Name: "Builtin"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	lib.Protect("builtin")

	if err := lib.LoadStore(s); err != nil {
		t.Fatalf("load store: %v", err)
	}
	cfg, _ := reg.Config("builtin")
	if cfg.Name != "Builtin" {
		t.Fatalf("stored upload replaced a protected persona: %q", cfg.Name)
	}
	if _, ok := lib.Get("c1"); !ok {
		t.Fatal("expected compiled persona c1")
	}
}
