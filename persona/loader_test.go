package persona

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

func TestLoadFS_SortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"defs/b.yaml":       {Data: []byte("id: b\nname: B\n")},
		"defs/a.yml":        {Data: []byte("id: a\nname: A\n")},
		"defs/notes.txt":    {Data: []byte("ignored")},
		"defs/.hidden.yaml": {Data: []byte("id: h\nname: H\n")},
	}
	defs, err := LoadFS(fsys, "defs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 || defs[0].ID != "a" || defs[1].ID != "b" {
		t.Fatalf("unexpected definitions %+v", defs)
	}
}

func TestLoadFS_ReportsFile(t *testing.T) {
	fsys := fstest.MapFS{"x.yaml": {Data: []byte("id: [\n")}}
	if _, err := LoadFS(fsys, "."); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	def, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	data, err := Marshal(def)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if back.ID != def.ID || len(back.RequestTypes.Rules) != len(def.RequestTypes.Rules) {
		t.Fatalf("round trip lost data: %+v", back)
	}
	if back.RequestTypes.Rules[0].Lua == "" {
		t.Fatal("lua rule lost in round trip")
	}
}

func TestLibrary_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	reg := jaat.NewRegistry(nil)
	lib := NewLibrary(reg, nil)
	defer lib.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx, dir) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "w.yaml"), []byte("id: w\nname: Watched\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := reg.Config("w"); ok {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	cfg, ok := reg.Config("w")
	if !ok {
		t.Fatal("expected watched persona to be registered")
	}
	if cfg.Name != "Watched" {
		t.Fatalf("unexpected name %q", cfg.Name)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch returned %v", err)
	}
}

func TestLibrary_ReplaceKeepsOldRulesLive(t *testing.T) {
	lib := NewLibrary(jaat.NewRegistry(nil), nil)
	defer lib.Close()

	def := func(version string) *Definition {
		d, err := Parse([]byte("id: r\nname: R\nversion: " + version + "\nrequest_types:\n  default: other\n  rules:\n    - tag: knock\n      lua: return text:find('knock', 1, true) ~= nil\n"))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		return d
	}
	old, err := lib.Add(def("1.0.0"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := lib.Add(def("1.1.0")); err != nil {
		t.Fatalf("replace: %v", err)
	}
	// A mode built from the old compilation still classifies with it.
	if got := old.Config.RequestTypes.Classify(jaat.NewInput("knock knock")); got != "knock" {
		t.Fatalf("old compilation stopped matching, got %s", got)
	}
}

func TestLibrary_Protected(t *testing.T) {
	lib := NewLibrary(jaat.NewRegistry(nil), nil)
	defer lib.Close()

	if lib.Protected("a") {
		t.Fatal("unknown id should not be protected")
	}
	lib.Bind("b", func(*Definition) ([]Option, error) { return nil, nil })
	lib.Protect("c")
	if !lib.Protected("b") || !lib.Protected("c") {
		t.Fatal("bound and built-in ids should be protected")
	}
}
