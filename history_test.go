package jaat

import (
	"fmt"
	"testing"
)

func TestHistory_BoundKeepsMostRecentInOrder(t *testing.T) {
	const capacity = 5
	for k := 1; k <= 7; k++ {
		h := NewHistory(capacity)
		for i := 0; i < capacity+k; i++ {
			h.Append(Turn{Role: RoleUser, Content: fmt.Sprint(i)})
		}
		turns := h.Turns()
		if len(turns) != capacity {
			t.Fatalf("k=%d: expected %d turns, got %d", k, capacity, len(turns))
		}
		for i, turn := range turns {
			want := fmt.Sprint(k + i)
			if turn.Content != want {
				t.Fatalf("k=%d: turn %d = %s, want %s", k, i, turn.Content, want)
			}
		}
	}
}

func TestHistory_PairAppendAcrossBoundary(t *testing.T) {
	h := NewHistory(3)
	h.Append(Turn{Content: "a"}, Turn{Content: "b"})
	h.Append(Turn{Content: "c"}, Turn{Content: "d"})
	got := h.Turns()
	if len(got) != 3 || got[0].Content != "b" || got[2].Content != "d" {
		t.Fatalf("unexpected turns %v", got)
	}
}

func TestHistory_RecentAndClear(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 4; i++ {
		h.Append(Turn{Content: fmt.Sprint(i)})
	}
	r := h.Recent(2)
	if len(r) != 2 || r[0].Content != "2" || r[1].Content != "3" {
		t.Fatalf("unexpected recent %v", r)
	}
	if len(h.Recent(0)) != 4 {
		t.Fatal("Recent(0) should return everything")
	}
	h.Clear()
	if h.Len() != 0 {
		t.Fatal("expected empty after clear")
	}
}

func TestHistory_PersistRoundTrip(t *testing.T) {
	kv := NewInMemoryKVStore()
	store := NewPreferenceStore(kv, "u")
	h := NewHistory(4)
	h.Append(Turn{Role: RoleUser, Content: "hi"}, Turn{Role: RoleAssistant, Content: "hello", RequestType: "greeting"})
	if err := h.Save(store, "jaat-mode12-history"); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, _ := kv.Get("u", "jaat-mode12-history")
	if raw == "" || raw[:24] != `{"conversationHistory":[` {
		t.Fatalf("unexpected persisted shape %s", raw)
	}

	loaded := NewHistory(1)
	if err := loaded.Load(store, "jaat-mode12-history"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != 1 || loaded.Turns()[0].Content != "hello" {
		t.Fatalf("expected trimmed load to keep last turn, got %v", loaded.Turns())
	}
}
