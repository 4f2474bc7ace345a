package panel

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

const testKey = "jaat-test-settings"

func testPanel(store *jaat.PreferenceStore) *Panel {
	m := NewModel(store, testKey, map[string]any{
		"enabled":  true,
		"sound":    true,
		"volume":   0.5,
		"theme":    "light",
		"keywords": []string{},
		"footer":   "Exported",
	})
	return &Panel{
		Title:  "Test Settings",
		Model:  m,
		Toggle: &Field{Key: "enabled", Label: "Enabled", Kind: KindCheckbox},
		Sections: []Section{
			{ID: "delivery", Title: "Delivery", Fields: []Field{
				{Key: "sound", Label: "Play sound", Kind: KindCheckbox},
				{Key: "theme", Label: "Theme", Kind: KindSelect, Options: []Option{{"light", "Light"}, {"dark", "Dark"}}},
				{Key: "footer", Label: "Footer", Kind: KindText},
			}},
			{ID: "sound", Title: "Sound", VisibleWhen: Enabled("sound"), Fields: []Field{
				{Key: "volume", Label: "Volume", Kind: KindRange, Min: 0, Max: 1, Step: 0.05},
			}},
			{ID: "keywords", Title: "Keywords", Fields: []Field{
				{Key: "keywords", Label: "Keywords", Kind: KindList},
			}},
		},
	}
}

func TestPanel_RenderReflectsModel(t *testing.T) {
	p := testPanel(nil)
	v := p.Render()
	assert.Equal(t, "Test Settings", v.Title)
	require.NotNil(t, v.Toggle)
	assert.Equal(t, true, v.Toggle.Value)
	require.Len(t, v.Sections, 3)

	sound, ok := v.Section("sound")
	require.True(t, ok)
	assert.False(t, sound.Hidden)
	assert.Equal(t, 0.5, sound.Controls[0].Value)
	assert.Equal(t, 0.05, sound.Controls[0].Step)
}

func TestPanel_GoverningToggleHidesButPreserves(t *testing.T) {
	p := testPanel(nil)
	require.NoError(t, p.Change("volume", "0.8"))
	require.NoError(t, p.Change("sound", "false"))

	sound, _ := p.Render().Section("sound")
	assert.True(t, sound.Hidden)
	assert.Equal(t, 0.8, sound.Controls[0].Value)

	require.NoError(t, p.Change("sound", "true"))
	sound, _ = p.Render().Section("sound")
	assert.False(t, sound.Hidden)
	assert.Equal(t, 0.8, p.Model.Float("volume"))
}

func TestPanel_ChangeParsesByKind(t *testing.T) {
	p := testPanel(nil)

	require.NoError(t, p.Change("volume", "7"))
	assert.Equal(t, 1.0, p.Model.Float("volume"))
	require.NoError(t, p.Change("volume", "-2"))
	assert.Equal(t, 0.0, p.Model.Float("volume"))
	assert.ErrorIs(t, p.Change("volume", "loud"), ErrInvalidValue)

	require.NoError(t, p.Change("theme", "dark"))
	assert.Equal(t, "dark", p.Model.String("theme"))
	assert.ErrorIs(t, p.Change("theme", "neon"), ErrInvalidOption)

	assert.ErrorIs(t, p.Change("sound", "maybe"), ErrInvalidValue)
	assert.ErrorIs(t, p.Change("missing", "x"), ErrUnknownField)

	require.NoError(t, p.Change("footer", "Bye"))
	assert.Equal(t, "Bye", p.Model.String("footer"))
}

func TestPanel_ListEdits(t *testing.T) {
	p := testPanel(nil)
	require.NoError(t, p.Change("keywords", "+urgent"))
	require.NoError(t, p.Change("keywords", "+deploy"))
	require.NoError(t, p.Change("keywords", "+urgent"))
	assert.Equal(t, []string{"urgent", "deploy"}, p.Model.Strings("keywords"))

	require.NoError(t, p.Change("keywords", "-urgent"))
	assert.Equal(t, []string{"deploy"}, p.Model.Strings("keywords"))

	require.NoError(t, p.Change("keywords", "a, b ,,a"))
	assert.Equal(t, []string{"a", "b"}, p.Model.Strings("keywords"))
}

func TestPanel_ChangeValue(t *testing.T) {
	p := testPanel(nil)
	require.NoError(t, p.ChangeValue("sound", false))
	assert.False(t, p.Model.Bool("sound"))
	require.NoError(t, p.ChangeValue("volume", 3.0))
	assert.Equal(t, 1.0, p.Model.Float("volume"))
	require.NoError(t, p.ChangeValue("keywords", []any{"x", "y"}))
	assert.Equal(t, []string{"x", "y"}, p.Model.Strings("keywords"))

	assert.ErrorIs(t, p.ChangeValue("sound", "yes"), ErrInvalidValue)
	assert.ErrorIs(t, p.ChangeValue("theme", "neon"), ErrInvalidOption)
	assert.ErrorIs(t, p.ChangeValue("keywords", 5), ErrInvalidValue)
}

func TestPanel_ApplyAndAction(t *testing.T) {
	p := testPanel(nil)
	var applied any
	clicked := 0
	p.Sections = append(p.Sections, Section{ID: "custom", Fields: []Field{
		{Key: "custom", Kind: KindText, Apply: func(v any) error { applied = v; return nil }},
		{Key: "go", Kind: KindAction, Action: func() error { clicked++; return errors.New("denied") }},
	}})
	require.NoError(t, p.Change("custom", "value"))
	assert.Equal(t, "value", applied)
	assert.Nil(t, p.Model.Get("custom"))

	assert.EqualError(t, p.Change("go", ""), "denied")
	assert.Equal(t, 1, clicked)
}

func TestModel_PersistsAndReloads(t *testing.T) {
	kv := jaat.NewInMemoryKVStore()
	store := jaat.NewPreferenceStore(kv, "u1")
	p := testPanel(store)
	require.NoError(t, p.Change("theme", "dark"))

	raw, _ := kv.Get("u1", testKey)
	assert.Contains(t, raw, `"theme":"dark"`)

	reloaded := testPanel(store)
	assert.Equal(t, "dark", reloaded.Model.String("theme"))
	assert.Equal(t, 0.5, reloaded.Model.Float("volume"))
}

func TestModel_StorageFailureKeepsValue(t *testing.T) {
	kv := &jaat.FailingKVStore{KVStore: jaat.NewInMemoryKVStore(), Fail: func(op, key string) error {
		if op == "set" {
			return errors.New("disk full")
		}
		return nil
	}}
	m := NewModel(jaat.NewPreferenceStore(kv, "u"), testKey, map[string]any{"a": 1.0})
	err := m.Set("a", 2.0)
	assert.ErrorIs(t, err, jaat.ErrStorage)
	assert.Equal(t, 2.0, m.Float("a"))
}

func TestModel_SubscribeAndDecode(t *testing.T) {
	m := NewModel(nil, testKey, map[string]any{"enabled": true, "maxStackSize": 5.0})
	var seen []map[string]any
	cancel := m.Subscribe(func(patch map[string]any) { seen = append(seen, patch) })
	require.NoError(t, m.Set("enabled", false))
	cancel()
	require.NoError(t, m.Set("enabled", true))
	require.Len(t, seen, 1)
	assert.Equal(t, false, seen[0]["enabled"])

	var s struct {
		Enabled      bool `json:"enabled"`
		MaxStackSize int  `json:"maxStackSize"`
	}
	require.NoError(t, m.Decode(&s))
	assert.True(t, s.Enabled)
	assert.Equal(t, 5, s.MaxStackSize)
}

// slowFirstKV stalls the first write so a later merge could overtake it.
type slowFirstKV struct {
	jaat.KVStore
	calls atomic.Int32
}

func (s *slowFirstKV) Set(namespace, key, value string) error {
	if s.calls.Add(1) == 1 {
		time.Sleep(30 * time.Millisecond)
	}
	return s.KVStore.Set(namespace, key, value)
}

func TestModel_ConcurrentMergesPersistInOrder(t *testing.T) {
	kv := &slowFirstKV{KVStore: jaat.NewInMemoryKVStore()}
	store := jaat.NewPreferenceStore(kv, "u1")
	m := NewModel(store, testKey, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, m.Set(fmt.Sprintf("k%d", i), true))
		}(i)
	}
	wg.Wait()

	reloaded := NewModel(store, testKey, nil)
	for i := 0; i < 8; i++ {
		assert.True(t, reloaded.Bool(fmt.Sprintf("k%d", i)), "k%d missing from stored blob", i)
	}
}
