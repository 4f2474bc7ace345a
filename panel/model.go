package panel

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

// Model is a serializable settings map persisted as one blob under a
// "<feature>-settings" key. Writes merge {...old, ...patch} and notify
// subscribers.
type Model struct {
	mu sync.RWMutex
	// saveMu orders persistence so the stored blob follows merge order.
	saveMu    sync.Mutex
	values    map[string]any
	store     *jaat.PreferenceStore
	key       string
	observers map[int]func(patch map[string]any)
	nextID    int
}

// NewModel builds a model from defaults overlaid with whatever is persisted
// under key. A storage failure is logged and the defaults are kept.
func NewModel(store *jaat.PreferenceStore, key string, defaults map[string]any) *Model {
	m := &Model{
		values:    copyMap(defaults),
		store:     store,
		key:       key,
		observers: make(map[int]func(map[string]any)),
	}
	if store == nil {
		return m
	}
	var saved map[string]any
	if _, err := store.Load(key, &saved); err != nil {
		log.Printf("[Panel] load %s failed, using defaults: %v", key, err)
		return m
	}
	for k, v := range saved {
		m.values[k] = v
	}
	return m
}

// Key returns the storage key the model persists under.
func (m *Model) Key() string { return m.key }

// Get returns the raw value at key.
func (m *Model) Get(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key]
}

func (m *Model) Bool(key string) bool {
	b, _ := m.Get(key).(bool)
	return b
}

func (m *Model) String(key string) string {
	s, _ := m.Get(key).(string)
	return s
}

func (m *Model) Float(key string) float64 {
	switch n := m.Get(key).(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// Strings returns a list value as []string.
func (m *Model) Strings(key string) []string {
	return append([]string(nil), jaat.AsStrings(m.Get(key))...)
}

// Set merges a single value.
func (m *Model) Set(key string, v any) error {
	return m.Merge(map[string]any{key: v})
}

// Merge applies patch, persists the whole map and notifies subscribers.
// The in-memory merge always happens; the returned error is the storage
// failure, if any.
func (m *Model) Merge(patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	m.saveMu.Lock()
	m.mu.Lock()
	for k, v := range patch {
		m.values[k] = v
	}
	snapshot := copyMap(m.values)
	observers := make([]func(map[string]any), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	var err error
	if m.store != nil {
		if err = m.store.Save(m.key, snapshot); err != nil {
			log.Printf("[Panel] save %s failed: %v", m.key, err)
		}
	}
	m.saveMu.Unlock()
	for _, fn := range observers {
		fn(copyMap(patch))
	}
	return err
}

// Snapshot returns a copy of every value.
func (m *Model) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyMap(m.values)
}

// Decode fills v (a JSON-tagged struct) from the current values.
func (m *Model) Decode(v any) error {
	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}

// Subscribe registers fn for every merged patch. The returned func removes it.
func (m *Model) Subscribe(fn func(patch map[string]any)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out[k] = v
	}
	return out
}
