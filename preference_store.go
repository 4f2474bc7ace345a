package jaat

import (
	"encoding/json"
	"fmt"
	"log"
)

// PreferenceStore persists one JSON blob per key on top of a KVStore.
//
// Every failure is returned as a *Error of kind storage; callers log it and
// keep going with defaults. Nothing here is fatal to a conversation turn.
type PreferenceStore struct {
	kv        KVStore
	namespace string
}

// NewPreferenceStore binds a KVStore to a namespace (user or session id).
// A nil kv falls back to a private in-memory store.
func NewPreferenceStore(kv KVStore, namespace string) *PreferenceStore {
	if kv == nil {
		kv = NewInMemoryKVStore()
	}
	return &PreferenceStore{kv: kv, namespace: namespace}
}

// Namespace returns the namespace this store writes under.
func (p *PreferenceStore) Namespace() string { return p.namespace }

// Load decodes the blob at key into v. It reports false when the key is absent.
func (p *PreferenceStore) Load(key string, v any) (bool, error) {
	raw, err := p.kv.Get(p.namespace, key)
	if err != nil {
		recordStorageError("read")
		return false, NewError(KindStorage, "read", key, err)
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		recordStorageError("parse")
		return false, NewError(KindStorage, "parse", key, err)
	}
	return true, nil
}

// Save replaces the blob at key with the JSON encoding of v.
func (p *PreferenceStore) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return NewError(KindStorage, "encode", key, err)
	}
	if err := p.kv.Set(p.namespace, key, string(data)); err != nil {
		recordStorageError("write")
		return NewError(KindStorage, "write", key, err)
	}
	return nil
}

// Merge applies {...old, ...patch} to the map stored at key and writes it back.
// An unreadable old value is treated as empty. The merged map is returned
// even when the write fails.
func (p *PreferenceStore) Merge(key string, patch map[string]any) (map[string]any, error) {
	current := map[string]any{}
	if _, err := p.Load(key, &current); err != nil {
		log.Printf("[PreferenceStore] %v; merging onto empty value", err)
		current = map[string]any{}
	}
	for k, v := range patch {
		current[k] = v
	}
	return current, p.Save(key, current)
}

// Remove deletes the blob at key.
func (p *PreferenceStore) Remove(key string) error {
	if err := p.kv.Delete(p.namespace, key); err != nil {
		recordStorageError("delete")
		return NewError(KindStorage, "delete", key, err)
	}
	return nil
}

// Keys lists every key stored under the namespace.
func (p *PreferenceStore) Keys() ([]string, error) {
	keys, err := p.kv.ListKeys(p.namespace)
	if err != nil {
		return nil, NewError(KindStorage, "list", "", err)
	}
	return keys, nil
}

// HistoryKey, PreferencesKey and SettingsKey build the persisted key names.
func HistoryKey(storageKey string) string     { return storageKey + "-history" }
func PreferencesKey(storageKey string) string { return storageKey + "-preferences" }
func SettingsKey(feature string) string       { return fmt.Sprintf("jaat-%s-settings", feature) }

// MergeMaps returns a new map with every layer applied left to right.
func MergeMaps(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}
