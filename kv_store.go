package jaat

import (
	"sort"
	"sync"
)

// KVStore is the pluggable storage backend for persisted blobs.
//
// Data is organized by namespace (typically a user or session id) and key
// (e.g. "jaat-mode12-history", "jaat-notifier-settings"). A missing key
// reads as "" with a nil error.
type KVStore interface {
	Get(namespace, key string) (string, error)
	Set(namespace, key, value string) error
	Delete(namespace, key string) error
	ListKeys(namespace string) ([]string, error)
}

// InMemoryKVStore is a thread-safe in-memory KVStore for development and tests.
// Data is lost on restart.
type InMemoryKVStore struct {
	mu sync.RWMutex
	kv map[string]map[string]string
}

// NewInMemoryKVStore creates a new in-memory store.
func NewInMemoryKVStore() *InMemoryKVStore {
	return &InMemoryKVStore{kv: make(map[string]map[string]string)}
}

func (s *InMemoryKVStore) Get(namespace, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ns, ok := s.kv[namespace]; ok {
		if v, ok := ns[key]; ok {
			return v, nil
		}
	}
	return "", nil
}

func (s *InMemoryKVStore) Set(namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv[namespace] == nil {
		s.kv[namespace] = make(map[string]string)
	}
	s.kv[namespace][key] = value
	return nil
}

func (s *InMemoryKVStore) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.kv[namespace]; ok {
		delete(ns, key)
		if len(ns) == 0 {
			delete(s.kv, namespace)
		}
	}
	return nil
}

func (s *InMemoryKVStore) ListKeys(namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := s.kv[namespace]
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// FailingKVStore wraps a KVStore and fails every call when Fail is set.
// Useful for exercising storage fallbacks.
type FailingKVStore struct {
	KVStore
	Fail func(op, key string) error
}

func (s *FailingKVStore) Get(namespace, key string) (string, error) {
	if err := s.check("get", key); err != nil {
		return "", err
	}
	return s.KVStore.Get(namespace, key)
}

func (s *FailingKVStore) Set(namespace, key, value string) error {
	if err := s.check("set", key); err != nil {
		return err
	}
	return s.KVStore.Set(namespace, key, value)
}

func (s *FailingKVStore) Delete(namespace, key string) error {
	if err := s.check("delete", key); err != nil {
		return err
	}
	return s.KVStore.Delete(namespace, key)
}

func (s *FailingKVStore) check(op, key string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op, key)
}

var (
	_ KVStore = (*InMemoryKVStore)(nil)
	_ KVStore = (*FailingKVStore)(nil)
)
