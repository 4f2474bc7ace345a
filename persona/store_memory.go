package persona

import (
	"fmt"
	"sort"
	"sync"
)

// InMemoryStore keeps uploaded personas for the lifetime of the process.
type InMemoryStore struct {
	mu       sync.RWMutex
	versions map[string]map[string]*Definition // persona id → version → definition
	byHash   map[string]*Definition
	latest   map[string]string
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		versions: make(map[string]map[string]*Definition),
		byHash:   make(map[string]*Definition),
		latest:   make(map[string]string),
	}
}

// Save stores def as the latest version of its persona. Re-saving an
// identical definition is a no-op; a different one under a stored version
// fails with ErrVersionExists.
func (s *InMemoryStore) Save(def *Definition) error {
	hash := def.Hash()
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.byHash[hash]; ok && stored.ID == def.ID {
		return nil
	}
	byVersion := s.versions[def.ID]
	if byVersion == nil {
		byVersion = make(map[string]*Definition)
		s.versions[def.ID] = byVersion
	}
	if _, taken := byVersion[def.Version]; taken {
		return fmt.Errorf("%w: %s@%s", ErrVersionExists, def.ID, def.Version)
	}
	byVersion[def.Version] = def
	s.byHash[hash] = def
	s.latest[def.ID] = def.Version
	return nil
}

func (s *InMemoryStore) Get(id string) (*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version, ok := s.latest[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.versions[id][version], nil
}

func (s *InMemoryStore) GetVersion(id, version string) (*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if def, ok := s.versions[id][version]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w: %s@%s", ErrNotFound, id, version)
}

// GetByHash returns nil, nil when no upload has that hash.
func (s *InMemoryStore) GetByHash(hash string) (*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byHash[hash], nil
}

func (s *InMemoryStore) ListVersions(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byVersion, ok := s.versions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sortedKeys(byVersion), nil
}

func (s *InMemoryStore) IDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.latest), nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var _ Store = (*InMemoryStore)(nil)
