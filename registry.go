package jaat

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

// Factory builds a fresh, uninitialized Mode for one namespace.
type Factory func(store *PreferenceStore, opts ...ModeOption) *Mode

// ConfigFactory returns a Factory for a static PersonaConfig.
func ConfigFactory(cfg *PersonaConfig) Factory {
	return func(store *PreferenceStore, opts ...ModeOption) *Mode {
		return NewMode(cfg, store, opts...)
	}
}

// Registry maps persona ids to factories and caches one initialized Mode
// per (namespace, persona) pair.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	infos     map[string]*PersonaConfig
	instances map[string]*Mode
	kv        KVStore
	opts      []ModeOption
	init      Options
}

// NewRegistry creates a registry whose modes persist to kv.
func NewRegistry(kv KVStore, opts ...ModeOption) *Registry {
	if kv == nil {
		kv = NewInMemoryKVStore()
	}
	return &Registry{
		factories: make(map[string]Factory),
		infos:     make(map[string]*PersonaConfig),
		instances: make(map[string]*Mode),
		kv:        kv,
		opts:      opts,
	}
}

// SetInitOptions sets the Options passed to Initialize for new modes.
func (r *Registry) SetInitOptions(opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.init = opts
}

// Register adds or replaces a persona. Cached instances of that persona
// are dropped so the next lookup uses the new factory.
func (r *Registry) Register(cfg *PersonaConfig, factory Factory) {
	if factory == nil {
		factory = ConfigFactory(cfg)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[cfg.ID] = factory
	r.infos[cfg.ID] = cfg
	suffix := "\x00" + cfg.ID
	for k := range r.instances {
		if strings.HasSuffix(k, suffix) {
			delete(r.instances, k)
		}
	}
	log.Printf("[Registry] Registered: %s (%s)", cfg.ID, cfg.Name)
}

// Mode returns the initialized Mode for namespace and persona id,
// constructing it on first use.
func (r *Registry) Mode(namespace, id string) (*Mode, error) {
	key := namespace + "\x00" + id
	r.mu.RLock()
	m, ok := r.instances[key]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.instances[key]; ok {
		return m, nil
	}
	factory, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPersona, id)
	}
	m = factory(NewPreferenceStore(r.kv, namespace), r.opts...)
	m.Initialize(r.init)
	r.instances[key] = m
	return m, nil
}

// Config returns the registered config for id.
func (r *Registry) Config(id string) (*PersonaConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.infos[id]
	return cfg, ok
}

// IDs lists registered persona ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered personas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Evict drops every cached Mode of namespace.
func (r *Registry) Evict(namespace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := namespace + "\x00"
	for k := range r.instances {
		if strings.HasPrefix(k, prefix) {
			delete(r.instances, k)
		}
	}
}

// Infos returns ModeInfo for every registered persona as seen by namespace,
// in id order. Personas whose construction fails are skipped.
func (r *Registry) Infos(namespace string) []ModeInfo {
	ids := r.IDs()
	out := make([]ModeInfo, 0, len(ids))
	for _, id := range ids {
		m, err := r.Mode(namespace, id)
		if err != nil {
			log.Printf("[Registry] %s: %v", id, err)
			continue
		}
		out = append(out, m.ModeInfo())
	}
	return out
}
