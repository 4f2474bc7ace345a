package persona

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

// Binding derives compiler options for a definition, typically Go
// templates and hooks built from its extra section.
type Binding func(def *Definition) ([]Option, error)

// Library compiles definitions and keeps the registry in sync with them.
// A replaced compilation is not closed: modes built from it may still be
// mid-turn and keep evaluating its rules until they are dropped.
type Library struct {
	mu        sync.Mutex
	registry  *jaat.Registry
	compiler  *Compiler
	bindings  map[string]Binding
	personas  map[string]*Persona
	protected map[string]bool
}

// NewLibrary creates a Library registering into reg. A nil compiler uses
// NewCompiler().
func NewLibrary(reg *jaat.Registry, compiler *Compiler) *Library {
	if compiler == nil {
		compiler = NewCompiler()
	}
	return &Library{
		registry:  reg,
		compiler:  compiler,
		bindings:  make(map[string]Binding),
		personas:  make(map[string]*Persona),
		protected: make(map[string]bool),
	}
}

// Protect marks ids that uploads may not replace.
func (l *Library) Protect(ids ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		l.protected[id] = true
	}
}

// Protected reports whether id is built in or has a Go binding.
func (l *Library) Protected(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, bound := l.bindings[id]
	return bound || l.protected[id]
}

// Bind attaches Go behavior to persona id. Every later Add of that id,
// including hot reloads, compiles with the options the binding returns.
func (l *Library) Bind(id string, b Binding) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bindings[id] = b
}

// Add compiles def and registers it.
func (l *Library) Add(def *Definition) (*Persona, error) {
	compiler, err := l.compilerFor(def)
	if err != nil {
		return nil, err
	}
	p, err := compiler.Compile(def)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.personas[p.Config.ID] = p
	l.registry.Register(p.Config, nil)
	return p, nil
}

func (l *Library) compilerFor(def *Definition) (*Compiler, error) {
	l.mu.Lock()
	b, ok := l.bindings[def.ID]
	l.mu.Unlock()
	if !ok {
		return l.compiler, nil
	}
	opts, err := b(def)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", def.ID, err)
	}
	return NewCompiler(opts...), nil
}

// IDs returns the ids of the compiled personas.
func (l *Library) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.personas))
	for id := range l.personas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddAll adds every definition, stopping at the first error.
func (l *Library) AddAll(defs []*Definition) error {
	for _, def := range defs {
		if _, err := l.Add(def); err != nil {
			return err
		}
	}
	return nil
}

// LoadStore adds the latest version of every persona in s. Protected ids
// are skipped so a stored upload cannot replace a built-in persona.
func (l *Library) LoadStore(s Store) error {
	ids, err := s.IDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if l.Protected(id) {
			log.Printf("[Persona] skipping stored upload %s: %v", id, ErrProtected)
			continue
		}
		def, err := s.Get(id)
		if err != nil {
			return fmt.Errorf("load %s: %w", id, err)
		}
		if _, err := l.Add(def); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the compiled persona for id.
func (l *Library) Get(id string) (*Persona, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.personas[id]
	return p, ok
}

// Watch reloads definitions from dir as they change until ctx is done.
// A definition that fails to load or compile keeps the previous version.
func (l *Library) Watch(ctx context.Context, dir string) error {
	return Watch(ctx, dir, func(file string, def *Definition, err error) {
		if err != nil {
			log.Printf("[Persona] reload %s: %v", file, err)
			return
		}
		if _, err := l.Add(def); err != nil {
			log.Printf("[Persona] reload %s: %v", file, err)
			return
		}
		log.Printf("[Persona] reloaded %s from %s", def.ID, file)
	})
}

// Close releases every compiled persona.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.personas {
		p.Close()
	}
	l.personas = make(map[string]*Persona)
}
