// Package fun is the builtin and intrinsic registry: it resolves a function
// name, and optionally a fixed variant index, to a callable descriptor.
package fun

import (
	"fmt"
	"sort"
	"sync"
)

// Kind distinguishes how a builtin receives its arguments.
type Kind uint8

const (
	// KindBuiltin functions receive evaluated arguments.
	KindBuiltin Kind = iota
	// KindSpecial functions receive their call unevaluated.
	KindSpecial
	// KindInternal functions are only reachable through .Internal.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindSpecial:
		return "special"
	case KindInternal:
		return "internal"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Builtin describes one callable.
type Builtin struct {
	Name string
	Kind Kind
	// Safe builtins have no side effects on the environment and never call
	// back into user code.
	Safe bool
}

func (b *Builtin) String() string { return b.Name }

// Registry maps names to builtins. Variant families (such as the MATH1
// functions) map a family name and index to a member.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*Builtin
	variants map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]*Builtin),
		variants: make(map[string][]string),
	}
}

// Register adds or replaces a builtin.
func (r *Registry) Register(b *Builtin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[b.Name] = b
}

// RegisterVariants declares a family whose members are selected by index.
// Every member must already be registered.
func (r *Registry) RegisterVariants(family string, members []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range members {
		if _, ok := r.byName[m]; !ok {
			return fmt.Errorf("fun: variant %q of %q is not registered", m, family)
		}
	}
	r.variants[family] = append([]string(nil), members...)
	return nil
}

// Lookup resolves a name.
func (r *Registry) Lookup(name string) (*Builtin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byName[name]
	return b, ok
}

// LookupKind resolves a name and checks its kind.
func (r *Registry) LookupKind(name string, kind Kind) (*Builtin, error) {
	b, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("fun: unknown builtin %q", name)
	}
	if b.Kind != kind {
		return nil, fmt.Errorf("fun: %q is a %s, not a %s", name, b.Kind, kind)
	}
	return b, nil
}

// Variant resolves member idx (zero-based) of a family.
func (r *Registry) Variant(family string, idx int) (*Builtin, error) {
	r.mu.RLock()
	members, ok := r.variants[family]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("fun: unknown variant family %q", family)
	}
	if idx < 0 || idx >= len(members) {
		return nil, fmt.Errorf("fun: %s variant %d out of range [0,%d)", family, idx, len(members))
	}
	b, _ := r.Lookup(members[idx])
	return b, nil
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
