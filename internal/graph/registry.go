package graph

import (
	"fmt"
	"sync"
)

// Registry maps type tokens to their metadata. It is populated once at
// process startup by every feature module, then read-only for the lifetime
// of the process: the first materialize call seals it, and later Register
// calls fail with ErrRegistrySealed.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]*TypeMeta
	order  []string
	sealed bool
}

// NewRegistry creates an empty type registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*TypeMeta),
	}
}

// Register adds or replaces a type's metadata. Dynamic child patterns are
// validated here so a malformed pattern surfaces at startup rather than
// mid-materialization.
func (r *Registry) Register(meta *TypeMeta) error {
	if meta == nil || meta.Token == "" || meta.Label == "" || meta.Mapper == nil {
		return fmt.Errorf("%w: token, label, and mapper are required", ErrInvalidMetadata)
	}

	for _, pattern := range meta.DynamicSingleChildPatterns {
		if _, err := CompilePattern(pattern, meta.Token); err != nil {
			return err
		}
	}
	for _, pattern := range meta.DynamicManyChildPatterns {
		if _, err := CompilePattern(pattern, meta.Token); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %q after serving has begun", ErrRegistrySealed, meta.Token)
	}

	if _, exists := r.types[meta.Token]; !exists {
		r.order = append(r.order, meta.Token)
	}
	r.types[meta.Token] = meta

	return nil
}

// ResolveByToken returns the metadata registered under a token.
func (r *Registry) ResolveByToken(token string) (*TypeMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.types[token]
	return meta, ok
}

// ResolveByLabel scans registered metadata in registration order and returns
// the first whose label matches. Callers must avoid label collisions; on a
// collision the first registration wins.
func (r *Registry) ResolveByLabel(label string) (*TypeMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, token := range r.order {
		if meta := r.types[token]; meta.Label == label {
			return meta, true
		}
	}
	return nil, false
}

// Tokens returns all registered tokens in registration order.
func (r *Registry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]string, len(r.order))
	copy(tokens, r.order)
	return tokens
}

// seal transitions the registry into its read-only serving phase.
func (r *Registry) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}
