// Package structures maps structure identifiers such as "@kabinet/pod" to
// functions that expand an ID into the full resource and shrink a resource
// back to its ID. Task runtimes use it to pass resources by reference.
package structures

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDuplicateStructure indicates the identifier is already registered.
	ErrDuplicateStructure = errors.New("structure already registered")

	// ErrUnknownStructure indicates no structure is registered under the identifier.
	ErrUnknownStructure = errors.New("unknown structure")

	// ErrInvalidStructure indicates the structure definition is incomplete.
	ErrInvalidStructure = errors.New("invalid structure")
)

// Scope tells whether a structure reference is meaningful outside the
// process that created it.
type Scope int

const (
	// ScopeLocal references are only valid within one app.
	ScopeLocal Scope = iota

	// ScopeGlobal references can be expanded by any app.
	ScopeGlobal
)

// String returns "LOCAL" or "GLOBAL".
func (s Scope) String() string {
	if s == ScopeGlobal {
		return "GLOBAL"
	}
	return "LOCAL"
}

// ExpandFunc loads the resource identified by id.
type ExpandFunc func(ctx context.Context, id string) (interface{}, error)

// ShrinkFunc reduces a resource to its ID.
type ShrinkFunc func(value interface{}) (string, error)

// Widget describes how a UI lets users pick a structure value.
type Widget struct {
	// Kind is the widget kind, e.g. "SearchWidget".
	Kind string

	// Query is the GraphQL document returning value/label options.
	Query string
}

// SearchWidget returns a search widget backed by query.
func SearchWidget(query string) *Widget {
	return &Widget{Kind: "SearchWidget", Query: query}
}

// Structure is one registered structure.
type Structure struct {
	Identifier string
	Scope      Scope
	Expand     ExpandFunc
	Shrink     ShrinkFunc
	Widget     *Widget
}

// Validate checks that the identifier has the "@package/name" form and
// that expand and shrink are set.
func (s Structure) Validate() error {
	pkg, name, ok := strings.Cut(strings.TrimPrefix(s.Identifier, "@"), "/")
	if !strings.HasPrefix(s.Identifier, "@") || !ok || pkg == "" || name == "" {
		return fmt.Errorf("%w: identifier %q must look like @package/name", ErrInvalidStructure, s.Identifier)
	}
	if s.Expand == nil {
		return fmt.Errorf("%w: %s has no expand function", ErrInvalidStructure, s.Identifier)
	}
	if s.Shrink == nil {
		return fmt.Errorf("%w: %s has no shrink function", ErrInvalidStructure, s.Identifier)
	}
	return nil
}

// Registry holds structures keyed by identifier. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	structures map[string]Structure
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{structures: make(map[string]Structure)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register adds s. Registering an identifier twice fails.
func (r *Registry) Register(s Structure) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.structures[s.Identifier]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateStructure, s.Identifier)
	}
	r.structures[s.Identifier] = s
	return nil
}

// Lookup returns the structure registered under identifier.
func (r *Registry) Lookup(identifier string) (Structure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.structures[identifier]
	return s, ok
}

// Expand loads the resource id of the structure identifier.
func (r *Registry) Expand(ctx context.Context, identifier, id string) (interface{}, error) {
	s, ok := r.Lookup(identifier)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStructure, identifier)
	}
	value, err := s.Expand(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s %s: %w", identifier, id, err)
	}
	return value, nil
}

// Shrink reduces value to its ID using the structure identifier.
func (r *Registry) Shrink(identifier string, value interface{}) (string, error) {
	s, ok := r.Lookup(identifier)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStructure, identifier)
	}
	id, err := s.Shrink(value)
	if err != nil {
		return "", fmt.Errorf("failed to shrink %s: %w", identifier, err)
	}
	return id, nil
}

// Identifiers returns the registered identifiers in sorted order.
func (r *Registry) Identifiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.structures))
	for id := range r.structures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ShrinkByID builds a ShrinkFunc for values of type T or *T.
func ShrinkByID[T any](id func(T) string) ShrinkFunc {
	return func(value interface{}) (string, error) {
		switch v := value.(type) {
		case T:
			return id(v), nil
		case *T:
			if v == nil {
				return "", fmt.Errorf("%w: nil value", ErrInvalidStructure)
			}
			return id(*v), nil
		}
		var zero T
		return "", fmt.Errorf("%w: cannot shrink %T, want %T", ErrInvalidStructure, value, zero)
	}
}

// ExpandWith adapts a typed getter to an ExpandFunc.
func ExpandWith[T any](get func(ctx context.Context, id string) (T, error)) ExpandFunc {
	return func(ctx context.Context, id string) (interface{}, error) {
		return get(ctx, id)
	}
}
