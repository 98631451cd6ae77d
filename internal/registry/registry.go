// Package registry tracks the append-only sets of styles and meta tags seen
// while scraping, and the per-song mappings to them.
package registry

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ppiankov/songcorpus/internal/store"
)

// Store is the persistence used by registries
type Store interface {
	Load(name string, v any) (bool, error)
	Save(name string, v any) error
}

// Registry is an ordered set of unique values persisted as a JSON array
type Registry struct {
	name   string
	values []string
	index  map[string]struct{}
	dirty  bool
}

// New creates an empty registry persisted under name
func New(name string) *Registry {
	return &Registry{
		name:  name,
		index: make(map[string]struct{}),
	}
}

// Load reads a registry. A malformed document is logged and treated as empty;
// other store errors are returned.
func Load(s Store, name string) (*Registry, error) {
	r := New(name)

	var values []string
	if _, err := s.Load(name, &values); err != nil {
		if !store.IsParseError(err) {
			return nil, fmt.Errorf("load registry %s: %w", name, err)
		}
		log.Warn().Err(err).Str("document", name).Msg("Malformed registry, starting empty")
		values = nil
	}

	for _, v := range values {
		r.insert(v)
	}
	return r, nil
}

// Name returns the document name
func (r *Registry) Name() string {
	return r.name
}

// Contains reports whether v is registered
func (r *Registry) Contains(v string) bool {
	_, ok := r.index[v]
	return ok
}

// Add registers every value not yet present and returns the newly added ones
func (r *Registry) Add(values ...string) []string {
	var added []string
	for _, v := range values {
		if r.insert(v) {
			added = append(added, v)
		}
	}
	if len(added) > 0 {
		r.dirty = true
	}
	return added
}

// Values returns registered values in insertion order
func (r *Registry) Values() []string {
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

// Len returns the number of registered values
func (r *Registry) Len() int {
	return len(r.values)
}

// Dirty reports whether there are unsaved additions
func (r *Registry) Dirty() bool {
	return r.dirty
}

// Persist saves the registry if it changed since the last save.
// Returns true when a write happened.
func (r *Registry) Persist(s Store) (bool, error) {
	if !r.dirty {
		return false, nil
	}
	if err := s.Save(r.name, r.values); err != nil {
		return false, fmt.Errorf("save registry %s: %w", r.name, err)
	}
	r.dirty = false
	return true, nil
}

func (r *Registry) insert(v string) bool {
	if _, ok := r.index[v]; ok {
		return false
	}
	r.index[v] = struct{}{}
	r.values = append(r.values, v)
	return true
}
