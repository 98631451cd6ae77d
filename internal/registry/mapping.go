package registry

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ppiankov/songcorpus/internal/store"
)

// Mapping maps a song URL to the values found for it. Entries are replaced,
// never merged, when a song is processed again.
type Mapping struct {
	name    string
	entries map[string][]string
}

// NewMapping creates an empty mapping persisted under name
func NewMapping(name string) *Mapping {
	return &Mapping{
		name:    name,
		entries: make(map[string][]string),
	}
}

// LoadMapping reads a mapping with the same recovery rules as Load
func LoadMapping(s Store, name string) (*Mapping, error) {
	m := NewMapping(name)

	entries := make(map[string][]string)
	if _, err := s.Load(name, &entries); err != nil {
		if !store.IsParseError(err) {
			return nil, fmt.Errorf("load mapping %s: %w", name, err)
		}
		log.Warn().Err(err).Str("document", name).Msg("Malformed mapping, starting empty")
		entries = make(map[string][]string)
	}
	if entries != nil {
		m.entries = entries
	}
	return m, nil
}

// Name returns the document name
func (m *Mapping) Name() string {
	return m.name
}

// Set replaces the values for url
func (m *Mapping) Set(url string, values []string) {
	if values == nil {
		values = []string{}
	}
	m.entries[url] = values
}

// Get returns the values for url
func (m *Mapping) Get(url string) ([]string, bool) {
	v, ok := m.entries[url]
	return v, ok
}

// Len returns the number of mapped URLs
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Persist saves the whole mapping
func (m *Mapping) Persist(s Store) error {
	if err := s.Save(m.name, m.entries); err != nil {
		return fmt.Errorf("save mapping %s: %w", m.name, err)
	}
	return nil
}
