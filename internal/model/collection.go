package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// CollectionRecord holds the item URLs discovered for one collection (playlist)
type CollectionRecord struct {
	ItemURLs []string `json:"song_urls"`
}

// Contains reports whether the record already lists the URL
func (r *CollectionRecord) Contains(url string) bool {
	for _, u := range r.ItemURLs {
		if u == url {
			return true
		}
	}
	return false
}

// Merge unions urls into the record, keeping existing entries first.
// Returns the number of URLs that were not present before.
func (r *CollectionRecord) Merge(urls []string) int {
	added := 0
	for _, u := range urls {
		if u == "" || r.Contains(u) {
			continue
		}
		r.ItemURLs = append(r.ItemURLs, u)
		added++
	}
	return added
}

// CollectionMap maps collection URL to its record and remembers insertion order.
// The JSON form is a plain object; keys are written and read in document order.
type CollectionMap struct {
	order   []string
	records map[string]*CollectionRecord
}

// NewCollectionMap creates an empty collection map
func NewCollectionMap() *CollectionMap {
	return &CollectionMap{records: make(map[string]*CollectionRecord)}
}

// Len returns the number of collections
func (m *CollectionMap) Len() int {
	return len(m.order)
}

// Keys returns collection URLs in discovery order
func (m *CollectionMap) Keys() []string {
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

// Get returns the record for a collection
func (m *CollectionMap) Get(collectionURL string) (*CollectionRecord, bool) {
	rec, ok := m.records[collectionURL]
	return rec, ok
}

// Merge unions item URLs into the collection, creating it if needed.
// Existing URLs are never removed.
func (m *CollectionMap) Merge(collectionURL string, itemURLs []string) int {
	if m.records == nil {
		m.records = make(map[string]*CollectionRecord)
	}
	rec, ok := m.records[collectionURL]
	if !ok {
		rec = &CollectionRecord{ItemURLs: []string{}}
		m.records[collectionURL] = rec
		m.order = append(m.order, collectionURL)
	}
	return rec.Merge(itemURLs)
}

// TotalItems counts item URLs across all collections
func (m *CollectionMap) TotalItems() int {
	total := 0
	for _, rec := range m.records {
		total += len(rec.ItemURLs)
	}
	return total
}

// MarshalJSON writes collections in insertion order
func (m *CollectionMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.records[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads collections keeping the document order of keys
func (m *CollectionMap) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid collection map JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("collection map must be a JSON object, got %s", root.Type)
	}

	fresh := NewCollectionMap()
	var decodeErr error
	root.ForEach(func(key, value gjson.Result) bool {
		var rec CollectionRecord
		if err := json.Unmarshal([]byte(value.Raw), &rec); err != nil {
			decodeErr = fmt.Errorf("collection %q: %w", key.String(), err)
			return false
		}
		fresh.Merge(key.String(), rec.ItemURLs)
		return true
	})
	if decodeErr != nil {
		return decodeErr
	}

	*m = *fresh
	return nil
}
