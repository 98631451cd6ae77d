// Package store persists named JSON documents in a directory.
//
// Every write in the process goes through one shared mutex and lands via
// temp file + rename, so readers never see a half-written document.
// Reads are not locked; see DESIGN.md for the single-writer assumption.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// ErrExists is returned by Create when the document is already present
var ErrExists = errors.New("document already exists")

// processLock serializes all saves in the process unless a store is given its own lock
var processLock sync.Mutex

// ParseError reports a document that exists but does not hold valid JSON
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is (or wraps) a ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// JSONStore reads and writes JSON documents under a root directory
type JSONStore struct {
	fs   afero.Fs
	root string
	mu   sync.Locker
}

// Option configures a JSONStore
type Option func(*JSONStore)

// WithLock replaces the process-wide write lock
func WithLock(l sync.Locker) Option {
	return func(s *JSONStore) {
		s.mu = l
	}
}

// New creates a store rooted at dir on the given filesystem
func New(fs afero.Fs, dir string, opts ...Option) *JSONStore {
	s := &JSONStore{
		fs:   fs,
		root: dir,
		mu:   &processLock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOS creates a store on the real filesystem
func NewOS(dir string, opts ...Option) *JSONStore {
	return New(afero.NewOsFs(), dir, opts...)
}

// Root returns the store directory
func (s *JSONStore) Root() string {
	return s.root
}

// Path returns the full path of a document
func (s *JSONStore) Path(name string) string {
	return filepath.Join(s.root, name)
}

// LoadRaw returns the raw bytes of a document. found is false when the
// document does not exist.
func (s *JSONStore) LoadRaw(name string) (data []byte, found bool, err error) {
	data, err = afero.ReadFile(s.fs, s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}

// Load decodes a document into v. A missing document leaves v untouched and
// returns found=false. An empty or malformed document returns a *ParseError.
func (s *JSONStore) Load(name string, v any) (found bool, err error) {
	data, found, err := s.LoadRaw(name)
	if err != nil || !found {
		return found, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return true, &ParseError{Name: name, Err: errors.New("empty document")}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, &ParseError{Name: name, Err: err}
	}
	return true, nil
}

// Exists reports whether a document is present
func (s *JSONStore) Exists(name string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.Path(name))
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
	return ok, nil
}

// Save replaces a document with the JSON encoding of v
func (s *JSONStore) Save(name string, v any) error {
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(name, data)
}

// Create writes a new document and fails with ErrExists if it is already there
func (s *JSONStore) Create(name string, v any) error {
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := afero.Exists(s.fs, s.Path(name))
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	if exists {
		return fmt.Errorf("%s: %w", name, ErrExists)
	}
	return s.writeLocked(name, data)
}

// List returns the sorted names of documents in the root that end with suffix
func (s *JSONStore) List(suffix string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if suffix != "" && !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *JSONStore) writeLocked(name string, data []byte) error {
	path := s.Path(name)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}

	tmp, err := afero.TempFile(s.fs, filepath.Dir(path), "."+filepath.Base(name)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
