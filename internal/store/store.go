// Package store remembers the last narrated position of each document so
// narration can resume where the reader left off.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/internal/document"
)

// Store persists one position per document.
type Store interface {
	// Get returns the stored position and sentence index for docID. The
	// bool is false when nothing was stored.
	Get(docID string) (document.Position, int, bool, error)
	Set(docID string, pos document.Position, index int) error
}

type record struct {
	Position document.Position `json:"position"`
	Index    int               `json:"index"`
	Updated  time.Time         `json:"updated"`
}

// File is a Store backed by a single JSON file. Every Set rewrites the file
// through a temporary file and rename.
type File struct {
	path string

	mu      sync.Mutex
	records map[string]record
	loaded  bool
}

// NewFile returns a store persisting to path. The file is read lazily.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Get implements Store.
func (f *File) Get(docID string) (document.Position, int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return document.Position{}, 0, false, err
	}

	r, ok := f.records[docID]
	if !ok {
		return document.Position{}, 0, false, nil
	}
	return r.Position, r.Index, true, nil
}

// Set implements Store.
func (f *File) Set(docID string, pos document.Position, index int) error {
	if pos.IsZero() {
		return errors.New("cannot store an empty position")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return err
	}

	f.records[docID] = record{Position: pos, Index: index, Updated: time.Now()}
	return f.save()
}

// Forget removes the stored position for docID.
func (f *File) Forget(docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return err
	}
	if _, ok := f.records[docID]; !ok {
		return nil
	}
	delete(f.records, docID)
	return f.save()
}

// load reads the file once (must be called with lock held).
func (f *File) load() error {
	if f.loaded {
		return nil
	}

	f.records = make(map[string]record)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read position store: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &f.records); err != nil {
			// A corrupt file must not block reading; start over.
			log.Warn("discarding unreadable position store", "path", f.path, "error", err)
			f.records = make(map[string]record)
		}
	}
	f.loaded = true
	return nil
}

// save writes all records (must be called with lock held).
func (f *File) save() error {
	data, err := json.MarshalIndent(f.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode position store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write position store: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace position store: %w", err)
	}
	return nil
}

// Memory is an in-process Store, used when no data directory is available.
type Memory struct {
	mu      sync.Mutex
	records map[string]record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]record)}
}

// Get implements Store.
func (m *Memory) Get(docID string) (document.Position, int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[docID]
	return r.Position, r.Index, ok, nil
}

// Set implements Store.
func (m *Memory) Set(docID string, pos document.Position, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[docID] = record{Position: pos, Index: index, Updated: time.Now()}
	return nil
}
