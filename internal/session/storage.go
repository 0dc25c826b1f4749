package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// Storage is a device-local key/value store for the session record.
type Storage interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Remove(name string) error
}

// FileStorage keeps each record in its own file inside Dir.
type FileStorage struct {
	Dir string
}

// NewFileStorage returns a storage rooted at dir.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{Dir: dir}
}

func (s *FileStorage) path(name string) string {
	return filepath.Join(s.Dir, filepath.Base(name))
}

// Read returns ErrNotExist when the file is absent.
func (s *FileStorage) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

// Write replaces the file atomically.
func (s *FileStorage) Write(name string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := renameio.WriteFile(s.path(name), data, 0o600); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Remove deletes the file. Removing a missing file is not an error.
func (s *FileStorage) Remove(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStorage is an in-process Storage. Fail* fields inject errors.
type MemoryStorage struct {
	mu        sync.Mutex
	values    map[string][]byte
	FailRead  error
	FailWrite error
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (m *MemoryStorage) Read(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRead != nil {
		return nil, m.FailRead
	}
	data, ok := m.values[name]
	if !ok {
		return nil, ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStorage) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrite != nil {
		return m.FailWrite
	}
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[name] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStorage) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, name)
	return nil
}

// Raw returns the stored bytes for name, for tests that tamper with records.
func (m *MemoryStorage) Raw(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.values[name]
	return data, ok
}
