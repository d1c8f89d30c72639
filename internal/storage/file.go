// Package storage provides durable key-value stores backing navigation
// pattern persistence.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore persists values as individual files under a directory, one
// file per key. Writes go through a temp file and an atomic rename so a
// crash never leaves a half-written value behind.
type FileStore struct {
	mu        sync.Mutex
	directory string
}

// NewFileStore creates a file-backed store rooted at directory, creating
// it if necessary.
func NewFileStore(directory string) (*FileStore, error) {
	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{directory: directory}, nil
}

// GetItem returns the value stored under key, or "" when the key has
// never been written.
func (s *FileStore) GetItem(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.keyPath(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), nil
}

// SetItem stores value under key, replacing any previous value.
func (s *FileStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.keyPath(key)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) keyPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}
	name := sanitizeKey(key) + ".json"
	path := filepath.Join(s.directory, name)
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(s.directory)) {
		return "", fmt.Errorf("invalid key: %s", key)
	}
	return path, nil
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}

// MemoryStore is an in-process KeyValueStore for tests and for running
// without durable pattern persistence.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// GetItem returns the value for key, "" when absent.
func (s *MemoryStore) GetItem(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

// SetItem stores value under key.
func (s *MemoryStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
