package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"teamsync/internal/app/workspace"
	"teamsync/internal/pkg/logx"
)

// Identity is the locally persisted login. Both fields are empty after logout.
type Identity struct {
	CurrentUser *workspace.User `json:"currentUser"`
	UserID      string          `json:"userId"`
}

// Empty reports whether no identity is stored.
func (i Identity) Empty() bool {
	return i.CurrentUser == nil && i.UserID == ""
}

// Storage persists the identity between runs.
type Storage interface {
	Load() (Identity, error)
	Save(Identity) error
	Clear() error
}

// FileStorage keeps the identity in a JSON file.
type FileStorage struct {
	path string
}

// NewFileStorage returns a storage backed by path. The file is created on the first Save.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Load reads the stored identity. A missing file yields an empty identity; an unreadable or
// corrupt file is removed and also yields an empty identity.
func (s *FileStorage) Load() (Identity, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Identity{}, nil
	}
	if err != nil {
		return Identity{}, fmt.Errorf("read identity file: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		logx.Warn("Stored identity is corrupt, clearing it", "path", s.path, "error", err.Error())
		return Identity{}, s.Clear()
	}

	return id, nil
}

// Save writes id atomically.
func (s *FileStorage) Save(id Identity) error {
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".identity-*.json")
	if err != nil {
		return fmt.Errorf("create identity temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write identity: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close identity temp file: %w", err)
	}

	return os.Rename(tmp.Name(), s.path)
}

// Clear removes the stored identity.
func (s *FileStorage) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove identity file: %w", err)
	}
	return nil
}

// MemoryStorage keeps the identity in memory.
type MemoryStorage struct {
	mu sync.Mutex
	id Identity
}

func (s *MemoryStorage) Load() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, nil
}

func (s *MemoryStorage) Save(id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return nil
}

func (s *MemoryStorage) Clear() error {
	return s.Save(Identity{})
}
