package fsys

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.StateStore = (*StateFile)(nil)

// StateFile persists session key/value state as a single JSON object with
// owner-only permissions. Writes are atomic for the same reason registry
// writes are: an interrupted run must not corrupt the file.
type StateFile struct {
	path string
}

// NewStateFile creates a state store backed by the file at path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Get returns the value for key, or "" when unset.
func (s *StateFile) Get(key string) (string, error) {
	state, err := s.load()
	if err != nil {
		return "", err
	}
	return state[key], nil
}

// Set stores or replaces the value for key.
func (s *StateFile) Set(key, value string) error {
	state, err := s.load()
	if err != nil {
		return err
	}
	state[key] = value
	return s.save(state)
}

// Delete removes key; an absent key is a no-op.
func (s *StateFile) Delete(key string) error {
	state, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := state[key]; !ok {
		return nil
	}
	delete(state, key)
	return s.save(state)
}

func (s *StateFile) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", s.path, err)
	}

	state := map[string]string{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", s.path, err)
	}
	return state, nil
}

func (s *StateFile) save(state map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("write state %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("chmod state %s: %w", s.path, err)
	}
	return nil
}
