// Package statestore persists the last applied wallpaper so the host can
// restore it after a restart.
package statestore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// State is the persisted document.
type State struct {
	LastWallpaperConfig string `json:"lastWallpaperConfig"`
	LastLaunchMode      string `json:"lastLaunchMode"`
}

// Store saves host state under XDG_STATE_HOME or ~/.local/state.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store at the default location.
func NewStore() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return &Store{path: path}, nil
}

// NewStoreAt creates a store backed by path.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// LastApplied returns the stored config and launch mode. Both are empty
// when nothing has been applied.
func (s *Store) LastApplied() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read()
	if err != nil {
		return "", "", err
	}
	return st.LastWallpaperConfig, st.LastLaunchMode, nil
}

// SaveLastApplied stores the config and launch mode. Empty strings clear it.
func (s *Store) SaveLastApplied(configJSON string, launchMode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(State{LastWallpaperConfig: configJSON, LastLaunchMode: launchMode})
}

func (s *Store) read() (State, error) {
	var st State
	file, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return st, err
	}
	if len(file) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(file, &st); err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *Store) write(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// DefaultPath returns the default state file location.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "lumen", "state.json"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "lumen", "state.json"), nil
}
