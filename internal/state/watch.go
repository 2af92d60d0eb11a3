// internal/state/watch.go
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Watch is a named digest of one conversation, delivered to Target on a
// cron Schedule or on demand via webhook.
type Watch struct {
	Name         string `json:"name"`
	Conversation string `json:"conversation"`
	Schedule     string `json:"schedule,omitempty"`
	Target       string `json:"target"`
	Enabled      bool   `json:"enabled"`
}

// WatchStore is a JSON-file-backed store for watches.
type WatchStore struct {
	path string
	mu   sync.RWMutex
}

// NewWatchStore creates a new file-backed WatchStore at the given file path.
func NewWatchStore(path string) *WatchStore {
	return &WatchStore{path: path}
}

// Path returns the file path used by this store.
func (s *WatchStore) Path() string {
	return s.path
}

// List returns all watches. Returns an empty slice if the file doesn't exist.
func (s *WatchStore) List() ([]*Watch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	watches, err := s.load()
	if err != nil {
		return nil, err
	}
	if watches == nil {
		return []*Watch{}, nil
	}
	return watches, nil
}

// Get finds a watch by name.
func (s *WatchStore) Get(name string) (*Watch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	watches, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, w := range watches {
		if w.Name == name {
			return w, nil
		}
	}
	return nil, fmt.Errorf("watch not found: %s", name)
}

// Add appends a watch. Names are unique.
func (s *WatchStore) Add(w *Watch) error {
	if w.Name == "" || w.Conversation == "" {
		return fmt.Errorf("add watch: name and conversation are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	watches, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range watches {
		if existing.Name == w.Name {
			return fmt.Errorf("watch already exists: %s", w.Name)
		}
	}
	return s.save(append(watches, w))
}

// Remove deletes a watch by name.
func (s *WatchStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	watches, err := s.load()
	if err != nil {
		return err
	}
	for i, w := range watches {
		if w.Name == name {
			watches = append(watches[:i], watches[i+1:]...)
			return s.save(watches)
		}
	}
	return fmt.Errorf("watch not found: %s", name)
}

// SetEnabled toggles the enabled flag for a watch.
func (s *WatchStore) SetEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	watches, err := s.load()
	if err != nil {
		return err
	}
	for _, w := range watches {
		if w.Name == name {
			w.Enabled = enabled
			return s.save(watches)
		}
	}
	return fmt.Errorf("watch not found: %s", name)
}

func (s *WatchStore) load() ([]*Watch, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read watches file: %w", err)
	}

	var watches []*Watch
	if err := json.Unmarshal(data, &watches); err != nil {
		return nil, fmt.Errorf("unmarshal watches: %w", err)
	}
	return watches, nil
}

func (s *WatchStore) save(watches []*Watch) error {
	if watches == nil {
		watches = []*Watch{}
	}
	return writeJSON(s.path, watches)
}
