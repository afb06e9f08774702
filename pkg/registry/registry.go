// Package registry guards which agent-issued brain ids may open a
// brain worker, the UUID-registration gate the teacher's registry
// enforced in front of matrix access, adapted here to key on
// core.BrainID instead of a bare uuid string.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// Entry represents a registered brain id and its metadata.
type Entry struct {
	BrainID   core.BrainID   `json:"brain_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store manages brain-id registration with file-based persistence.
type Store struct {
	entries  map[core.BrainID]*Entry
	mu       sync.RWMutex
	filePath string
}

// NewStore creates a new registry store rooted at dataPath.
func NewStore(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create registry path: %w", err)
	}

	s := &Store{
		entries:  make(map[core.BrainID]*Entry),
		filePath: filepath.Join(dataPath, "registry.json"),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	return s, nil
}

// Create registers a new brain id. Returns an error if it is already
// registered.
func (s *Store) Create(id core.BrainID, metadata map[string]any) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return nil, fmt.Errorf("brain id already exists: %s", id)
	}

	now := time.Now()
	entry := &Entry{
		BrainID:   id,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.entries[id] = entry

	if err := s.save(); err != nil {
		delete(s.entries, id)
		return nil, fmt.Errorf("failed to persist: %w", err)
	}

	return entry, nil
}

// Get returns a registered entry by brain id.
func (s *Store) Get(id core.BrainID) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	return entry, ok
}

// Exists checks if a brain id is registered.
func (s *Store) Exists(id core.BrainID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[id]
	return ok
}

// List returns all registered entries.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		result = append(result, entry)
	}
	return result
}

// Update modifies a registered entry's metadata.
func (s *Store) Update(id core.BrainID, metadata map[string]any) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[id]
	if !exists {
		return nil, fmt.Errorf("brain id not found: %s", id)
	}

	entry.Metadata = metadata
	entry.UpdatedAt = time.Now()

	if err := s.save(); err != nil {
		return nil, fmt.Errorf("failed to persist: %w", err)
	}

	return entry, nil
}

// Delete removes a registered entry.
func (s *Store) Delete(id core.BrainID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; !exists {
		return fmt.Errorf("brain id not found: %s", id)
	}

	deleted := s.entries[id]
	delete(s.entries, id)

	if err := s.save(); err != nil {
		s.entries[id] = deleted
		return fmt.Errorf("failed to persist: %w", err)
	}

	return nil
}

// FindOrCreate returns the existing entry for id, or creates one.
func (s *Store) FindOrCreate(id core.BrainID, metadata map[string]any) (*Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, exists := s.entries[id]; exists {
		return entry, false, nil
	}

	now := time.Now()
	entry := &Entry{
		BrainID:   id,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.entries[id] = entry

	if err := s.save(); err != nil {
		delete(s.entries, id)
		return nil, false, fmt.Errorf("failed to persist: %w", err)
	}

	return entry, true, nil
}

// Count returns the number of registered entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	for _, entry := range entries {
		s.entries[entry.BrainID] = entry
	}

	return nil
}

func (s *Store) save() error {
	entries := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.filePath)
}
