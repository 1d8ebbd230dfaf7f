package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/go_autosave/internal/repository"
)

// Store keeps an in-memory copy of the profile document.
type Store struct {
	mu         sync.RWMutex
	data       repository.ProfileDocument
	dirty      bool   // true if cache changed since last persist
	rev        uint64 // bumped on every mutation
	lastUpdate int64  // cache's metadata.lastUpdate
}

// NewStore creates a cache store seeded with doc.
func NewStore(doc repository.ProfileDocument) *Store {
	doc.ApplyDefaults()
	return &Store{data: doc, lastUpdate: doc.Metadata.LastUpdate}
}

// touchLocked marks the cache dirty and bumps its revision.
func (s *Store) touchLocked() {
	s.dirty = true
	s.rev++
}

// IsDirty returns true if cache has uncommitted changes.
func (s *Store) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// PersistSnapshot returns a deep copy of the data and the revision it reflects.
func (s *Store) PersistSnapshot() (repository.ProfileDocument, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := deepCopy(s.data)
	return doc, s.rev, err
}

// MarkPersisted records a successful flush of revision rev. The dirty flag is
// only cleared when no mutation happened after that revision was captured.
func (s *Store) MarkPersisted(rev uint64, ts int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = ts
	s.data.Metadata.LastUpdate = ts
	if s.rev != rev {
		return false
	}
	s.dirty = false
	return true
}

// GetLastUpdate returns the cache's last update timestamp.
func (s *Store) GetLastUpdate() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// Snapshot returns a deep copy of the cached data.
func (s *Store) Snapshot() (repository.ProfileDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(s.data)
}

// Replace swaps the cached data.
func (s *Store) Replace(doc repository.ProfileDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cloned, err := deepCopy(doc)
	if err != nil {
		return err
	}
	cloned.ApplyDefaults()
	s.data = cloned
	s.lastUpdate = doc.Metadata.LastUpdate
	s.dirty = false

	return nil
}

// Profile returns a copy of the profile with the given id.
func (s *Store) Profile(id string) (repository.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return repository.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return deepCopy(s.data.Profiles[idx])
}

// UpsertProfile inserts or replaces a profile by id and returns the new snapshot.
func (s *Store) UpsertProfile(profile repository.Profile) (repository.ProfileDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned, err := deepCopy(profile)
	if err != nil {
		return repository.ProfileDocument{}, err
	}
	cloned.ApplyDefaults()
	cloned.UpdatedAt = time.Now().UnixMilli()

	if idx := s.indexOf(cloned.ID); idx >= 0 {
		s.data.Profiles[idx] = cloned
	} else {
		s.data.Profiles = append(s.data.Profiles, cloned)
	}
	s.touchLocked()

	return deepCopy(s.data)
}

// RemoveProfile deletes a profile by id and returns the new snapshot.
func (s *Store) RemoveProfile(id string) (repository.ProfileDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return repository.ProfileDocument{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	s.data.Profiles = append(s.data.Profiles[:idx], s.data.Profiles[idx+1:]...)
	s.touchLocked()

	return deepCopy(s.data)
}

// UpdateSection replaces one section of a profile. check, when non-nil, vets the
// resulting profile before it is stored; a failed check leaves the cache untouched.
func (s *Store) UpdateSection(id, section string, payload json.RawMessage, check func(repository.Profile) error) (repository.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return repository.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}

	next, err := deepCopy(s.data.Profiles[idx])
	if err != nil {
		return repository.Profile{}, err
	}
	if err := next.SetSection(section, payload); err != nil {
		return repository.Profile{}, err
	}
	if check != nil {
		if err := check(next); err != nil {
			return repository.Profile{}, err
		}
	}

	next.UpdatedAt = time.Now().UnixMilli()
	s.data.Profiles[idx] = next
	s.touchLocked()

	return deepCopy(next)
}

func (s *Store) indexOf(id string) int {
	for i := range s.data.Profiles {
		if s.data.Profiles[i].ID == id {
			return i
		}
	}
	return -1
}

// deepCopy avoids shared slices between cache and callers.
func deepCopy[T any](v T) (T, error) {
	var out T
	bytes, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(bytes, &out); err != nil {
		return out, err
	}
	return out, nil
}
