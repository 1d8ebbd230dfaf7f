package cache

import (
	"encoding/json"

	"github.com/bassista/go_autosave/internal/repository"
)

// ReadOnlyStore is the minimal cache API for read-only controllers.
type ReadOnlyStore interface {
	Snapshot() (repository.ProfileDocument, error)
	Profile(id string) (repository.Profile, error)
}

// ProfileStore is the cache API needed by profile handlers.
type ProfileStore interface {
	ReadOnlyStore
	UpsertProfile(profile repository.Profile) (repository.ProfileDocument, error)
	RemoveProfile(id string) (repository.ProfileDocument, error)
}

// SectionStore is the cache API needed by the store-backed save executor.
type SectionStore interface {
	Profile(id string) (repository.Profile, error)
	UpdateSection(id, section string, payload json.RawMessage, check func(repository.Profile) error) (repository.Profile, error)
}

// PersistableStore is the cache API needed by the persistence scheduler.
type PersistableStore interface {
	IsDirty() bool
	PersistSnapshot() (repository.ProfileDocument, uint64, error)
	MarkPersisted(rev uint64, ts int64) bool
}

// AppStore is the cache contract the application container exposes.
// It supports controllers, executors, the persistence scheduler and the repository watcher.
type AppStore interface {
	repository.CacheStore
	ProfileStore
	SectionStore
	PersistableStore
}
