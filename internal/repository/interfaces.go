package repository

import "context"

// Saver persists a ProfileDocument.
// Small interface used by background jobs like the persistence scheduler.
type Saver interface {
	Save(ctx context.Context, doc *ProfileDocument) error
}

// Repository abstracts persistence and watching of the data file.
// JSONRepository implements this interface.
type Repository interface {
	Saver
	Load(ctx context.Context) (*ProfileDocument, error)
	StartWatcher(ctx context.Context, cacheStore CacheStore) error
}
