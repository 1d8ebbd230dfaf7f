package cache

import (
	"context"
	"time"

	"github.com/bassista/go_autosave/internal/logger"
	"github.com/bassista/go_autosave/internal/repository"
)

// StartPersistenceScheduler runs a goroutine that periodically flushes dirty cache to disk.
// On ctx.Done, it performs a final flush before returning.
// Returns a channel that is closed when the scheduler has completed shutdown.
func StartPersistenceScheduler(
	ctx context.Context,
	store PersistableStore,
	repo repository.Saver,
	interval time.Duration,
) <-chan struct{} {
	done := make(chan struct{})
	log := logger.WithComponent("persist")
	log.Debugf("starting persistence scheduler with interval: %v", interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Debugf("persistence scheduler received context cancellation, performing final flush")
				// background context so the final flush is not cancelled with ctx
				FlushCache(context.Background(), store, repo)
				log.Info("persistence scheduler stopped after final flush")
				return
			case <-ticker.C:
				log.Tracef("persistence scheduler tick, checking if dirty")
				FlushCache(ctx, store, repo)
			}
		}
	}()
	return done
}

// FlushCache persists the cache to disk if dirty. A mutation racing the write
// keeps the cache dirty so the next tick picks it up.
func FlushCache(ctx context.Context, store PersistableStore, repo repository.Saver) error {
	log := logger.WithComponent("persist")
	if !store.IsDirty() {
		log.Tracef("cache is clean, skipping flush")
		return nil
	}

	if err := ctx.Err(); err != nil {
		log.Debugf("flush cancelled: %v", err)
		return err
	}

	snapshot, rev, err := store.PersistSnapshot()
	if err != nil {
		log.Errorf("persist error: failed to get snapshot: %v", err)
		return err
	}

	snapshot.Metadata.LastUpdate = time.Now().UnixMilli()

	if err := repo.Save(ctx, &snapshot); err != nil {
		log.Errorf("persist error: failed to save: %v", err)
		return err
	}

	if !store.MarkPersisted(rev, snapshot.Metadata.LastUpdate) {
		log.Debugf("cache changed during flush, keeping dirty")
		return nil
	}
	log.Info("cache persisted to disk")
	return nil
}
