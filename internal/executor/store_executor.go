package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bassista/go_autosave/internal/cache"
	"github.com/bassista/go_autosave/internal/logger"
	"github.com/bassista/go_autosave/internal/repository"
	"github.com/go-playground/validator/v10"
)

// StoreExecutor saves sections into the in-memory profile cache. The
// persistence scheduler later flushes the cache to disk.
type StoreExecutor struct {
	store     cache.SectionStore
	validator *validator.Validate
}

func NewStoreExecutor(store cache.SectionStore) *StoreExecutor {
	return &StoreExecutor{store: store, validator: validator.New()}
}

func (e *StoreExecutor) Save(ctx context.Context, target Target, payload json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := e.store.UpdateSection(target.ProfileID, target.Section, payload, func(p repository.Profile) error {
		if err := e.validator.Struct(p); err != nil {
			return fmt.Errorf("validate %s section: %w", target.Section, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.WithComponent("executor").Debugf("stored %s section of profile %s", target.Section, target.ProfileID)
	return nil
}
