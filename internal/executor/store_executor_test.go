package executor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bassista/go_autosave/internal/cache"
	"github.com/bassista/go_autosave/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *cache.Store {
	return cache.NewStore(repository.ProfileDocument{
		Profiles: []repository.Profile{
			{ID: "p1", Basics: repository.Basics{FullName: "Grace Hopper"}},
		},
	})
}

func TestStoreExecutor_Save(t *testing.T) {
	store := newTestStore()
	ex := NewStoreExecutor(store)

	err := ex.Save(context.Background(), Target{ProfileID: "p1", Section: repository.SectionSummary}, json.RawMessage(`"Compiler pioneer"`))
	require.NoError(t, err)

	p, err := store.Profile("p1")
	require.NoError(t, err)
	assert.Equal(t, "Compiler pioneer", p.Summary)
	assert.True(t, store.IsDirty())
}

func TestStoreExecutor_Save_ValidationFailure(t *testing.T) {
	store := newTestStore()
	ex := NewStoreExecutor(store)

	err := ex.Save(context.Background(), Target{ProfileID: "p1", Section: repository.SectionLinks}, json.RawMessage(`[{"label":"site","url":"not-a-url"}]`))
	require.Error(t, err)

	p, _ := store.Profile("p1")
	assert.Empty(t, p.Links)
	assert.False(t, store.IsDirty())
}

func TestStoreExecutor_Save_Errors(t *testing.T) {
	ex := NewStoreExecutor(newTestStore())

	err := ex.Save(context.Background(), Target{ProfileID: "missing", Section: repository.SectionSummary}, json.RawMessage(`"x"`))
	assert.True(t, errors.Is(err, cache.ErrProfileNotFound))

	err = ex.Save(context.Background(), Target{ProfileID: "p1", Section: "photo"}, json.RawMessage(`"x"`))
	assert.True(t, errors.Is(err, repository.ErrUnknownSection))
}

func TestStoreExecutor_Save_CancelledContext(t *testing.T) {
	ex := NewStoreExecutor(newTestStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ex.Save(ctx, Target{ProfileID: "p1", Section: repository.SectionSummary}, json.RawMessage(`"x"`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreExecutor_Save_Repeatable(t *testing.T) {
	store := newTestStore()
	ex := NewStoreExecutor(store)
	target := Target{ProfileID: "p1", Section: repository.SectionSkills}

	for i := 0; i < 3; i++ {
		require.NoError(t, ex.Save(context.Background(), target, json.RawMessage(`["go","sql"]`)))
	}

	p, _ := store.Profile("p1")
	assert.Equal(t, []string{"go", "sql"}, p.Skills)
}
