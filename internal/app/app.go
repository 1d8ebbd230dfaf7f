package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/go_autosave/internal/cache"
	"github.com/bassista/go_autosave/internal/config"
	"github.com/bassista/go_autosave/internal/executor"
	"github.com/bassista/go_autosave/internal/logger"
	"github.com/bassista/go_autosave/internal/notify"
	"github.com/bassista/go_autosave/internal/report"
	"github.com/bassista/go_autosave/internal/repository"
	"github.com/bassista/go_autosave/internal/session"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config   *config.Config
	Repo     repository.Repository
	Cache    cache.AppStore
	Sessions *session.Manager
	Hub      *notify.Hub

	BaseCtx context.Context
	Cancel  context.CancelFunc

	persistDone <-chan struct{}
	reaperDone  <-chan struct{}
}

func New(cfg *config.Config, repo repository.Repository, store cache.AppStore, exec executor.SaveExecutor, reporter report.Reporter) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if repo == nil {
		return nil, errors.New("repo is nil")
	}
	if store == nil {
		return nil, errors.New("cache store is nil")
	}
	if exec == nil {
		return nil, errors.New("save executor is nil")
	}

	hub := notify.NewHub(0)
	sessions := session.NewManager(store, exec,
		session.WithDelay(cfg.AutoSave.Delay),
		session.WithPublisher(hub),
		session.WithReporter(reporter),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:   cfg,
		Repo:     repo,
		Cache:    store,
		Sessions: sessions,
		Hub:      hub,
		BaseCtx:  ctx,
		Cancel:   cancel,
	}, nil
}

// StartWatchers starts the data file watcher, the cache persistence scheduler
// and the idle session reaper. They stop when BaseCtx is cancelled.
func (a *App) StartWatchers() error {
	if err := a.Repo.StartWatcher(a.BaseCtx, a.Cache); err != nil {
		return fmt.Errorf("cannot start data file watcher: %w", err)
	}

	a.persistDone = cache.StartPersistenceScheduler(a.BaseCtx, a.Cache, a.Repo, a.Config.Data.PersistInterval)
	a.reaperDone = session.NewReaper(a.Sessions, a.Config.AutoSave.SessionTTL, a.Config.AutoSave.ReaperPoll).Start(a.BaseCtx)
	return nil
}

// Shutdown saves every open session, then stops the background loops.
// The persistence scheduler writes the cache to disk once more before exiting.
func (a *App) Shutdown(ctx context.Context) {
	if a == nil || a.Cancel == nil {
		return
	}

	if a.Sessions != nil {
		if err := a.Sessions.CloseAll(ctx); err != nil {
			logger.WithComponent("app").Errorf("unsaved session changes lost on shutdown: %v", err)
		}
	}

	a.Cancel()

	for _, done := range []<-chan struct{}{a.reaperDone, a.persistDone} {
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			logger.WithComponent("app").Warnf("shutdown interrupted: %v", ctx.Err())
			return
		}
	}
}
