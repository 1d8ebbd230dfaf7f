package session

import (
	"context"
	"time"

	"github.com/bassista/go_autosave/internal/logger"
)

// Reaper closes sessions idle for longer than ttl, polling on a fixed interval.
type Reaper struct {
	manager *Manager
	ttl     time.Duration
	poll    time.Duration
}

func NewReaper(manager *Manager, ttl, poll time.Duration) *Reaper {
	return &Reaper{manager: manager, ttl: ttl, poll: poll}
}

// Start runs the reaper until ctx is cancelled. The returned channel is closed
// once the loop has stopped.
func (r *Reaper) Start(ctx context.Context) <-chan struct{} {
	logger.WithComponent("reaper").Debugf("starting session reaper with ttl %v, poll %v", r.ttl, r.poll)
	done := make(chan struct{})
	ticker := time.NewTicker(r.poll)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.WithComponent("reaper").Info("reaper stopped")
				return
			case <-ticker.C:
				r.tick(ctx)
			}
		}
	}()
	return done
}

func (r *Reaper) tick(ctx context.Context) {
	cutoff := r.manager.clock.Now().Add(-r.ttl)
	if n := r.manager.CloseIdle(ctx, cutoff); n > 0 {
		logger.WithComponent("reaper").Infof("closed %d idle sessions", n)
	} else {
		logger.WithComponent("reaper").Tracef("no idle sessions")
	}
}
