package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/go_autosave/internal/clock"
	"github.com/bassista/go_autosave/internal/logger"
	"github.com/sirupsen/logrus"
)

// DefaultDelay is the quiet period used when no delay is configured.
const DefaultDelay = 2 * time.Second

// ErrClosed is returned by operations on a closed scheduler.
var ErrClosed = errors.New("scheduler is closed")

// SaveFunc persists one snapshot. It must return an error on failure and
// owns any timeout policy; the scheduler never cancels a call once issued.
type SaveFunc[T any] func(ctx context.Context, snapshot T) error

type options struct {
	delay     time.Duration
	ctx       context.Context
	name      string
	clock     clock.Clock
	listeners []Listener
}

// Option configures a Scheduler.
type Option func(*options)

// WithDelay sets the debounce delay. Non-positive values keep DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithContext sets the context handed to the save func.
// Close does not cancel it: in-flight saves always run to completion.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithName labels the scheduler in log output.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithClock replaces the wall clock driving the debounce timer and timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithListener registers a listener for scheduler events.
func WithListener(l Listener) Option {
	return func(o *options) {
		if l != nil {
			o.listeners = append(o.listeners, l)
		}
	}
}

// attempt is one save executor call.
type attempt[T any] struct {
	PendingSave[T]
	gen  uint64
	err  error
	done chan struct{}
}

// Scheduler debounces change notifications into at most one save per quiet period.
//
// Only the most recent snapshot is ever persisted. Saves issued by one scheduler
// never overlap: a timer firing while a save is in flight is queued behind it.
// A successful save clears the dirty flag only when no structurally different
// snapshot arrived after that save was issued.
type Scheduler[T any] struct {
	save      SaveFunc[T]
	delay     time.Duration
	ctx       context.Context
	tracker   *DirtyTracker
	clock     clock.Clock
	listeners []Listener
	log       *logrus.Entry

	mu          sync.Mutex
	hasBaseline bool
	latest      captured[T]
	gen         uint64
	timer       clock.Timer
	timerSeq    uint64
	inflight    *attempt[T]
	queued      bool
	closed      bool
	attempts    uint64
	saves       uint64
	failures    uint64
	lastErr     error
	failedGen   uint64 // gen of the save that set lastErr
	lastSavedAt time.Time
}

// NewScheduler creates a scheduler in the Idle state without a baseline.
func NewScheduler[T any](save SaveFunc[T], opts ...Option) (*Scheduler[T], error) {
	if save == nil {
		return nil, errors.New("save func is nil")
	}

	o := options{delay: DefaultDelay, ctx: context.Background(), clock: clock.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.WithComponent("autosave")
	if o.name != "" {
		log = logger.WithSession("autosave", o.name)
	}

	return &Scheduler[T]{
		save:      save,
		delay:     o.delay,
		ctx:       o.ctx,
		tracker:   NewDirtyTracker(),
		clock:     o.clock,
		listeners: o.listeners,
		log:       log,
	}, nil
}

// Delay returns the configured debounce delay.
func (s *Scheduler[T]) Delay() time.Duration {
	return s.delay
}

// NotifyChanged hands the current buffer contents to the scheduler.
//
// The first call records a baseline and never schedules a save. Later calls
// that are structurally equal to the latest candidate are ignored. Any other
// value marks the buffer dirty and restarts the debounce timer.
func (s *Scheduler[T]) NotifyChanged(snapshot T) error {
	c, err := capture(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if !s.hasBaseline {
		s.hasBaseline = true
		s.latest = c
		s.log.Debugf("baseline recorded")
		s.emitLocked(EventBaseline, nil)
		return nil
	}

	if c.equal(s.latest) {
		s.log.Tracef("snapshot unchanged, ignoring")
		return nil
	}

	s.latest = c
	s.gen++
	s.tracker.MarkDirty()
	s.armLocked()
	s.log.Debugf("change %d observed, save in %v", s.gen, s.delay)
	s.emitLocked(EventChanged, nil)
	return nil
}

// Flush saves the latest snapshot now if the buffer is dirty.
// It cancels the pending timer, waits for any in-flight save, and returns the
// executor's error. A clean buffer returns nil without calling the executor.
func (s *Scheduler[T]) Flush(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}

		if a := s.inflight; a != nil {
			s.mu.Unlock()
			select {
			case <-a.done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		s.disarmLocked()
		s.queued = false
		if !s.tracker.IsDirty() {
			s.mu.Unlock()
			return nil
		}

		s.log.Debugf("manual save requested")
		a := s.startLocked()
		s.mu.Unlock()

		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Wait blocks until no save is in flight.
func (s *Scheduler[T]) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		a := s.inflight
		s.mu.Unlock()
		if a == nil {
			return nil
		}
		select {
		case <-a.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the pending timer so no further save is issued.
// An in-flight save is not cancelled; its outcome is still recorded.
func (s *Scheduler[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closeLocked()
}

// CloseIfClean closes the scheduler only when every change is saved and no
// save is in flight. It reports whether this call closed it.
func (s *Scheduler[T]) CloseIfClean() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.inflight != nil || s.tracker.IsDirty() {
		return false
	}
	s.closeLocked()
	return true
}

// FailedUnchanged reports whether the latest change already failed to save
// and nothing changed since. Saving it again would repeat the same attempt.
func (s *Scheduler[T]) FailedUnchanged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failedUnchangedLocked()
}

// CloseIfFailed closes the scheduler, dropping the unsaved value, only while
// FailedUnchanged holds. It reports whether this call closed it.
func (s *Scheduler[T]) CloseIfFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.failedUnchangedLocked() {
		return false
	}
	s.closeLocked()
	return true
}

func (s *Scheduler[T]) failedUnchangedLocked() bool {
	return s.lastErr != nil && s.inflight == nil && s.failedGen == s.gen && s.tracker.IsDirty()
}

func (s *Scheduler[T]) closeLocked() {
	s.disarmLocked()
	s.queued = false
	s.closed = true
	if s.tracker.IsDirty() {
		s.log.Warnf("closed with unsaved changes")
	}
	s.emitLocked(EventClosed, nil)
}

// IsDirty reports whether the latest snapshot is not yet confirmed saved.
func (s *Scheduler[T]) IsDirty() bool {
	return s.tracker.IsDirty()
}

// State returns the current state machine position.
func (s *Scheduler[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// LastError returns the error of the most recent save, or nil after a success.
func (s *Scheduler[T]) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Latest returns the most recent candidate snapshot, if any was received.
func (s *Scheduler[T]) Latest() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest.value, s.hasBaseline
}

// Pending returns the save currently in flight, if any.
func (s *Scheduler[T]) Pending() (PendingSave[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == nil {
		return PendingSave[T]{}, false
	}
	return s.inflight.PendingSave, true
}

// Status returns a snapshot of the scheduler's counters and state.
func (s *Scheduler[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:    s.stateLocked(),
		Dirty:    s.tracker.IsDirty(),
		Saves:    s.saves,
		Failures: s.failures,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if !s.lastSavedAt.IsZero() {
		at := s.lastSavedAt
		st.LastSavedAt = &at
	}
	if s.inflight != nil {
		since := s.inflight.StartedAt
		st.SavingSince = &since
	}
	return st
}

func (s *Scheduler[T]) stateLocked() State {
	switch {
	case s.closed:
		return StateClosed
	case s.inflight != nil:
		return StateSaving
	case s.timer != nil:
		return StatePendingDebounce
	default:
		return StateIdle
	}
}

// armLocked replaces any pending timer with a fresh one.
func (s *Scheduler[T]) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerSeq++
	seq := s.timerSeq
	s.timer = s.clock.AfterFunc(s.delay, func() { s.fire(seq) })
}

// disarmLocked stops the pending timer. A callback that already started is
// invalidated by the sequence bump and returns without effect.
func (s *Scheduler[T]) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}

func (s *Scheduler[T]) fire(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.timerSeq {
		return
	}
	s.timer = nil

	if !s.tracker.IsDirty() {
		s.log.Tracef("debounce expired on clean buffer")
		return
	}
	if s.inflight != nil {
		s.log.Debugf("debounce expired during save %d, queueing follow-up", s.inflight.Attempt)
		s.queued = true
		return
	}
	s.startLocked()
}

// startLocked issues a save of the latest snapshot on a new goroutine.
func (s *Scheduler[T]) startLocked() *attempt[T] {
	s.attempts++
	a := &attempt[T]{
		PendingSave: PendingSave[T]{
			Snapshot:  s.latest.value,
			StartedAt: s.clock.Now(),
			Attempt:   s.attempts,
		},
		gen:  s.gen,
		done: make(chan struct{}),
	}
	s.inflight = a
	s.log.Debugf("save %d started", a.Attempt)
	s.emitLocked(EventSaveStarted, nil)

	go s.run(a)
	return a
}

func (s *Scheduler[T]) run(a *attempt[T]) {
	err := s.invoke(a.Snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()

	a.err = err
	s.inflight = nil

	if err != nil {
		s.failures++
		s.lastErr = err
		s.failedGen = a.gen
		s.log.Errorf("save %d failed: %v", a.Attempt, err)
		s.emitLocked(EventSaveFailed, err)
	} else {
		s.saves++
		s.lastErr = nil
		s.lastSavedAt = s.clock.Now()
		if a.gen == s.gen {
			s.tracker.MarkClean()
			s.log.Debugf("save %d completed", a.Attempt)
			s.emitLocked(EventSaved, nil)
		} else {
			s.log.Debugf("save %d completed but newer changes are pending", a.Attempt)
			s.emitLocked(EventSavedStale, nil)
		}
	}
	close(a.done)

	// the outcome event above is emitted before a queued follow-up starts
	if s.queued {
		s.queued = false
		if !s.closed && s.tracker.IsDirty() {
			s.startLocked()
		}
	}
}

// invoke calls the save func, turning a panic into an error.
func (s *Scheduler[T]) invoke(snapshot T) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("save panicked: %v", rec)
		}
	}()
	return s.save(s.ctx, snapshot)
}

func (s *Scheduler[T]) emitLocked(t EventType, err error) {
	if len(s.listeners) == 0 {
		return
	}
	ev := Event{
		Type:    t,
		State:   s.stateLocked(),
		Dirty:   s.tracker.IsDirty(),
		Attempt: s.attempts,
		At:      s.clock.Now(),
		Err:     err,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	for _, l := range s.listeners {
		l(ev)
	}
}
