package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bassista/go_autosave/internal/autosave"
	"github.com/bassista/go_autosave/internal/clock"
	"github.com/bassista/go_autosave/internal/executor"
	"github.com/bassista/go_autosave/internal/logger"
	"github.com/bassista/go_autosave/internal/report"
	"github.com/bassista/go_autosave/internal/repository"
	"github.com/google/uuid"
)

// ProfileSource provides the persisted section values new sessions start from.
type ProfileSource interface {
	Profile(id string) (repository.Profile, error)
}

// Publisher receives every scheduler event of every session.
// Publish runs under the scheduler lock and must not block.
type Publisher interface {
	Publish(sessionID string, ev autosave.Event)
	CloseSession(sessionID string)
}

// DefaultReapAttempts is how many reaper polls an idle session whose latest
// value failed to save is kept before it is closed unsaved.
const DefaultReapAttempts = 3

type Option func(*Manager)

func WithDelay(d time.Duration) Option {
	return func(m *Manager) { m.delay = d }
}

func WithPublisher(p Publisher) Option {
	return func(m *Manager) {
		if p != nil {
			m.publisher = p
		}
	}
}

// WithClock sets the clock used for activity timestamps and debounce timers.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

func WithReapAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.reapAttempts = n
		}
	}
}

func WithReporter(r report.Reporter) Option {
	return func(m *Manager) {
		if r != nil {
			m.reporter = r
		}
	}
}

// Manager owns the open editing sessions. A profile section has at most one
// session: opening it again returns the existing one.
type Manager struct {
	source       ProfileSource
	exec         executor.SaveExecutor
	delay        time.Duration
	clock        clock.Clock
	reapAttempts int
	publisher    Publisher
	reporter     report.Reporter

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(source ProfileSource, exec executor.SaveExecutor, opts ...Option) *Manager {
	m := &Manager{
		source:       source,
		exec:         exec,
		delay:        autosave.DefaultDelay,
		clock:        clock.NewRealClock(),
		reapAttempts: DefaultReapAttempts,
		publisher:    nopPublisher{},
		reporter:     report.LogReporter{},
		sessions:     make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a session for the section, using its persisted value as baseline.
func (m *Manager) Open(profileID, section, token string) (Info, error) {
	if !repository.IsSection(section) {
		return Info{}, fmt.Errorf("%w: %s", repository.ErrUnknownSection, section)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.ProfileID == profileID && s.Section == section {
			s.mu.Lock()
			s.lastActivity = m.clock.Now()
			if token != "" {
				s.token = token
			}
			s.mu.Unlock()
			logger.WithSession("session", s.ID).Debugf("reusing session for %s/%s", profileID, section)
			return s.Info(), nil
		}
	}

	profile, err := m.source.Profile(profileID)
	if err != nil {
		return Info{}, err
	}
	baseline, err := profile.SectionValue(section)
	if err != nil {
		return Info{}, err
	}

	now := m.clock.Now()
	s := &Session{
		ID:           uuid.NewString(),
		ProfileID:    profileID,
		Section:      section,
		OpenedAt:     now,
		token:        token,
		clock:        m.clock,
		lastActivity: now,
	}

	sched, err := autosave.NewScheduler(m.saveFunc(s),
		autosave.WithDelay(m.delay),
		autosave.WithName(s.ID),
		autosave.WithClock(m.clock),
		autosave.WithListener(m.listener(s)),
	)
	if err != nil {
		return Info{}, err
	}
	s.scheduler = sched

	if err := sched.NotifyChanged(baseline); err != nil {
		return Info{}, fmt.Errorf("record baseline: %w", err)
	}

	m.sessions[s.ID] = s
	logger.WithSession("session", s.ID).Infof("opened for %s/%s", profileID, section)
	return s.Info(), nil
}

func (m *Manager) saveFunc(s *Session) autosave.SaveFunc[json.RawMessage] {
	return func(ctx context.Context, snapshot json.RawMessage) error {
		s.mu.Lock()
		target := executor.Target{ProfileID: s.ProfileID, Section: s.Section, Token: s.token}
		s.mu.Unlock()
		return m.exec.Save(ctx, target, snapshot)
	}
}

func (m *Manager) listener(s *Session) autosave.Listener {
	return func(ev autosave.Event) {
		m.publisher.Publish(s.ID, ev)
		if ev.Type == autosave.EventSaveFailed {
			m.reporter.ReportSaveFailure(report.Failure{
				SessionID: s.ID,
				ProfileID: s.ProfileID,
				Section:   s.Section,
				Attempt:   ev.Attempt,
				Err:       ev.Err,
			})
		}
	}
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *Manager) Get(id string) (Info, error) {
	s, err := m.get(id)
	if err != nil {
		return Info{}, err
	}
	return s.Info(), nil
}

// List returns all open sessions ordered by opening time.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// Notify hands the whole current section value to the session's scheduler.
func (m *Manager) Notify(id string, payload json.RawMessage) (Info, error) {
	s, err := m.get(id)
	if err != nil {
		return Info{}, err
	}
	s.touch()
	if err := s.scheduler.NotifyChanged(payload); err != nil {
		return s.Info(), err
	}
	return s.Info(), nil
}

// Flush saves the session's latest value now if it is dirty.
func (m *Manager) Flush(ctx context.Context, id string) (Info, error) {
	s, err := m.get(id)
	if err != nil {
		return Info{}, err
	}
	s.touch()
	err = s.scheduler.Flush(ctx)
	return s.Info(), err
}

// Close removes the session. With flush set the latest value is saved first
// and the session stays open if that save fails.
func (m *Manager) Close(ctx context.Context, id string, flush bool) (Info, error) {
	s, err := m.get(id)
	if err != nil {
		return Info{}, err
	}
	if flush {
		if err := s.scheduler.Flush(ctx); err != nil {
			return s.Info(), err
		}
	}
	m.closeSession(s)
	return s.Info(), nil
}

func (m *Manager) closeSession(s *Session) {
	s.scheduler.Close()
	m.forget(s)
}

// forget removes a session whose scheduler is already closed.
func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	m.publisher.CloseSession(s.ID)
	logger.WithSession("session", s.ID).Infof("closed (dirty=%v)", s.scheduler.IsDirty())
}

// CloseAll flushes and closes every session. Used on shutdown.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	var errs []error
	for _, s := range all {
		if err := s.scheduler.Flush(ctx); err != nil && !errors.Is(err, autosave.ErrClosed) {
			logger.WithSession("session", s.ID).Errorf("final save failed: %v", err)
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
		}
		m.closeSession(s)
	}
	return errors.Join(errs...)
}

// CloseIdle flushes and closes sessions without activity since before cutoff.
// A session that sees activity while it is flushed stays open. A session whose
// latest value failed to save is not saved again; it is closed unsaved and
// reported once it has stayed that way for the configured number of polls.
func (m *Manager) CloseIdle(ctx context.Context, cutoff time.Time) int {
	m.mu.RLock()
	var idle []*Session
	for _, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, s := range idle {
		if ctx.Err() != nil {
			break
		}
		if m.reap(ctx, s, cutoff) {
			closed++
		}
	}
	return closed
}

func (m *Manager) reap(ctx context.Context, s *Session, cutoff time.Time) bool {
	log := logger.WithSession("reaper", s.ID)

	if s.scheduler.FailedUnchanged() {
		polls := s.bumpFailedPolls()
		if polls < m.reapAttempts {
			log.Debugf("latest value failed to save, not retrying (%d/%d)", polls, m.reapAttempts)
			return false
		}
		lastErr := s.scheduler.LastError()
		if !s.scheduler.CloseIfFailed() {
			return false
		}
		m.forget(s)
		st := s.scheduler.Status()
		m.reporter.ReportSaveFailure(report.Failure{
			SessionID: s.ID,
			ProfileID: s.ProfileID,
			Section:   s.Section,
			Attempt:   st.Saves + st.Failures,
			Err:       fmt.Errorf("%w: %v", ErrClosedUnsaved, lastErr),
		})
		return true
	}
	s.resetFailedPolls()

	if err := s.scheduler.Flush(ctx); err != nil {
		if !errors.Is(err, autosave.ErrClosed) {
			log.Warnf("keeping idle session, save failed: %v", err)
		}
		return false
	}

	// an edit may have arrived while the flush ran
	if !s.idleSince().Before(cutoff) || !s.scheduler.CloseIfClean() {
		log.Debugf("session active during reap, keeping it")
		return false
	}
	m.forget(s)
	return true
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, autosave.Event) {}
func (nopPublisher) CloseSession(string)            {}
