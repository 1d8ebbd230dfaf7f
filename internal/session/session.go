package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/bassista/go_autosave/internal/autosave"
	"github.com/bassista/go_autosave/internal/clock"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrClosedUnsaved is reported when the reaper gives up on a session
	// whose latest value could not be saved.
	ErrClosedUnsaved = errors.New("session closed with unsaved changes")
)

// Session is one editor buffer bound to a profile section.
type Session struct {
	ID        string
	ProfileID string
	Section   string
	OpenedAt  time.Time

	token     string
	scheduler *autosave.Scheduler[json.RawMessage]
	clock     clock.Clock

	mu           sync.Mutex
	lastActivity time.Time
	failedPolls  int // reaper polls that found the same failed value
}

// Info is the JSON view of a session.
type Info struct {
	ID           string          `json:"id"`
	ProfileID    string          `json:"profileId"`
	Section      string          `json:"section"`
	OpenedAt     time.Time       `json:"openedAt"`
	LastActivity time.Time       `json:"lastActivity"`
	DelayMs      int64           `json:"delayMs"`
	Buffer       json.RawMessage `json:"buffer,omitempty"`
	autosave.Status
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = s.clock.Now()
	s.mu.Unlock()
}

func (s *Session) bumpFailedPolls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedPolls++
	return s.failedPolls
}

func (s *Session) resetFailedPolls() {
	s.mu.Lock()
	s.failedPolls = 0
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) Info() Info {
	buf, _ := s.scheduler.Latest()
	return Info{
		ID:           s.ID,
		ProfileID:    s.ProfileID,
		Section:      s.Section,
		OpenedAt:     s.OpenedAt,
		LastActivity: s.idleSince(),
		DelayMs:      s.scheduler.Delay().Milliseconds(),
		Buffer:       buf,
		Status:       s.scheduler.Status(),
	}
}
