package autosave

import (
	"fmt"
	"time"
)

// State is the scheduler's position in its debounce/save cycle.
type State int

const (
	// StateIdle has no pending timer and no save in flight.
	StateIdle State = iota
	// StatePendingDebounce has a debounce timer running.
	StatePendingDebounce
	// StateSaving has a save executor call in flight.
	StateSaving
	// StateClosed no longer accepts changes.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingDebounce:
		return "pending_debounce"
	case StateSaving:
		return "saving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateIdle, StatePendingDebounce, StateSaving, StateClosed} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// EventType names a scheduler transition.
type EventType string

const (
	EventBaseline    EventType = "baseline"
	EventChanged     EventType = "changed"
	EventSaveStarted EventType = "save_started"
	EventSaved       EventType = "saved"
	// EventSavedStale means the save succeeded but a newer change is still pending.
	EventSavedStale EventType = "saved_stale"
	EventSaveFailed EventType = "save_failed"
	EventClosed     EventType = "closed"
)

// Event describes one scheduler transition.
type Event struct {
	Type    EventType `json:"type"`
	State   State     `json:"state"`
	Dirty   bool      `json:"dirty"`
	Attempt uint64    `json:"attempt,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`

	// Err carries the executor error for save_failed events.
	Err error `json:"-"`
}

// Listener receives scheduler events in order.
// It runs while the scheduler lock is held and must not call back into the scheduler.
//
// A save outcome (saved, saved_stale, save_failed) is emitted before a queued
// follow-up save starts, so its State reads idle and a save_started follows.
type Listener func(Event)

// PendingSave describes the save currently in flight.
type PendingSave[T any] struct {
	Snapshot  T
	StartedAt time.Time
	Attempt   uint64
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State       State      `json:"state"`
	Dirty       bool       `json:"dirty"`
	Saves       uint64     `json:"saves"`
	Failures    uint64     `json:"failures"`
	LastError   string     `json:"lastError,omitempty"`
	LastSavedAt *time.Time `json:"lastSavedAt,omitempty"`
	SavingSince *time.Time `json:"savingSince,omitempty"`
}
