package autosave

import "sync"

// DirtyTracker reports whether an edit buffer changed since the last confirmed save.
type DirtyTracker struct {
	mu    sync.RWMutex
	dirty bool
}

// NewDirtyTracker creates a clean tracker.
func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{}
}

// MarkDirty sets the dirty flag to true.
func (t *DirtyTracker) MarkDirty() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = true
}

// MarkClean resets the dirty flag. Only the scheduler that issued the save calls it.
func (t *DirtyTracker) MarkClean() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = false
}

// IsDirty returns true if the buffer has unsaved changes.
func (t *DirtyTracker) IsDirty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dirty
}
