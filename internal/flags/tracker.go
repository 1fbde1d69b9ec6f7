package flags

import "sync"

// Tracker guards against concurrent submissions of the same slot. Submissions
// of different slots, including the sibling slot on the same machine, remain
// independent.
type Tracker struct {
	mu       sync.Mutex
	inflight map[string]map[Key]struct{}
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{inflight: make(map[string]map[Key]struct{})}
}

// Begin marks a slot as submitting for the player. It reports false when a
// submission for that slot is already in flight.
func (t *Tracker) Begin(playerID string, key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	slots, ok := t.inflight[playerID]
	if !ok {
		slots = make(map[Key]struct{})
		t.inflight[playerID] = slots
	}

	if _, busy := slots[key]; busy {
		return false
	}

	slots[key] = struct{}{}
	return true
}

// Finish releases the slot after the grader round trip resolves.
func (t *Tracker) Finish(playerID string, key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()

	slots, ok := t.inflight[playerID]
	if !ok {
		return
	}

	delete(slots, key)
	if len(slots) == 0 {
		delete(t.inflight, playerID)
	}
}
