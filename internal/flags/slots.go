package flags

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type identifies which of a machine's two flag slots a submission targets.
type Type string

// The two slots every machine exposes.
const (
	TypeUser Type = "user"
	TypeRoot Type = "root"
)

// Types lists all slot types in render order.
var Types = []Type{TypeUser, TypeRoot}

// ParseType validates a wire-level flag type.
func ParseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeUser:
		return TypeUser, nil
	case TypeRoot:
		return TypeRoot, nil
	default:
		return "", fmt.Errorf("unknown flag type %q", raw)
	}
}

// State is the tagged submission state of a single slot.
type State int

// Slot lifecycle: Empty -> Submitting -> Accepted (terminal) or Rejected,
// which renders the slot editable again with an inline message.
const (
	StateEmpty State = iota
	StateSubmitting
	StateAccepted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSubmitting:
		return "submitting"
	case StateAccepted:
		return "accepted"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// MarshalJSON renders states as their lowercase names.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Key addresses one slot on the board.
type Key struct {
	MachineID string
	Type      Type
}

// Slot carries the view state for one (machine, flag type) pair.
type Slot struct {
	State       State
	Placeholder string // accepted value, shown in the locked input
	Message     string // last grader message
}

// Locked reports whether the slot must render disabled.
func (s Slot) Locked() bool {
	return s.State == StateAccepted
}

// Begin applies the Empty -> Submitting transition. It reports false for the
// guarded no-op cases: blank input, a submission already in flight, or an
// already accepted slot.
func (s Slot) Begin(value string) (Slot, bool) {
	if strings.TrimSpace(value) == "" {
		return s, false
	}
	if s.State == StateSubmitting || s.State == StateAccepted {
		return s, false
	}

	s.State = StateSubmitting
	s.Message = ""
	return s, true
}

// Resolve completes an in-flight submission. Accepted slots lock with the
// submitted value as placeholder; rejected slots return to an editable state
// carrying the grader's message.
func (s Slot) Resolve(value, message string, accepted bool) Slot {
	s.Message = message
	if accepted {
		s.State = StateAccepted
		s.Placeholder = strings.TrimSpace(value)
		return s
	}

	s.State = StateRejected
	return s
}

// SubmittedFlag is the stored record merged into the board on load.
type SubmittedFlag struct {
	MachineID string
	Type      Type
	Value     string
}

// Board is the per-player dashboard state keyed by slot.
type Board map[Key]Slot

// NewBoard builds an all-empty board with both slots for every machine.
func NewBoard(machineIDs []string) Board {
	board := make(Board, len(machineIDs)*len(Types))
	for _, id := range machineIDs {
		for _, t := range Types {
			board[Key{MachineID: id, Type: t}] = Slot{State: StateEmpty}
		}
	}
	return board
}

// MergeSubmitted folds previously accepted flags into the board: each present
// record locks its slot with the stored value as placeholder.
func (b Board) MergeSubmitted(submitted []SubmittedFlag) {
	for _, record := range submitted {
		key := Key{MachineID: record.MachineID, Type: record.Type}
		slot, ok := b[key]
		if !ok {
			continue
		}
		slot.State = StateAccepted
		slot.Placeholder = record.Value
		slot.Message = ""
		b[key] = slot
	}
}
