package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	parsed, err := ParseType(" User ")
	require.NoError(t, err)
	require.Equal(t, TypeUser, parsed)

	parsed, err = ParseType("root")
	require.NoError(t, err)
	require.Equal(t, TypeRoot, parsed)

	_, err = ParseType("kernel")
	require.Error(t, err)
}

func TestSlotBeginGuards(t *testing.T) {
	slot := Slot{State: StateEmpty}

	_, ok := slot.Begin("   ")
	require.False(t, ok, "blank input must not start a submission")

	submitting, ok := slot.Begin("HTB{flag}")
	require.True(t, ok)
	require.Equal(t, StateSubmitting, submitting.State)

	_, ok = submitting.Begin("HTB{flag}")
	require.False(t, ok, "in-flight slot must reject a second submission")

	accepted := submitting.Resolve("HTB{flag}", "✅ Correct!", true)
	_, ok = accepted.Begin("HTB{other}")
	require.False(t, ok, "accepted slot is locked for good")
}

func TestSlotResolveAccepted(t *testing.T) {
	slot := Slot{State: StateEmpty}
	slot, ok := slot.Begin("  HTB{deadbeef}  ")
	require.True(t, ok)

	slot = slot.Resolve("  HTB{deadbeef}  ", "✅ Correct!", true)
	require.Equal(t, StateAccepted, slot.State)
	require.True(t, slot.Locked())
	require.Equal(t, "HTB{deadbeef}", slot.Placeholder)
	require.Equal(t, "✅ Correct!", slot.Message)
}

func TestSlotResolveRejectedReturnsEditable(t *testing.T) {
	slot := Slot{State: StateEmpty}
	slot, ok := slot.Begin("wrong")
	require.True(t, ok)

	slot = slot.Resolve("wrong", "❌ Incorrect flag", false)
	require.Equal(t, StateRejected, slot.State)
	require.False(t, slot.Locked())
	require.Equal(t, "❌ Incorrect flag", slot.Message)

	// A rejected slot accepts a fresh attempt.
	slot, ok = slot.Begin("second-try")
	require.True(t, ok)
	require.Equal(t, StateSubmitting, slot.State)
	require.Empty(t, slot.Message, "starting a submission clears the stale message")
}

func TestBoardMergeSubmitted(t *testing.T) {
	board := NewBoard([]string{"m1", "m2"})
	require.Len(t, board, 4)

	board.MergeSubmitted([]SubmittedFlag{
		{MachineID: "m1", Type: TypeUser, Value: "HTB{user}"},
		{MachineID: "m3", Type: TypeRoot, Value: "ignored"}, // unknown machine
	})

	locked := board[Key{MachineID: "m1", Type: TypeUser}]
	require.Equal(t, StateAccepted, locked.State)
	require.Equal(t, "HTB{user}", locked.Placeholder)

	// Sibling slot on the same machine stays editable.
	sibling := board[Key{MachineID: "m1", Type: TypeRoot}]
	require.Equal(t, StateEmpty, sibling.State)

	other := board[Key{MachineID: "m2", Type: TypeUser}]
	require.Equal(t, StateEmpty, other.State)
}

func TestTrackerGuardsPerSlot(t *testing.T) {
	tracker := NewTracker()
	key := Key{MachineID: "m1", Type: TypeUser}

	require.True(t, tracker.Begin("p1", key))
	require.False(t, tracker.Begin("p1", key), "same slot is busy")

	// Different slot and different player are unaffected.
	require.True(t, tracker.Begin("p1", Key{MachineID: "m1", Type: TypeRoot}))
	require.True(t, tracker.Begin("p2", key))

	tracker.Finish("p1", key)
	require.True(t, tracker.Begin("p1", key))
}
