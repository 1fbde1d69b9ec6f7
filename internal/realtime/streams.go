package realtime

// StreamPlayers carries change notifications for the players table. The
// leaderboard page subscribes and refetches standings on every event.
const StreamPlayers = "players"

// KnownStreams is the set of streams clients may subscribe to.
func KnownStreams() map[string]struct{} {
	return map[string]struct{}{
		StreamPlayers: {},
	}
}
