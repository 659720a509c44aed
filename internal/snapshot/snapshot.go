// Package snapshot builds whole arena aggregates from join and full-state
// messages.
package snapshot

import "webtron/client/internal/arena"

// Joined returns the placeholder arena shown between joining and the first
// full state: empty collections, no start, no winner, zeroed dimensions.
func Joined(arenaID arena.ID) arena.Arena {
	return arena.New(arenaID)
}

// Replace adopts full as the new aggregate. The previous aggregate is never
// consulted.
func Replace(full arena.Arena) arena.Arena {
	return full.Normalize()
}
