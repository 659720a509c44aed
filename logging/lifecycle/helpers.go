package lifecycle

import (
	"context"

	"webtron/client/logging"
)

const (
	// EventArenaJoined is emitted when the server confirms a join.
	EventArenaJoined logging.EventType = "lifecycle.arena_joined"
	// EventArenaLeft is emitted when the local session drops its arena.
	EventArenaLeft logging.EventType = "lifecycle.arena_left"
	// EventRoundStarted is emitted when a round start instant is announced.
	EventRoundStarted logging.EventType = "lifecycle.round_started"
	// EventRoundEnded is emitted when the server ends a round.
	EventRoundEnded logging.EventType = "lifecycle.round_ended"
	// EventWinnerDeclared is emitted when the winner changes.
	EventWinnerDeclared logging.EventType = "lifecycle.winner_declared"
)

// ArenaJoinedPayload captures the identifiers assigned on join.
type ArenaJoinedPayload struct {
	ArenaID  string `json:"arenaId"`
	PlayerID string `json:"playerId"`
}

// ArenaLeftPayload captures why the arena was dropped.
type ArenaLeftPayload struct {
	Reason string `json:"reason"`
}

// RoundStartedPayload captures the announced start instant.
type RoundStartedPayload struct {
	StartsAt string `json:"startsAt"`
}

// WinnerPayload names the winner, empty when cleared.
type WinnerPayload struct {
	Winner string `json:"winner,omitempty"`
	Name   string `json:"name,omitempty"`
}

// ArenaJoined publishes a join confirmation.
func ArenaJoined(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ArenaJoinedPayload, extra map[string]any) {
	publish(ctx, pub, EventArenaJoined, 0, actor, payload, extra)
}

// ArenaLeft publishes an arena departure.
func ArenaLeft(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ArenaLeftPayload, extra map[string]any) {
	publish(ctx, pub, EventArenaLeft, 0, actor, payload, extra)
}

// RoundStarted publishes a round start announcement.
func RoundStarted(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload RoundStartedPayload, extra map[string]any) {
	publish(ctx, pub, EventRoundStarted, seq, actor, payload, extra)
}

// RoundEnded publishes a round end.
func RoundEnded(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, extra map[string]any) {
	publish(ctx, pub, EventRoundEnded, seq, actor, nil, extra)
}

// WinnerDeclared publishes a winner change.
func WinnerDeclared(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload WinnerPayload, extra map[string]any) {
	publish(ctx, pub, EventWinnerDeclared, seq, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, seq uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}
