package simulation

import (
	"context"

	"webtron/client/logging"
)

const (
	// EventBikeCrashed is emitted when a practice bike dies.
	EventBikeCrashed logging.EventType = "simulation.bike_crashed"
	// EventRoundSettled is emitted when a practice round has a result.
	EventRoundSettled logging.EventType = "simulation.round_settled"
)

// BikeCrashedPayload captures where and why a bike died.
type BikeCrashedPayload struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Cause string  `json:"cause"`
}

// RoundSettledPayload captures the outcome of a practice round.
type RoundSettledPayload struct {
	Winner string `json:"winner,omitempty"`
	Riders int    `json:"riders"`
}

// BikeCrashed publishes a crash. Collisions name the ribbon owner as target.
func BikeCrashed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, targets []logging.EntityRef, payload BikeCrashedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBikeCrashed,
		Actor:    actor,
		Targets:  targets,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryPractice,
		Payload:  payload,
		Extra:    extra,
	})
}

// RoundSettled publishes the end of a practice round.
func RoundSettled(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RoundSettledPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRoundSettled,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryPractice,
		Payload:  payload,
		Extra:    extra,
	})
}
