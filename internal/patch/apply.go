package patch

import (
	"webtron/client/internal/arena"
)

// Reasons an operation can be skipped.
const (
	ReasonUnknownOp     = "unknown_op"
	ReasonMissingTarget = "missing_target"
)

// Ignored records an operation that left the aggregate unchanged.
type Ignored struct {
	Index  int
	Kind   Kind
	Tag    string
	Target arena.ID
	Reason string
}

// Report summarises one batch.
type Report struct {
	Applied int
	Ignored []Ignored
}

// Apply folds ops over a in order. Operations that are unknown or address
// a missing entity are skipped; the rest of the batch still applies.
func Apply(a arena.Arena, ops []Op) arena.Arena {
	next, _ := ApplyWithReport(a, ops)
	return next
}

// ApplyWithReport is Apply plus a record of skipped operations.
func ApplyWithReport(a arena.Arena, ops []Op) (arena.Arena, Report) {
	report := Report{}
	for idx, op := range ops {
		next, reason := step(a, op)
		if reason != "" {
			ignored := Ignored{Index: idx, Reason: reason, Kind: KindUnknown}
			if op != nil {
				ignored.Kind = op.Kind()
			}
			if unknown, ok := op.(Unknown); ok {
				ignored.Tag = unknown.Tag
			}
			ignored.Target, _ = Target(op)
			report.Ignored = append(report.Ignored, ignored)
			continue
		}
		a = next
		report.Applied++
	}
	return a, report
}

// ApplyOne applies a single operation and reports whether it took effect.
func ApplyOne(a arena.Arena, op Op) (arena.Arena, bool) {
	next, reason := step(a, op)
	if reason != "" {
		return a, false
	}
	return next, true
}

func step(a arena.Arena, op Op) (arena.Arena, string) {
	switch v := op.(type) {
	case AddPlayer:
		player := v.Player
		if player.ID == (arena.ID{}) {
			player.ID = v.ID
		}
		return a.WithPlayer(v.ID, player), ""
	case AddLightcycle:
		return a.WithLightcycle(v.ID, v.Lightcycle), ""
	case AddLightribbon:
		return a.WithLightribbon(v.ID, v.Lightribbon), ""
	case Start:
		at := v.At
		a.Started = &at
		return a, ""
	case End:
		a.Started = nil
		return a, ""
	case SetWinner:
		if v.ID == nil {
			a.Winner = nil
			return a, ""
		}
		winner := *v.ID
		a.Winner = &winner
		return a, ""
	case UpdateLightcyclePosition:
		cycle, ok := a.Lightcycle(v.ID)
		if !ok {
			return a, ReasonMissingTarget
		}
		cycle.Position = v.Position
		return a.WithLightcycle(v.ID, cycle), ""
	case UpdateLightcycleDirection:
		cycle, ok := a.Lightcycle(v.ID)
		if !ok {
			return a, ReasonMissingTarget
		}
		cycle.Direction = v.Direction
		return a.WithLightcycle(v.ID, cycle), ""
	case UpdateLightcycleApplyDeath:
		cycle, ok := a.Lightcycle(v.ID)
		if !ok {
			return a, ReasonMissingTarget
		}
		cycle.Dead = true
		cycle.Speed = 0
		return a.WithLightcycle(v.ID, cycle), ""
	case UpdateLightribbonAppendPoint:
		ribbon, ok := a.Lightribbon(v.ID)
		if !ok {
			return a, ReasonMissingTarget
		}
		return a.WithLightribbon(v.ID, ribbon.Append(v.Point)), ""
	case UpdateLightribbonReplaceLatestPoint:
		ribbon, ok := a.Lightribbon(v.ID)
		if !ok {
			return a, ReasonMissingTarget
		}
		return a.WithLightribbon(v.ID, ribbon.ReplaceLatest(v.Point)), ""
	case RemovePlayer:
		if _, ok := a.Player(v.ID); !ok {
			return a, ReasonMissingTarget
		}
		return a.WithoutPlayer(v.ID), ""
	case RemoveLightcycle:
		if _, ok := a.Lightcycle(v.ID); !ok {
			return a, ReasonMissingTarget
		}
		return a.WithoutLightcycle(v.ID), ""
	case RemoveLightribbon:
		if _, ok := a.Lightribbon(v.ID); !ok {
			return a, ReasonMissingTarget
		}
		return a.WithoutLightribbon(v.ID), ""
	default:
		return a, ReasonUnknownOp
	}
}
