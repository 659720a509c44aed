package practice

import (
	"math/rand"

	"webtron/client/internal/arena"
	"webtron/client/internal/trail"
)

const (
	pilotLookahead = 24.0
	pilotWander    = 0.01
)

// pilot steers a computer rider: keep going while the path ahead is clear,
// otherwise turn to whichever side is open. Now and then it turns for no
// reason so rounds do not play out identically.
type pilot struct {
	id        arena.ID
	lookahead float64
	wander    float64
	rng       *rand.Rand
}

func newPilot(id arena.ID, rng *rand.Rand) *pilot {
	return &pilot{id: id, lookahead: pilotLookahead, wander: pilotWander, rng: rng}
}

// decide returns the heading to turn to, if any.
func (p *pilot) decide(sim *trail.Simulator, a arena.Arena) (arena.Direction, bool) {
	bike, ok := sim.Bike(p.id)
	if !ok || !bike.Alive() {
		return "", false
	}
	cfg := sim.Config()

	sides := sidesOf(bike.Direction)
	if p.rng.Intn(2) == 1 {
		sides[0], sides[1] = sides[1], sides[0]
	}

	if clearAhead(bike.Position, bike.Direction, p.lookahead, cfg, a) {
		if p.rng.Float64() >= p.wander {
			return "", false
		}
		for _, side := range sides {
			if clearAhead(bike.Position, side, p.lookahead, cfg, a) {
				return side, true
			}
		}
		return "", false
	}

	best, bestReach := arena.Direction(""), 0.0
	for _, side := range sides {
		if reach := openDistance(bike.Position, side, cfg, a); reach > bestReach {
			best, bestReach = side, reach
		}
	}
	return best, best != ""
}

func sidesOf(dir arena.Direction) [2]arena.Direction {
	switch dir {
	case arena.DirectionUp, arena.DirectionDown:
		return [2]arena.Direction{arena.DirectionLeft, arena.DirectionRight}
	default:
		return [2]arena.Direction{arena.DirectionUp, arena.DirectionDown}
	}
}

// clearAhead probes from the leading edge out to distance in unit steps.
func clearAhead(pos arena.Point, dir arena.Direction, distance float64, cfg trail.Config, a arena.Arena) bool {
	return openDistance(pos, dir, cfg, a) >= distance
}

// openDistance measures how far a rider at pos could travel along dir
// before its leading edge meets a wall or ribbon. The probe stops at the
// arena diagonal.
func openDistance(pos arena.Point, dir arena.Direction, cfg trail.Config, a arena.Arena) float64 {
	unit := dir.Unit()
	limit := cfg.Width + cfg.Height
	for travelled := 1.0; travelled <= limit; travelled++ {
		edge := trail.LeadingEdge(pos.Add(unit.Scale(travelled)), dir, cfg.LeadOffset)
		if !trail.InBounds(edge, cfg.Width, cfg.Height) {
			return travelled - 1
		}
		if _, hit := trail.Collides(edge, a, cfg.Tolerance); hit {
			return travelled - 1
		}
	}
	return limit
}
