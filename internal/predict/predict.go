// Package predict extrapolates lightcycle positions between server updates.
package predict

import (
	"time"

	"webtron/client/internal/arena"
)

// Basis is the per-entity interpolation state kept outside the aggregate.
type Basis struct {
	Base      arena.Point
	BaseSetAt time.Time
	Latest    arena.Point
}

// NewBasis anchors a basis at position as of now.
func NewBasis(position arena.Point, now time.Time) Basis {
	return Basis{Base: position, BaseSetAt: now, Latest: position}
}

// Evaluate returns the display position of a lightcycle at now and advances
// b accordingly.
//
// Before the round is live the latest authoritative position is shown and
// the basis timestamp is pinned to the start instant, so motion begins
// exactly at the start. Dead lightcycles are frozen. A new authoritative
// position rebases the extrapolation at now.
func Evaluate(b *Basis, started *time.Time, cycle arena.Lightcycle, now time.Time) arena.Point {
	if started == nil || started.After(now) {
		if started != nil {
			b.BaseSetAt = *started
		}
		return b.Latest
	}
	if cycle.Dead {
		return b.Latest
	}
	if b.Latest != b.Base {
		b.Base = b.Latest
		b.BaseSetAt = now
	}
	elapsed := now.Sub(b.BaseSetAt).Seconds()
	return b.Base.Add(cycle.Direction.Unit().Scale(cycle.Speed * elapsed))
}

// Frame is the set of predicted positions for one render tick.
type Frame struct {
	At        time.Time
	Positions map[arena.ID]arena.Point
}

// Predictor owns the bases of every lightcycle in the current arena. It is
// driven from a single goroutine and is not safe for concurrent use.
type Predictor struct {
	bases map[arena.ID]*Basis
}

func New() *Predictor {
	return &Predictor{bases: make(map[arena.ID]*Basis)}
}

// Observe records the latest authoritative position for id, creating its
// basis on first sight.
func (p *Predictor) Observe(id arena.ID, position arena.Point, now time.Time) *Basis {
	basis, ok := p.bases[id]
	if !ok {
		b := NewBasis(position, now)
		p.bases[id] = &b
		return &b
	}
	basis.Latest = position
	return basis
}

// Frame evaluates every lightcycle in a at now. Bases for lightcycles that
// are no longer present are dropped.
func (p *Predictor) Frame(now time.Time, a arena.Arena) Frame {
	frame := Frame{At: now, Positions: make(map[arena.ID]arena.Point, a.LenLightcycles())}
	a.EachLightcycle(func(id arena.ID, cycle arena.Lightcycle) {
		basis := p.Observe(id, cycle.Position, now)
		frame.Positions[id] = Evaluate(basis, a.Started, cycle, now)
	})
	for id := range p.bases {
		if _, ok := frame.Positions[id]; !ok {
			delete(p.bases, id)
		}
	}
	return frame
}

// Basis returns a copy of the basis for id.
func (p *Predictor) Basis(id arena.ID) (Basis, bool) {
	basis, ok := p.bases[id]
	if !ok {
		return Basis{}, false
	}
	return *basis, true
}

// Release drops the basis for id. It reports whether one existed.
func (p *Predictor) Release(id arena.ID) bool {
	if _, ok := p.bases[id]; !ok {
		return false
	}
	delete(p.bases, id)
	return true
}

// Reset drops every basis.
func (p *Predictor) Reset() {
	clear(p.bases)
}

func (p *Predictor) Len() int {
	return len(p.bases)
}
