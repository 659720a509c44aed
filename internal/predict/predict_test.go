package predict

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"webtron/client/internal/arena"
)

func nearly(a, b arena.Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestEvaluateExtrapolatesFromBasis(t *testing.T) {
	T := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	started := T.Add(-time.Minute)
	basis := NewBasis(arena.Point{}, T)
	cycle := arena.Lightcycle{Direction: arena.DirectionRight, Speed: 100}

	if got := Evaluate(&basis, &started, cycle, T); !nearly(got, arena.Point{}) {
		t.Fatalf("expected [0,0] at basis instant, got %v", got)
	}
	if got := Evaluate(&basis, &started, cycle, T.Add(500*time.Millisecond)); !nearly(got, arena.Point{X: 50}) {
		t.Fatalf("expected [50,0] after half a second, got %v", got)
	}
}

func TestEvaluateDirections(t *testing.T) {
	T := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	started := T
	cases := map[arena.Direction]arena.Point{
		arena.DirectionLeft:  {X: -10},
		arena.DirectionRight: {X: 10},
		arena.DirectionDown:  {Y: -10},
		arena.DirectionUp:    {Y: 10},
	}
	for dir, want := range cases {
		basis := NewBasis(arena.Point{}, T)
		got := Evaluate(&basis, &started, arena.Lightcycle{Direction: dir, Speed: 10}, T.Add(time.Second))
		if !nearly(got, want) {
			t.Fatalf("direction %s: expected %v, got %v", dir, want, got)
		}
	}
}

func TestEvaluateFreezesBeforeStart(t *testing.T) {
	T := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	started := T.Add(10 * time.Second)
	basis := NewBasis(arena.Point{X: 3, Y: 4}, T)
	cycle := arena.Lightcycle{Direction: arena.DirectionUp, Speed: 55}

	got := Evaluate(&basis, &started, cycle, T.Add(time.Second))
	if got != (arena.Point{X: 3, Y: 4}) {
		t.Fatalf("expected latest position while scheduled, got %v", got)
	}
	if !basis.BaseSetAt.Equal(started) {
		t.Fatalf("expected basis timestamp pinned to start %v, got %v", started, basis.BaseSetAt)
	}

	// One second after the start the bike has moved exactly one second's worth.
	got = Evaluate(&basis, &started, cycle, started.Add(time.Second))
	if !nearly(got, arena.Point{X: 3, Y: 59}) {
		t.Fatalf("expected motion measured from the start instant, got %v", got)
	}
}

func TestEvaluateFreezesWithoutStart(t *testing.T) {
	T := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	basis := NewBasis(arena.Point{X: 1, Y: 1}, T)
	cycle := arena.Lightcycle{Direction: arena.DirectionUp, Speed: 55}

	got := Evaluate(&basis, nil, cycle, T.Add(time.Hour))
	if got != (arena.Point{X: 1, Y: 1}) {
		t.Fatalf("expected frozen position without start, got %v", got)
	}
	if !basis.BaseSetAt.Equal(T) {
		t.Fatalf("expected basis timestamp untouched without start")
	}
}

func TestEvaluateFreezesWhenDead(t *testing.T) {
	T := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	started := T.Add(-time.Second)
	basis := NewBasis(arena.Point{X: 7, Y: 7}, T)
	cycle := arena.Lightcycle{Direction: arena.DirectionLeft, Speed: 55, Dead: true}

	for i := 0; i < 5; i++ {
		got := Evaluate(&basis, &started, cycle, T.Add(time.Duration(i)*time.Second))
		if got != (arena.Point{X: 7, Y: 7}) {
			t.Fatalf("tick %d: expected dead bike to stay frozen, got %v", i, got)
		}
	}
}

func TestEvaluateRebasesOnFreshPosition(t *testing.T) {
	T := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	started := T.Add(-time.Second)
	basis := NewBasis(arena.Point{}, T)
	cycle := arena.Lightcycle{Direction: arena.DirectionRight, Speed: 10}

	Evaluate(&basis, &started, cycle, T.Add(time.Second))
	basis.Latest = arena.Point{X: 12}

	now := T.Add(2 * time.Second)
	got := Evaluate(&basis, &started, cycle, now)
	if !nearly(got, arena.Point{X: 12}) {
		t.Fatalf("expected rebase to the fresh position, got %v", got)
	}
	if basis.Base != (arena.Point{X: 12}) || !basis.BaseSetAt.Equal(now) {
		t.Fatalf("unexpected basis after rebase: %+v", basis)
	}
	got = Evaluate(&basis, &started, cycle, now.Add(time.Second))
	if !nearly(got, arena.Point{X: 22}) {
		t.Fatalf("expected extrapolation from the rebased point, got %v", got)
	}
}

func TestPredictorFramePrunesRemovedEntities(t *testing.T) {
	T := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	started := T
	keep, drop := uuid.New(), uuid.New()
	a := arena.New(uuid.New()).
		WithLightcycle(keep, arena.Lightcycle{Position: arena.Point{X: 10}, Direction: arena.DirectionUp, Speed: 10}).
		WithLightcycle(drop, arena.Lightcycle{Position: arena.Point{X: 20}, Direction: arena.DirectionUp, Speed: 10})
	a.Started = &started

	p := New()
	frame := p.Frame(T, a)
	if len(frame.Positions) != 2 || p.Len() != 2 {
		t.Fatalf("expected two tracked entities, got %d positions and %d bases", len(frame.Positions), p.Len())
	}

	a = a.WithoutLightcycle(drop)
	frame = p.Frame(T.Add(time.Second), a)
	if _, ok := p.Basis(drop); ok {
		t.Fatalf("expected basis of removed lightcycle to be released")
	}
	if got := frame.Positions[keep]; !nearly(got, arena.Point{X: 10, Y: 10}) {
		t.Fatalf("expected kept bike at [10,10], got %v", got)
	}

	if !p.Release(keep) || p.Release(keep) {
		t.Fatalf("expected release to report presence once")
	}
	p.Frame(T, a)
	p.Reset()
	if p.Len() != 0 {
		t.Fatalf("expected reset to drop all bases")
	}
}
