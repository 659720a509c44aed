package trail

import (
	"math"

	"webtron/client/internal/arena"
)

// State is the life state of a bike. Dead is terminal.
type State int

const (
	Alive State = iota
	Dead
)

func (s State) String() string {
	if s == Dead {
		return "dead"
	}
	return "alive"
}

// Causes of death.
const (
	CauseBoundary  = "boundary"
	CauseCollision = "collision"
)

// Bike is a simulated lightcycle together with the ribbon it draws. The last
// ribbon point always tracks the bike's position while it is alive.
type Bike struct {
	ID        arena.ID
	Position  arena.Point
	Direction arena.Direction
	Speed     float64

	points     []arena.Point
	state      State
	justTurned bool
}

// NewBike places a bike at pos with a ribbon of [pos, pos].
func NewBike(id arena.ID, pos arena.Point, dir arena.Direction, speed float64) *Bike {
	return &Bike{
		ID:        id,
		Position:  pos,
		Direction: dir,
		Speed:     speed,
		points:    []arena.Point{pos, pos},
	}
}

func (b *Bike) State() State { return b.state }

func (b *Bike) Alive() bool { return b.state == Alive }

// JustTurned reports whether the next step skips collision testing.
func (b *Bike) JustTurned() bool { return b.justTurned }

// Points returns a copy of the ribbon polyline.
func (b *Bike) Points() []arena.Point {
	points := make([]arena.Point, len(b.points))
	copy(points, b.points)
	return points
}

func (b *Bike) Lightcycle() arena.Lightcycle {
	return arena.Lightcycle{Position: b.Position, Direction: b.Direction, Speed: b.Speed, Dead: b.state == Dead}
}

func (b *Bike) Lightribbon() arena.Lightribbon {
	return arena.Lightribbon{Points: b.Points()}
}

// Turn changes heading and commits a corner at the current position. Dead
// bikes, reversals and no-op turns are refused.
func (b *Bike) Turn(dir arena.Direction) bool {
	if b.state == Dead || !dir.Valid() || dir == b.Direction || b.Direction.Opposite(dir) {
		return false
	}
	b.points[len(b.points)-1] = b.Position
	b.points = append(b.points, b.Position)
	b.Direction = dir
	b.justTurned = true
	return true
}

// Kill moves the bike to Dead and stops it.
func (b *Bike) Kill() bool {
	if b.state == Dead {
		return false
	}
	b.state = Dead
	b.Speed = 0
	return true
}

func (b *Bike) advance(dt float64) {
	if b.state == Dead {
		return
	}
	b.Position = b.Position.Add(b.Direction.Unit().Scale(b.Speed * dt))
	b.points[len(b.points)-1] = b.Position
}

// Death reports a bike that died during a step.
type Death struct {
	ID       arena.ID
	Position arena.Point
	Cause    string
	// Owner is the ribbon owner for collision deaths.
	Owner arena.ID
}

// Config bounds the simulated arena.
type Config struct {
	Width      float64
	Height     float64
	LeadOffset float64
	Tolerance  float64
	// MaxTravel caps how far a bike moves between collision tests. Steps
	// are subdivided to honour it.
	MaxTravel float64
}

func (c Config) normalized() Config {
	if c.LeadOffset <= 0 {
		c.LeadOffset = DefaultLeadOffset
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.MaxTravel <= 0 {
		c.MaxTravel = c.Tolerance
	}
	return c
}

// Simulator advances bikes and applies the leading-edge collision model.
type Simulator struct {
	cfg   Config
	bikes map[arena.ID]*Bike
	order []arena.ID
}

func NewSimulator(cfg Config) *Simulator {
	return &Simulator{cfg: cfg.normalized(), bikes: make(map[arena.ID]*Bike)}
}

func (s *Simulator) Config() Config { return s.cfg }

// Spawn adds a bike, replacing any bike with the same id.
func (s *Simulator) Spawn(id arena.ID, pos arena.Point, dir arena.Direction, speed float64) *Bike {
	if _, exists := s.bikes[id]; !exists {
		s.order = append(s.order, id)
	}
	bike := NewBike(id, pos, dir, speed)
	s.bikes[id] = bike
	return bike
}

func (s *Simulator) Remove(id arena.ID) {
	if _, ok := s.bikes[id]; !ok {
		return
	}
	delete(s.bikes, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Clear removes every bike.
func (s *Simulator) Clear() {
	clear(s.bikes)
	s.order = s.order[:0]
}

func (s *Simulator) Bike(id arena.ID) (*Bike, bool) {
	bike, ok := s.bikes[id]
	return bike, ok
}

// Bikes returns bikes in spawn order.
func (s *Simulator) Bikes() []*Bike {
	bikes := make([]*Bike, 0, len(s.order))
	for _, id := range s.order {
		bikes = append(bikes, s.bikes[id])
	}
	return bikes
}

// Alive counts living bikes.
func (s *Simulator) Alive() int {
	alive := 0
	for _, bike := range s.bikes {
		if bike.Alive() {
			alive++
		}
	}
	return alive
}

func (s *Simulator) Turn(id arena.ID, dir arena.Direction) bool {
	bike, ok := s.bikes[id]
	if !ok {
		return false
	}
	return bike.Turn(dir)
}

// Step advances the simulation by dt seconds and returns the bikes that died.
func (s *Simulator) Step(dt float64) []Death {
	if dt <= 0 {
		return nil
	}
	fastest := 0.0
	for _, bike := range s.bikes {
		if bike.Alive() && bike.Speed > fastest {
			fastest = bike.Speed
		}
	}
	substeps := 1
	if travel := fastest * dt; travel > s.cfg.MaxTravel {
		substeps = int(math.Ceil(travel / s.cfg.MaxTravel))
	}
	sub := dt / float64(substeps)

	var deaths []Death
	for i := 0; i < substeps; i++ {
		deaths = append(deaths, s.substep(sub)...)
	}
	return deaths
}

func (s *Simulator) substep(dt float64) []Death {
	for _, id := range s.order {
		s.bikes[id].advance(dt)
	}

	var deaths []Death
	for _, id := range s.order {
		bike := s.bikes[id]
		if !bike.Alive() {
			continue
		}
		if !InBounds(bike.Position, s.cfg.Width, s.cfg.Height) {
			bike.Kill()
			deaths = append(deaths, Death{ID: id, Position: bike.Position, Cause: CauseBoundary})
			continue
		}
		if bike.justTurned {
			bike.justTurned = false
			continue
		}
		edge := LeadingEdge(bike.Position, bike.Direction, s.cfg.LeadOffset)
		if owner, hit := s.hit(edge); hit {
			bike.Kill()
			deaths = append(deaths, Death{ID: id, Position: bike.Position, Cause: CauseCollision, Owner: owner})
		}
	}
	return deaths
}

func (s *Simulator) hit(p arena.Point) (arena.ID, bool) {
	for _, id := range s.order {
		if OnTrail(p, s.bikes[id].points, s.cfg.Tolerance) {
			return id, true
		}
	}
	return arena.ID{}, false
}
