// Package practice runs a single arena in process and speaks the server's
// message protocol, so the client can be played offline and exercised end
// to end in tests.
package practice

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"webtron/client/internal/arena"
	"webtron/client/internal/net/proto"
	"webtron/client/internal/patch"
	"webtron/client/internal/trail"
	"webtron/client/logging"
	"webtron/client/logging/simulation"
)

const (
	DefaultWidth      = 560
	DefaultHeight     = 560
	DefaultMaxPlayers = 8
	DefaultSpeed      = 55.0
	DefaultCountdown  = time.Second
	DefaultTickRate   = 30
	DefaultName       = "Practice"
)

var (
	// ErrArenaFull is returned when every spawn point is taken.
	ErrArenaFull = errors.New("practice: arena is full")
	// ErrUnknownArena is returned when a join names another arena.
	ErrUnknownArena = errors.New("practice: unknown arena")
)

// Config tunes the authority. Zero values fall back to the defaults above.
type Config struct {
	Name       string
	Width      int
	Height     int
	MaxPlayers int
	Speed      float64
	Countdown  time.Duration
	// Bots is the number of computer riders added when a round starts with a
	// single player.
	Bots      int
	Seed      int64
	Publisher logging.Publisher
}

func (c Config) normalized() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.MaxPlayers <= 0 || c.MaxPlayers > DefaultMaxPlayers {
		c.MaxPlayers = DefaultMaxPlayers
	}
	if c.Speed <= 0 {
		c.Speed = DefaultSpeed
	}
	if c.Countdown <= 0 {
		c.Countdown = DefaultCountdown
	}
	if c.Bots <= 0 {
		c.Bots = 1
	}
	if c.Publisher == nil {
		c.Publisher = logging.NopPublisher()
	}
	return c
}

type spawnpoint struct {
	position  arena.Point
	direction arena.Direction
}

// spawnpoints returns the eight starting slots: two facing along the
// vertical axis, two along the horizontal axis and one in each quadrant.
func spawnpoints(width, height float64) []spawnpoint {
	return []spawnpoint{
		{arena.Point{X: width / 2, Y: height / 4}, arena.DirectionUp},
		{arena.Point{X: width / 2, Y: height * 3 / 4}, arena.DirectionDown},
		{arena.Point{X: width / 4, Y: height / 2}, arena.DirectionRight},
		{arena.Point{X: width * 3 / 4, Y: height / 2}, arena.DirectionLeft},
		{arena.Point{X: width / 4, Y: height / 4}, arena.DirectionRight},
		{arena.Point{X: width / 4, Y: height * 3 / 4}, arena.DirectionRight},
		{arena.Point{X: width * 3 / 4, Y: height / 4}, arena.DirectionLeft},
		{arena.Point{X: width * 3 / 4, Y: height * 3 / 4}, arena.DirectionLeft},
	}
}

// Authority owns the authoritative arena. Every change is expressed as a
// patch batch that is applied to its own copy and returned for delivery, so
// the client receives exactly what the authority holds. It is not safe for
// concurrent use.
type Authority struct {
	cfg    Config
	arena  arena.Arena
	exists bool
	sim    *trail.Simulator
	pilots map[arena.ID]*pilot
	// order lists players, computer riders included, in join order.
	order    []arena.ID
	seq      uint64
	lastStep time.Time
	rng      *rand.Rand
}

func NewAuthority(cfg Config) *Authority {
	cfg = cfg.normalized()
	return &Authority{
		cfg: cfg,
		sim: trail.NewSimulator(trail.Config{
			Width:  float64(cfg.Width),
			Height: float64(cfg.Height),
		}),
		pilots: make(map[arena.ID]*pilot),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Arena returns the authoritative state.
func (a *Authority) Arena() (arena.Arena, bool) {
	return a.arena, a.exists
}

// List answers an arena listing request.
func (a *Authority) List() []proto.Inbound {
	list := proto.ArenaList{Arenas: []arena.Overview{}}
	if a.exists {
		overview := arena.Overview{
			ID:         a.arena.ID,
			Name:       a.arena.Name,
			MaxPlayers: a.arena.MaxPlayers,
			Started:    a.arena.Started,
			Players:    make(map[arena.ID]arena.Player, a.arena.LenPlayers()),
		}
		a.arena.EachPlayer(func(id arena.ID, p arena.Player) { overview.Players[id] = p })
		list.Arenas = append(list.Arenas, overview)
	}
	return []proto.Inbound{list}
}

// Join admits a player and returns its id together with the join
// confirmation and a full state.
func (a *Authority) Join(player arena.Player, arenaID *arena.ID) (arena.ID, []proto.Inbound, error) {
	if !a.exists {
		a.arena = arena.New(uuid.New())
		a.arena.Name = a.cfg.Name
		a.arena.Width = a.cfg.Width
		a.arena.Height = a.cfg.Height
		a.arena.MaxPlayers = a.cfg.MaxPlayers
		a.exists = true
	}
	if arenaID != nil && *arenaID != a.arena.ID {
		return arena.ID{}, nil, ErrUnknownArena
	}
	if a.arena.LenPlayers() >= a.arena.MaxPlayers {
		return arena.ID{}, nil, ErrArenaFull
	}

	id := uuid.New()
	player.ID = id
	if _, ok := arena.ParseColor(string(player.Color)); !ok {
		player.Color = arena.ColorWhite
	}
	a.arena = patch.Apply(a.arena, []patch.Op{patch.AddPlayer{ID: id, Player: player}})
	a.order = append(a.order, id)

	return id, []proto.Inbound{
		proto.ArenaJoined{ArenaID: a.arena.ID, PlayerID: id},
		proto.ArenaState{Arena: a.arena, Seq: a.seq},
	}, nil
}

// Start resets the arena and schedules a round Countdown after now. A
// running or counting-down arena refuses to start again.
func (a *Authority) Start(now time.Time) []proto.Inbound {
	if !a.exists || a.arena.Started != nil {
		return nil
	}

	ops := []patch.Op{patch.SetWinner{}}
	for _, id := range a.arena.LightcycleIDs() {
		ops = append(ops, patch.RemoveLightcycle{ID: id})
	}
	for _, id := range a.arena.LightribbonIDs() {
		ops = append(ops, patch.RemoveLightribbon{ID: id})
	}
	a.sim.Clear()

	if a.arena.LenPlayers() == 1 {
		for i := 0; i < a.cfg.Bots && len(a.order) < a.cfg.MaxPlayers; i++ {
			id := uuid.New()
			ops = append(ops, patch.AddPlayer{ID: id, Player: arena.Player{ID: id, Name: botName(i), Color: a.freeColor(ops)}})
			a.pilots[id] = newPilot(id, a.rng)
			a.order = append(a.order, id)
		}
	}
	riders := a.order

	slots := spawnpoints(float64(a.cfg.Width), float64(a.cfg.Height))
	perm := a.rng.Perm(len(slots))
	for i, id := range riders {
		if i >= len(slots) {
			break
		}
		spawn := slots[perm[i]]
		bike := a.sim.Spawn(id, spawn.position, spawn.direction, a.cfg.Speed)
		ops = append(ops,
			patch.AddLightcycle{ID: id, Lightcycle: bike.Lightcycle()},
			patch.AddLightribbon{ID: id, Lightribbon: bike.Lightribbon()},
		)
	}

	startAt := now.Add(a.cfg.Countdown)
	ops = append(ops, patch.Start{At: startAt})
	a.lastStep = startAt
	return []proto.Inbound{a.emit(ops)}
}

// Turn steers id. Turns are refused outside a live round, for dead or
// unknown riders and for reversals.
func (a *Authority) Turn(id arena.ID, dir arena.Direction, now time.Time) []proto.Inbound {
	if !a.exists || !a.arena.Running(now) {
		return nil
	}
	ops := a.turnOps(id, dir)
	if len(ops) == 0 {
		return nil
	}
	return []proto.Inbound{a.emit(ops)}
}

func (a *Authority) turnOps(id arena.ID, dir arena.Direction) []patch.Op {
	bike, ok := a.sim.Bike(id)
	if !ok {
		return nil
	}
	position := bike.Position
	if !a.sim.Turn(id, dir) {
		return nil
	}
	return []patch.Op{
		patch.UpdateLightribbonAppendPoint{ID: id, Point: position},
		patch.UpdateLightcycleDirection{ID: id, Direction: dir},
	}
}

// Step advances a live round to now and returns the resulting batch.
func (a *Authority) Step(ctx context.Context, now time.Time) []proto.Inbound {
	if !a.exists || !a.arena.Running(now) {
		return nil
	}
	if a.lastStep.Before(*a.arena.Started) {
		a.lastStep = *a.arena.Started
	}
	dt := now.Sub(a.lastStep).Seconds()
	if dt <= 0 {
		return nil
	}
	a.lastStep = now

	var ops []patch.Op
	for _, id := range a.arena.LightcycleIDs() {
		p, ok := a.pilots[id]
		if !ok {
			continue
		}
		if dir, turn := p.decide(a.sim, a.arena); turn {
			ops = append(ops, a.turnOps(id, dir)...)
		}
	}

	for _, death := range a.sim.Step(dt) {
		var targets []logging.EntityRef
		if death.Cause == trail.CauseCollision {
			targets = []logging.EntityRef{logging.Ref(logging.EntityKindLightcycle, death.Owner)}
		}
		simulation.BikeCrashed(ctx, a.cfg.Publisher, logging.Ref(logging.EntityKindLightcycle, death.ID), targets, simulation.BikeCrashedPayload{
			X:     death.Position.X,
			Y:     death.Position.Y,
			Cause: death.Cause,
		}, nil)
	}

	for _, bike := range a.sim.Bikes() {
		cycle, ok := a.arena.Lightcycle(bike.ID)
		if !ok || cycle.Dead {
			continue
		}
		ops = append(ops,
			patch.UpdateLightcyclePosition{ID: bike.ID, Position: bike.Position},
			patch.UpdateLightribbonReplaceLatestPoint{ID: bike.ID, Point: bike.Position},
		)
		if !bike.Alive() {
			ops = append(ops, patch.UpdateLightcycleApplyDeath{ID: bike.ID})
		}
	}

	ops = append(ops, a.settle(ctx)...)
	if len(ops) == 0 {
		return nil
	}
	return []proto.Inbound{a.emit(ops)}
}

// settle declares a winner once a single rider of several remains and ends
// the round when nobody is left.
func (a *Authority) settle(ctx context.Context) []patch.Op {
	riders := a.sim.Bikes()
	alive := a.sim.Alive()
	var ops []patch.Op
	if a.arena.Winner == nil && len(riders) > 1 && alive == 1 {
		for _, bike := range riders {
			if bike.Alive() {
				winner := bike.ID
				ops = append(ops, patch.SetWinner{ID: &winner})
				simulation.RoundSettled(ctx, a.cfg.Publisher, logging.Ref(logging.EntityKindArena, a.arena.ID), simulation.RoundSettledPayload{
					Winner: winner.String(),
					Riders: len(riders),
				}, nil)
			}
		}
	}
	if alive == 0 {
		if a.arena.Winner == nil {
			simulation.RoundSettled(ctx, a.cfg.Publisher, logging.Ref(logging.EntityKindArena, a.arena.ID), simulation.RoundSettledPayload{Riders: len(riders)}, nil)
		}
		ops = append(ops, patch.End{})
	}
	return ops
}

// Snapshot returns the full state as the server would send it on resync.
func (a *Authority) Snapshot() []proto.Inbound {
	if !a.exists {
		return nil
	}
	return []proto.Inbound{proto.ArenaState{Arena: a.arena, Seq: a.seq}}
}

func (a *Authority) emit(ops []patch.Op) proto.ArenaStatePatch {
	a.seq++
	a.arena = patch.Apply(a.arena, ops)
	return proto.ArenaStatePatch{Seq: a.seq, Ops: ops}
}

// freeColor picks the first palette colour not used by a current player or
// by a player added in pending.
func (a *Authority) freeColor(pending []patch.Op) arena.Color {
	used := make(map[arena.Color]bool)
	a.arena.EachPlayer(func(_ arena.ID, p arena.Player) { used[p.Color] = true })
	for _, op := range pending {
		if add, ok := op.(patch.AddPlayer); ok {
			used[add.Player.Color] = true
		}
	}
	for _, c := range arena.Colors {
		if !used[c] {
			return c
		}
	}
	return arena.ColorWhite
}

func botName(i int) string {
	names := []string{"Rinzler", "Clu", "Sark", "Tesler", "Gibbs", "Dumont", "Yori"}
	return names[i%len(names)]
}
