// Package arena holds the client-side mirror of a server-owned arena.
//
// Arena values are immutable: every setter returns a new Arena that shares
// the collections it did not touch with its parent.
package arena

import (
	"bytes"
	"slices"
	"sort"
	"time"

	"github.com/benbjohnson/immutable"
	"github.com/google/uuid"
)

// ID identifies arenas and the players, lightcycles and lightribbons inside
// them. Per-player entities share the owning player's id.
type ID = uuid.UUID

// Player describes a participant as announced by the server.
type Player struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// Lightcycle carries the last authoritative kinematic state of a bike.
type Lightcycle struct {
	Position  Point     `json:"position"`
	Direction Direction `json:"direction"`
	Speed     float64   `json:"speed"`
	Dead      bool      `json:"dead"`
}

// Lightribbon is the polyline traced by a lightcycle. The final point is the
// live end while the owner is alive.
type Lightribbon struct {
	Points []Point `json:"points"`
}

// Latest returns the live end of the ribbon.
func (r Lightribbon) Latest() (Point, bool) {
	if len(r.Points) == 0 {
		return Point{}, false
	}
	return r.Points[len(r.Points)-1], true
}

// Append returns a ribbon with p added. The receiver's backing array is never
// written.
func (r Lightribbon) Append(p Point) Lightribbon {
	return Lightribbon{Points: append(slices.Clip(r.Points), p)}
}

// ReplaceLatest returns a ribbon whose final point is p. An empty ribbon
// gains p as its only point.
func (r Lightribbon) ReplaceLatest(p Point) Lightribbon {
	if len(r.Points) == 0 {
		return Lightribbon{Points: []Point{p}}
	}
	points := make([]Point, len(r.Points))
	copy(points, r.Points)
	points[len(points)-1] = p
	return Lightribbon{Points: points}
}

var (
	emptyPlayers      = immutable.NewMap[ID, Player](IDHasher{})
	emptyLightcycles  = immutable.NewMap[ID, Lightcycle](IDHasher{})
	emptyLightribbons = immutable.NewMap[ID, Lightribbon](IDHasher{})
)

// Arena is the root aggregate for one game session. The zero value is a
// valid empty arena.
type Arena struct {
	ID         ID
	Name       string
	Width      int
	Height     int
	MaxPlayers int
	Started    *time.Time
	Winner     *ID

	players      *immutable.Map[ID, Player]
	lightcycles  *immutable.Map[ID, Lightcycle]
	lightribbons *immutable.Map[ID, Lightribbon]
}

// New returns an empty arena tagged with id.
func New(id ID) Arena {
	return Arena{
		ID:           id,
		players:      emptyPlayers,
		lightcycles:  emptyLightcycles,
		lightribbons: emptyLightribbons,
	}
}

func (a Arena) playerMap() *immutable.Map[ID, Player] {
	if a.players == nil {
		return emptyPlayers
	}
	return a.players
}

func (a Arena) lightcycleMap() *immutable.Map[ID, Lightcycle] {
	if a.lightcycles == nil {
		return emptyLightcycles
	}
	return a.lightcycles
}

func (a Arena) lightribbonMap() *immutable.Map[ID, Lightribbon] {
	if a.lightribbons == nil {
		return emptyLightribbons
	}
	return a.lightribbons
}

// Normalize replaces nil collections with shared empty ones.
func (a Arena) Normalize() Arena {
	a.players = a.playerMap()
	a.lightcycles = a.lightcycleMap()
	a.lightribbons = a.lightribbonMap()
	return a
}

// Running reports whether the round has a start instant that is not after now.
func (a Arena) Running(now time.Time) bool {
	return a.Started != nil && !now.Before(*a.Started)
}

func (a Arena) Player(id ID) (Player, bool) {
	return a.playerMap().Get(id)
}

func (a Arena) Lightcycle(id ID) (Lightcycle, bool) {
	return a.lightcycleMap().Get(id)
}

func (a Arena) Lightribbon(id ID) (Lightribbon, bool) {
	return a.lightribbonMap().Get(id)
}

func (a Arena) LenPlayers() int      { return a.playerMap().Len() }
func (a Arena) LenLightcycles() int  { return a.lightcycleMap().Len() }
func (a Arena) LenLightribbons() int { return a.lightribbonMap().Len() }

func (a Arena) WithPlayer(id ID, p Player) Arena {
	a.players = a.playerMap().Set(id, p)
	return a
}

func (a Arena) WithLightcycle(id ID, c Lightcycle) Arena {
	a.lightcycles = a.lightcycleMap().Set(id, c)
	return a
}

func (a Arena) WithLightribbon(id ID, r Lightribbon) Arena {
	a.lightribbons = a.lightribbonMap().Set(id, r)
	return a
}

// WithoutPlayer removes id. The receiver is returned untouched when id is
// absent.
func (a Arena) WithoutPlayer(id ID) Arena {
	if _, ok := a.playerMap().Get(id); !ok {
		return a
	}
	a.players = a.playerMap().Delete(id)
	return a
}

func (a Arena) WithoutLightcycle(id ID) Arena {
	if _, ok := a.lightcycleMap().Get(id); !ok {
		return a
	}
	a.lightcycles = a.lightcycleMap().Delete(id)
	return a
}

func (a Arena) WithoutLightribbon(id ID) Arena {
	if _, ok := a.lightribbonMap().Get(id); !ok {
		return a
	}
	a.lightribbons = a.lightribbonMap().Delete(id)
	return a
}

// EachPlayer visits players in unspecified order.
func (a Arena) EachPlayer(fn func(ID, Player)) {
	itr := a.playerMap().Iterator()
	for !itr.Done() {
		id, p, _ := itr.Next()
		fn(id, p)
	}
}

// EachLightcycle visits lightcycles in unspecified order.
func (a Arena) EachLightcycle(fn func(ID, Lightcycle)) {
	itr := a.lightcycleMap().Iterator()
	for !itr.Done() {
		id, c, _ := itr.Next()
		fn(id, c)
	}
}

// EachLightribbon visits lightribbons in unspecified order.
func (a Arena) EachLightribbon(fn func(ID, Lightribbon)) {
	itr := a.lightribbonMap().Iterator()
	for !itr.Done() {
		id, r, _ := itr.Next()
		fn(id, r)
	}
}

func (a Arena) PlayerIDs() []ID {
	ids := make([]ID, 0, a.LenPlayers())
	a.EachPlayer(func(id ID, _ Player) { ids = append(ids, id) })
	return sortIDs(ids)
}

func (a Arena) LightcycleIDs() []ID {
	ids := make([]ID, 0, a.LenLightcycles())
	a.EachLightcycle(func(id ID, _ Lightcycle) { ids = append(ids, id) })
	return sortIDs(ids)
}

func (a Arena) LightribbonIDs() []ID {
	ids := make([]ID, 0, a.LenLightribbons())
	a.EachLightribbon(func(id ID, _ Lightribbon) { ids = append(ids, id) })
	return sortIDs(ids)
}

func sortIDs(ids []ID) []ID {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// Identical reports whether b is the same version of the aggregate as a:
// equal scalars and the very same collection instances.
func (a Arena) Identical(b Arena) bool {
	return a.sameScalars(b) &&
		a.playerMap() == b.playerMap() &&
		a.lightcycleMap() == b.lightcycleMap() &&
		a.lightribbonMap() == b.lightribbonMap()
}

// Equal reports deep equality.
func (a Arena) Equal(b Arena) bool {
	if !a.sameScalars(b) {
		return false
	}
	if a.LenPlayers() != b.LenPlayers() || a.LenLightcycles() != b.LenLightcycles() || a.LenLightribbons() != b.LenLightribbons() {
		return false
	}
	equal := true
	a.EachPlayer(func(id ID, p Player) {
		if other, ok := b.Player(id); !ok || other != p {
			equal = false
		}
	})
	a.EachLightcycle(func(id ID, c Lightcycle) {
		if other, ok := b.Lightcycle(id); !ok || other != c {
			equal = false
		}
	})
	a.EachLightribbon(func(id ID, r Lightribbon) {
		if other, ok := b.Lightribbon(id); !ok || !slices.Equal(other.Points, r.Points) {
			equal = false
		}
	})
	return equal
}

func (a Arena) sameScalars(b Arena) bool {
	if a.ID != b.ID || a.Name != b.Name || a.Width != b.Width || a.Height != b.Height || a.MaxPlayers != b.MaxPlayers {
		return false
	}
	switch {
	case a.Started == nil && b.Started == nil:
	case a.Started == nil || b.Started == nil:
		return false
	case !a.Started.Equal(*b.Started):
		return false
	}
	switch {
	case a.Winner == nil && b.Winner == nil:
		return true
	case a.Winner == nil || b.Winner == nil:
		return false
	default:
		return *a.Winner == *b.Winner
	}
}

// Overview is a lobby listing entry.
type Overview struct {
	ID         ID            `json:"id"`
	Name       string        `json:"name"`
	MaxPlayers int           `json:"max_players"`
	Started    *time.Time    `json:"started"`
	Players    map[ID]Player `json:"players"`
}
