package arena

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Document is the server's JSON shape of an arena.
type Document struct {
	ID           ID                 `json:"id"`
	Name         string             `json:"name"`
	Width        float64            `json:"width"`
	Height       float64            `json:"height"`
	MaxPlayers   int                `json:"max_players"`
	Started      *time.Time         `json:"started"`
	Winner       *ID                `json:"winner"`
	Players      map[ID]Player      `json:"players"`
	Lightcycles  map[ID]Lightcycle  `json:"lightcycles"`
	Lightribbons map[ID]Lightribbon `json:"lightribbons"`
	Trails       map[ID]Lightribbon `json:"trails,omitempty"`
}

// MarshalJSON renders the server's arena object shape.
func (a Arena) MarshalJSON() ([]byte, error) {
	wire := Document{
		ID:           a.ID,
		Name:         a.Name,
		Width:        float64(a.Width),
		Height:       float64(a.Height),
		MaxPlayers:   a.MaxPlayers,
		Started:      a.Started,
		Winner:       a.Winner,
		Players:      make(map[ID]Player, a.LenPlayers()),
		Lightcycles:  make(map[ID]Lightcycle, a.LenLightcycles()),
		Lightribbons: make(map[ID]Lightribbon, a.LenLightribbons()),
	}
	a.EachPlayer(func(id ID, p Player) { wire.Players[id] = p })
	a.EachLightcycle(func(id ID, c Lightcycle) { wire.Lightcycles[id] = c })
	a.EachLightribbon(func(id ID, r Lightribbon) { wire.Lightribbons[id] = r })
	return json.Marshal(wire)
}

// UnmarshalJSON accepts the server's arena object. Fractional dimensions are
// rounded; "trails" is read as an alias for "lightribbons".
func (a *Arena) UnmarshalJSON(data []byte) error {
	var wire Document
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode arena: %w", err)
	}
	next := New(wire.ID)
	next.Name = wire.Name
	next.Width = int(math.Round(wire.Width))
	next.Height = int(math.Round(wire.Height))
	next.MaxPlayers = wire.MaxPlayers
	next.Started = wire.Started
	next.Winner = wire.Winner
	for id, p := range wire.Players {
		next = next.WithPlayer(id, p)
	}
	for id, c := range wire.Lightcycles {
		next = next.WithLightcycle(id, c)
	}
	for id, r := range wire.Trails {
		next = next.WithLightribbon(id, r)
	}
	for id, r := range wire.Lightribbons {
		next = next.WithLightribbon(id, r)
	}
	*a = next
	return nil
}
