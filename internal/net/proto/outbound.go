package proto

import (
	"encoding/json"
	"fmt"

	"webtron/client/internal/arena"
)

// Outbound message tags.
const (
	TypeGetArenaList = "GetArenaList"
	TypeJoin         = "Join"
	TypeStart        = "Start"
	TypeTurn         = "Turn"
)

// Outbound is an intent sent to the server.
type Outbound interface {
	OutboundTag() string
}

// GetArenaList requests the lobby listing.
type GetArenaList struct{}

// Join asks to enter ArenaID, or a fresh arena when it is nil.
type Join struct {
	Player  arena.Player `json:"player"`
	ArenaID *arena.ID    `json:"arena_id"`
}

// Start asks the server to begin a round.
type Start struct{}

// Turn asks the server to steer the local lightcycle.
type Turn struct {
	Direction arena.Direction
}

func (GetArenaList) OutboundTag() string { return TypeGetArenaList }
func (Join) OutboundTag() string         { return TypeJoin }
func (Start) OutboundTag() string        { return TypeStart }
func (Turn) OutboundTag() string         { return TypeTurn }

type joinPlayer struct {
	Name  string      `json:"name"`
	Color arena.Color `json:"color"`
}

// EncodeOutbound renders an intent as a text frame payload.
func EncodeOutbound(msg Outbound) ([]byte, error) {
	switch m := msg.(type) {
	case GetArenaList:
		return json.Marshal(map[string]any{TypeGetArenaList: nil})
	case Join:
		color := m.Player.Color
		if color == "" {
			color = arena.ColorWhite
		}
		body := struct {
			Player  joinPlayer `json:"player"`
			ArenaID *arena.ID  `json:"arena_id"`
		}{
			Player:  joinPlayer{Name: m.Player.Name, Color: color},
			ArenaID: m.ArenaID,
		}
		return json.Marshal(map[string]any{TypeJoin: body})
	case Start:
		return json.Marshal(map[string]any{TypeStart: nil})
	case Turn:
		if !m.Direction.Valid() {
			return nil, fmt.Errorf("encode turn: invalid direction %q", m.Direction)
		}
		return json.Marshal(map[string]any{TypeTurn: m.Direction})
	default:
		return nil, fmt.Errorf("encode outbound: unsupported message %T", msg)
	}
}

// DecodeOutbound parses an intent. It is used by the local practice
// authority.
func DecodeOutbound(data []byte) (Outbound, error) {
	tag, payload, err := splitTagged(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TypeGetArenaList:
		return GetArenaList{}, nil
	case TypeStart:
		return Start{}, nil
	case TypeJoin:
		var join Join
		if err := json.Unmarshal(payload, &join); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		return join, nil
	case TypeTurn:
		var turn Turn
		if err := json.Unmarshal(payload, &turn.Direction); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		return turn, nil
	default:
		return nil, fmt.Errorf("decode outbound: unknown tag %q", tag)
	}
}
