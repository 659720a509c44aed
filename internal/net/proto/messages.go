// Package proto converts between websocket text frames and typed messages.
//
// Every frame is an externally tagged union: either a bare string naming a
// unit variant or an object with exactly one key whose value is the payload.
package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"webtron/client/internal/arena"
	"webtron/client/internal/patch"
)

// Inbound message tags.
const (
	TypeArenaList       = "ArenaList"
	TypeArenaJoined     = "ArenaJoined"
	TypeArenaState      = "ArenaState"
	TypeArenaStatePatch = "ArenaStatePatch"
)

var (
	// ErrEmptyFrame is returned for frames without content.
	ErrEmptyFrame = errors.New("proto: empty frame")
	// ErrNotTagged is returned when a frame is not a single-key union.
	ErrNotTagged = errors.New("proto: frame is not a tagged union")
)

// Inbound is a message received from the server.
type Inbound interface {
	Tag() string
}

// ArenaList carries the lobby listing.
type ArenaList struct {
	Arenas []arena.Overview `json:"arenas"`
}

// ArenaJoined confirms that the local player entered an arena.
type ArenaJoined struct {
	ArenaID  arena.ID `json:"arena_id"`
	PlayerID arena.ID `json:"player_id"`
}

// ArenaState carries a full snapshot. Seq is the patch sequence number the
// snapshot corresponds to, zero when the server does not sequence batches.
type ArenaState struct {
	Arena arena.Arena `json:"arena"`
	Seq   uint64      `json:"seq,omitempty"`
}

// ArenaStatePatch carries an ordered batch of delta operations. Malformed
// counts operations whose payload could not be decoded; they are present in
// Ops as patch.Unknown.
type ArenaStatePatch struct {
	Seq       uint64     `json:"seq,omitempty"`
	Ops       []patch.Op `json:"-"`
	Malformed int        `json:"-"`
}

// UnknownMessage is any frame whose tag is not recognised.
type UnknownMessage struct {
	Type    string
	Payload json.RawMessage
}

func (ArenaList) Tag() string       { return TypeArenaList }
func (ArenaJoined) Tag() string     { return TypeArenaJoined }
func (ArenaState) Tag() string      { return TypeArenaState }
func (ArenaStatePatch) Tag() string { return TypeArenaStatePatch }
func (m UnknownMessage) Tag() string {
	return m.Type
}

// splitTagged returns the tag and payload of a tagged union value. Unit
// variants yield a nil payload.
func splitTagged(data []byte) (string, json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", nil, ErrEmptyFrame
	}
	switch trimmed[0] {
	case '"':
		var tag string
		if err := json.Unmarshal(trimmed, &tag); err != nil {
			return "", nil, fmt.Errorf("decode unit tag: %w", err)
		}
		return tag, nil, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return "", nil, fmt.Errorf("decode tagged object: %w", err)
		}
		if len(fields) != 1 {
			return "", nil, fmt.Errorf("%w: %d keys", ErrNotTagged, len(fields))
		}
		for tag, payload := range fields {
			return tag, payload, nil
		}
	}
	return "", nil, ErrNotTagged
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodePair decodes a two element JSON array into a and b.
func decodePair(raw json.RawMessage, a, b any) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("expected 2 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], a); err != nil {
		return err
	}
	return json.Unmarshal(parts[1], b)
}

// DecodeInbound converts a raw frame into a typed message. Unknown tags are
// returned as UnknownMessage without error.
func DecodeInbound(data []byte) (Inbound, error) {
	tag, payload, err := splitTagged(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case TypeArenaList:
		var list ArenaList
		if !isNull(payload) {
			if err := json.Unmarshal(payload, &list.Arenas); err != nil {
				return nil, fmt.Errorf("decode %s: %w", tag, err)
			}
		}
		return list, nil
	case TypeArenaJoined:
		var joined ArenaJoined
		if err := decodePair(payload, &joined.ArenaID, &joined.PlayerID); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		return joined, nil
	case TypeArenaState:
		var state ArenaState
		if isNull(payload) {
			return nil, fmt.Errorf("decode %s: missing arena", tag)
		}
		if err := json.Unmarshal(payload, &state.Arena); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		var seq struct {
			Seq uint64 `json:"seq"`
		}
		if err := json.Unmarshal(payload, &seq); err == nil {
			state.Seq = seq.Seq
		}
		return state, nil
	case TypeArenaStatePatch:
		return decodePatch(payload)
	default:
		return UnknownMessage{Type: tag, Payload: payload}, nil
	}
}

// decodePatch accepts either a bare op array or {"seq": N, "ops": [...]}.
func decodePatch(payload json.RawMessage) (ArenaStatePatch, error) {
	var batch ArenaStatePatch
	if isNull(payload) {
		return batch, nil
	}

	var rawOps []json.RawMessage
	trimmed := bytes.TrimSpace(payload)
	if trimmed[0] == '{' {
		var envelope struct {
			Seq uint64            `json:"seq"`
			Ops []json.RawMessage `json:"ops"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return batch, fmt.Errorf("decode %s: %w", TypeArenaStatePatch, err)
		}
		batch.Seq = envelope.Seq
		rawOps = envelope.Ops
	} else if err := json.Unmarshal(trimmed, &rawOps); err != nil {
		return batch, fmt.Errorf("decode %s: %w", TypeArenaStatePatch, err)
	}

	batch.Ops = make([]patch.Op, 0, len(rawOps))
	for _, raw := range rawOps {
		op, err := DecodeOp(raw)
		if err != nil {
			batch.Malformed++
		}
		batch.Ops = append(batch.Ops, op)
	}
	return batch, nil
}

// EncodeInbound renders a server message. It is used by the local practice
// authority and tests.
func EncodeInbound(msg Inbound) ([]byte, error) {
	switch m := msg.(type) {
	case ArenaList:
		arenas := m.Arenas
		if arenas == nil {
			arenas = []arena.Overview{}
		}
		return json.Marshal(map[string]any{TypeArenaList: arenas})
	case ArenaJoined:
		return json.Marshal(map[string]any{TypeArenaJoined: [2]arena.ID{m.ArenaID, m.PlayerID}})
	case ArenaState:
		if m.Seq == 0 {
			return json.Marshal(map[string]any{TypeArenaState: m.Arena})
		}
		body, err := json.Marshal(m.Arena)
		if err != nil {
			return nil, err
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, err
		}
		fields["seq"], _ = json.Marshal(m.Seq)
		return json.Marshal(map[string]any{TypeArenaState: fields})
	case ArenaStatePatch:
		ops := make([]json.RawMessage, 0, len(m.Ops))
		for _, op := range m.Ops {
			raw, err := EncodeOp(op)
			if err != nil {
				return nil, err
			}
			ops = append(ops, raw)
		}
		if m.Seq == 0 {
			return json.Marshal(map[string]any{TypeArenaStatePatch: ops})
		}
		return json.Marshal(map[string]any{TypeArenaStatePatch: map[string]any{"seq": m.Seq, "ops": ops}})
	case UnknownMessage:
		if m.Payload == nil {
			return json.Marshal(m.Type)
		}
		return json.Marshal(map[string]json.RawMessage{m.Type: m.Payload})
	default:
		return nil, fmt.Errorf("encode inbound: unsupported message %T", msg)
	}
}
