package proto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"webtron/client/internal/arena"
	"webtron/client/internal/patch"
)

func TestDecodeInboundArenaJoined(t *testing.T) {
	arenaID, playerID := uuid.New(), uuid.New()
	frame := `{"ArenaJoined":["` + arenaID.String() + `","` + playerID.String() + `"]}`

	msg, err := DecodeInbound([]byte(frame))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	joined, ok := msg.(ArenaJoined)
	if !ok {
		t.Fatalf("expected ArenaJoined, got %T", msg)
	}
	if joined.ArenaID != arenaID || joined.PlayerID != playerID {
		t.Fatalf("unexpected ids: %+v", joined)
	}
}

func TestDecodeInboundArenaList(t *testing.T) {
	open, running := uuid.New(), uuid.New()
	frame := `{"ArenaList":[` +
		`{"id":"` + open.String() + `","name":"Arena","max_players":8,"started":null,"players":{}},` +
		`{"id":"` + running.String() + `","name":"Busy","max_players":4,"started":"2024-05-01T10:00:01.5Z","players":{}}]}`

	msg, err := DecodeInbound([]byte(frame))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	list := msg.(ArenaList)
	if len(list.Arenas) != 2 {
		t.Fatalf("expected 2 arenas, got %+v", list.Arenas)
	}
	first, second := list.Arenas[0], list.Arenas[1]
	if first.ID != open || first.MaxPlayers != 8 || first.Started != nil {
		t.Fatalf("unexpected open arena: %+v", first)
	}
	want := time.Date(2024, 5, 1, 10, 0, 1, 500_000_000, time.UTC)
	if second.ID != running || second.Started == nil || !second.Started.Equal(want) {
		t.Fatalf("expected started at %v, got %+v", want, second)
	}
}

func TestDecodeInboundArenaStateWithSeq(t *testing.T) {
	id := uuid.New()
	frame := `{"ArenaState":{"id":"` + id.String() + `","name":"A","width":560.0,"height":560.0,"max_players":8,` +
		`"started":null,"winner":null,"players":{},"lightcycles":{},"lightribbons":{},"seq":12}}`

	msg, err := DecodeInbound([]byte(frame))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	state := msg.(ArenaState)
	if state.Seq != 12 {
		t.Fatalf("expected seq 12, got %d", state.Seq)
	}
	if state.Arena.ID != id || state.Arena.Width != 560 {
		t.Fatalf("unexpected arena: id=%s width=%d", state.Arena.ID, state.Arena.Width)
	}
}

func TestDecodeInboundPatchForms(t *testing.T) {
	cycle := uuid.New()
	op := `{"UpdateLightcycleApplyDeath":"` + cycle.String() + `"}`

	t.Run("bare array", func(t *testing.T) {
		msg, err := DecodeInbound([]byte(`{"ArenaStatePatch":[` + op + `,"End"]}`))
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		batch := msg.(ArenaStatePatch)
		if batch.Seq != 0 || len(batch.Ops) != 2 {
			t.Fatalf("unexpected batch: %+v", batch)
		}
		if death, ok := batch.Ops[0].(patch.UpdateLightcycleApplyDeath); !ok || death.ID != cycle {
			t.Fatalf("expected death op for %s, got %#v", cycle, batch.Ops[0])
		}
		if _, ok := batch.Ops[1].(patch.End); !ok {
			t.Fatalf("expected End, got %#v", batch.Ops[1])
		}
	})

	t.Run("sequenced envelope", func(t *testing.T) {
		msg, err := DecodeInbound([]byte(`{"ArenaStatePatch":{"seq":7,"ops":[` + op + `]}}`))
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		batch := msg.(ArenaStatePatch)
		if batch.Seq != 7 || len(batch.Ops) != 1 {
			t.Fatalf("unexpected batch: %+v", batch)
		}
	})

	t.Run("malformed op kept as unknown", func(t *testing.T) {
		msg, err := DecodeInbound([]byte(`{"ArenaStatePatch":[{"UpdateLightcyclePosition":"oops"},{"Teleport":1}]}`))
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		batch := msg.(ArenaStatePatch)
		if batch.Malformed != 1 {
			t.Fatalf("expected 1 malformed op, got %d", batch.Malformed)
		}
		for i, op := range batch.Ops {
			if op.Kind() != patch.KindUnknown {
				t.Fatalf("expected op %d to be unknown, got %s", i, op.Kind())
			}
		}
	})
}

func TestDecodeInboundUnknownAndErrors(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"Chat":"hi"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Tag() != "Chat" {
		t.Fatalf("expected unknown message tag Chat, got %s", msg.Tag())
	}

	if _, err := DecodeInbound([]byte("   ")); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
	if _, err := DecodeInbound([]byte(`{"A":1,"B":2}`)); !errors.Is(err, ErrNotTagged) {
		t.Fatalf("expected ErrNotTagged, got %v", err)
	}
	if _, err := DecodeInbound([]byte(`[1,2]`)); !errors.Is(err, ErrNotTagged) {
		t.Fatalf("expected ErrNotTagged for array frame, got %v", err)
	}
}

func TestDecodeOpLegacyTrailNames(t *testing.T) {
	id := uuid.New()
	op, err := DecodeOp(json.RawMessage(`{"UpdateTrailAppendPoint":["` + id.String() + `",[3,4]]}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	appendOp, ok := op.(patch.UpdateLightribbonAppendPoint)
	if !ok {
		t.Fatalf("expected append op, got %T", op)
	}
	if appendOp.ID != id || appendOp.Point != (arena.Point{X: 3, Y: 4}) {
		t.Fatalf("unexpected op: %+v", appendOp)
	}
}

func TestDecodeOpSetWinner(t *testing.T) {
	op, err := DecodeOp(json.RawMessage(`{"SetWinner":null}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if winner := op.(patch.SetWinner); winner.ID != nil {
		t.Fatalf("expected cleared winner, got %v", *winner.ID)
	}

	id := uuid.New()
	op, err = DecodeOp(json.RawMessage(`{"SetWinner":"` + id.String() + `"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if winner := op.(patch.SetWinner); winner.ID == nil || *winner.ID != id {
		t.Fatalf("expected winner %s, got %+v", id, winner)
	}
}

func TestEncodeOpMatchesDecode(t *testing.T) {
	id := uuid.New()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ops := []patch.Op{
		patch.AddLightcycle{ID: id, Lightcycle: arena.Lightcycle{Position: arena.Point{X: 1, Y: 2}, Direction: arena.DirectionLeft, Speed: 55}},
		patch.AddLightribbon{ID: id, Lightribbon: arena.Lightribbon{Points: []arena.Point{{X: 1, Y: 2}, {X: 1, Y: 2}}}},
		patch.Start{At: at},
		patch.UpdateLightcycleDirection{ID: id, Direction: arena.DirectionUp},
		patch.UpdateLightribbonReplaceLatestPoint{ID: id, Point: arena.Point{X: 5, Y: 2}},
		patch.RemovePlayer{ID: id},
		patch.End{},
	}
	for _, op := range ops {
		t.Run(string(op.Kind()), func(t *testing.T) {
			raw, err := EncodeOp(op)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			decoded, err := DecodeOp(raw)
			if err != nil {
				t.Fatalf("decode of %s failed: %v", raw, err)
			}
			if decoded.Kind() != op.Kind() {
				t.Fatalf("expected kind %s, got %s", op.Kind(), decoded.Kind())
			}
		})
	}
}

func TestEncodeOutboundWireShapes(t *testing.T) {
	arenaID := uuid.MustParse("6a3b1e2c-0000-4000-8000-000000000001")
	cases := []struct {
		name string
		msg  Outbound
		want string
	}{
		{"list", GetArenaList{}, `{"GetArenaList":null}`},
		{"start", Start{}, `{"Start":null}`},
		{"turn", Turn{Direction: arena.DirectionLeft}, `{"Turn":"left"}`},
		{"join new", Join{Player: arena.Player{Name: "ann", Color: arena.ColorBlue}}, `{"Join":{"player":{"name":"ann","color":"blue"},"arena_id":null}}`},
		{"join existing", Join{Player: arena.Player{Name: "bo"}, ArenaID: &arenaID}, `{"Join":{"player":{"name":"bo","color":"white"},"arena_id":"6a3b1e2c-0000-4000-8000-000000000001"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EncodeOutbound(tc.msg)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}

	if _, err := EncodeOutbound(Turn{Direction: "sideways"}); err == nil {
		t.Fatalf("expected invalid direction to be rejected")
	}
}

func TestDecodeOutbound(t *testing.T) {
	msg, err := DecodeOutbound([]byte(`{"Turn":"up"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if turn := msg.(Turn); turn.Direction != arena.DirectionUp {
		t.Fatalf("expected up, got %s", turn.Direction)
	}

	msg, err = DecodeOutbound([]byte(`{"Join":{"player":{"name":"ann","color":"red"},"arena_id":null}}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	join := msg.(Join)
	if join.Player.Name != "ann" || join.Player.Color != arena.ColorRed || join.ArenaID != nil {
		t.Fatalf("unexpected join: %+v", join)
	}

	if _, err := DecodeOutbound([]byte(`"Start"`)); err != nil {
		t.Fatalf("expected unit Start to decode, got %v", err)
	}
}
