package snapshot

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"webtron/client/internal/arena"
)

func TestJoinedReturnsEmptyShell(t *testing.T) {
	id := uuid.New()
	shell := Joined(id)

	if shell.ID != id {
		t.Fatalf("expected shell id %s, got %s", id, shell.ID)
	}
	if shell.Started != nil || shell.Winner != nil {
		t.Fatalf("expected no start and no winner")
	}
	if shell.Width != 0 || shell.Height != 0 || shell.MaxPlayers != 0 {
		t.Fatalf("expected zeroed dimensions, got %dx%d max=%d", shell.Width, shell.Height, shell.MaxPlayers)
	}
	if shell.LenPlayers()+shell.LenLightcycles()+shell.LenLightribbons() != 0 {
		t.Fatalf("expected empty collections")
	}
}

func TestReplaceDoesNotMerge(t *testing.T) {
	previous := arena.New(uuid.New())
	for i := 0; i < 3; i++ {
		id := uuid.New()
		previous = previous.WithPlayer(id, arena.Player{ID: id, Name: "p"})
	}

	keep := uuid.New()
	started := time.Now()
	full := arena.New(uuid.New()).WithPlayer(keep, arena.Player{ID: keep, Name: "solo"})
	full.Width, full.Height = 560, 560
	full.Started = &started

	next := Replace(full)
	if next.LenPlayers() != 1 {
		t.Fatalf("expected exactly 1 player after replace, got %d", next.LenPlayers())
	}
	if _, ok := next.Player(keep); !ok {
		t.Fatalf("expected replacement player to be present")
	}
	if !next.Equal(full) {
		t.Fatalf("expected replacement to be verbatim")
	}
}

func TestReplaceNormalizesZeroValue(t *testing.T) {
	next := Replace(arena.Arena{})
	if next.LenPlayers() != 0 {
		t.Fatalf("expected empty players")
	}
	next = next.WithLightcycle(uuid.New(), arena.Lightcycle{})
	if next.LenLightcycles() != 1 {
		t.Fatalf("expected normalized arena to accept inserts")
	}
}
