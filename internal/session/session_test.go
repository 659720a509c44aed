package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"webtron/client/internal/arena"
	"webtron/client/internal/journal"
	"webtron/client/internal/net/proto"
	"webtron/client/internal/patch"
	"webtron/client/internal/telemetry"
	"webtron/client/logging"
	"webtron/client/logging/lifecycle"
	"webtron/client/logging/replication"
	"webtron/client/logging/sinks"
)

type fixture struct {
	session *Session
	events  *sinks.MemorySink
	metrics *logging.Metrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	events := sinks.NewMemorySink()
	metrics := &logging.Metrics{}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(Config{
		Publisher: logging.PublisherFunc(func(_ context.Context, event logging.Event) { events.Write(event) }),
		Counters:  telemetry.NewCounters(telemetry.WrapMetrics(metrics)),
		Clock:     func() time.Time { return now },
	})
	return fixture{session: s, events: events, metrics: metrics}
}

func populated(id arena.ID, cycles ...arena.ID) arena.Arena {
	a := arena.New(id)
	a.Width, a.Height = 560, 560
	for _, cycle := range cycles {
		a = a.WithPlayer(cycle, arena.Player{ID: cycle, Name: cycle.String()[:4]})
		a = a.WithLightcycle(cycle, arena.Lightcycle{Direction: arena.DirectionUp, Speed: 55})
		a = a.WithLightribbon(cycle, arena.Lightribbon{Points: []arena.Point{{}, {}}})
	}
	return a
}

func TestHandleJoinedInstallsEmptyShell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	arenaID, playerID := uuid.New(), uuid.New()

	if _, ok := f.session.Current(); ok {
		t.Fatalf("expected no aggregate before joining")
	}
	outcome := f.session.Handle(ctx, proto.ArenaJoined{ArenaID: arenaID, PlayerID: playerID})
	if outcome.Kind != OutcomeJoined || !outcome.Changed() {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	current, ok := f.session.Current()
	if !ok || current.ID != arenaID || current.LenPlayers() != 0 || current.Started != nil {
		t.Fatalf("expected empty shell for %s, got %+v", arenaID, current)
	}
	if id, ok := f.session.PlayerID(); !ok || id != playerID {
		t.Fatalf("expected player %s, got %s", playerID, id)
	}
	if got := len(f.events.EventsOfType(lifecycle.EventArenaJoined)); got != 1 {
		t.Fatalf("expected one join event, got %d", got)
	}
}

func TestHandleStateReplacesAndReleasesMissingCycles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	arenaID := uuid.New()
	kept, dropped := uuid.New(), uuid.New()

	var released []arena.ID
	f.session.OnRelease(func(id arena.ID) { released = append(released, id) })

	f.session.Handle(ctx, proto.ArenaState{Arena: populated(arenaID, kept, dropped)})
	outcome := f.session.Handle(ctx, proto.ArenaState{Arena: populated(arenaID, kept), Seq: 4})

	if outcome.Kind != OutcomeSnapshot {
		t.Fatalf("expected snapshot outcome, got %s", outcome.Kind)
	}
	if len(released) != 1 || released[0] != dropped {
		t.Fatalf("expected %s to be released, got %v", dropped, released)
	}
	if seq, sequenced := f.session.journal.LastSeq(); seq != 4 || !sequenced {
		t.Fatalf("expected cursor reset to 4, got %d (%v)", seq, sequenced)
	}
	if got := f.metrics.Snapshot()[telemetry.MetricSnapshots]; got != 2 {
		t.Fatalf("expected 2 snapshots counted, got %d", got)
	}
}

func TestHandlePatchWithoutBaseIsDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cycle := uuid.New()

	outcome := f.session.Handle(ctx, proto.ArenaStatePatch{Ops: []patch.Op{patch.UpdateLightcycleApplyDeath{ID: cycle}}})
	if outcome.Kind != OutcomeDropped || outcome.Reason != DropNoBase {
		t.Fatalf("expected no-base drop, got %+v", outcome)
	}
	if _, ok := f.session.Current(); ok {
		t.Fatalf("expected no aggregate to be created")
	}
	signal, ok := f.session.ConsumeResync(ctx)
	if !ok || signal.Losses != 1 {
		t.Fatalf("expected resync after a baseless patch, got %+v (%v)", signal, ok)
	}
	if _, again := f.session.ConsumeResync(ctx); again {
		t.Fatalf("expected resync signal to be consumed once")
	}
	if got := len(f.events.EventsOfType(replication.EventResyncRequested)); got != 1 {
		t.Fatalf("expected one resync event, got %d", got)
	}
}

func TestHandlePatchAppliesAndAnnounces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	arenaID, cycle := uuid.New(), uuid.New()
	f.session.Handle(ctx, proto.ArenaState{Arena: populated(arenaID, cycle)})

	start := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	outcome := f.session.Handle(ctx, proto.ArenaStatePatch{Seq: 1, Ops: []patch.Op{
		patch.Start{At: start},
		patch.UpdateLightcyclePosition{ID: cycle, Position: arena.Point{X: 0, Y: 5}},
		patch.UpdateLightcyclePosition{ID: uuid.New(), Position: arena.Point{X: 1, Y: 1}},
		patch.Unknown{Tag: "Teleport"},
	}})
	if outcome.Kind != OutcomePatch || outcome.Report.Applied != 2 || len(outcome.Report.Ignored) != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	current, _ := f.session.Current()
	if cyc, _ := current.Lightcycle(cycle); cyc.Position != (arena.Point{X: 0, Y: 5}) {
		t.Fatalf("expected position update, got %v", cyc.Position)
	}
	if current.Started == nil || !current.Started.Equal(start) {
		t.Fatalf("expected start instant to be set")
	}
	if got := len(f.events.EventsOfType(lifecycle.EventRoundStarted)); got != 1 {
		t.Fatalf("expected a round start event, got %d", got)
	}
	if got := len(f.events.EventsOfType(replication.EventOpIgnored)); got != 2 {
		t.Fatalf("expected 2 op ignored events, got %d", got)
	}

	history := f.session.History()
	if len(history) != 1 || history[0].Seq != 1 || history[0].Ignored != 2 {
		t.Fatalf("unexpected history: %+v", history)
	}

	winner := cycle
	f.session.Handle(ctx, proto.ArenaStatePatch{Seq: 2, Ops: []patch.Op{patch.SetWinner{ID: &winner}, patch.End{}}})
	if got := len(f.events.EventsOfType(lifecycle.EventWinnerDeclared)); got != 1 {
		t.Fatalf("expected a winner event, got %d", got)
	}
	if got := len(f.events.EventsOfType(lifecycle.EventRoundEnded)); got != 1 {
		t.Fatalf("expected a round end event, got %d", got)
	}
}

func TestHandlePatchSequencing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	arenaID, cycle := uuid.New(), uuid.New()
	f.session.Handle(ctx, proto.ArenaState{Arena: populated(arenaID, cycle), Seq: 10})

	move := func(seq uint64, y float64) Outcome {
		return f.session.Handle(ctx, proto.ArenaStatePatch{Seq: seq, Ops: []patch.Op{
			patch.UpdateLightcyclePosition{ID: cycle, Position: arena.Point{Y: y}},
		}})
	}

	if outcome := move(11, 1); outcome.Kind != OutcomePatch {
		t.Fatalf("expected next batch to apply, got %+v", outcome)
	}
	if outcome := move(11, 2); outcome.Verdict != journal.VerdictDuplicate {
		t.Fatalf("expected duplicate, got %+v", outcome)
	}
	if outcome := move(13, 3); outcome.Verdict != journal.VerdictGap {
		t.Fatalf("expected gap, got %+v", outcome)
	}
	current, _ := f.session.Current()
	if cyc, _ := current.Lightcycle(cycle); cyc.Position.Y != 1 {
		t.Fatalf("expected dropped batches to leave the aggregate alone, got y=%v", cyc.Position.Y)
	}
	if _, ok := f.session.ConsumeResync(ctx); !ok {
		t.Fatalf("expected gap to request a resync")
	}
	if got := f.metrics.Snapshot()[journal.DropGap]; got != 1 {
		t.Fatalf("expected gap drop to be counted, got %d", got)
	}
}

func TestRemovalOpReleasesAndLeaveClears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	arenaID, a, b := uuid.New(), uuid.New(), uuid.New()
	f.session.Handle(ctx, proto.ArenaJoined{ArenaID: arenaID, PlayerID: a})
	f.session.Handle(ctx, proto.ArenaState{Arena: populated(arenaID, a, b)})

	released := make(map[arena.ID]int)
	f.session.OnRelease(func(id arena.ID) { released[id]++ })

	outcome := f.session.Handle(ctx, proto.ArenaStatePatch{Ops: []patch.Op{patch.RemoveLightcycle{ID: b}}})
	if len(outcome.Released) != 1 || outcome.Released[0] != b {
		t.Fatalf("expected %s released by removal, got %v", b, outcome.Released)
	}

	f.session.Leave(ctx, "quit")
	if _, ok := f.session.Current(); ok {
		t.Fatalf("expected aggregate to be discarded")
	}
	if _, ok := f.session.PlayerID(); ok {
		t.Fatalf("expected player identity to be discarded")
	}
	if released[a] != 1 || released[b] != 1 {
		t.Fatalf("expected each cycle released once, got %v", released)
	}
	if got := len(f.events.EventsOfType(lifecycle.EventArenaLeft)); got != 1 {
		t.Fatalf("expected a leave event, got %d", got)
	}
}

func TestLobbyAndUnknownMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	overview := arena.Overview{ID: uuid.New(), Name: "Arena", MaxPlayers: 8}

	if outcome := f.session.Handle(ctx, proto.ArenaList{Arenas: []arena.Overview{overview}}); outcome.Changed() {
		t.Fatalf("expected lobby update not to touch the aggregate")
	}
	lobby := f.session.Lobby()
	if len(lobby) != 1 || lobby[0].ID != overview.ID {
		t.Fatalf("unexpected lobby: %+v", lobby)
	}
	if status := f.session.Status(); status.Lobby != 1 || status.Joined {
		t.Fatalf("unexpected status: %+v", status)
	}

	if outcome := f.session.Handle(ctx, proto.UnknownMessage{Type: "Chat"}); outcome.Kind != OutcomeUnknown {
		t.Fatalf("expected unknown outcome, got %s", outcome.Kind)
	}
	events := f.events.EventsOfType(replication.EventUnknownMessage)
	if len(events) != 1 || events[0].Payload.(replication.UnknownMessagePayload).Tag != "Chat" {
		t.Fatalf("unexpected unknown message events: %+v", events)
	}
}

func TestOnReleaseUnregister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	arenaID, a := uuid.New(), uuid.New()
	f.session.Handle(ctx, proto.ArenaState{Arena: populated(arenaID, a)})

	var first, second int
	unregister := f.session.OnRelease(func(arena.ID) { first++ })
	f.session.OnRelease(func(arena.ID) { second++ })
	unregister()
	unregister()

	if got := f.session.Listeners(); got != 1 {
		t.Fatalf("expected one listener left, got %d", got)
	}
	f.session.Leave(ctx, "quit")
	if first != 0 || second != 1 {
		t.Fatalf("expected only the registered listener to be told, got first=%d second=%d", first, second)
	}
}
