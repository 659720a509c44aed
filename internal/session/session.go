// Package session owns the arena mirror of one server connection.
//
// Every inbound message is folded into a brand new aggregate which is then
// published atomically, so readers on other goroutines only ever observe
// complete versions.
package session

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"webtron/client/internal/arena"
	"webtron/client/internal/journal"
	"webtron/client/internal/net/proto"
	"webtron/client/internal/patch"
	"webtron/client/internal/snapshot"
	"webtron/client/internal/telemetry"
	"webtron/client/logging"
	"webtron/client/logging/lifecycle"
	"webtron/client/logging/replication"
)

const (
	defaultHistoryCapacity = 128
	defaultHistoryMaxAge   = time.Minute
)

// Outcome kinds reported by Handle.
const (
	OutcomeLobby    = "lobby"
	OutcomeJoined   = "joined"
	OutcomeSnapshot = "snapshot"
	OutcomePatch    = "patch"
	OutcomeDropped  = "dropped"
	OutcomeUnknown  = "unknown"
)

// Drop reasons for patch batches that were not applied.
const (
	DropNoBase = "no_base"
)

// ReleaseFunc is told about lightcycles that left the aggregate.
type ReleaseFunc func(id arena.ID)

// Config wires a Session to its collaborators. Every field is optional.
type Config struct {
	Publisher       logging.Publisher
	Counters        *telemetry.Counters
	Logger          telemetry.Logger
	Clock           func() time.Time
	HistoryCapacity int
	HistoryMaxAge   time.Duration
}

// Outcome describes what one inbound message did.
type Outcome struct {
	Kind     string
	Verdict  journal.Verdict
	Reason   string
	Report   patch.Report
	Released []arena.ID
}

// Changed reports whether the aggregate was replaced.
func (o Outcome) Changed() bool {
	switch o.Kind {
	case OutcomeJoined, OutcomeSnapshot, OutcomePatch:
		return true
	default:
		return false
	}
}

// Status is a point-in-time summary for diagnostics and the status line.
type Status struct {
	Joined    bool
	ArenaID   arena.ID
	PlayerID  arena.ID
	LastSeq   uint64
	Sequenced bool
	Lobby     int
	History   int
}

type Session struct {
	current atomic.Pointer[arena.Arena]
	journal *journal.Journal

	pub      logging.Publisher
	counters *telemetry.Counters
	logger   telemetry.Logger
	now      func() time.Time

	mu        sync.Mutex
	lobby     []arena.Overview
	playerID  arena.ID
	hasPlayer bool
	releases  []releaseListener
	listeners uint64
}

type releaseListener struct {
	id uint64
	fn ReleaseFunc
}

func New(cfg Config) *Session {
	s := &Session{
		pub:      cfg.Publisher,
		counters: cfg.Counters,
		logger:   cfg.Logger,
		now:      cfg.Clock,
	}
	if s.pub == nil {
		s.pub = logging.NopPublisher()
	}
	if s.logger == nil {
		s.logger = telemetry.LoggerFunc(nil)
	}
	if s.now == nil {
		s.now = time.Now
	}
	capacity := cfg.HistoryCapacity
	if capacity == 0 {
		capacity = defaultHistoryCapacity
	}
	maxAge := cfg.HistoryMaxAge
	if maxAge == 0 {
		maxAge = defaultHistoryMaxAge
	}
	s.journal = journal.New(capacity, maxAge)
	s.journal.SetClock(s.now)
	if s.counters != nil {
		s.journal.AttachTelemetry(s.counters)
	}
	return s
}

// OnRelease registers fn to be called for every lightcycle id that leaves
// the aggregate, whether by a removal op, a full replace or Leave. The
// returned func unregisters fn and may be called more than once.
func (s *Session) OnRelease(fn ReleaseFunc) (unregister func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.listeners++
	id := s.listeners
	s.releases = append(s.releases, releaseListener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.releases = slices.DeleteFunc(s.releases, func(l releaseListener) bool { return l.id == id })
	}
}

// Listeners reports how many release callbacks are registered.
func (s *Session) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.releases)
}

// Current returns the latest aggregate.
func (s *Session) Current() (arena.Arena, bool) {
	a := s.current.Load()
	if a == nil {
		return arena.Arena{}, false
	}
	return *a, true
}

// PlayerID returns the local player's id once a join was confirmed.
func (s *Session) PlayerID() (arena.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID, s.hasPlayer
}

// Lobby returns the most recent arena listing.
func (s *Session) Lobby() []arena.Overview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lobby)
}

// History returns summaries of recently applied batches.
func (s *Session) History() []journal.Entry {
	return s.journal.History()
}

// Handle folds one inbound message into the session.
func (s *Session) Handle(ctx context.Context, msg proto.Inbound) Outcome {
	switch m := msg.(type) {
	case proto.ArenaList:
		s.mu.Lock()
		s.lobby = slices.Clone(m.Arenas)
		s.mu.Unlock()
		return Outcome{Kind: OutcomeLobby}
	case proto.ArenaJoined:
		return s.handleJoined(ctx, m)
	case proto.ArenaState:
		return s.handleState(ctx, m)
	case proto.ArenaStatePatch:
		return s.handlePatch(ctx, m)
	case proto.UnknownMessage:
		replication.UnknownMessage(ctx, s.pub, s.actor(), replication.UnknownMessagePayload{Tag: m.Type}, nil)
		return Outcome{Kind: OutcomeUnknown}
	default:
		tag := ""
		if msg != nil {
			tag = msg.Tag()
		}
		replication.UnknownMessage(ctx, s.pub, s.actor(), replication.UnknownMessagePayload{Tag: tag}, nil)
		return Outcome{Kind: OutcomeUnknown}
	}
}

func (s *Session) handleJoined(ctx context.Context, m proto.ArenaJoined) Outcome {
	prev, _ := s.Current()
	next := snapshot.Joined(m.ArenaID)
	s.current.Store(&next)
	s.journal.Reset(0)

	s.mu.Lock()
	s.playerID = m.PlayerID
	s.hasPlayer = true
	s.mu.Unlock()

	released := s.release(prev, next)
	lifecycle.ArenaJoined(ctx, s.pub, logging.Ref(logging.EntityKindPlayer, m.PlayerID), lifecycle.ArenaJoinedPayload{
		ArenaID:  m.ArenaID.String(),
		PlayerID: m.PlayerID.String(),
	}, nil)
	return Outcome{Kind: OutcomeJoined, Released: released}
}

func (s *Session) handleState(ctx context.Context, m proto.ArenaState) Outcome {
	prev, _ := s.Current()
	next := snapshot.Replace(m.Arena)
	s.current.Store(&next)
	s.journal.Reset(m.Seq)
	s.counters.RecordSnapshot()

	released := s.release(prev, next)
	replication.SnapshotReplaced(ctx, s.pub, m.Seq, s.actorFor(next), replication.SnapshotPayload{
		Players:      next.LenPlayers(),
		Lightcycles:  next.LenLightcycles(),
		Lightribbons: next.LenLightribbons(),
	}, nil)
	s.announce(ctx, m.Seq, prev, next)
	return Outcome{Kind: OutcomeSnapshot, Released: released}
}

func (s *Session) handlePatch(ctx context.Context, m proto.ArenaStatePatch) Outcome {
	prev, ok := s.Current()
	if !ok {
		s.journal.NoteMissingBase(m.Seq)
		replication.BatchDropped(ctx, s.pub, m.Seq, s.actor(), replication.BatchDroppedPayload{Reason: DropNoBase}, nil)
		return Outcome{Kind: OutcomeDropped, Reason: DropNoBase}
	}

	verdict := s.journal.Admit(m.Seq)
	if verdict != journal.VerdictAccept {
		last, _ := s.journal.LastSeq()
		replication.BatchDropped(ctx, s.pub, m.Seq, s.actorFor(prev), replication.BatchDroppedPayload{
			Reason:  verdict.String(),
			LastSeq: last,
		}, nil)
		return Outcome{Kind: OutcomeDropped, Verdict: verdict, Reason: verdict.String()}
	}

	next, report := patch.ApplyWithReport(prev, m.Ops)
	s.current.Store(&next)
	s.journal.Record(journal.Entry{Seq: m.Seq, Ops: len(m.Ops), Ignored: len(report.Ignored)})
	s.counters.RecordBatch(report.Applied, len(report.Ignored), m.Malformed)

	actor := s.actorFor(next)
	replication.PatchApplied(ctx, s.pub, m.Seq, actor, replication.PatchAppliedPayload{
		Ops:       len(m.Ops),
		Applied:   report.Applied,
		Ignored:   len(report.Ignored),
		Malformed: m.Malformed,
	}, nil)
	for _, ignored := range report.Ignored {
		var targets []logging.EntityRef
		if ignored.Target != (arena.ID{}) {
			targets = []logging.EntityRef{logging.Ref(logging.EntityKindLightcycle, ignored.Target)}
		}
		replication.OpIgnored(ctx, s.pub, m.Seq, actor, targets, replication.OpIgnoredPayload{
			Index:  ignored.Index,
			Kind:   string(ignored.Kind),
			Tag:    ignored.Tag,
			Reason: ignored.Reason,
		}, nil)
	}

	released := s.release(prev, next)
	s.announce(ctx, m.Seq, prev, next)
	return Outcome{Kind: OutcomePatch, Verdict: verdict, Report: report, Released: released}
}

// Leave discards the aggregate and the local player identity.
func (s *Session) Leave(ctx context.Context, reason string) {
	prev := s.current.Swap(nil)
	s.journal.Reset(0)

	s.mu.Lock()
	player := s.playerID
	s.playerID = arena.ID{}
	s.hasPlayer = false
	s.mu.Unlock()

	if prev == nil {
		return
	}
	s.release(*prev, arena.Arena{})
	lifecycle.ArenaLeft(ctx, s.pub, logging.Ref(logging.EntityKindPlayer, player), lifecycle.ArenaLeftPayload{Reason: reason}, nil)
}

// ConsumeResync reports, at most once per episode, that the batch stream
// lost enough data that the mirror should be rebuilt from a fresh snapshot.
func (s *Session) ConsumeResync(ctx context.Context) (journal.ResyncSignal, bool) {
	signal, ok := s.journal.ConsumeResyncHint()
	if !ok {
		return signal, false
	}
	s.counters.RecordResync()
	s.logger.Printf("resync required: %s", signal.Summary())
	replication.ResyncRequested(ctx, s.pub, s.actor(), replication.ResyncPayload{
		Summary: signal.Summary(),
		Losses:  signal.Losses,
		Batches: signal.Batches,
	}, nil)
	return signal, true
}

func (s *Session) Status() Status {
	status := Status{History: len(s.journal.History())}
	if a, ok := s.Current(); ok {
		status.Joined = true
		status.ArenaID = a.ID
	}
	status.LastSeq, status.Sequenced = s.journal.LastSeq()
	s.mu.Lock()
	status.PlayerID = s.playerID
	status.Lobby = len(s.lobby)
	s.mu.Unlock()
	return status
}

// release notifies listeners about lightcycles present in prev but not in
// next and returns their ids in a stable order.
func (s *Session) release(prev, next arena.Arena) []arena.ID {
	var released []arena.ID
	for _, id := range prev.LightcycleIDs() {
		if _, ok := next.Lightcycle(id); !ok {
			released = append(released, id)
		}
	}
	if len(released) == 0 {
		return nil
	}
	s.mu.Lock()
	listeners := slices.Clone(s.releases)
	s.mu.Unlock()
	for _, id := range released {
		for _, l := range listeners {
			l.fn(id)
		}
	}
	return released
}

// announce publishes lifecycle events for round state that changed between
// prev and next.
func (s *Session) announce(ctx context.Context, seq uint64, prev, next arena.Arena) {
	actor := s.actorFor(next)
	switch {
	case next.Started != nil && (prev.Started == nil || !prev.Started.Equal(*next.Started)):
		lifecycle.RoundStarted(ctx, s.pub, seq, actor, lifecycle.RoundStartedPayload{
			StartsAt: next.Started.UTC().Format(time.RFC3339Nano),
		}, nil)
	case next.Started == nil && prev.Started != nil:
		lifecycle.RoundEnded(ctx, s.pub, seq, actor, nil)
	}

	if sameWinner(prev.Winner, next.Winner) {
		return
	}
	payload := lifecycle.WinnerPayload{}
	if next.Winner != nil {
		payload.Winner = next.Winner.String()
		if player, ok := next.Player(*next.Winner); ok {
			payload.Name = player.Name
		}
	}
	lifecycle.WinnerDeclared(ctx, s.pub, seq, actor, payload, nil)
}

func sameWinner(a, b *arena.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *Session) actor() logging.EntityRef {
	if a, ok := s.Current(); ok {
		return s.actorFor(a)
	}
	return logging.EntityRef{Kind: logging.EntityKindArena}
}

func (s *Session) actorFor(a arena.Arena) logging.EntityRef {
	return logging.Ref(logging.EntityKindArena, a.ID)
}
