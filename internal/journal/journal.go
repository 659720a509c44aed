// Package journal tracks the inbound patch batch stream of one session.
//
// Batches may carry a monotonic sequence number. Sequenced batches that
// repeat or skip a number are refused so the aggregate never silently
// diverges from the server; a skipped batch also raises a resync hint.
package journal

import (
	"sync"
	"time"
)

// Telemetry captures the metrics adapter used by the journal to report drops.
type Telemetry interface {
	RecordJournalDrop(metric string)
}

// Verdict is the outcome of admitting a batch.
type Verdict int

const (
	// VerdictAccept means the batch should be applied.
	VerdictAccept Verdict = iota
	// VerdictDuplicate means the sequence number was already applied.
	VerdictDuplicate
	// VerdictGap means at least one earlier batch is missing.
	VerdictGap
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccept:
		return "accept"
	case VerdictDuplicate:
		return "duplicate"
	case VerdictGap:
		return "gap"
	default:
		return "unknown"
	}
}

// Drop metric names reported through Telemetry.
const (
	DropDuplicate = "journal_drop_duplicate"
	DropGap       = "journal_drop_gap"
	DropNoBase    = "journal_drop_no_base"
)

// Loss kinds recorded on the resync policy.
const (
	LossGap    = "gap"
	LossNoBase = "no_base"
)

// Journal keeps the sequence cursor and a rolling history of applied
// batches.
type Journal struct {
	mu         sync.RWMutex
	lastSeq    uint64
	sequenced  bool
	history    []Entry
	maxEntries int
	maxAge     time.Duration
	now        func() time.Time
	telemetry  Telemetry
	resync     *Policy
}

// Entry summarises one applied batch.
type Entry struct {
	Seq       uint64
	Ops       int
	Ignored   int
	AppliedAt time.Time
}

type Eviction struct {
	Seq    uint64
	Reason string
}

type RecordResult struct {
	Size     int
	Evicted  []Eviction
	OldestAt time.Time
}

// New constructs a journal retaining at most historyCapacity entries no older
// than maxAge. Zero disables the respective limit, except that a zero
// capacity disables history altogether.
func New(historyCapacity int, maxAge time.Duration) *Journal {
	if historyCapacity < 0 {
		historyCapacity = 0
	}
	if maxAge < 0 {
		maxAge = 0
	}
	return &Journal{
		history:    make([]Entry, 0, historyCapacity),
		maxEntries: historyCapacity,
		maxAge:     maxAge,
		now:        time.Now,
		resync:     NewPolicy(),
	}
}

// SetClock overrides the clock used to timestamp history entries.
func (j *Journal) SetClock(now func() time.Time) {
	if j == nil || now == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.now = now
}

// AttachTelemetry configures the metrics adapter.
func (j *Journal) AttachTelemetry(t Telemetry) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.telemetry = t
}

// Admit decides whether a batch with the given sequence number may be
// applied. Zero means unsequenced and is always accepted.
func (j *Journal) Admit(seq uint64) Verdict {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.resync.NoteBatch()
	if seq == 0 {
		return VerdictAccept
	}
	if !j.sequenced {
		j.sequenced = true
		j.lastSeq = seq
		return VerdictAccept
	}
	if seq <= j.lastSeq {
		j.recordDropLocked(DropDuplicate)
		return VerdictDuplicate
	}
	if seq > j.lastSeq+1 {
		j.recordDropLocked(DropGap)
		j.resync.NoteLoss(LossGap, seq)
		return VerdictGap
	}
	j.lastSeq = seq
	return VerdictAccept
}

// Reset re-anchors the cursor after a full snapshot. A zero seq lets the
// next sequenced batch set the reference.
func (j *Journal) Reset(seq uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastSeq = seq
	j.sequenced = seq > 0
	j.history = j.history[:0]
}

// NoteMissingBase records a batch that arrived before any aggregate existed.
func (j *Journal) NoteMissingBase(seq uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.resync.NoteBatch()
	j.recordDropLocked(DropNoBase)
	j.resync.NoteLoss(LossNoBase, seq)
}

// LastSeq returns the most recently accepted sequence number.
func (j *Journal) LastSeq() (uint64, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastSeq, j.sequenced
}

// Record stores an applied batch enforcing retention limits by count and
// age.
func (j *Journal) Record(entry Entry) RecordResult {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.maxEntries == 0 {
		j.history = j.history[:0]
		return RecordResult{}
	}

	if entry.AppliedAt.IsZero() {
		entry.AppliedAt = j.now()
	}
	j.history = append(j.history, entry)

	evicted := make([]Eviction, 0)
	if j.maxAge > 0 {
		cutoff := entry.AppliedAt.Add(-j.maxAge)
		idx := 0
		for idx < len(j.history) && j.history[idx].AppliedAt.Before(cutoff) {
			evicted = append(evicted, Eviction{Seq: j.history[idx].Seq, Reason: "expired"})
			idx++
		}
		if idx > 0 {
			copy(j.history, j.history[idx:])
			j.history = j.history[:len(j.history)-idx]
		}
	}

	if len(j.history) > j.maxEntries {
		overflow := len(j.history) - j.maxEntries
		for i := 0; i < overflow; i++ {
			evicted = append(evicted, Eviction{Seq: j.history[i].Seq, Reason: "count"})
		}
		copy(j.history, j.history[overflow:])
		j.history = j.history[:len(j.history)-overflow]
	}

	result := RecordResult{Size: len(j.history), Evicted: evicted}
	if len(j.history) > 0 {
		result.OldestAt = j.history[0].AppliedAt
	}
	return result
}

// History returns a copy of the retained entries in chronological order.
func (j *Journal) History() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.history) == 0 {
		return nil
	}
	entries := make([]Entry, len(j.history))
	copy(entries, j.history)
	return entries
}

// ConsumeResyncHint reports whether the journal observed losses that require
// a fresh full snapshot. Counters reset after each consumption.
func (j *Journal) ConsumeResyncHint() (ResyncSignal, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.resync.Consume()
}

func (j *Journal) recordDropLocked(metric string) {
	if j.telemetry == nil {
		return
	}
	j.telemetry.RecordJournalDrop(metric)
}
