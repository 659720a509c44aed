package journal

import (
	"fmt"
	"strings"
)

const maxResyncReasons = 8

// ResyncReason records one loss: its kind and the sequence number involved,
// zero for unsequenced batches.
type ResyncReason struct {
	Kind string
	Seq  uint64
}

func (r ResyncReason) String() string {
	if r.Seq == 0 {
		return r.Kind
	}
	return fmt.Sprintf("%s@%d", r.Kind, r.Seq)
}

// ResyncSignal describes the episode that ended in a resync.
type ResyncSignal struct {
	Losses  uint64
	Batches uint64
	Reasons []ResyncReason
}

// Summary renders the signal for logs. It is empty for the zero signal.
func (s ResyncSignal) Summary() string {
	if s.Losses == 0 && s.Batches == 0 {
		return ""
	}
	reasons := make([]string, len(s.Reasons))
	for i, r := range s.Reasons {
		reasons[i] = r.String()
	}
	return fmt.Sprintf("losses=%d batches=%d reasons=[%s]", s.Losses, s.Batches, strings.Join(reasons, " "))
}

// Policy turns the losses noted by a journal into resync signals. A lost
// batch leaves the folded arena behind the server, so the first loss of an
// episode schedules a resync. Later losses only add detail until Consume.
// A nil Policy never signals.
type Policy struct {
	batches uint64
	losses  uint64
	reasons []ResyncReason
}

func NewPolicy() *Policy {
	return &Policy{}
}

// NoteBatch counts an admitted or dropped batch towards the episode.
func (p *Policy) NoteBatch() {
	if p == nil || p.batches == ^uint64(0) {
		return
	}
	p.batches++
}

func (p *Policy) NoteLoss(kind string, seq uint64) {
	if p == nil {
		return
	}
	p.losses++
	if len(p.reasons) < maxResyncReasons {
		p.reasons = append(p.reasons, ResyncReason{Kind: kind, Seq: seq})
	}
}

func (p *Policy) Pending() bool {
	return p != nil && p.losses > 0
}

// Consume returns the pending signal once and starts a new episode.
func (p *Policy) Consume() (ResyncSignal, bool) {
	if !p.Pending() {
		return ResyncSignal{}, false
	}
	signal := ResyncSignal{Losses: p.losses, Batches: p.batches, Reasons: p.reasons}
	*p = Policy{}
	return signal, true
}
