package replication

import (
	"context"

	"webtron/client/logging"
)

const (
	// EventSnapshotReplaced is emitted when a full arena state replaces the mirror.
	EventSnapshotReplaced logging.EventType = "replication.snapshot_replaced"
	// EventPatchApplied is emitted after a patch batch is folded into the mirror.
	EventPatchApplied logging.EventType = "replication.patch_applied"
	// EventOpIgnored is emitted for each operation that had no effect.
	EventOpIgnored logging.EventType = "replication.op_ignored"
	// EventBatchDropped is emitted when a whole batch is refused.
	EventBatchDropped logging.EventType = "replication.batch_dropped"
	// EventResyncRequested is emitted when losses warrant a fresh snapshot.
	EventResyncRequested logging.EventType = "replication.resync_requested"
	// EventUnknownMessage is emitted for inbound messages with an unrecognised tag.
	EventUnknownMessage logging.EventType = "replication.unknown_message"
)

// SnapshotPayload summarises a replaced snapshot.
type SnapshotPayload struct {
	Players      int `json:"players"`
	Lightcycles  int `json:"lightcycles"`
	Lightribbons int `json:"lightribbons"`
}

// PatchAppliedPayload summarises an applied batch.
type PatchAppliedPayload struct {
	Ops       int `json:"ops"`
	Applied   int `json:"applied"`
	Ignored   int `json:"ignored"`
	Malformed int `json:"malformed,omitempty"`
}

// OpIgnoredPayload describes one inert operation.
type OpIgnoredPayload struct {
	Index  int    `json:"index"`
	Kind   string `json:"kind"`
	Tag    string `json:"tag,omitempty"`
	Reason string `json:"reason"`
}

// BatchDroppedPayload explains a refused batch.
type BatchDroppedPayload struct {
	Reason  string `json:"reason"`
	LastSeq uint64 `json:"lastSeq"`
}

// ResyncPayload carries the loss summary that triggered a resync.
type ResyncPayload struct {
	Summary string `json:"summary"`
	Losses  uint64 `json:"losses"`
	Batches uint64 `json:"batches"`
}

// UnknownMessagePayload names the unrecognised tag.
type UnknownMessagePayload struct {
	Tag string `json:"tag"`
}

// UnknownMessage publishes a warning for a message the client cannot use.
func UnknownMessage(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload UnknownMessagePayload, extra map[string]any) {
	publish(ctx, pub, EventUnknownMessage, logging.SeverityWarn, 0, actor, nil, payload, extra)
}

// SnapshotReplaced publishes a debug event for a full state replacement.
func SnapshotReplaced(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload SnapshotPayload, extra map[string]any) {
	publish(ctx, pub, EventSnapshotReplaced, logging.SeverityDebug, seq, actor, nil, payload, extra)
}

// PatchApplied publishes a debug event for an applied batch.
func PatchApplied(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload PatchAppliedPayload, extra map[string]any) {
	publish(ctx, pub, EventPatchApplied, logging.SeverityDebug, seq, actor, nil, payload, extra)
}

// OpIgnored publishes a debug event for an operation that changed nothing.
// Unknown operations are raised to warnings.
func OpIgnored(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, targets []logging.EntityRef, payload OpIgnoredPayload, extra map[string]any) {
	severity := logging.SeverityDebug
	if payload.Tag != "" {
		severity = logging.SeverityWarn
	}
	publish(ctx, pub, EventOpIgnored, severity, seq, actor, targets, payload, extra)
}

// BatchDropped publishes a warning for a refused batch.
func BatchDropped(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload BatchDroppedPayload, extra map[string]any) {
	publish(ctx, pub, EventBatchDropped, logging.SeverityWarn, seq, actor, nil, payload, extra)
}

// ResyncRequested publishes an error when the mirror can no longer be trusted.
func ResyncRequested(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ResyncPayload, extra map[string]any) {
	publish(ctx, pub, EventResyncRequested, logging.SeverityError, 0, actor, nil, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, seq uint64, actor logging.EntityRef, targets []logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Seq:      seq,
		Actor:    actor,
		Targets:  targets,
		Severity: severity,
		Category: logging.CategoryReplication,
		Payload:  payload,
		Extra:    extra,
	})
}
