package network

import (
	"context"

	"webtron/client/logging"
)

const (
	// EventSocketState is emitted when the websocket moves between states.
	EventSocketState logging.EventType = "network.socket_state"
	// EventFrameDiscarded is emitted when an inbound frame cannot be used.
	EventFrameDiscarded logging.EventType = "network.frame_discarded"
	// EventSendFailed is emitted when an outbound intent could not be written.
	EventSendFailed logging.EventType = "network.send_failed"
)

// SocketStatePayload captures a connection state transition.
type SocketStatePayload struct {
	From  string `json:"from"`
	To    string `json:"to"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// FrameDiscardedPayload explains why a frame was skipped.
type FrameDiscardedPayload struct {
	Reason string `json:"reason"`
	Bytes  int    `json:"bytes"`
	Error  string `json:"error,omitempty"`
}

// SendFailedPayload captures a failed write.
type SendFailedPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// SocketState publishes a connection state change. Closed transitions carrying
// an error are reported as warnings.
func SocketState(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SocketStatePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	severity := logging.SeverityInfo
	if payload.Error != "" {
		severity = logging.SeverityWarn
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSocketState,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}

// FrameDiscarded publishes a warning for an unusable inbound frame.
func FrameDiscarded(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload FrameDiscardedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFrameDiscarded,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}

// SendFailed publishes an error for an outbound write failure.
func SendFailed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SendFailedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSendFailed,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}
