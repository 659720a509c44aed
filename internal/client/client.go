// Package client drives one arena connection: inbound messages are folded
// into the session mirror and every scheduler tick renders a predicted frame.
// Both happen on the goroutine that calls Run, so a message is always fully
// handled before the next tick reads the aggregate.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"webtron/client/internal/arena"
	"webtron/client/internal/net/proto"
	"webtron/client/internal/net/ws"
	"webtron/client/internal/predict"
	"webtron/client/internal/schedule"
	"webtron/client/internal/session"
	"webtron/client/internal/telemetry"
)

var (
	// ErrResyncRequired is returned by Run when the batch stream lost enough
	// data that the mirror must be rebuilt over a fresh connection.
	ErrResyncRequired = errors.New("client: resync required")
	// ErrDisconnected is returned by Run when the transport stops delivering.
	ErrDisconnected = errors.New("client: transport disconnected")
)

// ConnectionLocal is reported for transports without a socket state.
const ConnectionLocal = "local"

// Transport carries messages to and from an arena authority. Send must be
// safe to call from the input goroutine while Run is active.
type Transport interface {
	Inbound() <-chan proto.Inbound
	Send(proto.Outbound) error
	Close() error
}

// Frame is everything a presenter needs for one tick.
type Frame struct {
	At         time.Time
	Arena      arena.Arena
	Joined     bool
	Positions  map[arena.ID]arena.Point
	Status     session.Status
	Lobby      []arena.Overview
	Connection string
}

// Running reports whether the round in the frame is live.
func (f Frame) Running() bool {
	return f.Joined && f.Arena.Running(f.At)
}

// Countdown returns the time left before the round starts, or zero.
func (f Frame) Countdown() time.Duration {
	if !f.Joined || f.Arena.Started == nil || !f.At.Before(*f.Arena.Started) {
		return 0
	}
	return f.Arena.Started.Sub(f.At)
}

type Presenter interface {
	Present(Frame)
}

// PresenterFunc adapts a function into a Presenter.
type PresenterFunc func(Frame)

func (f PresenterFunc) Present(frame Frame) {
	if f != nil {
		f(frame)
	}
}

// Config wires a Client. Transport and Source are required.
type Config struct {
	Transport Transport
	Source    schedule.Source
	Session   *session.Session
	Presenter Presenter
	Counters  *telemetry.Counters
	Logger    telemetry.Logger
}

type Client struct {
	transport Transport
	source    schedule.Source
	session   *session.Session
	predictor *predict.Predictor
	presenter Presenter
	counters  *telemetry.Counters
	logger    telemetry.Logger
	detach    func()
}

func New(cfg Config) (*Client, error) {
	if cfg.Transport == nil {
		return nil, errors.New("client: missing transport")
	}
	if cfg.Source == nil {
		return nil, errors.New("client: missing tick source")
	}
	c := &Client{
		transport: cfg.Transport,
		source:    cfg.Source,
		session:   cfg.Session,
		predictor: predict.New(),
		presenter: cfg.Presenter,
		counters:  cfg.Counters,
		logger:    cfg.Logger,
	}
	if c.session == nil {
		c.session = session.New(session.Config{Counters: cfg.Counters, Logger: cfg.Logger})
	}
	if c.presenter == nil {
		c.presenter = PresenterFunc(nil)
	}
	if c.logger == nil {
		c.logger = telemetry.LoggerFunc(nil)
	}
	c.detach = c.session.OnRelease(func(id arena.ID) { c.predictor.Release(id) })
	return c, nil
}

func (c *Client) Session() *session.Session {
	return c.session
}

// Send forwards an intent to the transport.
func (c *Client) Send(msg proto.Outbound) error {
	if err := c.transport.Send(msg); err != nil {
		c.logger.Printf("send %s failed: %v", msg.OutboundTag(), err)
		return fmt.Errorf("send %s: %w", msg.OutboundTag(), err)
	}
	c.counters.RecordIntent()
	return nil
}

// Run processes messages and ticks until ctx is cancelled, the transport
// disconnects or a resync is required. The tick source is stopped on return,
// the client stops listening to the session and the transport is closed
// unless it disconnected by itself. A Client runs once.
func (c *Client) Run(ctx context.Context) error {
	defer c.source.Stop()
	defer c.detach()

	inbound := c.transport.Inbound()
	ticks := c.source.C()
	for {
		select {
		case <-ctx.Done():
			c.transport.Close()
			return ctx.Err()
		case msg, ok := <-inbound:
			if !ok {
				return ErrDisconnected
			}
			c.session.Handle(ctx, msg)
			if signal, resync := c.session.ConsumeResync(ctx); resync {
				c.transport.Close()
				return fmt.Errorf("%w: %s", ErrResyncRequired, signal.Summary())
			}
		case at, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			c.render(at)
		}
	}
}

func (c *Client) render(now time.Time) {
	frame := Frame{
		At:         now,
		Status:     c.session.Status(),
		Lobby:      c.session.Lobby(),
		Connection: c.connection(),
	}
	if current, ok := c.session.Current(); ok {
		predicted := c.predictor.Frame(now, current)
		frame.Arena = current
		frame.Joined = true
		frame.Positions = predicted.Positions
	} else {
		c.predictor.Reset()
	}
	c.counters.RecordRender(len(frame.Positions))
	c.presenter.Present(frame)
}

func (c *Client) connection() string {
	if conn, ok := c.transport.(interface{ State() ws.SocketState }); ok {
		return conn.State().String()
	}
	return ConnectionLocal
}
