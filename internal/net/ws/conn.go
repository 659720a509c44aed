// Package ws is the websocket transport between the client and an arena
// server. Inbound text frames are decoded into proto messages; outbound
// intents are encoded and written as text frames.
package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"webtron/client/internal/net/proto"
	"webtron/client/internal/telemetry"
	"webtron/client/logging"
	"webtron/client/logging/network"
)

// ErrClosed is returned by Send after the connection has been closed.
var ErrClosed = errors.New("ws: connection closed")

// SocketState mirrors the browser websocket ready states plus a state for
// connections that were never attempted.
type SocketState int32

const (
	NotConnected SocketState = iota
	Connecting
	Open
	Closing
	Closed
)

func (s SocketState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "not_connected"
	}
}

const (
	defaultWriteTimeout  = 5 * time.Second
	defaultInboundBuffer = 64
	stateBuffer          = 8
)

// Config controls Dial.
type Config struct {
	URL           string
	Dialer        *websocket.Dialer
	Publisher     logging.Publisher
	Logger        telemetry.Logger
	Counters      *telemetry.Counters
	WriteTimeout  time.Duration
	InboundBuffer int
}

// Conn is a client websocket. Inbound messages are delivered on a single
// channel in arrival order; the channel closes when the connection ends.
type Conn struct {
	conn     *websocket.Conn
	url      string
	pub      logging.Publisher
	logger   telemetry.Logger
	counters *telemetry.Counters
	timeout  time.Duration

	inbound chan proto.Inbound
	states  chan SocketState
	state   atomic.Int32
	done    chan struct{}
	closing chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// Dial connects to cfg.URL and starts the read loop.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	if cfg.URL == "" {
		return nil, errors.New("ws: missing url")
	}
	c := &Conn{
		url:      cfg.URL,
		pub:      cfg.Publisher,
		logger:   cfg.Logger,
		counters: cfg.Counters,
		timeout:  cfg.WriteTimeout,
		states:   make(chan SocketState, stateBuffer),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
	}
	if c.pub == nil {
		c.pub = logging.NopPublisher()
	}
	if c.logger == nil {
		c.logger = telemetry.LoggerFunc(nil)
	}
	if c.timeout <= 0 {
		c.timeout = defaultWriteTimeout
	}
	buffer := cfg.InboundBuffer
	if buffer <= 0 {
		buffer = defaultInboundBuffer
	}
	c.inbound = make(chan proto.Inbound, buffer)

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	c.transition(Connecting, nil)
	conn, resp, err := dialer.DialContext(ctx, cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.transition(Closed, err)
		close(c.inbound)
		close(c.done)
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	c.conn = conn
	c.transition(Open, nil)

	go c.readLoop()
	return c, nil
}

// Inbound returns the decoded message stream.
func (c *Conn) Inbound() <-chan proto.Inbound {
	return c.inbound
}

// States reports state transitions. Transitions are dropped when nobody
// drains the channel; State always reports the latest value.
func (c *Conn) States() <-chan SocketState {
	return c.states
}

func (c *Conn) State() SocketState {
	return SocketState(c.state.Load())
}

// Done is closed once the read loop has stopped.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the connection, if any.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Send encodes msg and writes it as a text frame.
func (c *Conn) Send(msg proto.Outbound) error {
	if state := c.State(); state != Open {
		return ErrClosed
	}
	data, err := proto.EncodeOutbound(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return c.sendFailed(msg, err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return c.sendFailed(msg, err)
	}
	return nil
}

func (c *Conn) sendFailed(msg proto.Outbound, err error) error {
	network.SendFailed(context.Background(), c.pub, c.actor(), network.SendFailedPayload{Message: msg.OutboundTag(), Error: err.Error()}, nil)
	return fmt.Errorf("send %s: %w", msg.OutboundTag(), err)
}

// Close sends a normal closure frame and tears the connection down. It
// blocks until the read loop has exited.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.conn == nil {
			return
		}
		c.transition(Closing, nil)
		close(c.closing)
		c.writeMu.Lock()
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(c.timeout))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	<-c.done
	return err
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.inbound)

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			if c.State() == Closing || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.transition(Closed, nil)
			} else {
				c.setErr(err)
				c.transition(Closed, err)
			}
			c.conn.Close()
			return
		}

		if messageType != websocket.TextMessage {
			c.discard("binary", len(payload), nil)
			continue
		}

		msg, err := proto.DecodeInbound(payload)
		if err != nil {
			c.discard("malformed", len(payload), err)
			continue
		}
		c.counters.RecordFrame(false)
		select {
		case c.inbound <- msg:
		case <-c.closing:
			c.transition(Closed, nil)
			return
		}
	}
}

func (c *Conn) discard(reason string, size int, err error) {
	c.counters.RecordFrame(true)
	payload := network.FrameDiscardedPayload{Reason: reason, Bytes: size}
	if err != nil {
		payload.Error = err.Error()
		c.logger.Printf("discarding %s frame from %s: %v", reason, c.url, err)
	} else {
		c.logger.Printf("discarding %s frame from %s", reason, c.url)
	}
	network.FrameDiscarded(context.Background(), c.pub, c.actor(), payload, nil)
}

func (c *Conn) transition(next SocketState, err error) {
	prev := SocketState(c.state.Swap(int32(next)))
	if prev == next {
		return
	}
	select {
	case c.states <- next:
	default:
	}
	payload := network.SocketStatePayload{From: prev.String(), To: next.String(), URL: c.url}
	if err != nil {
		payload.Error = err.Error()
	}
	network.SocketState(context.Background(), c.pub, c.actor(), payload, nil)
}

func (c *Conn) setErr(err error) {
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
}

func (c *Conn) actor() logging.EntityRef {
	return logging.EntityRef{ID: c.url, Kind: logging.EntityKindConnection}
}
