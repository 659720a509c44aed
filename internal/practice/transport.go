package practice

import (
	"context"
	"errors"
	"sync"

	"webtron/client/internal/arena"
	"webtron/client/internal/net/proto"
	"webtron/client/internal/schedule"
	"webtron/client/internal/telemetry"
)

// ErrClosed is returned by Send once the transport has shut down.
var ErrClosed = errors.New("practice: transport closed")

const (
	defaultInboundBuffer = 256
	defaultIntentBuffer  = 64
)

// TransportConfig wires an Authority to a tick source and clock.
type TransportConfig struct {
	Authority Config
	// Source drives simulation steps. Defaults to a ticker at
	// DefaultTickRate.
	Source schedule.Source
	Clock  schedule.Clock
	Logger telemetry.Logger
}

// Transport is a loopback connection to an in-process Authority. Intents and
// messages pass through the same JSON encoding as the websocket transport.
type Transport struct {
	auth   *Authority
	source schedule.Source
	clock  schedule.Clock
	logger telemetry.Logger

	intents chan []byte
	inbound chan proto.Inbound
	closing chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	local     arena.ID
}

// Open starts the authority loop. The loop stops when ctx is cancelled or
// Close is called.
func Open(ctx context.Context, cfg TransportConfig) *Transport {
	t := &Transport{
		auth:    NewAuthority(cfg.Authority),
		source:  cfg.Source,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		intents: make(chan []byte, defaultIntentBuffer),
		inbound: make(chan proto.Inbound, defaultInboundBuffer),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	if t.source == nil {
		t.source = schedule.NewTicker(DefaultTickRate)
	}
	if t.clock == nil {
		t.clock = schedule.SystemClock
	}
	if t.logger == nil {
		t.logger = telemetry.LoggerFunc(nil)
	}
	go t.loop(ctx)
	return t
}

// Inbound returns server messages in delivery order. It closes when the
// loop stops.
func (t *Transport) Inbound() <-chan proto.Inbound {
	return t.inbound
}

// Done is closed once the loop has stopped.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Send queues an intent for the authority.
func (t *Transport) Send(msg proto.Outbound) error {
	data, err := proto.EncodeOutbound(msg)
	if err != nil {
		return err
	}
	select {
	case <-t.done:
		return ErrClosed
	case <-t.closing:
		return ErrClosed
	default:
	}
	select {
	case t.intents <- data:
		return nil
	case <-t.closing:
		return ErrClosed
	case <-t.done:
		return ErrClosed
	}
}

// Close stops the loop and waits for it to exit.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() { close(t.closing) })
	<-t.done
	return nil
}

func (t *Transport) loop(ctx context.Context) {
	defer close(t.done)
	defer close(t.inbound)
	defer t.source.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.closing:
			return
		case data := <-t.intents:
			if !t.deliver(t.handle(ctx, data)) {
				return
			}
		case _, ok := <-t.source.C():
			if !ok {
				return
			}
			if !t.deliver(t.auth.Step(ctx, t.clock.Now())) {
				return
			}
		}
	}
}

func (t *Transport) handle(ctx context.Context, data []byte) []proto.Inbound {
	msg, err := proto.DecodeOutbound(data)
	if err != nil {
		t.logger.Printf("practice: dropping intent: %v", err)
		return nil
	}
	now := t.clock.Now()
	switch m := msg.(type) {
	case proto.GetArenaList:
		return t.auth.List()
	case proto.Join:
		id, out, err := t.auth.Join(m.Player, m.ArenaID)
		if err != nil {
			t.logger.Printf("practice: join refused: %v", err)
			return nil
		}
		t.local = id
		return out
	case proto.Start:
		return t.auth.Start(now)
	case proto.Turn:
		return t.auth.Turn(t.local, m.Direction, now)
	default:
		return nil
	}
}

// deliver hands msgs to the consumer through the wire encoding. It reports
// false when the transport is closing.
func (t *Transport) deliver(msgs []proto.Inbound) bool {
	for _, msg := range msgs {
		data, err := proto.EncodeInbound(msg)
		if err != nil {
			t.logger.Printf("practice: encode %s: %v", msg.Tag(), err)
			continue
		}
		decoded, err := proto.DecodeInbound(data)
		if err != nil {
			t.logger.Printf("practice: decode %s: %v", msg.Tag(), err)
			continue
		}
		select {
		case t.inbound <- decoded:
		case <-t.closing:
			return false
		}
	}
	return true
}
