// Package app wires configuration, the event router, the transport, the
// client runtime and the terminal view into a playable program.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"sync"

	"github.com/gdamore/tcell/v2"

	"webtron/client/internal/arena"
	"webtron/client/internal/client"
	"webtron/client/internal/net/proto"
	"webtron/client/internal/net/ws"
	"webtron/client/internal/practice"
	"webtron/client/internal/schedule"
	"webtron/client/internal/session"
	"webtron/client/internal/telemetry"
	"webtron/client/internal/view"
	"webtron/client/logging"
	loggingSinks "webtron/client/logging/sinks"
)

// ErrNotConnected is returned for intents issued while no transport is open.
var ErrNotConnected = errors.New("app: not connected")

// Options carries the pieces Run would otherwise create itself.
type Options struct {
	// Screen is drawn on instead of the terminal. The caller owns it and
	// must finalize it.
	Screen tcell.Screen
	// ConsoleOutput receives the console sink. Defaults to stderr.
	ConsoleOutput io.Writer
}

// Run plays until the player quits, ctx is cancelled or the connection is
// lost for good. Quitting is not an error.
func Run(ctx context.Context, cfg Config, opts Options) error {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	router, err := newRouter(cfg, opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if stats := router.Stats(); stats.DroppedTotal > 0 || len(stats.SinkDropped) > 0 {
			logger.Printf("logging router dropped %d events (per sink: %v)", stats.DroppedTotal, stats.SinkDropped)
		}
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := &logging.Metrics{}
	counters := telemetry.NewCounters(telemetry.WrapMetrics(metrics))

	screen := opts.Screen
	if screen == nil {
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to create screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("failed to initialise screen: %w", err)
		}
		defer screen.Fini()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := session.New(session.Config{Publisher: router, Counters: counters, Logger: logger})
	input := &relay{}
	go func() {
		view.Listen(screen, input)
		cancel()
	}()

	presenter := view.New(screen)
	arenaID := cfg.ArenaID
	for resyncs := 0; ; resyncs++ {
		transport, err := open(ctx, cfg, router, counters, logger)
		if err != nil {
			return err
		}
		c, err := client.New(client.Config{
			Transport: transport,
			Source:    schedule.NewTicker(cfg.FPS),
			Session:   sess,
			Presenter: presenter,
			Counters:  counters,
			Logger:    logger,
		})
		if err != nil {
			transport.Close()
			return err
		}
		input.set(c)

		player := arena.Player{Name: cfg.PlayerName, Color: cfg.PlayerColor}
		if err := c.Send(proto.GetArenaList{}); err != nil {
			transport.Close()
			return err
		}
		if err := c.Send(proto.Join{Player: player, ArenaID: arenaID}); err != nil {
			transport.Close()
			return err
		}

		err = c.Run(ctx)
		input.set(nil)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case errors.Is(err, client.ErrResyncRequired) && resyncs < cfg.MaxResyncs:
			logger.Printf("reconnecting after %v", err)
			if status := sess.Status(); status.Joined && !cfg.Practice {
				id := status.ArenaID
				arenaID = &id
			}
			sess.Leave(ctx, "resync")
		default:
			return err
		}
	}
}

// open connects the configured transport.
func open(ctx context.Context, cfg Config, pub logging.Publisher, counters *telemetry.Counters, logger telemetry.Logger) (client.Transport, error) {
	if cfg.Practice {
		return practice.Open(ctx, practice.TransportConfig{
			Authority: practice.Config{Publisher: pub},
			Logger:    logger,
		}), nil
	}
	conn, err := ws.Dial(ctx, ws.Config{
		URL:       cfg.URL,
		Publisher: pub,
		Logger:    logger,
		Counters:  counters,
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// openLogFile opens the json sink's file. Tests replace it.
var openLogFile = func(path string) (io.WriteCloser, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// newRouter builds the configured sinks and the router over them. On error
// the sinks it built are closed; cfg.ExtraSinks stay with the caller.
func newRouter(cfg Config, opts Options, logger telemetry.Logger) (*logging.Router, error) {
	var built []logging.NamedSink
	for _, name := range cfg.Logging.EnabledSinks {
		switch name {
		case logging.SinkConsole:
			out := opts.ConsoleOutput
			if out == nil {
				out = os.Stderr
			}
			built = append(built, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsoleSink(out, cfg.Logging.Console)})
		case logging.SinkJSON:
			file, err := openLogFile(cfg.Logging.JSON.FilePath)
			if err != nil {
				closeSinks(built, logger)
				return nil, fmt.Errorf("failed to open json log %s: %w", cfg.Logging.JSON.FilePath, err)
			}
			built = append(built, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(file, cfg.Logging.JSON.FlushInterval)})
		case logging.SinkMemory:
			built = append(built, logging.NamedSink{Name: name, Sink: loggingSinks.NewMemorySink()})
		default:
			logger.Printf("ignoring unknown log sink %q", name)
		}
	}
	sinks := append(slices.Clip(built), cfg.ExtraSinks...)

	router, err := logging.NewRouter(logging.ClockFunc(schedule.SystemClock.Now), cfg.Logging, sinks)
	if err != nil {
		closeSinks(built, logger)
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	return router, nil
}

func closeSinks(sinks []logging.NamedSink, logger telemetry.Logger) {
	for _, named := range sinks {
		if err := named.Sink.Close(context.Background()); err != nil {
			logger.Printf("failed to close log sink %s: %v", named.Name, err)
		}
	}
}

// relay hands keyboard intents to whichever client is current.
type relay struct {
	mu     sync.Mutex
	client *client.Client
}

func (r *relay) set(c *client.Client) {
	r.mu.Lock()
	r.client = c
	r.mu.Unlock()
}

func (r *relay) Send(msg proto.Outbound) error {
	r.mu.Lock()
	c := r.client
	r.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	return c.Send(msg)
}
