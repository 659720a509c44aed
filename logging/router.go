package logging

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Clock stamps events that arrive without a time.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Sink receives events from a dedicated worker goroutine.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

var ErrUnnamedSink = errors.New("logging: sink without name")

const (
	defaultBufferSize = 512
	minSinkBuffer     = 32
	maxSinkBuffer     = 1024
	maxSinkBackoff    = 30 * time.Second
)

// Router fans published events out to sinks without blocking publishers.
// Events published while a queue is full are counted and dropped.
type Router struct {
	queue    chan Event
	stop     chan struct{}
	workers  []*sinkWorker
	clock    Clock
	fallback *log.Logger
	severity Severity
	fields   map[string]any
	warn     dropWarning
	closed   atomic.Bool
	running  sync.WaitGroup

	forwarded atomic.Uint64
	dropped   atomic.Uint64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
	// SinkDropped counts events a sink's own backlog refused.
	SinkDropped map[string]uint64
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	fallback := log.New(os.Stderr, "[webtron/logging] ", log.LstdFlags)

	r := &Router{
		queue:    make(chan Event, size),
		stop:     make(chan struct{}),
		clock:    clock,
		fallback: fallback,
		severity: cfg.MinimumSeverity,
		fields:   cfg.CloneFields(),
		warn:     dropWarning{interval: cfg.DropWarnInterval},
	}
	for _, named := range namedSinks {
		if named.Name == "" {
			return nil, ErrUnnamedSink
		}
		if named.Sink == nil {
			continue
		}
		r.workers = append(r.workers, newSinkWorker(named, clamp(size, minSinkBuffer, maxSinkBuffer), fallback))
	}

	r.running.Add(1 + len(r.workers))
	go r.dispatch()
	for _, w := range r.workers {
		go func(w *sinkWorker) {
			defer r.running.Done()
			w.run()
		}(w)
	}
	return r, nil
}

func (r *Router) dispatch() {
	defer r.running.Done()
	defer func() {
		for _, w := range r.workers {
			close(w.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.forward(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.severity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.fields)
	r.forwarded.Add(1)
	for _, w := range r.workers {
		w.enqueue(event)
	}
}

// Publish queues the event. It never blocks.
func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.dropped.Add(1)
		if r.warn.due(r.clock.Now()) {
			r.fallback.Printf("dropping event type=%s seq=%d", event.Type, event.Seq)
		}
	}
}

// Close flushes queued events to the sinks and closes them. Calls after the
// first wait for ctx.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		<-ctx.Done()
		return ctx.Err()
	}
	close(r.stop)

	finished := make(chan struct{})
	go func() {
		r.running.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}

	var errs []error
	for _, w := range r.workers {
		if err := w.sink.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.forwarded.Load(),
		DroppedTotal: r.dropped.Load(),
	}
	for _, w := range r.workers {
		if n := w.dropped.Load(); n > 0 {
			if stats.SinkDropped == nil {
				stats.SinkDropped = make(map[string]uint64)
			}
			stats.SinkDropped[w.name] = n
		}
	}
	return stats
}

func (r *Router) Sink(name string) Sink {
	for _, w := range r.workers {
		if w.name == name {
			return w.sink
		}
	}
	return nil
}

// dropWarning rate limits the fallback warning for a full queue.
type dropWarning struct {
	interval time.Duration
	next     atomic.Int64
}

func (d *dropWarning) due(now time.Time) bool {
	interval := d.interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	next := d.next.Load()
	if next != 0 && now.UnixNano() < next {
		return false
	}
	return d.next.CompareAndSwap(next, now.Add(interval).UnixNano())
}

type sinkWorker struct {
	name     string
	sink     Sink
	events   chan Event
	fallback *log.Logger
	dropped  atomic.Uint64
	failures int
}

func newSinkWorker(named NamedSink, buffer int, fallback *log.Logger) *sinkWorker {
	return &sinkWorker{
		name:     named.Name,
		sink:     named.Sink,
		events:   make(chan Event, buffer),
		fallback: fallback,
	}
}

func (w *sinkWorker) enqueue(event Event) {
	select {
	case w.events <- cloneEvent(event):
	default:
		if w.dropped.Add(1) == 1 {
			w.fallback.Printf("sink %s backlog full, dropping events starting with type=%s", w.name, event.Type)
		}
	}
}

// run writes events in order, backing off after each consecutive failure.
func (w *sinkWorker) run() {
	for event := range w.events {
		if err := w.sink.Write(event); err != nil {
			w.failures++
			delay := w.backoff()
			w.fallback.Printf("sink %s failed: %v (retry in %s)", w.name, err, delay)
			time.Sleep(delay)
			continue
		}
		w.failures = 0
	}
}

func (w *sinkWorker) backoff() time.Duration {
	delay := time.Second << clamp(w.failures-1, 0, 5)
	if delay > maxSinkBackoff {
		return maxSinkBackoff
	}
	return delay
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
