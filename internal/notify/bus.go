// Package notify delivers best-effort account notifications. Producers call
// Dispatcher.Notify, which never blocks and never fails; delivery happens on
// background workers and is at most once.
package notify

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
)

type Event struct {
	RecipientID uint
	Username    string
	Email       string
	Message     string
	Sentiment   string
	Timestamp   time.Time
}

// Dispatcher is the only notification interface services depend on.
type Dispatcher interface {
	Notify(Event)
}

// Sink delivers one event somewhere. Errors are logged by the bus.
type Sink interface {
	Deliver(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Deliver(ctx context.Context, e Event) error { return f(ctx, e) }

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(Event) {}

// Bus fans events out to its sinks from a fixed set of workers.
type Bus struct {
	events  chan Event
	sinks   []Sink
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// NewBus starts workers goroutines reading from a buffer of size events.
// Each sink call is bounded by timeout.
func NewBus(size, workers int, timeout time.Duration, sinks ...Sink) *Bus {
	if size <= 0 {
		size = 256
	}
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	b := &Bus{
		events:  make(chan Event, size),
		sinks:   sinks,
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.run()
	}
	return b
}

// Notify queues e without blocking. A full buffer or a closed bus drops it.
func (b *Bus) Notify(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		return
	}
	select {
	case b.events <- e:
	default:
		b.dropped.Add(1)
		log.Printf("Warning: notification buffer full, dropping event for account %d", e.RecipientID)
	}
}

// Dropped reports how many events were discarded.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Bus) run() {
	defer b.wg.Done()
	for e := range b.events {
		for _, sink := range b.sinks {
			b.deliver(sink, e)
		}
	}
}

func (b *Bus) deliver(sink Sink, e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("notification sink panicked: %v", r)
		}
	}()
	if err := sink.Deliver(ctx, e); err != nil {
		log.Printf("Failed to deliver notification to account %d: %v", e.RecipientID, err)
	}
}

// Close stops accepting events, drains the buffer and waits for workers.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()

	b.wg.Wait()
}
