package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	got    chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{got: make(chan struct{}, 100)}
}

func (s *recordingSink) Deliver(_ context.Context, e Event) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	s.got <- struct{}{}
	return nil
}

func (s *recordingSink) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.got:
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d", i+1)
		}
	}
}

func TestBus_FanOut(t *testing.T) {
	s1, s2 := newRecordingSink(), newRecordingSink()
	bus := NewBus(10, 2, time.Second, s1, s2)
	defer bus.Close()

	bus.Notify(Event{RecipientID: 7, Message: "hello", Sentiment: SentimentPositive})

	for i, s := range []*recordingSink{s1, s2} {
		s.wait(t, 1)
		s.mu.Lock()
		e := s.events[0]
		s.mu.Unlock()
		if e.RecipientID != 7 || e.Message != "hello" {
			t.Errorf("sink %d: unexpected event %+v", i, e)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("sink %d: timestamp should be set automatically", i)
		}
	}
}

func TestBus_SinkErrorDoesNotStopDelivery(t *testing.T) {
	failing := SinkFunc(func(context.Context, Event) error { return errors.New("boom") })
	panicking := SinkFunc(func(context.Context, Event) error { panic("sink bug") })
	rec := newRecordingSink()
	bus := NewBus(10, 1, time.Second, failing, panicking, rec)
	defer bus.Close()

	bus.Notify(Event{RecipientID: 1})
	bus.Notify(Event{RecipientID: 2})

	rec.wait(t, 2)
}

func TestBus_NotifyNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	blocking := SinkFunc(func(ctx context.Context, _ Event) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})
	bus := NewBus(1, 1, time.Second, blocking)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Notify(Event{RecipientID: uint(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Notify blocked on a full buffer")
	}
	if bus.Dropped() == 0 {
		t.Error("expected events to be dropped")
	}

	close(release)
	bus.Close()
}

func TestBus_CloseDrains(t *testing.T) {
	rec := newRecordingSink()
	bus := NewBus(10, 1, time.Second, rec)

	for i := 0; i < 5; i++ {
		bus.Notify(Event{RecipientID: uint(i)})
	}
	bus.Close()

	rec.mu.Lock()
	n := len(rec.events)
	rec.mu.Unlock()
	if n != 5 {
		t.Errorf("expected 5 delivered events after Close, got %d", n)
	}

	// after Close events are dropped, not panicking on a closed channel
	bus.Notify(Event{RecipientID: 99})
	if bus.Dropped() != 1 {
		t.Errorf("expected 1 dropped event, got %d", bus.Dropped())
	}
	bus.Close()
}
