package stats

import (
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	s := New()
	if s == nil {
		t.Fatal("New() returned nil")
	}

	snap := s.Snapshot()
	if snap.TotalRequests != 0 {
		t.Errorf("expected 0 requests, got %d", snap.TotalRequests)
	}
	if snap.P50 != 0 {
		t.Errorf("expected zero P50 without samples, got %v", snap.P50)
	}
}

func TestBeginEnd(t *testing.T) {
	s := New()

	s.Begin()
	s.Begin()
	if got := s.Snapshot().InFlight; got != 2 {
		t.Errorf("expected 2 in flight, got %d", got)
	}

	s.End(200, 10*time.Millisecond, 100)
	s.End(404, 20*time.Millisecond, 50)
	s.End(500, 30*time.Millisecond, -1)

	snap := s.Snapshot()
	if snap.InFlight != 0 {
		t.Errorf("in flight should not go below 0, got %d", snap.InFlight)
	}
	if snap.TotalRequests != 3 {
		t.Errorf("expected 3 requests, got %d", snap.TotalRequests)
	}
	if snap.ClientErrors != 1 || snap.ServerErrors != 1 {
		t.Errorf("expected 1 client and 1 server error, got %d/%d", snap.ClientErrors, snap.ServerErrors)
	}
	if snap.TotalBytes != 150 {
		t.Errorf("expected 150 bytes, got %d", snap.TotalBytes)
	}
	if snap.Last != 30*time.Millisecond {
		t.Errorf("expected last 30ms, got %v", snap.Last)
	}
}

func TestPercentiles(t *testing.T) {
	s := New()
	for i := 1; i <= 100; i++ {
		s.End(200, time.Duration(i)*time.Millisecond, 0)
	}

	snap := s.Snapshot()
	if snap.P50 != 51*time.Millisecond {
		t.Errorf("P50 = %v, want 51ms", snap.P50)
	}
	if snap.P90 != 91*time.Millisecond {
		t.Errorf("P90 = %v, want 91ms", snap.P90)
	}
	if snap.P99 != 100*time.Millisecond {
		t.Errorf("P99 = %v, want 100ms", snap.P99)
	}
}

func TestRingBufferOverflow(t *testing.T) {
	s := NewWithOptions(10)
	for i := 1; i <= 15; i++ {
		s.End(200, time.Duration(i)*time.Millisecond, 0)
	}

	snap := s.Snapshot()
	if snap.TotalRequests != 15 {
		t.Errorf("expected 15 requests, got %d", snap.TotalRequests)
	}
	// samples 6..15 remain
	if snap.P50 != 11*time.Millisecond {
		t.Errorf("P50 = %v, want 11ms", snap.P50)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Begin()
			s.End(200, time.Millisecond, 10)
			_ = s.Snapshot()
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.TotalRequests != 50 {
		t.Errorf("expected 50 requests, got %d", snap.TotalRequests)
	}
	if snap.InFlight != 0 {
		t.Errorf("expected 0 in flight, got %d", snap.InFlight)
	}
}

func TestReset(t *testing.T) {
	s := New()
	s.End(500, time.Second, 1)
	s.Reset()

	snap := s.Snapshot()
	if snap.TotalRequests != 0 || snap.ServerErrors != 0 || snap.Last != 0 {
		t.Errorf("expected cleared stats, got %+v", snap)
	}
}
