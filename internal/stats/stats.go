// Package stats keeps request counters and latency percentiles for the
// health endpoint.
package stats

import (
	"sort"
	"sync"
	"time"
)

// Stats is safe for concurrent use by request handlers.
type Stats struct {
	mu sync.RWMutex

	totalRequests int64
	inFlight      int64
	clientErrors  int64
	serverErrors  int64
	totalBytes    int64

	// ring of recent latencies for percentiles
	latencies  []time.Duration
	maxSamples int

	startTime time.Time
}

// Snapshot is a point-in-time copy, serialized by /healthz.
type Snapshot struct {
	TotalRequests int64 `json:"totalRequests"`
	InFlight      int64 `json:"inFlight"`
	ClientErrors  int64 `json:"clientErrors"`
	ServerErrors  int64 `json:"serverErrors"`
	TotalBytes    int64 `json:"totalBytes"`

	Last time.Duration `json:"lastNs"`
	P50  time.Duration `json:"p50Ns"`
	P90  time.Duration `json:"p90Ns"`
	P99  time.Duration `json:"p99Ns"`

	Uptime time.Duration `json:"uptimeNs"`
}

func New() *Stats {
	return NewWithOptions(500)
}

func NewWithOptions(maxSamples int) *Stats {
	if maxSamples <= 0 {
		maxSamples = 500
	}
	return &Stats{
		latencies:  make([]time.Duration, 0, maxSamples),
		maxSamples: maxSamples,
		startTime:  time.Now(),
	}
}

// Begin marks a request as in flight.
func (s *Stats) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
}

// End records a finished request started with Begin.
func (s *Stats) End(status int, duration time.Duration, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight > 0 {
		s.inFlight--
	}
	s.totalRequests++
	if bytes > 0 {
		s.totalBytes += bytes
	}
	switch {
	case status >= 500:
		s.serverErrors++
	case status >= 400:
		s.clientErrors++
	}

	if len(s.latencies) >= s.maxSamples {
		copy(s.latencies, s.latencies[1:])
		s.latencies = s.latencies[:len(s.latencies)-1]
	}
	s.latencies = append(s.latencies, duration)
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		TotalRequests: s.totalRequests,
		InFlight:      s.inFlight,
		ClientErrors:  s.clientErrors,
		ServerErrors:  s.serverErrors,
		TotalBytes:    s.totalBytes,
		Uptime:        time.Since(s.startTime),
	}

	n := len(s.latencies)
	if n == 0 {
		return snap
	}
	snap.Last = s.latencies[n-1]

	sorted := make([]time.Duration, n)
	copy(sorted, s.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	snap.P50 = percentile(sorted, 0.5)
	snap.P90 = percentile(sorted, 0.9)
	snap.P99 = percentile(sorted, 0.99)
	return snap
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	i := int(float64(len(sorted)) * p)
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests = 0
	s.inFlight = 0
	s.clientErrors = 0
	s.serverErrors = 0
	s.totalBytes = 0
	s.latencies = s.latencies[:0]
	s.startTime = time.Now()
}
