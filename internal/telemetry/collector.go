package telemetry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Sample is one finalized per-request telemetry record. Samples live in
// a bounded in-memory ring and are purged once older than the retention
// window.
type Sample struct {
	TraceID     string        `json:"trace_id"`
	RequestID   string        `json:"request_id"`
	Route       string        `json:"route"`
	Method      string        `json:"method"`
	Status      int           `json:"status"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Duration    time.Duration `json:"duration"`
	MemoryDelta int64         `json:"memory_delta"`
	CPUTime     time.Duration `json:"cpu_time"`
}

// Collector aggregates samples off the request path. Requests emit into
// a buffered channel; a dedicated goroutine folds samples into the
// per-route statistics and the retention ring.
type Collector struct {
	sampleCh  chan Sample
	stats     *stats
	retention time.Duration
	logger    *slog.Logger
}

func NewCollector(bufferSize int, retention time.Duration, logger *slog.Logger) *Collector {
	return &Collector{
		sampleCh:  make(chan Sample, bufferSize),
		stats:     newStats(),
		retention: retention,
		logger:    logger,
	}
}

// Record hands a sample to the collector without blocking the request.
// A full buffer drops the sample rather than stalling the response.
func (c *Collector) Record(s Sample) {
	select {
	case c.sampleCh <- s:
	default:
		c.logger.Warn("telemetry buffer full, dropping sample",
			slog.String("trace_id", s.TraceID))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Telemetry collector started")
	defer c.logger.Info("Telemetry collector stopped")

	for {
		select {
		case s := <-c.sampleCh:
			c.stats.record(s, c.retention)
		case <-ctx.Done():
			// Drain remaining samples before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) drain() {
	for {
		select {
		case s := <-c.sampleCh:
			c.stats.record(s, c.retention)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.stats.snapshot()
}

// Samples returns the retained samples, newest last.
func (c *Collector) Samples() []Sample {
	return c.stats.retained()
}

const maxDurationsPerRoute = 1000

type stats struct {
	mutex       sync.RWMutex
	requests    map[string]int64
	statusCodes map[string]map[int]int64
	durations   map[string][]time.Duration
	samples     []Sample
	startTime   time.Time
}

type Snapshot struct {
	TotalRequests int64                 `json:"total_requests"`
	Uptime        time.Duration         `json:"uptime"`
	Routes        map[string]RouteStats `json:"routes"`
}

type RouteStats struct {
	Requests    int64         `json:"requests"`
	StatusCodes map[int]int64 `json:"status_codes"`
	AvgDuration time.Duration `json:"avg_duration"`
	P50Duration time.Duration `json:"p50_duration"`
	P95Duration time.Duration `json:"p95_duration"`
	P99Duration time.Duration `json:"p99_duration"`
}

func newStats() *stats {
	return &stats{
		requests:    make(map[string]int64),
		statusCodes: make(map[string]map[int]int64),
		durations:   make(map[string][]time.Duration),
		startTime:   time.Now(),
	}
}

func (s *stats) record(sample Sample, retention time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.requests[sample.Route]++

	if s.statusCodes[sample.Route] == nil {
		s.statusCodes[sample.Route] = make(map[int]int64)
	}
	s.statusCodes[sample.Route][sample.Status]++

	s.durations[sample.Route] = append(s.durations[sample.Route], sample.Duration)
	if len(s.durations[sample.Route]) > maxDurationsPerRoute {
		s.durations[sample.Route] = s.durations[sample.Route][1:]
	}

	s.samples = append(s.samples, sample)
	s.purgeLocked(sample.End.Add(-retention))
}

// purgeLocked drops retained samples that ended before the cutoff.
// Callers hold the write lock.
func (s *stats) purgeLocked(cutoff time.Time) {
	firstLive := 0
	for firstLive < len(s.samples) && s.samples[firstLive].End.Before(cutoff) {
		firstLive++
	}
	if firstLive > 0 {
		s.samples = append([]Sample(nil), s.samples[firstLive:]...)
	}
}

func (s *stats) retained() []Sample {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]Sample(nil), s.samples...)
}

func (s *stats) snapshot() Snapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	snap := Snapshot{
		Uptime: time.Since(s.startTime),
		Routes: make(map[string]RouteStats),
	}

	for route, count := range s.requests {
		snap.TotalRequests += count

		rs := RouteStats{
			Requests:    count,
			StatusCodes: s.statusCodes[route],
		}

		durations := s.durations[route]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			rs.AvgDuration = average(sorted)
			rs.P50Duration = percentile(sorted, 0.50)
			rs.P95Duration = percentile(sorted, 0.95)
			rs.P99Duration = percentile(sorted, 0.99)
		}

		snap.Routes[route] = rs
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
