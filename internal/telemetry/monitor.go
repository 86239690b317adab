package telemetry

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/angeloszaimis/weather-gateway/internal/reqctx"
)

// Thresholds are the breach levels the monitor logs about. Breaches
// never fail the request.
type Thresholds struct {
	SlowRequest time.Duration
	MemoryDelta int64 // bytes
	CPUTime     time.Duration
}

// Monitor wraps the whole pipeline with wall-clock and process resource
// accounting, correlated by trace id. Finalization runs on every exit
// path, including panics and short-circuited rejections further down
// the chain.
type Monitor struct {
	collector  *Collector
	proc       *process.Process
	thresholds Thresholds
	logger     *slog.Logger
}

func NewMonitor(collector *Collector, thresholds Thresholds, logger *slog.Logger) *Monitor {
	// A nil process handle degrades resource deltas to zero rather than
	// failing monitor construction.
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("process handle unavailable, resource deltas disabled", slog.Any("error", err))
		proc = nil
	}

	return &Monitor{
		collector:  collector,
		proc:       proc,
		thresholds: thresholds,
		logger:     logger,
	}
}

func (m *Monitor) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, meta := reqctx.Ensure(r)

			start := time.Now()
			startRSS, startCPU := m.snapshot()

			tw := &timingWriter{
				ResponseWriter: w,
				monitor:        m,
				traceID:        meta.TraceID,
				start:          start,
				startRSS:       startRSS,
				startCPU:       startCPU,
				status:         http.StatusOK,
			}

			defer func() {
				end := time.Now()
				endRSS, endCPU := m.snapshot()

				sample := Sample{
					TraceID:     meta.TraceID,
					RequestID:   meta.RequestID,
					Route:       r.URL.Path,
					Method:      r.Method,
					Status:      tw.status,
					Start:       start,
					End:         end,
					Duration:    end.Sub(start),
					MemoryDelta: endRSS - startRSS,
					CPUTime:     endCPU - startCPU,
				}

				m.finalize(sample)
			}()

			next.ServeHTTP(tw, r)
		})
	}
}

func (m *Monitor) finalize(s Sample) {
	if m.collector != nil {
		m.collector.Record(s)
	}

	if s.Duration > m.thresholds.SlowRequest {
		m.logger.Warn("slow request",
			slog.String("trace_id", s.TraceID),
			slog.String("route", s.Route),
			slog.Duration("duration", s.Duration),
			slog.Duration("threshold", m.thresholds.SlowRequest))
	}

	if s.MemoryDelta > m.thresholds.MemoryDelta {
		m.logger.Warn("high memory delta",
			slog.String("trace_id", s.TraceID),
			slog.String("route", s.Route),
			slog.Int64("memory_delta", s.MemoryDelta),
			slog.Int64("threshold", m.thresholds.MemoryDelta))
	}

	if s.CPUTime > m.thresholds.CPUTime {
		m.logger.Warn("high cpu time",
			slog.String("trace_id", s.TraceID),
			slog.String("route", s.Route),
			slog.Duration("cpu_time", s.CPUTime),
			slog.Duration("threshold", m.thresholds.CPUTime))
	}

	m.logger.Info("request completed",
		slog.String("trace_id", s.TraceID),
		slog.String("request_id", s.RequestID),
		slog.String("method", s.Method),
		slog.String("route", s.Route),
		slog.Int("status", s.Status),
		slog.Duration("duration", s.Duration))
}

// snapshot reads the process resident set size and accumulated CPU
// time. Probe errors degrade to zeros; telemetry never fails a request.
func (m *Monitor) snapshot() (rss int64, cpu time.Duration) {
	if m.proc == nil {
		return 0, 0
	}

	if mem, err := m.proc.MemoryInfo(); err == nil {
		rss = int64(mem.RSS)
	}

	if times, err := m.proc.Times(); err == nil {
		cpu = time.Duration((times.User + times.System) * float64(time.Second))
	}

	return rss, cpu
}

// timingWriter stamps the diagnostic headers just before the status
// line goes out, since headers cannot change after WriteHeader.
type timingWriter struct {
	http.ResponseWriter
	monitor  *Monitor
	traceID  string
	start    time.Time
	startRSS int64
	startCPU time.Duration
	status   int
	wrote    bool
}

func (tw *timingWriter) WriteHeader(status int) {
	if tw.wrote {
		return
	}
	tw.wrote = true
	tw.status = status

	rss, cpu := tw.monitor.snapshot()
	elapsed := time.Since(tw.start)

	h := tw.Header()
	h.Set("X-Trace-ID", tw.traceID)
	h.Set("X-Response-Time", fmt.Sprintf("%dms", elapsed.Milliseconds()))
	h.Set("X-Memory-Usage", fmt.Sprintf("%.2fMB", float64(rss-tw.startRSS)/(1024*1024)))
	h.Set("X-CPU-Usage", fmt.Sprintf("%.2fms", float64(cpu-tw.startCPU)/float64(time.Millisecond)))

	tw.ResponseWriter.WriteHeader(status)
}

func (tw *timingWriter) Write(b []byte) (int, error) {
	if !tw.wrote {
		tw.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}
