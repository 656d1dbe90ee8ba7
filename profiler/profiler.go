// Package profiler - Per-stage timings and counters for the detection loop.
package profiler

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Options configures the profiler.
type Options struct {
	// ReportInterval specifies how often MaybeReport emits a report (default: 5s).
	ReportInterval time.Duration
	// MaxSamples specifies the sliding window kept per metric and operation (default: 600).
	MaxSamples int
}

// Profiler tracks operation timings and custom metrics, and reports them through a logger.
//
// Reports are emitted synchronously by MaybeReport, from the caller's goroutine; the
// profiler never starts goroutines of its own. It is safe for concurrent use.
type Profiler struct {
	reportInterval time.Duration
	maxSamples     int
	logger         *zap.Logger
	now            func() time.Time

	mu         sync.Mutex
	startTime  time.Time
	lastReport time.Time
	frames     int64
	lastFrames int64
	memStats   runtime.MemStats
	metrics    map[string]*metricTracker
	operations map[string]*timeTracker
}

// metricTracker tracks statistics for a custom metric.
type metricTracker struct {
	values []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

// timeTracker tracks operation timing statistics.
type timeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// MetricStats is a summary of a custom metric over the sample window.
type MetricStats struct {
	Avg, Min, Max float64
	Samples       int
	Count         int64
}

// OperationStats is a summary of an operation's timings over the sample window.
type OperationStats struct {
	Avg, Min, Max time.Duration
	Samples       int
	Count         int64
}

// Stats is a point-in-time copy of everything the profiler tracks.
type Stats struct {
	Uptime     time.Duration
	Frames     int64
	Metrics    map[string]MetricStats
	Operations map[string]OperationStats
}

// New creates a profiler.
//
// Arguments:
//   - opts: Configuration options for the profiler.
//   - logger: Receives the reports; nil discards them.
//
// Returns:
//   - *Profiler: A configured profiler.
func New(opts Options, logger *zap.Logger) *Profiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 5 * time.Second
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Profiler{
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		logger:         logger,
		now:            time.Now,
		metrics:        make(map[string]*metricTracker),
		operations:     make(map[string]*timeTracker),
	}
	p.startTime = p.now()
	p.lastReport = p.startTime
	return p
}

// CountFrame records one processed frame for the frames-per-second figure.
func (p *Profiler) CountFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames++
}

// RecordMetric records a custom metric value.
//
// Arguments:
//   - name: The name of the metric.
//   - value: The metric value to record.
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.metrics[name]
	if !exists {
		tracker = &metricTracker{
			values: make([]float64, 0, p.maxSamples),
			min:    value,
			max:    value,
		}
		p.metrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	if len(tracker.values) > p.maxSamples {
		// Remove oldest sample.
		tracker.sum -= tracker.values[0]
		tracker.values = tracker.values[1:]
	}

	tracker.sum += value
	tracker.count++
	tracker.min = min(tracker.min, value)
	tracker.max = max(tracker.max, value)
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The name of the operation to track.
//
// Returns:
//   - func(): Call when the operation completes.
//
// @example
// done := p.StartOperation("detect")
// results, err := detector.Detect(ctx, frame)
// done()
func (p *Profiler) StartOperation(name string) func() {
	start := p.now()
	return func() {
		p.RecordDuration(name, p.now().Sub(start))
	}
}

// RecordDuration records the completion time of an operation.
func (p *Profiler) RecordDuration(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operations[name]
	if !exists {
		tracker = &timeTracker{minTime: duration, maxTime: duration}
		p.operations[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	if len(tracker.durations) > p.maxSamples {
		// Remove oldest sample.
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}

	tracker.totalTime += duration
	tracker.count++
	tracker.minTime = min(tracker.minTime, duration)
	tracker.maxTime = max(tracker.maxTime, duration)
}

// MaybeReport emits a report when ReportInterval has passed since the previous one.
//
// Arguments:
//   - now: The current time.
//
// Returns:
//   - bool: Whether a report was emitted.
func (p *Profiler) MaybeReport(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if now.Sub(p.lastReport) < p.reportInterval {
		return false
	}
	p.report(now)
	return true
}

// Report emits a report immediately, typically once when the loop stops.
func (p *Profiler) Report() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report(p.now())
}

func (p *Profiler) report(now time.Time) {
	elapsed := now.Sub(p.lastReport)
	fps := 0.0
	if elapsed > 0 {
		fps = float64(p.frames-p.lastFrames) / elapsed.Seconds()
	}
	runtime.ReadMemStats(&p.memStats)

	fields := []zap.Field{
		zap.Duration("uptime", now.Sub(p.startTime).Truncate(time.Millisecond)),
		zap.Int64("frames", p.frames),
		zap.Float64("fps", fps),
		zap.Int("goroutines", runtime.NumGoroutine()),
		zap.Int64("cgo_calls", runtime.NumCgoCall()),
		zap.String("heap_alloc", formatBytes(p.memStats.HeapAlloc)),
		zap.Uint32("gc_cycles", p.memStats.NumGC),
	}

	for _, name := range sortedKeys(p.operations) {
		s := p.operations[name].stats()
		fields = append(fields, zap.Dict(name,
			zap.Duration("avg", s.Avg.Truncate(time.Microsecond)),
			zap.Duration("min", s.Min.Truncate(time.Microsecond)),
			zap.Duration("max", s.Max.Truncate(time.Microsecond)),
			zap.Int("samples", s.Samples),
		))
	}
	for _, name := range sortedKeys(p.metrics) {
		s := p.metrics[name].stats()
		fields = append(fields, zap.Dict(name,
			zap.Float64("avg", s.Avg),
			zap.Float64("min", s.Min),
			zap.Float64("max", s.Max),
			zap.Int("samples", s.Samples),
		))
	}

	p.logger.Info("profiler report", fields...)
	p.lastReport = now
	p.lastFrames = p.frames
}

// Snapshot returns the current statistics.
func (p *Profiler) Snapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Uptime:     p.now().Sub(p.startTime),
		Frames:     p.frames,
		Metrics:    make(map[string]MetricStats, len(p.metrics)),
		Operations: make(map[string]OperationStats, len(p.operations)),
	}
	for name, t := range p.metrics {
		s.Metrics[name] = t.stats()
	}
	for name, t := range p.operations {
		s.Operations[name] = t.stats()
	}
	return s
}

func (t *metricTracker) stats() MetricStats {
	s := MetricStats{Min: t.min, Max: t.max, Samples: len(t.values), Count: t.count}
	if len(t.values) > 0 {
		s.Avg = t.sum / float64(len(t.values))
	}
	return s
}

func (t *timeTracker) stats() OperationStats {
	s := OperationStats{Min: t.minTime, Max: t.maxTime, Samples: len(t.durations), Count: t.count}
	if len(t.durations) > 0 {
		s.Avg = t.totalTime / time.Duration(len(t.durations))
	}
	return s
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
