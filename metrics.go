package graphcheck

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/graphcheck/report"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    passHistogram *prometheus.HistogramVec
//	    inconsistencies *prometheus.CounterVec
//	}
//
//	func (p *PrometheusCollector) RecordPass(pass string, d time.Duration, err error) {
//	    p.passHistogram.WithLabelValues(pass).Observe(d.Seconds())
//	}
type MetricsCollector interface {
	// RecordPass is called after each pass over a node range.
	// err is nil if the pass completed.
	RecordPass(pass string, duration time.Duration, err error)

	// RecordRecords is called with the number of records a pass read.
	RecordRecords(pass string, n int64)

	// RecordInconsistency is called for every reported inconsistency.
	RecordInconsistency(kind report.Kind)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPass(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordRecords(string, int64)             {}
func (NoopMetricsCollector) RecordInconsistency(report.Kind)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	PassCount       atomic.Int64
	PassErrors      atomic.Int64
	PassTotalNanos  atomic.Int64
	Records         atomic.Int64
	Inconsistencies atomic.Int64

	mu     sync.Mutex
	byPass map[string]int64
	byKind map[report.Kind]int64
}

// RecordPass implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPass(_ string, duration time.Duration, err error) {
	b.PassCount.Add(1)
	b.PassTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PassErrors.Add(1)
	}
}

// RecordRecords implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRecords(pass string, n int64) {
	b.Records.Add(n)
	b.mu.Lock()
	if b.byPass == nil {
		b.byPass = make(map[string]int64)
	}
	b.byPass[pass] += n
	b.mu.Unlock()
}

// RecordInconsistency implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInconsistency(kind report.Kind) {
	b.Inconsistencies.Add(1)
	b.mu.Lock()
	if b.byKind == nil {
		b.byKind = make(map[report.Kind]int64)
	}
	b.byKind[kind]++
	b.mu.Unlock()
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := BasicMetricsStats{
		PassCount:       b.PassCount.Load(),
		PassErrors:      b.PassErrors.Load(),
		PassAvgNanos:    b.getAvgPassNanos(),
		Records:         b.Records.Load(),
		Inconsistencies: b.Inconsistencies.Load(),
		RecordsByPass:   make(map[string]int64, len(b.byPass)),
		ByKind:          make(map[report.Kind]int64, len(b.byKind)),
	}
	for k, v := range b.byPass {
		s.RecordsByPass[k] = v
	}
	for k, v := range b.byKind {
		s.ByKind[k] = v
	}
	return s
}

func (b *BasicMetricsCollector) getAvgPassNanos() int64 {
	count := b.PassCount.Load()
	if count == 0 {
		return 0
	}
	return b.PassTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PassCount       int64
	PassErrors      int64
	PassAvgNanos    int64
	Records         int64
	Inconsistencies int64
	RecordsByPass   map[string]int64
	ByKind          map[report.Kind]int64
}

// metricsSink forwards reported inconsistencies to a MetricsCollector.
type metricsSink struct {
	mc MetricsCollector
}

func (s metricsSink) Record(in report.Inconsistency) error {
	s.mc.RecordInconsistency(in.Kind)
	return nil
}

func (metricsSink) Close() error { return nil }
