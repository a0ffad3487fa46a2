package scego

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    runCounter   prometheus.Counter
//	    runHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordEmbed(iterations uint64, duration time.Duration, err error) {
//	    p.runCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordEmbed is called after each CPU embedding run.
	// iterations is the iteration count completed, err is nil if successful.
	RecordEmbed(iterations uint64, duration time.Duration, err error)

	// RecordDeviceEmbed is called after each device embedding run.
	RecordDeviceEmbed(iterations uint64, duration time.Duration, err error)

	// RecordAffinities is called after affinity calibration.
	// edges is the number of undirected edges produced.
	RecordAffinities(edges int, duration time.Duration, err error)

	// RecordFrames is called once per run with the number of animation
	// frames captured.
	RecordFrames(count int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEmbed(uint64, time.Duration, error)       {}
func (NoopMetricsCollector) RecordDeviceEmbed(uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordAffinities(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordFrames(int)                               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	EmbedCount            atomic.Int64
	EmbedErrors           atomic.Int64
	EmbedIterations       atomic.Int64
	EmbedTotalNanos       atomic.Int64
	DeviceEmbedCount      atomic.Int64
	DeviceEmbedErrors     atomic.Int64
	DeviceEmbedIterations atomic.Int64
	DeviceEmbedTotalNanos atomic.Int64
	AffinityCount         atomic.Int64
	AffinityErrors        atomic.Int64
	AffinityEdges         atomic.Int64
	FramesCaptured        atomic.Int64
}

// RecordEmbed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEmbed(iterations uint64, duration time.Duration, err error) {
	b.EmbedCount.Add(1)
	b.EmbedIterations.Add(int64(iterations))
	b.EmbedTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EmbedErrors.Add(1)
	}
}

// RecordDeviceEmbed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDeviceEmbed(iterations uint64, duration time.Duration, err error) {
	b.DeviceEmbedCount.Add(1)
	b.DeviceEmbedIterations.Add(int64(iterations))
	b.DeviceEmbedTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.DeviceEmbedErrors.Add(1)
	}
}

// RecordAffinities implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAffinities(edges int, duration time.Duration, err error) {
	b.AffinityCount.Add(1)
	b.AffinityEdges.Add(int64(edges))
	if err != nil {
		b.AffinityErrors.Add(1)
	}
}

// RecordFrames implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFrames(count int) {
	b.FramesCaptured.Add(int64(count))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		EmbedCount:            b.EmbedCount.Load(),
		EmbedErrors:           b.EmbedErrors.Load(),
		EmbedIterations:       b.EmbedIterations.Load(),
		EmbedAvgNanos:         avgNanos(b.EmbedTotalNanos.Load(), b.EmbedCount.Load()),
		DeviceEmbedCount:      b.DeviceEmbedCount.Load(),
		DeviceEmbedErrors:     b.DeviceEmbedErrors.Load(),
		DeviceEmbedIterations: b.DeviceEmbedIterations.Load(),
		DeviceEmbedAvgNanos:   avgNanos(b.DeviceEmbedTotalNanos.Load(), b.DeviceEmbedCount.Load()),
		AffinityCount:         b.AffinityCount.Load(),
		AffinityErrors:        b.AffinityErrors.Load(),
		AffinityEdges:         b.AffinityEdges.Load(),
		FramesCaptured:        b.FramesCaptured.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	EmbedCount            int64
	EmbedErrors           int64
	EmbedIterations       int64
	EmbedAvgNanos         int64
	DeviceEmbedCount      int64
	DeviceEmbedErrors     int64
	DeviceEmbedIterations int64
	DeviceEmbedAvgNanos   int64
	AffinityCount         int64
	AffinityErrors        int64
	AffinityEdges         int64
	FramesCaptured        int64
}
