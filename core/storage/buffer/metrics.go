package buffer

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OpenTelemetry instruments a buffer pool instance reports
// through. The zero value is safe to use and simply discards every
// recording.
type Metrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
	flushes   metric.Int64Counter
}

// NewMetrics builds the buffer pool's instrument set from meter. Instrument
// creation errors are swallowed into no-op instruments, matching the rest of
// this codebase's stance that telemetry setup must never fail startup.
func NewMetrics(meter metric.Meter) Metrics {
	hits, _ := meter.Int64Counter("buffer_pool_page_hits_total")
	misses, _ := meter.Int64Counter("buffer_pool_page_misses_total")
	evictions, _ := meter.Int64Counter("buffer_pool_evictions_total")
	flushes, _ := meter.Int64Counter("buffer_pool_flushes_total")
	return Metrics{hits: hits, misses: misses, evictions: evictions, flushes: flushes}
}

func (m Metrics) recordHit(ctx context.Context) {
	if m.hits != nil {
		m.hits.Add(ctx, 1)
	}
}

func (m Metrics) recordMiss(ctx context.Context) {
	if m.misses != nil {
		m.misses.Add(ctx, 1)
	}
}

func (m Metrics) recordEviction(ctx context.Context) {
	if m.evictions != nil {
		m.evictions.Add(ctx, 1)
	}
}

func (m Metrics) recordFlush(ctx context.Context) {
	if m.flushes != nil {
		m.flushes.Add(ctx, 1)
	}
}
