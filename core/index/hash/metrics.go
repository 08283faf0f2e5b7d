package hash

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the hash table's OpenTelemetry instruments. The zero value
// is safe and discards every recording.
type Metrics struct {
	inserts metric.Int64Counter
	removes metric.Int64Counter
	splits  metric.Int64Counter
	merges  metric.Int64Counter
}

func NewMetrics(meter metric.Meter) Metrics {
	inserts, _ := meter.Int64Counter("hash_table_inserts_total")
	removes, _ := meter.Int64Counter("hash_table_removes_total")
	splits, _ := meter.Int64Counter("hash_table_splits_total")
	merges, _ := meter.Int64Counter("hash_table_merges_total")
	return Metrics{inserts: inserts, removes: removes, splits: splits, merges: merges}
}

func (m Metrics) recordInsert() { m.add(m.inserts) }
func (m Metrics) recordRemove() { m.add(m.removes) }
func (m Metrics) recordSplit()  { m.add(m.splits) }
func (m Metrics) recordMerge()  { m.add(m.merges) }

func (m Metrics) add(c metric.Int64Counter) {
	if c != nil {
		c.Add(context.Background(), 1)
	}
}
