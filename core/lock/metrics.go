package lock

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the lock manager's OpenTelemetry instruments. The zero value
// is safe and discards every recording.
type Metrics struct {
	grants metric.Int64Counter
	wounds metric.Int64Counter
}

// NewMetrics builds the lock manager's instrument set from meter.
func NewMetrics(meter metric.Meter) Metrics {
	grants, _ := meter.Int64Counter("lock_manager_grants_total")
	wounds, _ := meter.Int64Counter("lock_manager_wounds_total")
	return Metrics{grants: grants, wounds: wounds}
}

func (m Metrics) recordGrant(mode Mode) {
	if m.grants == nil {
		return
	}
	label := "shared"
	if mode == Exclusive {
		label = "exclusive"
	}
	m.grants.Add(context.Background(), 1, metric.WithAttributes(attribute.String("mode", label)))
}

func (m Metrics) recordWound() {
	if m.wounds != nil {
		m.wounds.Add(context.Background(), 1)
	}
}
