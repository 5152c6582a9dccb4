package ops

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSnapshot is a point-in-time, JSON-friendly view of a single log's
// counters, which tests compare instead of scraping /metrics text.
type MetricsSnapshot struct {
	Name                string  `json:"name"`
	AppendBytesTotal    float64 `json:"appendBytesTotal"`
	BackpressureTotal   float64 `json:"backpressureTotal"`
	ReadCorruptionTotal float64 `json:"readCorruptionTotal"`
}

// DeviceInfo describes the storage backend a log is running against.
type DeviceInfo struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// Snapshot reads the current counter values labeled by name.
func Snapshot(name string) MetricsSnapshot {
	return MetricsSnapshot{
		Name:                name,
		AppendBytesTotal:    readCounter(AppendBytesTotal, name),
		BackpressureTotal:   readCounter(AppendBackpressureTotal, name),
		ReadCorruptionTotal: readCounter(ReadCorruptionTotal, name),
	}
}

func readCounter(vec *prometheus.CounterVec, label string) float64 {
	var c, err = vec.GetMetricWithLabelValues(label)
	if err != nil {
		return 0
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
