// Package ops declares the process-wide observability surface shared by the
// log core, the paged allocator, and the commit coordinator. These metrics
// roll up by log name; they are not a substitute for reading the log's own
// recovery record, but give an operator a process-level view without
// needing to scan the log itself.
package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var AppendBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "epochlog_append_bytes_total",
	Help: "Count of framed bytes (length prefixes and padding included) successfully appended to the log.",
}, []string{"log"})

var AppendBackpressureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "epochlog_append_backpressure_total",
	Help: "Count of append attempts that failed because no page capacity was immediately available.",
}, []string{"log"})

var CommitLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "epochlog_commit_latency_seconds",
	Help:    "Latency of persisting a recovery record through the commit manager.",
	Buckets: prometheus.DefBuckets,
}, []string{"log"})

var FlushLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "epochlog_flush_latency_seconds",
	Help:    "Latency of writing and syncing one closed page to its device.",
	Buckets: prometheus.DefBuckets,
}, []string{"log"})

var ReadCorruptionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "epochlog_read_corruption_total",
	Help: "Count of reads that detected a corrupt record frame or recovery blob checksum.",
}, []string{"log"})
