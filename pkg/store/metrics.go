package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// metrics holds the Prometheus collectors for the storage engine. The
// engine does not expose them over HTTP itself; they register on the
// default registry so an embedding process can.
type metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	keysTotal         prometheus.Gauge
	staleRecords      prometheus.Gauge
	dataSizeBytes     prometheus.Gauge
	compactionsTotal  *prometheus.CounterVec
	reclaimedBytes    prometheus.Counter
}

// storeMetrics is process-wide: collectors register once no matter how
// many stores a process opens.
var storeMetrics = newMetrics()

func newMetrics() *metrics {
	return &metrics{
		operationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kvsdb_store_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"operation", "status"},
		),

		operationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kvsdb_store_operation_duration_seconds",
				Help:    "Store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		keysTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kvsdb_store_keys",
				Help: "Number of live keys in the store",
			},
		),

		staleRecords: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kvsdb_store_stale_records",
				Help: "Number of superseded records in the active log",
			},
		),

		dataSizeBytes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kvsdb_store_data_size_bytes",
				Help: "Size of the active log file in bytes",
			},
		),

		compactionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kvsdb_compactions_total",
				Help: "Total number of compaction cycles",
			},
			[]string{"status"},
		),

		reclaimedBytes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kvsdb_compaction_reclaimed_bytes_total",
				Help: "Total bytes reclaimed by compaction",
			},
		),
	}
}

func (m *metrics) recordOp(operation string, err error, duration time.Duration) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *metrics) recordCompaction(success bool, reclaimed int64) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.compactionsTotal.WithLabelValues(status).Inc()
	if success && reclaimed > 0 {
		m.reclaimedBytes.Add(float64(reclaimed))
	}
}

func (m *metrics) updateStats(keys int, stale uint64, dataSize int64) {
	m.keysTotal.Set(float64(keys))
	m.staleRecords.Set(float64(stale))
	m.dataSizeBytes.Set(float64(dataSize))
}
