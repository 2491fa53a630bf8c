package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TxAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landmarket_tx_attempts_total",
			Help: "Store transaction attempts by operation",
		},
		[]string{"op"},
	)
	TxConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landmarket_tx_conflicts_total",
			Help: "Serialization conflicts that triggered a retry",
		},
		[]string{"op"},
	)
	TxContention = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landmarket_tx_contention_total",
			Help: "Operations that exhausted their retries",
		},
		[]string{"op"},
	)
	TxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "landmarket_tx_duration_seconds",
			Help:    "Wall time of an operation including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	LedgerMovements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landmarket_ledger_movements_total",
			Help: "Committed ledger transactions by kind",
		},
		[]string{"kind"},
	)
	Settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landmarket_settlements_total",
			Help: "Completed land settlements by source",
		},
		[]string{"source"},
	)
	SweepProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landmarket_sweep_processed_total",
			Help: "Records transitioned by background sweeps",
		},
		[]string{"sweep"},
	)
	SweepErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landmarket_sweep_errors_total",
			Help: "Per-record sweep failures",
		},
		[]string{"sweep"},
	)
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "landmarket_ws_connections",
			Help: "Open websocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(TxAttempts)
	prometheus.MustRegister(TxConflicts)
	prometheus.MustRegister(TxContention)
	prometheus.MustRegister(TxDuration)
	prometheus.MustRegister(LedgerMovements)
	prometheus.MustRegister(Settlements)
	prometheus.MustRegister(SweepProcessed)
	prometheus.MustRegister(SweepErrors)
	prometheus.MustRegister(WSConnections)
}
