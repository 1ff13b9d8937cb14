package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Withdrawal proof runs
	// ============================================
	ProofRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wormhole_proof_runs_total",
			Help: "Total number of withdrawal proof runs",
		},
		[]string{"mode", "outcome"},
	)

	ProofRunFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wormhole_proof_run_failures_total",
			Help: "Withdrawal proof runs aborted, by error kind",
		},
		[]string{"kind"},
	)

	ProverBusyRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wormhole_prover_busy_rejections_total",
		Help: "Runs rejected because another run was in progress",
	})

	ProofRunInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wormhole_proof_run_in_progress",
		Help: "Whether a proof run is in progress (1) or not (0)",
	})

	// ============================================
	// State sketch
	// ============================================
	SketchBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wormhole_sketch_build_duration_seconds",
		Help:    "Time spent fetching calls and proofs for a state sketch",
		Buckets: prometheus.DefBuckets,
	})

	SketchSizeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wormhole_sketch_size_bytes",
		Help:    "Encoded state sketch size",
		Buckets: prometheus.ExponentialBuckets(1024, 2, 12),
	})

	// ============================================
	// Proving engine
	// ============================================
	ProofDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wormhole_proof_duration_seconds",
			Help:    "Proving engine call duration",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"operation", "engine"},
	)

	GuestCycles = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wormhole_guest_cycles",
		Help:    "Cost units reported by guest execution",
		Buckets: prometheus.ExponentialBuckets(1000, 4, 10),
	})

	// ============================================
	// NATS
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wormhole_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wormhole_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"event_type", "status"},
	)

	// ============================================
	// Database
	// ============================================
	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wormhole_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	// ============================================
	// HTTP API
	// ============================================
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wormhole_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wormhole_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
