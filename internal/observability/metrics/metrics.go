package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

var (
	once                       sync.Once
	metricsRouter              *chi.Mux
	stakingOpDuration          *prometheus.HistogramVec
	assetLedgerLatency         *prometheus.HistogramVec
	dbLatency                  *prometheus.HistogramVec
	eventPublishErrorCounter   prometheus.Counter
	auditDurationHistogram     *prometheus.HistogramVec
	auditStatusGauge           prometheus.Gauge
	totalStakedGauge           prometheus.Gauge
	totalGuaranteedRewardGauge prometheus.Gauge
	totalStoredRewardGauge     prometheus.Gauge
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics initializes and register the Prometheus metrics.
func registerMetrics() {
	defaultHistogramBucketsSeconds := []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5}

	stakingOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "staking_op_duration_seconds",
			Help:    "Histogram of staking ledger operation durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"op", "status"},
	)

	assetLedgerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_ledger_latency_seconds",
			Help:    "Histogram of asset ledger call durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"asset", "method", "status"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)

	eventPublishErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "event_publish_error_count",
			Help: "The total number of errors when publishing staking events",
		},
	)

	auditDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audit_duration_seconds",
			Help:    "Histogram of invariant audit pass durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"status"},
	)

	auditStatusGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_status",
			Help: "1 when the last invariant audit pass succeeded, 0 otherwise",
		},
	)

	totalStakedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "total_staked",
			Help: "Total staked principal across all accounts",
		},
	)

	totalGuaranteedRewardGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "total_guaranteed_reward",
			Help: "Total reward reserved but not yet accrued",
		},
	)

	totalStoredRewardGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "total_stored_reward",
			Help: "Total reward accrued and pending payout",
		},
	)

	prometheus.MustRegister(
		stakingOpDuration,
		assetLedgerLatency,
		dbLatency,
		eventPublishErrorCounter,
		auditDurationHistogram,
		auditStatusGauge,
		totalStakedGauge,
		totalGuaranteedRewardGauge,
		totalStoredRewardGauge,
	)
}

// Recorders tolerate an uninitialized package so library users (and unit
// tests) that never call Init still work.

func RecordStakingOpDuration(d time.Duration, op string, failure bool) {
	if stakingOpDuration == nil {
		return
	}
	status := Success
	if failure {
		status = Error
	}

	stakingOpDuration.WithLabelValues(op, status.String()).Observe(d.Seconds())
}

func RecordAssetLedgerLatency(d time.Duration, asset, method string, failure bool) {
	if assetLedgerLatency == nil {
		return
	}
	status := Success
	if failure {
		status = Error
	}

	assetLedgerLatency.WithLabelValues(asset, method, status.String()).Observe(d.Seconds())
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	if dbLatency == nil {
		return
	}
	status := Success
	if failure {
		status = Error
	}

	dbLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

func IncEventPublishFailures() {
	if eventPublishErrorCounter == nil {
		return
	}
	eventPublishErrorCounter.Inc()
}

func RecordAuditPass(d time.Duration, failure bool) {
	if auditDurationHistogram == nil {
		return
	}
	status := Success
	value := float64(1)
	if failure {
		status = Error
		value = 0
	}

	auditDurationHistogram.WithLabelValues(status.String()).Observe(d.Seconds())
	auditStatusGauge.Set(value)
}

// RecordTotals exports the global aggregates. Values are emitted as floats,
// precision loss above 2^53 only affects the dashboards, never the ledger.
func RecordTotals(staked, guaranteed, stored float64) {
	if totalStakedGauge == nil {
		return
	}
	totalStakedGauge.Set(staked)
	totalGuaranteedRewardGauge.Set(guaranteed)
	totalStoredRewardGauge.Set(stored)
}
