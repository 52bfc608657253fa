package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpDurationHistogram   *prometheus.HistogramVec
	slipSubmissionCounter   *prometheus.CounterVec
	slipPriceHistogram      prometheus.Histogram
	depositTransitionCtr    *prometheus.CounterVec
	depositPollErrorCounter prometheus.Counter
	activeMonitorsGauge     prometheus.Gauge
	idempotencyCounter      *prometheus.CounterVec
	workerRunCounter        *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		slipSubmissionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slip_submissions_total",
			Help: "Slip submission attempts by outcome",
		}, []string{"result"})

		slipPriceHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "slip_price_combinations",
			Help:    "Combination counts of submitted slips",
			Buckets: prometheus.ExponentialBuckets(1, 3, 12),
		})

		depositTransitionCtr = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deposit_transitions_total",
			Help: "Deposit lifecycle terminal transitions",
		}, []string{"state"})

		depositPollErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deposit_poll_errors_total",
			Help: "Transient deposit status poll failures (ignored for state)",
		})

		activeMonitorsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deposit_monitors_active",
			Help: "Currently watched deposit lifecycles",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			slipSubmissionCounter,
			slipPriceHistogram,
			depositTransitionCtr,
			depositPollErrorCounter,
			activeMonitorsGauge,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementSlipSubmission(result string) {
	if slipSubmissionCounter == nil {
		return
	}
	slipSubmissionCounter.WithLabelValues(result).Inc()
}

func ObserveSlipCombinations(combinations int64) {
	if slipPriceHistogram == nil {
		return
	}
	slipPriceHistogram.Observe(float64(combinations))
}

func IncrementDepositTransition(state string) {
	if depositTransitionCtr == nil {
		return
	}
	depositTransitionCtr.WithLabelValues(state).Inc()
}

func IncrementDepositPollError() {
	if depositPollErrorCounter == nil {
		return
	}
	depositPollErrorCounter.Inc()
}

func SetActiveMonitors(n int) {
	if activeMonitorsGauge == nil {
		return
	}
	activeMonitorsGauge.Set(float64(n))
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
