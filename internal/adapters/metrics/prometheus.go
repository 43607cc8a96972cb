package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports transaction core metrics to Prometheus.
type PrometheusCollector struct {
	chargeAttempts *prometheus.CounterVec
	chargeLatency  *prometheus.HistogramVec
	threeDSRetries *prometheus.CounterVec
	cardUploads    *prometheus.CounterVec
	lookups        *prometheus.CounterVec
	storeRetries   *prometheus.CounterVec
	repairs        *prometheus.CounterVec
	breakerState   *prometheus.GaugeVec
}

func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		chargeAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "charge_attempts_total",
				Help:      "Charge calls sent to billers by resulting status",
			},
			[]string{"biller", "status"},
		),
		chargeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "charge_duration_seconds",
				Help:      "Biller charge call latency",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"biller"},
		),
		threeDSRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "threeds_retries_total",
				Help:      "Charges retried after the biller asked to toggle 3DS",
			},
			[]string{"biller", "with_threed"},
		),
		cardUploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "card_uploads_total",
				Help:      "Card uploads by outcome",
			},
			[]string{"biller", "success"},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "threeds_lookups_total",
				Help:      "3DS2 lookups by whether authentication is required",
			},
			[]string{"biller", "auth_required"},
		),
		storeRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_write_retries_total",
				Help:      "Document store writes retried after a transient failure",
			},
			[]string{"collection", "code"},
		),
		repairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "interaction_repairs_total",
				Help:      "Biller interaction log repairs by outcome",
			},
			[]string{"success"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
	}
}

// Register registers all metrics with the given registry.
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.chargeAttempts,
		pc.chargeLatency,
		pc.threeDSRetries,
		pc.cardUploads,
		pc.lookups,
		pc.storeRetries,
		pc.repairs,
		pc.breakerState,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (pc *PrometheusCollector) RecordChargeAttempt(biller, status string, duration time.Duration) {
	pc.chargeAttempts.WithLabelValues(biller, status).Inc()
	pc.chargeLatency.WithLabelValues(biller).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordThreeDSRetry(biller string, withThreeD bool) {
	pc.threeDSRetries.WithLabelValues(biller, strconv.FormatBool(withThreeD)).Inc()
}

func (pc *PrometheusCollector) RecordCardUpload(biller string, success bool) {
	pc.cardUploads.WithLabelValues(biller, strconv.FormatBool(success)).Inc()
}

func (pc *PrometheusCollector) RecordLookup(biller string, authRequired bool) {
	pc.lookups.WithLabelValues(biller, strconv.FormatBool(authRequired)).Inc()
}

func (pc *PrometheusCollector) RecordStoreWriteRetry(collection, code string) {
	pc.storeRetries.WithLabelValues(collection, code).Inc()
}

func (pc *PrometheusCollector) RecordRepair(success bool) {
	pc.repairs.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func (pc *PrometheusCollector) RecordBreakerState(name, state string) {
	var v float64
	switch state {
	case "open":
		v = 1
	case "half-open":
		v = 2
	}
	pc.breakerState.WithLabelValues(name).Set(v)
}
