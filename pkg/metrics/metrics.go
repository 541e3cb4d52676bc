package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pass metrics
	PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigip_ctlr_passes_total",
			Help: "Total number of reconciliation passes by result",
		},
		[]string{"result"},
	)

	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bigip_ctlr_pass_duration_seconds",
			Help:    "Reconciliation pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ServicesDesired = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bigip_ctlr_services_desired",
			Help: "Number of services in the desired state of the last pass",
		},
	)

	PartitionsManaged = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bigip_ctlr_partitions_managed",
			Help: "Number of partitions reconciled in the last pass",
		},
	)

	// Device write metrics
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigip_ctlr_operations_total",
			Help: "Total number of load-balancer writes by resource kind and operation",
		},
		[]string{"kind", "op"},
	)

	// Source metrics
	SourceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigip_ctlr_source_fetches_total",
			Help: "Total number of orchestrator state fetches by status",
		},
		[]string{"status"},
	)

	SourceFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bigip_ctlr_source_fetch_duration_seconds",
			Help:    "Orchestrator state fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Pass results recorded on PassesTotal
const (
	ResultApplied = "applied"
	ResultRetry   = "retry"
	ResultFatal   = "fatal"
)

func init() {
	// Register all metrics
	prometheus.MustRegister(PassesTotal)
	prometheus.MustRegister(PassDuration)
	prometheus.MustRegister(ServicesDesired)
	prometheus.MustRegister(PartitionsManaged)
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(SourceFetchesTotal)
	prometheus.MustRegister(SourceFetchDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for histogram observation
type Timer struct {
	start time.Time
}

// NewTimer creates a timer starting now
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in the given histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time in a histogram vec under the
// given label values
func (t *Timer) ObserveDurationVec(vec *prometheus.HistogramVec, labels ...string) {
	vec.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
