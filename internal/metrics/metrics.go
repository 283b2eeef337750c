package metrics

import (
	"time"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	forecastsGenerated *prometheus.CounterVec
	forecastConfidence prometheus.Gauge
	signalStrength     prometheus.Gauge
	categoryScore      *prometheus.GaugeVec
	recorded           prometheus.Counter
	resolved           *prometheus.CounterVec
	lookupFailures     prometheus.Counter
	ledgerPredictions  *prometheus.GaugeVec
	ledgerAccuracy     prometheus.Gauge
	operationDuration  *prometheus.HistogramVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.forecastsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augur_forecasts_generated_total",
			Help: "Total number of forecasts generated",
		},
		[]string{"direction"},
	)
	r.forecastConfidence = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "augur_forecast_confidence",
			Help: "Confidence of the latest forecast in percent",
		},
	)
	r.signalStrength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "augur_forecast_signal_strength",
			Help: "Signal strength of the latest forecast",
		},
	)
	r.categoryScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "augur_category_score",
			Help: "Category score of the latest forecast",
		},
		[]string{"category"},
	)
	r.recorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "augur_predictions_recorded_total",
			Help: "Total number of forecasts recorded as predictions",
		},
	)
	r.resolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augur_predictions_resolved_total",
			Help: "Total number of predictions resolved",
		},
		[]string{"outcome"},
	)
	r.lookupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "augur_resolution_lookup_failures_total",
			Help: "Total number of realized price lookups that failed",
		},
	)
	r.ledgerPredictions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "augur_ledger_predictions",
			Help: "Number of predictions in the ledger",
		},
		[]string{"state"},
	)
	r.ledgerAccuracy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "augur_ledger_accuracy_percent",
			Help: "Accuracy of evaluated predictions in percent",
		},
	)
	r.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "augur_operation_duration_seconds",
			Help:    "Duration of forecast and ledger operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation", "status"},
	)

	reg.MustRegister(r.forecastsGenerated)
	reg.MustRegister(r.forecastConfidence)
	reg.MustRegister(r.signalStrength)
	reg.MustRegister(r.categoryScore)
	reg.MustRegister(r.recorded)
	reg.MustRegister(r.resolved)
	reg.MustRegister(r.lookupFailures)
	reg.MustRegister(r.ledgerPredictions)
	reg.MustRegister(r.ledgerAccuracy)
	reg.MustRegister(r.operationDuration)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// ObserveForecast records a generated forecast.
func (r *Registry) ObserveForecast(f core.Forecast) {
	r.forecastsGenerated.WithLabelValues(string(f.Prediction.Direction)).Inc()
	r.forecastConfidence.Set(f.Prediction.Confidence)
	r.signalStrength.Set(float64(f.Prediction.SignalStrength))
	for _, c := range core.Categories {
		r.categoryScore.WithLabelValues(string(c)).Set(float64(f.Signals.Get(c)))
	}
}

// ObserveRecorded records a forecast appended to the ledger.
func (r *Registry) ObserveRecorded(core.Prediction) {
	r.recorded.Inc()
}

// ObserveResolution records the outcome of a resolution pass.
func (r *Registry) ObserveResolution(report ledger.ResolveReport) {
	for _, p := range report.Resolved {
		outcome := "incorrect"
		if p.IsCorrect() {
			outcome = "correct"
		}
		r.resolved.WithLabelValues(outcome).Inc()
	}
	r.lookupFailures.Add(float64(report.Failed))
}

// ObserveLedger sets the ledger gauges.
func (r *Registry) ObserveLedger(st core.Statistics, pending int) {
	r.ledgerPredictions.WithLabelValues("total").Set(float64(st.TotalPredictions))
	r.ledgerPredictions.WithLabelValues("evaluated").Set(float64(st.EvaluatedPredictions))
	r.ledgerPredictions.WithLabelValues("pending").Set(float64(pending))
	r.ledgerAccuracy.Set(st.Accuracy)
}

// ObserveOperation records how long an operation took and whether it failed.
func (r *Registry) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.operationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node_exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
