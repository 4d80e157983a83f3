package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission mode labels for the quiz submission counter.
const (
	SubmissionModeManual = "manual"
	SubmissionModeAuto   = "auto"
)

var (
	registerOnce          sync.Once
	requestsTotal         *prometheus.CounterVec
	requestLatencySeconds *prometheus.HistogramVec
	requestErrorsTotal    *prometheus.CounterVec
	quizSubmissionsTotal  *prometheus.CounterVec
	attemptSessionsActive prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursekit_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		requestLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursekit_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		requestErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursekit_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		quizSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursekit_quiz_submissions_total",
			Help: "Total number of quiz attempt submissions, by trigger mode.",
		}, []string{"mode"})

		attemptSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coursekit_attempt_sessions_active",
			Help: "Number of live quiz attempt sessions.",
		})

		prometheus.MustRegister(requestsTotal, requestLatencySeconds, requestErrorsTotal, quizSubmissionsTotal, attemptSessionsActive)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return requestErrorsTotal
}

// QuizSubmissions exposes the counter for attempt submissions.
func QuizSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return quizSubmissionsTotal
}

// AttemptSessions exposes the gauge tracking live attempt sessions.
func AttemptSessions() prometheus.Gauge {
	RegisterMetrics()
	return attemptSessionsActive
}
