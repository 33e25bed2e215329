package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"method", "endpoint"},
	)

	// InferenceCalls counts calls to the inference endpoint by outcome:
	// answer, request_error, no_answer, unexpected_format.
	InferenceCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_requests_total",
			Help: "Total number of questions forwarded to the inference endpoint",
		},
		[]string{"outcome"},
	)

	InferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inference_request_duration_seconds",
			Help:    "Duration of calls to the inference endpoint",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	QuizzesScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizzes_scored_total",
			Help: "Total number of submitted quizzes",
		},
		[]string{"subject"},
	)
)

// Register adds every collector to reg. It panics on duplicate registration.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RequestCounter,
		RequestDuration,
		InferenceCalls,
		InferenceDuration,
		QuizzesScored,
	)
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency. The endpoint label is the
// matched ServeMux pattern so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			r.Method,
			endpoint,
			strconv.Itoa(rec.status),
		).Inc()

		RequestDuration.WithLabelValues(
			r.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
