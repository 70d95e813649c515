// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindvault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindvault_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// source: generated/fallback
	questionsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindvault_questions_generated_total",
			Help: "Questions produced by the generator, by source",
		},
		[]string{"source"},
	)

	// outcome: ok/failed
	ocrRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindvault_ocr_requests_total",
			Help: "OCR extraction calls by outcome",
		},
		[]string{"outcome"},
	)

	quizResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindvault_quiz_results_total",
			Help: "Recorded quiz results by grade",
		},
		[]string{"grade"},
	)

	liveAttempts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mindvault_live_quiz_connections",
			Help: "Current number of live quiz websocket connections",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func QuestionGenerated(source string) {
	questionsGenerated.WithLabelValues(source).Inc()
}

func OCRRequest(failed bool) {
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	ocrRequests.WithLabelValues(outcome).Inc()
}

func QuizResultRecorded(grade string) {
	quizResults.WithLabelValues(grade).Inc()
}

func LiveConnectionOpened() { liveAttempts.Inc() }

func LiveConnectionClosed() { liveAttempts.Dec() }
