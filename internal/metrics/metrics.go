package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PublishAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_attempts_total",
		Help: "Publish attempts by platform and terminal status",
	}, []string{"platform", "status", "error_kind"})

	PublishAttemptSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "publish_attempt_seconds",
		Help:    "Duration of a single publish call",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	}, []string{"platform"})

	PublishBatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_batches_total",
		Help: "Finished publish batches by overall status",
	}, []string{"status"})

	RedirectResumes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redirect_resumes_total",
		Help: "Redirect resumes by outcome",
	}, []string{"outcome"})
)

// MustRegister registers all collectors of this package.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		PublishAttempts,
		PublishAttemptSeconds,
		PublishBatches,
		RedirectResumes,
	)
}

// ObserveAttempt records a terminal publish attempt.
func ObserveAttempt(platform, status, errorKind string, start time.Time) {
	if errorKind == "" {
		errorKind = "none"
	}
	PublishAttempts.WithLabelValues(platform, status, errorKind).Inc()
	if !start.IsZero() {
		PublishAttemptSeconds.WithLabelValues(platform).Observe(time.Since(start).Seconds())
	}
}

func ObserveBatch(status string) {
	PublishBatches.WithLabelValues(status).Inc()
}

func ObserveResume(outcome string) {
	RedirectResumes.WithLabelValues(outcome).Inc()
}
