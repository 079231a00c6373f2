package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the assistant
type Metrics struct {
	Responses        *prometheus.CounterVec
	ResponseDuration *prometheus.HistogramVec
	ExamplesLearned  prometheus.Counter
	RatingsApplied   *prometheus.CounterVec
	RequestErrors    *prometheus.CounterVec
	UploadsSaved     prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Responses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lisa_responses_total",
				Help: "Total number of replies by outcome",
			},
			[]string{"outcome"},
		),
		ResponseDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lisa_response_duration_seconds",
				Help:    "Time to build a reply in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		ExamplesLearned: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lisa_examples_learned_total",
				Help: "Total number of examples recorded from chat",
			},
		),
		RatingsApplied: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lisa_ratings_applied_total",
				Help: "Total number of ratings applied by value",
			},
			[]string{"rating"},
		),
		RequestErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lisa_request_errors_total",
				Help: "Total number of failed requests by stage",
			},
			[]string{"stage"},
		),
		UploadsSaved: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lisa_uploads_saved_total",
				Help: "Total number of messages with saved attachments",
			},
		),
	}
}

// RecordResponse records one reply and how long it took
func (m *Metrics) RecordResponse(outcome string, d time.Duration) {
	m.Responses.WithLabelValues(outcome).Inc()
	m.ResponseDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) RecordError(stage string) {
	m.RequestErrors.WithLabelValues(stage).Inc()
}
