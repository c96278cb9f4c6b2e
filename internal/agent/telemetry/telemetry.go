package telemetry

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry records request-level metrics for the reasoning pipeline.
// A nil *Telemetry is valid and records nothing, which keeps unit tests
// free of registry wiring.
type Telemetry struct {
	logger *log.Logger

	answers           *prometheus.CounterVec
	answerDuration    *prometheus.HistogramVec
	synthesisAttempts prometheus.Counter
	groundingFailures prometheus.Counter
	unverifiedAnswers prometheus.Counter
	retrievalDuration prometheus.Histogram
	retrievalErrors   prometheus.Counter
	generationErrors  prometheus.Counter
}

// New creates a telemetry instance and registers its collectors.
func New(reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "draftqa_answers_total",
			Help: "Answer requests by plan strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		answerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "draftqa_answer_duration_seconds",
			Help:    "End-to-end answer latency by plan strategy.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
		synthesisAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draftqa_synthesis_attempts_total",
			Help: "Model synthesis attempts, including grounding retries.",
		}),
		groundingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draftqa_grounding_failures_total",
			Help: "Evidence items rejected by the grounding verifier.",
		}),
		unverifiedAnswers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draftqa_unverified_answers_total",
			Help: "Answers returned degraded after the verification bound.",
		}),
		retrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "draftqa_retrieval_duration_seconds",
			Help:    "Vector search latency.",
			Buckets: prometheus.DefBuckets,
		}),
		retrievalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draftqa_retrieval_errors_total",
			Help: "Failed vector search calls.",
		}),
		generationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draftqa_generation_errors_total",
			Help: "Failed generative model calls.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			t.answers, t.answerDuration, t.synthesisAttempts,
			t.groundingFailures, t.unverifiedAnswers,
			t.retrievalDuration, t.retrievalErrors, t.generationErrors,
		)
	}
	return t
}

// RecordAnswer records one finished (or failed) answer request.
func (t *Telemetry) RecordAnswer(strategy, outcome string, d time.Duration) {
	if t == nil {
		return
	}
	t.answers.WithLabelValues(strategy, outcome).Inc()
	t.answerDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// RecordSynthesisAttempt counts one call into the synthesizer.
func (t *Telemetry) RecordSynthesisAttempt() {
	if t == nil {
		return
	}
	t.synthesisAttempts.Inc()
}

// RecordGroundingFailure counts a draft whose evidence failed verification.
func (t *Telemetry) RecordGroundingFailure() {
	if t == nil {
		return
	}
	t.groundingFailures.Inc()
}

// RecordUnverified counts an answer degraded past the retry bound.
func (t *Telemetry) RecordUnverified() {
	if t == nil {
		return
	}
	t.unverifiedAnswers.Inc()
}

// RecordRetrieval records one vector search call.
func (t *Telemetry) RecordRetrieval(d time.Duration, err error) {
	if t == nil {
		return
	}
	t.retrievalDuration.Observe(d.Seconds())
	if err != nil {
		t.retrievalErrors.Inc()
	}
}

// RecordGenerationError counts a failed model call.
func (t *Telemetry) RecordGenerationError() {
	if t == nil {
		return
	}
	t.generationErrors.Inc()
}
