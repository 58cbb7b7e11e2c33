// Package metrics exposes Prometheus instrumentation for the pipeline:
// per-stage duration histograms, outcome counters, and ingress-level
// request counters, served over a standalone /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IncidentsIngestedTotal counts incidents accepted into the pipeline,
	// labeled by their origin (ci, logs, monitoring, webhook, manual).
	IncidentsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incidents_ingested_total",
		Help: "Total incidents accepted into the pipeline, by source.",
	}, []string{"source"})

	// IncidentsResolvedTotal counts pipeline runs that finished, labeled by
	// outcome; the orchestrator records "awaiting_review" and "failed".
	IncidentsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incidents_resolved_total",
		Help: "Total pipeline runs that finished, by outcome.",
	}, []string{"outcome"})

	// StageDuration records how long each pipeline stage took to run.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Duration of a single pipeline stage invocation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// StageErrorsTotal counts stage failures, labeled by stage and the
	// closed apperrors.ErrorType string.
	StageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_stage_errors_total",
		Help: "Total pipeline stage failures, by stage and error type.",
	}, []string{"stage", "error_type"})

	// RefinementIterationsTotal counts feedback-driven Refine calls.
	RefinementIterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refinement_iterations_total",
		Help: "Total feedback-driven refinement iterations across all incidents.",
	})

	// LLMAPICallsTotal counts calls out to the reasoner's LLM provider.
	LLMAPICallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_api_calls_total",
		Help: "Total calls made to an LLM provider, by model.",
	}, []string{"model"})

	// SandboxRunsTotal counts verifier sandbox executions, by result (the
	// lower-cased verification status: passed, failed, partial, error,
	// no_tests).
	SandboxRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sandbox_runs_total",
		Help: "Total verifier sandbox executions, by verification status.",
	}, []string{"result"})

	// WebhookRequestsTotal counts inbound webhook deliveries, by source
	// and outcome.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_requests_total",
		Help: "Total inbound webhook requests, by source and outcome.",
	}, []string{"source", "outcome"})

	// IncidentsInFlight tracks incidents currently inside the pipeline.
	IncidentsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "incidents_in_flight",
		Help: "Incidents currently being processed by the pipeline.",
	})
)

// RecordIngested increments IncidentsIngestedTotal for source.
func RecordIngested(source string) {
	IncidentsIngestedTotal.WithLabelValues(source).Inc()
}

// RecordResolved increments IncidentsResolvedTotal for outcome.
func RecordResolved(outcome string) {
	IncidentsResolvedTotal.WithLabelValues(outcome).Inc()
}

// RecordStageError increments StageErrorsTotal for stage/errorType.
func RecordStageError(stage, errorType string) {
	StageErrorsTotal.WithLabelValues(stage, errorType).Inc()
}

// RecordLLMCall increments LLMAPICallsTotal for model.
func RecordLLMCall(model string) {
	LLMAPICallsTotal.WithLabelValues(model).Inc()
}

// RecordSandboxRun increments SandboxRunsTotal for result.
func RecordSandboxRun(result string) {
	SandboxRunsTotal.WithLabelValues(result).Inc()
}

// RecordWebhookRequest increments WebhookRequestsTotal for source/outcome.
func RecordWebhookRequest(source, outcome string) {
	WebhookRequestsTotal.WithLabelValues(source, outcome).Inc()
}

// IncrementInFlight and DecrementInFlight track concurrently-running
// incidents, bracketing a call to the orchestrator.
func IncrementInFlight() { IncidentsInFlight.Inc() }
func DecrementInFlight() { IncidentsInFlight.Dec() }

// Timer measures elapsed wall-clock time for a single stage invocation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// RecordStage observes the elapsed duration into StageDuration under stage.
func (t *Timer) RecordStage(stage string) {
	StageDuration.WithLabelValues(stage).Observe(t.Elapsed().Seconds())
}
