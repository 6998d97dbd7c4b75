package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the report pipeline service.
// Metrics are organized by subsystem: jobs, stages, pages, literature, and
// remote capability calls. All counters and histograms are registered via
// promauto for automatic registration with the default Prometheus registry.
//
// A nil *Metrics is valid on every Record method and records nothing, so
// callers never branch on whether metrics are enabled.
type Metrics struct {
	// JobsStarted counts the total number of report jobs initiated.
	JobsStarted prometheus.Counter

	// JobsCompleted counts the total number of jobs that finished successfully.
	JobsCompleted prometheus.Counter

	// JobsFailed counts jobs that ended in failure, labeled by the failing stage.
	JobsFailed *prometheus.CounterVec

	// JobsCancelled counts the total number of jobs cancelled by user or system.
	JobsCancelled prometheus.Counter

	// JobDuration observes the end-to-end duration of jobs in seconds.
	JobDuration prometheus.Histogram

	// StageDuration observes stage duration in seconds, labeled by stage.
	StageDuration *prometheus.HistogramVec

	// StagesDegraded counts stages that completed with degraded units, labeled by stage.
	StagesDegraded *prometheus.CounterVec

	// PagesProcessed counts pages that went through OCR successfully.
	PagesProcessed prometheus.Counter

	// PagesDegraded counts pages replaced with a failure placeholder.
	PagesDegraded prometheus.Counter

	// PagesPerJob observes the distribution of page counts per job.
	PagesPerJob prometheus.Histogram

	// ConversionFallbacks counts page renders that needed the fallback resolution.
	ConversionFallbacks prometheus.Counter

	// QuestionsPlanned counts clinical questions generated by the planner.
	QuestionsPlanned prometheus.Counter

	// QuestionsAnswered counts questions that received an evidence-backed answer.
	QuestionsAnswered prometheus.Counter

	// QuestionsDropped counts questions dropped after retry exhaustion.
	QuestionsDropped prometheus.Counter

	// CapabilityAttempts counts remote capability call attempts, labeled by
	// capability and attempt outcome.
	CapabilityAttempts *prometheus.CounterVec

	// CapabilityRetriesExhausted counts calls that failed through the whole
	// retry schedule, labeled by capability.
	CapabilityRetriesExhausted *prometheus.CounterVec

	// CapabilityDuration observes single-attempt duration in seconds,
	// labeled by capability and model.
	CapabilityDuration *prometheus.HistogramVec

	// CapabilityRateLimited counts rate-limit responses, labeled by capability.
	CapabilityRateLimited *prometheus.CounterVec

	// GateWaitDuration observes time spent waiting for a concurrency slot or
	// rate window in seconds, labeled by capability.
	GateWaitDuration *prometheus.HistogramVec

	// CapabilityTokensUsed counts tokens consumed by remote capabilities,
	// labeled by capability, model, and token type.
	CapabilityTokensUsed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Jobs
		JobsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Total number of report jobs started",
		}),
		JobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total number of report jobs completed successfully",
		}),
		JobsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of report jobs that failed by stage",
		}, []string{"stage"}),
		JobsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_cancelled_total",
			Help:      "Total number of report jobs cancelled",
		}),
		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of report jobs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),

		// Stages
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds by stage",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		StagesDegraded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stages_degraded_total",
			Help:      "Total number of stages completed with degraded units by stage",
		}, []string{"stage"}),

		// Pages
		PagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_processed_total",
			Help:      "Total number of pages extracted successfully",
		}),
		PagesDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_degraded_total",
			Help:      "Total number of pages replaced with failure placeholders",
		}),
		PagesPerJob: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pages_per_job",
			Help:      "Number of pages per job",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		ConversionFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_fallbacks_total",
			Help:      "Total number of page renders retried at the fallback resolution",
		}),

		// Literature
		QuestionsPlanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_planned_total",
			Help:      "Total number of clinical questions planned",
		}),
		QuestionsAnswered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_answered_total",
			Help:      "Total number of clinical questions answered",
		}),
		QuestionsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_dropped_total",
			Help:      "Total number of clinical questions dropped after retry exhaustion",
		}),

		// Capabilities
		CapabilityAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_attempts_total",
			Help:      "Total number of remote capability call attempts by capability and outcome",
		}, []string{"capability", "outcome"}),
		CapabilityRetriesExhausted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_retries_exhausted_total",
			Help:      "Total number of capability calls that exhausted the retry schedule",
		}, []string{"capability"}),
		CapabilityDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_duration_seconds",
			Help:      "Duration of single capability attempts in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"capability", "model"}),
		CapabilityRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_rate_limited_total",
			Help:      "Total number of rate limit responses by capability",
		}, []string{"capability"}),
		GateWaitDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gate_wait_duration_seconds",
			Help:      "Time spent waiting for a concurrency slot or rate window",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"capability"}),
		CapabilityTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_tokens_used_total",
			Help:      "Total number of tokens used by remote capabilities",
		}, []string{"capability", "model", "token_type"}),
	}
}

// RecordJobStarted records that a job has started.
func (m *Metrics) RecordJobStarted() {
	if m == nil {
		return
	}
	m.JobsStarted.Inc()
}

// RecordJobCompleted records that a job has completed.
func (m *Metrics) RecordJobCompleted(durationSeconds float64) {
	if m == nil {
		return
	}
	m.JobsCompleted.Inc()
	m.JobDuration.Observe(durationSeconds)
}

// RecordJobFailed records that a job has failed at the given stage.
func (m *Metrics) RecordJobFailed(stage string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.JobsFailed.WithLabelValues(stage).Inc()
	m.JobDuration.Observe(durationSeconds)
}

// RecordJobCancelled records that a job has been cancelled.
func (m *Metrics) RecordJobCancelled() {
	if m == nil {
		return
	}
	m.JobsCancelled.Inc()
}

// RecordStageCompleted records a resolved stage with its degraded unit count.
func (m *Metrics) RecordStageCompleted(stage string, degradedUnits int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
	if degradedUnits > 0 {
		m.StagesDegraded.WithLabelValues(stage).Inc()
	}
}

// RecordPages records page extraction results for one job.
func (m *Metrics) RecordPages(processed, degraded int) {
	if m == nil {
		return
	}
	m.PagesProcessed.Add(float64(processed))
	m.PagesDegraded.Add(float64(degraded))
	m.PagesPerJob.Observe(float64(processed + degraded))
}

// RecordConversionFallback records a page render retried at the fallback resolution.
func (m *Metrics) RecordConversionFallback() {
	if m == nil {
		return
	}
	m.ConversionFallbacks.Inc()
}

// RecordQuestions records literature search planning and resolution counts.
func (m *Metrics) RecordQuestions(planned, answered, dropped int) {
	if m == nil {
		return
	}
	m.QuestionsPlanned.Add(float64(planned))
	m.QuestionsAnswered.Add(float64(answered))
	m.QuestionsDropped.Add(float64(dropped))
}

// RecordCapabilityAttempt records one remote capability call attempt.
func (m *Metrics) RecordCapabilityAttempt(capability, model, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.CapabilityAttempts.WithLabelValues(capability, outcome).Inc()
	m.CapabilityDuration.WithLabelValues(capability, model).Observe(durationSeconds)
}

// RecordCapabilityExhausted records a call that failed through the whole
// retry schedule.
func (m *Metrics) RecordCapabilityExhausted(capability string) {
	if m == nil {
		return
	}
	m.CapabilityRetriesExhausted.WithLabelValues(capability).Inc()
}

// RecordCapabilityRateLimited records a rate limit response from a capability.
func (m *Metrics) RecordCapabilityRateLimited(capability string) {
	if m == nil {
		return
	}
	m.CapabilityRateLimited.WithLabelValues(capability).Inc()
}

// RecordGateWait records time spent waiting for admission to a capability.
func (m *Metrics) RecordGateWait(capability string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.GateWaitDuration.WithLabelValues(capability).Observe(durationSeconds)
}

// RecordCapabilityTokens records token usage for a capability call.
func (m *Metrics) RecordCapabilityTokens(capability, model string, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.CapabilityTokensUsed.WithLabelValues(capability, model, "input").Add(float64(inputTokens))
	m.CapabilityTokensUsed.WithLabelValues(capability, model, "output").Add(float64(outputTokens))
}
