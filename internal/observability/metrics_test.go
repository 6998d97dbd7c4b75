package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_medreport_new")

	assert.NotNil(t, m.JobsStarted)
	assert.NotNil(t, m.JobsCompleted)
	assert.NotNil(t, m.JobsFailed)
	assert.NotNil(t, m.JobsCancelled)
	assert.NotNil(t, m.JobDuration)
	assert.NotNil(t, m.StageDuration)
	assert.NotNil(t, m.StagesDegraded)
	assert.NotNil(t, m.PagesProcessed)
	assert.NotNil(t, m.PagesDegraded)
	assert.NotNil(t, m.QuestionsPlanned)
	assert.NotNil(t, m.CapabilityAttempts)
	assert.NotNil(t, m.CapabilityRetriesExhausted)
	assert.NotNil(t, m.GateWaitDuration)
	assert.NotNil(t, m.CapabilityTokensUsed)
}

func TestRecordJobStarted(t *testing.T) {
	m := NewMetrics("test_job_started")

	initial := testutil.ToFloat64(m.JobsStarted)
	m.RecordJobStarted()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.JobsStarted))
}

func TestRecordJobCompleted(t *testing.T) {
	m := NewMetrics("test_job_completed")

	initial := testutil.ToFloat64(m.JobsCompleted)
	m.RecordJobCompleted(5.5)
	assert.Equal(t, initial+1, testutil.ToFloat64(m.JobsCompleted))

	histCount, err := getHistogramSampleCount(m.JobDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordJobFailed(t *testing.T) {
	m := NewMetrics("test_job_failed")

	m.RecordJobFailed("extraction", 3.0)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobsFailed.WithLabelValues("extraction")))
}

func TestRecordJobCancelled(t *testing.T) {
	m := NewMetrics("test_job_cancelled")

	initial := testutil.ToFloat64(m.JobsCancelled)
	m.RecordJobCancelled()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.JobsCancelled))
}

func TestRecordStageCompleted(t *testing.T) {
	m := NewMetrics("test_stage_completed")

	m.RecordStageCompleted("ocr", 0, 12.0)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.StagesDegraded.WithLabelValues("ocr")))

	m.RecordStageCompleted("ocr", 3, 15.0)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StagesDegraded.WithLabelValues("ocr")))
}

func TestRecordPages(t *testing.T) {
	m := NewMetrics("test_pages")

	m.RecordPages(8, 2)
	assert.Equal(t, float64(8), testutil.ToFloat64(m.PagesProcessed))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PagesDegraded))
}

func TestRecordQuestions(t *testing.T) {
	m := NewMetrics("test_questions")

	m.RecordQuestions(12, 10, 2)
	assert.Equal(t, float64(12), testutil.ToFloat64(m.QuestionsPlanned))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.QuestionsAnswered))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.QuestionsDropped))
}

func TestRecordCapabilityAttempt(t *testing.T) {
	m := NewMetrics("test_capability_attempt")

	m.RecordCapabilityAttempt("ocr", "gemini-2.0-flash", "success", 1.2)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CapabilityAttempts.WithLabelValues("ocr", "success")))

	m.RecordCapabilityAttempt("ocr", "gemini-2.0-flash", "transient_error", 0.4)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CapabilityAttempts.WithLabelValues("ocr", "transient_error")))
}

func TestRecordCapabilityExhausted(t *testing.T) {
	m := NewMetrics("test_capability_exhausted")

	m.RecordCapabilityExhausted("literature_search")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CapabilityRetriesExhausted.WithLabelValues("literature_search")))
}

func TestRecordCapabilityRateLimited(t *testing.T) {
	m := NewMetrics("test_capability_rate_limited")

	m.RecordCapabilityRateLimited("literature_search")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CapabilityRateLimited.WithLabelValues("literature_search")))
}

func TestRecordCapabilityTokens(t *testing.T) {
	m := NewMetrics("test_capability_tokens")

	m.RecordCapabilityTokens("extraction", "gpt-5", 100, 50)
	assert.Equal(t, float64(100), testutil.ToFloat64(m.CapabilityTokensUsed.WithLabelValues("extraction", "gpt-5", "input")))
	assert.Equal(t, float64(50), testutil.ToFloat64(m.CapabilityTokensUsed.WithLabelValues("extraction", "gpt-5", "output")))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
