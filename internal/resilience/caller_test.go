package resilience

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pablopedrosap/medical-ai-template/internal/ai"
	"github.com/pablopedrosap/medical-ai-template/internal/config"
	"github.com/pablopedrosap/medical-ai-template/internal/observability"
)

func newTestCaller(t *testing.T, namespace string, cfg config.RetryConfig) (*Caller, *[]time.Duration) {
	t.Helper()
	metrics := observability.NewMetrics(namespace)
	waits := &[]time.Duration{}
	caller := NewCaller(cfg, zerolog.Nop(), metrics).WithSleep(func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	})
	return caller, waits
}

func transientErr(kind ai.Kind) error {
	return &ai.Error{Capability: "ocr", Provider: "gemini", Kind: kind, StatusCode: 503, Message: "boom"}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	caller, waits := newTestCaller(t, "res_first", config.RetryConfig{
		MaxAttempts:     3,
		BackoffSchedule: []time.Duration{0, time.Minute, 3 * time.Minute},
	})

	calls := 0
	result, err := Do(context.Background(), caller, "ocr", "gemini-2.0-flash", func(context.Context) (string, error) {
		calls++
		return "page text", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "page text", result)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []time.Duration{0}, *waits)
}

func TestDo_RetriesTransientAndRecovers(t *testing.T) {
	caller, waits := newTestCaller(t, "res_recover", config.RetryConfig{
		MaxAttempts:     3,
		BackoffSchedule: []time.Duration{0, time.Minute, 3 * time.Minute},
	})

	calls := 0
	result, err := Do(context.Background(), caller, "ocr", "gemini-2.0-flash", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, transientErr(ai.KindProvider)
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{0, time.Minute, 3 * time.Minute}, *waits)
}

func TestDo_ExhaustsScheduleOnPersistentTransientError(t *testing.T) {
	caller, waits := newTestCaller(t, "res_exhaust", config.RetryConfig{
		MaxAttempts:     3,
		BackoffSchedule: []time.Duration{0, time.Minute, 3 * time.Minute},
	})

	calls := 0
	_, err := Do(context.Background(), caller, "literature_search", "sonar-pro", func(context.Context) (string, error) {
		calls++
		return "", transientErr(ai.KindRateLimited)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "must stop after exactly max_attempts")
	assert.Equal(t, []time.Duration{0, time.Minute, 3 * time.Minute}, *waits)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "literature_search", exhausted.Capability)
	assert.Equal(t, 3, exhausted.Attempts)

	var apiErr *ai.Error
	require.ErrorAs(t, err, &apiErr, "the final attempt's error must remain unwrappable")
	assert.Equal(t, ai.KindRateLimited, apiErr.Kind)
}

func TestDo_ClampsWaitToLastScheduleEntry(t *testing.T) {
	caller, waits := newTestCaller(t, "res_clamp", config.RetryConfig{
		MaxAttempts:     5,
		BackoffSchedule: []time.Duration{0, time.Minute, 3 * time.Minute},
	})

	_, err := Do(context.Background(), caller, "ocr", "gemini-2.0-flash", func(context.Context) (string, error) {
		return "", transientErr(ai.KindTimeout)
	})

	require.Error(t, err)
	assert.Equal(t, []time.Duration{0, time.Minute, 3 * time.Minute, 3 * time.Minute, 3 * time.Minute}, *waits)
}

func TestDo_FatalErrorsReturnImmediately(t *testing.T) {
	for _, kind := range []ai.Kind{ai.KindInvalidRequest, ai.KindAuth} {
		t.Run(string(kind), func(t *testing.T) {
			caller, _ := newTestCaller(t, "res_fatal_"+string(kind), config.RetryConfig{
				MaxAttempts:     3,
				BackoffSchedule: []time.Duration{0, time.Minute},
			})

			calls := 0
			_, err := Do(context.Background(), caller, "classification", "gpt-5", func(context.Context) (string, error) {
				calls++
				return "", &ai.Error{Capability: "classification", Provider: "openai", Kind: kind, StatusCode: 400, Message: "bad"}
			})

			require.Error(t, err)
			assert.Equal(t, 1, calls)

			var exhausted *ExhaustedError
			assert.False(t, errors.As(err, &exhausted), "fatal errors must not be reported as exhaustion")
		})
	}
}

func TestDo_StopsWhenSleepInterrupted(t *testing.T) {
	metrics := observability.NewMetrics("res_cancel")
	caller := NewCaller(config.RetryConfig{
		MaxAttempts:     3,
		BackoffSchedule: []time.Duration{0, time.Minute},
	}, zerolog.Nop(), metrics).WithSleep(func(ctx context.Context, d time.Duration) error {
		if d > 0 {
			return context.Canceled
		}
		return nil
	})

	calls := 0
	_, err := Do(context.Background(), caller, "ocr", "gemini-2.0-flash", func(context.Context) (string, error) {
		calls++
		return "", transientErr(ai.KindNetwork)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_UnknownErrorsAreNotRetried(t *testing.T) {
	caller, _ := newTestCaller(t, "res_unknown", config.RetryConfig{
		MaxAttempts:     3,
		BackoffSchedule: []time.Duration{0, time.Minute},
	})

	calls := 0
	_, err := Do(context.Background(), caller, "extraction", "gpt-5", func(context.Context) (string, error) {
		calls++
		return "", errors.New("malformed provider payload")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_LogsCarryJobContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	metrics := observability.NewMetrics("res_log_ctx")
	caller := NewCaller(config.RetryConfig{
		MaxAttempts:     2,
		BackoffSchedule: []time.Duration{0, time.Minute},
	}, logger, metrics).WithSleep(func(context.Context, time.Duration) error { return nil })

	ctx := observability.WithJobID(context.Background(), "job-77")
	ctx = observability.WithStage(ctx, "ocr")

	_, err := Do(ctx, caller, "ocr", "gemini-2.0-flash", func(context.Context) (string, error) {
		return "", transientErr(ai.KindProvider)
	})
	require.Error(t, err)

	logs := buf.String()
	assert.Contains(t, logs, `"job_id":"job-77"`)
	assert.Contains(t, logs, `"stage":"ocr"`)
}
