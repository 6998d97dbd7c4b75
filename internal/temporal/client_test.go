package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
)

func TestTemporalError(t *testing.T) {
	t.Run("Error includes all fields", func(t *testing.T) {
		err := &TemporalError{
			Op:         "StartReportWorkflow",
			Kind:       ErrWorkflowNotFound,
			WorkflowID: "report-123",
			RunID:      "run-456",
			Err:        errors.New("underlying error"),
		}

		msg := err.Error()
		assert.Contains(t, msg, "StartReportWorkflow")
		assert.Contains(t, msg, "workflow not found")
		assert.Contains(t, msg, "report-123")
		assert.Contains(t, msg, "run-456")
		assert.Contains(t, msg, "underlying error")
	})

	t.Run("Error without workflow IDs", func(t *testing.T) {
		err := &TemporalError{
			Op:   "Health",
			Kind: ErrConnectionFailed,
		}

		msg := err.Error()
		assert.Contains(t, msg, "Health")
		assert.Contains(t, msg, "connection failed")
		assert.NotContains(t, msg, "workflowID")
	})

	t.Run("Unwrap returns underlying error", func(t *testing.T) {
		underlying := errors.New("underlying")
		err := &TemporalError{
			Op:   "Test",
			Kind: ErrConnectionFailed,
			Err:  underlying,
		}

		assert.Equal(t, underlying, err.Unwrap())
	})

	t.Run("Is matches Kind", func(t *testing.T) {
		err := &TemporalError{
			Op:   "Test",
			Kind: ErrWorkflowNotFound,
		}

		assert.True(t, errors.Is(err, ErrWorkflowNotFound))
		assert.False(t, errors.Is(err, ErrConnectionFailed))
	})
}

func TestWrapTemporalError(t *testing.T) {
	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.Nil(t, wrapTemporalError("Test", nil, "", ""))
	})

	t.Run("wraps NotFound error", func(t *testing.T) {
		result := wrapTemporalError("Test", serviceerror.NewNotFound("not found"), "wf-1", "run-1")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, ErrWorkflowNotFound, te.Kind)
	})

	t.Run("wraps WorkflowExecutionAlreadyStarted error", func(t *testing.T) {
		alreadyStartedErr := serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "", "")
		result := wrapTemporalError("Test", alreadyStartedErr, "wf-1", "")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, ErrWorkflowAlreadyStarted, te.Kind)
	})

	t.Run("wraps QueryFailed error", func(t *testing.T) {
		result := wrapTemporalError("Test", serviceerror.NewQueryFailed("query failed"), "wf-1", "")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, ErrQueryFailed, te.Kind)
	})

	t.Run("wraps context.DeadlineExceeded", func(t *testing.T) {
		result := wrapTemporalError("Test", context.DeadlineExceeded, "", "")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, ErrDeadlineExceeded, te.Kind)
	})

	t.Run("wraps context.Canceled", func(t *testing.T) {
		result := wrapTemporalError("Test", context.Canceled, "", "")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, ErrClientClosed, te.Kind)
	})

	t.Run("wraps unknown error as connection failed", func(t *testing.T) {
		result := wrapTemporalError("Test", errors.New("unknown error"), "", "")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, ErrConnectionFailed, te.Kind)
	})
}

func TestErrorCheckers(t *testing.T) {
	t.Run("IsWorkflowNotFound", func(t *testing.T) {
		err := &TemporalError{Kind: ErrWorkflowNotFound}
		assert.True(t, IsWorkflowNotFound(err))
		assert.False(t, IsWorkflowNotFound(errors.New("other")))
	})

	t.Run("IsWorkflowAlreadyStarted", func(t *testing.T) {
		err := &TemporalError{Kind: ErrWorkflowAlreadyStarted}
		assert.True(t, IsWorkflowAlreadyStarted(err))
		assert.False(t, IsWorkflowAlreadyStarted(errors.New("other")))
	})
}

func TestWorkflowIDForJob(t *testing.T) {
	jobID := uuid.MustParse("a2f1f7a9-9b2e-4a76-8e5d-9e9f0b6b1db5")
	assert.Equal(t, "report-a2f1f7a9-9b2e-4a76-8e5d-9e9f0b6b1db5", WorkflowIDForJob(jobID))
}

func TestReportWorkflowClient(t *testing.T) {
	t.Run("TaskQueue getter", func(t *testing.T) {
		rc := &ReportWorkflowClient{taskQueue: "test-queue"}
		assert.Equal(t, "test-queue", rc.TaskQueue())
	})

	t.Run("closed client returns error on Health", func(t *testing.T) {
		rc := &ReportWorkflowClient{closed: true}

		err := rc.Health(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrClientClosed))
	})

	t.Run("closed client returns error on StartReportWorkflow", func(t *testing.T) {
		rc := &ReportWorkflowClient{closed: true}

		_, _, err := rc.StartReportWorkflow(context.Background(), nil, ReportWorkflowInput{JobID: uuid.New()})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrClientClosed))
	})

	t.Run("closed client returns error on CancelJob", func(t *testing.T) {
		rc := &ReportWorkflowClient{closed: true}

		err := rc.CancelJob(context.Background(), "report-1", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrClientClosed))
	})

	t.Run("closed client returns error on QueryProgress", func(t *testing.T) {
		rc := &ReportWorkflowClient{closed: true}

		_, err := rc.QueryProgress(context.Background(), "report-1", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrClientClosed))
	})
}
