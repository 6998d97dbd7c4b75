package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/pablopedrosap/medical-ai-template/internal/domain"
	"github.com/pablopedrosap/medical-ai-template/internal/jobstore"
	"github.com/pablopedrosap/medical-ai-template/internal/observability"
)

// StatusActivities provides Temporal activities for progress snapshot
// persistence. Methods on this struct are registered as Temporal activities
// via the worker.
type StatusActivities struct {
	store   jobstore.Store
	metrics *observability.Metrics
}

// NewStatusActivities creates a new StatusActivities instance with the
// given dependencies. The metrics parameter may be nil (metrics recording
// will be skipped).
func NewStatusActivities(store jobstore.Store, metrics *observability.Metrics) *StatusActivities {
	return &StatusActivities{store: store, metrics: metrics}
}

// SaveSnapshot persists the latest progress snapshot for a job and records
// stage and job metrics for the transition it represents.
func (a *StatusActivities) SaveSnapshot(ctx context.Context, input SaveSnapshotInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("saving progress snapshot",
		"jobID", input.Snapshot.JobID,
		"phase", input.Snapshot.Phase,
		"percent", input.Snapshot.PercentEstimate,
	)

	if err := a.store.Save(ctx, input.Snapshot); err != nil {
		logger.Error("failed to save progress snapshot",
			"jobID", input.Snapshot.JobID,
			"error", err,
		)
		return fmt.Errorf("save snapshot for job %s: %w", input.Snapshot.JobID, err)
	}

	if input.JobStarted {
		a.metrics.RecordJobStarted()
	}

	if input.CompletedStage != "" {
		a.metrics.RecordStageCompleted(string(input.CompletedStage), input.UnitsDegraded, input.StageDurationSeconds)
		switch input.CompletedStage {
		case domain.StageOCR:
			a.metrics.RecordPages(input.UnitsTotal-input.UnitsDegraded, input.UnitsDegraded)
		case domain.StageLiterature:
			a.metrics.RecordQuestions(input.UnitsTotal, input.UnitsTotal-input.UnitsDegraded, input.UnitsDegraded)
		}
	}

	switch input.Snapshot.Phase {
	case domain.JobPhaseCompleted:
		a.metrics.RecordJobCompleted(input.DurationSeconds)
	case domain.JobPhaseFailed:
		if input.Cancelled {
			a.metrics.RecordJobCancelled()
		} else {
			a.metrics.RecordJobFailed(string(input.Snapshot.FailedStage), input.DurationSeconds)
		}
	}

	return nil
}
