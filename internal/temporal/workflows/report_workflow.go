// Package workflows defines the Temporal workflow implementation for the
// medical report pipeline.
package workflows

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/pablopedrosap/medical-ai-template/internal/domain"
	mrtemporal "github.com/pablopedrosap/medical-ai-template/internal/temporal"
	"github.com/pablopedrosap/medical-ai-template/internal/temporal/activities"
)

// Re-export signal/query name constants from the parent temporal package
// for convenience.
const (
	SignalCancel  = mrtemporal.SignalCancel
	QueryProgress = mrtemporal.QueryProgress
)

// Activity timeout constants. Capability activities carry their whole retry
// schedule and gate wait inside a single Temporal attempt, so the
// start-to-close timeouts cover the worst-case schedule, not a single call.
const (
	normalizeActivityTimeout = 2 * time.Minute
	ocrActivityTimeout       = 15 * time.Minute
	textActivityTimeout      = 15 * time.Minute
	searchActivityTimeout    = 30 * time.Minute
	statusActivityTimeout    = 30 * time.Second
)

// pageFailedPlaceholder flags a page whose extraction exhausted the retry
// schedule. The placeholder keeps the page slot in the merged text so page
// order stays intact.
func pageFailedPlaceholder(pageNumber int) string {
	return fmt.Sprintf("[page %d extraction failed]", pageNumber)
}

// ReportWorkflowInput is an alias for the shared input type defined in the
// parent temporal package.
type ReportWorkflowInput = mrtemporal.ReportWorkflowInput

// ReportWorkflowResult contains the final results of a report workflow.
type ReportWorkflowResult struct {
	// JobID is the report job identifier.
	JobID uuid.UUID

	// ReportType is the template the report was rendered with.
	ReportType domain.ReportType

	// Report is the assembled report.
	Report *domain.Report

	// PagesProcessed is the number of pages that produced text.
	PagesProcessed int

	// PagesDegraded is the number of pages replaced by placeholders.
	PagesDegraded int

	// QuestionsPlanned is the number of clinical questions planned.
	QuestionsPlanned int

	// QuestionsAnswered is the number of questions answered with evidence.
	QuestionsAnswered int

	// Duration is the total workflow execution time in seconds.
	Duration float64
}

// ReportWorkflow orchestrates the five-stage report pipeline: OCR,
// classification, extraction, literature search, and synthesis.
//
// Stage-level failures in OCR and literature degrade to partial results;
// classification, extraction, and synthesis failures fail the job. The
// workflow supports cancellation via the "cancel" signal and progress
// queries via the "progress" query type. Capability activities are
// scheduled with a single Temporal attempt: the per-call retry schedule
// lives inside the activity so the attempt count stays exact.
func ReportWorkflow(ctx workflow.Context, input ReportWorkflowInput) (*ReportWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	state := domain.NewJobState(input.JobID)

	err := workflow.SetQueryHandler(ctx, QueryProgress, func() (*domain.ProgressSnapshot, error) {
		snapshot := state.Progress()
		return &snapshot, nil
	})
	if err != nil {
		logger.Error("failed to register progress query handler", "error", err)
		return nil, fmt.Errorf("register query handler: %w", err)
	}

	// Cancellation: the signal cancels the derived context, which unblocks
	// every pending activity. Status saves run on the root context so the
	// final failure snapshot still goes out.
	cancelCtx, cancelFunc := workflow.WithCancel(ctx)
	cancelRequested := false
	signalCh := workflow.GetSignalChannel(ctx, SignalCancel)
	workflow.Go(ctx, func(gCtx workflow.Context) {
		signalCh.Receive(gCtx, nil)
		logger.Info("received cancel signal", "jobID", input.JobID)
		cancelRequested = true
		cancelFunc()
	})

	var pipelineAct *activities.PipelineActivities
	var statusAct *activities.StatusActivities

	// Capability activities: exactly one Temporal attempt.
	singleAttempt := &temporal.RetryPolicy{MaximumAttempts: 1}

	normalizeCtx := workflow.WithActivityOptions(cancelCtx, workflow.ActivityOptions{
		StartToCloseTimeout: normalizeActivityTimeout,
		RetryPolicy:         singleAttempt,
	})
	ocrCtx := workflow.WithActivityOptions(cancelCtx, workflow.ActivityOptions{
		StartToCloseTimeout: ocrActivityTimeout,
		RetryPolicy:         singleAttempt,
	})
	textCtx := workflow.WithActivityOptions(cancelCtx, workflow.ActivityOptions{
		StartToCloseTimeout: textActivityTimeout,
		RetryPolicy:         singleAttempt,
	})
	searchCtx := workflow.WithActivityOptions(cancelCtx, workflow.ActivityOptions{
		StartToCloseTimeout: searchActivityTimeout,
		RetryPolicy:         singleAttempt,
	})
	statusCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: statusActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	})

	jobSeconds := func() float64 {
		return workflow.Now(ctx).Sub(startTime).Seconds()
	}

	saveSnapshot := func(extra activities.SaveSnapshotInput) {
		extra.Snapshot = state.Progress()
		extra.DurationSeconds = jobSeconds()
		if err := workflow.ExecuteActivity(statusCtx, statusAct.SaveSnapshot, extra).Get(ctx, nil); err != nil {
			// Snapshots are observability, not pipeline state. Log and move on.
			logger.Warn("failed to save progress snapshot", "jobID", input.JobID, "error", err)
		}
	}

	startStage := func(stage domain.Stage, jobStarted bool) error {
		if err := state.Advance(stage, domain.StageOutcome{Status: domain.StageStatusRunning}); err != nil {
			return err
		}
		saveSnapshot(activities.SaveSnapshotInput{JobStarted: jobStarted})
		return nil
	}

	resolveStage := func(stage domain.Stage, status domain.StageStatus, unitsTotal, unitsDegraded int, stageStart time.Time) error {
		if err := state.Advance(stage, domain.StageOutcome{
			Status:        status,
			UnitsTotal:    unitsTotal,
			UnitsDegraded: unitsDegraded,
		}); err != nil {
			return err
		}
		saveSnapshot(activities.SaveSnapshotInput{
			CompletedStage:       stage,
			StageDurationSeconds: workflow.Now(ctx).Sub(stageStart).Seconds(),
			UnitsTotal:           unitsTotal,
			UnitsDegraded:        unitsDegraded,
		})
		return nil
	}

	// handleFailure marks the stage failed, emits the final snapshot on the
	// root context, and returns the original error.
	handleFailure := func(stage domain.Stage, failErr error) (*ReportWorkflowResult, error) {
		cancelled := cancelRequested || temporal.IsCanceledError(failErr)
		if cancelled {
			failErr = fmt.Errorf("job cancelled during %s: %w", stage, failErr)
		}
		logger.Error("workflow failed", "jobID", input.JobID, "stage", stage, "error", failErr)

		if err := state.Advance(stage, domain.StageOutcome{
			Status: domain.StageStatusFailed,
			Error:  failErr.Error(),
		}); err != nil {
			logger.Error("failed to record stage failure", "stage", stage, "error", err)
		}
		saveSnapshot(activities.SaveSnapshotInput{Cancelled: cancelled})
		return nil, failErr
	}

	// =====================================================================
	// Stage 1: OCR (normalization plus per-page text extraction)
	// =====================================================================

	if err := startStage(domain.StageOCR, true); err != nil {
		return nil, err
	}
	ocrStart := workflow.Now(ctx)

	if len(input.Documents) == 0 {
		return handleFailure(domain.StageOCR, fmt.Errorf("no documents submitted"))
	}

	// Normalize all documents concurrently, collect in input order so page
	// order is document order.
	normFutures := make([]workflow.Future, len(input.Documents))
	for i, doc := range input.Documents {
		normFutures[i] = workflow.ExecuteActivity(normalizeCtx, pipelineAct.NormalizeDocument, activities.NormalizeDocumentInput{
			JobID:    input.JobID,
			Document: doc,
		})
	}

	var pages []domain.Page
	documentsSkipped := 0
	for i, future := range normFutures {
		var out activities.NormalizeDocumentOutput
		if err := future.Get(cancelCtx, &out); err != nil {
			if cancelRequested {
				return handleFailure(domain.StageOCR, err)
			}
			logger.Warn("document skipped",
				"documentName", input.Documents[i].Name,
				"error", err,
			)
			documentsSkipped++
			continue
		}
		pages = append(pages, out.Pages...)
	}

	if len(pages) == 0 {
		return handleFailure(domain.StageOCR, fmt.Errorf("no document could be normalized (%d skipped)", documentsSkipped))
	}

	// One OCR activity per page. Futures are collected and read in input
	// order, so concatenation preserves page order regardless of completion
	// order.
	ocrFutures := make([]workflow.Future, len(pages))
	for i, page := range pages {
		ocrFutures[i] = workflow.ExecuteActivity(ocrCtx, pipelineAct.OCRPage, activities.OCRPageInput{
			JobID:      input.JobID,
			Page:       page,
			PageNumber: i + 1,
		})
	}

	pageTexts := make([]string, len(pages))
	pagesDegraded := 0
	for i, future := range ocrFutures {
		var out activities.OCRPageOutput
		if err := future.Get(cancelCtx, &out); err != nil {
			if cancelRequested {
				return handleFailure(domain.StageOCR, err)
			}
			pageTexts[i] = pageFailedPlaceholder(i + 1)
			pagesDegraded++
			continue
		}
		pageTexts[i] = out.Text
	}

	if pagesDegraded == len(pages) {
		return handleFailure(domain.StageOCR, fmt.Errorf("all %d pages failed extraction", len(pages)))
	}

	mergedText := strings.Join(pageTexts, "\n\n")
	if err := resolveStage(domain.StageOCR, domain.StageStatusSucceeded, len(pages), pagesDegraded, ocrStart); err != nil {
		return nil, err
	}

	// =====================================================================
	// Stage 2: Classification
	// =====================================================================

	if err := startStage(domain.StageClassification, false); err != nil {
		return nil, err
	}
	classifyStart := workflow.Now(ctx)

	var classifyOut activities.ClassifyOutput
	if err := workflow.ExecuteActivity(textCtx, pipelineAct.Classify, activities.ClassifyInput{
		JobID: input.JobID,
		Text:  mergedText,
	}).Get(cancelCtx, &classifyOut); err != nil {
		return handleFailure(domain.StageClassification, err)
	}

	state.Classification = classifyOut.Classification
	reportType := input.ReportType
	if !reportType.Valid() {
		reportType = domain.ReportTypeForCategory(classifyOut.Classification.Category)
	}

	if err := resolveStage(domain.StageClassification, domain.StageStatusSucceeded, 0, 0, classifyStart); err != nil {
		return nil, err
	}

	// =====================================================================
	// Stage 3: Extraction
	// =====================================================================

	if err := startStage(domain.StageExtraction, false); err != nil {
		return nil, err
	}
	extractStart := workflow.Now(ctx)

	var extractOut activities.ExtractRecordOutput
	if err := workflow.ExecuteActivity(textCtx, pipelineAct.ExtractRecord, activities.ExtractRecordInput{
		JobID: input.JobID,
		Text:  mergedText,
	}).Get(cancelCtx, &extractOut); err != nil {
		return handleFailure(domain.StageExtraction, err)
	}

	state.Record = extractOut.Record

	if err := resolveStage(domain.StageExtraction, domain.StageStatusSucceeded, 0, 0, extractStart); err != nil {
		return nil, err
	}

	// =====================================================================
	// Stage 4: Literature search (never fails the job)
	// =====================================================================

	if err := startStage(domain.StageLiterature, false); err != nil {
		return nil, err
	}
	literatureStart := workflow.Now(ctx)

	var questions []string
	var planOut activities.PlanQuestionsOutput
	planErr := workflow.ExecuteActivity(textCtx, pipelineAct.PlanQuestions, activities.PlanQuestionsInput{
		JobID:  input.JobID,
		Record: extractOut.Record,
	}).Get(cancelCtx, &planOut)
	switch {
	case planErr != nil && cancelRequested:
		return handleFailure(domain.StageLiterature, planErr)
	case planErr != nil:
		logger.Warn("question planning failed, continuing without literature",
			"jobID", input.JobID, "error", planErr)
	default:
		questions = planOut.Questions
	}

	var entries []domain.LiteratureEntry
	questionsDropped := 0
	if len(questions) > 0 {
		// One search activity per question; read in planning order so the
		// report lists evidence in the order questions were asked.
		searchFutures := make([]workflow.Future, len(questions))
		for i, question := range questions {
			searchFutures[i] = workflow.ExecuteActivity(searchCtx, pipelineAct.SearchQuestion, activities.SearchQuestionInput{
				JobID:    input.JobID,
				Question: question,
				Index:    i,
			})
		}
		for i, future := range searchFutures {
			var out activities.SearchQuestionOutput
			if err := future.Get(cancelCtx, &out); err != nil {
				if cancelRequested {
					return handleFailure(domain.StageLiterature, err)
				}
				logger.Warn("question dropped", "questionIndex", i, "error", err)
				questionsDropped++
				continue
			}
			entries = append(entries, out.Entry)
		}
	}

	state.Literature = entries

	literatureStatus := domain.StageStatusSucceeded
	if planErr != nil {
		literatureStatus = domain.StageStatusSkipped
	}
	if err := resolveStage(domain.StageLiterature, literatureStatus, len(questions), questionsDropped, literatureStart); err != nil {
		return nil, err
	}

	// =====================================================================
	// Stage 5: Synthesis
	// =====================================================================

	if err := startStage(domain.StageSynthesis, false); err != nil {
		return nil, err
	}
	synthesisStart := workflow.Now(ctx)

	var synthOut activities.SynthesizeOutput
	if err := workflow.ExecuteActivity(textCtx, pipelineAct.Synthesize, activities.SynthesizeInput{
		JobID:          input.JobID,
		ReportType:     reportType,
		Classification: classifyOut.Classification,
		Record:         extractOut.Record,
		Literature:     entries,
	}).Get(cancelCtx, &synthOut); err != nil {
		return handleFailure(domain.StageSynthesis, err)
	}

	state.Report = synthOut.Report

	if err := resolveStage(domain.StageSynthesis, domain.StageStatusSucceeded, 0, 0, synthesisStart); err != nil {
		return nil, err
	}

	result := &ReportWorkflowResult{
		JobID:             input.JobID,
		ReportType:        reportType,
		Report:            synthOut.Report,
		PagesProcessed:    len(pages) - pagesDegraded,
		PagesDegraded:     pagesDegraded,
		QuestionsPlanned:  len(questions),
		QuestionsAnswered: len(entries),
		Duration:          jobSeconds(),
	}

	logger.Info("report workflow complete",
		"jobID", input.JobID,
		"reportType", result.ReportType,
		"pagesProcessed", result.PagesProcessed,
		"pagesDegraded", result.PagesDegraded,
		"questionsAnswered", result.QuestionsAnswered,
		"duration", result.Duration,
	)
	return result, nil
}
