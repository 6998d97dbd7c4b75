package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stage identifies one ordered phase of the report pipeline.
type Stage string

const (
	StageOCR            Stage = "ocr"
	StageClassification Stage = "classification"
	StageExtraction     Stage = "extraction"
	StageLiterature     Stage = "literature"
	StageSynthesis      Stage = "synthesis"
)

// PipelineStages lists the stages in execution order.
var PipelineStages = []Stage{
	StageOCR,
	StageClassification,
	StageExtraction,
	StageLiterature,
	StageSynthesis,
}

// StageStatus is the per-stage status within a job.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusSucceeded StageStatus = "succeeded"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// JobPhase is the overall lifecycle state of a job. Phases advance
// monotonically through the stage sequence; JobPhaseFailed absorbs from any
// running phase.
type JobPhase string

const (
	JobPhaseIngested          JobPhase = "ingested"
	JobPhaseOcrRunning        JobPhase = "ocr_running"
	JobPhaseOcrDone           JobPhase = "ocr_done"
	JobPhaseClassifyRunning   JobPhase = "classify_running"
	JobPhaseClassifyDone      JobPhase = "classify_done"
	JobPhaseExtractRunning    JobPhase = "extract_running"
	JobPhaseExtractDone       JobPhase = "extract_done"
	JobPhaseLiteratureRunning JobPhase = "literature_running"
	JobPhaseLiteratureDone    JobPhase = "literature_done"
	JobPhaseSynthesizeRunning JobPhase = "synthesize_running"
	JobPhaseCompleted         JobPhase = "completed"
	JobPhaseFailed            JobPhase = "failed"
)

// IsTerminal returns true if the phase represents a final state that will
// not change.
func (p JobPhase) IsTerminal() bool {
	return p == JobPhaseCompleted || p == JobPhaseFailed
}

// runningPhase maps each stage to its running phase.
var runningPhase = map[Stage]JobPhase{
	StageOCR:            JobPhaseOcrRunning,
	StageClassification: JobPhaseClassifyRunning,
	StageExtraction:     JobPhaseExtractRunning,
	StageLiterature:     JobPhaseLiteratureRunning,
	StageSynthesis:      JobPhaseSynthesizeRunning,
}

// donePhase maps each stage to the phase reached when it resolves
// successfully. Synthesis completes the job.
var donePhase = map[Stage]JobPhase{
	StageOCR:            JobPhaseOcrDone,
	StageClassification: JobPhaseClassifyDone,
	StageExtraction:     JobPhaseExtractDone,
	StageLiterature:     JobPhaseLiteratureDone,
	StageSynthesis:      JobPhaseCompleted,
}

// entryPhase maps each stage to the phase its Running transition is valid
// from: the previous stage's done phase, or ingested for OCR.
var entryPhase = map[Stage]JobPhase{
	StageOCR:            JobPhaseIngested,
	StageClassification: JobPhaseOcrDone,
	StageExtraction:     JobPhaseClassifyDone,
	StageLiterature:     JobPhaseExtractDone,
	StageSynthesis:      JobPhaseLiteratureDone,
}

// stageWeights assign each stage its share of the percent estimate. The
// estimate is a pure function of which stages have resolved, never of
// wall-clock time.
var stageWeights = map[Stage]int{
	StageOCR:            30,
	StageClassification: 15,
	StageExtraction:     25,
	StageLiterature:     20,
	StageSynthesis:      10,
}

// StageOutcome is the result of a stage resolution reported to Advance.
type StageOutcome struct {
	// Status is the resolved status: Running, Succeeded, Failed, or Skipped.
	Status StageStatus

	// Error carries failure detail when Status is Failed.
	Error string

	// UnitsTotal is the number of units (pages, questions) the stage
	// processed.
	UnitsTotal int

	// UnitsDegraded is the number of units that failed individually while
	// the stage still met its minimum-success condition.
	UnitsDegraded int
}

// JobState tracks per-stage status, partial outputs, and the overall phase
// of a job. It is mutated exclusively through Advance as stages resolve and
// becomes immutable once the phase is terminal.
type JobState struct {
	// JobID is the job identifier.
	JobID uuid.UUID `json:"job_id"`

	// Phase is the overall lifecycle phase.
	Phase JobPhase `json:"phase"`

	// Stages holds the per-stage status.
	Stages map[Stage]StageStatus `json:"stages"`

	// FailedStage names the stage that failed when Phase is failed.
	FailedStage Stage `json:"failed_stage,omitempty"`

	// Error is the failure detail when Phase is failed.
	Error string `json:"error,omitempty"`

	// UnitsTotal and UnitsDegraded record unit counts per stage, so partial
	// degradation stays inspectable after the fact.
	UnitsTotal    map[Stage]int `json:"units_total,omitempty"`
	UnitsDegraded map[Stage]int `json:"units_degraded,omitempty"`

	// Partial outputs, populated as stages succeed.
	Classification *ClassificationResult `json:"classification,omitempty"`
	Record         *MedicalRecord        `json:"record,omitempty"`
	Literature     []LiteratureEntry     `json:"literature,omitempty"`
	Report         *Report               `json:"report,omitempty"`

	// UpdatedAt is the time of the last transition.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJobState creates the initial state for a freshly ingested job.
func NewJobState(jobID uuid.UUID) *JobState {
	stages := make(map[Stage]StageStatus, len(PipelineStages))
	for _, s := range PipelineStages {
		stages[s] = StageStatusPending
	}
	return &JobState{
		JobID:         jobID,
		Phase:         JobPhaseIngested,
		Stages:        stages,
		UnitsTotal:    make(map[Stage]int),
		UnitsDegraded: make(map[Stage]int),
	}
}

// Advance applies a stage transition, validating it against the state
// machine. Out-of-order advances, advances on terminal jobs, and regressions
// from a resolved stage are rejected with an InvalidTransitionError.
func (j *JobState) Advance(stage Stage, outcome StageOutcome) error {
	running, ok := runningPhase[stage]
	if !ok {
		return &InvalidTransitionError{Phase: j.Phase, Stage: stage, Reason: "unknown stage"}
	}
	if j.Phase.IsTerminal() {
		return &InvalidTransitionError{Phase: j.Phase, Stage: stage, Reason: "job is terminal"}
	}

	switch outcome.Status {
	case StageStatusRunning:
		if j.Phase != entryPhase[stage] {
			return &InvalidTransitionError{Phase: j.Phase, Stage: stage, Reason: "predecessor not resolved"}
		}
		j.Phase = running
		j.Stages[stage] = StageStatusRunning

	case StageStatusSucceeded, StageStatusSkipped:
		if j.Phase != running {
			return &InvalidTransitionError{Phase: j.Phase, Stage: stage, Reason: "stage is not running"}
		}
		j.Phase = donePhase[stage]
		j.Stages[stage] = outcome.Status
		if outcome.UnitsTotal > 0 {
			j.UnitsTotal[stage] = outcome.UnitsTotal
			j.UnitsDegraded[stage] = outcome.UnitsDegraded
		}

	case StageStatusFailed:
		if j.Phase != running {
			return &InvalidTransitionError{Phase: j.Phase, Stage: stage, Reason: "stage is not running"}
		}
		j.Phase = JobPhaseFailed
		j.Stages[stage] = StageStatusFailed
		j.FailedStage = stage
		j.Error = outcome.Error
		if outcome.UnitsTotal > 0 {
			j.UnitsTotal[stage] = outcome.UnitsTotal
			j.UnitsDegraded[stage] = outcome.UnitsDegraded
		}

	default:
		return &InvalidTransitionError{Phase: j.Phase, Stage: stage, Reason: "invalid outcome status"}
	}

	j.UpdatedAt = time.Now().UTC()
	return nil
}

// ProgressSnapshot is the externally queryable view of a job's progress.
type ProgressSnapshot struct {
	// JobID is the job identifier.
	JobID uuid.UUID `json:"job_id"`

	// Phase is the current lifecycle phase.
	Phase JobPhase `json:"phase"`

	// CurrentStage is the stage currently running, or the next pending
	// stage; empty once the job is terminal.
	CurrentStage Stage `json:"current_stage,omitempty"`

	// PercentEstimate is a deterministic completion estimate derived from
	// resolved stages.
	PercentEstimate int `json:"percent_estimate"`

	// FailedStage and Error carry failure detail for failed jobs.
	FailedStage Stage  `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`

	// UnitsDegraded maps stages to their degraded unit counts.
	UnitsDegraded map[Stage]int `json:"units_degraded,omitempty"`

	// Partial results remain queryable even after failure.
	Classification *ClassificationResult `json:"classification,omitempty"`
	Record         *MedicalRecord        `json:"record,omitempty"`
	Literature     []LiteratureEntry     `json:"literature,omitempty"`
}

// Progress computes a progress snapshot from the current state.
func (j *JobState) Progress() ProgressSnapshot {
	percent := 0
	var current Stage
	for _, s := range PipelineStages {
		switch j.Stages[s] {
		case StageStatusSucceeded, StageStatusSkipped:
			percent += stageWeights[s]
		case StageStatusRunning:
			if current == "" {
				current = s
			}
		case StageStatusPending:
			if current == "" && !j.Phase.IsTerminal() {
				current = s
			}
		}
	}
	if j.Phase == JobPhaseCompleted {
		percent = 100
		current = ""
	}
	if j.Phase == JobPhaseFailed {
		current = ""
	}

	degraded := make(map[Stage]int, len(j.UnitsDegraded))
	for s, n := range j.UnitsDegraded {
		if n > 0 {
			degraded[s] = n
		}
	}
	if len(degraded) == 0 {
		degraded = nil
	}

	return ProgressSnapshot{
		JobID:           j.JobID,
		Phase:           j.Phase,
		CurrentStage:    current,
		PercentEstimate: percent,
		FailedStage:     j.FailedStage,
		Error:           j.Error,
		UnitsDegraded:   degraded,
		Classification:  j.Classification,
		Record:          j.Record,
		Literature:      j.Literature,
	}
}
