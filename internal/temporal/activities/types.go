// Package activities provides Temporal activity implementations for the
// medical report pipeline.
//
// Activity inputs and outputs are defined as serializable structs that cross
// the Temporal serialization boundary. Each activity receives an input struct
// and returns an output struct (or error). All fields must be exported for
// JSON serialization by the Temporal SDK's default data converter.
package activities

import (
	"github.com/google/uuid"

	"github.com/pablopedrosap/medical-ai-template/internal/domain"
)

// NormalizeDocumentInput contains the parameters for the document
// normalization activity.
type NormalizeDocumentInput struct {
	// JobID is the report job identifier.
	JobID uuid.UUID

	// Document is the uploaded document to normalize.
	Document domain.Document
}

// NormalizeDocumentOutput contains the ordered pages of a normalized
// document.
type NormalizeDocumentOutput struct {
	// Pages is the ordered page list.
	Pages []domain.Page
}

// OCRPageInput contains the parameters for the per-page OCR activity.
type OCRPageInput struct {
	// JobID is the report job identifier.
	JobID uuid.UUID

	// Page is the page to extract text from.
	Page domain.Page

	// PageNumber is the 1-based position of the page across the whole job,
	// used for prompts and degradation placeholders.
	PageNumber int
}

// OCRPageOutput contains the extracted text of one page.
type OCRPageOutput struct {
	// Text is the cleaned page text.
	Text string

	// Model is the provider model used, empty for direct text pages.
	Model string
}

// ClassifyInput contains the parameters for the classification activity.
type ClassifyInput struct {
	// JobID is the report job identifier.
	JobID uuid.UUID

	// Text is the merged document text.
	Text string
}

// ClassifyOutput contains the classification result.
type ClassifyOutput struct {
	// Classification is the category decision with confidence.
	Classification *domain.ClassificationResult
}

// ExtractRecordInput contains the parameters for the structured extraction
// activity.
type ExtractRecordInput struct {
	// JobID is the report job identifier.
	JobID uuid.UUID

	// Text is the merged document text.
	Text string
}

// ExtractRecordOutput contains the extracted medical record.
type ExtractRecordOutput struct {
	// Record is the structured medical record.
	Record *domain.MedicalRecord

	// HighEffort reports whether the reasoning-effort model path was used.
	HighEffort bool
}

// PlanQuestionsInput contains the parameters for the question planning
// activity.
type PlanQuestionsInput struct {
	// JobID is the report job identifier.
	JobID uuid.UUID

	// Record is the extracted medical record the questions are derived from.
	Record *domain.MedicalRecord
}

// PlanQuestionsOutput contains the planned clinical questions.
type PlanQuestionsOutput struct {
	// Questions is the deduplicated, bounded question list in planning order.
	Questions []string
}

// SearchQuestionInput contains the parameters for a single literature
// search activity.
type SearchQuestionInput struct {
	// JobID is the report job identifier.
	JobID uuid.UUID

	// Question is the clinical question to answer.
	Question string

	// Index is the question's position in planning order.
	Index int
}

// SearchQuestionOutput contains one answered clinical question.
type SearchQuestionOutput struct {
	// Entry is the answered question with citations.
	Entry domain.LiteratureEntry
}

// SynthesizeInput contains the parameters for the synthesis activity.
type SynthesizeInput struct {
	// JobID is the report job identifier.
	JobID uuid.UUID

	// ReportType selects the template and framing.
	ReportType domain.ReportType

	// Classification is the classification stage output.
	Classification *domain.ClassificationResult

	// Record is the extraction stage output.
	Record *domain.MedicalRecord

	// Literature holds the answered questions in planning order, possibly
	// empty when the search stage fully degraded.
	Literature []domain.LiteratureEntry
}

// SynthesizeOutput contains the assembled report.
type SynthesizeOutput struct {
	// Report is the final intermediate report representation.
	Report *domain.Report
}

// SaveSnapshotInput contains the parameters for the progress snapshot
// activity. The metric fields are set explicitly by the workflow so the
// activity never has to infer what happened from the snapshot alone.
type SaveSnapshotInput struct {
	// Snapshot is the progress snapshot to persist.
	Snapshot domain.ProgressSnapshot

	// JobStarted marks the first transition of a job.
	JobStarted bool

	// Cancelled marks a failure caused by a cancellation request.
	Cancelled bool

	// CompletedStage names the stage that just resolved, empty for
	// running-phase transitions.
	CompletedStage domain.Stage

	// StageDurationSeconds is the resolved stage's runtime.
	StageDurationSeconds float64

	// UnitsTotal and UnitsDegraded are the resolved stage's unit counts.
	UnitsTotal    int
	UnitsDegraded int

	// DurationSeconds is the job runtime so far, used for terminal-state
	// metrics.
	DurationSeconds float64
}
