// Package ai provides clients for the remote AI capabilities the report
// pipeline depends on: vision OCR, document classification, structured
// extraction, literature search, and report synthesis.
//
// Each client performs a single call attempt per invocation; retry policy
// belongs to the resilient caller, and admission control to the concurrency
// gate. Failures are returned as *Error with a Kind the caller can use to
// decide retryability.
package ai

import (
	"context"

	"github.com/pablopedrosap/medical-ai-template/internal/domain"
)

// Capability names used for gating, metrics, and error reporting.
const (
	CapabilityOCR              = "ocr"
	CapabilityClassification   = "classification"
	CapabilityExtraction       = "extraction"
	CapabilityQuestionPlanning = "question_planning"
	CapabilityLiteratureSearch = "literature_search"
	CapabilitySynthesis        = "synthesis"
)

// Usage contains token usage information for a capability call.
type Usage struct {
	// InputTokens is the number of input tokens consumed.
	InputTokens int
	// OutputTokens is the number of output tokens produced.
	OutputTokens int
}

// OCRRequest is a single page sent for text extraction.
type OCRRequest struct {
	// ImageData is the rendered page image.
	ImageData []byte
	// MIMEType is the media type of ImageData (e.g. "image/jpeg").
	MIMEType string
	// PageNumber is the 1-based page number, used in prompts and errors.
	PageNumber int
}

// OCRResult is the extracted text of one page.
type OCRResult struct {
	// Text is the raw extracted text before cleaning.
	Text string
	// Model is the provider model that produced the text.
	Model string
	// Usage contains token usage for the call.
	Usage Usage
}

// VisionOCR extracts text from page images.
type VisionOCR interface {
	// ExtractPageText extracts all text from one page image.
	ExtractPageText(ctx context.Context, req OCRRequest) (*OCRResult, error)
}

// DocumentClassifier assigns documents to one of the closed categories.
type DocumentClassifier interface {
	// Classify classifies the merged document text.
	Classify(ctx context.Context, text string) (*domain.ClassificationResult, error)
}

// ExtractRequest is the input to structured medical extraction.
type ExtractRequest struct {
	// Text is the cleaned, merged document text.
	Text string
	// HighEffort requests the provider's high-effort reasoning mode for
	// complex corpora.
	HighEffort bool
}

// RecordExtractor produces a structured MedicalRecord from document text.
type RecordExtractor interface {
	// Extract extracts the structured record from the merged text.
	Extract(ctx context.Context, req ExtractRequest) (*domain.MedicalRecord, error)
}

// QuestionRequest is the input to clinical question planning.
type QuestionRequest struct {
	// Record is the structured extraction output.
	Record *domain.MedicalRecord
	// MinQuestions and MaxQuestions bound the generated set.
	MinQuestions int
	MaxQuestions int
}

// QuestionPlanner generates clinical questions for literature search.
type QuestionPlanner interface {
	// PlanQuestions generates clinical questions from the record.
	PlanQuestions(ctx context.Context, req QuestionRequest) ([]string, error)
}

// SearchResult is an evidence-backed answer to one clinical question.
type SearchResult struct {
	// Answer is the answer text.
	Answer string
	// Citations lists the supporting references.
	Citations []domain.Citation
	// Model is the provider model that produced the answer.
	Model string
	// Usage contains token usage for the call.
	Usage Usage
}

// LiteratureSearcher answers clinical questions against current literature.
type LiteratureSearcher interface {
	// Search answers one clinical question with citations.
	Search(ctx context.Context, question string) (*SearchResult, error)
}

// SynthesisRequest is the input to report synthesis.
type SynthesisRequest struct {
	// ReportType selects the template and framing.
	ReportType domain.ReportType
	// Classification is the classification stage output.
	Classification *domain.ClassificationResult
	// Record is the extraction stage output.
	Record *domain.MedicalRecord
	// Literature holds the answered clinical questions, possibly empty.
	Literature []domain.LiteratureEntry
}

// SynthesisResult is the synthesized report body.
type SynthesisResult struct {
	// Sections is the ordered section list in markdown.
	Sections []domain.ReportSection
	// Model is the provider model that produced the sections.
	Model string
	// Usage contains token usage for the call.
	Usage Usage
}

// ReportSynthesizer produces the narrative report sections.
type ReportSynthesizer interface {
	// Synthesize produces the report sections for the selected type.
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
}
