package activities

import (
	"context"
	"fmt"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/pablopedrosap/medical-ai-template/internal/ai"
	"github.com/pablopedrosap/medical-ai-template/internal/config"
	"github.com/pablopedrosap/medical-ai-template/internal/domain"
	"github.com/pablopedrosap/medical-ai-template/internal/gate"
	"github.com/pablopedrosap/medical-ai-template/internal/literature"
	"github.com/pablopedrosap/medical-ai-template/internal/normalize"
	"github.com/pablopedrosap/medical-ai-template/internal/observability"
	"github.com/pablopedrosap/medical-ai-template/internal/report"
	"github.com/pablopedrosap/medical-ai-template/internal/resilience"
	"github.com/pablopedrosap/medical-ai-template/internal/textclean"
)

// PipelineActivities provides the Temporal activities of the report
// pipeline. Each remote capability call is admitted through the shared gate
// and executed through the resilient caller; the workflow schedules these
// activities with a single Temporal attempt so the explicit retry schedule
// is the only retry loop.
type PipelineActivities struct {
	normalizer  *normalize.Normalizer
	cleaner     *textclean.Cleaner
	gate        *gate.Gate
	caller      *resilience.Caller
	ocr         ai.VisionOCR
	classifier  ai.DocumentClassifier
	extractor   ai.RecordExtractor
	planner     *literature.Planner
	searcher    ai.LiteratureSearcher
	synthesizer ai.ReportSynthesizer
	builder     *report.Builder
	metrics     *observability.Metrics

	complexityThreshold int
	ocrModel            string
	textModel           string
	searchModel         string
}

// PipelineDeps bundles the collaborators of PipelineActivities.
type PipelineDeps struct {
	Normalizer  *normalize.Normalizer
	Cleaner     *textclean.Cleaner
	Gate        *gate.Gate
	Caller      *resilience.Caller
	OCR         ai.VisionOCR
	Classifier  ai.DocumentClassifier
	Extractor   ai.RecordExtractor
	Planner     *literature.Planner
	Searcher    ai.LiteratureSearcher
	Synthesizer ai.ReportSynthesizer
	Builder     *report.Builder
	Metrics     *observability.Metrics
}

// NewPipelineActivities creates a PipelineActivities instance. The metrics
// dependency may be nil (metrics recording will be skipped).
func NewPipelineActivities(deps PipelineDeps, cfg *config.Config) *PipelineActivities {
	return &PipelineActivities{
		normalizer:          deps.Normalizer,
		cleaner:             deps.Cleaner,
		gate:                deps.Gate,
		caller:              deps.Caller,
		ocr:                 deps.OCR,
		classifier:          deps.Classifier,
		extractor:           deps.Extractor,
		planner:             deps.Planner,
		searcher:            deps.Searcher,
		synthesizer:         deps.Synthesizer,
		builder:             deps.Builder,
		metrics:             deps.Metrics,
		complexityThreshold: cfg.Extraction.ComplexityThreshold,
		ocrModel:            cfg.Providers.Gemini.Model,
		textModel:           cfg.Providers.OpenAI.Model,
		searchModel:         cfg.Providers.Perplexity.Model,
	}
}

// NormalizeDocument converts one uploaded document into its ordered pages.
// Unsupported and unconvertible documents fail the activity; the workflow
// records them and continues with the remaining documents.
func (a *PipelineActivities) NormalizeDocument(ctx context.Context, input NormalizeDocumentInput) (*NormalizeDocumentOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("normalizing document",
		"documentID", input.Document.ID,
		"documentName", input.Document.Name,
		"bytes", len(input.Document.Content),
	)

	pages, err := a.normalizer.Normalize(input.Document)
	if err != nil {
		logger.Error("document normalization failed",
			"documentID", input.Document.ID,
			"documentName", input.Document.Name,
			"error", err,
		)
		return nil, fmt.Errorf("normalize document %q: %w", input.Document.Name, err)
	}

	logger.Info("document normalized",
		"documentID", input.Document.ID,
		"pageCount", len(pages),
	)
	return &NormalizeDocumentOutput{Pages: pages}, nil
}

// OCRPage extracts the text of one page. Pages whose text was extracted
// directly during normalization skip the provider call. Provider failures
// propagate to the workflow, which substitutes a flagged placeholder.
func (a *PipelineActivities) OCRPage(ctx context.Context, input OCRPageInput) (*OCRPageOutput, error) {
	logger := activity.GetLogger(ctx)

	if !input.Page.NeedsOCR {
		return &OCRPageOutput{Text: a.cleaner.Clean(input.Page.Text)}, nil
	}

	ctx = observability.WithJobID(ctx, input.JobID.String())
	ctx = observability.WithStage(ctx, string(domain.StageOCR))

	permit, err := a.gate.Acquire(ctx, ai.CapabilityOCR)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	result, err := resilience.Do(ctx, a.caller, ai.CapabilityOCR, a.ocrModel, func(ctx context.Context) (*ai.OCRResult, error) {
		return a.ocr.ExtractPageText(ctx, ai.OCRRequest{
			ImageData:  input.Page.ImageData,
			MIMEType:   input.Page.MIMEType,
			PageNumber: input.PageNumber,
		})
	})
	if err != nil {
		logger.Error("page OCR failed",
			"pageNumber", input.PageNumber,
			"documentID", input.Page.DocumentID,
			"error", err,
		)
		return nil, fmt.Errorf("ocr page %d: %w", input.PageNumber, err)
	}

	a.metrics.RecordCapabilityTokens(ai.CapabilityOCR, result.Model, result.Usage.InputTokens, result.Usage.OutputTokens)

	logger.Info("page OCR complete",
		"pageNumber", input.PageNumber,
		"model", result.Model,
		"textLength", len(result.Text),
	)
	return &OCRPageOutput{Text: a.cleaner.Clean(result.Text), Model: result.Model}, nil
}

// Classify categorizes the merged document text into one of the three
// report categories.
func (a *PipelineActivities) Classify(ctx context.Context, input ClassifyInput) (*ClassifyOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("classifying documents", "textLength", len(input.Text))

	if strings.TrimSpace(input.Text) == "" {
		return nil, fmt.Errorf("classify: no text to classify")
	}

	ctx = observability.WithJobID(ctx, input.JobID.String())
	ctx = observability.WithStage(ctx, string(domain.StageClassification))

	permit, err := a.gate.Acquire(ctx, ai.CapabilityClassification)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	result, err := resilience.Do(ctx, a.caller, ai.CapabilityClassification, a.textModel, func(ctx context.Context) (*domain.ClassificationResult, error) {
		return a.classifier.Classify(ctx, input.Text)
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	logger.Info("classification complete",
		"category", result.Category,
		"confidence", result.Confidence,
	)
	return &ClassifyOutput{Classification: result}, nil
}

// ExtractRecord extracts the structured medical record from the merged
// text. The reasoning-effort model path is used for texts above the
// complexity threshold.
func (a *PipelineActivities) ExtractRecord(ctx context.Context, input ExtractRecordInput) (*ExtractRecordOutput, error) {
	logger := activity.GetLogger(ctx)
	highEffort := len(input.Text) > a.complexityThreshold
	logger.Info("extracting medical record",
		"textLength", len(input.Text),
		"highEffort", highEffort,
	)

	ctx = observability.WithJobID(ctx, input.JobID.String())
	ctx = observability.WithStage(ctx, string(domain.StageExtraction))

	permit, err := a.gate.Acquire(ctx, ai.CapabilityExtraction)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	record, err := resilience.Do(ctx, a.caller, ai.CapabilityExtraction, a.textModel, func(ctx context.Context) (*domain.MedicalRecord, error) {
		return a.extractor.Extract(ctx, ai.ExtractRequest{Text: input.Text, HighEffort: highEffort})
	})
	if err != nil {
		return nil, fmt.Errorf("extract record: %w", err)
	}

	logger.Info("medical record extracted",
		"episodes", len(record.Episodes),
		"diagnoses", len(record.Diagnoses),
	)
	return &ExtractRecordOutput{Record: record, HighEffort: highEffort}, nil
}

// PlanQuestions derives the clinical question list from the extracted
// record.
func (a *PipelineActivities) PlanQuestions(ctx context.Context, input PlanQuestionsInput) (*PlanQuestionsOutput, error) {
	logger := activity.GetLogger(ctx)

	ctx = observability.WithJobID(ctx, input.JobID.String())
	ctx = observability.WithStage(ctx, string(domain.StageLiterature))

	permit, err := a.gate.Acquire(ctx, ai.CapabilityQuestionPlanning)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	questions, err := resilience.Do(ctx, a.caller, ai.CapabilityQuestionPlanning, a.textModel, func(ctx context.Context) ([]string, error) {
		return a.planner.PlanQuestions(ctx, input.Record)
	})
	if err != nil {
		return nil, fmt.Errorf("plan questions: %w", err)
	}

	logger.Info("clinical questions planned", "questionCount", len(questions))
	return &PlanQuestionsOutput{Questions: questions}, nil
}

// SearchQuestion answers one clinical question through the literature
// search capability. Failures propagate to the workflow, which drops the
// question from the report.
func (a *PipelineActivities) SearchQuestion(ctx context.Context, input SearchQuestionInput) (*SearchQuestionOutput, error) {
	logger := activity.GetLogger(ctx)

	ctx = observability.WithJobID(ctx, input.JobID.String())
	ctx = observability.WithStage(ctx, string(domain.StageLiterature))

	permit, err := a.gate.Acquire(ctx, ai.CapabilityLiteratureSearch)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	result, err := resilience.Do(ctx, a.caller, ai.CapabilityLiteratureSearch, a.searchModel, func(ctx context.Context) (*ai.SearchResult, error) {
		return a.searcher.Search(ctx, input.Question)
	})
	if err != nil {
		logger.Warn("literature search failed",
			"questionIndex", input.Index,
			"error", err,
		)
		return nil, fmt.Errorf("search question %d: %w", input.Index, err)
	}

	a.metrics.RecordCapabilityTokens(ai.CapabilityLiteratureSearch, result.Model, result.Usage.InputTokens, result.Usage.OutputTokens)

	logger.Info("question answered",
		"questionIndex", input.Index,
		"citations", len(result.Citations),
	)
	return &SearchQuestionOutput{Entry: domain.LiteratureEntry{
		Question:  input.Question,
		Answer:    result.Answer,
		Citations: result.Citations,
	}}, nil
}

// Synthesize produces the narrative sections and assembles the final
// report.
func (a *PipelineActivities) Synthesize(ctx context.Context, input SynthesizeInput) (*SynthesizeOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("synthesizing report",
		"reportType", input.ReportType,
		"literatureEntries", len(input.Literature),
	)

	ctx = observability.WithJobID(ctx, input.JobID.String())
	ctx = observability.WithStage(ctx, string(domain.StageSynthesis))

	permit, err := a.gate.Acquire(ctx, ai.CapabilitySynthesis)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	result, err := resilience.Do(ctx, a.caller, ai.CapabilitySynthesis, a.textModel, func(ctx context.Context) (*ai.SynthesisResult, error) {
		return a.synthesizer.Synthesize(ctx, ai.SynthesisRequest{
			ReportType:     input.ReportType,
			Classification: input.Classification,
			Record:         input.Record,
			Literature:     input.Literature,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	built, err := a.builder.Build(report.BuildInput{
		Type:           input.ReportType,
		Classification: input.Classification,
		Record:         input.Record,
		Literature:     input.Literature,
		Sections:       result.Sections,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	logger.Info("report assembled",
		"sections", len(built.Sections),
		"hasLiterature", built.HasLiterature,
	)
	return &SynthesizeOutput{Report: built}, nil
}
