package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pablopedrosap/medical-ai-template/internal/domain"
)

// BuildOCRPrompt builds the instruction sent alongside a page image.
func BuildOCRPrompt(pageNumber int) string {
	var sb strings.Builder

	sb.WriteString("Extract all text from this medical document page. ")
	sb.WriteString("Transcribe the text exactly as written, preserving the reading order, ")
	sb.WriteString("line breaks, and any tables as plain text rows. ")
	sb.WriteString("Do not summarize, translate, or interpret the content. ")
	sb.WriteString("If a region is illegible, write [illegible] in its place. ")
	sb.WriteString("Return only the transcribed text with no commentary.")
	if pageNumber > 0 {
		sb.WriteString(fmt.Sprintf(" This is page %d of the document.", pageNumber))
	}

	return sb.String()
}

// BuildClassificationPrompt builds the system and user prompts for document
// classification. The system prompt fixes the closed category set and the
// JSON response shape.
func BuildClassificationPrompt(text string) (systemPrompt, userPrompt string) {
	var sb strings.Builder

	sb.WriteString("You are a medical-legal document classifier.\n\n")
	sb.WriteString("Your task: classify documents as MEDICAL DOCUMENTATION or LEGAL CLAIM.\n\n")

	sb.WriteString("You MUST respond with valid JSON in exactly this format:\n")
	sb.WriteString(`{"category": "medical_documentation" | "legal_claim" | "ambiguous", "confidence": 0.0-1.0, "reasoning": "Brief explanation"}`)
	sb.WriteString("\n\n")

	sb.WriteString("MEDICAL DOCUMENTATION (category=medical_documentation):\n")
	sb.WriteString("- Objective clinical observations (symptoms, exam findings, lab results)\n")
	sb.WriteString("- Medical history, diagnoses, treatment plans\n")
	sb.WriteString("- Surgical notes, discharge summaries\n")
	sb.WriteString("- Imaging reports, pathology reports\n")
	sb.WriteString("- Nursing notes, vital signs\n\n")

	sb.WriteString("LEGAL CLAIM (category=legal_claim):\n")
	sb.WriteString("- Allegations of malpractice or negligence\n")
	sb.WriteString("- Arguments for damages, compensation requests\n")
	sb.WriteString("- Legal interpretations of medical events\n")
	sb.WriteString("- Blame attribution, fault assignments\n")
	sb.WriteString("- Subjective complaints about care quality\n\n")

	sb.WriteString("AMBIGUOUS (category=ambiguous):\n")
	sb.WriteString("- Mixed content (both medical and legal)\n")
	sb.WriteString("- Unclear intent or purpose\n")
	sb.WriteString("- Insufficient information to classify\n\n")

	sb.WriteString("Instructions:\n")
	sb.WriteString("1. Read the document carefully.\n")
	sb.WriteString("2. Identify key phrases indicating medical vs. legal content.\n")
	sb.WriteString("3. Assign a confidence score (0.0-1.0).\n")
	sb.WriteString("4. Provide brief reasoning (2-3 sentences).\n\n")

	sb.WriteString("Important: medical documents can mention negative outcomes without being claims. ")
	sb.WriteString("A claim explicitly argues for liability or compensation.")

	systemPrompt = sb.String()

	var ub strings.Builder
	ub.WriteString("Classify the following document.\n\n")
	ub.WriteString("Document text:\n")
	ub.WriteString("---\n")
	ub.WriteString(text)
	ub.WriteString("\n---")
	userPrompt = ub.String()

	return systemPrompt, userPrompt
}

// BuildExtractionPrompt builds the system and user prompts for structured
// medical extraction.
func BuildExtractionPrompt(text string) (systemPrompt, userPrompt string) {
	var sb strings.Builder

	sb.WriteString("You are a clinical information extraction specialist working with ")
	sb.WriteString("medical-legal case files. Extract a structured summary of the patient's ")
	sb.WriteString("clinical course from the document text.\n\n")

	sb.WriteString("You MUST respond with valid JSON in exactly this format:\n")
	sb.WriteString(`{"demographics": "...", "history": "...", "episodes": [{"date": "...", "event": "...", "diagnosis": "...", "treatment": "..."}], "diagnoses": ["..."], "current_status": "..."}`)
	sb.WriteString("\n\n")

	sb.WriteString("Guidelines:\n")
	sb.WriteString("1. demographics: patient age, sex, and relevant personal context.\n")
	sb.WriteString("2. history: relevant prior medical history before the documented episode.\n")
	sb.WriteString("3. episodes: chronological clinical events (admissions, surgeries, consultations), ")
	sb.WriteString("each with its date as written in the document.\n")
	sb.WriteString("4. diagnoses: the principal diagnoses, using the document's own terminology.\n")
	sb.WriteString("5. current_status: the patient's condition at the end of the documented period.\n")
	sb.WriteString("6. Report only what the document states. Never invent dates, findings, or treatments.\n")
	sb.WriteString("7. Leave a field empty rather than guessing. Text may contain OCR artifacts and ")
	sb.WriteString("flagged failed pages; work around them.")

	systemPrompt = sb.String()

	var ub strings.Builder
	ub.WriteString("Extract the structured record from the following document text.\n\n")
	ub.WriteString("Document text:\n")
	ub.WriteString("---\n")
	ub.WriteString(text)
	ub.WriteString("\n---")
	userPrompt = ub.String()

	return systemPrompt, userPrompt
}

// BuildQuestionPrompt builds the system and user prompts for clinical
// question planning.
func BuildQuestionPrompt(req QuestionRequest) (systemPrompt, userPrompt string) {
	var sb strings.Builder

	sb.WriteString("You are a medical expert preparing an evidence review for a ")
	sb.WriteString("medical-legal report. From the structured case summary, formulate the ")
	sb.WriteString("clinical questions whose answers in current literature would support or ")
	sb.WriteString("challenge the care described.\n\n")

	sb.WriteString("You MUST respond with valid JSON in exactly this format:\n")
	sb.WriteString(`{"questions": ["question 1", "question 2"]}`)
	sb.WriteString("\n\n")

	sb.WriteString("Guidelines:\n")
	sb.WriteString(fmt.Sprintf("1. Generate between %d and %d questions.\n", req.MinQuestions, req.MaxQuestions))
	sb.WriteString("2. Each question must be self-contained and answerable from published literature.\n")
	sb.WriteString("3. Cover standard of care, diagnostic criteria, treatment alternatives, ")
	sb.WriteString("known complication rates, and prognosis for the documented conditions.\n")
	sb.WriteString("4. Do not repeat questions or ask near-duplicates.\n")
	sb.WriteString("5. Phrase questions neutrally; do not presuppose fault.")

	systemPrompt = sb.String()

	var ub strings.Builder
	ub.WriteString("Case summary:\n")
	if req.Record != nil {
		if req.Record.Demographics != "" {
			ub.WriteString("Demographics: " + req.Record.Demographics + "\n")
		}
		if req.Record.History != "" {
			ub.WriteString("History: " + req.Record.History + "\n")
		}
		if len(req.Record.Diagnoses) > 0 {
			ub.WriteString("Diagnoses: " + strings.Join(req.Record.Diagnoses, "; ") + "\n")
		}
		for _, ep := range req.Record.Episodes {
			ub.WriteString(fmt.Sprintf("Episode (%s): %s", ep.Date, ep.Event))
			if ep.Diagnosis != "" {
				ub.WriteString("; diagnosis: " + ep.Diagnosis)
			}
			if ep.Treatment != "" {
				ub.WriteString("; treatment: " + ep.Treatment)
			}
			ub.WriteString("\n")
		}
		if req.Record.CurrentStatus != "" {
			ub.WriteString("Current status: " + req.Record.CurrentStatus + "\n")
		}
	}
	userPrompt = ub.String()

	return systemPrompt, userPrompt
}

// BuildLiteraturePrompt builds the system and user prompts for one
// literature search call.
func BuildLiteraturePrompt(question string) (systemPrompt, userPrompt string) {
	var sb strings.Builder

	sb.WriteString("You are a medical literature researcher. Answer the clinical question ")
	sb.WriteString("using current peer-reviewed medical literature and clinical guidelines.\n\n")

	sb.WriteString("Guidelines:\n")
	sb.WriteString("1. Base the answer on published evidence; prefer guidelines, systematic ")
	sb.WriteString("reviews, and large studies.\n")
	sb.WriteString("2. State the level of evidence where relevant.\n")
	sb.WriteString("3. Be concise: a focused answer of one to three paragraphs.\n")
	sb.WriteString("4. If the evidence is inconclusive, say so explicitly.")

	systemPrompt = sb.String()
	userPrompt = question

	return systemPrompt, userPrompt
}

// synthesisFraming returns the framing instructions for a report type.
func synthesisFraming(t domain.ReportType) (string, error) {
	switch t {
	case domain.ReportTypeExpertOpinion:
		return "Write a medical expert opinion over the documented clinical course. " +
			"Assess whether the care described conforms to accepted practice, citing the " +
			"case facts and the provided literature findings.", nil
	case domain.ReportTypeClaimResponse:
		return "Write a response to a legal claim. Address each alleged deviation from " +
			"the standard of care against the documented facts and the provided " +
			"literature findings, in neutral professional language.", nil
	case domain.ReportTypeCaseSummary:
		return "Write a neutral case summary of the documented clinical course. " +
			"Present the facts chronologically without assigning fault.", nil
	default:
		return "", fmt.Errorf("unknown report type %q", t)
	}
}

// BuildSynthesisPrompt builds the system and user prompts for report
// synthesis. The case material is passed as JSON so the model sees the
// structured record rather than free text.
func BuildSynthesisPrompt(req SynthesisRequest) (systemPrompt, userPrompt string, err error) {
	framing, err := synthesisFraming(req.ReportType)
	if err != nil {
		return "", "", err
	}

	var sb strings.Builder

	sb.WriteString("You are a medical expert writing formal medical-legal reports.\n\n")
	sb.WriteString(framing)
	sb.WriteString("\n\n")

	sb.WriteString("You MUST respond with valid JSON in exactly this format:\n")
	sb.WriteString(`{"sections": [{"title": "Section title", "markdown": "Section body in markdown"}]}`)
	sb.WriteString("\n\n")

	sb.WriteString("Guidelines:\n")
	sb.WriteString("1. Produce ordered sections forming a complete report.\n")
	sb.WriteString("2. Ground every statement in the supplied case material.\n")
	if len(req.Literature) > 0 {
		sb.WriteString("3. Include a literature review section that references the supplied findings.\n")
	} else {
		sb.WriteString("3. No literature findings are available; do not include a literature section.\n")
	}
	sb.WriteString("4. Formal register, third person, no speculation beyond the documented facts.")

	systemPrompt = sb.String()

	material := struct {
		Classification *domain.ClassificationResult `json:"classification"`
		Record         *domain.MedicalRecord        `json:"record"`
		Literature     []domain.LiteratureEntry     `json:"literature,omitempty"`
	}{
		Classification: req.Classification,
		Record:         req.Record,
		Literature:     req.Literature,
	}

	materialJSON, err := json.MarshalIndent(material, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal case material: %w", err)
	}

	var ub strings.Builder
	ub.WriteString("Case material:\n")
	ub.Write(materialJSON)
	userPrompt = ub.String()

	return systemPrompt, userPrompt, nil
}
