package domain

// ClassificationCategory is the closed set of document categories produced
// by the classification stage.
type ClassificationCategory string

const (
	CategoryMedicalDocumentation ClassificationCategory = "medical_documentation"
	CategoryLegalClaim           ClassificationCategory = "legal_claim"
	CategoryAmbiguous            ClassificationCategory = "ambiguous"
)

// Valid reports whether the category is one of the known values.
func (c ClassificationCategory) Valid() bool {
	switch c {
	case CategoryMedicalDocumentation, CategoryLegalClaim, CategoryAmbiguous:
		return true
	default:
		return false
	}
}

// ClassificationResult is the output of the classification stage. Produced
// once per job; immutable.
type ClassificationResult struct {
	// Category is the document category.
	Category ClassificationCategory `json:"category"`

	// Confidence is the provider-reported confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Reasoning is the provider's brief explanation of the decision.
	Reasoning string `json:"reasoning,omitempty"`
}

// Episode is a single chronological entry in a patient's clinical history.
type Episode struct {
	// Date is the episode date as found in the document (free-form; source
	// documents rarely use a uniform date format).
	Date string `json:"date"`

	// Event describes what happened (admission, surgery, consultation...).
	Event string `json:"event"`

	// Diagnosis is the diagnosis associated with the episode, if any.
	Diagnosis string `json:"diagnosis,omitempty"`

	// Treatment is the treatment given, if any.
	Treatment string `json:"treatment,omitempty"`
}

// MedicalRecord is the structured extraction output. It may be partially
// populated when extraction degrades on low-quality source text.
type MedicalRecord struct {
	// Demographics summarizes patient age, sex, and relevant context.
	Demographics string `json:"demographics"`

	// History is the relevant prior medical history.
	History string `json:"history,omitempty"`

	// Episodes is the chronological episode list.
	Episodes []Episode `json:"episodes,omitempty"`

	// Diagnoses lists the principal diagnoses found in the document.
	Diagnoses []string `json:"diagnoses,omitempty"`

	// CurrentStatus is the patient's status at the end of the documented
	// period.
	CurrentStatus string `json:"current_status,omitempty"`
}

// IsEmpty reports whether extraction produced no usable content at all.
func (r MedicalRecord) IsEmpty() bool {
	return r.Demographics == "" && r.History == "" && len(r.Episodes) == 0 &&
		len(r.Diagnoses) == 0 && r.CurrentStatus == ""
}

// Citation is a literature reference backing an answer.
type Citation struct {
	// Title is the cited work's title.
	Title string `json:"title"`

	// SourceID is the source identifier (DOI, PMID, or provider result ID).
	SourceID string `json:"source_id"`

	// URL is the citation URL, when available.
	URL string `json:"url,omitempty"`
}

// LiteratureEntry is one answered clinical question with its citations.
// A job owns an ordered set of these; order is question generation order.
type LiteratureEntry struct {
	// Question is the clinical question as generated by the planner.
	Question string `json:"question"`

	// Answer is the evidence-backed answer text.
	Answer string `json:"answer"`

	// Citations lists the references supporting the answer.
	Citations []Citation `json:"citations,omitempty"`
}
