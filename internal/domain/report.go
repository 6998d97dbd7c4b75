package domain

import "time"

// ReportType is the closed enumeration of report templates. The type selects
// the synthesis template and the legal/medical framing of the final document.
type ReportType string

const (
	// ReportTypeExpertOpinion is a medical expert opinion over the
	// documented clinical course.
	ReportTypeExpertOpinion ReportType = "expert_opinion"

	// ReportTypeClaimResponse is a response to a legal claim, framed around
	// the alleged deviations from the standard of care.
	ReportTypeClaimResponse ReportType = "claim_response"

	// ReportTypeCaseSummary is a neutral case summary used when the source
	// material is ambiguous.
	ReportTypeCaseSummary ReportType = "case_summary"
)

// Valid reports whether the report type is one of the known values.
func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeExpertOpinion, ReportTypeClaimResponse, ReportTypeCaseSummary:
		return true
	default:
		return false
	}
}

// ReportTypeForCategory derives the default report type from a
// classification category.
func ReportTypeForCategory(c ClassificationCategory) ReportType {
	switch c {
	case CategoryLegalClaim:
		return ReportTypeClaimResponse
	case CategoryMedicalDocumentation:
		return ReportTypeExpertOpinion
	default:
		return ReportTypeCaseSummary
	}
}

// ReportSection is one ordered section of the intermediate report
// representation handed to the external renderer.
type ReportSection struct {
	// Title is the section heading.
	Title string `json:"title"`

	// Markdown is the section body in markdown.
	Markdown string `json:"markdown"`
}

// Report is the final synthesized document in its intermediate structured
// form. Binary rendering (styled word-processor output) is performed by an
// external formatting collaborator consuming {Type, Sections}.
type Report struct {
	// Type selects the template and framing.
	Type ReportType `json:"type"`

	// Sections is the ordered section list.
	Sections []ReportSection `json:"sections"`

	// HasLiterature reports whether a literature section was included.
	HasLiterature bool `json:"has_literature"`

	// GeneratedAt is the synthesis timestamp.
	GeneratedAt time.Time `json:"generated_at"`
}
