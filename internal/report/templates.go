package report

import (
	"fmt"

	"github.com/pablopedrosap/medical-ai-template/internal/domain"
)

// Template describes the fixed framing of one report type. The narrative
// sections come from synthesis; the template contributes the document
// heading and the appendix titles.
type Template struct {
	// Heading is the top-level document title.
	Heading string

	// LiteratureHeading titles the supporting evidence appendix.
	LiteratureHeading string
}

var templates = map[domain.ReportType]Template{
	domain.ReportTypeExpertOpinion: {
		Heading:           "Medical Expert Opinion",
		LiteratureHeading: "Supporting Literature",
	},
	domain.ReportTypeClaimResponse: {
		Heading:           "Response to Claim",
		LiteratureHeading: "Evidence Review",
	},
	domain.ReportTypeCaseSummary: {
		Heading:           "Case Summary",
		LiteratureHeading: "Relevant Literature",
	},
}

// TemplateFor returns the template for a report type.
func TemplateFor(t domain.ReportType) (Template, error) {
	tpl, ok := templates[t]
	if !ok {
		return Template{}, fmt.Errorf("no template for report type %q", t)
	}
	return tpl, nil
}
