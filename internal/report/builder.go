// Package report assembles the synthesized narrative, the extracted record,
// and the literature findings into the intermediate report representation
// consumed by the external renderer.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/pablopedrosap/medical-ai-template/internal/domain"
)

// BuildInput carries the stage outputs a report is assembled from. The
// classification and record are required; literature may be empty when the
// search stage fully degraded.
type BuildInput struct {
	Type           domain.ReportType
	Classification *domain.ClassificationResult
	Record         *domain.MedicalRecord
	Literature     []domain.LiteratureEntry
	Sections       []domain.ReportSection
}

// Builder assembles reports. The clock is injectable for deterministic
// tests.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder using the wall clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// WithClock returns a copy of the builder using the given clock.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Build validates the stage outputs and assembles the final report. The
// literature appendix is appended only when at least one question was
// answered, so a fully degraded search stage yields a report without one.
func (b *Builder) Build(in BuildInput) (*domain.Report, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("build report: invalid report type %q", in.Type)
	}
	if in.Classification == nil {
		return nil, fmt.Errorf("build report: missing classification")
	}
	if in.Record == nil || in.Record.IsEmpty() {
		return nil, fmt.Errorf("build report: missing medical record")
	}
	if len(in.Sections) == 0 {
		return nil, fmt.Errorf("build report: synthesis produced no sections")
	}

	tpl, err := TemplateFor(in.Type)
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}

	sections := make([]domain.ReportSection, 0, len(in.Sections)+1)
	sections = append(sections, in.Sections...)

	hasLiterature := len(in.Literature) > 0
	if hasLiterature {
		sections = append(sections, domain.ReportSection{
			Title:    tpl.LiteratureHeading,
			Markdown: literatureMarkdown(in.Literature),
		})
	}

	return &domain.Report{
		Type:          in.Type,
		Sections:      sections,
		HasLiterature: hasLiterature,
		GeneratedAt:   b.now().UTC(),
	}, nil
}

// Render flattens a report into a single markdown document.
func Render(r *domain.Report) (string, error) {
	tpl, err := TemplateFor(r.Type)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", tpl.Heading)
	for _, s := range r.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.Title, strings.TrimSpace(s.Markdown))
	}
	fmt.Fprintf(&b, "---\n\n_Generated %s_\n", r.GeneratedAt.Format(time.RFC3339))
	return b.String(), nil
}

// literatureMarkdown renders the answered questions in planning order.
func literatureMarkdown(entries []domain.LiteratureEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n", e.Question, strings.TrimSpace(e.Answer))
		if len(e.Citations) > 0 {
			b.WriteString("\nReferences:\n")
			for _, c := range e.Citations {
				if c.URL != "" {
					fmt.Fprintf(&b, "- [%s](%s)\n", c.Title, c.URL)
				} else {
					fmt.Fprintf(&b, "- %s\n", c.Title)
				}
			}
		}
	}
	return b.String()
}
