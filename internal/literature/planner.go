// Package literature plans the clinical questions that drive the evidence
// search stage.
package literature

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pablopedrosap/medical-ai-template/internal/ai"
	"github.com/pablopedrosap/medical-ai-template/internal/config"
	"github.com/pablopedrosap/medical-ai-template/internal/domain"
)

// Planner derives a bounded, deduplicated question list from an extracted
// medical record.
type Planner struct {
	client       ai.QuestionPlanner
	minQuestions int
	maxQuestions int
	logger       zerolog.Logger
}

// NewPlanner builds a Planner on top of a question-planning capability.
func NewPlanner(client ai.QuestionPlanner, cfg config.LiteratureConfig, logger zerolog.Logger) *Planner {
	return &Planner{
		client:       client,
		minQuestions: cfg.MinQuestions,
		maxQuestions: cfg.MaxQuestions,
		logger:       logger,
	}
}

// PlanQuestions asks the reasoning model for clinical questions grounded in
// the record, removes duplicates, and truncates over-generation in order.
// An empty plan is an error; a short plan is kept and logged.
func (p *Planner) PlanQuestions(ctx context.Context, record *domain.MedicalRecord) ([]string, error) {
	if record == nil || record.IsEmpty() {
		return nil, fmt.Errorf("plan questions: medical record is empty")
	}

	raw, err := p.client.PlanQuestions(ctx, ai.QuestionRequest{
		Record:       record,
		MinQuestions: p.minQuestions,
		MaxQuestions: p.maxQuestions,
	})
	if err != nil {
		return nil, fmt.Errorf("plan questions: %w", err)
	}

	questions := dedupe(raw)
	if len(questions) == 0 {
		return nil, fmt.Errorf("plan questions: planner returned no usable questions")
	}
	if len(questions) > p.maxQuestions {
		questions = questions[:p.maxQuestions]
	}
	if len(questions) < p.minQuestions {
		p.logger.Warn().
			Int("planned", len(questions)).
			Int("min_questions", p.minQuestions).
			Msg("planner returned fewer questions than requested")
	}

	return questions, nil
}

// dedupe drops blank entries and later duplicates, keeping first-seen order.
// Questions are compared by normalized text so trivial restatements collapse.
func dedupe(questions []string) []string {
	seen := make(map[string]struct{}, len(questions))
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := normalizeQuestion(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out
}

// normalizeQuestion lowercases, collapses whitespace, and strips terminal
// punctuation so "What is X?" and "what is x" compare equal.
func normalizeQuestion(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.Join(strings.Fields(q), " ")
	return strings.TrimRight(q, ".?! ")
}
