// Package textclean removes OCR artifacts from extracted page text.
// Faxed and rescanned documents produce separator lines, long character
// runs, and duplicated lines that inflate downstream prompts without
// carrying information.
package textclean

import (
	"strings"

	"github.com/pablopedrosap/medical-ai-template/internal/config"
)

// Cleaner applies the configured artifact limits to page text.
type Cleaner struct {
	maxConsecutiveChars int
	maxLineRepetitions  int
}

// New builds a Cleaner from configuration.
func New(cfg config.TextCleaningConfig) *Cleaner {
	return &Cleaner{
		maxConsecutiveChars: cfg.MaxConsecutiveChars,
		maxLineRepetitions:  cfg.MaxLineRepetitions,
	}
}

// Clean removes separator lines, collapses character runs longer than the
// configured limit, and caps identical consecutive lines. Short runs are
// kept untouched so legitimate repetition in medical text survives.
func (c *Cleaner) Clean(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))

	var prevLine string
	lineCount := 0
	havePrev := false

	for _, line := range lines {
		if isSeparatorLine(line) {
			continue
		}

		line = collapseRuns(line, c.maxConsecutiveChars)

		if havePrev && line == prevLine {
			lineCount++
			if lineCount > c.maxLineRepetitions {
				continue
			}
		} else {
			lineCount = 1
			prevLine = line
			havePrev = true
		}

		cleaned = append(cleaned, line)
	}

	return strings.Join(cleaned, "\n")
}

// isSeparatorLine reports whether the trimmed line is five or more copies
// of a single character (-----, =====, and similar ruling artifacts).
func isSeparatorLine(line string) bool {
	trimmed := []rune(strings.TrimSpace(line))
	if len(trimmed) < 5 {
		return false
	}
	first := trimmed[0]
	for _, r := range trimmed[1:] {
		if r != first {
			return false
		}
	}
	return true
}

// collapseRuns truncates any run of one repeated character to max copies.
func collapseRuns(line string, max int) string {
	if max <= 0 {
		return line
	}
	var b strings.Builder
	b.Grow(len(line))

	var prev rune
	runLen := 0
	for i, r := range line {
		if i > 0 && r == prev {
			runLen++
		} else {
			prev = r
			runLen = 1
		}
		if runLen <= max {
			b.WriteRune(r)
		}
	}
	return b.String()
}
