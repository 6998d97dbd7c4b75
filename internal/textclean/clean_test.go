package textclean

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pablopedrosap/medical-ai-template/internal/config"
)

func newTestCleaner() *Cleaner {
	return New(config.TextCleaningConfig{
		MaxConsecutiveChars: 20,
		MaxLineRepetitions:  20,
	})
}

func TestClean_DropsSeparatorLines(t *testing.T) {
	c := newTestCleaner()

	in := "Patient Summary\n--------\nDiagnosis: hypertension\n========\nPlan: continue lisinopril"
	out := c.Clean(in)

	assert.Equal(t, "Patient Summary\nDiagnosis: hypertension\nPlan: continue lisinopril", out)
}

func TestClean_KeepsShortDashRuns(t *testing.T) {
	c := newTestCleaner()

	// Four repeats is below the separator threshold.
	assert.Equal(t, "----", c.Clean("----"))
	assert.Equal(t, "BP 120/80 -- stable", c.Clean("BP 120/80 -- stable"))
}

func TestClean_CollapsesCharacterRuns(t *testing.T) {
	c := newTestCleaner()

	in := "Name: " + strings.Repeat("x", 50)
	out := c.Clean(in)

	assert.Equal(t, "Name: "+strings.Repeat("x", 20), out)
}

func TestClean_PreservesShortRuns(t *testing.T) {
	c := newTestCleaner()

	// Short repeats occur in real drug names and must survive.
	in := "Administered Aaaa 5mg"
	assert.Equal(t, in, c.Clean(in))
}

func TestClean_CapsRepeatedLines(t *testing.T) {
	c := newTestCleaner()

	in := strings.Repeat("Patient\n", 50) + "has diabetes"
	out := c.Clean(in)

	assert.Equal(t, 20, strings.Count(out, "Patient"))
	assert.True(t, strings.HasSuffix(out, "has diabetes"))
}

func TestClean_RepetitionCounterResetsOnNewLine(t *testing.T) {
	c := New(config.TextCleaningConfig{MaxConsecutiveChars: 20, MaxLineRepetitions: 2})

	in := "a\na\na\nb\na\na"
	out := c.Clean(in)

	assert.Equal(t, "a\na\nb\na\na", out)
}

func TestClean_EmptyInput(t *testing.T) {
	c := newTestCleaner()
	assert.Equal(t, "", c.Clean(""))
}

func TestClean_MultiByteRunes(t *testing.T) {
	c := New(config.TextCleaningConfig{MaxConsecutiveChars: 3, MaxLineRepetitions: 20})

	in := "température " + strings.Repeat("é", 10)
	assert.Equal(t, "température ééé", c.Clean(in))
}
