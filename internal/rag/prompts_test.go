package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswerPrompt(t *testing.T) {
	got := answerPrompt("why is the sky blue?", []string{"rayleigh scattering", "sunlight spectrum"})

	assert.Contains(t, got, "## Document No: 1\n### Content: rayleigh scattering")
	assert.Contains(t, got, "## Document No: 2\n### Content: sunlight spectrum")
	assert.Contains(t, got, "## Question:\nwhy is the sky blue?")

	// Footer comes after all document blocks.
	assert.Regexp(t, `(?s)Document No: 2.*Based only on the above documents`, got)
}

func TestExpansionPrompt(t *testing.T) {
	got := expansionPrompt("original")

	assert.Contains(t, got, "## Original Query:\noriginal")
	assert.Contains(t, got, "## Expanded Query (ONE question only):")
}
