// Package extractor orchestrates schema-guided data extraction over an
// LLM endpoint, layering caching, rate limiting, retries, and cost
// accounting around the raw completion call.
package extractor

import (
	"strings"

	"github.com/distill-ai/distill/pkg/schema"
)

const defaultSystemPrompt = `You are a data extraction assistant. Your task is to extract structured data from the provided text.

Rules:
1. Extract only the data that matches the schema fields
2. Return valid JSON matching the exact schema structure
3. If a required field cannot be found, use null
4. If an optional field cannot be found, omit it
5. For prices/numbers, extract the numeric value only (no currency symbols)
6. Never invent values that are not supported by the text
7. Be precise and extract exactly what is requested`

// BuildExtractionPrompt creates the user prompt for an extraction call.
// Oversized input is rejected up front, so the text arrives whole.
func BuildExtractionPrompt(text string, s schema.Schema) string {
	var prompt strings.Builder

	prompt.WriteString("Extract structured data from the following text.\n\n")
	prompt.WriteString(s.ToPromptDescription())

	prompt.WriteString("\n## Input Text\n")
	prompt.WriteString("```\n")
	prompt.WriteString(text)
	prompt.WriteString("\n```\n")

	return prompt.String()
}
