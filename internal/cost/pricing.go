// Package cost converts token usage into monetary cost and keeps
// per-session accounting.
package cost

import (
	"fmt"
	"regexp"
	"strings"
)

// Model name constants for the pricing table.
const (
	ModelGPT4o        = "gpt-4o"
	ModelGPT4oMini    = "gpt-4o-mini"
	ModelGPT41        = "gpt-4.1"
	ModelGPT41Mini    = "gpt-4.1-mini"
	ModelClaudeOpus   = "claude-opus-4"
	ModelClaudeSonnet = "claude-sonnet-4"
	ModelClaudeHaiku  = "claude-haiku-3-5"
)

// Pricing holds per-model rates in USD per 1K tokens.
type Pricing struct {
	PromptPerK     float64
	CompletionPerK float64
}

// modelPricing is the static pricing table, keyed by normalized model
// identifier. Rates are USD per 1K tokens (provider list prices).
var modelPricing = map[string]Pricing{
	ModelGPT4o:     {PromptPerK: 0.0025, CompletionPerK: 0.01},
	ModelGPT4oMini: {PromptPerK: 0.00015, CompletionPerK: 0.0006},
	ModelGPT41:     {PromptPerK: 0.002, CompletionPerK: 0.008},
	ModelGPT41Mini: {PromptPerK: 0.0004, CompletionPerK: 0.0016},

	ModelClaudeOpus:   {PromptPerK: 0.015, CompletionPerK: 0.075},
	ModelClaudeSonnet: {PromptPerK: 0.003, CompletionPerK: 0.015},
	ModelClaudeHaiku:  {PromptPerK: 0.0008, CompletionPerK: 0.004},

	// Local models cost nothing, but the entries are explicit so a
	// lookup still succeeds rather than reporting an unknown model.
	"llama3.2": {},
	"llama3.1": {},
	"mistral":  {},
}

// cheaperTier maps a model to a cheaper alternative in the same family,
// used by the advisory model recommendation.
var cheaperTier = map[string]string{
	ModelGPT4o:        ModelGPT4oMini,
	ModelGPT41:        ModelGPT41Mini,
	ModelClaudeOpus:   ModelClaudeSonnet,
	ModelClaudeSonnet: ModelClaudeHaiku,
}

// dateSuffix matches dated model revisions like -2024-08-06 or -20250514.
var dateSuffix = regexp.MustCompile(`-\d{4}-\d{2}-\d{2}$|-\d{8}$`)

// Lookup returns the pricing for a model identifier. Unknown models are
// a configuration error, never a silent zero-cost assumption.
func Lookup(model string) (Pricing, error) {
	normalized := NormalizeModel(model)
	if p, ok := modelPricing[normalized]; ok {
		return p, nil
	}
	return Pricing{}, fmt.Errorf("no pricing for model %q: %w", model, ErrUnknownModel)
}

// NormalizeModel reduces a model identifier to its pricing-table key:
// provider prefixes (openai/gpt-4o) and dated revision suffixes
// (gpt-4o-2024-08-06, claude-sonnet-4-20250514) are stripped.
func NormalizeModel(model string) string {
	m := model
	if idx := strings.LastIndex(m, "/"); idx >= 0 {
		m = m[idx+1:]
	}
	m = dateSuffix.ReplaceAllString(m, "")
	if _, ok := modelPricing[m]; ok {
		return m
	}
	// Ollama-style tags: llama3.2:1b -> llama3.2
	if idx := strings.Index(m, ":"); idx >= 0 {
		m = m[:idx]
	}
	return m
}

// RegisterPricing adds or overrides a pricing entry, letting callers
// extend the table from configuration.
func RegisterPricing(model string, p Pricing) {
	modelPricing[model] = p
}

// KnownModels returns the models present in the pricing table.
func KnownModels() []string {
	models := make([]string, 0, len(modelPricing))
	for m := range modelPricing {
		models = append(models, m)
	}
	return models
}
