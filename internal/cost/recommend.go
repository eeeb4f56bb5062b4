package cost

// RecommendOptions tunes the advisory model recommendation. The exact
// thresholds are policy, not contract; override them as needed.
type RecommendOptions struct {
	// CompletionTokenThreshold: average completion-token counts at or
	// below this suggest the workload does not need a top-tier model.
	CompletionTokenThreshold float64
	// MinSamples: minimum records for a model before recommending.
	MinSamples int
}

// DefaultRecommendOptions returns the default policy.
func DefaultRecommendOptions() RecommendOptions {
	return RecommendOptions{
		CompletionTokenThreshold: 300,
		MinSamples:               5,
	}
}

// Recommendation suggests a cheaper model based on observed usage.
type Recommendation struct {
	CurrentModel        string
	SuggestedModel      string
	AvgCompletionTokens float64
	Samples             int
	// EstimatedSavings is the cost delta had the suggested model served
	// the same token volumes, in USD.
	EstimatedSavings float64
}

// Recommend inspects recorded history and, if observed output complexity
// suggests over-provisioning, proposes a cheaper model from the same
// family. Advisory only: it never mutates tracker state. The second
// return is false when there is nothing to recommend.
func (t *Tracker) Recommend(opts RecommendOptions) (Recommendation, bool) {
	if opts.MinSamples <= 0 {
		opts = DefaultRecommendOptions()
	}

	t.mu.Lock()
	records := make([]Record, len(t.records))
	copy(records, t.records)
	t.mu.Unlock()

	// Aggregate per model.
	type agg struct {
		requests         int
		promptTokens     int
		completionTokens int
		cost             float64
	}
	byModel := make(map[string]*agg)
	for _, rec := range records {
		a := byModel[rec.Model]
		if a == nil {
			a = &agg{}
			byModel[rec.Model] = a
		}
		a.requests++
		a.promptTokens += rec.Usage.PromptTokens
		a.completionTokens += rec.Usage.CompletionTokens
		a.cost += rec.TotalCost
	}

	// Dominant model by request count.
	var dominant string
	for model, a := range byModel {
		if dominant == "" || a.requests > byModel[dominant].requests {
			dominant = model
		}
	}
	if dominant == "" {
		return Recommendation{}, false
	}

	a := byModel[dominant]
	if a.requests < opts.MinSamples {
		return Recommendation{}, false
	}

	avgCompletion := float64(a.completionTokens) / float64(a.requests)
	if avgCompletion > opts.CompletionTokenThreshold {
		return Recommendation{}, false
	}

	cheaper, ok := cheaperTier[dominant]
	if !ok {
		return Recommendation{}, false
	}

	cheaperPricing, err := Lookup(cheaper)
	if err != nil {
		return Recommendation{}, false
	}
	cheaperCost := float64(a.promptTokens)/1000*cheaperPricing.PromptPerK +
		float64(a.completionTokens)/1000*cheaperPricing.CompletionPerK

	return Recommendation{
		CurrentModel:        dominant,
		SuggestedModel:      cheaper,
		AvgCompletionTokens: avgCompletion,
		Samples:             a.requests,
		EstimatedSavings:    a.cost - cheaperCost,
	}, true
}
