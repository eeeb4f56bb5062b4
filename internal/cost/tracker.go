package cost

import (
	"errors"
	"sync"
	"time"

	"github.com/distill-ai/distill/internal/llm"
)

// ErrUnknownModel indicates a model identifier missing from the pricing table.
var ErrUnknownModel = errors.New("unknown model")

// Record is one append-only cost ledger entry, created exactly once per
// completed external call.
type Record struct {
	Timestamp      time.Time
	Model          string
	ExtractionType string
	Usage          llm.Usage
	PromptCost     float64
	CompletionCost float64
	TotalCost      float64
}

// ModelStats aggregates usage for a single model.
type ModelStats struct {
	Requests         int
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// SessionStats is the aggregate view over all records since tracker creation.
type SessionStats struct {
	PerModel         map[string]ModelStats
	TotalCost        float64
	TotalRequests    int
	PromptTokens     int
	CompletionTokens int
	CacheHits        int
	CacheMisses      int
}

// Tracker accumulates cost records for the lifetime of a session.
// Accumulation is commutative, so concurrent recording from many
// extraction calls yields correct totals regardless of interleaving.
type Tracker struct {
	now         func() time.Time
	records     []Record
	cacheHits   int
	cacheMisses int
	mu          sync.Mutex
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock injects a clock for deterministic timestamps in tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates an empty session tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record converts usage into cost via the pricing table and appends a
// ledger entry. An unknown model is a reportable configuration error;
// nothing is recorded in that case.
func (t *Tracker) Record(model string, usage llm.Usage, extractionType string) (Record, error) {
	pricing, err := Lookup(model)
	if err != nil {
		return Record{}, err
	}

	promptCost := float64(usage.PromptTokens) / 1000 * pricing.PromptPerK
	completionCost := float64(usage.CompletionTokens) / 1000 * pricing.CompletionPerK

	rec := Record{
		Model:          NormalizeModel(model),
		ExtractionType: extractionType,
		Usage:          usage,
		PromptCost:     promptCost,
		CompletionCost: completionCost,
		TotalCost:      promptCost + completionCost,
	}

	t.mu.Lock()
	rec.Timestamp = t.now()
	t.records = append(t.records, rec)
	t.mu.Unlock()

	return rec, nil
}

// RecordCacheHit counts a lookup served from cache (no cost incurred).
func (t *Tracker) RecordCacheHit() {
	t.mu.Lock()
	t.cacheHits++
	t.mu.Unlock()
}

// RecordCacheMiss counts a lookup that had to go to the endpoint.
func (t *Tracker) RecordCacheMiss() {
	t.mu.Lock()
	t.cacheMisses++
	t.mu.Unlock()
}

// Summary returns aggregated totals and a per-model breakdown.
func (t *Tracker) Summary() SessionStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := SessionStats{
		PerModel:    make(map[string]ModelStats),
		CacheHits:   t.cacheHits,
		CacheMisses: t.cacheMisses,
	}

	for _, rec := range t.records {
		stats.TotalCost += rec.TotalCost
		stats.TotalRequests++
		stats.PromptTokens += rec.Usage.PromptTokens
		stats.CompletionTokens += rec.Usage.CompletionTokens

		ms := stats.PerModel[rec.Model]
		ms.Requests++
		ms.PromptTokens += rec.Usage.PromptTokens
		ms.CompletionTokens += rec.Usage.CompletionTokens
		ms.Cost += rec.TotalCost
		stats.PerModel[rec.Model] = ms
	}

	return stats
}

// Records returns a copy of the ledger.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}
