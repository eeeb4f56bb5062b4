package extractor

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/distill-ai/distill/internal/cache"
	"github.com/distill-ai/distill/internal/cost"
	"github.com/distill-ai/distill/internal/llm"
	"github.com/distill-ai/distill/internal/logger"
	"github.com/distill-ai/distill/internal/ratelimit"
	"github.com/distill-ai/distill/internal/retry"
	"github.com/distill-ai/distill/pkg/schema"
)

// SchemaProvider resolves schema IDs to extraction schemas. The
// templates registry satisfies this.
type SchemaProvider interface {
	Lookup(id string) (schema.Schema, bool)
}

// Request describes a single extraction.
type Request struct {
	Text         string  // Input text to extract from
	SchemaID     string  // Schema known to the schema provider
	Model        string  // Model override; empty uses the configured default
	Temperature  float64 // Sampling temperature; negative uses the default
	MaxTokens    int     // Completion token cap; zero uses the default
	SystemPrompt string  // System prompt override
}

// Result holds extracted data with call provenance.
type Result struct {
	Data     any           // Extracted structured data
	Raw      string        // Raw endpoint response
	CacheHit bool          // Whether the result came from cache
	Attempts int           // Endpoint attempts made (0 on cache hit)
	Latency  time.Duration // Wall time for the whole extraction
	Cost     float64       // USD cost of this call (0 on cache hit)
	Usage    llm.Usage     // Token usage (zero on cache hit)
	Model    string        // Model that produced the data
	Provider string        // Provider name
}

// BatchResult pairs one batch item with its outcome.
type BatchResult struct {
	Request Request
	Result  *Result
	Err     error
	Index   int
}

// Config holds orchestrator settings.
type Config struct {
	MaxInputLength    int           // Reject inputs larger than this many bytes
	RequestsPerMinute int           // Sliding-window rate limit
	RateLimitWait     time.Duration // Upper bound on limiter blocking
	CacheTTL          time.Duration // Result cache lifetime
	CacheMaxEntries   int           // Result cache size bound (0 = unbounded)
	MaxRetries        int           // Total endpoint attempts, including the first
	BaseDelay         time.Duration // Initial backoff delay
	MaxDelay          time.Duration // Backoff ceiling
	Multiplier        float64       // Backoff growth factor
	Jitter            float64       // Backoff jitter fraction
	RequestTimeout    time.Duration // Deadline around the whole extraction
	DefaultModel      string        // Model used when the request names none
	Temperature       float64       // Default sampling temperature
	MaxTokens         int           // Default completion token cap
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxInputLength:    100_000,
		RequestsPerMinute: 60,
		RateLimitWait:     30 * time.Second,
		CacheTTL:          15 * time.Minute,
		CacheMaxEntries:   1024,
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		Multiplier:        2.0,
		Jitter:            0.2,
		RequestTimeout:    2 * time.Minute,
		Temperature:       0.1,
		MaxTokens:         4096,
	}
}

// Orchestrator performs schema-guided extraction with caching, rate
// limiting, retries, and cost accounting around the endpoint call.
type Orchestrator struct {
	provider llm.Provider
	schemas  SchemaProvider
	limiter  *ratelimit.Limiter
	cache    *cache.Cache
	tracker  *cost.Tracker
	retry    retry.Options
	group    singleflight.Group
	config   Config
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.config = cfg
	}
}

// WithLimiter injects a pre-built rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(o *Orchestrator) {
		o.limiter = l
	}
}

// WithCache injects a pre-built result cache.
func WithCache(c *cache.Cache) Option {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithTracker injects a pre-built cost tracker.
func WithTracker(t *cost.Tracker) Option {
	return func(o *Orchestrator) {
		o.tracker = t
	}
}

// WithRetryOptions overrides the retry policy derived from Config.
func WithRetryOptions(opts retry.Options) Option {
	return func(o *Orchestrator) {
		o.retry = opts
	}
}

// New creates an Orchestrator around a provider and schema source.
func New(provider llm.Provider, schemas SchemaProvider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		schemas:  schemas,
		config:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.limiter == nil {
		o.limiter = ratelimit.New(o.config.RequestsPerMinute,
			ratelimit.WithWaitTimeout(o.config.RateLimitWait))
	}
	if o.cache == nil {
		o.cache = cache.New(o.config.CacheTTL,
			cache.WithMaxEntries(o.config.CacheMaxEntries))
	}
	if o.tracker == nil {
		o.tracker = cost.NewTracker()
	}
	if o.retry.MaxAttempts == 0 {
		o.retry = retry.Options{
			MaxAttempts:  o.config.MaxRetries,
			InitialDelay: o.config.BaseDelay,
			MaxDelay:     o.config.MaxDelay,
			Multiplier:   o.config.Multiplier,
			Jitter:       o.config.Jitter,
		}
	}

	return o
}

// Tracker exposes the session cost tracker for summary reporting.
func (o *Orchestrator) Tracker() *cost.Tracker {
	return o.tracker
}

// cachedResult is the value stored in the result cache.
type cachedResult struct {
	data  any
	raw   string
	model string
}

// Extract runs one extraction: validate, consult the cache, acquire a
// rate-limit slot, call the endpoint under retry, check the response
// shape, record cost, store in cache.
func (o *Orchestrator) Extract(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(req.Text) == "" {
		return nil, newError(KindValidation, "input text is empty")
	}
	if o.config.MaxInputLength > 0 && len(req.Text) > o.config.MaxInputLength {
		return nil, newError(KindValidation, "input text is %d bytes, limit is %d",
			len(req.Text), o.config.MaxInputLength)
	}
	s, ok := o.schemas.Lookup(req.SchemaID)
	if !ok {
		return nil, newError(KindValidation, "unknown schema %q", req.SchemaID)
	}

	model := req.Model
	if model == "" {
		model = o.config.DefaultModel
	}
	if model == "" {
		model = llm.GetDefaultModel(o.provider.Name())
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = o.config.Temperature
	}

	key := cache.Key(req.Text, s.Name, schemaVersion(s), model, temperature)
	if v, ok := o.cache.Get(key); ok {
		cached := v.(cachedResult)
		o.tracker.RecordCacheHit()
		logger.Debug("extraction cache hit", "schema", req.SchemaID, "model", cached.model)
		return &Result{
			Data:     cached.data,
			Raw:      cached.raw,
			CacheHit: true,
			Latency:  time.Since(start),
			Model:    cached.model,
			Provider: o.provider.Name(),
		}, nil
	}
	o.tracker.RecordCacheMiss()

	if o.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.RequestTimeout)
		defer cancel()
	}

	// Concurrent identical requests share one endpoint call.
	v, err, shared := o.group.Do(key, func() (any, error) {
		return o.extract(ctx, req, s, key, model, temperature)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("extraction shared with concurrent duplicate", "schema", req.SchemaID)
	}

	result := *(v.(*Result))
	result.Latency = time.Since(start)
	return &result, nil
}

// extract performs the uncached portion of an extraction.
func (o *Orchestrator) extract(ctx context.Context, req Request, s schema.Schema, key, model string, temperature float64) (*Result, error) {
	if err := o.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ratelimit.ErrWaitTimeout) {
			return nil, &Error{Kind: KindRateLimitTimeout, Err: err}
		}
		return nil, classifyContextError(err)
	}

	jsonSchema, err := s.ToJSONSchema()
	if err != nil {
		return nil, newError(KindValidation, "failed to generate JSON schema: %v", err)
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = o.config.MaxTokens
	}

	completionReq := llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: BuildExtractionPrompt(req.Text, s)},
		},
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		JSONSchema:  jsonSchema,
		StrictMode:  o.provider.SupportsJSONSchema(),
	}

	logger.Debug("calling extraction endpoint",
		"provider", o.provider.Name(),
		"model", model,
		"schema", req.SchemaID,
		"input_bytes", len(req.Text))

	var resp llm.CompletionResponse
	attempts, err := retry.Do(ctx, func(ctx context.Context) error {
		r, callErr := o.provider.Complete(ctx, completionReq)
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	}, o.retry)
	if err != nil {
		return nil, classifyEndpointError(err)
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}

	// The call reached the endpoint and consumed tokens, so it is
	// charged even if the response shape turns out to be unusable.
	var callCost float64
	rec, recErr := o.tracker.Record(respModel, resp.Usage, req.SchemaID)
	if recErr != nil {
		// Unknown pricing is not an extraction failure.
		logger.Warn("cost not recorded", "model", respModel, "error", recErr)
	} else {
		callCost = rec.TotalCost
	}

	data, err := s.Unmarshal([]byte(resp.Content))
	if err != nil {
		return nil, &Error{Kind: KindSchemaMismatch,
			Err: errors.New("response is not valid JSON for the schema: " + err.Error())}
	}
	if verrs := s.Validate(data); len(verrs) > 0 {
		return nil, newError(KindSchemaMismatch, "response failed schema validation: %s",
			formatValidationErrors(verrs))
	}

	o.cache.Put(key, cachedResult{data: data, raw: resp.Content, model: respModel})

	logger.Debug("extraction complete",
		"schema", req.SchemaID,
		"model", respModel,
		"attempts", attempts,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"cost_usd", callCost)

	return &Result{
		Data:     data,
		Raw:      resp.Content,
		Attempts: attempts,
		Cost:     callCost,
		Usage:    resp.Usage,
		Model:    respModel,
		Provider: o.provider.Name(),
	}, nil
}

// ExtractBatch fans requests out over a bounded worker pool. One item's
// failure never aborts the others; each BatchResult carries its own error.
func (o *Orchestrator) ExtractBatch(ctx context.Context, reqs []Request, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]BatchResult, len(reqs))
	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			res, err := o.Extract(ctx, req)
			results[i] = BatchResult{Index: i, Request: req, Result: res, Err: err}
			return nil
		})
	}
	g.Wait()

	return results
}

// classifyEndpointError maps a failed retry loop to the extraction
// error taxonomy.
func classifyEndpointError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCancelled, Err: err}
	}
	return &Error{Kind: KindExternal, Err: err}
}

// classifyContextError maps limiter-stage context errors.
func classifyContextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCancelled, Err: err}
	}
	return &Error{Kind: KindExternal, Err: err}
}

// schemaVersion returns the schema version, defaulting when unset.
func schemaVersion(s schema.Schema) string {
	if s.Version == "" {
		return schema.DefaultVersion
	}
	return s.Version
}

// formatValidationErrors renders validation errors for an error message.
func formatValidationErrors(errs []schema.ValidationError) string {
	var sb strings.Builder
	for i, e := range errs {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.Field)
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}
