package extractor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/distill-ai/distill/internal/llm"
	"github.com/distill-ai/distill/internal/ratelimit"
	"github.com/distill-ai/distill/internal/retry"
	"github.com/distill-ai/distill/pkg/schema"
)

type person struct {
	Name string `json:"name" validate:"required"`
	Age  int    `json:"age,omitempty"`
}

type fakeSchemas map[string]schema.Schema

func (f fakeSchemas) Lookup(id string) (schema.Schema, bool) {
	s, ok := f[id]
	return s, ok
}

// fakeProvider counts calls and delegates to fn.
type fakeProvider struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)
}

func (p *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.fn(ctx, req)
}

func (p *fakeProvider) Name() string             { return "fake" }
func (p *fakeProvider) SupportsJSONSchema() bool { return true }

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func goodResponse(model string) llm.CompletionResponse {
	return llm.CompletionResponse{
		Content:      `{"name": "Ada", "age": 36}`,
		FinishReason: "stop",
		Model:        model,
		Usage:        llm.Usage{PromptTokens: 100, CompletionTokens: 50},
	}
}

func testSchemas(t *testing.T) fakeSchemas {
	t.Helper()
	s, err := schema.NewSchema[person](schema.WithName("person"))
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}
	return fakeSchemas{"person": s}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxInputLength = 1000
	cfg.RequestsPerMinute = 1000
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	cfg.Jitter = 0
	cfg.RequestTimeout = 5 * time.Second
	cfg.DefaultModel = "gpt-4o-mini"
	return cfg
}

func newTestOrchestrator(t *testing.T, p *fakeProvider, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithConfig(fastConfig())}, opts...)
	return New(p, testSchemas(t), opts...)
}

func TestExtract_Success(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return goodResponse("gpt-4o-mini"), nil
	}}
	o := newTestOrchestrator(t, p)

	res, err := o.Extract(context.Background(), Request{Text: "Ada, 36", SchemaID: "person"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	got, ok := res.Data.(*person)
	if !ok {
		t.Fatalf("expected *person, got %T", res.Data)
	}
	if got.Name != "Ada" || got.Age != 36 {
		t.Errorf("unexpected data: %+v", got)
	}
	if res.CacheHit {
		t.Error("first extraction should not be a cache hit")
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
	if res.Cost <= 0 {
		t.Errorf("expected positive cost, got %f", res.Cost)
	}
	if res.Usage.Total() != 150 {
		t.Errorf("expected 150 total tokens, got %d", res.Usage.Total())
	}
	if res.Model != "gpt-4o-mini" {
		t.Errorf("unexpected model %s", res.Model)
	}
	if res.Provider != "fake" {
		t.Errorf("unexpected provider %s", res.Provider)
	}

	summary := o.Tracker().Summary()
	if summary.TotalRequests != 1 {
		t.Errorf("expected 1 recorded request, got %d", summary.TotalRequests)
	}
}

func TestExtract_CacheHit(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return goodResponse("gpt-4o-mini"), nil
	}}
	o := newTestOrchestrator(t, p)
	req := Request{Text: "Ada, 36", SchemaID: "person"}

	first, err := o.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("first Extract failed: %v", err)
	}
	second, err := o.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("second Extract failed: %v", err)
	}

	if !second.CacheHit {
		t.Error("second identical extraction should hit the cache")
	}
	if second.Cost != 0 {
		t.Errorf("cache hit should cost nothing, got %f", second.Cost)
	}
	if second.Attempts != 0 {
		t.Errorf("cache hit should report 0 attempts, got %d", second.Attempts)
	}
	if p.callCount() != 1 {
		t.Errorf("provider should be called once, got %d", p.callCount())
	}
	if first.Model != second.Model {
		t.Errorf("cached model mismatch: %s vs %s", first.Model, second.Model)
	}

	summary := o.Tracker().Summary()
	if summary.CacheHits != 1 || summary.CacheMisses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", summary.CacheHits, summary.CacheMisses)
	}
}

func TestExtract_ValidationRejections(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return goodResponse("gpt-4o-mini"), nil
	}}
	o := newTestOrchestrator(t, p)

	tests := []struct {
		name string
		req  Request
	}{
		{"empty text", Request{Text: "   ", SchemaID: "person"}},
		{"oversized text", Request{Text: strings.Repeat("x", 2000), SchemaID: "person"}},
		{"unknown schema", Request{Text: "Ada", SchemaID: "nonexistent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Extract(context.Background(), tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if kind, ok := KindOf(err); !ok || kind != KindValidation {
				t.Errorf("expected validation kind, got %v (%v)", kind, err)
			}
		})
	}

	if p.callCount() != 0 {
		t.Errorf("rejected input must not reach the endpoint, got %d calls", p.callCount())
	}
	if o.Tracker().Summary().TotalRequests != 0 {
		t.Error("rejected input must not record cost")
	}
}

func TestExtract_RetriesRateLimited(t *testing.T) {
	var calls int
	var mu sync.Mutex
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n <= 2 {
			return llm.CompletionResponse{}, &llm.APIError{
				Provider: "fake", Status: 429,
				Kind: llm.FailureRateLimited,
				Err:  errors.New("slow down"),
			}
		}
		return goodResponse("gpt-4o-mini"), nil
	}}
	o := newTestOrchestrator(t, p)

	res, err := o.Extract(context.Background(), Request{Text: "Ada, 36", SchemaID: "person"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}

	// Only the successful call is charged, not the rate-limited attempts.
	if got := o.Tracker().Summary().TotalRequests; got != 1 {
		t.Errorf("expected exactly 1 cost record, got %d", got)
	}
}

func TestExtract_AuthFailsFast(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, &llm.APIError{
			Provider: "fake", Status: 401,
			Kind: llm.FailureAuth,
			Err:  errors.New("bad key"),
		}
	}}
	o := newTestOrchestrator(t, p)

	_, err := o.Extract(context.Background(), Request{Text: "Ada", SchemaID: "person"})
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, _ := KindOf(err); kind != KindExternal {
		t.Errorf("expected external kind, got %v", kind)
	}
	if p.callCount() != 1 {
		t.Errorf("auth failure must not be retried, got %d calls", p.callCount())
	}
}

func TestExtract_ExhaustsRetryBudget(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, &llm.APIError{
			Provider: "fake", Status: 503,
			Kind: llm.FailureTransient,
			Err:  errors.New("upstream down"),
		}
	}}
	o := newTestOrchestrator(t, p)

	_, err := o.Extract(context.Background(), Request{Text: "Ada", SchemaID: "person"})
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, _ := KindOf(err); kind != KindExternal {
		t.Errorf("expected external kind, got %v", kind)
	}
	if !errors.Is(err, retry.ErrMaxAttempts) {
		t.Errorf("expected ErrMaxAttempts in chain, got %v", err)
	}
	if p.callCount() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", p.callCount())
	}
}

func TestExtract_RateLimitWaitTimeout(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return goodResponse("gpt-4o-mini"), nil
	}}
	limiter := ratelimit.New(1, ratelimit.WithWaitTimeout(20*time.Millisecond))
	if !limiter.TryAcquire() {
		t.Fatal("priming acquire failed")
	}
	o := newTestOrchestrator(t, p, WithLimiter(limiter))

	_, err := o.Extract(context.Background(), Request{Text: "Ada", SchemaID: "person"})
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, _ := KindOf(err); kind != KindRateLimitTimeout {
		t.Errorf("expected rate limit timeout kind, got %v", kind)
	}
	if p.callCount() != 0 {
		t.Errorf("endpoint must not be called when the limiter wait times out, got %d", p.callCount())
	}
}

func TestExtract_SchemaMismatch_BadJSON(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{
			Content: "this is not JSON",
			Model:   "gpt-4o-mini",
			Usage:   llm.Usage{PromptTokens: 100, CompletionTokens: 10},
		}, nil
	}}
	o := newTestOrchestrator(t, p)
	req := Request{Text: "Ada", SchemaID: "person"}

	_, err := o.Extract(context.Background(), req)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, _ := KindOf(err); kind != KindSchemaMismatch {
		t.Errorf("expected schema mismatch kind, got %v", kind)
	}
	if p.callCount() != 1 {
		t.Errorf("schema mismatch must not be retried, got %d calls", p.callCount())
	}

	// The call reached the endpoint, so it is still charged.
	if o.Tracker().Summary().TotalRequests != 1 {
		t.Error("endpoint call should be cost-recorded despite the mismatch")
	}

	// Mismatched responses are not cached.
	_, _ = o.Extract(context.Background(), req)
	if p.callCount() != 2 {
		t.Errorf("mismatch must not be served from cache, got %d calls", p.callCount())
	}
}

func TestExtract_SchemaMismatch_MissingRequired(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{
			Content: `{"age": 36}`,
			Model:   "gpt-4o-mini",
			Usage:   llm.Usage{PromptTokens: 100, CompletionTokens: 10},
		}, nil
	}}
	o := newTestOrchestrator(t, p)

	_, err := o.Extract(context.Background(), Request{Text: "someone aged 36", SchemaID: "person"})
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, _ := KindOf(err); kind != KindSchemaMismatch {
		t.Errorf("expected schema mismatch kind, got %v", kind)
	}
}

func TestExtract_Cancelled(t *testing.T) {
	p := &fakeProvider{fn: func(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, ctx.Err()
	}}
	o := newTestOrchestrator(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Extract(ctx, Request{Text: "Ada", SchemaID: "person"})
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, _ := KindOf(err); kind != KindCancelled {
		t.Errorf("expected cancelled kind, got %v (%v)", kind, err)
	}
}

func TestExtract_Timeout(t *testing.T) {
	p := &fakeProvider{fn: func(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		<-ctx.Done()
		return llm.CompletionResponse{}, ctx.Err()
	}}
	cfg := fastConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	o := New(p, testSchemas(t), WithConfig(cfg))

	_, err := o.Extract(context.Background(), Request{Text: "Ada", SchemaID: "person"})
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, _ := KindOf(err); kind != KindTimeout {
		t.Errorf("expected timeout kind, got %v (%v)", kind, err)
	}
}

func TestExtract_UnknownModelCostSkipped(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return goodResponse("mystery-model"), nil
	}}
	cfg := fastConfig()
	cfg.DefaultModel = "mystery-model"
	o := New(p, testSchemas(t), WithConfig(cfg))

	res, err := o.Extract(context.Background(), Request{Text: "Ada, 36", SchemaID: "person"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Cost != 0 {
		t.Errorf("unknown model should carry zero cost, got %f", res.Cost)
	}
	if o.Tracker().Summary().TotalRequests != 0 {
		t.Error("unpriced call must not enter the ledger")
	}
}

func TestExtractBatch_FailureIsolation(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return goodResponse("gpt-4o-mini"), nil
	}}
	o := newTestOrchestrator(t, p)

	reqs := []Request{
		{Text: "Ada, 36", SchemaID: "person"},
		{Text: "Grace, 45", SchemaID: "nonexistent"},
		{Text: "Edsger, 72", SchemaID: "person"},
	}
	results := o.ExtractBatch(context.Background(), reqs, 2)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d carries index %d", i, r.Index)
		}
	}
	if results[0].Err != nil {
		t.Errorf("item 0 should succeed: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("item 1 should fail")
	} else if kind, _ := KindOf(results[1].Err); kind != KindValidation {
		t.Errorf("item 1: expected validation kind, got %v", kind)
	}
	if results[2].Err != nil {
		t.Errorf("item 2 should succeed despite item 1 failing: %v", results[2].Err)
	}
}

func TestExtractBatch_RetryExhaustionIsolated(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
		for _, m := range req.Messages {
			if strings.Contains(m.Content, "Alan") {
				return llm.CompletionResponse{}, &llm.APIError{
					Provider: "fake", Status: 503,
					Kind: llm.FailureTransient,
					Err:  errors.New("overloaded"),
				}
			}
		}
		return goodResponse("gpt-4o-mini"), nil
	}}
	o := newTestOrchestrator(t, p)

	reqs := []Request{
		{Text: "Ada, 36", SchemaID: "person"},
		{Text: "Grace, 45", SchemaID: "person"},
		{Text: "Alan, 41", SchemaID: "person"},
		{Text: "Edsger, 72", SchemaID: "person"},
		{Text: "Barbara, 58", SchemaID: "person"},
	}
	results := o.ExtractBatch(context.Background(), reqs, 3)

	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, r := range results {
		if i == 2 {
			if r.Err == nil {
				t.Error("item 2 should exhaust its retry budget and fail")
			} else if !errors.Is(r.Err, retry.ErrMaxAttempts) {
				t.Errorf("item 2: expected retry exhaustion, got %v", r.Err)
			}
			continue
		}
		if r.Err != nil {
			t.Errorf("item %d should complete despite item 2 failing: %v", i, r.Err)
		}
	}
}

func TestExtract_ConcurrentIdenticalDeduplicated(t *testing.T) {
	release := make(chan struct{})
	p := &fakeProvider{fn: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		<-release
		return goodResponse("gpt-4o-mini"), nil
	}}
	o := newTestOrchestrator(t, p)
	req := Request{Text: "Ada, 36", SchemaID: "person"}

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = o.Extract(context.Background(), req)
		}()
	}

	// Give the goroutines time to pile onto the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("goroutine %d failed: %v", i, err)
		}
	}
	if p.callCount() != 1 {
		t.Errorf("identical concurrent requests should share one call, got %d", p.callCount())
	}
}
