package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/distill-ai/distill/internal/cost"
	"github.com/distill-ai/distill/internal/extractor"
	"github.com/distill-ai/distill/internal/llm"
	"github.com/distill-ai/distill/internal/logger"
	"github.com/distill-ai/distill/internal/output"
)

// extractionInput pairs input text with where it came from.
type extractionInput struct {
	Source string
	Text   string
}

// addCommonExtractFlags registers the flags shared by the extraction
// commands.
func addCommonExtractFlags(flags *pflag.FlagSet) {
	// Inputs
	flags.StringSliceP("input-file", "i", nil, "input text file (can be repeated)")
	flags.StringP("text", "t", "", "input text directly")

	// LLM settings
	flags.StringP("provider", "p", "", "LLM provider: anthropic, openai, openrouter, ollama (auto-detects from env vars)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.String("base-url", "", "custom API base URL")
	flags.Float64("temperature", 0.1, "sampling temperature")
	flags.Int("max-tokens", 4096, "max completion tokens")

	// Output settings
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")
	flags.Bool("pretty", true, "pretty-print JSON output")
	flags.String("data-dir", "data", "directory for auto-saved results")
	flags.Bool("no-save", false, "don't auto-save results, only print")

	// Resilience settings
	flags.Int("rate-limit", 60, "max requests per minute")
	flags.Duration("rate-limit-wait", 30*time.Second, "max time to wait for a rate limit slot")
	flags.Duration("cache-ttl", 15*time.Minute, "result cache lifetime")
	flags.Int("max-retries", 3, "total endpoint attempts per extraction")
	flags.String("max-input-size", "100KB", "max input text size (e.g., 100KB, 1MB, 0=unlimited)")
	flags.Duration("timeout", 2*time.Minute, "per-extraction deadline")
	flags.IntP("concurrency", "c", 3, "concurrent extractions")

	_ = viper.BindPFlag("provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("model", flags.Lookup("model"))
	_ = viper.BindPFlag("api_key", flags.Lookup("api-key"))
	_ = viper.BindPFlag("base_url", flags.Lookup("base-url"))
}

// gatherInputs collects extraction inputs from -i files and -t text.
func gatherInputs(cmd *cobra.Command) ([]extractionInput, error) {
	var inputs []extractionInput

	files, _ := cmd.Flags().GetStringSlice("input-file")
	for _, path := range files {
		data, err := os.ReadFile(path) //#nosec G304 -- CLI tool reads user-specified input files
		if err != nil {
			return nil, fmt.Errorf("failed to read input file %s: %w", path, err)
		}
		inputs = append(inputs, extractionInput{Source: path, Text: string(data)})
	}

	if text, _ := cmd.Flags().GetString("text"); text != "" {
		inputs = append(inputs, extractionInput{Source: "inline", Text: text})
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("must provide either --input-file or --text")
	}
	return inputs, nil
}

// buildProvider constructs the LLM provider from flags, config, and
// environment detection.
func buildProvider(timeout time.Duration) (llm.Provider, error) {
	name := viper.GetString("provider")
	apiKey := viper.GetString("api_key")

	if name == "" {
		detected, detectedKey := llm.DetectProvider()
		name = detected
		if apiKey == "" {
			apiKey = detectedKey
		}
		logger.Debug("auto-detected provider", "provider", name)
	}

	cfg := llm.ProviderConfig{
		APIKey:  apiKey,
		BaseURL: viper.GetString("base_url"),
		Model:   viper.GetString("model"),
		Timeout: timeout,
	}
	return llm.NewProvider(name, cfg)
}

// orchestratorConfig assembles the orchestrator configuration from flags.
func orchestratorConfig(cmd *cobra.Command) (extractor.Config, error) {
	cfg := extractor.DefaultConfig()

	maxInputStr, _ := cmd.Flags().GetString("max-input-size")
	if strings.TrimSpace(maxInputStr) != "" && maxInputStr != "0" {
		size, err := humanize.ParseBytes(maxInputStr)
		if err != nil {
			return cfg, fmt.Errorf("invalid max-input-size %q: %w", maxInputStr, err)
		}
		cfg.MaxInputLength = int(size)
	} else {
		cfg.MaxInputLength = 0
	}

	cfg.RequestsPerMinute, _ = cmd.Flags().GetInt("rate-limit")
	cfg.RateLimitWait, _ = cmd.Flags().GetDuration("rate-limit-wait")
	cfg.CacheTTL, _ = cmd.Flags().GetDuration("cache-ttl")
	cfg.MaxRetries, _ = cmd.Flags().GetInt("max-retries")
	cfg.RequestTimeout, _ = cmd.Flags().GetDuration("timeout")
	cfg.Temperature, _ = cmd.Flags().GetFloat64("temperature")
	cfg.MaxTokens, _ = cmd.Flags().GetInt("max-tokens")
	cfg.DefaultModel = viper.GetString("model")

	return cfg, nil
}

// runExtraction drives a batch of extractions against one schema and
// handles output, auto-saving, and the session summary.
func runExtraction(ctx context.Context, cmd *cobra.Command, orch *extractor.Orchestrator, schemaID, label string, systemPrompt string) error {
	inputs, err := gatherInputs(cmd)
	if err != nil {
		logError("%v", err)
		return err
	}

	model, _ := cmd.Flags().GetString("model")
	temperature, _ := cmd.Flags().GetFloat64("temperature")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	reqs := make([]extractor.Request, len(inputs))
	for i, in := range inputs {
		reqs[i] = extractor.Request{
			Text:         in.Text,
			SchemaID:     schemaID,
			Model:        model,
			Temperature:  temperature,
			MaxTokens:    maxTokens,
			SystemPrompt: systemPrompt,
		}
	}

	logInfo("Extracting %d input(s) with template %q", len(inputs), label)
	results := orch.ExtractBatch(ctx, reqs, concurrency)

	// Setup output writer
	outFile := os.Stdout
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logError("failed to create output file %s: %v", outPath, err)
			return err
		}
		defer func() { _ = f.Close() }()
		outFile = f
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		logError("%v", err)
		return err
	}
	pretty, _ := cmd.Flags().GetBool("pretty")
	writer, err := output.NewWriter(outFile, format, output.WithPretty(pretty))
	if err != nil {
		logError("%v", err)
		return err
	}
	defer func() { _ = writer.Close() }()

	noSave, _ := cmd.Flags().GetBool("no-save")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			logError("extraction of %s failed: %v", inputs[r.Index].Source, r.Err)
			continue
		}

		env := output.Envelope{
			Schema:      label,
			Model:       r.Result.Model,
			Provider:    r.Result.Provider,
			Source:      inputs[r.Index].Source,
			CacheHit:    r.Result.CacheHit,
			Attempts:    r.Result.Attempts,
			CostUSD:     r.Result.Cost,
			TotalTokens: r.Result.Usage.Total(),
			ExtractedAt: time.Now().UTC(),
			Data:        r.Result.Data,
		}
		if err := writer.Write(env); err != nil {
			logError("failed to write output: %v", err)
			return err
		}

		if !noSave {
			path, err := saveResult(r.Result.Data, label, dataDir, r.Index)
			if err != nil {
				logError("failed to save result: %v", err)
			} else {
				logInfo("Result saved to %s", path)
			}
		}
	}

	printSummary(orch.Tracker())

	if failed == len(results) {
		return fmt.Errorf("all %d extraction(s) failed", failed)
	}
	return nil
}

// saveResult writes one extraction result as a timestamped JSON file
// under dataDir.
func saveResult(data any, label, dataDir string, index int) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_extraction_%s", label, timestamp)
	if index > 0 {
		filename = fmt.Sprintf("%s_%d", filename, index)
	}
	path := filepath.Join(dataDir, filename+".json")

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// printSummary reports session-level cost statistics.
func printSummary(tracker *cost.Tracker) {
	stats := tracker.Summary()
	if stats.TotalRequests == 0 && stats.CacheHits == 0 {
		return
	}

	logInfo("")
	logInfo("Session summary:")
	logInfo("  Requests:     %d (cache hits: %d, misses: %d)",
		stats.TotalRequests, stats.CacheHits, stats.CacheMisses)
	logInfo("  Tokens:       %d prompt + %d completion",
		stats.PromptTokens, stats.CompletionTokens)
	logInfo("  Total cost:   $%.4f", stats.TotalCost)

	if rec, ok := tracker.Recommend(cost.DefaultRecommendOptions()); ok {
		logInfo("  Tip: outputs from %s average %.0f completion tokens; %s would cost ~$%.4f less",
			rec.CurrentModel, rec.AvgCompletionTokens, rec.SuggestedModel, rec.EstimatedSavings)
	}
}
