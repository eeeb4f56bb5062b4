// Package output serializes extraction results to JSON, JSONL, or YAML.
package output

import (
	"fmt"
	"io"
	"time"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatJSONL, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// Envelope wraps extracted data with call provenance for output.
type Envelope struct {
	Schema      string    `json:"schema" yaml:"schema"`
	Model       string    `json:"model,omitempty" yaml:"model,omitempty"`
	Provider    string    `json:"provider,omitempty" yaml:"provider,omitempty"`
	Source      string    `json:"source,omitempty" yaml:"source,omitempty"`
	CacheHit    bool      `json:"cache_hit,omitempty" yaml:"cache_hit,omitempty"`
	Attempts    int       `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	CostUSD     float64   `json:"cost_usd,omitempty" yaml:"cost_usd,omitempty"`
	TotalTokens int       `json:"total_tokens,omitempty" yaml:"total_tokens,omitempty"`
	ExtractedAt time.Time `json:"extracted_at" yaml:"extracted_at"`
	Data        any       `json:"data" yaml:"data"`
}

// Writer handles output serialization.
type Writer interface {
	// Write outputs a single result.
	Write(data any) error

	// WriteAll outputs multiple results.
	WriteAll(data []any) error

	// Flush ensures all data is written.
	Flush() error

	// Close releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
