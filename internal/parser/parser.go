// Package parser turns raw statement file bytes into ordered sequences of
// raw line records. Parsers are pure and deterministic: identical bytes
// always yield identical output, which re-ingestion idempotence depends on.
//
// Parsers never interpret amounts or dates; they recover text fields and
// leave normalization to the normalize package.
package parser

import (
	"fmt"

	apperrors "ledgerlens/internal/errors"
)

// Format identifies the wire format of an uploaded statement file.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// RawLine is one candidate transaction line recovered from a file, in source
// order. All fields are raw text exactly as they appeared.
type RawLine struct {
	Index       int
	Date        string
	Description string
	Amount      string
	TypeHint    string
}

// RowError records a row that could not be parsed. Row errors never abort a
// file; they are reported alongside the rows that did parse.
type RowError struct {
	Index  int    `json:"index"`
	Line   string `json:"line"`
	Reason string `json:"reason"`
}

// Result is the complete output of parsing one file.
type Result struct {
	Lines     []RawLine
	RowErrors []RowError

	// Fields holds statement-level values recovered from anchored labels
	// (balances, credit limit, points), keyed by field name, values raw.
	Fields map[string]string

	// LowConfidence is set when a transaction block was recognized but one
	// or more expected sections were not.
	LowConfidence bool
}

// Parser parses one institution's files in one format.
type Parser interface {
	Parse(data []byte) (*Result, error)
}

// Registry maps (institution slug, format) pairs to parsers. Selecting a
// parser is a registry lookup, never ad hoc content sniffing.
type Registry struct {
	parsers map[string]Parser
	configs map[string]InstitutionConfig
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[string]Parser),
		configs: make(map[string]InstitutionConfig),
	}
}

func registryKey(slug string, format Format) string {
	return slug + "/" + string(format)
}

// Register adds a parser for the given institution and format.
func (r *Registry) Register(slug string, format Format, p Parser) {
	r.parsers[registryKey(slug, format)] = p
}

// Lookup returns the parser registered for the institution and format.
func (r *Registry) Lookup(slug string, format Format) (Parser, error) {
	p, ok := r.parsers[registryKey(slug, format)]
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrUnsupportedLayout,
			fmt.Sprintf("no %s parser registered for institution %q", format, slug))
	}
	return p, nil
}

// Config returns the institution's parser configuration, used by the
// normalizer for date layouts.
func (r *Registry) Config(slug string) (InstitutionConfig, bool) {
	cfg, ok := r.configs[slug]
	return cfg, ok
}

// Institutions returns the slugs with at least one registered parser.
func (r *Registry) Institutions() []string {
	slugs := make([]string, 0, len(r.configs))
	for slug := range r.configs {
		slugs = append(slugs, slug)
	}
	return slugs
}
