package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "ledgerlens/internal/errors"
)

// transformRegistry canonicalizes raw label values. Transforms are named in
// configuration so field specs stay data.
var transformRegistry = map[string]func(string) (string, error){
	"strip_separators": func(raw string) (string, error) {
		return strings.ReplaceAll(raw, ",", ""), nil
	},
	"dollars_to_points": func(raw string) (string, error) {
		val, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimPrefix(raw, "$"), ",", ""), 64)
		if err != nil {
			return "", err
		}
		if val < 0 {
			val = -val
		}
		return strconv.Itoa(int(val * 100)), nil
	},
	"percent_to_decimal": func(raw string) (string, error) {
		val, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(val/100, 'f', 4, 64), nil
	},
}

type pdfFieldMatcher struct {
	name      string
	labels    []*regexp.Regexp
	value     *regexp.Regexp
	transform string
}

// PDFParser recovers line items from a statement's extracted text layer using
// anchored label patterns and a transaction-line pattern. It assumes the text
// layer is present; scanned image-only PDFs are out of scope.
type PDFParser struct {
	cfg         PDFConfig
	transaction *regexp.Regexp
	fields      []pdfFieldMatcher
}

// NewPDFParser compiles the configured patterns.
func NewPDFParser(cfg PDFConfig) (*PDFParser, error) {
	if cfg.TransactionPattern == "" {
		return nil, fmt.Errorf("pdf config requires transaction_pattern")
	}
	txn, err := regexp.Compile(cfg.TransactionPattern)
	if err != nil {
		return nil, fmt.Errorf("transaction_pattern: %w", err)
	}
	if txn.NumSubexp() < 3 {
		return nil, fmt.Errorf("transaction_pattern must capture date, description, and amount groups")
	}

	p := &PDFParser{cfg: cfg, transaction: txn}
	for _, spec := range cfg.Fields {
		m := pdfFieldMatcher{name: spec.Name, transform: spec.Transform}
		if spec.Transform != "" {
			if _, ok := transformRegistry[spec.Transform]; !ok {
				return nil, fmt.Errorf("field %q: unknown transform %q", spec.Name, spec.Transform)
			}
		}
		for _, label := range spec.LabelPatterns {
			re, err := regexp.Compile("(?i)" + label)
			if err != nil {
				return nil, fmt.Errorf("field %q label pattern: %w", spec.Name, err)
			}
			m.labels = append(m.labels, re)
		}
		value, err := regexp.Compile(spec.ValuePattern)
		if err != nil {
			return nil, fmt.Errorf("field %q value pattern: %w", spec.Name, err)
		}
		m.value = value
		p.fields = append(p.fields, m)
	}
	return p, nil
}

// Parse implements Parser. It extracts the text layer and delegates to
// ParseText.
func (p *PDFParser) Parse(data []byte) (*Result, error) {
	rows, err := extractTextRows(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnsupportedLayout, err)
	}
	return p.ParseText(rows)
}

// ParseText runs the layout heuristics over already extracted text rows.
// Split out from Parse so layouts can be exercised without PDF bytes.
func (p *PDFParser) ParseText(rows []string) (*Result, error) {
	result := &Result{Fields: map[string]string{}}

	for _, m := range p.fields {
		value, found := p.extractField(rows, m)
		if !found {
			result.LowConfidence = true
			continue
		}
		result.Fields[m.name] = value
	}

	index := 0
	for _, row := range rows {
		match := p.transaction.FindStringSubmatch(row)
		if match == nil {
			continue
		}
		index++
		line := RawLine{
			Index:       index,
			Date:        strings.TrimSpace(match[1]),
			Description: strings.TrimSpace(match[2]),
			Amount:      strings.TrimSpace(match[3]),
		}
		if p.cfg.CreditSuffix != "" && strings.HasSuffix(line.Amount, p.cfg.CreditSuffix) {
			line.TypeHint = "credit"
		}
		result.Lines = append(result.Lines, line)
	}

	if len(result.Lines) == 0 && len(result.Fields) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrUnsupportedLayout,
			"no transaction block or summary section recognized")
	}
	if len(result.Lines) == 0 {
		// Summary recognized but no transactions; report what we have.
		result.LowConfidence = true
	}

	return result, nil
}

func (p *PDFParser) extractField(rows []string, m pdfFieldMatcher) (string, bool) {
	for _, row := range rows {
		for _, label := range m.labels {
			if !label.MatchString(row) {
				continue
			}
			// Search after the label so the value pattern cannot match
			// digits inside the label itself.
			loc := label.FindStringIndex(row)
			rest := row[loc[1]:]
			valueMatch := m.value.FindStringSubmatch(rest)
			if valueMatch == nil {
				continue
			}
			raw := strings.TrimSpace(valueMatch[1])
			if m.transform != "" {
				transformed, err := transformRegistry[m.transform](raw)
				if err != nil {
					continue
				}
				raw = transformed
			}
			return raw, true
		}
	}
	return "", false
}
