// Package categorize assigns spending categories to transactions from an
// ordered rule set, with per-transaction user overrides taking precedence.
package categorize

import (
	"regexp"
	"strings"

	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/models"
)

type compiledRule struct {
	pattern  string
	regex    *regexp.Regexp
	category string
}

// Engine applies categorization rules in priority order. It is immutable
// once built and safe for concurrent use.
type Engine struct {
	rules     []compiledRule
	overrides map[string]string
}

// NewEngine compiles the rule set. Rules must already be sorted by
// ascending priority; overrides map transaction IDs to pinned categories.
func NewEngine(rules []models.CategoryRule, overrides []models.CategoryOverride) (*Engine, error) {
	engine := &Engine{
		rules:     make([]compiledRule, 0, len(rules)),
		overrides: make(map[string]string, len(overrides)),
	}

	for _, rule := range rules {
		compiled := compiledRule{category: rule.Category}
		if rule.IsRegex {
			re, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				return nil, apperrors.WithMessage(apperrors.ErrValidation, "invalid rule pattern "+rule.Pattern)
			}
			compiled.regex = re
		} else {
			compiled.pattern = strings.ToUpper(rule.Pattern)
		}
		engine.rules = append(engine.rules, compiled)
	}

	for _, override := range overrides {
		engine.overrides[override.TransactionID] = override.Category
	}

	return engine, nil
}

// Categorize returns the category for a transaction: its override if one
// exists, otherwise the first matching rule, otherwise Uncategorized. The
// match runs against the effective description so renamed transactions
// categorize by what the user sees.
func (e *Engine) Categorize(tx *models.Transaction) string {
	if category, ok := e.overrides[tx.ID]; ok {
		return category
	}

	description := tx.EffectiveDescription()
	upper := strings.ToUpper(description)
	for _, rule := range e.rules {
		if rule.regex != nil {
			if rule.regex.MatchString(description) {
				return rule.category
			}
		} else if strings.Contains(upper, rule.pattern) {
			return rule.category
		}
	}
	return models.UncategorizedCategory
}

// Apply categorizes every transaction in place.
func (e *Engine) Apply(txns []*models.Transaction) {
	for _, tx := range txns {
		category := e.Categorize(tx)
		tx.Category = &category
	}
}
