// Package normalize converts raw parsed lines into canonical transactions:
// typed dates, exact decimal amounts, inferred transaction types, and a
// normalized amount sign so downstream consumers never re-interpret raw sign
// conventions.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/models"
	"ledgerlens/internal/parser"
	"ledgerlens/internal/uuid"

	"github.com/shopspring/decimal"
)

// Context carries the statement-level facts a raw line needs to become a
// transaction.
type Context struct {
	StatementID string
	AccountID   string
	Source      models.TransactionSource
	DateLayout  string

	// PeriodEnd anchors year inference for date layouts without a year.
	PeriodEnd time.Time
}

var amountCleaner = regexp.MustCompile(`[$,+\s]`)

// CleanAmount parses a raw amount string into an exact decimal. It strips
// currency symbols and thousands separators, and understands three negative
// notations: leading minus, trailing minus, and parentheses.
func CleanAmount(raw string) (decimal.Decimal, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		negative = true
		text = text[1 : len(text)-1]
	}
	if strings.HasSuffix(text, "-") {
		negative = true
		text = strings.TrimSuffix(text, "-")
	}
	if strings.HasSuffix(strings.ToUpper(text), "CR") {
		negative = true
		text = text[:len(text)-2]
	}
	if strings.HasPrefix(text, "-") {
		negative = true
		text = strings.TrimPrefix(text, "-")
	}

	text = amountCleaner.ReplaceAllString(text, "")
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparsable amount %q", raw)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// ParseDate parses a raw date using the institution's layout. Layouts
// without a year (credit-card PDFs often print only month/day) borrow the
// year from the statement period, rolling back one year when the resulting
// date would land after the period end.
func ParseDate(raw, layout string, periodEnd time.Time) (time.Time, error) {
	parsed, err := time.Parse(layout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable date %q with layout %q", raw, layout)
	}

	if parsed.Year() == 0 && !periodEnd.IsZero() {
		parsed = time.Date(periodEnd.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		if parsed.After(periodEnd) {
			parsed = parsed.AddDate(-1, 0, 0)
		}
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}

var (
	paymentKeywords = []string{"PAYMENT", "AUTOPAY", "DIRECT DEBIT RECEIVED"}
	refundKeywords  = []string{"REFUND", "RETURN", "REVERSAL", "CHARGEBACK"}
)

// InferType decides the transaction type from description keywords first,
// then the parser's hint, then the raw sign. Keyword inference wins so a
// "PAYMENT" row is a payment regardless of how the source signed it.
func InferType(description string, amount decimal.Decimal, hint string) models.TransactionType {
	upper := strings.ToUpper(description)
	for _, kw := range paymentKeywords {
		if strings.Contains(upper, kw) {
			return models.TransactionTypePayment
		}
	}
	for _, kw := range refundKeywords {
		if strings.Contains(upper, kw) {
			return models.TransactionTypeRefund
		}
	}

	switch hint {
	case "debit":
		return models.TransactionTypeDebit
	case "credit":
		return models.TransactionTypeCredit
	case "payment":
		return models.TransactionTypePayment
	case "refund":
		return models.TransactionTypeRefund
	}

	if amount.IsNegative() {
		return models.TransactionTypeCredit
	}
	return models.TransactionTypeDebit
}

// SignForType normalizes the amount sign for a type: debit and payment are
// negative (they consume balance), credit and refund are positive.
func SignForType(txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	magnitude := amount.Abs()
	switch txType {
	case models.TransactionTypeDebit, models.TransactionTypePayment:
		return magnitude.Neg()
	default:
		return magnitude
	}
}

// Normalize converts one raw line into a canonical transaction. The returned
// transaction carries a deterministic provenance ID derived from the
// statement, source file, and row index, so re-ingesting identical bytes
// reproduces identical IDs.
func Normalize(line parser.RawLine, ctx Context) (*models.Transaction, error) {
	date, err := ParseDate(line.Date, ctx.DateLayout, ctx.PeriodEnd)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrNormalize, err.Error())
	}

	amount, err := CleanAmount(line.Amount)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrNormalize, err.Error())
	}

	txType := InferType(line.Description, amount, line.TypeHint)

	tx := &models.Transaction{
		StatementID: ctx.StatementID,
		AccountID:   ctx.AccountID,
		Date:        date,
		Amount:      SignForType(txType, amount),
		Description: strings.TrimSpace(line.Description),
		Type:        txType,
		Source:      ctx.Source,
		SourceRow:   line.Index,
	}
	tx.ID = uuid.Deterministic(ctx.StatementID, string(ctx.Source), fmt.Sprintf("%d", line.Index))
	return tx, nil
}
