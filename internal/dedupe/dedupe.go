// Package dedupe reconciles transactions parsed from multiple source files
// of the same statement into a single deduplicated set.
package dedupe

import (
	"fmt"
	"strings"

	"ledgerlens/internal/models"
)

// fingerprintPrefixLen bounds how much of the description participates in
// matching, so minor trailing differences between PDF and CSV renderings of
// the same merchant still collide.
const fingerprintPrefixLen = 16

// Fingerprint produces the match key for a transaction: date, exact amount,
// and a normalized description prefix.
func Fingerprint(tx *models.Transaction) string {
	desc := strings.ToUpper(strings.Join(strings.Fields(tx.Description), " "))
	if len(desc) > fingerprintPrefixLen {
		desc = desc[:fingerprintPrefixLen]
	}
	return fmt.Sprintf("%s|%s|%s", tx.Date.Format("2006-01-02"), tx.Amount.String(), desc)
}

// Result is the outcome of merging the per-source transaction sets.
type Result struct {
	Transactions []*models.Transaction

	// Matched counts cross-source pairs that were collapsed into one row.
	Matched int

	// CountDivergence is the absolute difference between the per-source
	// transaction counts.
	CountDivergence int

	// Conflict is set when the sources disagree about the statement beyond
	// the configured tolerance and the merge result needs review.
	Conflict bool
}

// Merge reconciles CSV and PDF transactions for one statement. CSV is the
// richer source and wins on matched pairs; the PDF copy only fills fields
// the CSV row left empty. Transactions present in a single source are kept.
// Repeated identical rows within one source are legitimate (two identical
// coffee purchases) and are matched by occurrence, never collapsed.
func Merge(csvTxns, pdfTxns []*models.Transaction, countTolerance int) *Result {
	result := &Result{
		Transactions: make([]*models.Transaction, 0, len(csvTxns)+len(pdfTxns)),
	}

	// Occurrence lists per fingerprint, so the Nth identical PDF row pairs
	// with the Nth identical CSV row.
	pdfByFingerprint := make(map[string][]*models.Transaction)
	for _, tx := range pdfTxns {
		fp := Fingerprint(tx)
		pdfByFingerprint[fp] = append(pdfByFingerprint[fp], tx)
	}

	for _, csvTx := range csvTxns {
		fp := Fingerprint(csvTx)
		if queue := pdfByFingerprint[fp]; len(queue) > 0 {
			fillFrom(csvTx, queue[0])
			pdfByFingerprint[fp] = queue[1:]
			result.Matched++
		}
		result.Transactions = append(result.Transactions, csvTx)
	}

	// PDF-only rows, in their original order.
	for _, tx := range pdfTxns {
		fp := Fingerprint(tx)
		queue := pdfByFingerprint[fp]
		if len(queue) > 0 && queue[0] == tx {
			pdfByFingerprint[fp] = queue[1:]
			result.Transactions = append(result.Transactions, tx)
		}
	}

	diff := len(csvTxns) - len(pdfTxns)
	if diff < 0 {
		diff = -diff
	}
	result.CountDivergence = diff
	if len(csvTxns) > 0 && len(pdfTxns) > 0 && diff > countTolerance {
		result.Conflict = true
	}

	return result
}

// fillFrom copies fields the PDF row has but the winning CSV row lacks.
func fillFrom(dst, src *models.Transaction) {
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.Type == "" {
		dst.Type = src.Type
	}
}
