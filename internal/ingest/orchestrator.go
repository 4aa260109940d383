// Package ingest drives statement processing: fetch the uploaded files,
// parse, normalize, reconcile, categorize, and persist the result as one
// atomic replacement of the statement's derived data.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"ledgerlens/internal/analytics"
	"ledgerlens/internal/blobstore"
	"ledgerlens/internal/categorize"
	"ledgerlens/internal/dedupe"
	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/logger"
	"ledgerlens/internal/models"
	"ledgerlens/internal/normalize"
	"ledgerlens/internal/parser"
)

// Config tunes the orchestrator's retry and reconciliation behavior.
type Config struct {
	// MaxRetries bounds attempts per blob fetch; only transient storage
	// and timeout errors are retried.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per attempt.
	RetryBackoff time.Duration

	// DedupeTolerance is the cross-source count divergence allowed before
	// the merge is flagged as a conflict.
	DedupeTolerance int

	// Timeout bounds one full ingestion run.
	Timeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		RetryBackoff:    500 * time.Millisecond,
		DedupeTolerance: 5,
		Timeout:         2 * time.Minute,
	}
}

// Orchestrator runs the ingestion pipeline for one statement at a time per
// statement ID. It is safe for concurrent use across distinct statements.
type Orchestrator struct {
	db       *gorm.DB
	registry *parser.Registry
	store    blobstore.Store
	cfg      Config

	mu     sync.Mutex
	active map[string]struct{}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(db *gorm.DB, registry *parser.Registry, store blobstore.Store, cfg Config) *Orchestrator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultConfig().RetryBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Orchestrator{
		db:       db,
		registry: registry,
		store:    store,
		cfg:      cfg,
		active:   make(map[string]struct{}),
	}
}

// Ingest processes one statement end to end. A second concurrent call for
// the same statement is rejected with a conflict; runs for different
// statements proceed in parallel.
func (o *Orchestrator) Ingest(ctx context.Context, statementID string) error {
	if !o.claim(statementID) {
		return apperrors.WithMessage(apperrors.ErrConcurrencyConflict,
			fmt.Sprintf("statement %s is already being processed", statementID))
	}
	defer o.release(statementID)

	log := logger.Get().With("statement_id", statementID)

	stmt, err := o.loadStatement(statementID)
	if err != nil {
		return err
	}

	if _, err := Transition(stmt.Status, models.StatementStatusProcessing); err != nil {
		return err
	}
	if err := o.db.Model(stmt).Update("status", models.StatementStatusProcessing).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	stmt.Status = models.StatementStatusProcessing

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	outcome, err := o.process(ctx, stmt)
	if err != nil {
		log.Warnw("ingestion failed", "error", err)
		return o.markFailed(stmt, err)
	}

	if err := o.persist(stmt, outcome); err != nil {
		log.Errorw("failed to persist ingestion result", "error", err)
		return o.markFailed(stmt, err)
	}

	log.Infow("ingestion completed",
		"transactions", len(outcome.transactions),
		"matched", outcome.merge.Matched,
		"row_errors", len(outcome.rowErrors))
	return nil
}

func (o *Orchestrator) claim(statementID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.active[statementID]; busy {
		return false
	}
	o.active[statementID] = struct{}{}
	return true
}

func (o *Orchestrator) release(statementID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, statementID)
}

func (o *Orchestrator) loadStatement(statementID string) (*models.Statement, error) {
	var stmt models.Statement
	err := o.db.Preload("Account.Institution").First(&stmt, "id = ?", statementID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrStatementNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !stmt.HasFile() {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "statement has no files to ingest")
	}
	return &stmt, nil
}

// sourceResult is the parsed and normalized output of one file.
type sourceResult struct {
	source       models.TransactionSource
	transactions []*models.Transaction
	rowErrors    []parser.RowError
	fields       map[string]string
	lowConf      bool
}

// fileError records one source file that could not be parsed at all while
// the other source still produced rows.
type fileError struct {
	source models.TransactionSource
	code   string
	reason string
}

// outcome is everything a successful run persists.
type outcome struct {
	transactions []*models.Transaction
	merge        *dedupe.Result
	rowErrors    []parser.RowError
	fileErrors   []fileError
	fields       map[string]string
	lowConf      bool
}

// recoverableFileErr reports whether a per-source failure may be demoted to
// the statement's metadata instead of failing the run. Parse and normalize
// failures are recoverable when the other source still yields rows; storage
// and timeout failures are not.
func recoverableFileErr(err error) (*apperrors.AppError, bool) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return nil, false
	}
	switch appErr.Code {
	case apperrors.ErrParse.Code, apperrors.ErrNormalize.Code:
		return appErr, true
	}
	return nil, false
}

func (o *Orchestrator) process(ctx context.Context, stmt *models.Statement) (*outcome, error) {
	slug := stmt.Account.Institution.Slug

	g, gctx := errgroup.WithContext(ctx)
	var (
		pdfRes, csvRes *sourceResult
		mu             sync.Mutex
		fileErrs       []fileError
	)

	demote := func(source models.TransactionSource, err error) error {
		appErr, ok := recoverableFileErr(err)
		if !ok {
			return err
		}
		mu.Lock()
		fileErrs = append(fileErrs, fileError{source: source, code: appErr.Code, reason: appErr.Message})
		mu.Unlock()
		return nil
	}

	if stmt.PDFBlobRef != nil {
		g.Go(func() error {
			res, err := o.processFile(gctx, stmt, slug, parser.FormatPDF, *stmt.PDFBlobRef)
			if err != nil {
				return demote(models.TransactionSourcePDF, err)
			}
			pdfRes = res
			return nil
		})
	}
	if stmt.CSVBlobRef != nil {
		g.Go(func() error {
			res, err := o.processFile(gctx, stmt, slug, parser.FormatCSV, *stmt.CSVBlobRef)
			if err != nil {
				return demote(models.TransactionSourceCSV, err)
			}
			csvRes = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var csvTxns, pdfTxns []*models.Transaction
	out := &outcome{fields: map[string]string{}, fileErrors: fileErrs}
	if csvRes != nil {
		csvTxns = csvRes.transactions
		out.rowErrors = append(out.rowErrors, csvRes.rowErrors...)
		out.lowConf = out.lowConf || csvRes.lowConf
	}
	if pdfRes != nil {
		pdfTxns = pdfRes.transactions
		out.rowErrors = append(out.rowErrors, pdfRes.rowErrors...)
		out.lowConf = out.lowConf || pdfRes.lowConf
		for k, v := range pdfRes.fields {
			out.fields[k] = v
		}
	}

	out.merge = dedupe.Merge(csvTxns, pdfTxns, o.cfg.DedupeTolerance)
	out.transactions = out.merge.Transactions

	if len(out.transactions) == 0 {
		if len(out.fileErrors) > 0 {
			return nil, apperrors.WithMessage(apperrors.ErrParse,
				fmt.Sprintf("no transactions recovered from any source file: %s", out.fileErrors[0].reason))
		}
		return nil, apperrors.WithMessage(apperrors.ErrParse, "no transactions recovered from any source file")
	}

	if err := o.categorizeAll(out.transactions); err != nil {
		return nil, err
	}
	return out, nil
}

// processFile fetches one blob, parses it, and normalizes its rows. Rows
// that fail normalization are demoted to row errors rather than failing the
// file.
func (o *Orchestrator) processFile(ctx context.Context, stmt *models.Statement, slug string, format parser.Format, ref string) (*sourceResult, error) {
	p, err := o.registry.Lookup(slug, format)
	if err != nil {
		return nil, err
	}

	data, err := o.fetchWithRetry(ctx, ref)
	if err != nil {
		return nil, err
	}

	parsed, err := p.Parse(data)
	if err != nil {
		return nil, err
	}

	source := models.TransactionSourceCSV
	layout := ""
	if cfg, ok := o.registry.Config(slug); ok {
		if format == parser.FormatCSV && cfg.CSV != nil {
			layout = cfg.CSV.DateLayout
		}
		if format == parser.FormatPDF && cfg.PDF != nil {
			layout = cfg.PDF.DateLayout
		}
	}
	if format == parser.FormatPDF {
		source = models.TransactionSourcePDF
	}

	nctx := normalize.Context{
		StatementID: stmt.ID,
		AccountID:   stmt.AccountID,
		Source:      source,
		DateLayout:  layout,
		PeriodEnd:   stmt.PeriodEnd,
	}

	res := &sourceResult{
		source:    source,
		rowErrors: parsed.RowErrors,
		fields:    parsed.Fields,
		lowConf:   parsed.LowConfidence,
	}
	for _, line := range parsed.Lines {
		tx, err := normalize.Normalize(line, nctx)
		if err != nil {
			res.rowErrors = append(res.rowErrors, parser.RowError{
				Index:  line.Index,
				Line:   fmt.Sprintf("%s %s %s", line.Date, line.Description, line.Amount),
				Reason: err.Error(),
			})
			continue
		}
		res.transactions = append(res.transactions, tx)
	}
	return res, nil
}

// fetchWithRetry retries transient blob failures with exponential backoff.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, ref string) ([]byte, error) {
	backoff := o.cfg.RetryBackoff
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		data, err := o.store.Fetch(ctx, ref)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !apperrors.IsRetryable(err) || attempt == o.cfg.MaxRetries {
			break
		}
		logger.Get().Warnw("blob fetch failed, retrying", "ref", ref, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(apperrors.ErrTimeout, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}

// categorizeAll loads the rule set and any overrides pinned to the incoming
// deterministic transaction IDs, then categorizes in place. Overrides from a
// previous run of the same statement re-attach because re-parsed rows keep
// their IDs.
func (o *Orchestrator) categorizeAll(txns []*models.Transaction) error {
	var rules []models.CategoryRule
	if err := o.db.Order("priority ASC").Find(&rules).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ids := make([]string, 0, len(txns))
	for _, tx := range txns {
		ids = append(ids, tx.ID)
	}
	var overrides []models.CategoryOverride
	if err := o.db.Where("transaction_id IN ?", ids).Find(&overrides).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	engine, err := categorize.NewEngine(rules, overrides)
	if err != nil {
		return err
	}
	engine.Apply(txns)
	return nil
}

// persist atomically replaces the statement's derived data and marks it
// completed.
func (o *Orchestrator) persist(stmt *models.Statement, out *outcome) error {
	summary := analytics.Summarize(out.transactions)
	metadata := buildMetadata(out)
	now := time.Now().UTC()

	return o.db.Transaction(func(tx *gorm.DB) error {
		// Replace, not append: re-ingestion must not duplicate rows.
		if err := tx.Unscoped().Where("statement_id = ?", stmt.ID).Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Where("statement_id = ?", stmt.ID).Delete(&models.StatementDetail{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Where("statement_id = ?", stmt.ID).Delete(&models.CreditCardDetail{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Where("statement_id = ?", stmt.ID).Delete(&models.DebtDetail{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for _, t := range out.transactions {
			if err := tx.Create(t).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		if detail := buildStatementDetail(stmt, out.fields); detail != nil {
			if err := tx.Create(detail).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if detail := buildCreditCardDetail(stmt, out.fields); detail != nil {
			if err := tx.Create(detail).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if detail := buildDebtDetail(stmt, out.fields); detail != nil {
			if err := tx.Create(detail).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		updates := map[string]interface{}{
			"status":              models.StatementStatusCompleted,
			"processed_at":        now,
			"transaction_count":   summary.TransactionCount,
			"total_credits":       summary.TotalCredits,
			"total_debits":        summary.TotalDebits,
			"net_amount":          summary.NetAmount,
			"processing_metadata": metadata,
		}
		if err := tx.Model(&models.Statement{}).Where("id = ?", stmt.ID).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// markFailed moves the statement to failed and records the failure in its
// metadata. The original error is returned so callers still see it.
func (o *Orchestrator) markFailed(stmt *models.Statement, cause error) error {
	metadata := models.JSONMap{"error": cause.Error()}
	var appErr *apperrors.AppError
	if errors.As(cause, &appErr) {
		metadata["error_code"] = appErr.Code
	}

	updates := map[string]interface{}{
		"status":              models.StatementStatusFailed,
		"processing_metadata": metadata,
	}
	if err := o.db.Model(&models.Statement{}).Where("id = ?", stmt.ID).Updates(updates).Error; err != nil {
		logger.Get().Errorw("failed to mark statement failed", "statement_id", stmt.ID, "error", err)
	}
	return cause
}

func buildMetadata(out *outcome) models.JSONMap {
	metadata := models.JSONMap{
		"matched_pairs":    out.merge.Matched,
		"count_divergence": out.merge.CountDivergence,
	}
	if len(out.rowErrors) > 0 {
		rows := make([]interface{}, 0, len(out.rowErrors))
		for _, re := range out.rowErrors {
			rows = append(rows, map[string]interface{}{
				"index": re.Index, "line": re.Line, "reason": re.Reason,
			})
		}
		metadata["row_errors"] = rows
	}
	if len(out.fileErrors) > 0 {
		files := make([]interface{}, 0, len(out.fileErrors))
		for _, fe := range out.fileErrors {
			files = append(files, map[string]interface{}{
				"file": string(fe.source), "error_code": fe.code, "reason": fe.reason,
			})
		}
		metadata["file_errors"] = files
	}
	if out.merge.Conflict {
		metadata["warning"] = "cross-source transaction counts diverge beyond tolerance"
	}
	if out.lowConf {
		metadata["low_confidence"] = true
	}
	return metadata
}

func buildStatementDetail(stmt *models.Statement, fields map[string]string) *models.StatementDetail {
	prev, prevOK := fieldDecimal(fields, "previous_balance")
	next, nextOK := fieldDecimal(fields, "new_balance")
	if !prevOK && !nextOK {
		return nil
	}
	return &models.StatementDetail{
		StatementID:     stmt.ID,
		PreviousBalance: prev,
		NewBalance:      next,
	}
}

func buildCreditCardDetail(stmt *models.Statement, fields map[string]string) *models.CreditCardDetail {
	if stmt.Account.Type != models.AccountTypeCreditCard || len(fields) == 0 {
		return nil
	}

	detail := &models.CreditCardDetail{
		AccountID:   stmt.AccountID,
		StatementID: stmt.ID,
	}
	any := false

	if v, ok := fieldDecimal(fields, "credit_limit"); ok {
		detail.CreditLimit = decimal.NewNullDecimal(v)
		any = true
	}
	if v, ok := fieldDecimal(fields, "available_credit"); ok {
		detail.AvailableCredit = decimal.NewNullDecimal(v)
		any = true
	}
	if v, ok := fieldDecimal(fields, "purchases"); ok {
		detail.Purchases = v
		any = true
	}
	if v, ok := fieldDecimal(fields, "credits"); ok {
		detail.Credits = v
		any = true
	}
	if v, ok := fieldDecimal(fields, "cash_advances"); ok {
		detail.CashAdvances = v
		any = true
	}
	if v, ok := fieldDecimal(fields, "fees"); ok {
		detail.Fees = v
		any = true
	}
	if v, ok := fields["points_earned"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			detail.PointsEarned = n
			any = true
		}
	}
	if v, ok := fields["points_redeemed"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			detail.PointsRedeemed = n
			any = true
		}
	}

	if !any {
		return nil
	}
	return detail
}

var dueDateLayouts = []string{"01/02/2006", "01/02/06"}

// buildDebtDetail extracts payment and interest fields. PrincipalPaid is
// derived as the payment magnitude minus interest paid, per the statement
// summary convention.
func buildDebtDetail(stmt *models.Statement, fields map[string]string) *models.DebtDetail {
	detail := &models.DebtDetail{
		AccountID:   stmt.AccountID,
		StatementID: stmt.ID,
	}
	any := false

	if v, ok := fieldDecimal(fields, "payments"); ok {
		detail.Payments = v
		any = true
	}
	if v, ok := fieldDecimal(fields, "min_payment_due"); ok {
		detail.MinPaymentDue = v
		any = true
	}
	if v, ok := fieldDecimal(fields, "interest_paid"); ok {
		detail.InterestPaid = v
		any = true
	}
	if v, ok := fieldDecimal(fields, "interest_rate"); ok {
		detail.InterestRate = decimal.NewNullDecimal(v)
		any = true
	}
	if raw, ok := fields["payment_due_date"]; ok {
		for _, layout := range dueDateLayouts {
			if due, err := time.Parse(layout, raw); err == nil {
				detail.PaymentDueDate = &due
				any = true
				break
			}
		}
	}

	if !any {
		return nil
	}
	detail.PrincipalPaid = detail.Payments.Abs().Sub(detail.InterestPaid)
	return detail
}

func fieldDecimal(fields map[string]string, name string) (decimal.Decimal, bool) {
	raw, ok := fields[name]
	if !ok {
		return decimal.Zero, false
	}
	v, err := normalize.CleanAmount(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
