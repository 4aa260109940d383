package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/ingest"
	"ledgerlens/internal/logger"
	"ledgerlens/internal/models"
	"ledgerlens/internal/pagination"
)

// statementService handles statement lifecycle business logic.
type statementService struct {
	db       *gorm.DB
	ingestor Ingestor

	// async controls whether ingestion runs in a background goroutine
	// after create/reingest. Tests run synchronously.
	async bool
}

// NewStatementService creates a new StatementServicer. Ingestion triggered
// by create and re-ingest runs in the background.
func NewStatementService(db *gorm.DB, ingestor Ingestor) StatementServicer {
	return &statementService{db: db, ingestor: ingestor, async: true}
}

// NewSynchronousStatementService creates a StatementServicer whose ingestion
// runs inline, for tests and CLI use.
func NewSynchronousStatementService(db *gorm.DB, ingestor Ingestor) StatementServicer {
	return &statementService{db: db, ingestor: ingestor, async: false}
}

// CreateStatement registers an uploaded statement and kicks off ingestion.
func (s *statementService) CreateStatement(input CreateStatementInput) (*models.Statement, error) {
	if input.PDFBlobRef == nil && input.CSVBlobRef == nil {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "at least one of pdf_blob_ref and csv_blob_ref is required")
	}
	if input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "period_start and period_end are required")
	}
	if input.PeriodEnd.Before(input.PeriodStart) {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "period_end must not be before period_start")
	}

	var account models.Account
	err := s.db.First(&account, "id = ?", input.AccountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var existing int64
	err = s.db.Model(&models.Statement{}).
		Where("account_id = ? AND period_start = ? AND period_end = ?", input.AccountID, input.PeriodStart, input.PeriodEnd).
		Count(&existing).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing > 0 {
		return nil, apperrors.ErrDuplicateStatement
	}

	stmt := &models.Statement{
		InstitutionID: account.InstitutionID,
		AccountID:     account.ID,
		PeriodStart:   input.PeriodStart,
		PeriodEnd:     input.PeriodEnd,
		UploadedAt:    time.Now().UTC(),
		Status:        models.StatementStatusPending,
		PDFBlobRef:    input.PDFBlobRef,
		CSVBlobRef:    input.CSVBlobRef,
	}
	if err := s.db.Create(stmt).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.runIngestion(stmt.ID)
	return stmt, nil
}

// GetStatement returns a statement with its extracted details.
func (s *statementService) GetStatement(id string) (*models.Statement, error) {
	var stmt models.Statement
	err := s.db.Preload("StatementDetail").Preload("CreditCardDetail").Preload("DebtDetail").First(&stmt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrStatementNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &stmt, nil
}

// ListStatements returns a paginated statement list, newest period first.
func (s *statementService) ListStatements(page pagination.PageRequest, filter StatementFilter) (*pagination.PageResponse[models.Statement], error) {
	page.Defaults()

	base := s.db.Model(&models.Statement{})
	if filter.AccountID != nil {
		base = base.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var statements []models.Statement
	if err := base.Order("period_start DESC").Scopes(pagination.Paginate(page)).Find(&statements).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(statements, page.Page, page.Limit, totalItems)
	return &result, nil
}

// Reingest resets a completed or failed statement to pending and processes
// it again. Statements still in flight are rejected.
func (s *statementService) Reingest(ctx context.Context, id string) (*models.Statement, error) {
	stmt, err := s.GetStatement(id)
	if err != nil {
		return nil, err
	}

	next, err := ingest.Transition(stmt.Status, models.StatementStatusPending)
	if err != nil {
		if stmt.Status == models.StatementStatusProcessing {
			return nil, apperrors.ErrConcurrencyConflict
		}
		return nil, err
	}

	if err := s.db.Model(stmt).Update("status", next).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	stmt.Status = next

	s.runIngestion(stmt.ID)
	return stmt, nil
}

func (s *statementService) runIngestion(statementID string) {
	if !s.async {
		if err := s.ingestor.Ingest(context.Background(), statementID); err != nil {
			logger.Get().Warnw("ingestion failed", "statement_id", statementID, "error", err)
		}
		return
	}
	go func() {
		if err := s.ingestor.Ingest(context.Background(), statementID); err != nil {
			logger.Get().Warnw("background ingestion failed", "statement_id", statementID, "error", err)
		}
	}()
}
