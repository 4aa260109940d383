package services

import (
	"context"
	"time"

	"ledgerlens/internal/analytics"
	"ledgerlens/internal/models"
	"ledgerlens/internal/pagination"
)

// Ingestor triggers statement processing. Satisfied by ingest.Orchestrator.
type Ingestor interface {
	Ingest(ctx context.Context, statementID string) error
}

// CreateStatementInput carries everything needed to register an uploaded
// statement.
type CreateStatementInput struct {
	AccountID   string
	PeriodStart time.Time
	PeriodEnd   time.Time
	PDFBlobRef  *string
	CSVBlobRef  *string
}

// StatementFilter holds optional filter parameters for listing statements.
type StatementFilter struct {
	AccountID *string
	Status    *models.StatementStatus
}

// StatementServicer defines the contract for statement lifecycle logic.
type StatementServicer interface {
	CreateStatement(input CreateStatementInput) (*models.Statement, error)
	GetStatement(id string) (*models.Statement, error)
	ListStatements(page pagination.PageRequest, filter StatementFilter) (*pagination.PageResponse[models.Statement], error)
	Reingest(ctx context.Context, id string) (*models.Statement, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Type     *models.TransactionType
	Category *string
	Source   *models.TransactionSource
}

// TransactionUpdate carries the user-editable transaction fields. Nil means
// leave unchanged; setting Category records an override that survives
// re-ingestion.
type TransactionUpdate struct {
	Category          *string
	CustomDescription *string
}

// TransactionServicer defines the contract for transaction queries and edits.
type TransactionServicer interface {
	GetStatementTransactions(statementID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetAccountTransactions(accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(id string, update TransactionUpdate) (*models.Transaction, error)
}

// CategoryServicer defines the contract for categorization rule management.
type CategoryServicer interface {
	ListRules() ([]models.CategoryRule, error)
	CreateRule(priority int, pattern string, isRegex bool, category string) (*models.CategoryRule, error)
}

// AnalyticsServicer defines the contract for spending aggregation queries.
type AnalyticsServicer interface {
	MonthlySpending(year int, month time.Month, accountID *string) (*analytics.SpendingReport, error)
}
