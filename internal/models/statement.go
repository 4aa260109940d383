package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementStatus represents the ingestion state of a statement.
type StatementStatus string

const (
	StatementStatusPending    StatementStatus = "pending"
	StatementStatusProcessing StatementStatus = "processing"
	StatementStatusCompleted  StatementStatus = "completed"
	StatementStatusFailed     StatementStatus = "failed"
)

// Statement identifies one billing period for one account. It is created on
// upload acceptance with status pending and mutated only by the ingestion
// orchestrator from then on.
type Statement struct {
	Base
	InstitutionID string          `gorm:"type:uuid;not null" json:"institution_id"`
	AccountID     string          `gorm:"type:uuid;not null;uniqueIndex:idx_statements_account_period" json:"account_id"`
	PeriodStart   time.Time       `gorm:"type:date;not null;uniqueIndex:idx_statements_account_period" json:"period_start"`
	PeriodEnd     time.Time       `gorm:"type:date;not null;uniqueIndex:idx_statements_account_period" json:"period_end"`
	UploadedAt    time.Time       `gorm:"not null" json:"uploaded_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	Status        StatementStatus `gorm:"not null;default:pending;index" json:"status"`

	// References into blob storage; at least one of the two must be set.
	PDFBlobRef *string `json:"pdf_blob_ref,omitempty"`
	CSVBlobRef *string `json:"csv_blob_ref,omitempty"`

	// Cached summary, written when ingestion completes.
	TransactionCount int             `json:"transaction_count"`
	TotalCredits     decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_credits"`
	TotalDebits      decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_debits"`
	NetAmount        decimal.Decimal `gorm:"type:numeric(12,2)" json:"net_amount"`

	// Row-level error log, dedup warnings, and failure detail.
	ProcessingMetadata JSONMap `gorm:"type:jsonb" json:"processing_metadata"`

	// Relationships
	Account          Account           `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Transactions     []Transaction     `gorm:"foreignKey:StatementID" json:"transactions,omitempty"`
	StatementDetail  *StatementDetail  `gorm:"foreignKey:StatementID" json:"statement_detail,omitempty"`
	CreditCardDetail *CreditCardDetail `gorm:"foreignKey:StatementID" json:"credit_card_detail,omitempty"`
	DebtDetail       *DebtDetail       `gorm:"foreignKey:StatementID" json:"debt_detail,omitempty"`
}

// HasFile reports whether the statement references at least one raw file.
func (s *Statement) HasFile() bool {
	return s.PDFBlobRef != nil || s.CSVBlobRef != nil
}

// Terminal reports whether the status accepts no further automatic transitions.
func (st StatementStatus) Terminal() bool {
	return st == StatementStatusCompleted || st == StatementStatusFailed
}
