package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeDebit   TransactionType = "debit"
	TransactionTypeCredit  TransactionType = "credit"
	TransactionTypePayment TransactionType = "payment"
	TransactionTypeRefund  TransactionType = "refund"
)

// TransactionSource records which file a transaction was recovered from.
type TransactionSource string

const (
	TransactionSourcePDF TransactionSource = "pdf"
	TransactionSourceCSV TransactionSource = "csv"
)

// Transaction is one ledger entry recovered from a statement. Amount sign is
// normalized at ingestion: debit and payment amounts are negative, credit and
// refund amounts are positive. Description is the immutable source text;
// user edits go on CustomDescription.
type Transaction struct {
	Base
	StatementID string          `gorm:"type:uuid;not null;index" json:"statement_id"`
	AccountID   string          `gorm:"type:uuid;not null;index" json:"account_id"`
	Date        time.Time       `gorm:"type:date;not null;index" json:"date"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Description string          `gorm:"not null" json:"description"`
	Type        TransactionType `gorm:"not null" json:"type"`

	CustomDescription *string `json:"custom_description,omitempty"`
	Category          *string `json:"category,omitempty"`

	// Provenance within the source file.
	Source    TransactionSource `gorm:"not null" json:"source"`
	SourceRow int               `json:"source_row"`

	// Relationships
	Statement Statement `gorm:"foreignKey:StatementID" json:"statement,omitempty"`
}

// EffectiveDescription returns the user's custom description when set,
// otherwise the source text.
func (t *Transaction) EffectiveDescription() string {
	if t.CustomDescription != nil && *t.CustomDescription != "" {
		return *t.CustomDescription
	}
	return t.Description
}
