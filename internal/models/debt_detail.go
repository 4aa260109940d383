package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtDetail holds payment and interest fields extracted from a statement
// summary. One-to-one with Statement. PrincipalPaid is derived at ingestion
// as the payment magnitude minus interest paid.
type DebtDetail struct {
	Base
	AccountID      string              `gorm:"type:uuid;not null" json:"account_id"`
	StatementID    string              `gorm:"type:uuid;not null;uniqueIndex" json:"statement_id"`
	Payments       decimal.Decimal     `gorm:"type:numeric(12,2)" json:"payments"`
	MinPaymentDue  decimal.Decimal     `gorm:"type:numeric(12,2)" json:"min_payment_due"`
	PaymentDueDate *time.Time          `gorm:"type:date" json:"payment_due_date,omitempty"`
	InterestRate   decimal.NullDecimal `gorm:"type:numeric(7,4)" json:"interest_rate"`
	InterestPaid   decimal.Decimal     `gorm:"type:numeric(12,2)" json:"interest_paid"`
	PrincipalPaid  decimal.Decimal     `gorm:"type:numeric(12,2)" json:"principal_paid"`
}
