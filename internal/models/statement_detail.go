package models

import "github.com/shopspring/decimal"

// StatementDetail holds period balances extracted from the statement summary
// block. One-to-one with Statement; immutable after ingestion completes
// except by re-ingestion.
type StatementDetail struct {
	Base
	StatementID     string          `gorm:"type:uuid;not null;uniqueIndex" json:"statement_id"`
	PreviousBalance decimal.Decimal `gorm:"type:numeric(12,2)" json:"previous_balance"`
	NewBalance      decimal.Decimal `gorm:"type:numeric(12,2)" json:"new_balance"`
}
