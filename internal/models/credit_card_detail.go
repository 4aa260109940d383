package models

import "github.com/shopspring/decimal"

// CreditCardDetail holds credit-card specific fields extracted from a
// statement. One-to-one with Statement.
type CreditCardDetail struct {
	Base
	AccountID       string              `gorm:"type:uuid;not null" json:"account_id"`
	StatementID     string              `gorm:"type:uuid;not null;uniqueIndex" json:"statement_id"`
	CreditLimit     decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"credit_limit"`
	AvailableCredit decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"available_credit"`
	PointsEarned    int                 `gorm:"not null;default:0" json:"points_earned"`
	PointsRedeemed  int                 `gorm:"not null;default:0" json:"points_redeemed"`
	CashAdvances    decimal.Decimal     `gorm:"type:numeric(12,2)" json:"cash_advances"`
	Fees            decimal.Decimal     `gorm:"type:numeric(12,2)" json:"fees"`
	Purchases       decimal.Decimal     `gorm:"type:numeric(12,2)" json:"purchases"`
	Credits         decimal.Decimal     `gorm:"type:numeric(12,2)" json:"credits"`
}
