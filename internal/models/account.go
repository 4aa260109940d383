package models

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
)

// Account represents one account at an institution. Statements and
// transactions hang off an account.
type Account struct {
	Base
	InstitutionID string      `gorm:"type:uuid;not null" json:"institution_id"`
	Name          string      `gorm:"not null" json:"name"`
	Type          AccountType `gorm:"not null" json:"type"`
	LastFour      string      `json:"last_four"`

	// Relationships
	Institution Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
	Statements  []Statement `gorm:"foreignKey:AccountID" json:"statements,omitempty"`
}
