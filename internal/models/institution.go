package models

// Institution represents a bank or card issuer whose statements we can parse.
// The slug selects the parser configuration for the institution's files.
type Institution struct {
	Base
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"not null;uniqueIndex" json:"slug"`

	// Relationships
	Accounts []Account `gorm:"foreignKey:InstitutionID" json:"accounts,omitempty"`
}
