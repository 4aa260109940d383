package models

// UncategorizedCategory is the fallback bucket when no rule matches.
const UncategorizedCategory = "Uncategorized"

// CategoryRule is one entry in the ordered, user-editable rule list the
// categorizer evaluates. Rules are data, not code: lower Priority values are
// evaluated first and the first match wins. Pattern is a case-insensitive
// substring unless IsRegex is set.
type CategoryRule struct {
	Base
	Priority int    `gorm:"not null;index" json:"priority"`
	Pattern  string `gorm:"not null" json:"pattern"`
	IsRegex  bool   `gorm:"not null;default:false" json:"is_regex"`
	Category string `gorm:"not null" json:"category"`
}

// CategoryOverride pins a category to a single transaction. Overrides always
// win over rules and are keyed by the transaction's stable provenance ID, so
// they survive re-ingestion.
type CategoryOverride struct {
	Base
	TransactionID string `gorm:"type:uuid;not null;uniqueIndex" json:"transaction_id"`
	Category      string `gorm:"not null" json:"category"`
}
