package categorize

import (
	"testing"

	"ledgerlens/internal/models"
	"ledgerlens/internal/testutil"
)

func testRules() []models.CategoryRule {
	return []models.CategoryRule{
		{Priority: 10, Pattern: "COFFEE", Category: "Dining"},
		{Priority: 20, Pattern: `GROCER(Y|IES)`, IsRegex: true, Category: "Groceries"},
		{Priority: 30, Pattern: "SHOP", Category: "Shopping"},
	}
}

func tx(id, description string) *models.Transaction {
	t := &models.Transaction{Description: description}
	t.ID = id
	return t
}

func TestCategorizeFirstMatchWins(t *testing.T) {
	engine, err := NewEngine(testRules(), nil)
	testutil.AssertNoError(t, err)

	// "COFFEE SHOP" matches both the Dining and Shopping rules; the lower
	// priority rule wins.
	if got := engine.Categorize(tx("a", "COFFEE SHOP DOWNTOWN")); got != "Dining" {
		t.Errorf("got %q, want Dining", got)
	}
	if got := engine.Categorize(tx("b", "THE GIFT SHOP")); got != "Shopping" {
		t.Errorf("got %q, want Shopping", got)
	}
}

func TestCategorizeCaseInsensitive(t *testing.T) {
	engine, err := NewEngine(testRules(), nil)
	testutil.AssertNoError(t, err)

	if got := engine.Categorize(tx("a", "corner coffee stand")); got != "Dining" {
		t.Errorf("got %q, want Dining", got)
	}
	if got := engine.Categorize(tx("b", "neighborhood grocery")); got != "Groceries" {
		t.Errorf("regex rules should be case-insensitive, got %q", got)
	}
}

func TestCategorizeNoMatch(t *testing.T) {
	engine, err := NewEngine(testRules(), nil)
	testutil.AssertNoError(t, err)

	if got := engine.Categorize(tx("a", "PARKING GARAGE")); got != models.UncategorizedCategory {
		t.Errorf("got %q, want %q", got, models.UncategorizedCategory)
	}
}

func TestCategorizeOverrideWins(t *testing.T) {
	overrides := []models.CategoryOverride{{TransactionID: "a", Category: "Business"}}
	engine, err := NewEngine(testRules(), overrides)
	testutil.AssertNoError(t, err)

	if got := engine.Categorize(tx("a", "COFFEE SHOP")); got != "Business" {
		t.Errorf("override should beat rules, got %q", got)
	}
	if got := engine.Categorize(tx("other", "COFFEE SHOP")); got != "Dining" {
		t.Errorf("override must not leak to other transactions, got %q", got)
	}
}

func TestCategorizeUsesCustomDescription(t *testing.T) {
	engine, err := NewEngine(testRules(), nil)
	testutil.AssertNoError(t, err)

	custom := "WEEKLY GROCERIES"
	renamed := tx("a", "SQ *MYSTERY VENDOR 0042")
	renamed.CustomDescription = &custom

	if got := engine.Categorize(renamed); got != "Groceries" {
		t.Errorf("expected match on custom description, got %q", got)
	}
}

func TestCategorizeIdempotent(t *testing.T) {
	engine, err := NewEngine(testRules(), nil)
	testutil.AssertNoError(t, err)

	transaction := tx("a", "COFFEE SHOP")
	first := engine.Categorize(transaction)
	second := engine.Categorize(transaction)
	if first != second {
		t.Errorf("categorization must be stable, got %q then %q", first, second)
	}
}

func TestApply(t *testing.T) {
	engine, err := NewEngine(testRules(), nil)
	testutil.AssertNoError(t, err)

	txns := []*models.Transaction{tx("a", "COFFEE SHOP"), tx("b", "PARKING GARAGE")}
	engine.Apply(txns)

	if txns[0].Category == nil || *txns[0].Category != "Dining" {
		t.Errorf("expected Dining, got %v", txns[0].Category)
	}
	if txns[1].Category == nil || *txns[1].Category != models.UncategorizedCategory {
		t.Errorf("expected Uncategorized, got %v", txns[1].Category)
	}
}

func TestNewEngineRejectsBadRegex(t *testing.T) {
	rules := []models.CategoryRule{{Pattern: "([", IsRegex: true, Category: "Broken"}}
	_, err := NewEngine(rules, nil)
	testutil.AssertAppError(t, err, "VALIDATION_ERROR")
}
