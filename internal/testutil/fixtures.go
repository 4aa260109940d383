package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"ledgerlens/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestInstitution creates an institution with a unique slug.
func CreateTestInstitution(t *testing.T, db *gorm.DB) *models.Institution {
	t.Helper()

	n := nextID()
	inst := &models.Institution{
		Name: fmt.Sprintf("Test Bank %d", n),
		Slug: fmt.Sprintf("test_bank_%d", n),
	}
	if err := db.Create(inst).Error; err != nil {
		t.Fatalf("failed to create test institution: %v", err)
	}
	return inst
}

// CreateTestAccount creates a credit card account under the institution.
func CreateTestAccount(t *testing.T, db *gorm.DB, institutionID string) *models.Account {
	t.Helper()

	account := &models.Account{
		InstitutionID: institutionID,
		Name:          fmt.Sprintf("Card %d", nextID()),
		Type:          models.AccountTypeCreditCard,
		LastFour:      "4242",
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestStatement creates a pending statement with a unique billing
// period and a PDF blob reference.
func CreateTestStatement(t *testing.T, db *gorm.DB, institutionID, accountID string) *models.Statement {
	t.Helper()

	// Each fixture gets its own month so the per-account period uniqueness
	// constraint never trips across tests.
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, int(nextID()), 0)
	return CreateTestStatementForPeriod(t, db, institutionID, accountID, start, start.AddDate(0, 1, -1))
}

// CreateTestStatementForPeriod creates a pending statement covering the
// given period.
func CreateTestStatementForPeriod(t *testing.T, db *gorm.DB, institutionID, accountID string, periodStart, periodEnd time.Time) *models.Statement {
	t.Helper()

	pdfRef := fmt.Sprintf("statements/%d.pdf", nextID())
	stmt := &models.Statement{
		InstitutionID: institutionID,
		AccountID:     accountID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		UploadedAt:    time.Now().UTC(),
		Status:        models.StatementStatusPending,
		PDFBlobRef:    &pdfRef,
	}
	if err := db.Create(stmt).Error; err != nil {
		t.Fatalf("failed to create test statement: %v", err)
	}
	return stmt
}

// CreateTestTransaction creates a transaction on the statement with the
// given amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, statementID, accountID string, amount decimal.Decimal) *models.Transaction {
	t.Helper()

	txType := models.TransactionTypeDebit
	if amount.IsPositive() {
		txType = models.TransactionTypeCredit
	}
	tx := &models.Transaction{
		StatementID: statementID,
		AccountID:   accountID,
		Date:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Amount:      amount,
		Description: fmt.Sprintf("TEST MERCHANT %d", nextID()),
		Type:        txType,
		Source:      models.TransactionSourceCSV,
		SourceRow:   int(nextID()),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestRule creates a substring categorization rule.
func CreateTestRule(t *testing.T, db *gorm.DB, priority int, pattern, category string) *models.CategoryRule {
	t.Helper()

	rule := &models.CategoryRule{
		Priority: priority,
		Pattern:  pattern,
		Category: category,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test rule: %v", err)
	}
	return rule
}
