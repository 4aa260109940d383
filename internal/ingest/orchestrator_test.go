package ingest

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"ledgerlens/internal/blobstore"
	"ledgerlens/internal/models"
	"ledgerlens/internal/parser"
	"ledgerlens/internal/testutil"
)

const citiCSV = `Date,Description,Debit,Credit
01/05/2024,COFFEE SHOP DOWNTOWN,42.10,
01/07/2024,GROCERY MART,120.00,
01/12/2024,ONLINE PAYMENT - THANK YOU,,231.00
`

func testRegistry(t *testing.T) *parser.Registry {
	t.Helper()
	cfg, err := parser.LoadConfig("")
	testutil.AssertNoError(t, err)
	reg, err := parser.BuildRegistry(cfg)
	testutil.AssertNoError(t, err)
	return reg
}

// citiInstitution returns the institution wired to the default parser
// registry. Shared across tests because the slug is unique.
func citiInstitution(t *testing.T, db *gorm.DB) *models.Institution {
	t.Helper()
	inst := &models.Institution{Name: "Citi", Slug: "citi_cc"}
	if err := db.Where(models.Institution{Slug: "citi_cc"}).FirstOrCreate(inst).Error; err != nil {
		t.Fatalf("failed to create institution: %v", err)
	}
	return inst
}

type harness struct {
	db    *gorm.DB
	store *blobstore.Memory
	orch  *Orchestrator
	stmt  *models.Statement
}

func setup(t *testing.T, cfg Config) *harness {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	inst := citiInstitution(t, db)
	account := testutil.CreateTestAccount(t, db, inst.ID)
	stmt := testutil.CreateTestStatement(t, db, inst.ID, account.ID)

	store := blobstore.NewMemory()
	csvRef := "uploads/statement.csv"
	store.Put(csvRef, []byte(citiCSV))
	if err := db.Model(stmt).Updates(map[string]interface{}{"csv_blob_ref": csvRef, "pdf_blob_ref": nil}).Error; err != nil {
		t.Fatalf("failed to attach csv blob: %v", err)
	}

	return &harness{
		db:    db,
		store: store,
		orch:  NewOrchestrator(db, testRegistry(t), store, cfg),
		stmt:  stmt,
	}
}

func reload(t *testing.T, db *gorm.DB, id string) *models.Statement {
	t.Helper()
	var stmt models.Statement
	if err := db.First(&stmt, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload statement: %v", err)
	}
	return &stmt
}

func statementTransactions(t *testing.T, db *gorm.DB, id string) []models.Transaction {
	t.Helper()
	var txns []models.Transaction
	if err := db.Where("statement_id = ?", id).Order("source_row ASC").Find(&txns).Error; err != nil {
		t.Fatalf("failed to load transactions: %v", err)
	}
	return txns
}

func TestIngestCompletes(t *testing.T) {
	h := setup(t, DefaultConfig())
	testutil.CreateTestRule(t, h.db, 10, "COFFEE", "Dining")

	err := h.orch.Ingest(context.Background(), h.stmt.ID)
	testutil.AssertNoError(t, err)

	stmt := reload(t, h.db, h.stmt.ID)
	if stmt.Status != models.StatementStatusCompleted {
		t.Fatalf("status = %s", stmt.Status)
	}
	if stmt.ProcessedAt == nil {
		t.Error("processed_at should be set")
	}
	if stmt.TransactionCount != 3 {
		t.Errorf("transaction count = %d", stmt.TransactionCount)
	}
	// The payment row is sign-normalized to negative, so it lands in
	// debits along with the purchases.
	if stmt.TotalDebits.String() != "393.1" {
		t.Errorf("total debits = %s", stmt.TotalDebits)
	}
	if !stmt.TotalCredits.IsZero() {
		t.Errorf("total credits = %s", stmt.TotalCredits)
	}
	if stmt.NetAmount.String() != "-393.1" {
		t.Errorf("net amount = %s", stmt.NetAmount)
	}

	txns := statementTransactions(t, h.db, h.stmt.ID)
	if len(txns) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txns))
	}
	if txns[0].Category == nil || *txns[0].Category != "Dining" {
		t.Errorf("coffee transaction category = %v", txns[0].Category)
	}
	if txns[1].Category == nil || *txns[1].Category != models.UncategorizedCategory {
		t.Errorf("grocery transaction category = %v", txns[1].Category)
	}
	if txns[2].Type != models.TransactionTypePayment {
		t.Errorf("payment transaction type = %s", txns[2].Type)
	}
	if !txns[2].Amount.IsNegative() {
		t.Errorf("payment amount should be negative, got %s", txns[2].Amount)
	}
}

func TestIngestIdempotent(t *testing.T) {
	h := setup(t, DefaultConfig())

	testutil.AssertNoError(t, h.orch.Ingest(context.Background(), h.stmt.ID))
	first := statementTransactions(t, h.db, h.stmt.ID)

	// Re-ingestion starts by resetting the statement to pending.
	testutil.AssertNoError(t, h.db.Model(&models.Statement{}).Where("id = ?", h.stmt.ID).
		Update("status", models.StatementStatusPending).Error)
	testutil.AssertNoError(t, h.orch.Ingest(context.Background(), h.stmt.ID))
	second := statementTransactions(t, h.db, h.stmt.ID)

	if len(first) != len(second) {
		t.Fatalf("row count changed: %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("row %d ID changed: %s then %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestIngestOverrideSurvivesReingestion(t *testing.T) {
	h := setup(t, DefaultConfig())
	testutil.CreateTestRule(t, h.db, 10, "COFFEE", "Dining")

	testutil.AssertNoError(t, h.orch.Ingest(context.Background(), h.stmt.ID))
	txns := statementTransactions(t, h.db, h.stmt.ID)

	override := &models.CategoryOverride{TransactionID: txns[0].ID, Category: "Business"}
	testutil.AssertNoError(t, h.db.Create(override).Error)

	testutil.AssertNoError(t, h.db.Model(&models.Statement{}).Where("id = ?", h.stmt.ID).
		Update("status", models.StatementStatusPending).Error)
	testutil.AssertNoError(t, h.orch.Ingest(context.Background(), h.stmt.ID))

	txns = statementTransactions(t, h.db, h.stmt.ID)
	if txns[0].Category == nil || *txns[0].Category != "Business" {
		t.Errorf("override should survive re-ingestion, got %v", txns[0].Category)
	}
}

func TestIngestSurvivesUnreadablePDF(t *testing.T) {
	h := setup(t, DefaultConfig())
	pdfRef := "uploads/statement.pdf"
	h.store.Put(pdfRef, []byte("not a pdf"))
	testutil.AssertNoError(t, h.db.Model(h.stmt).Update("pdf_blob_ref", pdfRef).Error)

	// The CSV recovered every row, so the unreadable PDF is logged, not
	// fatal.
	err := h.orch.Ingest(context.Background(), h.stmt.ID)
	testutil.AssertNoError(t, err)

	stmt := reload(t, h.db, h.stmt.ID)
	if stmt.Status != models.StatementStatusCompleted {
		t.Fatalf("status = %s", stmt.Status)
	}
	if stmt.TransactionCount != 3 {
		t.Errorf("transaction count = %d", stmt.TransactionCount)
	}

	files, ok := stmt.ProcessingMetadata["file_errors"].([]interface{})
	if !ok || len(files) != 1 {
		t.Fatalf("file_errors metadata = %v", stmt.ProcessingMetadata["file_errors"])
	}
	entry, ok := files[0].(map[string]interface{})
	if !ok || entry["file"] != "pdf" {
		t.Errorf("file error entry = %v", files[0])
	}
}

func TestIngestAllSourcesUnreadableFails(t *testing.T) {
	h := setup(t, DefaultConfig())
	h.store.Put("uploads/statement.csv", []byte("Amount,Notes\n1,2\n"))

	err := h.orch.Ingest(context.Background(), h.stmt.ID)
	testutil.AssertAppError(t, err, "PARSE_ERROR")

	if stmt := reload(t, h.db, h.stmt.ID); stmt.Status != models.StatementStatusFailed {
		t.Errorf("status = %s", stmt.Status)
	}
}

func TestIngestEmptyFileFails(t *testing.T) {
	h := setup(t, DefaultConfig())
	h.store.Put("uploads/statement.csv", []byte("Date,Description,Debit,Credit\n"))

	err := h.orch.Ingest(context.Background(), h.stmt.ID)
	testutil.AssertAppError(t, err, "PARSE_ERROR")

	stmt := reload(t, h.db, h.stmt.ID)
	if stmt.Status != models.StatementStatusFailed {
		t.Errorf("status = %s", stmt.Status)
	}
	if stmt.ProcessingMetadata["error_code"] != "PARSE_ERROR" {
		t.Errorf("metadata = %v", stmt.ProcessingMetadata)
	}
}

func TestIngestConcurrencyConflict(t *testing.T) {
	h := setup(t, DefaultConfig())

	if !h.orch.claim(h.stmt.ID) {
		t.Fatal("first claim should succeed")
	}
	defer h.orch.release(h.stmt.ID)

	err := h.orch.Ingest(context.Background(), h.stmt.ID)
	testutil.AssertAppError(t, err, "CONCURRENCY_CONFLICT")
}

func TestIngestRetriesTransientStorageFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryBackoff = time.Millisecond
	h := setup(t, cfg)
	h.store.FailuresBefore = 2

	err := h.orch.Ingest(context.Background(), h.stmt.ID)
	testutil.AssertNoError(t, err)

	if stmt := reload(t, h.db, h.stmt.ID); stmt.Status != models.StatementStatusCompleted {
		t.Errorf("status = %s", stmt.Status)
	}
}

func TestIngestExhaustsRetries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryBackoff = time.Millisecond
	h := setup(t, cfg)
	h.store.FailuresBefore = 10

	err := h.orch.Ingest(context.Background(), h.stmt.ID)
	testutil.AssertAppError(t, err, "STORAGE_ERROR")

	if stmt := reload(t, h.db, h.stmt.ID); stmt.Status != models.StatementStatusFailed {
		t.Errorf("status = %s", stmt.Status)
	}
}

func TestIngestRejectsNonPendingStatement(t *testing.T) {
	h := setup(t, DefaultConfig())
	testutil.AssertNoError(t, h.orch.Ingest(context.Background(), h.stmt.ID))

	// Already completed; a direct second run is an invalid transition.
	err := h.orch.Ingest(context.Background(), h.stmt.ID)
	testutil.AssertAppError(t, err, "VALIDATION_ERROR")
}

func TestBuildDebtDetail(t *testing.T) {
	stmt := &models.Statement{
		Base:      models.Base{ID: "stmt-1"},
		AccountID: "acct-1",
	}

	t.Run("derives principal from payments and interest", func(t *testing.T) {
		detail := buildDebtDetail(stmt, map[string]string{
			"payments":         "-$500.00",
			"min_payment_due":  "$35.00",
			"payment_due_date": "02/25/24",
			"interest_rate":    "0.2199",
			"interest_paid":    "$10.00",
		})
		if detail == nil {
			t.Fatal("expected a debt detail")
		}
		if detail.Payments.String() != "-500" {
			t.Errorf("payments = %s", detail.Payments)
		}
		if detail.MinPaymentDue.String() != "35" {
			t.Errorf("min payment due = %s", detail.MinPaymentDue)
		}
		if detail.PrincipalPaid.String() != "490" {
			t.Errorf("principal paid = %s", detail.PrincipalPaid)
		}
		if !detail.InterestRate.Valid || detail.InterestRate.Decimal.String() != "0.2199" {
			t.Errorf("interest rate = %v", detail.InterestRate)
		}
		if detail.PaymentDueDate == nil || detail.PaymentDueDate.Format("2006-01-02") != "2024-02-25" {
			t.Errorf("payment due date = %v", detail.PaymentDueDate)
		}
	})

	t.Run("four digit due date year", func(t *testing.T) {
		detail := buildDebtDetail(stmt, map[string]string{"payment_due_date": "02/25/2024"})
		if detail == nil || detail.PaymentDueDate == nil || detail.PaymentDueDate.Year() != 2024 {
			t.Fatalf("detail = %+v", detail)
		}
	})

	t.Run("no debt fields yields nothing", func(t *testing.T) {
		if detail := buildDebtDetail(stmt, map[string]string{"new_balance": "$980.20"}); detail != nil {
			t.Errorf("expected nil, got %+v", detail)
		}
	})
}

func TestIngestStatementNotFound(t *testing.T) {
	h := setup(t, DefaultConfig())

	err := h.orch.Ingest(context.Background(), "00000000-0000-0000-0000-000000000000")
	testutil.AssertAppError(t, err, "NOT_FOUND")
}
