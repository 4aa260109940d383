package services

import (
	"context"
	"testing"
	"time"

	"ledgerlens/internal/models"
	"ledgerlens/internal/pagination"
	"ledgerlens/internal/testutil"
)

// fakeIngestor records ingestion triggers without running the pipeline.
type fakeIngestor struct {
	calls []string
	err   error
}

func (f *fakeIngestor) Ingest(_ context.Context, statementID string) error {
	f.calls = append(f.calls, statementID)
	return f.err
}

func strPtr(s string) *string { return &s }

func TestCreateStatement(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	inst := testutil.CreateTestInstitution(t, db)
	account := testutil.CreateTestAccount(t, db, inst.ID)
	ingestor := &fakeIngestor{}
	svc := NewSynchronousStatementService(db, ingestor)

	stmt, err := svc.CreateStatement(CreateStatementInput{
		AccountID:   account.ID,
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		PDFBlobRef:  strPtr("uploads/jan.pdf"),
	})
	testutil.AssertNoError(t, err)

	if stmt.Status != models.StatementStatusPending {
		t.Errorf("status = %s", stmt.Status)
	}
	if stmt.InstitutionID != inst.ID {
		t.Errorf("institution should come from the account, got %s", stmt.InstitutionID)
	}
	if len(ingestor.calls) != 1 || ingestor.calls[0] != stmt.ID {
		t.Errorf("expected one ingestion trigger for %s, got %v", stmt.ID, ingestor.calls)
	}
}

func TestCreateStatementValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	inst := testutil.CreateTestInstitution(t, db)
	account := testutil.CreateTestAccount(t, db, inst.ID)
	svc := NewSynchronousStatementService(db, &fakeIngestor{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	// No files at all.
	_, err := svc.CreateStatement(CreateStatementInput{AccountID: account.ID, PeriodStart: start, PeriodEnd: end})
	testutil.AssertAppError(t, err, "VALIDATION_ERROR")

	// Period inverted.
	_, err = svc.CreateStatement(CreateStatementInput{
		AccountID: account.ID, PeriodStart: end, PeriodEnd: start, PDFBlobRef: strPtr("x.pdf"),
	})
	testutil.AssertAppError(t, err, "VALIDATION_ERROR")

	// Unknown account.
	_, err = svc.CreateStatement(CreateStatementInput{
		AccountID: "00000000-0000-0000-0000-000000000000", PeriodStart: start, PeriodEnd: end, PDFBlobRef: strPtr("x.pdf"),
	})
	testutil.AssertAppError(t, err, "NOT_FOUND")
}

func TestCreateStatementDuplicatePeriod(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	inst := testutil.CreateTestInstitution(t, db)
	account := testutil.CreateTestAccount(t, db, inst.ID)
	svc := NewSynchronousStatementService(db, &fakeIngestor{})

	input := CreateStatementInput{
		AccountID:   account.ID,
		PeriodStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		CSVBlobRef:  strPtr("uploads/mar.csv"),
	}
	_, err := svc.CreateStatement(input)
	testutil.AssertNoError(t, err)

	_, err = svc.CreateStatement(input)
	testutil.AssertAppError(t, err, "DUPLICATE_CONFLICT")
}

func TestGetStatementNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewSynchronousStatementService(db, &fakeIngestor{})

	_, err := svc.GetStatement("00000000-0000-0000-0000-000000000000")
	testutil.AssertAppError(t, err, "NOT_FOUND")
}

func TestListStatements(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	inst := testutil.CreateTestInstitution(t, db)
	account := testutil.CreateTestAccount(t, db, inst.ID)
	other := testutil.CreateTestAccount(t, db, inst.ID)
	for i := 0; i < 3; i++ {
		testutil.CreateTestStatement(t, db, inst.ID, account.ID)
	}
	testutil.CreateTestStatement(t, db, inst.ID, other.ID)
	svc := NewSynchronousStatementService(db, &fakeIngestor{})

	page := pagination.PageRequest{Page: 1, Limit: 2}
	result, err := svc.ListStatements(page, StatementFilter{AccountID: &account.ID})
	testutil.AssertNoError(t, err)

	if result.Pagination.Total != 3 {
		t.Errorf("total = %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("page size = %d", len(result.Data))
	}
	if !result.Pagination.HasNext || result.Pagination.HasPrev {
		t.Errorf("pagination flags = %+v", result.Pagination)
	}
	// Newest period first.
	if result.Data[0].PeriodStart.Before(result.Data[1].PeriodStart) {
		t.Error("expected descending period order")
	}
}

func TestReingest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	inst := testutil.CreateTestInstitution(t, db)
	account := testutil.CreateTestAccount(t, db, inst.ID)
	stmt := testutil.CreateTestStatement(t, db, inst.ID, account.ID)
	ingestor := &fakeIngestor{}
	svc := NewSynchronousStatementService(db, ingestor)

	testutil.AssertNoError(t, db.Model(stmt).Update("status", models.StatementStatusFailed).Error)

	updated, err := svc.Reingest(context.Background(), stmt.ID)
	testutil.AssertNoError(t, err)
	if updated.Status != models.StatementStatusPending {
		t.Errorf("status = %s", updated.Status)
	}
	if len(ingestor.calls) != 1 {
		t.Errorf("expected one ingestion trigger, got %v", ingestor.calls)
	}
}

func TestReingestProcessingConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	inst := testutil.CreateTestInstitution(t, db)
	account := testutil.CreateTestAccount(t, db, inst.ID)
	stmt := testutil.CreateTestStatement(t, db, inst.ID, account.ID)
	svc := NewSynchronousStatementService(db, &fakeIngestor{})

	testutil.AssertNoError(t, db.Model(stmt).Update("status", models.StatementStatusProcessing).Error)

	_, err := svc.Reingest(context.Background(), stmt.ID)
	testutil.AssertAppError(t, err, "CONCURRENCY_CONFLICT")
}
