package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/models"
	"ledgerlens/internal/pagination"
	"ledgerlens/internal/services"
)

// --- mock transaction service ---

type mockTransactionService struct {
	getStatementTransactionsFn func(statementID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getAccountTransactionsFn   func(accountID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	updateTransactionFn        func(id string, update services.TransactionUpdate) (*models.Transaction, error)
}

func (m *mockTransactionService) GetStatementTransactions(statementID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getStatementTransactionsFn != nil {
		return m.getStatementTransactionsFn(statementID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetAccountTransactions(accountID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getAccountTransactionsFn != nil {
		return m.getAccountTransactionsFn(accountID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) UpdateTransaction(id string, update services.TransactionUpdate) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(id, update)
	}
	return &models.Transaction{}, nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	r.GET("/statements/:id/transactions", handler.GetStatementTransactions)
	r.GET("/accounts/:id/transactions", handler.GetAccountTransactions)
	r.PATCH("/transactions/:id", handler.UpdateTransaction)
	return r
}

func TestTransactionHandler_GetStatementTransactions(t *testing.T) {
	t.Run("returns 200 with transactions", func(t *testing.T) {
		svc := &mockTransactionService{
			getStatementTransactionsFn: func(statementID string, page pagination.PageRequest, _ services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				resp := pagination.NewPageResponse([]models.Transaction{
					{Base: models.Base{ID: testUUID}, Amount: decimal.RequireFromString("-42.10"), Description: "COFFEE SHOP"},
				}, page.Page, page.Limit, 1)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "GET", "/statements/"+testUUID+"/transactions", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if len(data) != 1 {
			t.Errorf("expected 1 transaction, got %d", len(data))
		}
	})

	t.Run("passes date and type filters through", func(t *testing.T) {
		var captured services.TransactionFilter
		svc := &mockTransactionService{
			getStatementTransactionsFn: func(_ string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				captured = filter
				resp := pagination.NewPageResponse([]models.Transaction{}, page.Page, page.Limit, 0)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "GET", "/statements/"+testUUID+"/transactions?from_date=2024-01-01&to_date=2024-01-31&type=debit&source=csv", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.FromDate == nil || captured.ToDate == nil {
			t.Error("expected date filters to be set")
		}
		if captured.Type == nil || *captured.Type != models.TransactionTypeDebit {
			t.Errorf("type filter = %v", captured.Type)
		}
		if captured.Source == nil || *captured.Source != models.TransactionSourceCSV {
			t.Errorf("source filter = %v", captured.Source)
		}
	})

	t.Run("returns 400 on bad type", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}))

		rec := doRequest(r, "GET", "/statements/"+testUUID+"/transactions?type=withdrawal", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 on unknown statement", func(t *testing.T) {
		svc := &mockTransactionService{
			getStatementTransactionsFn: func(string, pagination.PageRequest, services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				return nil, apperrors.ErrStatementNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "GET", "/statements/"+testUUID+"/transactions", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("returns 200 on category override", func(t *testing.T) {
		var captured services.TransactionUpdate
		svc := &mockTransactionService{
			updateTransactionFn: func(id string, update services.TransactionUpdate) (*models.Transaction, error) {
				captured = update
				category := *update.Category
				return &models.Transaction{Base: models.Base{ID: id}, Category: &category}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "PATCH", "/transactions/"+testUUID, `{"category":"Business"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.Category == nil || *captured.Category != "Business" {
			t.Errorf("category = %v", captured.Category)
		}
	})

	t.Run("returns 200 on description-only edit", func(t *testing.T) {
		var captured services.TransactionUpdate
		svc := &mockTransactionService{
			updateTransactionFn: func(id string, update services.TransactionUpdate) (*models.Transaction, error) {
				captured = update
				return &models.Transaction{Base: models.Base{ID: id}, CustomDescription: update.CustomDescription}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "PATCH", "/transactions/"+testUUID, `{"custom_description":"renamed"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.Category != nil {
			t.Errorf("category should stay unset, got %v", *captured.Category)
		}
		if captured.CustomDescription == nil || *captured.CustomDescription != "renamed" {
			t.Errorf("custom description = %v", captured.CustomDescription)
		}
	})

	t.Run("returns 400 on empty category", func(t *testing.T) {
		svc := &mockTransactionService{
			updateTransactionFn: func(string, services.TransactionUpdate) (*models.Transaction, error) {
				return nil, apperrors.WithMessage(apperrors.ErrValidation, "category must not be empty")
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "PATCH", "/transactions/"+testUUID, `{"category":""}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_ERROR")
	})

	t.Run("returns 404 on unknown transaction", func(t *testing.T) {
		svc := &mockTransactionService{
			updateTransactionFn: func(string, services.TransactionUpdate) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "PATCH", "/transactions/"+testUUID, `{"custom_description":"renamed"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
