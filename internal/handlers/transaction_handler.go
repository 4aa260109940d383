package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/models"
	"ledgerlens/internal/pagination"
	"ledgerlens/internal/services"
)

// TransactionHandler handles transaction queries and edits.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// ListTransactionsRequest represents query parameters for transaction lists.
type ListTransactionsRequest struct {
	pagination.PageRequest
	FromDate *string `form:"from_date" binding:"omitempty,statement_date"`
	ToDate   *string `form:"to_date" binding:"omitempty,statement_date"`
	Type     *string `form:"type" binding:"omitempty,transaction_type"`
	Category *string `form:"category"`
	Source   *string `form:"source" binding:"omitempty,oneof=pdf csv"`
}

func (r *ListTransactionsRequest) filter() services.TransactionFilter {
	filter := services.TransactionFilter{Category: r.Category}
	if r.FromDate != nil {
		from, _ := time.Parse("2006-01-02", *r.FromDate)
		filter.FromDate = &from
	}
	if r.ToDate != nil {
		to, _ := time.Parse("2006-01-02", *r.ToDate)
		filter.ToDate = &to
	}
	if r.Type != nil {
		txType := models.TransactionType(*r.Type)
		filter.Type = &txType
	}
	if r.Source != nil {
		source := models.TransactionSource(*r.Source)
		filter.Source = &source
	}
	return filter
}

// GetStatementTransactions lists the transactions of one statement.
// @Summary     List statement transactions
// @Description List transactions recovered from a statement, with optional filters
// @Tags        transactions
// @Produce     json
// @Param       id path string true "Statement ID"
// @Param       page query int false "Page number"
// @Param       limit query int false "Page size"
// @Param       from_date query string false "Earliest date (YYYY-MM-DD)"
// @Param       to_date query string false "Latest date (YYYY-MM-DD)"
// @Param       type query string false "Transaction type"
// @Param       category query string false "Category"
// @Param       source query string false "Source file format"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Statement not found"
// @Router      /statements/{id}/transactions [get]
func (h *TransactionHandler) GetStatementTransactions(c *gin.Context) {
	id, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	result, err := h.transactionService.GetStatementTransactions(id, req.PageRequest, req.filter())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAccountTransactions lists transactions across an account's statements.
// @Summary     List account transactions
// @Description List transactions across every statement of an account, with optional filters
// @Tags        transactions
// @Produce     json
// @Param       id path string true "Account ID"
// @Param       page query int false "Page number"
// @Param       limit query int false "Page size"
// @Param       from_date query string false "Earliest date (YYYY-MM-DD)"
// @Param       to_date query string false "Latest date (YYYY-MM-DD)"
// @Param       type query string false "Transaction type"
// @Param       category query string false "Category"
// @Param       source query string false "Source file format"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id}/transactions [get]
func (h *TransactionHandler) GetAccountTransactions(c *gin.Context) {
	id, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	result, err := h.transactionService.GetAccountTransactions(id, req.PageRequest, req.filter())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateTransactionRequest represents the user-editable transaction fields.
type UpdateTransactionRequest struct {
	Category          *string `json:"category" binding:"omitempty,min=1,max=100"`
	CustomDescription *string `json:"custom_description" binding:"omitempty,max=500"`
}

// UpdateTransaction applies user edits to a transaction.
// @Summary     Update a transaction
// @Description Set a custom description or pin a category override; the parsed fields stay immutable
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       id path string true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [patch]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	id, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	tx, err := h.transactionService.UpdateTransaction(id, services.TransactionUpdate{
		Category:          req.Category,
		CustomDescription: req.CustomDescription,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}
