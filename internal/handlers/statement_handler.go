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

// StatementHandler handles statement upload and lifecycle requests.
type StatementHandler struct {
	statementService services.StatementServicer
}

// NewStatementHandler creates a new StatementHandler.
func NewStatementHandler(statementService services.StatementServicer) *StatementHandler {
	return &StatementHandler{statementService: statementService}
}

// CreateStatementRequest represents the request payload for registering an
// uploaded statement. Dates use YYYY-MM-DD.
type CreateStatementRequest struct {
	AccountID   string  `json:"account_id" binding:"required,uuid"`
	PeriodStart string  `json:"period_start" binding:"required,statement_date"`
	PeriodEnd   string  `json:"period_end" binding:"required,statement_date"`
	PDFBlobRef  *string `json:"pdf_blob_ref"`
	CSVBlobRef  *string `json:"csv_blob_ref"`
}

// ErrorResponse represents a JSON error body.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateStatement registers an uploaded statement and starts ingestion.
// @Summary     Register a statement
// @Description Register uploaded statement files for an account and billing period; ingestion starts in the background
// @Tags        statements
// @Accept      json
// @Produce     json
// @Param       request body CreateStatementRequest true "Statement details"
// @Success     202 {object} models.Statement "Statement accepted for processing"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     409 {object} ErrorResponse "Statement already exists for this period"
// @Router      /statements [post]
func (h *StatementHandler) CreateStatement(c *gin.Context) {
	var req CreateStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	periodStart, _ := time.Parse("2006-01-02", req.PeriodStart)
	periodEnd, _ := time.Parse("2006-01-02", req.PeriodEnd)

	stmt, err := h.statementService.CreateStatement(services.CreateStatementInput{
		AccountID:   req.AccountID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		PDFBlobRef:  req.PDFBlobRef,
		CSVBlobRef:  req.CSVBlobRef,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"statement": stmt})
}

// GetStatement returns one statement with its extracted details.
// @Summary     Get a statement
// @Description Get a statement by ID, including summary fields and extracted details
// @Tags        statements
// @Produce     json
// @Param       id path string true "Statement ID"
// @Success     200 {object} models.Statement "Statement"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Statement not found"
// @Router      /statements/{id} [get]
func (h *StatementHandler) GetStatement(c *gin.Context) {
	id, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	stmt, err := h.statementService.GetStatement(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statement": stmt})
}

// ListStatementsRequest represents query parameters for listing statements.
type ListStatementsRequest struct {
	pagination.PageRequest
	AccountID *string `form:"account_id" binding:"omitempty,uuid"`
	Status    *string `form:"status" binding:"omitempty,oneof=pending processing completed failed"`
}

// ListStatements returns a paginated statement list.
// @Summary     List statements
// @Description List statements, optionally filtered by account and status
// @Tags        statements
// @Produce     json
// @Param       page query int false "Page number"
// @Param       limit query int false "Page size"
// @Param       account_id query string false "Filter by account"
// @Param       status query string false "Filter by status"
// @Success     200 {object} pagination.PageResponse[models.Statement] "Statements"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /statements [get]
func (h *StatementHandler) ListStatements(c *gin.Context) {
	var req ListStatementsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	filter := services.StatementFilter{AccountID: req.AccountID}
	if req.Status != nil {
		status := models.StatementStatus(*req.Status)
		filter.Status = &status
	}

	result, err := h.statementService.ListStatements(req.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ReingestStatement reprocesses a completed or failed statement.
// @Summary     Re-ingest a statement
// @Description Reset a terminal statement to pending and process its files again
// @Tags        statements
// @Produce     json
// @Param       id path string true "Statement ID"
// @Success     202 {object} models.Statement "Statement accepted for reprocessing"
// @Failure     400 {object} ErrorResponse "Invalid ID or state"
// @Failure     404 {object} ErrorResponse "Statement not found"
// @Failure     409 {object} ErrorResponse "Statement is already processing"
// @Router      /statements/{id}/reingest [post]
func (h *StatementHandler) ReingestStatement(c *gin.Context) {
	id, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	stmt, err := h.statementService.Reingest(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"statement": stmt})
}
