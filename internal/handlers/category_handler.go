package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/services"
)

// CategoryHandler handles categorization rule management.
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// ListRules returns the full rule list in evaluation order.
// @Summary     List categorization rules
// @Description List every categorization rule, ordered by evaluation priority
// @Tags        categories
// @Produce     json
// @Success     200 {array} models.CategoryRule "Rules"
// @Router      /categories/rules [get]
func (h *CategoryHandler) ListRules(c *gin.Context) {
	rules, err := h.categoryService.ListRules()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// CreateRuleRequest represents the request payload for creating a rule.
type CreateRuleRequest struct {
	Priority int    `json:"priority" binding:"min=0"`
	Pattern  string `json:"pattern" binding:"required,max=200"`
	IsRegex  bool   `json:"is_regex"`
	Category string `json:"category" binding:"required,max=100"`
}

// CreateRule adds a categorization rule.
// @Summary     Create a categorization rule
// @Description Add a rule; it applies to statements ingested from now on
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       request body CreateRuleRequest true "Rule details"
// @Success     201 {object} models.CategoryRule "Rule created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /categories/rules [post]
func (h *CategoryHandler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	rule, err := h.categoryService.CreateRule(req.Priority, req.Pattern, req.IsRegex, req.Category)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}
