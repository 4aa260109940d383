package services

import (
	"regexp"

	"gorm.io/gorm"

	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/models"
)

// categoryService manages the categorization rule list.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// ListRules returns every rule in evaluation order.
func (s *categoryService) ListRules() ([]models.CategoryRule, error) {
	var rules []models.CategoryRule
	if err := s.db.Order("priority ASC, created_at ASC").Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rules, nil
}

// CreateRule validates and stores a new categorization rule. New rules only
// affect future ingestion runs; existing categorizations stay until a
// statement is re-ingested.
func (s *categoryService) CreateRule(priority int, pattern string, isRegex bool, category string) (*models.CategoryRule, error) {
	if pattern == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "pattern is required")
	}
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "category is required")
	}
	if isRegex {
		if _, err := regexp.Compile("(?i)" + pattern); err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrValidation, "pattern is not a valid regular expression")
		}
	}

	rule := &models.CategoryRule{
		Priority: priority,
		Pattern:  pattern,
		IsRegex:  isRegex,
		Category: category,
	}
	if err := s.db.Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}
