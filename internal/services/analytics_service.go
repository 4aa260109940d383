package services

import (
	"time"

	"gorm.io/gorm"

	"ledgerlens/internal/analytics"
	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/models"
)

// analyticsService answers spending aggregation queries.
type analyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService creates a new AnalyticsServicer.
func NewAnalyticsService(db *gorm.DB) AnalyticsServicer {
	return &analyticsService{db: db}
}

// MonthlySpending aggregates one calendar month, or the whole year when
// month is zero. Only transactions from completed statements participate;
// statements still processing or failed contribute nothing.
func (s *analyticsService) MonthlySpending(year int, month time.Month, accountID *string) (*analytics.SpendingReport, error) {
	if year < 1900 || year > 3000 {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "year out of range")
	}
	if month < 0 || month > 12 {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "month out of range")
	}

	period := analytics.YearPeriod(year)
	if month != 0 {
		period = analytics.MonthPeriod(year, month)
	}

	query := s.db.Model(&models.Transaction{}).
		Joins("JOIN statements ON statements.id = transactions.statement_id").
		Where("statements.status = ?", models.StatementStatusCompleted).
		Where("transactions.date >= ? AND transactions.date < ?", period.Start, period.End)
	if accountID != nil {
		query = query.Where("transactions.account_id = ?", *accountID)
	}

	var txns []*models.Transaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	report := analytics.Spending(txns, period)
	return &report, nil
}
