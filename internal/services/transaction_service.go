package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/models"
	"ledgerlens/internal/pagination"
)

// transactionService handles transaction queries and user edits.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// GetStatementTransactions lists transactions recovered from one statement.
func (s *transactionService) GetStatementTransactions(statementID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	var stmt models.Statement
	err := s.db.Select("id").First(&stmt, "id = ?", statementID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrStatementNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	base := s.db.Model(&models.Transaction{}).Where("statement_id = ?", statementID)
	return s.list(base, page, filter)
}

// GetAccountTransactions lists transactions across all of an account's
// statements.
func (s *transactionService) GetAccountTransactions(accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	var account models.Account
	err := s.db.Select("id").First(&account, "id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	base := s.db.Model(&models.Transaction{}).Where("account_id = ?", accountID)
	return s.list(base, page, filter)
}

func (s *transactionService) list(base *gorm.DB, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var txns []models.Transaction
	if err := base.Order("date ASC, source_row ASC").Scopes(pagination.Paginate(page)).Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(txns, page.Page, page.Limit, totalItems)
	return &result, nil
}

func applyTransactionFilters(base *gorm.DB, filter TransactionFilter) *gorm.DB {
	if filter.FromDate != nil {
		base = base.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("date <= ?", *filter.ToDate)
	}
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.Category != nil {
		base = base.Where("category = ?", *filter.Category)
	}
	if filter.Source != nil {
		base = base.Where("source = ?", *filter.Source)
	}
	return base
}

// UpdateTransaction applies user edits. The parsed description, amount,
// date, and type are immutable; edits land on custom_description and the
// category override, which is keyed to the transaction's stable ID so it
// survives re-ingestion.
func (s *transactionService) UpdateTransaction(id string, update TransactionUpdate) (*models.Transaction, error) {
	if update.Category == nil && update.CustomDescription == nil {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "nothing to update")
	}
	if update.Category != nil && *update.Category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "category must not be empty")
	}

	var tx models.Transaction
	err := s.db.First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		updates := map[string]interface{}{}
		if update.CustomDescription != nil {
			tx.CustomDescription = update.CustomDescription
			updates["custom_description"] = *update.CustomDescription
		}
		if update.Category != nil {
			tx.Category = update.Category
			updates["category"] = *update.Category
			if err := upsertOverride(dbtx, tx.ID, *update.Category); err != nil {
				return err
			}
		}
		if err := dbtx.Model(&models.Transaction{}).Where("id = ?", tx.ID).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func upsertOverride(db *gorm.DB, transactionID, category string) error {
	var override models.CategoryOverride
	err := db.First(&override, "transaction_id = ?", transactionID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		override = models.CategoryOverride{TransactionID: transactionID, Category: category}
		if err := db.Create(&override).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	case err != nil:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	default:
		if err := db.Model(&override).Update("category", category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}
}
