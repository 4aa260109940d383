package ingest

import (
	"fmt"

	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/models"
)

// transitions enumerates every legal statement status change. Completed and
// failed statements only move back to pending, which is how re-ingestion
// starts.
var transitions = map[models.StatementStatus][]models.StatementStatus{
	models.StatementStatusPending:    {models.StatementStatusProcessing},
	models.StatementStatusProcessing: {models.StatementStatusCompleted, models.StatementStatusFailed},
	models.StatementStatusCompleted:  {models.StatementStatusPending},
	models.StatementStatusFailed:     {models.StatementStatusPending},
}

// CanTransition reports whether a statement may move between the two states.
func CanTransition(from, to models.StatementStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates and returns the target status, or an error naming
// both states.
func Transition(from, to models.StatementStatus) (models.StatementStatus, error) {
	if !CanTransition(from, to) {
		return from, apperrors.WithMessage(apperrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition statement from %s to %s", from, to))
	}
	return to, nil
}
