package service

import (
	"errors"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
	"github.com/winnipeg-connect/backend/internal/repository"
)

// WSNotifier pushes realtime events to a connected user.
type WSNotifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// mapRepoError translates storage sentinels into the API error taxonomy.
// Unknown errors pass through untouched and surface as internal errors.
func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrJobNotFound):
		return apperror.ErrJobNotFound
	case errors.Is(err, repository.ErrQuoteNotFound):
		return apperror.ErrQuoteNotFound
	case errors.Is(err, repository.ErrPaymentNotFound):
		return apperror.ErrPaymentNotFound
	case errors.Is(err, repository.ErrConversationNotFound):
		return apperror.ErrConversationNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return apperror.ErrUserNotFound
	case errors.Is(err, repository.ErrCategoryNotFound):
		return apperror.New(apperror.ErrCodeNotFound, "category not found")
	case errors.Is(err, repository.ErrReviewNotFound):
		return apperror.New(apperror.ErrCodeNotFound, "review not found")
	case errors.Is(err, repository.ErrWithdrawalNotFound):
		return apperror.New(apperror.ErrCodeNotFound, "withdrawal not found")
	case errors.Is(err, repository.ErrMediaNotFound):
		return apperror.New(apperror.ErrCodeNotFound, "media file not found")
	case errors.Is(err, repository.ErrNotificationNotFound):
		return apperror.New(apperror.ErrCodeNotFound, "notification not found")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return apperror.New(apperror.ErrCodeConflict, "insufficient available balance")
	default:
		return err
	}
}
