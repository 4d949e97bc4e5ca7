package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Repository-level sentinels. Services translate these into apperror values
// for the HTTP layer.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrJobNotFound          = errors.New("job not found")
	ErrQuoteNotFound        = errors.New("quote not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrReviewNotFound       = errors.New("review not found")
	ErrWithdrawalNotFound   = errors.New("withdrawal not found")
	ErrMediaNotFound        = errors.New("media file not found")

	// ErrDuplicate surfaces a unique-constraint violation; callers map it to
	// the specific conflict (AlreadyQuoted, PaymentAlreadyExists, ...).
	ErrDuplicate = errors.New("duplicate entity")

	// ErrStaleState means a guarded UPDATE matched zero rows: the entity
	// moved underneath the caller and the operation was not applied.
	ErrStaleState = errors.New("entity changed concurrently")

	ErrInsufficientFunds = errors.New("insufficient available balance")
)

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
