package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
	"github.com/winnipeg-connect/backend/internal/repository"
)

// MinWithdrawalAmount is the smallest payout the platform will process.
const MinWithdrawalAmount = 20.0

// WithdrawalService handles provider payout requests against available
// earnings. The deduction happens when the request is created; a rejected
// request restores the balance.
type WithdrawalService struct {
	repo *repository.WithdrawalRepository
}

func NewWithdrawalService(repo *repository.WithdrawalRepository) *WithdrawalService {
	return &WithdrawalService{repo: repo}
}

// Create opens a payout request, deducting available earnings up front.
func (s *WithdrawalService) Create(ctx context.Context, providerID uuid.UUID, amount float64, accountLast4, bankName string) (*models.Withdrawal, error) {
	if amount < MinWithdrawalAmount {
		return nil, apperror.New(apperror.ErrCodeValidation, "withdrawal amount is below the minimum")
	}
	w, err := s.repo.Create(ctx, providerID, amount, accountLast4, bankName)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return w, nil
}

// Get returns one payout request to its owner.
func (s *WithdrawalService) Get(ctx context.Context, id, providerID uuid.UUID) (*models.Withdrawal, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if w.ProviderID != providerID {
		return nil, apperror.ErrForbidden
	}
	return w, nil
}

// ListMine returns the provider's payout history.
func (s *WithdrawalService) ListMine(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByProvider(ctx, providerID, limit, offset)
}

// Complete marks a payout as processed. Administrative.
func (s *WithdrawalService) Complete(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, id, models.WithdrawalStatusCompleted, nil)
}

// Reject declines a payout and restores the provider's available balance.
// Administrative.
func (s *WithdrawalService) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		return apperror.New(apperror.ErrCodeValidation, "rejection reason is required")
	}
	if err := s.repo.Reject(ctx, id, reason); err != nil {
		if err == repository.ErrStaleState {
			return apperror.New(apperror.ErrCodeConflict, "withdrawal is already processed")
		}
		return mapRepoError(err)
	}
	return nil
}
