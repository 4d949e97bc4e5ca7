package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/winnipeg-connect/backend/internal/models"
)

type WithdrawalRepository struct {
	db *sqlx.DB
}

func NewWithdrawalRepository(db *sqlx.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create locks the provider's balance row, verifies available funds, deducts
// the amount and appends the matching ledger entry in one transaction.
func (r *WithdrawalRepository) Create(ctx context.Context, providerID uuid.UUID, amount float64, accountLast4, bankName string) (*models.Withdrawal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var available float64
	err = tx.GetContext(ctx, &available, `SELECT available FROM provider_earnings WHERE provider_id = $1 FOR UPDATE`, providerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}
	if available < amount {
		return nil, ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx, `UPDATE provider_earnings SET available = available - $2, updated_at = NOW() WHERE provider_id = $1`, providerID, amount)
	if err != nil {
		return nil, err
	}

	if err := appendEarningsEntry(ctx, tx, providerID, nil, nil, models.EarningsEntryWithdrawal, -amount); err != nil {
		return nil, err
	}

	var w models.Withdrawal
	err = tx.GetContext(ctx, &w, `
		INSERT INTO withdrawals (provider_id, amount, account_last4, bank_name)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, providerID, amount, accountLast4, bankName)
	if err != nil {
		return nil, err
	}

	return &w, tx.Commit()
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := r.db.GetContext(ctx, &w, `SELECT * FROM withdrawals WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWithdrawalNotFound
	}
	return &w, err
}

func (r *WithdrawalRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := r.db.SelectContext(ctx, &withdrawals, `
		SELECT * FROM withdrawals WHERE provider_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, providerID, limit, offset)
	return withdrawals, err
}

func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, rejectionReason *string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE withdrawals SET status = $2, rejection_reason = $3, processed_at = $4 WHERE id = $1
	`, id, status, rejectionReason, now)
	return err
}

// Reject restores the deducted amount back to available when a payout is
// declined, reversing the withdrawal ledger entry.
func (r *WithdrawalRepository) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var w models.Withdrawal
	err = tx.GetContext(ctx, &w, `SELECT * FROM withdrawals WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrWithdrawalNotFound
		}
		return err
	}
	if w.Status != models.WithdrawalStatusPending && w.Status != models.WithdrawalStatusProcessing {
		return ErrStaleState
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE withdrawals SET status = 'rejected', rejection_reason = $2, processed_at = NOW() WHERE id = $1
	`, id, reason)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE provider_earnings SET available = available + $2, updated_at = NOW() WHERE provider_id = $1`, w.ProviderID, w.Amount)
	if err != nil {
		return err
	}

	if err := appendEarningsEntry(ctx, tx, w.ProviderID, nil, nil, models.EarningsEntryWithdrawal, w.Amount); err != nil {
		return err
	}

	return tx.Commit()
}
