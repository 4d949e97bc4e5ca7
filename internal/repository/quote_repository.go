package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
	"github.com/winnipeg-connect/backend/internal/models"
)

const quoteColumns = `id, job_id, provider_id, seeker_id, amount, price_type, message,
	estimated_duration, proposed_start_date, supplies_included, warranty_terms,
	deposit_required, status, expires_at, created_at, updated_at`

// QuoteRepository handles the quotes and quote_items tables.
type QuoteRepository struct {
	db *sqlx.DB
}

func NewQuoteRepository(db *sqlx.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// Create inserts a quote with its optional itemized breakdown. The partial
// unique index over live statuses turns a duplicate (job, provider) pair
// into ErrDuplicate.
func (r *QuoteRepository) Create(ctx context.Context, quote *models.Quote) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO quotes (job_id, provider_id, seeker_id, amount, price_type, message,
			estimated_duration, proposed_start_date, supplies_included, warranty_terms,
			deposit_required, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending', $12)
		RETURNING id, status, created_at, updated_at
	`
	if err := tx.QueryRowxContext(ctx, query,
		quote.JobID, quote.ProviderID, quote.SeekerID, quote.Amount, quote.PriceType,
		quote.Message, quote.EstimatedDuration, quote.ProposedStartDate, quote.SuppliesIncluded,
		quote.WarrantyTerms, quote.DepositRequired, quote.ExpiresAt,
	).Scan(&quote.ID, &quote.Status, &quote.CreatedAt, &quote.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("quote repository: create %w", err)
	}

	for i := range quote.Items {
		quote.Items[i].QuoteID = quote.ID
		if err := tx.QueryRowxContext(ctx,
			`INSERT INTO quote_items (quote_id, description, amount) VALUES ($1, $2, $3) RETURNING id`,
			quote.ID, quote.Items[i].Description, quote.Items[i].Amount,
		).Scan(&quote.Items[i].ID); err != nil {
			return fmt.Errorf("quote repository: create item %w", err)
		}
	}

	return tx.Commit()
}

// GetByID returns a quote by identifier.
func (r *QuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1`
	if err := r.db.GetContext(ctx, &quote, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("quote repository: get by id %w", err)
	}
	return &quote, nil
}

// GetByIDWithItems returns a quote with its line items loaded.
func (r *QuoteRepository) GetByIDWithItems(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	quote, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var items []models.QuoteItem
	query := `SELECT id, quote_id, description, amount FROM quote_items WHERE quote_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &items, query, id); err != nil {
		return nil, fmt.Errorf("quote repository: get items %w", err)
	}
	quote.Items = items
	return quote, nil
}

// ListByJob returns all quotes submitted against a job, newest first.
func (r *QuoteRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Quote, error) {
	var quotes []models.Quote
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE job_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &quotes, query, jobID); err != nil {
		return nil, fmt.Errorf("quote repository: list by job %w", err)
	}
	return quotes, nil
}

// ListByProvider returns all quotes authored by a provider.
func (r *QuoteRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.Quote, error) {
	var quotes []models.Quote
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE provider_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &quotes, query, providerID); err != nil {
		return nil, fmt.Errorf("quote repository: list by provider %w", err)
	}
	return quotes, nil
}

// GetLiveByJobAndProvider returns the provider's pending or accepted quote
// for a job, if any.
func (r *QuoteRepository) GetLiveByJobAndProvider(ctx context.Context, jobID, providerID uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	query := `SELECT ` + quoteColumns + ` FROM quotes
		WHERE job_id = $1 AND provider_id = $2 AND status IN ('pending', 'accepted')`
	if err := r.db.GetContext(ctx, &quote, query, jobID, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("quote repository: get live %w", err)
	}
	return &quote, nil
}

// UpdateStatus flips a quote from one status to another with an optimistic
// guard on the current value.
func (r *QuoteRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.QuoteStatus) (*models.Quote, error) {
	var quote models.Quote
	query := `
		UPDATE quotes SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + quoteColumns
	if err := r.db.GetContext(ctx, &quote, query, id, from, to); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStaleState
		}
		return nil, fmt.Errorf("quote repository: update status %w", err)
	}
	return &quote, nil
}

// Accept performs the matching transaction: the job row is locked, the
// check-and-set on status='open' guards against a concurrent accept, the
// chosen quote flips to accepted, and every sibling quote is rejected in
// the same transaction. No intermediate state is observable.
func (r *QuoteRepository) Accept(ctx context.Context, jobID, quoteID, providerID uuid.UUID) (*models.Quote, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock the job and re-check openness under the lock.
	var jobStatus valueobject.JobStatus
	err = tx.GetContext(ctx, &jobStatus, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("quote repository: lock job %w", err)
	}
	if jobStatus != valueobject.JobStatusOpen {
		return nil, ErrStaleState
	}

	var accepted models.Quote
	query := `
		UPDATE quotes SET status = 'accepted', updated_at = NOW()
		WHERE id = $1 AND job_id = $2 AND status = 'pending' AND expires_at > NOW()
		RETURNING ` + quoteColumns
	if err := tx.GetContext(ctx, &accepted, query, quoteID, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStaleState
		}
		return nil, fmt.Errorf("quote repository: accept quote %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE quotes SET status = 'rejected', updated_at = NOW()
		WHERE job_id = $1 AND id <> $2 AND status = 'pending'
	`, jobID, quoteID); err != nil {
		return nil, fmt.Errorf("quote repository: reject siblings %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = 'in_progress', selected_provider = $2, selected_quote = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, jobID, providerID, quoteID)
	if err != nil {
		return nil, fmt.Errorf("quote repository: start job %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrStaleState
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("quote repository: commit accept %w", err)
	}
	return &accepted, nil
}

// MarkExpired persists the expired status discovered by a lazy validity
// check. Only pending quotes past their window are affected.
func (r *QuoteRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE quotes SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND expires_at <= NOW()
	`, id)
	if err != nil {
		return fmt.Errorf("quote repository: mark expired %w", err)
	}
	return nil
}

// GetUserQuoteStats returns status counts for a provider's quotes.
func (r *QuoteRepository) GetUserQuoteStats(ctx context.Context, providerID uuid.UUID) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT status, COUNT(*) FROM quotes WHERE provider_id = $1 GROUP BY status`, providerID)
	if err != nil {
		return nil, fmt.Errorf("quote repository: stats %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("quote repository: scan stats %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
