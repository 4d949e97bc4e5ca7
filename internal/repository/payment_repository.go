package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
	"github.com/winnipeg-connect/backend/internal/models"
)

const paymentColumns = `id, job_id, quote_id, payer_id, payee_id, payment_type, currency,
	subtotal, platform_fee, processor_fee, total, status, escrow_status,
	gateway_intent_id, gateway_refund_id, hold_until, requires_both_approval,
	seeker_approval, provider_confirmation, release_reason, released_at,
	refund_amount, refund_reason, disputed, dispute_reason, dispute_status,
	disputed_by, created_at, updated_at`

// PaymentRepository handles payments, payment_approvals and the provider
// earnings ledger. Every money movement is one transaction: the payment row
// is locked, state is re-checked under the lock, and the ledger entry plus
// balance update commit together with the status flip.
type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment intent record. The partial unique index over
// active statuses turns a second live (quote, payment_type) pair into
// ErrDuplicate regardless of application-level pre-checks.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (job_id, quote_id, payer_id, payee_id, payment_type, currency,
			subtotal, platform_fee, processor_fee, total, status, requires_both_approval)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending', $11)
		RETURNING id, status, escrow_status, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		p.JobID, p.QuoteID, p.PayerID, p.PayeeID, p.PaymentType, p.Currency,
		p.Subtotal, p.PlatformFee, p.ProcessorFee, p.Total, p.RequiresBothApproval,
	).Scan(&p.ID, &p.Status, &p.EscrowStatus, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("payment repository: create %w", err)
	}
	return nil
}

// GetByID returns a payment by identifier.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get by id %w", err)
	}
	return &p, nil
}

// ListByUser returns payments where the user is payer or payee.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	var payments []models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE payer_id = $1 OR payee_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &payments, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("payment repository: list by user %w", err)
	}
	return payments, nil
}

// ListByJob returns all payments for a job.
func (r *PaymentRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE job_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &payments, query, jobID); err != nil {
		return nil, fmt.Errorf("payment repository: list by job %w", err)
	}
	return payments, nil
}

// SetIntent records the gateway intent id on a freshly created payment.
func (r *PaymentRepository) SetIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET gateway_intent_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, intentID)
	if err != nil {
		return fmt.Errorf("payment repository: set intent %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleState
	}
	return nil
}

// MarkCaptured records a successful gateway capture: funds enter escrow and
// the payee's pending balance grows by the net amount, through a ledger
// entry and the balance update in one transaction.
func (r *PaymentRepository) MarkCaptured(ctx context.Context, id uuid.UUID, holdUntil time.Time) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var p models.Payment
	query := `
		UPDATE payments SET status = 'captured', escrow_status = 'held', hold_until = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'authorized') AND escrow_status = ''
		RETURNING ` + paymentColumns
	if err := tx.GetContext(ctx, &p, query, id, holdUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStaleState
		}
		return nil, fmt.Errorf("payment repository: mark captured %w", err)
	}

	net := p.Net()
	if err := appendEarningsEntry(ctx, tx, p.PayeeID, &p.ID, &p.JobID, models.EarningsEntryEscrowHold, net); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO provider_earnings (provider_id, total, pending, available)
		VALUES ($1, 0, $2, 0)
		ON CONFLICT (provider_id) DO UPDATE
		SET pending = provider_earnings.pending + $2, updated_at = NOW()
	`, p.PayeeID, net); err != nil {
		return nil, fmt.Errorf("payment repository: hold earnings %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("payment repository: commit capture %w", err)
	}
	return &p, nil
}

// MarkFailed records a gateway-reported failure. Terminal; no funds held.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'authorized')
	`, id)
	if err != nil {
		return fmt.Errorf("payment repository: mark failed %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleState
	}
	return nil
}

// AddApproval records one party's release approval. The membership check and
// insert are a single ON CONFLICT DO NOTHING statement, so concurrent
// duplicates collapse to one row; added=false means the user had already
// approved. The matching release-condition flag updates in the same
// transaction.
func (r *PaymentRepository) AddApproval(ctx context.Context, paymentID uuid.UUID, approval *models.PaymentApproval) (added bool, p *models.Payment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, nil, err
	}
	defer tx.Rollback()

	var locked models.Payment
	if err := tx.GetContext(ctx, &locked,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, paymentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, ErrPaymentNotFound
		}
		return false, nil, fmt.Errorf("payment repository: lock payment %w", err)
	}
	if locked.EscrowStatus != valueobject.EscrowStatusHeld {
		return false, &locked, ErrStaleState
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO payment_approvals (payment_id, user_id, user_type, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (payment_id, user_id) DO NOTHING
	`, paymentID, approval.UserID, approval.UserType, approval.Notes)
	if err != nil {
		return false, nil, fmt.Errorf("payment repository: insert approval %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, &locked, tx.Commit()
	}

	column := "seeker_approval"
	if approval.UserType == models.ApprovalPartyProvider {
		column = "provider_confirmation"
	}
	query := fmt.Sprintf(`UPDATE payments SET %s = TRUE, updated_at = NOW() WHERE id = $1 RETURNING `+paymentColumns, column)
	var updated models.Payment
	if err := tx.GetContext(ctx, &updated, query, paymentID); err != nil {
		return false, nil, fmt.Errorf("payment repository: flag approval %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("payment repository: commit approval %w", err)
	}
	return true, &updated, nil
}

// ListApprovals returns the approval records for a payment.
func (r *PaymentRepository) ListApprovals(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentApproval, error) {
	var approvals []models.PaymentApproval
	query := `SELECT id, payment_id, user_id, user_type, notes, created_at
		FROM payment_approvals WHERE payment_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &approvals, query, paymentID); err != nil {
		return nil, fmt.Errorf("payment repository: list approvals %w", err)
	}
	return approvals, nil
}

// Release moves held funds to the payee. The payment is locked, the release
// predicate re-checked under the lock, and the earnings ledger updated
// (total += net, pending -= net, available += net) atomically with the
// status flip. Released payments are immutable afterwards. force skips the
// approval predicate for administrative dispute resolution; funds must
// still be held. An open dispute is marked resolved in the same update, so
// the settlement and the dispute outcome commit or fail together.
func (r *PaymentRepository) Release(ctx context.Context, id uuid.UUID, reason valueobject.ReleaseReason, force bool) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var locked models.Payment
	if err := tx.GetContext(ctx, &locked,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: lock payment %w", err)
	}
	if force {
		if locked.EscrowStatus != valueobject.EscrowStatusHeld {
			return nil, ErrStaleState
		}
	} else if !locked.CanRelease() {
		return nil, ErrStaleState
	}

	var p models.Payment
	query := `
		UPDATE payments SET status = 'released', escrow_status = 'released',
			release_reason = $2, released_at = NOW(),
			dispute_status = CASE WHEN disputed THEN 'resolved' ELSE dispute_status END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + paymentColumns
	if err := tx.GetContext(ctx, &p, query, id, reason); err != nil {
		return nil, fmt.Errorf("payment repository: release %w", err)
	}

	net := p.Net()
	if err := appendEarningsEntry(ctx, tx, p.PayeeID, &p.ID, &p.JobID, models.EarningsEntryEscrowRelease, net); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE provider_earnings
		SET total = total + $2, pending = pending - $2, available = available + $2, updated_at = NOW()
		WHERE provider_id = $1
	`, p.PayeeID, net); err != nil {
		return nil, fmt.Errorf("payment repository: release earnings %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("payment repository: commit release %w", err)
	}
	return &p, nil
}

// Refund returns held funds to the payer. Permitted only while the payment
// is authorized or captured with escrow still held; the payee's pending
// balance is reduced by the net amount in the same transaction. force skips
// the status guard for administrative dispute resolution, and an open
// dispute is marked resolved in the same update.
func (r *PaymentRepository) Refund(ctx context.Context, id uuid.UUID, amount float64, reason string, gatewayRefundID string, force bool) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var locked models.Payment
	if err := tx.GetContext(ctx, &locked,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: lock payment %w", err)
	}
	if force {
		if locked.EscrowStatus != valueobject.EscrowStatusHeld {
			return nil, ErrStaleState
		}
	} else if !locked.CanBeRefunded() {
		return nil, ErrStaleState
	}

	var p models.Payment
	query := `
		UPDATE payments SET status = 'refunded', escrow_status = 'refunded',
			refund_amount = $2, refund_reason = $3, gateway_refund_id = $4,
			dispute_status = CASE WHEN disputed THEN 'resolved' ELSE dispute_status END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + paymentColumns
	if err := tx.GetContext(ctx, &p, query, id, amount, reason, gatewayRefundID); err != nil {
		return nil, fmt.Errorf("payment repository: refund %w", err)
	}

	net := p.Net()
	if err := appendEarningsEntry(ctx, tx, p.PayeeID, &p.ID, &p.JobID, models.EarningsEntryEscrowRefund, -net); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE provider_earnings SET pending = pending - $2, updated_at = NOW()
		WHERE provider_id = $1
	`, p.PayeeID, net); err != nil {
		return nil, fmt.Errorf("payment repository: refund earnings %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("payment repository: commit refund %w", err)
	}
	return &p, nil
}

// Dispute raises a dispute on a held payment. Status flips to disputed and
// the dispute sub-record is populated; escrow custody is untouched.
func (r *PaymentRepository) Dispute(ctx context.Context, id uuid.UUID, userID uuid.UUID, reason string) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var locked models.Payment
	if err := tx.GetContext(ctx, &locked,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: lock payment %w", err)
	}
	if !locked.CanBeDisputed() {
		return nil, ErrStaleState
	}

	var p models.Payment
	query := `
		UPDATE payments SET status = 'disputed', disputed = TRUE, dispute_reason = $2,
			dispute_status = 'open', disputed_by = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + paymentColumns
	if err := tx.GetContext(ctx, &p, query, id, reason, userID); err != nil {
		return nil, fmt.Errorf("payment repository: dispute %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("payment repository: commit dispute %w", err)
	}
	return &p, nil
}

// GetEarnings returns (and lazily creates) a provider's earnings balances.
func (r *PaymentRepository) GetEarnings(ctx context.Context, providerID uuid.UUID) (*models.ProviderEarnings, error) {
	var earnings models.ProviderEarnings
	query := `
		INSERT INTO provider_earnings (provider_id, total, pending, available)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT (provider_id) DO UPDATE SET updated_at = NOW()
		RETURNING provider_id, total, pending, available, updated_at
	`
	if err := r.db.GetContext(ctx, &earnings, query, providerID); err != nil {
		return nil, fmt.Errorf("payment repository: get earnings %w", err)
	}
	return &earnings, nil
}

// ListEarningsEntries returns the provider's ledger, newest first.
func (r *PaymentRepository) ListEarningsEntries(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.EarningsEntry, error) {
	var entries []models.EarningsEntry
	query := `SELECT id, provider_id, payment_id, job_id, type, amount, created_at
		FROM earnings_entries WHERE provider_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &entries, query, providerID, limit, offset); err != nil {
		return nil, fmt.Errorf("payment repository: list entries %w", err)
	}
	return entries, nil
}

// RecomputeEarnings rebuilds the materialized balances from the ledger.
// The ledger is the source of truth; this repairs any drift and makes the
// balance maintenance auditable.
func (r *PaymentRepository) RecomputeEarnings(ctx context.Context, providerID uuid.UUID) (*models.ProviderEarnings, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var sums struct {
		Held      float64 `db:"held"`
		Released  float64 `db:"released"`
		Refunded  float64 `db:"refunded"`
		Withdrawn float64 `db:"withdrawn"`
	}
	if err := tx.GetContext(ctx, &sums, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'escrow_hold'), 0)    AS held,
			COALESCE(SUM(amount) FILTER (WHERE type = 'escrow_release'), 0) AS released,
			COALESCE(SUM(-amount) FILTER (WHERE type = 'escrow_refund'), 0) AS refunded,
			COALESCE(SUM(-amount) FILTER (WHERE type = 'withdrawal'), 0)    AS withdrawn
		FROM earnings_entries WHERE provider_id = $1
	`, providerID); err != nil {
		return nil, fmt.Errorf("payment repository: sum ledger %w", err)
	}

	total := sums.Released
	pending := sums.Held - sums.Released - sums.Refunded
	available := sums.Released - sums.Withdrawn

	var earnings models.ProviderEarnings
	if err := tx.GetContext(ctx, &earnings, `
		INSERT INTO provider_earnings (provider_id, total, pending, available)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_id) DO UPDATE
		SET total = $2, pending = $3, available = $4, updated_at = NOW()
		RETURNING provider_id, total, pending, available, updated_at
	`, providerID, total, pending, available); err != nil {
		return nil, fmt.Errorf("payment repository: recompute %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("payment repository: commit recompute %w", err)
	}
	return &earnings, nil
}

// appendEarningsEntry writes one immutable ledger row inside the caller's
// transaction.
func appendEarningsEntry(ctx context.Context, tx *sqlx.Tx, providerID uuid.UUID, paymentID, jobID *uuid.UUID, entryType string, amount float64) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO earnings_entries (provider_id, payment_id, job_id, type, amount)
		VALUES ($1, $2, $3, $4, $5)
	`, providerID, paymentID, jobID, entryType, amount); err != nil {
		return fmt.Errorf("payment repository: append ledger entry %w", err)
	}
	return nil
}
