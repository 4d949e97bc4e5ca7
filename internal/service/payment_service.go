package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
	"github.com/winnipeg-connect/backend/internal/gateway"
	"github.com/winnipeg-connect/backend/internal/logger"
	"github.com/winnipeg-connect/backend/internal/metrics"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
	"github.com/winnipeg-connect/backend/internal/repository"
)

// PaymentRepository describes the escrow storage contract of the service.
type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Payment, error)
	SetIntent(ctx context.Context, id uuid.UUID, intentID string) error
	MarkCaptured(ctx context.Context, id uuid.UUID, holdUntil time.Time) (*models.Payment, error)
	MarkFailed(ctx context.Context, id uuid.UUID) error
	AddApproval(ctx context.Context, paymentID uuid.UUID, approval *models.PaymentApproval) (bool, *models.Payment, error)
	ListApprovals(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentApproval, error)
	Release(ctx context.Context, id uuid.UUID, reason valueobject.ReleaseReason, force bool) (*models.Payment, error)
	Refund(ctx context.Context, id uuid.UUID, amount float64, reason string, gatewayRefundID string, force bool) (*models.Payment, error)
	Dispute(ctx context.Context, id uuid.UUID, userID uuid.UUID, reason string) (*models.Payment, error)
	GetEarnings(ctx context.Context, providerID uuid.UUID) (*models.ProviderEarnings, error)
	ListEarningsEntries(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.EarningsEntry, error)
	RecomputeEarnings(ctx context.Context, providerID uuid.UUID) (*models.ProviderEarnings, error)
}

// QuoteReader is the minimal quote access payments need.
type QuoteReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
}

// PaymentService orchestrates the escrow lifecycle: intent creation against
// an accepted quote, capture into escrow, dual-approval release, refunds and
// disputes. Every status change goes through a guarded repository
// transaction; the service layers authorization, fee math and the gateway
// conversation on top.
type PaymentService struct {
	payments PaymentRepository
	quotes   QuoteReader
	jobs     JobReader
	gateway  gateway.PaymentGateway
	chat     ChatEmitter
	hub      WSNotifier

	currency   string
	holdPeriod time.Duration
}

func NewPaymentService(payments PaymentRepository, quotes QuoteReader, jobs JobReader, gw gateway.PaymentGateway, currency string, holdPeriod time.Duration) *PaymentService {
	if currency == "" {
		currency = "CAD"
	}
	return &PaymentService{
		payments:   payments,
		quotes:     quotes,
		jobs:       jobs,
		gateway:    gw,
		currency:   currency,
		holdPeriod: holdPeriod,
	}
}

func (s *PaymentService) SetChat(chat ChatEmitter) {
	s.chat = chat
}

func (s *PaymentService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// CreatePaymentInput describes a payment intent request by the seeker.
type CreatePaymentInput struct {
	QuoteID     uuid.UUID
	PayerID     uuid.UUID
	PaymentType string
	// Amount applies to milestone and final phases only; deposit and full
	// amounts derive from the quote.
	Amount float64
}

// CreateIntentResult pairs the stored payment with the client secret the
// frontend needs to complete the charge.
type CreateIntentResult struct {
	Payment      *models.Payment `json:"payment"`
	ClientSecret string          `json:"client_secret"`
}

// CreateIntent opens a payment against an accepted quote. The fee breakdown
// is computed once and stored; the gateway intent is created for the grand
// total in minor units. At most one active payment may exist per (quote,
// phase).
func (s *PaymentService) CreateIntent(ctx context.Context, in CreatePaymentInput) (*CreateIntentResult, error) {
	paymentType, err := valueobject.NewPaymentType(in.PaymentType)
	if err != nil {
		return nil, err
	}

	quote, err := s.quotes.GetByID(ctx, in.QuoteID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if quote.Status != valueobject.QuoteStatusAccepted {
		return nil, apperror.New(apperror.ErrCodeConflict, "payments require an accepted quote")
	}
	if quote.SeekerID != in.PayerID {
		return nil, apperror.ErrForbidden
	}

	subtotal, err := valueobject.SubtotalFor(paymentType, quote.Amount, in.Amount)
	if err != nil {
		return nil, err
	}
	fees, err := valueobject.ComputeFees(subtotal)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		JobID:                quote.JobID,
		QuoteID:              quote.ID,
		PayerID:              quote.SeekerID,
		PayeeID:              quote.ProviderID,
		PaymentType:          paymentType,
		Currency:             s.currency,
		Subtotal:             fees.Subtotal,
		PlatformFee:          fees.PlatformFee,
		ProcessorFee:         fees.ProcessorFee,
		Total:                fees.Total,
		RequiresBothApproval: true,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		if err == repository.ErrDuplicate {
			return nil, apperror.ErrPaymentAlreadyExists
		}
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, valueobject.MinorUnits(payment.Total), payment.Currency, map[string]string{
		"payment_id": payment.ID.String(),
		"job_id":     payment.JobID.String(),
		"quote_id":   payment.QuoteID.String(),
	})
	if err != nil {
		// A definitive decline terminates the payment and frees the phase
		// slot for a fresh attempt; transient errors leave it pending so a
		// retry can create an intent for the same record.
		if gateway.IsDeclined(err) {
			if mErr := s.payments.MarkFailed(ctx, payment.ID); mErr != nil && mErr != repository.ErrStaleState {
				logger.Log.WithError(mErr).WithField("payment_id", payment.ID).Error("payment service: mark failed")
			}
		}
		logger.Log.WithError(err).WithField("payment_id", payment.ID).Error("payment service: create intent")
		return nil, err
	}
	if err := s.payments.SetIntent(ctx, payment.ID, intent.IntentID); err != nil {
		return nil, mapStaleState(err, apperror.ErrPaymentAlreadyExists)
	}
	payment.GatewayIntentID = &intent.IntentID

	metrics.PaymentsCreatedTotal.WithLabelValues(string(paymentType)).Inc()

	return &CreateIntentResult{Payment: payment, ClientSecret: intent.ClientSecret}, nil
}

// Confirm captures the charged amount into escrow after the payer completed
// the gateway flow. Funds become held and the payee's pending balance grows
// by the net amount.
func (s *PaymentService) Confirm(ctx context.Context, paymentID, payerID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if payment.PayerID != payerID {
		return nil, apperror.ErrForbidden
	}
	if payment.GatewayIntentID == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "payment has no gateway intent")
	}
	if payment.EscrowStatus == valueobject.EscrowStatusHeld {
		// Confirm is retryable; a second call observes the held state.
		return payment, nil
	}
	if !payment.Status.IsActive() {
		return nil, apperror.New(apperror.ErrCodeConflict, "payment is not confirmable in its current state")
	}

	// Nothing is recorded as captured until the gateway acknowledged the
	// capture. A declined charge is terminal and marks the payment failed;
	// transient gateway errors leave it pending and retryable.
	if err := s.gateway.Capture(ctx, *payment.GatewayIntentID); err != nil {
		if gateway.IsDeclined(err) {
			if mErr := s.payments.MarkFailed(ctx, paymentID); mErr != nil && mErr != repository.ErrStaleState {
				logger.Log.WithError(mErr).WithField("payment_id", paymentID).Error("payment service: mark failed")
			}
			s.notifyParties(payment, "payment.failed")
		}
		logger.Log.WithError(err).WithField("payment_id", paymentID).Error("payment service: capture")
		return nil, err
	}

	captured, err := s.payments.MarkCaptured(ctx, paymentID, time.Now().Add(s.holdPeriod))
	if err != nil {
		return nil, mapStaleState(err, apperror.New(apperror.ErrCodeConflict, "payment is not confirmable in its current state"))
	}

	metrics.EscrowTransitionsTotal.WithLabelValues(string(valueobject.EscrowStatusHeld)).Inc()
	metrics.EscrowAmountTotal.WithLabelValues(string(valueobject.EscrowStatusHeld)).Add(captured.Subtotal)

	s.emitEscrowMessage(ctx, captured, models.SystemMessageEscrowFunded)
	s.notifyParties(captured, "payment.captured")

	return captured, nil
}

// ApproveRelease records one party's consent to release the held funds.
// Approvals are idempotent per user; when the release predicate becomes
// satisfied the funds move in the same call.
func (s *PaymentService) ApproveRelease(ctx context.Context, paymentID, userID uuid.UUID, notes *string) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !payment.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	if payment.EscrowStatus != valueobject.EscrowStatusHeld {
		return nil, apperror.ErrEscrowNotHeld
	}

	userType := models.ApprovalPartySeeker
	if userID == payment.PayeeID {
		userType = models.ApprovalPartyProvider
	}

	added, updated, err := s.payments.AddApproval(ctx, paymentID, &models.PaymentApproval{
		PaymentID: paymentID,
		UserID:    userID,
		UserType:  userType,
		Notes:     notes,
	})
	if err != nil {
		return nil, mapStaleState(err, apperror.ErrEscrowNotHeld)
	}
	if !added {
		return nil, apperror.ErrAlreadyApproved
	}

	if updated.CanRelease() {
		return s.release(ctx, updated.ID, valueobject.ReleaseReasonMutualAgreement, false)
	}

	s.notifyParties(updated, "payment.approval_added")
	return updated, nil
}

// Release executes the escrow release on request of a participant. It only
// succeeds once the approval predicate is already satisfied; use
// ApproveRelease to record consent.
func (s *PaymentService) Release(ctx context.Context, paymentID, userID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !payment.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	if !payment.CanRelease() {
		if payment.EscrowStatus != valueobject.EscrowStatusHeld {
			return nil, apperror.ErrEscrowNotHeld
		}
		return nil, apperror.New(apperror.ErrCodeConflict, "release requires approval from both parties")
	}
	return s.release(ctx, paymentID, valueobject.ReleaseReasonMutualAgreement, false)
}

func (s *PaymentService) release(ctx context.Context, paymentID uuid.UUID, reason valueobject.ReleaseReason, force bool) (*models.Payment, error) {
	released, err := s.payments.Release(ctx, paymentID, reason, force)
	if err != nil {
		return nil, mapStaleState(err, apperror.ErrEscrowNotHeld)
	}

	metrics.EscrowTransitionsTotal.WithLabelValues(string(valueobject.EscrowStatusReleased)).Inc()
	metrics.EscrowAmountTotal.WithLabelValues(string(valueobject.EscrowStatusReleased)).Add(released.Net())

	s.emitEscrowMessage(ctx, released, models.SystemMessageEscrowReleased)
	s.notifyParties(released, "payment.released")

	return released, nil
}

// Refund returns the full amount to the payer while funds are still held.
// Only the seeker may request it, and only before release.
func (s *PaymentService) Refund(ctx context.Context, paymentID, userID uuid.UUID, reason string) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if payment.PayerID != userID {
		return nil, apperror.ErrForbidden
	}
	if !payment.CanBeRefunded() {
		return nil, apperror.ErrCannotRefund
	}

	return s.refund(ctx, payment, reason, false)
}

func (s *PaymentService) refund(ctx context.Context, payment *models.Payment, reason string, force bool) (*models.Payment, error) {
	if payment.GatewayIntentID == nil {
		return nil, apperror.ErrCannotRefund
	}

	refundID, err := s.gateway.Refund(ctx, *payment.GatewayIntentID, valueobject.MinorUnits(payment.Total))
	if err != nil {
		logger.Log.WithError(err).WithField("payment_id", payment.ID).Error("payment service: gateway refund")
		return nil, err
	}

	refunded, err := s.payments.Refund(ctx, payment.ID, payment.Total, reason, refundID, force)
	if err != nil {
		return nil, mapStaleState(err, apperror.ErrCannotRefund)
	}

	metrics.EscrowTransitionsTotal.WithLabelValues(string(valueobject.EscrowStatusRefunded)).Inc()
	metrics.EscrowAmountTotal.WithLabelValues(string(valueobject.EscrowStatusRefunded)).Add(refunded.Total)

	s.emitEscrowMessage(ctx, refunded, models.SystemMessageEscrowRefunded)
	s.notifyParties(refunded, "payment.refunded")

	return refunded, nil
}

// Dispute freezes a held payment: status flips to disputed, funds stay in
// escrow, and a dispute sub-record opens for administrative review.
func (s *PaymentService) Dispute(ctx context.Context, paymentID, userID uuid.UUID, reason string) (*models.Payment, error) {
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "dispute reason is required")
	}

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !payment.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	if !payment.CanBeDisputed() {
		return nil, apperror.New(apperror.ErrCodeConflict, "payment is not disputable in its current state")
	}

	disputed, err := s.payments.Dispute(ctx, paymentID, userID, reason)
	if err != nil {
		return nil, mapStaleState(err, apperror.New(apperror.ErrCodeConflict, "payment is not disputable in its current state"))
	}

	metrics.EscrowTransitionsTotal.WithLabelValues(string(valueobject.EscrowStatusDisputed)).Inc()

	s.emitEscrowMessage(ctx, disputed, models.SystemMessageEscrowDisputed)
	s.notifyParties(disputed, "payment.disputed")

	return disputed, nil
}

// Dispute resolutions.
const (
	ResolutionRelease = "release"
	ResolutionRefund  = "refund"
)

// ResolveDispute settles a dispute administratively: funds either release to
// the provider or refund to the seeker, bypassing the approval predicate.
// The dispute is marked resolved inside the same storage transaction that
// moves the funds, so a failed resolution leaves the dispute open.
func (s *PaymentService) ResolveDispute(ctx context.Context, paymentID uuid.UUID, resolution, reason string) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !payment.Disputed {
		return nil, apperror.New(apperror.ErrCodeConflict, "payment is not disputed")
	}
	if payment.EscrowStatus != valueobject.EscrowStatusHeld {
		return nil, apperror.ErrEscrowNotHeld
	}

	switch resolution {
	case ResolutionRelease:
		return s.release(ctx, paymentID, valueobject.ReleaseReasonAdminRelease, true)
	case ResolutionRefund:
		return s.refund(ctx, payment, reason, true)
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "resolution must be release or refund")
	}
}

// Get returns a payment with its approvals, visible to participants only.
func (s *PaymentService) Get(ctx context.Context, paymentID, userID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !payment.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}

	approvals, err := s.payments.ListApprovals(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	payment.Approvals = approvals

	return payment, nil
}

// ListMine returns the user's payments on both sides of the table.
func (s *PaymentService) ListMine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.payments.ListByUser(ctx, userID, limit, offset)
}

// ListForJob returns a job's payments to one of the job's parties.
func (s *PaymentService) ListForJob(ctx context.Context, jobID, userID uuid.UUID) ([]models.Payment, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !job.IsOwnedBy(userID) && (job.SelectedProvider == nil || *job.SelectedProvider != userID) {
		return nil, apperror.ErrForbidden
	}
	return s.payments.ListByJob(ctx, jobID)
}

// ReleaseJobPayments settles the job's held payments when a party confirms
// the job complete. Confirming completion counts as that party's release
// consent: their approval is recorded on every held payment first, so
// payments whose other side already approved release in the same sweep, and
// the rest stay held carrying the confirmation instead of zero approvals.
// Disputed payments are never touched; they settle administratively.
func (s *PaymentService) ReleaseJobPayments(ctx context.Context, jobID, completedBy uuid.UUID) error {
	payments, err := s.payments.ListByJob(ctx, jobID)
	if err != nil {
		return err
	}
	for i := range payments {
		p := &payments[i]
		if p.EscrowStatus != valueobject.EscrowStatusHeld || p.Disputed {
			continue
		}

		approvalAdded := false
		if p.IsParticipant(completedBy) && !p.HasApprovedRelease(completedBy) {
			userType := models.ApprovalPartySeeker
			if completedBy == p.PayeeID {
				userType = models.ApprovalPartyProvider
			}
			added, updated, err := s.payments.AddApproval(ctx, p.ID, &models.PaymentApproval{
				PaymentID: p.ID,
				UserID:    completedBy,
				UserType:  userType,
			})
			if err != nil {
				if err == repository.ErrStaleState {
					// Escrow moved concurrently; nothing left to settle here.
					continue
				}
				return err
			}
			approvalAdded = added
			p = updated
		}

		if !p.CanRelease() {
			if approvalAdded {
				s.notifyParties(p, "payment.approval_added")
			}
			continue
		}
		if _, err := s.release(ctx, p.ID, valueobject.ReleaseReasonJobCompleted, false); err != nil {
			return err
		}
	}
	return nil
}

// Earnings returns the provider's balance snapshot.
func (s *PaymentService) Earnings(ctx context.Context, providerID uuid.UUID) (*models.ProviderEarnings, error) {
	return s.payments.GetEarnings(ctx, providerID)
}

// RecomputeEarnings rebuilds a provider's materialized balances from the
// ledger. Administrative repair tool; the ledger is the source of truth.
func (s *PaymentService) RecomputeEarnings(ctx context.Context, providerID uuid.UUID) (*models.ProviderEarnings, error) {
	return s.payments.RecomputeEarnings(ctx, providerID)
}

// EarningsHistory returns the provider's ledger entries.
func (s *PaymentService) EarningsHistory(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.EarningsEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.payments.ListEarningsEntries(ctx, providerID, limit, offset)
}

func (s *PaymentService) emitEscrowMessage(ctx context.Context, payment *models.Payment, systemType string) {
	if s.chat == nil {
		return
	}
	if err := s.chat.EmitSystemMessage(ctx, payment.JobID, payment.PayerID, payment.PayeeID, systemType, payment); err != nil {
		logger.Log.WithError(err).WithField("payment_id", payment.ID).Warn(fmt.Sprintf("payment service: emit %s message", systemType))
	}
}

func (s *PaymentService) notifyParties(payment *models.Payment, event string) {
	if s.hub == nil {
		return
	}
	for _, userID := range []uuid.UUID{payment.PayerID, payment.PayeeID} {
		if err := s.hub.BroadcastToUser(userID, event, payment); err != nil {
			logger.Log.WithError(err).WithField("event", event).Debug("payment service: ws broadcast")
		}
	}
}

// mapStaleState converts the optimistic-concurrency sentinel into the given
// domain conflict; other errors pass through mapRepoError.
func mapStaleState(err error, conflict error) error {
	if err == repository.ErrStaleState {
		return conflict
	}
	return mapRepoError(err)
}
