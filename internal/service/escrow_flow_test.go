package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
	"github.com/winnipeg-connect/backend/internal/gateway"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/repository"
)

// flowState is a shared in-memory backing store for the lifecycle tests
// below. The store types around it reproduce the repository guarantees the
// services rely on: guarded transitions, sibling rejection on accept, and
// ledger-backed balances updated together with escrow flips.
type flowState struct {
	jobs      map[uuid.UUID]*models.Job
	quotes    map[uuid.UUID]*models.Quote
	payments  map[uuid.UUID]*models.Payment
	approvals map[uuid.UUID]map[uuid.UUID]string
	earnings  map[uuid.UUID]*models.ProviderEarnings
	entries   []models.EarningsEntry
}

func newFlowState() *flowState {
	return &flowState{
		jobs:      make(map[uuid.UUID]*models.Job),
		quotes:    make(map[uuid.UUID]*models.Quote),
		payments:  make(map[uuid.UUID]*models.Payment),
		approvals: make(map[uuid.UUID]map[uuid.UUID]string),
		earnings:  make(map[uuid.UUID]*models.ProviderEarnings),
	}
}

func (s *flowState) addOpenJob(seekerID uuid.UUID, budget float64) *models.Job {
	job := &models.Job{
		ID:           uuid.New(),
		PostedBy:     seekerID,
		Title:        "Replace basement window",
		Description:  "Single pane, frame included",
		BudgetType:   models.BudgetTypeFixed,
		BudgetAmount: &budget,
		Priority:     models.JobPriorityNormal,
		Status:       valueobject.JobStatusOpen,
	}
	s.jobs[job.ID] = job
	return job
}

func (s *flowState) balanceFor(providerID uuid.UUID) *models.ProviderEarnings {
	if e, ok := s.earnings[providerID]; ok {
		return e
	}
	e := &models.ProviderEarnings{ProviderID: providerID}
	s.earnings[providerID] = e
	return e
}

func (s *flowState) appendEntry(providerID uuid.UUID, paymentID, jobID uuid.UUID, entryType string, amount float64) {
	s.entries = append(s.entries, models.EarningsEntry{
		ID:         uuid.New(),
		ProviderID: providerID,
		PaymentID:  &paymentID,
		JobID:      &jobID,
		Type:       entryType,
		Amount:     amount,
		CreatedAt:  time.Now(),
	})
}

type flowJobStore struct{ s *flowState }

func (f *flowJobStore) Create(ctx context.Context, job *models.Job, requirements []models.JobRequirement) error {
	job.ID = uuid.New()
	f.s.jobs[job.ID] = job
	return nil
}

func (f *flowJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, ok := f.s.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *flowJobStore) GetByIDWithRequirements(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return f.GetByID(ctx, id)
}

func (f *flowJobStore) List(ctx context.Context, params repository.JobListParams) (*repository.JobListResult, error) {
	return &repository.JobListResult{}, nil
}

func (f *flowJobStore) Update(ctx context.Context, job *models.Job, requirements []models.JobRequirement) error {
	f.s.jobs[job.ID] = job
	return nil
}

func (f *flowJobStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.JobStatus) error {
	job, ok := f.s.jobs[id]
	if !ok {
		return repository.ErrJobNotFound
	}
	if job.Status != from {
		return repository.ErrStaleState
	}
	job.Status = to
	return nil
}

func (f *flowJobStore) Delete(ctx context.Context, id uuid.UUID, postedBy uuid.UUID) error {
	delete(f.s.jobs, id)
	return nil
}

func (f *flowJobStore) ListMine(ctx context.Context, userID uuid.UUID) ([]models.Job, []models.Job, error) {
	return nil, nil, nil
}

type flowQuoteStore struct{ s *flowState }

func (f *flowQuoteStore) Create(ctx context.Context, quote *models.Quote) error {
	for _, q := range f.s.quotes {
		if q.JobID == quote.JobID && q.ProviderID == quote.ProviderID && q.Status.IsLive() {
			return repository.ErrDuplicate
		}
	}
	quote.ID = uuid.New()
	quote.CreatedAt = time.Now()
	f.s.quotes[quote.ID] = quote
	return nil
}

func (f *flowQuoteStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	quote, ok := f.s.quotes[id]
	if !ok {
		return nil, repository.ErrQuoteNotFound
	}
	copied := *quote
	return &copied, nil
}

func (f *flowQuoteStore) GetByIDWithItems(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	return f.GetByID(ctx, id)
}

func (f *flowQuoteStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Quote, error) {
	var out []models.Quote
	for _, q := range f.s.quotes {
		if q.JobID == jobID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *flowQuoteStore) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.Quote, error) {
	var out []models.Quote
	for _, q := range f.s.quotes {
		if q.ProviderID == providerID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *flowQuoteStore) GetLiveByJobAndProvider(ctx context.Context, jobID, providerID uuid.UUID) (*models.Quote, error) {
	for _, q := range f.s.quotes {
		if q.JobID == jobID && q.ProviderID == providerID && q.Status.IsLive() {
			copied := *q
			return &copied, nil
		}
	}
	return nil, repository.ErrQuoteNotFound
}

func (f *flowQuoteStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.QuoteStatus) (*models.Quote, error) {
	quote, ok := f.s.quotes[id]
	if !ok {
		return nil, repository.ErrQuoteNotFound
	}
	if quote.Status != from {
		return nil, repository.ErrStaleState
	}
	quote.Status = to
	copied := *quote
	return &copied, nil
}

// Accept mirrors the transactional win: the chosen quote flips to accepted,
// pending siblings are rejected and the job moves to in_progress together.
func (f *flowQuoteStore) Accept(ctx context.Context, jobID, quoteID, providerID uuid.UUID) (*models.Quote, error) {
	job, ok := f.s.jobs[jobID]
	if !ok || job.Status != valueobject.JobStatusOpen {
		return nil, repository.ErrStaleState
	}
	quote, ok := f.s.quotes[quoteID]
	if !ok || quote.Status != valueobject.QuoteStatusPending {
		return nil, repository.ErrStaleState
	}

	quote.Status = valueobject.QuoteStatusAccepted
	for _, sibling := range f.s.quotes {
		if sibling.JobID == jobID && sibling.ID != quoteID && sibling.Status == valueobject.QuoteStatusPending {
			sibling.Status = valueobject.QuoteStatusRejected
		}
	}
	job.Status = valueobject.JobStatusInProgress
	job.SelectedProvider = &quote.ProviderID
	job.SelectedQuote = &quote.ID

	copied := *quote
	return &copied, nil
}

func (f *flowQuoteStore) MarkExpired(ctx context.Context, id uuid.UUID) error {
	if quote, ok := f.s.quotes[id]; ok && quote.Status == valueobject.QuoteStatusPending {
		quote.Status = valueobject.QuoteStatusExpired
	}
	return nil
}

type flowPaymentStore struct{ s *flowState }

func (f *flowPaymentStore) Create(ctx context.Context, p *models.Payment) error {
	for _, existing := range f.s.payments {
		if existing.QuoteID == p.QuoteID && existing.PaymentType == p.PaymentType && existing.Status.IsActive() {
			return repository.ErrDuplicate
		}
	}
	p.ID = uuid.New()
	p.Status = valueobject.PaymentStatusPending
	p.CreatedAt = time.Now()
	f.s.payments[p.ID] = p
	return nil
}

func (f *flowPaymentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	p, ok := f.s.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *flowPaymentStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.s.payments {
		if p.PayerID == userID || p.PayeeID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *flowPaymentStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.s.payments {
		if p.JobID == jobID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *flowPaymentStore) SetIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	p, ok := f.s.payments[id]
	if !ok || p.Status != valueobject.PaymentStatusPending {
		return repository.ErrStaleState
	}
	p.GatewayIntentID = &intentID
	return nil
}

func (f *flowPaymentStore) MarkCaptured(ctx context.Context, id uuid.UUID, holdUntil time.Time) (*models.Payment, error) {
	p, ok := f.s.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	if p.EscrowStatus != valueobject.EscrowStatusNone ||
		(p.Status != valueobject.PaymentStatusPending && p.Status != valueobject.PaymentStatusAuthorized) {
		return nil, repository.ErrStaleState
	}
	p.Status = valueobject.PaymentStatusCaptured
	p.EscrowStatus = valueobject.EscrowStatusHeld
	p.HoldUntil = &holdUntil

	net := p.Net()
	f.s.appendEntry(p.PayeeID, p.ID, p.JobID, models.EarningsEntryEscrowHold, net)
	f.s.balanceFor(p.PayeeID).Pending += net

	copied := *p
	return &copied, nil
}

func (f *flowPaymentStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	p, ok := f.s.payments[id]
	if !ok || (p.Status != valueobject.PaymentStatusPending && p.Status != valueobject.PaymentStatusAuthorized) {
		return repository.ErrStaleState
	}
	p.Status = valueobject.PaymentStatusFailed
	return nil
}

func (f *flowPaymentStore) AddApproval(ctx context.Context, paymentID uuid.UUID, approval *models.PaymentApproval) (bool, *models.Payment, error) {
	p, ok := f.s.payments[paymentID]
	if !ok {
		return false, nil, repository.ErrPaymentNotFound
	}
	if p.EscrowStatus != valueobject.EscrowStatusHeld {
		copied := *p
		return false, &copied, repository.ErrStaleState
	}

	byUser, ok := f.s.approvals[paymentID]
	if !ok {
		byUser = make(map[uuid.UUID]string)
		f.s.approvals[paymentID] = byUser
	}
	if _, exists := byUser[approval.UserID]; exists {
		copied := *p
		return false, &copied, nil
	}
	byUser[approval.UserID] = approval.UserType

	if approval.UserType == models.ApprovalPartyProvider {
		p.ProviderConfirmation = true
	} else {
		p.SeekerApproval = true
	}
	copied := *p
	return true, &copied, nil
}

func (f *flowPaymentStore) ListApprovals(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentApproval, error) {
	var out []models.PaymentApproval
	for userID, userType := range f.s.approvals[paymentID] {
		out = append(out, models.PaymentApproval{PaymentID: paymentID, UserID: userID, UserType: userType})
	}
	return out, nil
}

func (f *flowPaymentStore) Release(ctx context.Context, id uuid.UUID, reason valueobject.ReleaseReason, force bool) (*models.Payment, error) {
	p, ok := f.s.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	if force {
		if p.EscrowStatus != valueobject.EscrowStatusHeld {
			return nil, repository.ErrStaleState
		}
	} else if !p.CanRelease() {
		return nil, repository.ErrStaleState
	}

	now := time.Now()
	p.Status = valueobject.PaymentStatusReleased
	p.EscrowStatus = valueobject.EscrowStatusReleased
	p.ReleaseReason = &reason
	p.ReleasedAt = &now
	if p.Disputed {
		resolved := valueobject.DisputeStatusResolved
		p.DisputeStatus = &resolved
	}

	net := p.Net()
	f.s.appendEntry(p.PayeeID, p.ID, p.JobID, models.EarningsEntryEscrowRelease, net)
	balance := f.s.balanceFor(p.PayeeID)
	balance.Total += net
	balance.Pending -= net
	balance.Available += net

	copied := *p
	return &copied, nil
}

func (f *flowPaymentStore) Refund(ctx context.Context, id uuid.UUID, amount float64, reason string, gatewayRefundID string, force bool) (*models.Payment, error) {
	p, ok := f.s.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	if force {
		if p.EscrowStatus != valueobject.EscrowStatusHeld {
			return nil, repository.ErrStaleState
		}
	} else if !p.CanBeRefunded() {
		return nil, repository.ErrStaleState
	}

	p.Status = valueobject.PaymentStatusRefunded
	p.EscrowStatus = valueobject.EscrowStatusRefunded
	p.RefundAmount = &amount
	p.RefundReason = &reason
	p.GatewayRefundID = &gatewayRefundID
	if p.Disputed {
		resolved := valueobject.DisputeStatusResolved
		p.DisputeStatus = &resolved
	}

	net := p.Net()
	f.s.appendEntry(p.PayeeID, p.ID, p.JobID, models.EarningsEntryEscrowRefund, -net)
	f.s.balanceFor(p.PayeeID).Pending -= net

	copied := *p
	return &copied, nil
}

func (f *flowPaymentStore) Dispute(ctx context.Context, id uuid.UUID, userID uuid.UUID, reason string) (*models.Payment, error) {
	p, ok := f.s.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	if !p.CanBeDisputed() {
		return nil, repository.ErrStaleState
	}
	open := valueobject.DisputeStatusOpen
	p.Status = valueobject.PaymentStatusDisputed
	p.Disputed = true
	p.DisputeReason = &reason
	p.DisputeStatus = &open
	p.DisputedBy = &userID
	copied := *p
	return &copied, nil
}

func (f *flowPaymentStore) GetEarnings(ctx context.Context, providerID uuid.UUID) (*models.ProviderEarnings, error) {
	copied := *f.s.balanceFor(providerID)
	return &copied, nil
}

func (f *flowPaymentStore) ListEarningsEntries(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.EarningsEntry, error) {
	var out []models.EarningsEntry
	for _, e := range f.s.entries {
		if e.ProviderID == providerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *flowPaymentStore) RecomputeEarnings(ctx context.Context, providerID uuid.UUID) (*models.ProviderEarnings, error) {
	var held, released, refunded, withdrawn float64
	for _, e := range f.s.entries {
		if e.ProviderID != providerID {
			continue
		}
		switch e.Type {
		case models.EarningsEntryEscrowHold:
			held += e.Amount
		case models.EarningsEntryEscrowRelease:
			released += e.Amount
		case models.EarningsEntryEscrowRefund:
			refunded += -e.Amount
		case models.EarningsEntryWithdrawal:
			withdrawn += -e.Amount
		}
	}
	balance := f.s.balanceFor(providerID)
	balance.Total = released
	balance.Pending = held - released - refunded
	balance.Available = released - withdrawn
	copied := *balance
	return &copied, nil
}

// flowGateway acknowledges every request with deterministic identifiers.
type flowGateway struct {
	intents int
}

func (g *flowGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*gateway.Intent, error) {
	g.intents++
	id := fmt.Sprintf("pi_flow_%d", g.intents)
	return &gateway.Intent{IntentID: id, ClientSecret: id + "_secret"}, nil
}

func (g *flowGateway) Capture(ctx context.Context, intentID string) error {
	return nil
}

func (g *flowGateway) Refund(ctx context.Context, intentID string, amountMinor int64) (string, error) {
	return "re_flow_1", nil
}

type flowHarness struct {
	state    *flowState
	jobs     *JobService
	quotes   *QuoteService
	payments *PaymentService
}

func newFlowHarness() *flowHarness {
	state := newFlowState()
	jobStore := &flowJobStore{s: state}
	quoteStore := &flowQuoteStore{s: state}
	paymentStore := &flowPaymentStore{s: state}

	jobs := NewJobService(jobStore)
	quotes := NewQuoteService(quoteStore, jobStore, 7*24*time.Hour)
	payments := NewPaymentService(paymentStore, quoteStore, jobStore, &flowGateway{}, "CAD", 72*time.Hour)
	jobs.SetPayments(payments)

	return &flowHarness{state: state, jobs: jobs, quotes: quotes, payments: payments}
}

// TestEscrowFlow_DepositLifecycle walks the whole happy path: two competing
// quotes, an exclusive accept, a deposit held in escrow and a mutual-approval
// release with the provider credit landing on the ledger.
func TestEscrowFlow_DepositLifecycle(t *testing.T) {
	h := newFlowHarness()
	ctx := context.Background()
	seekerID := uuid.New()
	providerA := uuid.New()
	providerB := uuid.New()
	job := h.state.addOpenJob(seekerID, 1000)

	quoteA, err := h.quotes.Submit(ctx, SubmitQuoteInput{
		JobID: job.ID, ProviderID: providerA, Amount: 900, PriceType: models.QuotePriceFixed,
	})
	require.NoError(t, err)
	quoteB, err := h.quotes.Submit(ctx, SubmitQuoteInput{
		JobID: job.ID, ProviderID: providerB, Amount: 950, PriceType: models.QuotePriceFixed,
	})
	require.NoError(t, err)

	accepted, err := h.quotes.Accept(ctx, job.ID, quoteA.ID, seekerID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.QuoteStatusAccepted, accepted.Status)
	// The win is exclusive: the sibling is rejected and the job is taken.
	assert.Equal(t, valueobject.QuoteStatusRejected, h.state.quotes[quoteB.ID].Status)
	assert.Equal(t, valueobject.JobStatusInProgress, h.state.jobs[job.ID].Status)
	require.NotNil(t, h.state.jobs[job.ID].SelectedProvider)
	assert.Equal(t, providerA, *h.state.jobs[job.ID].SelectedProvider)

	intent, err := h.payments.CreateIntent(ctx, CreatePaymentInput{
		QuoteID: quoteA.ID, PayerID: seekerID, PaymentType: "deposit",
	})
	require.NoError(t, err)
	assert.Equal(t, 450.0, intent.Payment.Subtotal)
	assert.Equal(t, 22.50, intent.Payment.PlatformFee)
	assert.Equal(t, 14.00, intent.Payment.ProcessorFee)
	assert.Equal(t, 486.50, intent.Payment.Total)

	confirmed, err := h.payments.Confirm(ctx, intent.Payment.ID, seekerID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusHeld, confirmed.EscrowStatus)

	balance, err := h.payments.Earnings(ctx, providerA)
	require.NoError(t, err)
	assert.Equal(t, 427.50, balance.Pending)
	assert.Equal(t, 0.0, balance.Available)

	first, err := h.payments.ApproveRelease(ctx, confirmed.ID, seekerID, nil)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusHeld, first.EscrowStatus)

	second, err := h.payments.ApproveRelease(ctx, confirmed.ID, providerA, nil)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, second.EscrowStatus)
	require.NotNil(t, second.ReleaseReason)
	assert.Equal(t, valueobject.ReleaseReasonMutualAgreement, *second.ReleaseReason)

	balance, err = h.payments.Earnings(ctx, providerA)
	require.NoError(t, err)
	assert.Equal(t, 427.50, balance.Total)
	assert.Equal(t, 0.0, balance.Pending)
	assert.Equal(t, 427.50, balance.Available)

	entries, err := h.payments.EarningsHistory(ctx, providerA, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// The ledger reproduces the same balances from scratch.
	recomputed, err := h.payments.RecomputeEarnings(ctx, providerA)
	require.NoError(t, err)
	assert.Equal(t, 427.50, recomputed.Total)
	assert.Equal(t, 0.0, recomputed.Pending)
	assert.Equal(t, 427.50, recomputed.Available)
}

// TestEscrowFlow_CompletionRecordsSeekerApproval covers one-sided job
// completion over a held deposit: the funds stay in escrow, but the
// confirming party's approval is on record rather than none at all.
func TestEscrowFlow_CompletionRecordsSeekerApproval(t *testing.T) {
	h := newFlowHarness()
	ctx := context.Background()
	seekerID := uuid.New()
	providerID := uuid.New()
	job := h.state.addOpenJob(seekerID, 1000)

	quote, err := h.quotes.Submit(ctx, SubmitQuoteInput{
		JobID: job.ID, ProviderID: providerID, Amount: 900, PriceType: models.QuotePriceFixed,
	})
	require.NoError(t, err)
	_, err = h.quotes.Accept(ctx, job.ID, quote.ID, seekerID)
	require.NoError(t, err)

	intent, err := h.payments.CreateIntent(ctx, CreatePaymentInput{
		QuoteID: quote.ID, PayerID: seekerID, PaymentType: "deposit",
	})
	require.NoError(t, err)
	_, err = h.payments.Confirm(ctx, intent.Payment.ID, seekerID)
	require.NoError(t, err)

	completed, err := h.jobs.Transition(ctx, job.ID, seekerID, valueobject.JobStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusCompleted, completed.Status)

	payment := h.state.payments[intent.Payment.ID]
	assert.Equal(t, valueobject.EscrowStatusHeld, payment.EscrowStatus)
	assert.True(t, payment.SeekerApproval)
	assert.False(t, payment.ProviderConfirmation)

	// The provider's confirmation is now the only missing consent.
	released, err := h.payments.ApproveRelease(ctx, intent.Payment.ID, providerID, nil)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, released.EscrowStatus)
}

// TestEscrowFlow_CompletionReleasesAfterProviderConfirmed covers the other
// ordering: the provider confirmed first, so the seeker completing the job
// satisfies the predicate and the sweep releases in the same call.
func TestEscrowFlow_CompletionReleasesAfterProviderConfirmed(t *testing.T) {
	h := newFlowHarness()
	ctx := context.Background()
	seekerID := uuid.New()
	providerID := uuid.New()
	job := h.state.addOpenJob(seekerID, 1000)

	quote, err := h.quotes.Submit(ctx, SubmitQuoteInput{
		JobID: job.ID, ProviderID: providerID, Amount: 900, PriceType: models.QuotePriceFixed,
	})
	require.NoError(t, err)
	_, err = h.quotes.Accept(ctx, job.ID, quote.ID, seekerID)
	require.NoError(t, err)

	intent, err := h.payments.CreateIntent(ctx, CreatePaymentInput{
		QuoteID: quote.ID, PayerID: seekerID, PaymentType: "deposit",
	})
	require.NoError(t, err)
	_, err = h.payments.Confirm(ctx, intent.Payment.ID, seekerID)
	require.NoError(t, err)

	_, err = h.payments.ApproveRelease(ctx, intent.Payment.ID, providerID, nil)
	require.NoError(t, err)

	_, err = h.jobs.Transition(ctx, job.ID, seekerID, valueobject.JobStatusCompleted)
	require.NoError(t, err)

	payment := h.state.payments[intent.Payment.ID]
	assert.Equal(t, valueobject.EscrowStatusReleased, payment.EscrowStatus)
	require.NotNil(t, payment.ReleaseReason)
	assert.Equal(t, valueobject.ReleaseReasonJobCompleted, *payment.ReleaseReason)

	balance, err := h.payments.Earnings(ctx, providerID)
	require.NoError(t, err)
	assert.Equal(t, 427.50, balance.Available)
}
