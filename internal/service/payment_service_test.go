package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
	"github.com/winnipeg-connect/backend/internal/gateway"
	"github.com/winnipeg-connect/backend/internal/logger"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
	"github.com/winnipeg-connect/backend/internal/repository"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	m.Run()
}

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Payment, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) SetIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	args := m.Called(ctx, id, intentID)
	return args.Error(0)
}

func (m *mockPaymentRepo) MarkCaptured(ctx context.Context, id uuid.UUID, holdUntil time.Time) (*models.Payment, error) {
	args := m.Called(ctx, id, holdUntil)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPaymentRepo) AddApproval(ctx context.Context, paymentID uuid.UUID, approval *models.PaymentApproval) (bool, *models.Payment, error) {
	args := m.Called(ctx, paymentID, approval)
	var p *models.Payment
	if args.Get(1) != nil {
		p = args.Get(1).(*models.Payment)
	}
	return args.Bool(0), p, args.Error(2)
}

func (m *mockPaymentRepo) ListApprovals(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentApproval, error) {
	args := m.Called(ctx, paymentID)
	return args.Get(0).([]models.PaymentApproval), args.Error(1)
}

func (m *mockPaymentRepo) Release(ctx context.Context, id uuid.UUID, reason valueobject.ReleaseReason, force bool) (*models.Payment, error) {
	args := m.Called(ctx, id, reason, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) Refund(ctx context.Context, id uuid.UUID, amount float64, reason string, gatewayRefundID string, force bool) (*models.Payment, error) {
	args := m.Called(ctx, id, amount, reason, gatewayRefundID, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) Dispute(ctx context.Context, id uuid.UUID, userID uuid.UUID, reason string) (*models.Payment, error) {
	args := m.Called(ctx, id, userID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) GetEarnings(ctx context.Context, providerID uuid.UUID) (*models.ProviderEarnings, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderEarnings), args.Error(1)
}

func (m *mockPaymentRepo) ListEarningsEntries(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.EarningsEntry, error) {
	args := m.Called(ctx, providerID, limit, offset)
	return args.Get(0).([]models.EarningsEntry), args.Error(1)
}

func (m *mockPaymentRepo) RecomputeEarnings(ctx context.Context, providerID uuid.UUID) (*models.ProviderEarnings, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderEarnings), args.Error(1)
}

type mockQuoteReader struct {
	mock.Mock
}

func (m *mockQuoteReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

type mockJobReader struct {
	mock.Mock
}

func (m *mockJobReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*gateway.Intent, error) {
	args := m.Called(ctx, amountMinor, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func (m *mockGateway) Capture(ctx context.Context, intentID string) error {
	args := m.Called(ctx, intentID)
	return args.Error(0)
}

func (m *mockGateway) Refund(ctx context.Context, intentID string, amountMinor int64) (string, error) {
	args := m.Called(ctx, intentID, amountMinor)
	return args.String(0), args.Error(1)
}

func newPaymentFixture() (*PaymentService, *mockPaymentRepo, *mockQuoteReader, *mockJobReader, *mockGateway) {
	payments := new(mockPaymentRepo)
	quotes := new(mockQuoteReader)
	jobs := new(mockJobReader)
	gw := new(mockGateway)
	svc := NewPaymentService(payments, quotes, jobs, gw, "CAD", 72*time.Hour)
	return svc, payments, quotes, jobs, gw
}

func acceptedQuote(seekerID, providerID uuid.UUID) *models.Quote {
	return &models.Quote{
		ID:         uuid.New(),
		JobID:      uuid.New(),
		SeekerID:   seekerID,
		ProviderID: providerID,
		Amount:     450,
		Status:     valueobject.QuoteStatusAccepted,
	}
}

func heldPayment(payerID, payeeID uuid.UUID) *models.Payment {
	intentID := "pi_test"
	return &models.Payment{
		ID:                   uuid.New(),
		JobID:                uuid.New(),
		QuoteID:              uuid.New(),
		PayerID:              payerID,
		PayeeID:              payeeID,
		Subtotal:             450,
		PlatformFee:          22.50,
		ProcessorFee:         14.00,
		Total:                486.50,
		Status:               valueobject.PaymentStatusCaptured,
		EscrowStatus:         valueobject.EscrowStatusHeld,
		GatewayIntentID:      &intentID,
		RequiresBothApproval: true,
	}
}

func TestPaymentService_CreateIntent_Deposit(t *testing.T) {
	svc, payments, quotes, _, gw := newPaymentFixture()
	ctx := context.Background()
	seekerID := uuid.New()
	quote := acceptedQuote(seekerID, uuid.New())

	quotes.On("GetByID", ctx, quote.ID).Return(quote, nil)
	payments.On("Create", ctx, mock.AnythingOfType("*models.Payment")).Return(nil)
	gw.On("CreateIntent", ctx, int64(24340), "CAD", mock.Anything).
		Return(&gateway.Intent{IntentID: "pi_1", ClientSecret: "secret_1"}, nil)
	payments.On("SetIntent", ctx, mock.Anything, "pi_1").Return(nil)

	result, err := svc.CreateIntent(ctx, CreatePaymentInput{
		QuoteID:     quote.ID,
		PayerID:     seekerID,
		PaymentType: "deposit",
	})
	assert.NoError(t, err)
	assert.Equal(t, 225.0, result.Payment.Subtotal)
	assert.Equal(t, 11.25, result.Payment.PlatformFee)
	assert.Equal(t, 7.15, result.Payment.ProcessorFee)
	assert.Equal(t, 243.40, result.Payment.Total)
	assert.True(t, result.Payment.RequiresBothApproval)
	assert.Equal(t, "secret_1", result.ClientSecret)
	payments.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestPaymentService_CreateIntent_DuplicatePhase(t *testing.T) {
	svc, payments, quotes, _, _ := newPaymentFixture()
	ctx := context.Background()
	seekerID := uuid.New()
	quote := acceptedQuote(seekerID, uuid.New())

	quotes.On("GetByID", ctx, quote.ID).Return(quote, nil)
	payments.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)

	_, err := svc.CreateIntent(ctx, CreatePaymentInput{
		QuoteID:     quote.ID,
		PayerID:     seekerID,
		PaymentType: "full",
	})
	assert.ErrorIs(t, err, apperror.ErrPaymentAlreadyExists)
}

func TestPaymentService_CreateIntent_RequiresAcceptedQuote(t *testing.T) {
	svc, _, quotes, _, _ := newPaymentFixture()
	ctx := context.Background()
	seekerID := uuid.New()
	quote := acceptedQuote(seekerID, uuid.New())
	quote.Status = valueobject.QuoteStatusPending

	quotes.On("GetByID", ctx, quote.ID).Return(quote, nil)

	_, err := svc.CreateIntent(ctx, CreatePaymentInput{
		QuoteID:     quote.ID,
		PayerID:     seekerID,
		PaymentType: "full",
	})
	assert.True(t, apperror.IsConflict(err))
}

func TestPaymentService_CreateIntent_OnlySeekerPays(t *testing.T) {
	svc, _, quotes, _, _ := newPaymentFixture()
	ctx := context.Background()
	quote := acceptedQuote(uuid.New(), uuid.New())

	quotes.On("GetByID", ctx, quote.ID).Return(quote, nil)

	_, err := svc.CreateIntent(ctx, CreatePaymentInput{
		QuoteID:     quote.ID,
		PayerID:     quote.ProviderID,
		PaymentType: "full",
	})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestPaymentService_Confirm_CapturesIntoEscrow(t *testing.T) {
	svc, payments, _, _, gw := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())
	payment.Status = valueobject.PaymentStatusPending
	payment.EscrowStatus = valueobject.EscrowStatusNone

	captured := *payment
	captured.Status = valueobject.PaymentStatusCaptured
	captured.EscrowStatus = valueobject.EscrowStatusHeld

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	gw.On("Capture", ctx, "pi_test").Return(nil)
	payments.On("MarkCaptured", ctx, payment.ID, mock.AnythingOfType("time.Time")).Return(&captured, nil)

	got, err := svc.Confirm(ctx, payment.ID, payerID)
	assert.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusHeld, got.EscrowStatus)
	payments.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestPaymentService_Confirm_Idempotent(t *testing.T) {
	svc, payments, _, _, gw := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	got, err := svc.Confirm(ctx, payment.ID, payerID)
	assert.NoError(t, err)
	assert.Equal(t, payment, got)
	gw.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)
}

func TestPaymentService_Confirm_GatewayFailureLeavesPending(t *testing.T) {
	svc, payments, _, _, gw := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())
	payment.Status = valueobject.PaymentStatusPending
	payment.EscrowStatus = valueobject.EscrowStatusNone

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	gw.On("Capture", ctx, "pi_test").Return(errors.New("gateway timeout"))

	_, err := svc.Confirm(ctx, payment.ID, payerID)
	assert.Error(t, err)
	payments.AssertNotCalled(t, "MarkCaptured", mock.Anything, mock.Anything, mock.Anything)
	payments.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
}

func TestPaymentService_Confirm_DeclinedChargeFails(t *testing.T) {
	svc, payments, _, _, gw := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())
	payment.Status = valueobject.PaymentStatusPending
	payment.EscrowStatus = valueobject.EscrowStatusNone

	declined := apperror.Wrap(&gateway.DeclinedError{Reason: "card_declined"}, apperror.ErrCodeGateway, "gateway declined the request")

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	gw.On("Capture", ctx, "pi_test").Return(declined)
	payments.On("MarkFailed", ctx, payment.ID).Return(nil)

	_, err := svc.Confirm(ctx, payment.ID, payerID)
	assert.Error(t, err)
	payments.AssertCalled(t, "MarkFailed", ctx, payment.ID)
	payments.AssertNotCalled(t, "MarkCaptured", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_CreateIntent_DeclinedIntentFails(t *testing.T) {
	svc, payments, quotes, _, gw := newPaymentFixture()
	ctx := context.Background()
	seekerID := uuid.New()
	quote := acceptedQuote(seekerID, uuid.New())

	declined := apperror.Wrap(&gateway.DeclinedError{Reason: "amount_too_large"}, apperror.ErrCodeGateway, "gateway declined the request")

	quotes.On("GetByID", ctx, quote.ID).Return(quote, nil)
	payments.On("Create", ctx, mock.Anything).Return(nil)
	gw.On("CreateIntent", ctx, mock.Anything, "CAD", mock.Anything).Return(nil, declined)
	payments.On("MarkFailed", ctx, mock.Anything).Return(nil)

	_, err := svc.CreateIntent(ctx, CreatePaymentInput{
		QuoteID:     quote.ID,
		PayerID:     seekerID,
		PaymentType: "deposit",
	})
	assert.Error(t, err)
	// A definitive decline terminates the record and frees the phase slot.
	payments.AssertCalled(t, "MarkFailed", ctx, mock.Anything)
	payments.AssertNotCalled(t, "SetIntent", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_ApproveRelease_FirstApprovalHolds(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())

	updated := *payment
	updated.SeekerApproval = true

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	payments.On("AddApproval", ctx, payment.ID, mock.MatchedBy(func(a *models.PaymentApproval) bool {
		return a.UserID == payerID && a.UserType == models.ApprovalPartySeeker
	})).Return(true, &updated, nil)

	got, err := svc.ApproveRelease(ctx, payment.ID, payerID, nil)
	assert.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusHeld, got.EscrowStatus)
	payments.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_ApproveRelease_SecondApprovalReleases(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payeeID := uuid.New()
	payment := heldPayment(uuid.New(), payeeID)
	payment.SeekerApproval = true

	updated := *payment
	updated.ProviderConfirmation = true

	released := updated
	released.Status = valueobject.PaymentStatusReleased
	released.EscrowStatus = valueobject.EscrowStatusReleased

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	payments.On("AddApproval", ctx, payment.ID, mock.MatchedBy(func(a *models.PaymentApproval) bool {
		return a.UserID == payeeID && a.UserType == models.ApprovalPartyProvider
	})).Return(true, &updated, nil)
	payments.On("Release", ctx, payment.ID, valueobject.ReleaseReasonMutualAgreement, false).Return(&released, nil)

	got, err := svc.ApproveRelease(ctx, payment.ID, payeeID, nil)
	assert.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, got.EscrowStatus)
	payments.AssertExpectations(t)
}

func TestPaymentService_ApproveRelease_Idempotent(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())
	payment.SeekerApproval = true

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	payments.On("AddApproval", ctx, payment.ID, mock.Anything).Return(false, payment, nil)

	_, err := svc.ApproveRelease(ctx, payment.ID, payerID, nil)
	assert.ErrorIs(t, err, apperror.ErrAlreadyApproved)
}

func TestPaymentService_ApproveRelease_RequiresHeldFunds(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())
	payment.Status = valueobject.PaymentStatusReleased
	payment.EscrowStatus = valueobject.EscrowStatusReleased

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := svc.ApproveRelease(ctx, payment.ID, payerID, nil)
	assert.ErrorIs(t, err, apperror.ErrEscrowNotHeld)
}

func TestPaymentService_Release_RequiresSatisfiedPredicate(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())
	payment.SeekerApproval = true

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := svc.Release(ctx, payment.ID, payerID)
	assert.True(t, apperror.IsConflict(err))
	payments.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_Refund_WhileHeld(t *testing.T) {
	svc, payments, _, _, gw := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())

	refunded := *payment
	refunded.Status = valueobject.PaymentStatusRefunded
	refunded.EscrowStatus = valueobject.EscrowStatusRefunded

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	gw.On("Refund", ctx, "pi_test", int64(48650)).Return("re_1", nil)
	payments.On("Refund", ctx, payment.ID, 486.50, "changed my mind", "re_1", false).Return(&refunded, nil)

	got, err := svc.Refund(ctx, payment.ID, payerID, "changed my mind")
	assert.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusRefunded, got.EscrowStatus)
	payments.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestPaymentService_Refund_BlockedAfterRelease(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())
	payment.Status = valueobject.PaymentStatusReleased
	payment.EscrowStatus = valueobject.EscrowStatusReleased

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := svc.Refund(ctx, payment.ID, payerID, "too late")
	assert.ErrorIs(t, err, apperror.ErrCannotRefund)
}

func TestPaymentService_Refund_OnlyPayer(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payeeID := uuid.New()
	payment := heldPayment(uuid.New(), payeeID)

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := svc.Refund(ctx, payment.ID, payeeID, "nope")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestPaymentService_Dispute(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())

	disputed := *payment
	disputed.Status = valueobject.PaymentStatusDisputed
	disputed.Disputed = true

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	payments.On("Dispute", ctx, payment.ID, payerID, "work not done").Return(&disputed, nil)

	got, err := svc.Dispute(ctx, payment.ID, payerID, "work not done")
	assert.NoError(t, err)
	assert.True(t, got.Disputed)
	// Disputing freezes the funds in escrow.
	assert.Equal(t, valueobject.EscrowStatusHeld, got.EscrowStatus)
}

func TestPaymentService_Dispute_RequiresReason(t *testing.T) {
	svc, _, _, _, _ := newPaymentFixture()

	_, err := svc.Dispute(context.Background(), uuid.New(), uuid.New(), "")
	assert.True(t, apperror.IsValidation(err))
}

func TestPaymentService_Dispute_OncePerPayment(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payerID := uuid.New()
	payment := heldPayment(payerID, uuid.New())
	payment.Disputed = true

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := svc.Dispute(ctx, payment.ID, payerID, "again")
	assert.True(t, apperror.IsConflict(err))
}

func TestPaymentService_ResolveDispute_Release(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payment := heldPayment(uuid.New(), uuid.New())
	payment.Status = valueobject.PaymentStatusDisputed
	payment.Disputed = true

	released := *payment
	released.Status = valueobject.PaymentStatusReleased
	released.EscrowStatus = valueobject.EscrowStatusReleased

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	// Admin resolution bypasses the dual-approval predicate; the repository
	// settles the dispute in the same transaction.
	payments.On("Release", ctx, payment.ID, valueobject.ReleaseReasonAdminRelease, true).Return(&released, nil)

	got, err := svc.ResolveDispute(ctx, payment.ID, ResolutionRelease, "provider delivered")
	assert.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, got.EscrowStatus)
	payments.AssertExpectations(t)
}

func TestPaymentService_ResolveDispute_Refund(t *testing.T) {
	svc, payments, _, _, gw := newPaymentFixture()
	ctx := context.Background()
	payment := heldPayment(uuid.New(), uuid.New())
	payment.Status = valueobject.PaymentStatusDisputed
	payment.Disputed = true

	refunded := *payment
	refunded.Status = valueobject.PaymentStatusRefunded
	refunded.EscrowStatus = valueobject.EscrowStatusRefunded

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	gw.On("Refund", ctx, "pi_test", int64(48650)).Return("re_2", nil)
	payments.On("Refund", ctx, payment.ID, 486.50, "work never started", "re_2", true).Return(&refunded, nil)

	got, err := svc.ResolveDispute(ctx, payment.ID, ResolutionRefund, "work never started")
	assert.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusRefunded, got.EscrowStatus)
}

func TestPaymentService_ResolveDispute_GatewayFailureLeavesDisputeOpen(t *testing.T) {
	svc, payments, _, _, gw := newPaymentFixture()
	ctx := context.Background()
	payment := heldPayment(uuid.New(), uuid.New())
	payment.Status = valueobject.PaymentStatusDisputed
	payment.Disputed = true

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	gw.On("Refund", ctx, "pi_test", int64(48650)).Return("", errors.New("gateway timeout"))

	_, err := svc.ResolveDispute(ctx, payment.ID, ResolutionRefund, "work never started")
	assert.Error(t, err)
	// Nothing about the payment may change before the gateway succeeded.
	payments.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_ResolveDispute_InvalidResolution(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payment := heldPayment(uuid.New(), uuid.New())
	payment.Status = valueobject.PaymentStatusDisputed
	payment.Disputed = true

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := svc.ResolveDispute(ctx, payment.ID, "split", "half each")
	assert.True(t, apperror.IsValidation(err))
	payments.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_ResolveDispute_RequiresDispute(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	payment := heldPayment(uuid.New(), uuid.New())

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := svc.ResolveDispute(ctx, payment.ID, ResolutionRelease, "")
	assert.True(t, apperror.IsConflict(err))
}

func TestPaymentService_ReleaseJobPayments_CompletionRecordsApproval(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	jobID := uuid.New()
	seekerID := uuid.New()

	held := *heldPayment(seekerID, uuid.New())

	approved := held
	approved.SeekerApproval = true

	payments.On("ListByJob", ctx, jobID).Return([]models.Payment{held}, nil)
	payments.On("AddApproval", ctx, held.ID, mock.MatchedBy(func(a *models.PaymentApproval) bool {
		return a.UserID == seekerID && a.UserType == models.ApprovalPartySeeker
	})).Return(true, &approved, nil)

	err := svc.ReleaseJobPayments(ctx, jobID, seekerID)
	assert.NoError(t, err)
	// One-sided completion leaves the funds held, but never with zero
	// approvals: the confirming party's consent is on record.
	payments.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_ReleaseJobPayments_ReleasesWhenOtherSideApproved(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	jobID := uuid.New()
	seekerID := uuid.New()

	held := *heldPayment(seekerID, uuid.New())
	held.ProviderConfirmation = true

	approved := held
	approved.SeekerApproval = true

	released := approved
	released.Status = valueobject.PaymentStatusReleased
	released.EscrowStatus = valueobject.EscrowStatusReleased

	payments.On("ListByJob", ctx, jobID).Return([]models.Payment{held}, nil)
	payments.On("AddApproval", ctx, held.ID, mock.Anything).Return(true, &approved, nil)
	payments.On("Release", ctx, held.ID, valueobject.ReleaseReasonJobCompleted, false).Return(&released, nil)

	err := svc.ReleaseJobPayments(ctx, jobID, seekerID)
	assert.NoError(t, err)
	payments.AssertNumberOfCalls(t, "Release", 1)
}

func TestPaymentService_ReleaseJobPayments_SkipsDisputedAndSettled(t *testing.T) {
	svc, payments, _, _, _ := newPaymentFixture()
	ctx := context.Background()
	jobID := uuid.New()
	seekerID := uuid.New()

	disputed := *heldPayment(seekerID, uuid.New())
	disputed.Status = valueobject.PaymentStatusDisputed
	disputed.Disputed = true

	settled := *heldPayment(seekerID, uuid.New())
	settled.Status = valueobject.PaymentStatusReleased
	settled.EscrowStatus = valueobject.EscrowStatusReleased

	payments.On("ListByJob", ctx, jobID).Return([]models.Payment{disputed, settled}, nil)

	err := svc.ReleaseJobPayments(ctx, jobID, seekerID)
	assert.NoError(t, err)
	payments.AssertNotCalled(t, "AddApproval", mock.Anything, mock.Anything, mock.Anything)
	payments.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
