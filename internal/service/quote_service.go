package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
	"github.com/winnipeg-connect/backend/internal/logger"
	"github.com/winnipeg-connect/backend/internal/metrics"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
	"github.com/winnipeg-connect/backend/internal/repository"
)

// QuoteRepository describes the quote storage contract of the service.
type QuoteRepository interface {
	Create(ctx context.Context, quote *models.Quote) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	GetByIDWithItems(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Quote, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.Quote, error)
	GetLiveByJobAndProvider(ctx context.Context, jobID, providerID uuid.UUID) (*models.Quote, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.QuoteStatus) (*models.Quote, error)
	Accept(ctx context.Context, jobID, quoteID, providerID uuid.UUID) (*models.Quote, error)
	MarkExpired(ctx context.Context, id uuid.UUID) error
}

// JobReader is the minimal job access quotes need.
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// ChatEmitter posts system messages into the job conversation.
type ChatEmitter interface {
	EmitSystemMessage(ctx context.Context, jobID, seekerID, providerID uuid.UUID, systemType string, payload interface{}) error
}

// QuoteService implements the quote lifecycle: submission with the
// one-live-quote rule, withdrawal, acceptance with atomic sibling rejection,
// and lazy expiry.
type QuoteService struct {
	quotes        QuoteRepository
	jobs          JobReader
	chat          ChatEmitter
	hub           WSNotifier
	quoteValidity time.Duration
}

func NewQuoteService(quotes QuoteRepository, jobs JobReader, quoteValidity time.Duration) *QuoteService {
	if quoteValidity <= 0 {
		quoteValidity = models.DefaultQuoteValidity
	}
	return &QuoteService{quotes: quotes, jobs: jobs, quoteValidity: quoteValidity}
}

// SetChat wires the conversation side-channel for system messages.
func (s *QuoteService) SetChat(chat ChatEmitter) {
	s.chat = chat
}

// SetHub wires the WebSocket hub for realtime events.
func (s *QuoteService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// SubmitQuoteInput carries the provider's proposal.
type SubmitQuoteInput struct {
	JobID             uuid.UUID
	ProviderID        uuid.UUID
	Amount            float64
	PriceType         string
	Message           string
	EstimatedDuration *string
	ProposedStartDate *time.Time
	SuppliesIncluded  bool
	WarrantyTerms     *string
	DepositRequired   bool
	Items             []models.QuoteItem
}

// Submit creates a quote against an open job. A provider keeps at most one
// live quote per job; a previously expired or withdrawn quote does not block
// resubmission.
func (s *QuoteService) Submit(ctx context.Context, in SubmitQuoteInput) (*models.Quote, error) {
	if in.Amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "quote amount must be positive")
	}
	if in.PriceType != models.QuotePriceFixed && in.PriceType != models.QuotePriceHourly {
		return nil, apperror.New(apperror.ErrCodeValidation, "invalid price type")
	}

	job, err := s.jobs.GetByID(ctx, in.JobID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if job.Status != valueobject.JobStatusOpen {
		return nil, apperror.ErrJobClosed
	}
	if job.IsOwnedBy(in.ProviderID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "cannot quote your own job")
	}

	// A pending quote past its window is expired on discovery, which frees
	// the slot for resubmission.
	if existing, err := s.quotes.GetLiveByJobAndProvider(ctx, in.JobID, in.ProviderID); err == nil && existing != nil {
		if existing.IsExpired(time.Now()) {
			if err := s.quotes.MarkExpired(ctx, existing.ID); err != nil {
				return nil, err
			}
		} else {
			return nil, apperror.ErrAlreadyQuoted
		}
	}

	quote := &models.Quote{
		JobID:             in.JobID,
		ProviderID:        in.ProviderID,
		SeekerID:          job.PostedBy,
		Amount:            in.Amount,
		PriceType:         in.PriceType,
		Message:           in.Message,
		EstimatedDuration: in.EstimatedDuration,
		ProposedStartDate: in.ProposedStartDate,
		SuppliesIncluded:  in.SuppliesIncluded,
		WarrantyTerms:     in.WarrantyTerms,
		DepositRequired:   in.DepositRequired,
		Status:            valueobject.QuoteStatusPending,
		ExpiresAt:         time.Now().Add(s.quoteValidity),
		Items:             in.Items,
	}

	if err := s.quotes.Create(ctx, quote); err != nil {
		if err == repository.ErrDuplicate {
			return nil, apperror.ErrAlreadyQuoted
		}
		return nil, err
	}

	metrics.QuotesSubmittedTotal.Inc()
	s.notifyUser(job.PostedBy, "quote.submitted", quote)

	return quote, nil
}

// Get returns a quote visible to one of its parties.
func (s *QuoteService) Get(ctx context.Context, quoteID, userID uuid.UUID) (*models.Quote, error) {
	quote, err := s.quotes.GetByIDWithItems(ctx, quoteID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if quote.ProviderID != userID && quote.SeekerID != userID {
		return nil, apperror.ErrForbidden
	}
	return quote, nil
}

// ListForJob returns the quotes on a job. The seeker sees all of them; a
// provider sees only their own.
func (s *QuoteService) ListForJob(ctx context.Context, jobID, userID uuid.UUID) ([]models.Quote, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	quotes, err := s.quotes.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsOwnedBy(userID) {
		return quotes, nil
	}

	own := make([]models.Quote, 0, 1)
	for _, q := range quotes {
		if q.ProviderID == userID {
			own = append(own, q)
		}
	}
	return own, nil
}

// ListMine returns all quotes submitted by a provider.
func (s *QuoteService) ListMine(ctx context.Context, providerID uuid.UUID) ([]models.Quote, error) {
	return s.quotes.ListByProvider(ctx, providerID)
}

// Accept lets the seeker pick a quote. The win is exclusive: the chosen
// quote flips to accepted, every sibling pending quote is rejected and the
// job moves to in_progress, all in one storage transaction.
func (s *QuoteService) Accept(ctx context.Context, jobID, quoteID, seekerID uuid.UUID) (*models.Quote, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !job.IsOwnedBy(seekerID) {
		return nil, apperror.ErrForbidden
	}
	if job.Status != valueobject.JobStatusOpen {
		return nil, apperror.ErrJobClosed
	}

	quote, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if quote.JobID != jobID {
		return nil, apperror.ErrQuoteNotFound
	}
	if quote.IsExpired(time.Now()) {
		if err := s.quotes.MarkExpired(ctx, quoteID); err != nil {
			return nil, err
		}
		return nil, apperror.ErrQuoteExpired
	}
	if quote.Status != valueobject.QuoteStatusPending {
		return nil, apperror.ErrInvalidTransition
	}

	accepted, err := s.quotes.Accept(ctx, jobID, quoteID, quote.ProviderID)
	if err != nil {
		if err == repository.ErrStaleState {
			// Lost the race: the job closed or the quote moved concurrently.
			return nil, apperror.ErrJobClosed
		}
		return nil, mapRepoError(err)
	}

	metrics.QuoteTransitionsTotal.WithLabelValues(string(valueobject.QuoteStatusAccepted)).Inc()
	metrics.JobTransitionsTotal.WithLabelValues(string(valueobject.JobStatusInProgress)).Inc()

	if s.chat != nil {
		if err := s.chat.EmitSystemMessage(ctx, jobID, seekerID, accepted.ProviderID,
			models.SystemMessageQuoteAccepted, accepted); err != nil {
			logger.Log.WithError(err).Warn("quote service: emit quote_accepted message")
		}
	}
	s.notifyUser(accepted.ProviderID, "quote.accepted", accepted)

	return accepted, nil
}

// Reject lets the seeker decline a single pending quote without touching the
// job or the provider's ability to resubmit later.
func (s *QuoteService) Reject(ctx context.Context, quoteID, seekerID uuid.UUID) (*models.Quote, error) {
	quote, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if quote.SeekerID != seekerID {
		return nil, apperror.ErrForbidden
	}
	if quote.Status != valueobject.QuoteStatusPending {
		return nil, apperror.ErrInvalidTransition
	}

	rejected, err := s.quotes.UpdateStatus(ctx, quoteID, valueobject.QuoteStatusPending, valueobject.QuoteStatusRejected)
	if err != nil {
		if err == repository.ErrStaleState {
			return nil, apperror.ErrInvalidTransition
		}
		return nil, mapRepoError(err)
	}

	metrics.QuoteTransitionsTotal.WithLabelValues(string(valueobject.QuoteStatusRejected)).Inc()
	s.notifyUser(rejected.ProviderID, "quote.rejected", rejected)

	return rejected, nil
}

// Withdraw lets the provider retract a pending quote. Withdrawn quotes do
// not block resubmission.
func (s *QuoteService) Withdraw(ctx context.Context, quoteID, providerID uuid.UUID) (*models.Quote, error) {
	quote, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !quote.IsOwnedBy(providerID) {
		return nil, apperror.ErrForbidden
	}
	if quote.Status != valueobject.QuoteStatusPending {
		return nil, apperror.ErrInvalidTransition
	}

	withdrawn, err := s.quotes.UpdateStatus(ctx, quoteID, valueobject.QuoteStatusPending, valueobject.QuoteStatusWithdrawn)
	if err != nil {
		if err == repository.ErrStaleState {
			return nil, apperror.ErrInvalidTransition
		}
		return nil, mapRepoError(err)
	}

	metrics.QuoteTransitionsTotal.WithLabelValues(string(valueobject.QuoteStatusWithdrawn)).Inc()
	s.notifyUser(withdrawn.SeekerID, "quote.withdrawn", withdrawn)

	return withdrawn, nil
}

func (s *QuoteService) notifyUser(userID uuid.UUID, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.BroadcastToUser(userID, event, data); err != nil {
		logger.Log.WithError(err).WithField("event", event).Debug("quote service: ws broadcast")
	}
}
