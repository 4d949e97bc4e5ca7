package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
)

// Quote price types.
const (
	QuotePriceFixed  = "fixed"
	QuotePriceHourly = "hourly"
)

// DefaultQuoteValidity is how long a quote stays valid after submission
// unless configured otherwise.
const DefaultQuoteValidity = 7 * 24 * time.Hour

// Quote is a provider's priced, time-bound proposal against a job.
type Quote struct {
	ID                uuid.UUID               `db:"id" json:"id"`
	JobID             uuid.UUID               `db:"job_id" json:"job_id"`
	ProviderID        uuid.UUID               `db:"provider_id" json:"provider_id"`
	SeekerID          uuid.UUID               `db:"seeker_id" json:"seeker_id"`
	Amount            float64                 `db:"amount" json:"amount"`
	PriceType         string                  `db:"price_type" json:"price_type"`
	Message           string                  `db:"message" json:"message"`
	EstimatedDuration *string                 `db:"estimated_duration" json:"estimated_duration,omitempty"`
	ProposedStartDate *time.Time              `db:"proposed_start_date" json:"proposed_start_date,omitempty"`
	SuppliesIncluded  bool                    `db:"supplies_included" json:"supplies_included"`
	WarrantyTerms     *string                 `db:"warranty_terms" json:"warranty_terms,omitempty"`
	DepositRequired   bool                    `db:"deposit_required" json:"deposit_required"`
	Status            valueobject.QuoteStatus `db:"status" json:"status"`
	ExpiresAt         time.Time               `db:"expires_at" json:"expires_at"`
	CreatedAt         time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time               `db:"updated_at" json:"updated_at"`
	Items             []QuoteItem             `json:"items,omitempty"`
}

// QuoteItem is one line of an optional itemized price breakdown.
type QuoteItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	QuoteID     uuid.UUID `db:"quote_id" json:"quote_id"`
	Description string    `db:"description" json:"description"`
	Amount      float64   `db:"amount" json:"amount"`
}

// IsValid reports whether the quote is still acceptable: pending and not
// past its expiry. Expiry is evaluated lazily; there is no background sweep.
func (q *Quote) IsValid(now time.Time) bool {
	return q.Status == valueobject.QuoteStatusPending && now.Before(q.ExpiresAt)
}

// IsExpired reports whether a pending quote sat past its validity window.
func (q *Quote) IsExpired(now time.Time) bool {
	return q.Status == valueobject.QuoteStatusPending && !now.Before(q.ExpiresAt)
}

// IsOwnedBy reports whether the given provider authored this quote.
func (q *Quote) IsOwnedBy(userID uuid.UUID) bool {
	return q.ProviderID == userID
}
