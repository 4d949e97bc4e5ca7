package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
)

// Approval party types.
const (
	ApprovalPartySeeker   = "seeker"
	ApprovalPartyProvider = "provider"
)

// Payment is one funds-movement unit tied to exactly one accepted quote.
// Status follows the gateway; EscrowStatus tracks fund custody separately.
type Payment struct {
	ID          uuid.UUID                 `db:"id" json:"id"`
	JobID       uuid.UUID                 `db:"job_id" json:"job_id"`
	QuoteID     uuid.UUID                 `db:"quote_id" json:"quote_id"`
	PayerID     uuid.UUID                 `db:"payer_id" json:"payer_id"`
	PayeeID     uuid.UUID                 `db:"payee_id" json:"payee_id"`
	PaymentType valueobject.PaymentType   `db:"payment_type" json:"payment_type"`
	Currency    string                    `db:"currency" json:"currency"`

	// Amount breakdown: each component is computed once at intent creation
	// and stored, never re-derived.
	Subtotal     float64 `db:"subtotal" json:"subtotal"`
	PlatformFee  float64 `db:"platform_fee" json:"platform_fee"`
	ProcessorFee float64 `db:"processor_fee" json:"processor_fee"`
	Total        float64 `db:"total" json:"total"`

	Status       valueobject.PaymentStatus `db:"status" json:"status"`
	EscrowStatus valueobject.EscrowStatus  `db:"escrow_status" json:"escrow_status,omitempty"`

	GatewayIntentID *string    `db:"gateway_intent_id" json:"gateway_intent_id,omitempty"`
	GatewayRefundID *string    `db:"gateway_refund_id" json:"gateway_refund_id,omitempty"`
	HoldUntil       *time.Time `db:"hold_until" json:"hold_until,omitempty"`

	// Release conditions.
	RequiresBothApproval bool                       `db:"requires_both_approval" json:"requires_both_approval"`
	SeekerApproval       bool                       `db:"seeker_approval" json:"seeker_approval"`
	ProviderConfirmation bool                       `db:"provider_confirmation" json:"provider_confirmation"`
	ReleaseReason        *valueobject.ReleaseReason `db:"release_reason" json:"release_reason,omitempty"`
	ReleasedAt           *time.Time                 `db:"released_at" json:"released_at,omitempty"`

	RefundAmount *float64 `db:"refund_amount" json:"refund_amount,omitempty"`
	RefundReason *string  `db:"refund_reason" json:"refund_reason,omitempty"`

	// Dispute sub-record. Disputing flips Status to disputed but leaves
	// EscrowStatus untouched; resolution is an administrative step.
	Disputed      bool                       `db:"disputed" json:"disputed"`
	DisputeReason *string                    `db:"dispute_reason" json:"dispute_reason,omitempty"`
	DisputeStatus *valueobject.DisputeStatus `db:"dispute_status" json:"dispute_status,omitempty"`
	DisputedBy    *uuid.UUID                 `db:"disputed_by" json:"disputed_by,omitempty"`

	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
	Approvals []PaymentApproval `json:"approvals,omitempty"`
}

// PaymentApproval records one party's consent to release held funds.
// At most one row exists per (payment, user).
type PaymentApproval struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PaymentID uuid.UUID `db:"payment_id" json:"payment_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	UserType  string    `db:"user_type" json:"user_type"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CanRelease is the release predicate: funds must be held and either dual
// approval is waived or both parties have approved.
func (p *Payment) CanRelease() bool {
	if p.EscrowStatus != valueobject.EscrowStatusHeld {
		return false
	}
	if !p.RequiresBothApproval {
		return true
	}
	return p.SeekerApproval && p.ProviderConfirmation
}

// CanBeRefunded guards the refund transition: only captured-or-authorized
// payments whose funds are still held may be refunded.
func (p *Payment) CanBeRefunded() bool {
	if p.EscrowStatus != valueobject.EscrowStatusHeld {
		return false
	}
	return p.Status == valueobject.PaymentStatusAuthorized || p.Status == valueobject.PaymentStatusCaptured
}

// CanBeDisputed reports whether either party may still raise a dispute.
func (p *Payment) CanBeDisputed() bool {
	return p.EscrowStatus == valueobject.EscrowStatusHeld && !p.Disputed
}

// IsParticipant reports whether the user is payer or payee.
func (p *Payment) IsParticipant(userID uuid.UUID) bool {
	return p.PayerID == userID || p.PayeeID == userID
}

// HasApprovedRelease reports whether the given party's release flag is
// already set. Non-participants never count as approved.
func (p *Payment) HasApprovedRelease(userID uuid.UUID) bool {
	switch userID {
	case p.PayerID:
		return p.SeekerApproval
	case p.PayeeID:
		return p.ProviderConfirmation
	}
	return false
}

// Net is the payee credit on release: subtotal minus platform fee.
func (p *Payment) Net() float64 {
	return valueobject.Round2(p.Subtotal - p.PlatformFee)
}
