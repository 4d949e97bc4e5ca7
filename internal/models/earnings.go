package models

import (
	"time"

	"github.com/google/uuid"
)

// Earnings entry types. Every balance change is an appended entry; balances
// are maintained in the same transaction and can be rebuilt from entries.
const (
	EarningsEntryEscrowHold    = "escrow_hold"
	EarningsEntryEscrowRelease = "escrow_release"
	EarningsEntryEscrowRefund  = "escrow_refund"
	EarningsEntryWithdrawal    = "withdrawal"
)

// ProviderEarnings is the materialized balance view for one provider.
// Pending covers funds held in escrow, available is withdrawable, total is
// lifetime released earnings.
type ProviderEarnings struct {
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	Total      float64   `db:"total" json:"total"`
	Pending    float64   `db:"pending" json:"pending"`
	Available  float64   `db:"available" json:"available"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// EarningsEntry is one immutable row of the provider earnings ledger.
type EarningsEntry struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ProviderID uuid.UUID  `db:"provider_id" json:"provider_id"`
	PaymentID  *uuid.UUID `db:"payment_id" json:"payment_id,omitempty"`
	JobID      *uuid.UUID `db:"job_id" json:"job_id,omitempty"`
	Type       string     `db:"type" json:"type"`
	Amount     float64    `db:"amount" json:"amount"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
