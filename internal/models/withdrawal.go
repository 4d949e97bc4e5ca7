package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusRejected   = "rejected"
)

// Withdrawal is a provider payout request against available earnings.
type Withdrawal struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ProviderID      uuid.UUID  `db:"provider_id" json:"provider_id"`
	Amount          float64    `db:"amount" json:"amount"`
	Status          string     `db:"status" json:"status"`
	AccountLast4    *string    `db:"account_last4" json:"account_last4,omitempty"`
	BankName        *string    `db:"bank_name" json:"bank_name,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt     *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}
