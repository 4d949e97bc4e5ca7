package valueobject

import "github.com/winnipeg-connect/backend/internal/pkg/apperror"

type JobStatus string

const (
	JobStatusOpen       JobStatus = "open"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusDisputed   JobStatus = "disputed"
)

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusOpen, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled, JobStatusDisputed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
// Disputed is recoverable and therefore not terminal.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// CanTransitionTo enumerates the full job transition table. in_progress is
// reachable only through quote acceptance, never through a direct status
// update; callers enforce that separately via the system flag.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusOpen:
		return next == JobStatusCancelled || next == JobStatusInProgress
	case JobStatusInProgress:
		return next == JobStatusCompleted || next == JobStatusDisputed
	case JobStatusCompleted:
		return next == JobStatusDisputed
	case JobStatusDisputed:
		return next == JobStatusCompleted || next == JobStatusCancelled
	case JobStatusCancelled:
		return false
	}
	return false
}

func NewJobStatus(status string) (JobStatus, error) {
	s := JobStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "invalid job status")
	}
	return s, nil
}

type QuoteStatus string

const (
	QuoteStatusPending   QuoteStatus = "pending"
	QuoteStatusAccepted  QuoteStatus = "accepted"
	QuoteStatusRejected  QuoteStatus = "rejected"
	QuoteStatusWithdrawn QuoteStatus = "withdrawn"
	QuoteStatusExpired   QuoteStatus = "expired"
)

func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusPending, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusWithdrawn, QuoteStatusExpired:
		return true
	}
	return false
}

// IsLive reports whether the quote still blocks a new submission by the
// same provider on the same job.
func (s QuoteStatus) IsLive() bool {
	return s == QuoteStatusPending || s == QuoteStatusAccepted
}

func NewQuoteStatus(status string) (QuoteStatus, error) {
	s := QuoteStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "invalid quote status")
	}
	return s, nil
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusReleased   PaymentStatus = "released"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusDisputed   PaymentStatus = "disputed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusAuthorized, PaymentStatusCaptured,
		PaymentStatusReleased, PaymentStatusRefunded, PaymentStatusFailed, PaymentStatusDisputed:
		return true
	}
	return false
}

// IsActive reports whether the payment still counts against the one active
// payment per (quote, phase) constraint.
func (s PaymentStatus) IsActive() bool {
	return s == PaymentStatusPending || s == PaymentStatusAuthorized || s == PaymentStatusCaptured
}

// EscrowStatus tracks fund custody independently of the gateway-facing
// payment status.
type EscrowStatus string

const (
	EscrowStatusNone     EscrowStatus = ""
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
	EscrowStatusDisputed EscrowStatus = "disputed"
)

type PaymentType string

const (
	PaymentTypeDeposit   PaymentType = "deposit"
	PaymentTypeMilestone PaymentType = "milestone"
	PaymentTypeFinal     PaymentType = "final"
	PaymentTypeFull      PaymentType = "full"
)

func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeDeposit, PaymentTypeMilestone, PaymentTypeFinal, PaymentTypeFull:
		return true
	}
	return false
}

func NewPaymentType(t string) (PaymentType, error) {
	pt := PaymentType(t)
	if !pt.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "invalid payment type")
	}
	return pt, nil
}

type ReleaseReason string

const (
	ReleaseReasonJobCompleted    ReleaseReason = "job_completed"
	ReleaseReasonMutualAgreement ReleaseReason = "mutual_agreement"
	ReleaseReasonAutoRelease     ReleaseReason = "auto_release"
	ReleaseReasonAdminRelease    ReleaseReason = "admin_release"
)

func (r ReleaseReason) IsValid() bool {
	switch r {
	case ReleaseReasonJobCompleted, ReleaseReasonMutualAgreement, ReleaseReasonAutoRelease, ReleaseReasonAdminRelease:
		return true
	}
	return false
}

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusClosed      DisputeStatus = "closed"
)
