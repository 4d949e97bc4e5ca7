package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from    JobStatus
		to      JobStatus
		allowed bool
	}{
		{JobStatusOpen, JobStatusCancelled, true},
		{JobStatusOpen, JobStatusInProgress, true},
		{JobStatusOpen, JobStatusCompleted, false},
		{JobStatusInProgress, JobStatusCompleted, true},
		{JobStatusInProgress, JobStatusDisputed, true},
		{JobStatusInProgress, JobStatusCancelled, false},
		{JobStatusCompleted, JobStatusDisputed, true},
		{JobStatusCompleted, JobStatusOpen, false},
		{JobStatusDisputed, JobStatusCompleted, true},
		{JobStatusDisputed, JobStatusCancelled, true},
		{JobStatusDisputed, JobStatusOpen, false},
		{JobStatusCancelled, JobStatusOpen, false},
		{JobStatusCancelled, JobStatusDisputed, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
	assert.False(t, JobStatusDisputed.IsTerminal())
	assert.False(t, JobStatusOpen.IsTerminal())
	assert.False(t, JobStatusInProgress.IsTerminal())
}

func TestNewJobStatus(t *testing.T) {
	s, err := NewJobStatus("in_progress")
	assert.NoError(t, err)
	assert.Equal(t, JobStatusInProgress, s)

	_, err = NewJobStatus("done")
	assert.Error(t, err)
}

func TestQuoteStatusLive(t *testing.T) {
	assert.True(t, QuoteStatusPending.IsLive())
	assert.True(t, QuoteStatusAccepted.IsLive())
	assert.False(t, QuoteStatusRejected.IsLive())
	assert.False(t, QuoteStatusWithdrawn.IsLive())
	assert.False(t, QuoteStatusExpired.IsLive())
}

func TestPaymentStatusActive(t *testing.T) {
	assert.True(t, PaymentStatusPending.IsActive())
	assert.True(t, PaymentStatusAuthorized.IsActive())
	assert.True(t, PaymentStatusCaptured.IsActive())
	assert.False(t, PaymentStatusReleased.IsActive())
	assert.False(t, PaymentStatusRefunded.IsActive())
	assert.False(t, PaymentStatusFailed.IsActive())
	assert.False(t, PaymentStatusDisputed.IsActive())
}

func TestNewPaymentType(t *testing.T) {
	for _, valid := range []string{"deposit", "milestone", "final", "full"} {
		pt, err := NewPaymentType(valid)
		assert.NoError(t, err)
		assert.Equal(t, PaymentType(valid), pt)
	}

	_, err := NewPaymentType("tip")
	assert.Error(t, err)
}
