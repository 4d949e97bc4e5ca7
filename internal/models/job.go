package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
)

// Budget types a job can carry.
const (
	BudgetTypeFixed  = "fixed"
	BudgetTypeHourly = "hourly"
	BudgetTypeRange  = "range"
)

// Job priorities.
const (
	JobPriorityLow    = "low"
	JobPriorityNormal = "normal"
	JobPriorityHigh   = "high"
	JobPriorityUrgent = "urgent"
)

var ValidBudgetTypes = map[string]struct{}{
	BudgetTypeFixed:  {},
	BudgetTypeHourly: {},
	BudgetTypeRange:  {},
}

var ValidJobPriorities = map[string]struct{}{
	JobPriorityLow:    {},
	JobPriorityNormal: {},
	JobPriorityHigh:   {},
	JobPriorityUrgent: {},
}

// Job is the unit of work posted by a seeker.
type Job struct {
	ID               uuid.UUID               `db:"id" json:"id"`
	PostedBy         uuid.UUID               `db:"posted_by" json:"posted_by"`
	CategoryID       *uuid.UUID              `db:"category_id" json:"category_id,omitempty"`
	Title            string                  `db:"title" json:"title"`
	Description      string                  `db:"description" json:"description"`
	BudgetType       string                  `db:"budget_type" json:"budget_type"`
	BudgetAmount     *float64                `db:"budget_amount" json:"budget_amount,omitempty"`
	BudgetMin        *float64                `db:"budget_min" json:"budget_min,omitempty"`
	BudgetMax        *float64                `db:"budget_max" json:"budget_max,omitempty"`
	Timeline         *string                 `db:"timeline" json:"timeline,omitempty"`
	Location         *string                 `db:"location" json:"location,omitempty"`
	Priority         string                  `db:"priority" json:"priority"`
	Status           valueobject.JobStatus   `db:"status" json:"status"`
	SelectedProvider *uuid.UUID              `db:"selected_provider" json:"selected_provider,omitempty"`
	SelectedQuote    *uuid.UUID              `db:"selected_quote" json:"selected_quote,omitempty"`
	CreatedAt        time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time               `db:"updated_at" json:"updated_at"`
	Requirements     []JobRequirement        `json:"requirements,omitempty"`
	QuotesCount      *int                    `db:"quotes_count" json:"quotes_count,omitempty"`
}

// JobRequirement is a skill or condition attached to a job posting.
type JobRequirement struct {
	ID    uuid.UUID `db:"id" json:"id"`
	JobID uuid.UUID `db:"job_id" json:"job_id"`
	Skill string    `db:"skill" json:"skill"`
	Level string    `db:"level" json:"level"`
}

// IsOwnedBy reports whether the given user posted this job.
func (j *Job) IsOwnedBy(userID uuid.UUID) bool {
	return j.PostedBy == userID
}

// HasSelectedProvider reports whether a quote was ever accepted. Jobs with a
// selected provider may only be soft-cancelled, never hard-deleted.
func (j *Job) HasSelectedProvider() bool {
	return j.SelectedProvider != nil
}
