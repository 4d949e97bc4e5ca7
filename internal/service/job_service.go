package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
	"github.com/winnipeg-connect/backend/internal/logger"
	"github.com/winnipeg-connect/backend/internal/metrics"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
	"github.com/winnipeg-connect/backend/internal/repository"
)

// JobRepository describes the job storage contract of the service.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job, requirements []models.JobRequirement) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetByIDWithRequirements(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, params repository.JobListParams) (*repository.JobListResult, error)
	Update(ctx context.Context, job *models.Job, requirements []models.JobRequirement) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.JobStatus) error
	Delete(ctx context.Context, id uuid.UUID, postedBy uuid.UUID) error
	ListMine(ctx context.Context, userID uuid.UUID) ([]models.Job, []models.Job, error)
}

// PaymentReleaser settles a completed job's escrow payments on behalf of the
// party who confirmed completion.
type PaymentReleaser interface {
	ReleaseJobPayments(ctx context.Context, jobID, completedBy uuid.UUID) error
}

// JobService implements the job lifecycle around the explicit transition
// table: open jobs collect quotes, in_progress is entered only through quote
// acceptance, and completion sweeps releasable escrow funds.
type JobService struct {
	jobs     JobRepository
	payments PaymentReleaser
	chat     ChatEmitter
	hub      WSNotifier
}

func NewJobService(jobs JobRepository) *JobService {
	return &JobService{jobs: jobs}
}

func (s *JobService) SetPayments(payments PaymentReleaser) {
	s.payments = payments
}

func (s *JobService) SetChat(chat ChatEmitter) {
	s.chat = chat
}

func (s *JobService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// CreateJobInput carries a new job posting.
type CreateJobInput struct {
	PostedBy     uuid.UUID
	CategoryID   *uuid.UUID
	Title        string
	Description  string
	BudgetType   string
	BudgetAmount *float64
	BudgetMin    *float64
	BudgetMax    *float64
	Timeline     *string
	Location     *string
	Priority     string
	Requirements []models.JobRequirement
}

// Create validates and stores a job posting. New jobs always start open.
func (s *JobService) Create(ctx context.Context, in CreateJobInput) (*models.Job, error) {
	if in.Title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "job title is required")
	}
	if in.Description == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "job description is required")
	}
	if _, ok := models.ValidBudgetTypes[in.BudgetType]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "invalid budget type")
	}
	switch in.BudgetType {
	case models.BudgetTypeRange:
		if in.BudgetMin == nil || in.BudgetMax == nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "range budgets require both bounds")
		}
		if _, err := valueobject.NewBudget(*in.BudgetMin, *in.BudgetMax); err != nil {
			return nil, err
		}
	default:
		if in.BudgetAmount == nil || *in.BudgetAmount <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "budget amount must be positive")
		}
	}
	if in.Priority == "" {
		in.Priority = models.JobPriorityNormal
	}
	if _, ok := models.ValidJobPriorities[in.Priority]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "invalid priority")
	}

	job := &models.Job{
		PostedBy:     in.PostedBy,
		CategoryID:   in.CategoryID,
		Title:        in.Title,
		Description:  in.Description,
		BudgetType:   in.BudgetType,
		BudgetAmount: in.BudgetAmount,
		BudgetMin:    in.BudgetMin,
		BudgetMax:    in.BudgetMax,
		Timeline:     in.Timeline,
		Location:     in.Location,
		Priority:     in.Priority,
		Status:       valueobject.JobStatusOpen,
		Requirements: in.Requirements,
	}

	if err := s.jobs.Create(ctx, job, in.Requirements); err != nil {
		return nil, err
	}

	return job, nil
}

// Get returns a job with its requirements.
func (s *JobService) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByIDWithRequirements(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return job, nil
}

// List returns a filtered page of jobs.
func (s *JobService) List(ctx context.Context, params repository.JobListParams) (*repository.JobListResult, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.jobs.List(ctx, params)
}

// ListMine returns jobs the user posted and jobs they won.
func (s *JobService) ListMine(ctx context.Context, userID uuid.UUID) (posted, working []models.Job, err error) {
	return s.jobs.ListMine(ctx, userID)
}

// UpdateJobInput carries editable posting fields.
type UpdateJobInput struct {
	JobID        uuid.UUID
	UserID       uuid.UUID
	Title        string
	Description  string
	BudgetAmount *float64
	BudgetMin    *float64
	BudgetMax    *float64
	Timeline     *string
	Location     *string
	Priority     string
	Requirements []models.JobRequirement
}

// Update edits a posting. Only the owner may edit, and only while the job
// is still open; once a provider is selected the terms are frozen.
func (s *JobService) Update(ctx context.Context, in UpdateJobInput) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, in.JobID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !job.IsOwnedBy(in.UserID) {
		return nil, apperror.ErrForbidden
	}
	if job.Status != valueobject.JobStatusOpen {
		return nil, apperror.New(apperror.ErrCodeConflict, "only open jobs can be edited")
	}

	if in.Title != "" {
		job.Title = in.Title
	}
	if in.Description != "" {
		job.Description = in.Description
	}
	if in.BudgetAmount != nil {
		job.BudgetAmount = in.BudgetAmount
	}
	if in.BudgetMin != nil {
		job.BudgetMin = in.BudgetMin
	}
	if in.BudgetMax != nil {
		job.BudgetMax = in.BudgetMax
	}
	if job.BudgetMin != nil && job.BudgetMax != nil {
		if _, err := valueobject.NewBudget(*job.BudgetMin, *job.BudgetMax); err != nil {
			return nil, err
		}
	}
	if in.Timeline != nil {
		job.Timeline = in.Timeline
	}
	if in.Location != nil {
		job.Location = in.Location
	}
	if in.Priority != "" {
		if _, ok := models.ValidJobPriorities[in.Priority]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "invalid priority")
		}
		job.Priority = in.Priority
	}

	if err := s.jobs.Update(ctx, job, in.Requirements); err != nil {
		return nil, mapRepoError(err)
	}
	return job, nil
}

// Delete removes an open job without an accepted quote. Jobs with a
// selected provider can only be cancelled, never deleted.
func (s *JobService) Delete(ctx context.Context, jobID, userID uuid.UUID) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return mapRepoError(err)
	}
	if !job.IsOwnedBy(userID) {
		return apperror.ErrForbidden
	}
	if job.HasSelectedProvider() {
		return apperror.New(apperror.ErrCodeConflict, "jobs with an accepted quote can only be cancelled")
	}
	if err := s.jobs.Delete(ctx, jobID, userID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// Transition moves a job along the status table on behalf of a user.
// in_progress is not reachable here; only quote acceptance enters it.
// Completing a job records the confirming party's escrow approval and
// releases every payment whose predicate that satisfies.
func (s *JobService) Transition(ctx context.Context, jobID, userID uuid.UUID, to valueobject.JobStatus) (*models.Job, error) {
	if !to.IsValid() || to == valueobject.JobStatusInProgress || to == valueobject.JobStatusOpen {
		return nil, apperror.New(apperror.ErrCodeValidation, "invalid target status")
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if err := s.authorizeTransition(job, userID, to); err != nil {
		return nil, err
	}
	if !job.Status.CanTransitionTo(to) {
		return nil, apperror.ErrInvalidTransition
	}

	if err := s.jobs.UpdateStatus(ctx, jobID, job.Status, to); err != nil {
		if err == repository.ErrStaleState {
			return nil, apperror.ErrInvalidTransition
		}
		return nil, mapRepoError(err)
	}
	job.Status = to

	metrics.JobTransitionsTotal.WithLabelValues(string(to)).Inc()

	if to == valueobject.JobStatusCompleted && s.payments != nil {
		if err := s.payments.ReleaseJobPayments(ctx, jobID, userID); err != nil {
			logger.Log.WithError(err).WithField("job_id", jobID).Error("job service: release payments on completion")
		}
	}

	if s.chat != nil && job.SelectedProvider != nil {
		if err := s.chat.EmitSystemMessage(ctx, jobID, job.PostedBy, *job.SelectedProvider,
			models.SystemMessageJobStatus, job); err != nil {
			logger.Log.WithError(err).Warn("job service: emit job_status_changed message")
		}
	}
	s.notifyJobParties(job, "job.status_changed")

	return job, nil
}

// authorizeTransition encodes who may request each target status: the
// seeker cancels, either side completes or disputes, and dispute recovery
// stays with the seeker and the selected provider.
func (s *JobService) authorizeTransition(job *models.Job, userID uuid.UUID, to valueobject.JobStatus) error {
	isSeeker := job.IsOwnedBy(userID)
	isProvider := job.SelectedProvider != nil && *job.SelectedProvider == userID

	switch to {
	case valueobject.JobStatusCancelled:
		if !isSeeker {
			return apperror.ErrForbidden
		}
	case valueobject.JobStatusCompleted, valueobject.JobStatusDisputed:
		if !isSeeker && !isProvider {
			return apperror.ErrForbidden
		}
	default:
		return apperror.ErrForbidden
	}
	return nil
}

func (s *JobService) notifyJobParties(job *models.Job, event string) {
	if s.hub == nil {
		return
	}
	targets := []uuid.UUID{job.PostedBy}
	if job.SelectedProvider != nil {
		targets = append(targets, *job.SelectedProvider)
	}
	for _, userID := range targets {
		if err := s.hub.BroadcastToUser(userID, event, job); err != nil {
			logger.Log.WithError(err).WithField("event", event).Debug("job service: ws broadcast")
		}
	}
}
