package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
	"github.com/winnipeg-connect/backend/internal/repository"
)

type mockJobRepo struct {
	mock.Mock
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.Job, requirements []models.JobRequirement) error {
	args := m.Called(ctx, job, requirements)
	return args.Error(0)
}

func (m *mockJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *mockJobRepo) GetByIDWithRequirements(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *mockJobRepo) List(ctx context.Context, params repository.JobListParams) (*repository.JobListResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.JobListResult), args.Error(1)
}

func (m *mockJobRepo) Update(ctx context.Context, job *models.Job, requirements []models.JobRequirement) error {
	args := m.Called(ctx, job, requirements)
	return args.Error(0)
}

func (m *mockJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.JobStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *mockJobRepo) Delete(ctx context.Context, id uuid.UUID, postedBy uuid.UUID) error {
	args := m.Called(ctx, id, postedBy)
	return args.Error(0)
}

func (m *mockJobRepo) ListMine(ctx context.Context, userID uuid.UUID) ([]models.Job, []models.Job, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Job), args.Get(1).([]models.Job), args.Error(2)
}

type mockPaymentReleaser struct {
	mock.Mock
}

func (m *mockPaymentReleaser) ReleaseJobPayments(ctx context.Context, jobID, completedBy uuid.UUID) error {
	args := m.Called(ctx, jobID, completedBy)
	return args.Error(0)
}

func amount(v float64) *float64 { return &v }

func TestJobService_Create(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Job"), mock.Anything).Return(nil)

	job, err := svc.Create(ctx, CreateJobInput{
		PostedBy:     uuid.New(),
		Title:        "Fix leaking faucet",
		Description:  "Kitchen faucet drips constantly",
		BudgetType:   models.BudgetTypeFixed,
		BudgetAmount: amount(150),
	})
	assert.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusOpen, job.Status)
	assert.Equal(t, models.JobPriorityNormal, job.Priority)
}

func TestJobService_Create_Validation(t *testing.T) {
	svc := NewJobService(new(mockJobRepo))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateJobInput{Title: "", Description: "x", BudgetType: models.BudgetTypeFixed, BudgetAmount: amount(10)})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Create(ctx, CreateJobInput{Title: "x", Description: "y", BudgetType: "weekly", BudgetAmount: amount(10)})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Create(ctx, CreateJobInput{Title: "x", Description: "y", BudgetType: models.BudgetTypeRange, BudgetMin: amount(500), BudgetMax: amount(100)})
	assert.True(t, apperror.IsValidation(err))
}

func TestJobService_Transition_Complete(t *testing.T) {
	repo := new(mockJobRepo)
	releaser := new(mockPaymentReleaser)
	svc := NewJobService(repo)
	svc.SetPayments(releaser)
	ctx := context.Background()

	seekerID := uuid.New()
	providerID := uuid.New()
	job := &models.Job{
		ID:               uuid.New(),
		PostedBy:         seekerID,
		Status:           valueobject.JobStatusInProgress,
		SelectedProvider: &providerID,
	}

	repo.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("UpdateStatus", ctx, job.ID, valueobject.JobStatusInProgress, valueobject.JobStatusCompleted).Return(nil)
	// The sweep runs on behalf of whoever confirmed completion.
	releaser.On("ReleaseJobPayments", ctx, job.ID, seekerID).Return(nil)

	got, err := svc.Transition(ctx, job.ID, seekerID, valueobject.JobStatusCompleted)
	assert.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusCompleted, got.Status)
	releaser.AssertExpectations(t)
}

func TestJobService_Transition_InProgressUnreachable(t *testing.T) {
	svc := NewJobService(new(mockJobRepo))

	_, err := svc.Transition(context.Background(), uuid.New(), uuid.New(), valueobject.JobStatusInProgress)
	assert.True(t, apperror.IsValidation(err))
}

func TestJobService_Transition_InvalidEdge(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo)
	ctx := context.Background()

	seekerID := uuid.New()
	job := &models.Job{ID: uuid.New(), PostedBy: seekerID, Status: valueobject.JobStatusOpen}

	repo.On("GetByID", ctx, job.ID).Return(job, nil)

	_, err := svc.Transition(ctx, job.ID, seekerID, valueobject.JobStatusCompleted)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestJobService_Transition_Authorization(t *testing.T) {
	seekerID := uuid.New()
	providerID := uuid.New()
	strangerID := uuid.New()

	cases := []struct {
		name    string
		userID  uuid.UUID
		from    valueobject.JobStatus
		to      valueobject.JobStatus
		allowed bool
	}{
		{"seeker cancels open job", seekerID, valueobject.JobStatusOpen, valueobject.JobStatusCancelled, true},
		{"provider cannot cancel", providerID, valueobject.JobStatusOpen, valueobject.JobStatusCancelled, false},
		{"provider completes", providerID, valueobject.JobStatusInProgress, valueobject.JobStatusCompleted, true},
		{"provider disputes", providerID, valueobject.JobStatusInProgress, valueobject.JobStatusDisputed, true},
		{"stranger completes", strangerID, valueobject.JobStatusInProgress, valueobject.JobStatusCompleted, false},
		{"seeker recovers dispute", seekerID, valueobject.JobStatusDisputed, valueobject.JobStatusCancelled, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mockJobRepo)
			svc := NewJobService(repo)
			ctx := context.Background()

			job := &models.Job{
				ID:               uuid.New(),
				PostedBy:         seekerID,
				Status:           tc.from,
				SelectedProvider: &providerID,
			}
			repo.On("GetByID", ctx, job.ID).Return(job, nil)
			repo.On("UpdateStatus", ctx, job.ID, tc.from, tc.to).Return(nil)

			_, err := svc.Transition(ctx, job.ID, tc.userID, tc.to)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperror.ErrForbidden)
			}
		})
	}
}

func TestJobService_Transition_LostRace(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo)
	ctx := context.Background()

	seekerID := uuid.New()
	job := &models.Job{ID: uuid.New(), PostedBy: seekerID, Status: valueobject.JobStatusOpen}

	repo.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("UpdateStatus", ctx, job.ID, valueobject.JobStatusOpen, valueobject.JobStatusCancelled).
		Return(repository.ErrStaleState)

	_, err := svc.Transition(ctx, job.ID, seekerID, valueobject.JobStatusCancelled)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestJobService_Update_FrozenAfterSelection(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo)
	ctx := context.Background()

	seekerID := uuid.New()
	job := &models.Job{ID: uuid.New(), PostedBy: seekerID, Status: valueobject.JobStatusInProgress}

	repo.On("GetByID", ctx, job.ID).Return(job, nil)

	_, err := svc.Update(ctx, UpdateJobInput{JobID: job.ID, UserID: seekerID, Title: "New title"})
	assert.True(t, apperror.IsConflict(err))
}

func TestJobService_Delete_BlockedWithProvider(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo)
	ctx := context.Background()

	seekerID := uuid.New()
	providerID := uuid.New()
	job := &models.Job{ID: uuid.New(), PostedBy: seekerID, Status: valueobject.JobStatusInProgress, SelectedProvider: &providerID}

	repo.On("GetByID", ctx, job.ID).Return(job, nil)

	err := svc.Delete(ctx, job.ID, seekerID)
	assert.True(t, apperror.IsConflict(err))
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}
