package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
	"github.com/winnipeg-connect/backend/internal/repository"
)

// ReviewRepository describes the review storage contract.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByJobAndReviewer(ctx context.Context, jobID, reviewerID uuid.UUID) (*models.Review, error)
	ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error)
	ListByJobID(ctx context.Context, jobID uuid.UUID) ([]models.Review, error)
}

// ReviewService lets the two parties of a completed job rate each other.
type ReviewService struct {
	reviews ReviewRepository
	jobs    JobReader
}

func NewReviewService(reviews ReviewRepository, jobs JobReader) *ReviewService {
	return &ReviewService{reviews: reviews, jobs: jobs}
}

// CreateReviewInput carries a review submission.
type CreateReviewInput struct {
	JobID      uuid.UUID
	ReviewerID uuid.UUID
	Rating     int
	Comment    *string
}

// Create stores a review. Only participants of a completed job may review,
// once each, and always about the opposite party.
func (s *ReviewService) Create(ctx context.Context, in CreateReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperror.New(apperror.ErrCodeValidation, "rating must be between 1 and 5")
	}

	job, err := s.jobs.GetByID(ctx, in.JobID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if job.Status != valueobject.JobStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeConflict, "only completed jobs can be reviewed")
	}
	if job.SelectedProvider == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "job has no selected provider")
	}

	var reviewedID uuid.UUID
	switch in.ReviewerID {
	case job.PostedBy:
		reviewedID = *job.SelectedProvider
	case *job.SelectedProvider:
		reviewedID = job.PostedBy
	default:
		return nil, apperror.ErrForbidden
	}

	if existing, err := s.reviews.GetByJobAndReviewer(ctx, in.JobID, in.ReviewerID); err == nil && existing != nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "job already reviewed by this user")
	}

	review := &models.Review{
		JobID:      in.JobID,
		ReviewerID: in.ReviewerID,
		ReviewedID: reviewedID,
		Rating:     in.Rating,
		Comment:    in.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if err == repository.ErrDuplicate {
			return nil, apperror.New(apperror.ErrCodeConflict, "job already reviewed by this user")
		}
		return nil, err
	}

	return review, nil
}

// ListForUser returns reviews about a user.
func (s *ReviewService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.reviews.ListByReviewedID(ctx, userID, limit, offset)
}

// ListForJob returns the reviews attached to a job.
func (s *ReviewService) ListForJob(ctx context.Context, jobID uuid.UUID) ([]models.Review, error) {
	return s.reviews.ListByJobID(ctx, jobID)
}
