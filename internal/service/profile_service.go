package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
	"github.com/winnipeg-connect/backend/internal/validation"
)

// ProfileRepository describes the profile storage contract.
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	SearchProviders(ctx context.Context, skill, location string, limit, offset int) ([]models.Profile, error)
	GetUserStats(ctx context.Context, userID uuid.UUID) (*models.PublicProfileStats, error)
}

// ReviewReader is the review access the public profile needs.
type ReviewReader interface {
	ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error)
}

// QuoteStatsReader supplies per-status quote counts for provider profiles.
type QuoteStatsReader interface {
	GetUserQuoteStats(ctx context.Context, providerID uuid.UUID) (map[string]int, error)
}

// ProfileService serves own-profile editing and public provider profiles.
type ProfileService struct {
	repo    ProfileRepository
	reviews ReviewReader
	quotes  QuoteStatsReader
}

func NewProfileService(repo ProfileRepository, reviews ReviewReader, quotes QuoteStatsReader) *ProfileService {
	return &ProfileService{repo: repo, reviews: reviews, quotes: quotes}
}

// Get returns the caller's own profile.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return profile, nil
}

// UpdateProfileInput carries editable profile fields.
type UpdateProfileInput struct {
	UserID      uuid.UUID
	DisplayName string
	Bio         *string
	HourlyRate  *float64
	Skills      []string
	Location    *string
	PhotoID     *uuid.UUID
	Phone       *string
	Website     *string
	CompanyName *string
}

// Update validates and stores the caller's profile.
func (s *ProfileService) Update(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	if err := validation.ValidateLength("display name", in.DisplayName, validation.MinDisplayNameLength, validation.MaxDisplayNameLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.Bio != nil {
		if err := validation.ValidateLength("bio", *in.Bio, 0, validation.MaxBioLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if in.HourlyRate != nil && *in.HourlyRate < 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "hourly rate cannot be negative")
	}
	if len(in.Skills) > validation.MaxSkillsCount {
		return nil, apperror.New(apperror.ErrCodeValidation, "too many skills")
	}
	for _, skill := range in.Skills {
		if err := validation.ValidateLength("skill", skill, 1, validation.MaxSkillLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if in.Skills == nil {
		in.Skills = []string{}
	}

	profile := &models.Profile{
		UserID:      in.UserID,
		DisplayName: in.DisplayName,
		Bio:         in.Bio,
		HourlyRate:  in.HourlyRate,
		Skills:      in.Skills,
		Location:    in.Location,
		PhotoID:     in.PhotoID,
		Phone:       in.Phone,
		Website:     in.Website,
		CompanyName: in.CompanyName,
	}

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// PublicProfile is the externally visible view of a user. QuoteStats is
// populated for providers only: quote counts keyed by status.
type PublicProfile struct {
	Profile    *models.Profile            `json:"profile"`
	Role       string                     `json:"role"`
	Stats      *models.PublicProfileStats `json:"stats"`
	QuoteStats map[string]int             `json:"quote_stats,omitempty"`
	Reviews    []models.Review            `json:"reviews"`
}

// GetPublic assembles a user's public profile with stats and recent reviews.
func (s *ProfileService) GetPublic(ctx context.Context, userID uuid.UUID) (*PublicProfile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !user.IsActive {
		return nil, apperror.ErrUserNotFound
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	stats, err := s.repo.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	var quoteStats map[string]int
	if user.Role == models.RoleProvider {
		quoteStats, err = s.quotes.GetUserQuoteStats(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	reviews, err := s.reviews.ListByReviewedID(ctx, userID, 10, 0)
	if err != nil {
		return nil, err
	}

	return &PublicProfile{
		Profile:    profile,
		Role:       user.Role,
		Stats:      stats,
		QuoteStats: quoteStats,
		Reviews:    reviews,
	}, nil
}

// SearchProviders returns provider profiles filtered by skill and location.
func (s *ProfileService) SearchProviders(ctx context.Context, skill, location string, limit, offset int) ([]models.Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.SearchProviders(ctx, skill, location, limit, offset)
}
