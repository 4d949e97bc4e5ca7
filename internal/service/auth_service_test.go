package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
	"github.com/winnipeg-connect/backend/internal/repository"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *mockAuthRepo) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *mockAuthRepo) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) DeleteAllSessionsExcept(ctx context.Context, userID uuid.UUID, exceptRefreshToken string) error {
	args := m.Called(ctx, userID, exceptRefreshToken)
	return args.Error(0)
}

func newAuthFixture() (*AuthService, *mockAuthRepo) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	return svc, repo
}

func TestAuthService_Register(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "jane@example.com").Return(nil, repository.ErrUserNotFound)
	repo.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "jane@example.com" && u.Role == models.RoleProvider && u.Username == "jane"
	})).Return(nil)
	repo.On("UpsertProfile", ctx, mock.AnythingOfType("*models.Profile")).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "jane@example.com",
		Password: "Str0ngPass!",
		Role:     models.RoleProvider,
	}, nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "jane@example.com").Return(&models.User{ID: uuid.New()}, nil)

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "jane@example.com",
		Password: "Str0ngPass!",
	}, nil)
	assert.True(t, apperror.IsConflict(err))
}

func TestAuthService_Register_AdminRoleRejected(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "jane@example.com").Return(nil, repository.ErrUserNotFound)

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "jane@example.com",
		Password: "Str0ngPass!",
		Role:     models.RoleAdmin,
	}, nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestAuthService_Login(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ngPass!"), bcrypt.MinCost)
	assert.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "jane@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleSeeker,
		IsActive:     true,
	}

	repo.On("GetByEmail", ctx, "jane@example.com").Return(user, nil)
	repo.On("UpdateLastLoginAt", ctx, user.ID).Return(nil)
	repo.On("CreateSession", ctx, mock.MatchedBy(func(s *models.Session) bool {
		return s.UserID == user.ID && s.RefreshToken != ""
	})).Return(nil)
	repo.On("GetProfile", ctx, user.ID).Return(&models.Profile{UserID: user.ID}, nil)

	result, err := svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "Str0ngPass!"}, map[string]string{
		"user_agent": "test-agent",
		"ip":         "127.0.0.1",
	})
	assert.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotNil(t, result.Profile)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Str0ngPass!"), bcrypt.MinCost)
	user := &models.User{ID: uuid.New(), PasswordHash: string(hash), IsActive: true}

	repo.On("GetByEmail", ctx, "jane@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "wrong"}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	_, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "whatever"}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_DeactivatedAccount(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), IsActive: false}
	repo.On("GetByEmail", ctx, "jane@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "Str0ngPass!"}, nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Role: models.RoleSeeker, IsActive: true}
	pair, _, _, err := testTokenManager().GeneratePair(user)
	assert.NoError(t, err)

	repo.On("GetSession", ctx, pair.RefreshToken).Return(&models.Session{UserID: user.ID}, nil)
	repo.On("GetByID", ctx, user.ID).Return(user, nil)
	repo.On("DeleteSession", ctx, pair.RefreshToken).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken, nil)
	assert.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Refresh_RejectsUnknownSession(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Role: models.RoleSeeker}
	pair, _, _, err := testTokenManager().GeneratePair(user)
	assert.NoError(t, err)

	repo.On("GetSession", ctx, pair.RefreshToken).Return(nil, repository.ErrUserNotFound)

	_, err = svc.Refresh(ctx, pair.RefreshToken, nil)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestAuthService_Refresh_RejectsGarbageToken(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Refresh(context.Background(), "not-a-jwt", nil)
	assert.Error(t, err)
}
