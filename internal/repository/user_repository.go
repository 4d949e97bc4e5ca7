package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/winnipeg-connect/backend/internal/models"
)

// UserRepository handles the users, profiles and user_sessions tables.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user account.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("user repository: create %w", err)
	}

	return nil
}

// GetByEmail returns a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, email, username, password_hash, role, is_active, last_login_at, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by email %w", err)
	}

	return &user, nil
}

// GetByID returns a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, email, username, password_hash, role, is_active, last_login_at, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}

	return &user, nil
}

// UpsertProfile creates or updates a user's profile.
func (r *UserRepository) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, display_name, bio, hourly_rate, skills, location, photo_id, phone, website, company_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
			bio = EXCLUDED.bio,
			hourly_rate = EXCLUDED.hourly_rate,
			skills = EXCLUDED.skills,
			location = EXCLUDED.location,
			photo_id = EXCLUDED.photo_id,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			company_name = EXCLUDED.company_name,
			updated_at = NOW()
		RETURNING user_id, display_name, bio, hourly_rate, skills, location, photo_id, phone, website, company_name, updated_at
	`

	var skills pq.StringArray
	row := r.db.QueryRowxContext(
		ctx,
		query,
		profile.UserID,
		profile.DisplayName,
		profile.Bio,
		profile.HourlyRate,
		pq.Array(profile.Skills),
		profile.Location,
		profile.PhotoID,
		profile.Phone,
		profile.Website,
		profile.CompanyName,
	)

	if err := row.Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.Bio,
		&profile.HourlyRate,
		&skills,
		&profile.Location,
		&profile.PhotoID,
		&profile.Phone,
		&profile.Website,
		&profile.CompanyName,
		&profile.UpdatedAt,
	); err != nil {
		return fmt.Errorf("user repository: upsert profile %w", err)
	}

	profile.Skills = []string(skills)

	return nil
}

// GetProfile returns a user's profile.
func (r *UserRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	query := `SELECT user_id, display_name, bio, hourly_rate, skills, location, photo_id, phone, website, company_name, updated_at FROM profiles WHERE user_id = $1`

	var profile models.Profile
	var skills pq.StringArray

	if err := r.db.QueryRowxContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.Bio,
		&profile.HourlyRate,
		&skills,
		&profile.Location,
		&profile.PhotoID,
		&profile.Phone,
		&profile.Website,
		&profile.CompanyName,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get profile %w", err)
	}

	profile.Skills = []string(skills)

	return &profile, nil
}

// SearchProviders returns provider profiles matching an optional skill and
// location filter.
func (r *UserRepository) SearchProviders(ctx context.Context, skill, location string, limit, offset int) ([]models.Profile, error) {
	query := `
		SELECT p.user_id, p.display_name, p.bio, p.hourly_rate, p.skills, p.location, p.photo_id, p.phone, p.website, p.company_name, p.updated_at
		FROM profiles p
		INNER JOIN users u ON u.id = p.user_id
		WHERE u.role = 'provider' AND u.is_active = TRUE
	`
	args := []interface{}{}
	idx := 1
	if skill != "" {
		query += fmt.Sprintf(" AND $%d = ANY(p.skills)", idx)
		args = append(args, skill)
		idx++
	}
	if location != "" {
		query += fmt.Sprintf(" AND p.location ILIKE $%d", idx)
		args = append(args, "%"+location+"%")
		idx++
	}
	query += fmt.Sprintf(" ORDER BY p.updated_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("user repository: search providers %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var profile models.Profile
		var skills pq.StringArray
		if err := rows.Scan(
			&profile.UserID,
			&profile.DisplayName,
			&profile.Bio,
			&profile.HourlyRate,
			&skills,
			&profile.Location,
			&profile.PhotoID,
			&profile.Phone,
			&profile.Website,
			&profile.CompanyName,
			&profile.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("user repository: scan provider %w", err)
		}
		profile.Skills = []string(skills)
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user repository: provider rows %w", err)
	}

	return profiles, nil
}

// CreateSession stores a new refresh-token session.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		session.UserID,
		session.RefreshToken,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}

	return nil
}

// GetSession returns an unexpired session by refresh token.
func (r *UserRepository) GetSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	var session models.Session
	query := `
		SELECT id, user_id, refresh_token, user_agent, ip_address, expires_at, created_at
		FROM user_sessions
		WHERE refresh_token = $1 AND expires_at > NOW()
	`
	if err := r.db.GetContext(ctx, &session, query, refreshToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get session %w", err)
	}

	return &session, nil
}

// DeleteSession removes a session by refresh token.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE refresh_token = $1`, refreshToken); err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}

	return nil
}

// ListSessions returns all active sessions for a user.
func (r *UserRepository) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	query := `
		SELECT id, user_id, refresh_token, user_agent, ip_address, expires_at, created_at
		FROM user_sessions
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY created_at DESC
	`

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, userID); err != nil {
		return nil, fmt.Errorf("user repository: list sessions %w", err)
	}

	return sessions, nil
}

// DeleteSessionByID removes one session owned by the user.
func (r *UserRepository) DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("user repository: delete session by id %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("user repository: delete session by id rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// DeleteAllSessionsExcept removes every session of the user but the given one.
func (r *UserRepository) DeleteAllSessionsExcept(ctx context.Context, userID uuid.UUID, exceptRefreshToken string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1 AND refresh_token != $2`, userID, exceptRefreshToken)
	if err != nil {
		return fmt.Errorf("user repository: delete all sessions except %w", err)
	}

	return nil
}

// UpdateLastLoginAt stamps the user's last login time.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("user repository: update last login at %w", err)
	}

	return nil
}

// GetUserStats aggregates public profile numbers: job counts from the jobs
// and quotes tables, rating from review rows.
func (r *UserRepository) GetUserStats(ctx context.Context, userID uuid.UUID) (*models.PublicProfileStats, error) {
	stats := &models.PublicProfileStats{}

	var posted int
	if err := r.db.GetContext(ctx, &posted, `SELECT COUNT(*) FROM jobs WHERE posted_by = $1`, userID); err != nil {
		return nil, fmt.Errorf("user repository: get posted jobs %w", err)
	}

	var working int
	workingQuery := `
		SELECT COUNT(DISTINCT j.id)
		FROM jobs j
		INNER JOIN quotes q ON j.id = q.job_id
		WHERE q.provider_id = $1 AND q.status = 'accepted'
	`
	if err := r.db.GetContext(ctx, &working, workingQuery, userID); err != nil {
		return nil, fmt.Errorf("user repository: get working jobs %w", err)
	}
	stats.TotalJobs = posted + working

	var postedCompleted int
	if err := r.db.GetContext(ctx, &postedCompleted,
		`SELECT COUNT(*) FROM jobs WHERE posted_by = $1 AND status = 'completed'`, userID); err != nil {
		return nil, fmt.Errorf("user repository: get posted completed %w", err)
	}

	var workingCompleted int
	workingCompletedQuery := `
		SELECT COUNT(DISTINCT j.id)
		FROM jobs j
		INNER JOIN quotes q ON j.id = q.job_id
		WHERE q.provider_id = $1 AND q.status = 'accepted' AND j.status = 'completed'
	`
	if err := r.db.GetContext(ctx, &workingCompleted, workingCompletedQuery, userID); err != nil {
		return nil, fmt.Errorf("user repository: get working completed %w", err)
	}
	stats.CompletedJobs = postedCompleted + workingCompleted

	ratingQuery := `
		SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total
		FROM reviews
		WHERE reviewed_id = $1
	`
	var rating struct {
		Average float64 `db:"average"`
		Total   int     `db:"total"`
	}
	if err := r.db.GetContext(ctx, &rating, ratingQuery, userID); err != nil {
		return nil, fmt.Errorf("user repository: get rating %w", err)
	}
	stats.AverageRating = rating.Average
	stats.TotalReviews = rating.Total

	return stats, nil
}
