package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
	"github.com/winnipeg-connect/backend/internal/models"
)

const jobColumns = `id, posted_by, category_id, title, description, budget_type, budget_amount,
	budget_min, budget_max, timeline, location, priority, status, selected_provider,
	selected_quote, created_at, updated_at`

// JobRepository handles the jobs and job_requirements tables.
type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a job together with its requirements.
func (r *JobRepository) Create(ctx context.Context, job *models.Job, requirements []models.JobRequirement) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO jobs (posted_by, category_id, title, description, budget_type, budget_amount,
			budget_min, budget_max, timeline, location, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'open')
		RETURNING id, status, created_at, updated_at
	`
	if err := tx.QueryRowxContext(ctx, query,
		job.PostedBy, job.CategoryID, job.Title, job.Description, job.BudgetType,
		job.BudgetAmount, job.BudgetMin, job.BudgetMax, job.Timeline, job.Location, job.Priority,
	).Scan(&job.ID, &job.Status, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("job repository: create %w", err)
	}

	for i := range requirements {
		requirements[i].JobID = job.ID
		if err := tx.QueryRowxContext(ctx,
			`INSERT INTO job_requirements (job_id, skill, level) VALUES ($1, $2, $3) RETURNING id`,
			job.ID, requirements[i].Skill, requirements[i].Level,
		).Scan(&requirements[i].ID); err != nil {
			return fmt.Errorf("job repository: create requirement %w", err)
		}
	}
	job.Requirements = requirements

	return tx.Commit()
}

// GetByID returns a job by identifier.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("job repository: get by id %w", err)
	}
	return &job, nil
}

// GetByIDWithRequirements returns a job with its requirement rows loaded.
func (r *JobRepository) GetByIDWithRequirements(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var requirements []models.JobRequirement
	query := `SELECT id, job_id, skill, level FROM job_requirements WHERE job_id = $1 ORDER BY skill`
	if err := r.db.SelectContext(ctx, &requirements, query, id); err != nil {
		return nil, fmt.Errorf("job repository: get requirements %w", err)
	}
	job.Requirements = requirements
	return job, nil
}

// JobListParams filter the public job listing.
type JobListParams struct {
	Status     string
	CategoryID *uuid.UUID
	PostedBy   *uuid.UUID
	Location   string
	Search     string
	Priority   string
	Limit      int
	Offset     int
}

// JobListResult is one page of jobs plus the unpaginated total.
type JobListResult struct {
	Jobs  []models.Job `json:"jobs"`
	Total int          `json:"total"`
}

// List returns a filtered page of jobs with quote counts.
func (r *JobRepository) List(ctx context.Context, params JobListParams) (*JobListResult, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	addArg := func(cond string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, idx))
		args = append(args, value)
		idx++
	}

	if params.Status != "" {
		addArg("j.status = $%d", params.Status)
	}
	if params.CategoryID != nil {
		addArg("j.category_id = $%d", *params.CategoryID)
	}
	if params.PostedBy != nil {
		addArg("j.posted_by = $%d", *params.PostedBy)
	}
	if params.Location != "" {
		addArg("j.location ILIKE $%d", "%"+params.Location+"%")
	}
	if params.Priority != "" {
		addArg("j.priority = $%d", params.Priority)
	}
	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(j.title ILIKE $%d OR j.description ILIKE $%d)", idx, idx))
		args = append(args, "%"+params.Search+"%")
		idx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM jobs j WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("job repository: count %w", err)
	}

	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	query := fmt.Sprintf(`
		SELECT j.id, j.posted_by, j.category_id, j.title, j.description, j.budget_type,
			j.budget_amount, j.budget_min, j.budget_max, j.timeline, j.location, j.priority,
			j.status, j.selected_provider, j.selected_quote, j.created_at, j.updated_at,
			COUNT(q.id) AS quotes_count
		FROM jobs j
		LEFT JOIN quotes q ON q.job_id = j.id
		WHERE %s
		GROUP BY j.id
		ORDER BY j.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("job repository: list %w", err)
	}

	return &JobListResult{Jobs: jobs, Total: total}, nil
}

// Update rewrites the mutable posting fields of an open job.
func (r *JobRepository) Update(ctx context.Context, job *models.Job, requirements []models.JobRequirement) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE jobs
		SET category_id = $2, title = $3, description = $4, budget_type = $5, budget_amount = $6,
			budget_min = $7, budget_max = $8, timeline = $9, location = $10, priority = $11,
			updated_at = NOW()
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, query,
		job.ID, job.CategoryID, job.Title, job.Description, job.BudgetType, job.BudgetAmount,
		job.BudgetMin, job.BudgetMax, job.Timeline, job.Location, job.Priority)
	if err != nil {
		return fmt.Errorf("job repository: update %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}

	if requirements != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM job_requirements WHERE job_id = $1`, job.ID); err != nil {
			return fmt.Errorf("job repository: clear requirements %w", err)
		}
		for i := range requirements {
			requirements[i].JobID = job.ID
			if err := tx.QueryRowxContext(ctx,
				`INSERT INTO job_requirements (job_id, skill, level) VALUES ($1, $2, $3) RETURNING id`,
				job.ID, requirements[i].Skill, requirements[i].Level,
			).Scan(&requirements[i].ID); err != nil {
				return fmt.Errorf("job repository: insert requirement %w", err)
			}
		}
	}

	return tx.Commit()
}

// UpdateStatus applies a status transition with an optimistic guard on the
// current status. Zero affected rows means the job moved concurrently.
func (r *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.JobStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return fmt.Errorf("job repository: update status %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleState
	}
	return nil
}

// Delete hard-deletes a job. Guarded: only the owner's jobs with no selected
// provider are removable; anything else must be soft-cancelled instead.
func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID, postedBy uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE id = $1 AND posted_by = $2 AND selected_provider IS NULL`,
		id, postedBy)
	if err != nil {
		return fmt.Errorf("job repository: delete %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ListMine returns jobs posted by the user and jobs the user works on as
// the selected provider.
func (r *JobRepository) ListMine(ctx context.Context, userID uuid.UUID) (posted []models.Job, working []models.Job, err error) {
	postedQuery := `SELECT ` + jobColumns + ` FROM jobs WHERE posted_by = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &posted, postedQuery, userID); err != nil {
		return nil, nil, fmt.Errorf("job repository: list posted %w", err)
	}

	workingQuery := `SELECT ` + jobColumns + ` FROM jobs WHERE selected_provider = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &working, workingQuery, userID); err != nil {
		return nil, nil, fmt.Errorf("job repository: list working %w", err)
	}

	return posted, working, nil
}

// GetUserJobStats returns status counts for the stats endpoint.
func (r *JobRepository) GetUserJobStats(ctx context.Context, userID uuid.UUID) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT status, COUNT(*) FROM jobs
		WHERE posted_by = $1 OR selected_provider = $1
		GROUP BY status
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("job repository: stats %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("job repository: scan stats %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
