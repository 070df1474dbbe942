package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"findsub/marketplace-service/internal/job"
)

const jobColumns = `id, poster_id, title, description, location, compensation, requirements,
	category, required_kinks, start_date, COALESCE(start_time, ''), duration_minutes,
	expires_at, COALESCE(selected_applicant, ''), fulfilled_on, status::text,
	dom_feedback_left, sub_feedback_left, created_at, updated_at`

func scanJob(row rowScanner, extra ...any) (*job.Job, error) {
	var (
		j        job.Job
		category string
		status   string
		kinks    []byte
	)
	dest := []any{
		&j.ID, &j.PosterID, &j.Title, &j.Description, &j.Location, &j.Compensation, &j.Requirements,
		&category, &kinks, &j.StartDate, &j.StartTime, &j.DurationMinutes,
		&j.ExpiresAt, &j.SelectedApplicant, &j.FulfilledOn, &status,
		&j.DomFeedbackLeft, &j.SubFeedbackLeft, &j.CreatedAt, &j.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	j.Category = job.Category(category)
	j.Status = job.Status(status)
	if err := decodeJSON(kinks, &j.RequiredKinks); err != nil {
		return nil, fmt.Errorf("decode required_kinks: %w", err)
	}
	j.Normalize()
	return &j, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Store) CreateJob(ctx context.Context, j *job.Job) error {
	kinks, err := json.Marshal(j.RequiredKinks)
	if err != nil {
		return fmt.Errorf("encode required kinks: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, poster_id, title, description, location, compensation, requirements,
		                   category, required_kinks, start_date, start_time, duration_minutes,
		                   expires_at, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12, $13, $14::job_status, $15, $16)`,
		j.ID, j.PosterID, j.Title, j.Description, j.Location, j.Compensation, j.Requirements,
		string(j.Category), string(kinks), j.StartDate, nullable(j.StartTime), j.DurationMinutes,
		j.ExpiresAt, string(j.Status), j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("createJob: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*job.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "getJob "+id)
	}
	return j, nil
}

func (s *Store) ListOpenJobs(ctx context.Context, viewerID string, now time.Time) ([]job.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+`,
		        EXISTS (SELECT 1 FROM applications a WHERE a.job_id = jobs.id AND a.applicant_id = $1)
		 FROM jobs
		 WHERE status = 'open' AND (expires_at IS NULL OR expires_at > $2)
		 ORDER BY created_at DESC`,
		viewerID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("listOpenJobs query: %w", err)
	}
	defer rows.Close()

	out := make([]job.Listing, 0)
	for rows.Next() {
		var applied bool
		j, err := scanJob(rows, &applied)
		if err != nil {
			return nil, fmt.Errorf("listOpenJobs scan: %w", err)
		}
		out = append(out, job.Listing{Job: *j, HasApplied: applied})
	}
	return out, rows.Err()
}

func (s *Store) ListJobsByPoster(ctx context.Context, posterID string) ([]job.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE poster_id = $1 ORDER BY created_at DESC`, posterID)
	if err != nil {
		return nil, fmt.Errorf("listJobsByPoster query: %w", err)
	}
	defer rows.Close()

	out := make([]job.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listJobsByPoster scan: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (s *Store) UpdateJobDetails(ctx context.Context, j *job.Job) (*job.Job, error) {
	kinks, err := json.Marshal(j.RequiredKinks)
	if err != nil {
		return nil, fmt.Errorf("encode required kinks: %w", err)
	}
	out, err := scanJob(s.pool.QueryRow(ctx,
		`WITH upd AS (
		   UPDATE jobs
		   SET title = $3, description = $4, location = $5, compensation = $6,
		       requirements = $7, category = $8, required_kinks = $9::jsonb,
		       start_date = $10, start_time = $11, duration_minutes = $12,
		       expires_at = $13, status = 'open', updated_at = $14
		   WHERE id = $1 AND poster_id = $2 AND status::text = ANY($15::text[])
		   RETURNING *
		 )
		 SELECT `+jobColumns+` FROM upd`,
		j.ID, j.PosterID, j.Title, j.Description, j.Location, j.Compensation,
		j.Requirements, string(j.Category), string(kinks),
		j.StartDate, nullable(j.StartTime), j.DurationMinutes,
		j.ExpiresAt, j.UpdatedAt, editableStatuses(),
	))
	return staleOnNoRows(out, err, "updateJobDetails")
}

func (s *Store) SelectApplicant(ctx context.Context, jobID, posterID, applicantID string, at time.Time) (*job.Job, error) {
	out, err := scanJob(s.pool.QueryRow(ctx,
		`WITH upd AS (
		   UPDATE jobs
		   SET status = 'filled', selected_applicant = $3, fulfilled_on = $4, updated_at = $4
		   WHERE id = $1 AND poster_id = $2 AND status = 'open'
		     AND EXISTS (SELECT 1 FROM applications WHERE job_id = $1 AND applicant_id = $3)
		   RETURNING *
		 )
		 SELECT `+jobColumns+` FROM upd`,
		jobID, posterID, applicantID, at,
	))
	return staleOnNoRows(out, err, "selectApplicant")
}

func (s *Store) TransitionJob(ctx context.Context, jobID, posterID string, from, to job.Status) (*job.Job, error) {
	out, err := scanJob(s.pool.QueryRow(ctx,
		`WITH upd AS (
		   UPDATE jobs
		   SET status = $4::job_status, updated_at = NOW()
		   WHERE id = $1 AND poster_id = $2 AND status = $3::job_status
		   RETURNING *
		 )
		 SELECT `+jobColumns+` FROM upd`,
		jobID, posterID, string(from), string(to),
	))
	return staleOnNoRows(out, err, "transitionJob")
}

func (s *Store) DeleteJob(ctx context.Context, jobID, posterID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM jobs WHERE id = $1 AND poster_id = $2 AND status::text = ANY($3::text[])`,
		jobID, posterID, editableStatuses(),
	)
	if err != nil {
		return fmt.Errorf("deleteJob: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return job.ErrStale
	}
	return nil
}

func staleOnNoRows(j *job.Job, err error, op string) (*job.Job, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, job.ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}
