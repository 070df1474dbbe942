package postgres

import (
	"context"
	"fmt"

	"findsub/marketplace-service/internal/application"
)

const applicationColumns = `id, job_id, applicant_id, cover_letter, created_at`

func scanApplication(row rowScanner) (*application.Application, error) {
	var a application.Application
	if err := row.Scan(&a.ID, &a.JobID, &a.ApplicantID, &a.CoverLetter, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateApplication inserts only while the job is open and unexpired. FOR
// SHARE makes a concurrent selection wait for this insert, or vice versa.
func (s *Store) CreateApplication(ctx context.Context, a *application.Application) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO applications (id, job_id, applicant_id, cover_letter, created_at)
		 SELECT $1, $2, $3, $4, $5
		 WHERE EXISTS (
		   SELECT 1 FROM jobs
		   WHERE id = $2 AND status = 'open' AND (expires_at IS NULL OR expires_at > $5)
		   FOR SHARE
		 )
		 ON CONFLICT (job_id, applicant_id) DO NOTHING`,
		a.ID, a.JobID, a.ApplicantID, a.CoverLetter, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("createApplication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrStale
	}
	return nil
}

func (s *Store) GetApplication(ctx context.Context, jobID, applicantID string) (*application.Application, error) {
	a, err := scanApplication(s.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE job_id = $1 AND applicant_id = $2`,
		jobID, applicantID,
	))
	if err != nil {
		return nil, notFound(err, "getApplication")
	}
	return a, nil
}

func (s *Store) DeleteApplication(ctx context.Context, jobID, applicantID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM applications a
		 USING jobs j
		 WHERE a.job_id = $1 AND a.applicant_id = $2
		   AND j.id = a.job_id AND j.status = 'open'
		   AND j.selected_applicant IS DISTINCT FROM $2`,
		jobID, applicantID,
	)
	if err != nil {
		return fmt.Errorf("deleteApplication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrStale
	}
	return nil
}

func (s *Store) ListApplicationsForJob(ctx context.Context, jobID string) ([]application.Application, error) {
	return s.listApplications(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE job_id = $1 ORDER BY created_at ASC`, jobID)
}

func (s *Store) ListApplicationsForApplicant(ctx context.Context, applicantID string) ([]application.Application, error) {
	return s.listApplications(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE applicant_id = $1 ORDER BY created_at DESC`, applicantID)
}

func (s *Store) listApplications(ctx context.Context, query, arg string) ([]application.Application, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listApplications query: %w", err)
	}
	defer rows.Close()

	out := make([]application.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("listApplications scan: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
