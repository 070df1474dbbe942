package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"findsub/marketplace-service/internal/feedback"
)

const feedbackColumns = `id, job_id, from_user, to_user, side, general_ratings, interest_ratings,
	badge_gifting, honesty_score, comment, is_flagged, flag_reason, created_at`

func scanFeedback(row rowScanner) (*feedback.Feedback, error) {
	var (
		f                         feedback.Feedback
		side                      string
		general, interest, badges []byte
	)
	if err := row.Scan(
		&f.ID, &f.JobID, &f.FromUser, &f.ToUser, &side, &general, &interest,
		&badges, &f.HonestyScore, &f.Comment, &f.IsFlagged, &f.FlagReason, &f.CreatedAt,
	); err != nil {
		return nil, err
	}
	f.Side = feedback.Side(side)
	f.GeneralRatings = feedback.GeneralRatings{}
	f.InterestRatings = feedback.KinkRatings{}
	f.BadgeGifting = feedback.Badges{}
	if err := decodeJSON(general, &f.GeneralRatings); err != nil {
		return nil, fmt.Errorf("decode general_ratings: %w", err)
	}
	if err := decodeJSON(interest, &f.InterestRatings); err != nil {
		return nil, fmt.Errorf("decode interest_ratings: %w", err)
	}
	if err := decodeJSON(badges, &f.BadgeGifting); err != nil {
		return nil, fmt.Errorf("decode badge_gifting: %w", err)
	}
	return &f, nil
}

// CreateFeedback claims the side's flag on the completed job, then inserts
// the entry, in one transaction. Locking the job row serialises concurrent
// submissions for the same job.
func (s *Store) CreateFeedback(ctx context.Context, f *feedback.Feedback) error {
	var flagColumn string
	switch f.Side {
	case feedback.SideDom:
		flagColumn = "dom_feedback_left"
	case feedback.SideSub:
		flagColumn = "sub_feedback_left"
	default:
		return fmt.Errorf("unknown feedback side %q", f.Side)
	}

	general, err := json.Marshal(f.GeneralRatings)
	if err != nil {
		return fmt.Errorf("encode general ratings: %w", err)
	}
	interest, err := json.Marshal(f.InterestRatings)
	if err != nil {
		return fmt.Errorf("encode interest ratings: %w", err)
	}
	badges, err := json.Marshal(f.BadgeGifting)
	if err != nil {
		return fmt.Errorf("encode badges: %w", err)
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE jobs SET `+flagColumn+` = true, updated_at = NOW()
			 WHERE id = $1 AND status = 'completed' AND NOT `+flagColumn,
			f.JobID,
		)
		if err != nil {
			return fmt.Errorf("claim feedback flag: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return feedback.ErrStale
		}

		tag, err = tx.Exec(ctx,
			`INSERT INTO feedback (id, job_id, from_user, to_user, side, general_ratings,
			                       interest_ratings, badge_gifting, honesty_score, comment,
			                       is_flagged, flag_reason, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb, $9, $10, $11, $12, $13)
			 ON CONFLICT (job_id, from_user) DO NOTHING`,
			f.ID, f.JobID, f.FromUser, f.ToUser, string(f.Side), string(general),
			string(interest), string(badges), f.HonestyScore, f.Comment,
			f.IsFlagged, f.FlagReason, f.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert feedback: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return feedback.ErrStale
		}
		return nil
	})
	if errors.Is(err, feedback.ErrStale) {
		return feedback.ErrStale
	}
	if err != nil {
		return fmt.Errorf("createFeedback: %w", err)
	}
	return nil
}

func (s *Store) GetFeedback(ctx context.Context, id string) (*feedback.Feedback, error) {
	f, err := scanFeedback(s.pool.QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "getFeedback "+id)
	}
	return f, nil
}

func (s *Store) ListFeedbackForJob(ctx context.Context, jobID string) ([]feedback.Feedback, error) {
	return s.listFeedback(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE job_id = $1 ORDER BY created_at ASC`, jobID)
}

func (s *Store) ListFeedbackForUser(ctx context.Context, userID string) ([]feedback.Feedback, error) {
	return s.listFeedback(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE to_user = $1 ORDER BY created_at DESC`, userID)
}

func (s *Store) FlagFeedback(ctx context.Context, id, toUser, reason string) (*feedback.Feedback, error) {
	f, err := scanFeedback(s.pool.QueryRow(ctx,
		`UPDATE feedback SET is_flagged = true, flag_reason = $3
		 WHERE id = $1 AND to_user = $2
		 RETURNING `+feedbackColumns,
		id, toUser, reason,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, feedback.ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("flagFeedback: %w", err)
	}
	return f, nil
}

func (s *Store) CountCompletedJobsWithFeedback(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT f.job_id)
		 FROM feedback f JOIN jobs j ON j.id = f.job_id
		 WHERE f.to_user = $1 AND j.status = 'completed'`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("countCompletedJobs: %w", err)
	}
	return n, nil
}

func (s *Store) ListFeedbackRecipients(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT to_user FROM feedback ORDER BY to_user`)
	if err != nil {
		return nil, fmt.Errorf("listFeedbackRecipients query: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("listFeedbackRecipients scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) listFeedback(ctx context.Context, query, arg string) ([]feedback.Feedback, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listFeedback query: %w", err)
	}
	defer rows.Close()

	out := make([]feedback.Feedback, 0)
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("listFeedback scan: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}
