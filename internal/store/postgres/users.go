package postgres

import (
	"context"
	"fmt"

	"findsub/marketplace-service/internal/identity"
	"findsub/marketplace-service/internal/kink"
	"findsub/marketplace-service/internal/user"
)

// ─── Kinks ───────────────────────────────────────────────────────────────────

func (s *Store) ListKinks(ctx context.Context) ([]kink.Kink, error) {
	return s.queryKinks(ctx, `SELECT id, name, description FROM kinks ORDER BY name`)
}

func (s *Store) GetKinksByIDs(ctx context.Context, ids []string) ([]kink.Kink, error) {
	return s.queryKinks(ctx, `SELECT id, name, description FROM kinks WHERE id = ANY($1::text[])`, ids)
}

func (s *Store) UpsertKink(ctx context.Context, k kink.Kink) (*kink.Kink, error) {
	var out kink.Kink
	err := s.pool.QueryRow(ctx,
		`INSERT INTO kinks (id, name, description) VALUES ($1, $2, $3)
		 ON CONFLICT ((lower(name))) DO UPDATE SET description = EXCLUDED.description
		 RETURNING id, name, description`,
		k.ID, k.Name, k.Description,
	).Scan(&out.ID, &out.Name, &out.Description)
	if err != nil {
		return nil, fmt.Errorf("upsertKink: %w", err)
	}
	return &out, nil
}

func (s *Store) queryKinks(ctx context.Context, query string, args ...any) ([]kink.Kink, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("kinks query: %w", err)
	}
	defer rows.Close()

	out := make([]kink.Kink, 0)
	for rows.Next() {
		var k kink.Kink
		if err := rows.Scan(&k.ID, &k.Name, &k.Description); err != nil {
			return nil, fmt.Errorf("kinks scan: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// ─── Users ───────────────────────────────────────────────────────────────────

func (s *Store) GetProfile(ctx context.Context, userID string) (*user.Profile, error) {
	var (
		p    user.Profile
		role string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, role, email_verified, phone_verified, address_verified, bio, kink_preference_count
		 FROM users WHERE id = $1`,
		userID,
	).Scan(&p.ID, &role, &p.EmailVerified, &p.PhoneVerified, &p.AddressVerified, &p.Bio, &p.KinkPreferenceCount)
	if err != nil {
		return nil, notFound(err, "getProfile "+userID)
	}
	p.Role = identity.Role(role)
	return &p, nil
}

func (s *Store) GetReputation(ctx context.Context, userID string) (*user.Reputation, error) {
	var r user.Reputation
	err := s.pool.QueryRow(ctx,
		`SELECT id, completed_jobs, average_honesty_score, trust_score, reputation_score,
		        COALESCE(reputation_updated_at, 'epoch'::timestamptz)
		 FROM users WHERE id = $1`,
		userID,
	).Scan(&r.UserID, &r.CompletedJobs, &r.AverageHonestyScore, &r.TrustScore, &r.ReputationScore, &r.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "getReputation "+userID)
	}
	return &r, nil
}

// SaveReputation overwrites the derived columns, creating a stub user row
// when the user service has not synced one yet.
func (s *Store) SaveReputation(ctx context.Context, rep user.Reputation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, completed_jobs, average_honesty_score, trust_score, reputation_score, reputation_updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   completed_jobs        = EXCLUDED.completed_jobs,
		   average_honesty_score = EXCLUDED.average_honesty_score,
		   trust_score           = EXCLUDED.trust_score,
		   reputation_score      = EXCLUDED.reputation_score,
		   reputation_updated_at = EXCLUDED.reputation_updated_at`,
		rep.UserID, rep.CompletedJobs, rep.AverageHonestyScore, rep.TrustScore, rep.ReputationScore, rep.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saveReputation: %w", err)
	}
	return nil
}
