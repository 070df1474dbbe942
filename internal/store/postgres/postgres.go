// Package postgres implements every marketplace store on PostgreSQL via pgx.
//
// Each guarded mutation is one conditional statement (or one transaction for
// feedback). A statement that matches no row returns the owning package's
// ErrStale so the calling service can diagnose the precise reason.
package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"findsub/marketplace-service/internal/application"
	"findsub/marketplace-service/internal/apperr"
	"findsub/marketplace-service/internal/feedback"
	"findsub/marketplace-service/internal/job"
	"findsub/marketplace-service/internal/kink"
	"findsub/marketplace-service/internal/reputation"
	"findsub/marketplace-service/internal/user"
)

var (
	_ job.Store         = (*Store)(nil)
	_ application.Store = (*Store)(nil)
	_ feedback.Store    = (*Store)(nil)
	_ kink.Store        = (*Store)(nil)
	_ user.Store        = (*Store)(nil)
	_ reputation.Source = (*Store)(nil)
)

// Store is backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store using pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func editableStatuses() []string {
	out := make([]string, 0, len(job.EditableStatuses))
	for _, s := range job.EditableStatuses {
		out = append(out, string(s))
	}
	return out
}

func decodeJSON[T any](raw []byte, into *T) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, into)
}
