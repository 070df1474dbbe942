// Package kink is the Kink Registry: the catalogue of interest tags referenced
// by job requirements, user preferences and feedback ratings.
package kink

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"findsub/marketplace-service/internal/apperr"
)

// Kink is an immutable reference target. Jobs hold value copies; feedback
// refers to it by ID.
type Kink struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Store persists kinks.
type Store interface {
	ListKinks(ctx context.Context) ([]Kink, error)
	GetKinksByIDs(ctx context.Context, ids []string) ([]Kink, error)
	// UpsertKink inserts k, or updates the description of the kink with the
	// same name. It returns the stored record.
	UpsertKink(ctx context.Context, k Kink) (*Kink, error)
}

// Registry validates and resolves kink identifiers.
type Registry struct {
	store Store
}

// NewRegistry returns a Registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// List returns every kink sorted by name.
func (r *Registry) List(ctx context.Context) ([]Kink, error) {
	kinks, err := r.store.ListKinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list kinks: %w", err)
	}
	sort.Slice(kinks, func(i, j int) bool { return kinks[i].Name < kinks[j].Name })
	return kinks, nil
}

// Resolve returns value copies of the kinks named by ids, de-duplicated and
// in input order. Unknown IDs are a validation error.
func (r *Registry) Resolve(ctx context.Context, ids []string) ([]Kink, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return []Kink{}, nil
	}
	found, err := r.store.GetKinksByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("lookup kinks: %w", err)
	}
	byID := make(map[string]Kink, len(found))
	for _, k := range found {
		byID[k.ID] = k
	}
	out := make([]Kink, 0, len(unique))
	for _, id := range unique {
		k, ok := byID[id]
		if !ok {
			return nil, apperr.Invalid("kink", "unknown kink %q", id)
		}
		out = append(out, k)
	}
	return out, nil
}

// Validate checks that every id names a known kink.
func (r *Registry) Validate(ctx context.Context, ids []string) error {
	_, err := r.Resolve(ctx, ids)
	return err
}

// Register adds a kink to the catalogue (or refreshes its description).
func (r *Registry) Register(ctx context.Context, name, description string) (*Kink, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name", "kink name is required")
	}
	return r.store.UpsertKink(ctx, Kink{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
