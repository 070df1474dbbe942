// Package reputation is the Reputation Aggregator. It derives a user's trust
// and rating statistics from the feedback they have received.
//
// Every recomputation starts from a fresh read of persisted feedback and
// overwrites the stored fields, so running it twice (or concurrently with a
// new submission) never accumulates drift.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"findsub/marketplace-service/internal/apperr"
	"findsub/marketplace-service/internal/events"
	"findsub/marketplace-service/internal/feedback"
	"findsub/marketplace-service/internal/user"
)

// Trust score weights.
const (
	ProfileCompletenessBonus = 10.0
	CompletedJobWeight       = 5.0
	HonestyWeight            = 2.0
)

// Source is the read side of the feedback store the aggregator needs.
type Source interface {
	ListFeedbackForUser(ctx context.Context, userID string) ([]feedback.Feedback, error)
	// CountCompletedJobsWithFeedback counts distinct completed jobs for which
	// userID received at least one feedback entry.
	CountCompletedJobsWithFeedback(ctx context.Context, userID string) (int, error)
	// ListFeedbackRecipients returns every user who has received feedback.
	ListFeedbackRecipients(ctx context.Context) ([]string, error)
}

// Cache holds recently computed reputations. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, userID string) (*user.Reputation, error)
	Set(ctx context.Context, rep user.Reputation) error
}

// Aggregator recomputes and serves reputation.
type Aggregator struct {
	source Source
	users  user.Store
	cache  Cache
	events events.Publisher
	now    func() time.Time
}

// NewAggregator returns a configured Aggregator. cache may be nil.
func NewAggregator(source Source, users user.Store, cache Cache, pub events.Publisher) *Aggregator {
	return &Aggregator{source: source, users: users, cache: cache, events: pub, now: func() time.Time { return time.Now().UTC() }}
}

// Recompute derives and stores userID's reputation.
func (a *Aggregator) Recompute(ctx context.Context, userID string) (*user.Reputation, error) {
	received, err := a.source.ListFeedbackForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load received feedback: %w", err)
	}
	completed, err := a.source.CountCompletedJobsWithFeedback(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count completed jobs: %w", err)
	}
	profile, err := a.users.GetProfile(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		profile = &user.Profile{ID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	rep := Compute(*profile, received, completed)
	rep.UserID = userID
	rep.UpdatedAt = a.now()
	if err := a.users.SaveReputation(ctx, rep); err != nil {
		return nil, fmt.Errorf("save reputation: %w", err)
	}
	a.cacheSet(ctx, rep)

	events.Emit(ctx, a.events, events.New(events.ReputationUpdated,
		"userId", userID,
		"trustScore", fmt.Sprintf("%.2f", rep.TrustScore),
		"completedJobs", fmt.Sprintf("%d", rep.CompletedJobs)))
	return &rep, nil
}

// RecomputeAll refreshes every user who has received feedback. Failures are
// logged and counted; the sweep continues.
func (a *Aggregator) RecomputeAll(ctx context.Context) (updated, failed int, err error) {
	users, err := a.source.ListFeedbackRecipients(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list feedback recipients: %w", err)
	}
	for _, id := range users {
		if ctx.Err() != nil {
			return updated, failed, ctx.Err()
		}
		if _, err := a.Recompute(ctx, id); err != nil {
			failed++
			slog.Warn("reputation recompute failed", "userId", id, "err", err)
			continue
		}
		updated++
	}
	return updated, failed, nil
}

// Get returns userID's reputation, preferring the cache. Users with no
// stored reputation get zero values.
func (a *Aggregator) Get(ctx context.Context, userID string) (*user.Reputation, error) {
	if a.cache != nil {
		rep, err := a.cache.Get(ctx, userID)
		if err != nil {
			slog.Warn("reputation cache read failed", "userId", userID, "err", err)
		} else if rep != nil {
			return rep, nil
		}
	}

	rep, err := a.users.GetReputation(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &user.Reputation{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load reputation: %w", err)
	}
	a.cacheSet(ctx, *rep)
	return rep, nil
}

func (a *Aggregator) cacheSet(ctx context.Context, rep user.Reputation) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, rep); err != nil {
		slog.Warn("reputation cache write failed", "userId", rep.UserID, "err", err)
	}
}

// ─── Pure computation ────────────────────────────────────────────────────────

// Compute derives reputation fields from a profile and the feedback the user
// received. It is deterministic in its inputs.
//
//   - reputationScore: mean over entries of each entry's mean general rating
//     (entries without general ratings do not contribute)
//   - averageHonestyScore: mean honesty over all entries
//   - trustScore: completeness bonus + completedJobs×5 + averageHonesty×2
func Compute(profile user.Profile, received []feedback.Feedback, completedJobs int) user.Reputation {
	var (
		generalSum   float64
		generalCount int
		honestySum   int
	)
	for _, f := range received {
		if m, ok := f.GeneralRatings.Mean(); ok {
			generalSum += m
			generalCount++
		}
		honestySum += f.HonestyScore
	}

	rep := user.Reputation{UserID: profile.ID, CompletedJobs: completedJobs}
	if generalCount > 0 {
		rep.ReputationScore = round2(generalSum / float64(generalCount))
	}
	if len(received) > 0 {
		rep.AverageHonestyScore = round2(float64(honestySum) / float64(len(received)))
	}

	trust := float64(completedJobs)*CompletedJobWeight + rep.AverageHonestyScore*HonestyWeight
	if profile.Complete() {
		trust += ProfileCompletenessBonus
	}
	rep.TrustScore = round2(trust)
	return rep
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
