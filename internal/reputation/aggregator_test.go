package reputation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"findsub/marketplace-service/internal/apperr"
	"findsub/marketplace-service/internal/events"
	"findsub/marketplace-service/internal/feedback"
	"findsub/marketplace-service/internal/reputation"
	"findsub/marketplace-service/internal/user"
)

var notFound = fmt.Errorf("fake: %w", apperr.ErrNotFound)

func entry(to string, honesty int, general feedback.GeneralRatings) feedback.Feedback {
	return feedback.Feedback{ToUser: to, HonestyScore: honesty, GeneralRatings: general}
}

func completeProfile(id string) user.Profile {
	return user.Profile{
		ID:                  id,
		EmailVerified:       true,
		PhoneVerified:       true,
		AddressVerified:     true,
		Bio:                 "Hi",
		KinkPreferenceCount: 2,
	}
}

// ── Compute ────────────────────────────────────────────────────────────────

func TestCompute_NoFeedback(t *testing.T) {
	got := reputation.Compute(user.Profile{ID: "u"}, nil, 0)
	if got.TrustScore != 0 || got.ReputationScore != 0 || got.AverageHonestyScore != 0 || got.CompletedJobs != 0 {
		t.Errorf("got %+v, want zeros", got)
	}
}

func TestCompute_CompletenessBonus(t *testing.T) {
	got := reputation.Compute(completeProfile("u"), nil, 0)
	if got.TrustScore != reputation.ProfileCompletenessBonus {
		t.Errorf("trust = %v, want %v", got.TrustScore, reputation.ProfileCompletenessBonus)
	}

	p := completeProfile("u")
	p.PhoneVerified = false
	if got := reputation.Compute(p, nil, 0); got.TrustScore != 0 {
		t.Errorf("incomplete profile trust = %v, want 0", got.TrustScore)
	}
}

func TestCompute_Weights(t *testing.T) {
	received := []feedback.Feedback{
		entry("u", 4, feedback.GeneralRatings{feedback.CategoryObedience: 5, feedback.CategoryRespect: 3}),
		entry("u", 5, feedback.GeneralRatings{feedback.CategoryObedience: 2}),
		entry("u", 3, nil),
	}
	got := reputation.Compute(completeProfile("u"), received, 2)

	// general means: 4 and 2 (third entry has none) → 3
	if got.ReputationScore != 3 {
		t.Errorf("reputationScore = %v, want 3", got.ReputationScore)
	}
	if got.AverageHonestyScore != 4 {
		t.Errorf("averageHonesty = %v, want 4", got.AverageHonestyScore)
	}
	// 10 + 2×5 + 4×2
	if got.TrustScore != 28 {
		t.Errorf("trustScore = %v, want 28", got.TrustScore)
	}
	if got.CompletedJobs != 2 {
		t.Errorf("completedJobs = %d", got.CompletedJobs)
	}
}

func TestCompute_RoundsToTwoDecimals(t *testing.T) {
	received := []feedback.Feedback{entry("u", 1, nil), entry("u", 1, nil), entry("u", 2, nil)}
	got := reputation.Compute(user.Profile{ID: "u"}, received, 0)
	if got.AverageHonestyScore != 1.33 {
		t.Errorf("averageHonesty = %v, want 1.33", got.AverageHonestyScore)
	}
	if got.TrustScore != 2.66 {
		t.Errorf("trust = %v, want 2.66", got.TrustScore)
	}
}

// ── Aggregator ─────────────────────────────────────────────────────────────

type fakeSource struct {
	mu       sync.Mutex
	received map[string][]feedback.Feedback
	jobs     map[string]int
	err      error
}

func (f *fakeSource) ListFeedbackForUser(_ context.Context, userID string) ([]feedback.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]feedback.Feedback(nil), f.received[userID]...), nil
}

func (f *fakeSource) CountCompletedJobsWithFeedback(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[userID], nil
}

func (f *fakeSource) ListFeedbackRecipients(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.received))
	for id := range f.received {
		out = append(out, id)
	}
	return out, nil
}

type fakeUsers struct {
	mu       sync.Mutex
	profiles map[string]user.Profile
	reps     map[string]user.Reputation
	saves    int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{profiles: map[string]user.Profile{}, reps: map[string]user.Reputation{}}
}

func (f *fakeUsers) GetProfile(_ context.Context, id string) (*user.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, notFound
	}
	return &p, nil
}

func (f *fakeUsers) GetReputation(_ context.Context, id string) (*user.Reputation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reps[id]
	if !ok {
		return nil, notFound
	}
	return &r, nil
}

func (f *fakeUsers) SaveReputation(_ context.Context, r user.Reputation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.reps[r.UserID] = r
	return nil
}

type mapCache struct {
	mu   sync.Mutex
	reps map[string]user.Reputation
	sets int
}

func (c *mapCache) Get(_ context.Context, id string) (*user.Reputation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reps[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (c *mapCache) Set(_ context.Context, r user.Reputation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reps == nil {
		c.reps = map[string]user.Reputation{}
	}
	c.reps[r.UserID] = r
	c.sets++
	return nil
}

func TestRecompute_IsIdempotent(t *testing.T) {
	src := &fakeSource{
		received: map[string][]feedback.Feedback{
			"sub-a": {entry("sub-a", 4, feedback.GeneralRatings{feedback.CategoryObedience: 5})},
		},
		jobs: map[string]int{"sub-a": 1},
	}
	users := newFakeUsers()
	users.profiles["sub-a"] = completeProfile("sub-a")
	agg := reputation.NewAggregator(src, users, nil, events.Nop{})
	ctx := context.Background()

	first, err := agg.Recompute(ctx, "sub-a")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	second, err := agg.Recompute(ctx, "sub-a")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if first.TrustScore != second.TrustScore || first.ReputationScore != second.ReputationScore ||
		first.AverageHonestyScore != second.AverageHonestyScore || first.CompletedJobs != second.CompletedJobs {
		t.Errorf("recompute drifted: %+v vs %+v", first, second)
	}
	// 10 + 1×5 + 4×2
	if second.TrustScore != 23 || second.UserID != "sub-a" {
		t.Errorf("rep = %+v", second)
	}
}

func TestRecompute_MissingProfileGetsNoBonus(t *testing.T) {
	src := &fakeSource{received: map[string][]feedback.Feedback{"x": {entry("x", 5, nil)}}}
	agg := reputation.NewAggregator(src, newFakeUsers(), nil, nil)

	rep, err := agg.Recompute(context.Background(), "x")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if rep.TrustScore != 10 || rep.UserID != "x" {
		t.Errorf("rep = %+v, want honesty-only trust 10", rep)
	}
}

func TestRecompute_SourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	users := newFakeUsers()
	agg := reputation.NewAggregator(src, users, nil, nil)

	if _, err := agg.Recompute(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if users.saves != 0 {
		t.Error("nothing should be saved on failure")
	}
}

func TestRecomputeAll(t *testing.T) {
	src := &fakeSource{received: map[string][]feedback.Feedback{
		"a": {entry("a", 3, nil)},
		"b": {entry("b", 5, nil)},
	}}
	users := newFakeUsers()
	rec := &events.Recorder{}
	agg := reputation.NewAggregator(src, users, nil, rec)

	updated, failed, err := agg.RecomputeAll(context.Background())
	if err != nil || updated != 2 || failed != 0 {
		t.Fatalf("RecomputeAll = %d, %d, %v", updated, failed, err)
	}
	if len(users.reps) != 2 {
		t.Errorf("saved %d reputations", len(users.reps))
	}
	if len(rec.Types()) != 2 {
		t.Errorf("events = %v", rec.Types())
	}
}

func TestGet_CacheAndDefaults(t *testing.T) {
	src := &fakeSource{received: map[string][]feedback.Feedback{"a": {entry("a", 4, nil)}}}
	users := newFakeUsers()
	cache := &mapCache{}
	agg := reputation.NewAggregator(src, users, cache, nil)
	ctx := context.Background()

	fresh, err := agg.Get(ctx, "nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fresh.UserID != "nobody" || fresh.TrustScore != 0 {
		t.Errorf("unknown user rep = %+v", fresh)
	}

	if _, err := agg.Recompute(ctx, "a"); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}

	// Cached value wins over the store.
	users.mu.Lock()
	users.reps["a"] = user.Reputation{UserID: "a", TrustScore: 99, UpdatedAt: time.Now()}
	users.mu.Unlock()
	got, err := agg.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TrustScore != 8 {
		t.Errorf("trust = %v, want cached 8", got.TrustScore)
	}
}

// ── Summary ────────────────────────────────────────────────────────────────

func TestSummarize(t *testing.T) {
	received := []feedback.Feedback{
		{
			ToUser:          "u",
			HonestyScore:    4,
			GeneralRatings:  feedback.GeneralRatings{feedback.CategoryObedience: 5},
			InterestRatings: feedback.KinkRatings{"rope": 4},
			BadgeGifting:    feedback.Badges{"rope": 2},
		},
		{
			ToUser:          "u",
			HonestyScore:    3,
			GeneralRatings:  feedback.GeneralRatings{feedback.CategoryObedience: 4, feedback.CategoryRespect: 5},
			InterestRatings: feedback.KinkRatings{"rope": 5},
			BadgeGifting:    feedback.Badges{"rope": 3},
			IsFlagged:       true,
		},
	}
	s := reputation.Summarize("u", received)

	if s.Entries != 2 || s.Flagged != 1 || s.AverageHonesty != 3.5 {
		t.Errorf("summary = %+v", s)
	}
	if s.General[feedback.CategoryObedience] != 4.5 || s.General[feedback.CategoryRespect] != 5 {
		t.Errorf("general = %v", s.General)
	}
	if s.Interests["rope"] != 4.5 {
		t.Errorf("interests = %v", s.Interests)
	}
	if b := s.Badges["rope"]; b.Count != 2 || b.Levels != 5 {
		t.Errorf("badges = %+v", b)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := reputation.Summarize("u", nil)
	if s.Entries != 0 || s.General == nil || s.Interests == nil || s.Badges == nil {
		t.Errorf("summary = %+v", s)
	}
}
