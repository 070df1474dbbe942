// Package memory is an in-process implementation of every marketplace store.
//
// A single mutex guards all tables, so each conditional write observes and
// mutates a consistent snapshot, matching the single-statement guarantees of
// the PostgreSQL store. Used for local runs (STORAGE_BACKEND=memory) and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

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

type appKey struct{ jobID, applicantID string }

// Store holds every table in maps.
type Store struct {
	mu           sync.RWMutex
	kinks        map[string]kink.Kink
	jobs         map[string]job.Job
	applications map[appKey]application.Application
	feedback     map[string]feedback.Feedback
	profiles     map[string]user.Profile
	reputations  map[string]user.Reputation
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		kinks:        map[string]kink.Kink{},
		jobs:         map[string]job.Job{},
		applications: map[appKey]application.Application{},
		feedback:     map[string]feedback.Feedback{},
		profiles:     map[string]user.Profile{},
		reputations:  map[string]user.Reputation{},
	}
}

// ─── Kinks ───────────────────────────────────────────────────────────────────

func (s *Store) ListKinks(_ context.Context) ([]kink.Kink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]kink.Kink, 0, len(s.kinks))
	for _, k := range s.kinks {
		out = append(out, k)
	}
	return out, nil
}

func (s *Store) GetKinksByIDs(_ context.Context, ids []string) ([]kink.Kink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]kink.Kink, 0, len(ids))
	for _, id := range ids {
		if k, ok := s.kinks[id]; ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) UpsertKink(_ context.Context, k kink.Kink) (*kink.Kink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.kinks {
		if strings.EqualFold(existing.Name, k.Name) {
			existing.Description = k.Description
			s.kinks[id] = existing
			return &existing, nil
		}
	}
	s.kinks[k.ID] = k
	return &k, nil
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

func (s *Store) CreateJob(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[j.ID]; exists {
		return fmt.Errorf("job %s already exists", j.ID)
	}
	s.jobs[j.ID] = cloneJob(*j)
	return nil
}

func (s *Store) GetJob(_ context.Context, id string) (*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, apperr.ErrNotFound)
	}
	out := cloneJob(j)
	return &out, nil
}

func (s *Store) ListOpenJobs(_ context.Context, viewerID string, now time.Time) ([]job.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]job.Listing, 0)
	for _, j := range s.jobs {
		if j.Status != job.StatusOpen || j.Expired(now) {
			continue
		}
		_, applied := s.applications[appKey{j.ID, viewerID}]
		out = append(out, job.Listing{Job: cloneJob(j), HasApplied: viewerID != "" && applied})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (s *Store) ListJobsByPoster(_ context.Context, posterID string) ([]job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]job.Job, 0)
	for _, j := range s.jobs {
		if j.PosterID == posterID {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateJobDetails(_ context.Context, j *job.Job) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[j.ID]
	if !ok || cur.PosterID != j.PosterID || !job.IsEditable(cur.Status) {
		return nil, job.ErrStale
	}
	cur.Title = j.Title
	cur.Description = j.Description
	cur.Location = j.Location
	cur.Compensation = j.Compensation
	cur.Requirements = j.Requirements
	cur.Category = j.Category
	cur.RequiredKinks = j.RequiredKinks
	cur.StartDate = j.StartDate
	cur.StartTime = j.StartTime
	cur.DurationMinutes = j.DurationMinutes
	cur.ExpiresAt = j.ExpiresAt
	cur.Status = job.StatusOpen
	cur.UpdatedAt = j.UpdatedAt
	cur = cloneJob(cur)
	s.jobs[cur.ID] = cur
	out := cloneJob(cur)
	return &out, nil
}

func (s *Store) SelectApplicant(_ context.Context, jobID, posterID, applicantID string, at time.Time) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[jobID]
	if !ok || cur.PosterID != posterID || cur.Status != job.StatusOpen {
		return nil, job.ErrStale
	}
	if _, applied := s.applications[appKey{jobID, applicantID}]; !applied {
		return nil, job.ErrStale
	}
	fulfilled := at
	cur.Status = job.StatusFilled
	cur.SelectedApplicant = applicantID
	cur.FulfilledOn = &fulfilled
	cur.UpdatedAt = at
	cur.Normalize()
	s.jobs[jobID] = cur
	out := cloneJob(cur)
	return &out, nil
}

func (s *Store) TransitionJob(_ context.Context, jobID, posterID string, from, to job.Status) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[jobID]
	if !ok || cur.PosterID != posterID || cur.Status != from {
		return nil, job.ErrStale
	}
	cur.Status = to
	cur.UpdatedAt = time.Now().UTC()
	cur.Normalize()
	s.jobs[jobID] = cur
	out := cloneJob(cur)
	return &out, nil
}

func (s *Store) DeleteJob(_ context.Context, jobID, posterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[jobID]
	if !ok || cur.PosterID != posterID || !job.IsEditable(cur.Status) {
		return job.ErrStale
	}
	delete(s.jobs, jobID)
	for k := range s.applications {
		if k.jobID == jobID {
			delete(s.applications, k)
		}
	}
	return nil
}

// ─── Applications ────────────────────────────────────────────────────────────

func (s *Store) CreateApplication(_ context.Context, a *application.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[a.JobID]
	if !ok || j.Status != job.StatusOpen || j.Expired(a.CreatedAt) {
		return application.ErrStale
	}
	key := appKey{a.JobID, a.ApplicantID}
	if _, exists := s.applications[key]; exists {
		return application.ErrStale
	}
	s.applications[key] = *a
	return nil
}

func (s *Store) GetApplication(_ context.Context, jobID, applicantID string) (*application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applications[appKey{jobID, applicantID}]
	if !ok {
		return nil, fmt.Errorf("application to job %s: %w", jobID, apperr.ErrNotFound)
	}
	return &a, nil
}

func (s *Store) DeleteApplication(_ context.Context, jobID, applicantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := appKey{jobID, applicantID}
	if _, ok := s.applications[key]; !ok {
		return application.ErrStale
	}
	j, ok := s.jobs[jobID]
	if !ok || j.Status != job.StatusOpen || j.SelectedApplicant == applicantID {
		return application.ErrStale
	}
	delete(s.applications, key)
	return nil
}

func (s *Store) ListApplicationsForJob(_ context.Context, jobID string) ([]application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]application.Application, 0)
	for k, a := range s.applications {
		if k.jobID == jobID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListApplicationsForApplicant(_ context.Context, applicantID string) ([]application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]application.Application, 0)
	for k, a := range s.applications {
		if k.applicantID == applicantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ─── Feedback ────────────────────────────────────────────────────────────────

func (s *Store) CreateFeedback(_ context.Context, f *feedback.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[f.JobID]
	if !ok || j.Status != job.StatusCompleted {
		return feedback.ErrStale
	}
	for _, existing := range s.feedback {
		if existing.JobID == f.JobID && existing.FromUser == f.FromUser {
			return feedback.ErrStale
		}
	}
	switch f.Side {
	case feedback.SideDom:
		j.DomFeedbackLeft = true
	case feedback.SideSub:
		j.SubFeedbackLeft = true
	default:
		return fmt.Errorf("unknown feedback side %q", f.Side)
	}
	s.jobs[j.ID] = j
	s.feedback[f.ID] = cloneFeedback(*f)
	return nil
}

func (s *Store) GetFeedback(_ context.Context, id string) (*feedback.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.feedback[id]
	if !ok {
		return nil, fmt.Errorf("feedback %s: %w", id, apperr.ErrNotFound)
	}
	out := cloneFeedback(f)
	return &out, nil
}

func (s *Store) ListFeedbackForJob(_ context.Context, jobID string) ([]feedback.Feedback, error) {
	return s.filterFeedback(func(f feedback.Feedback) bool { return f.JobID == jobID }, false), nil
}

func (s *Store) ListFeedbackForUser(_ context.Context, userID string) ([]feedback.Feedback, error) {
	return s.filterFeedback(func(f feedback.Feedback) bool { return f.ToUser == userID }, true), nil
}

func (s *Store) FlagFeedback(_ context.Context, id, toUser, reason string) (*feedback.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feedback[id]
	if !ok || f.ToUser != toUser {
		return nil, feedback.ErrStale
	}
	f.IsFlagged = true
	f.FlagReason = reason
	s.feedback[id] = f
	out := cloneFeedback(f)
	return &out, nil
}

func (s *Store) CountCompletedJobsWithFeedback(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, f := range s.feedback {
		if f.ToUser != userID {
			continue
		}
		if j, ok := s.jobs[f.JobID]; ok && j.Status == job.StatusCompleted {
			seen[f.JobID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (s *Store) ListFeedbackRecipients(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, f := range s.feedback {
		if _, ok := seen[f.ToUser]; ok {
			continue
		}
		seen[f.ToUser] = struct{}{}
		out = append(out, f.ToUser)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) filterFeedback(keep func(feedback.Feedback) bool, newestFirst bool) []feedback.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]feedback.Feedback, 0)
	for _, f := range s.feedback {
		if keep(f) {
			out = append(out, cloneFeedback(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ─── Users ───────────────────────────────────────────────────────────────────

// PutProfile stores p; the user service owns profiles in production.
func (s *Store) PutProfile(p user.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// SeedProfilesFromFile loads a YAML profile fixture into the store and
// returns how many profiles it holds.
func (s *Store) SeedProfilesFromFile(path string) (int, error) {
	profiles, err := user.LoadProfiles(path)
	if err != nil {
		return 0, err
	}
	for _, p := range profiles {
		s.PutProfile(p)
	}
	return len(profiles), nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (*user.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) GetReputation(_ context.Context, userID string) (*user.Reputation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reputations[userID]
	if !ok {
		return nil, fmt.Errorf("reputation of %s: %w", userID, apperr.ErrNotFound)
	}
	return &r, nil
}

func (s *Store) SaveReputation(_ context.Context, rep user.Reputation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reputations[rep.UserID] = rep
	return nil
}

// ─── Copy helpers ────────────────────────────────────────────────────────────

func cloneJob(j job.Job) job.Job {
	j.RequiredKinks = append([]kink.Kink(nil), j.RequiredKinks...)
	if j.ExpiresAt != nil {
		t := *j.ExpiresAt
		j.ExpiresAt = &t
	}
	if j.FulfilledOn != nil {
		t := *j.FulfilledOn
		j.FulfilledOn = &t
	}
	j.Normalize()
	return j
}

func cloneFeedback(f feedback.Feedback) feedback.Feedback {
	general := make(feedback.GeneralRatings, len(f.GeneralRatings))
	for k, v := range f.GeneralRatings {
		general[k] = v
	}
	interests := make(feedback.KinkRatings, len(f.InterestRatings))
	for k, v := range f.InterestRatings {
		interests[k] = v
	}
	badges := make(feedback.Badges, len(f.BadgeGifting))
	for k, v := range f.BadgeGifting {
		badges[k] = v
	}
	f.GeneralRatings, f.InterestRatings, f.BadgeGifting = general, interests, badges
	return f
}
