package job

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"findsub/marketplace-service/internal/apperr"
	"findsub/marketplace-service/internal/events"
	"findsub/marketplace-service/internal/identity"
	"findsub/marketplace-service/internal/kink"
)

const (
	maxTitleRunes = 200
	maxTextRunes  = 8000
)

var startTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// KinkResolver turns kink IDs into value copies.
type KinkResolver interface {
	Resolve(ctx context.Context, ids []string) ([]kink.Kink, error)
}

// Fields are the poster-supplied job attributes for Create and Edit.
type Fields struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Location        string     `json:"location"`
	Compensation    string     `json:"compensation"`
	Requirements    string     `json:"requirements"`
	Category        string     `json:"category"`
	RequiredKinkIDs []string   `json:"requiredKinkIds"`
	StartDate       time.Time  `json:"startDate"`
	StartTime       string     `json:"startTime"`
	DurationMinutes int        `json:"durationMinutes"`
	ExpiresAt       *time.Time `json:"expiresAt"`
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Service encapsulates the job lifecycle. It is transport-agnostic.
type Service struct {
	store  Store
	kinks  KinkResolver
	events events.Publisher
	now    func() time.Time
}

// NewService returns a configured Service.
func NewService(store Store, kinks KinkResolver, pub events.Publisher) *Service {
	return &Service{store: store, kinks: kinks, events: pub, now: func() time.Time { return time.Now().UTC() }}
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// Get returns a single job.
func (s *Service) Get(ctx context.Context, jobID string) (*Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// ListOpen returns open, unexpired jobs annotated with whether viewer has
// already applied.
func (s *Service) ListOpen(ctx context.Context, viewer identity.Actor) ([]Listing, error) {
	listings, err := s.store.ListOpenJobs(ctx, viewer.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list open jobs: %w", err)
	}
	return listings, nil
}

// ListByPoster returns every job owned by posterID, newest first.
func (s *Service) ListByPoster(ctx context.Context, posterID string) ([]Job, error) {
	jobs, err := s.store.ListJobsByPoster(ctx, posterID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by poster: %w", err)
	}
	return jobs, nil
}

// ─── Commands ────────────────────────────────────────────────────────────────

// Create validates f and stores a new open job owned by poster.
func (s *Service) Create(ctx context.Context, poster identity.Actor, f Fields) (*Job, error) {
	if !poster.CanPost() {
		return nil, fmt.Errorf("role %q cannot post jobs: %w", poster.Role, apperr.ErrForbidden)
	}
	now := s.now()
	j, err := s.build(ctx, f, now)
	if err != nil {
		return nil, err
	}
	j.ID = uuid.NewString()
	j.PosterID = poster.ID
	j.Status = StatusOpen
	j.CreatedAt = now
	j.UpdatedAt = now
	j.Normalize()

	if err := s.store.CreateJob(ctx, j); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	events.Emit(ctx, s.events, events.New(events.JobCreated,
		"jobId", j.ID, "posterId", j.PosterID, "category", string(j.Category)))
	return j, nil
}

// Edit replaces the job's editable fields. Only the poster may edit, and only
// while the job is open or cancelled; editing a cancelled job re-lists it.
func (s *Service) Edit(ctx context.Context, jobID string, editor identity.Actor, f Fields) (*Job, error) {
	now := s.now()
	j, err := s.build(ctx, f, now)
	if err != nil {
		return nil, err
	}
	j.ID = jobID
	j.PosterID = editor.ID
	j.UpdatedAt = now

	updated, err := s.store.UpdateJobDetails(ctx, j)
	if errors.Is(err, ErrStale) {
		return nil, s.explain(ctx, jobID, editor, func(cur *Job) error {
			return fmt.Errorf("job is %s: %w", cur.Status, apperr.ErrInvalidState)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("edit job: %w", err)
	}
	return updated, nil
}

// SelectApplicant binds applicantID to the job and closes it to further
// applications. Concurrent selections on the same job are serialised by the
// store's conditional update: exactly one wins, the rest get AlreadyFilled.
func (s *Service) SelectApplicant(ctx context.Context, jobID string, selector identity.Actor, applicantID string) (*Job, error) {
	applicantID = strings.TrimSpace(applicantID)
	if applicantID == "" {
		return nil, apperr.Invalid("applicantId", "applicant is required")
	}

	updated, err := s.store.SelectApplicant(ctx, jobID, selector.ID, applicantID, s.now())
	if errors.Is(err, ErrStale) {
		return nil, s.explain(ctx, jobID, selector, func(cur *Job) error {
			switch {
			case HasSelection(cur.Status):
				return fmt.Errorf("job %s: %w", jobID, apperr.ErrAlreadyFilled)
			case cur.Status != StatusOpen:
				return fmt.Errorf("job is %s: %w", cur.Status, apperr.ErrInvalidState)
			default:
				return fmt.Errorf("application by %s: %w", applicantID, apperr.ErrNotFound)
			}
		})
	}
	if err != nil {
		return nil, fmt.Errorf("select applicant: %w", err)
	}

	events.Emit(ctx, s.events, events.New(events.ApplicantSelected,
		"jobId", jobID, "posterId", selector.ID, "applicantId", applicantID))
	return updated, nil
}

// UpdateStatus applies one of the poster-driven transitions
// (open→cancelled, filled→completed, filled→failed).
func (s *Service) UpdateStatus(ctx context.Context, jobID string, actor identity.Actor, newStatusStr string) (*Job, error) {
	newStatus, err := ParseStatus(newStatusStr)
	if err != nil {
		return nil, apperr.Invalid("status", "%s", err.Error())
	}

	cur, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if cur.PosterID != actor.ID {
		return nil, fmt.Errorf("only the poster may change job status: %w", apperr.ErrForbidden)
	}
	if !IsTransitionAllowed(cur.Status, newStatus) {
		return nil, fmt.Errorf("transition %s → %s: %w", cur.Status, newStatus, apperr.ErrInvalidTransition)
	}

	updated, err := s.store.TransitionJob(ctx, jobID, actor.ID, cur.Status, newStatus)
	if errors.Is(err, ErrStale) {
		// Someone moved the job between our read and the conditional write.
		return nil, s.explain(ctx, jobID, actor, func(now *Job) error {
			return fmt.Errorf("transition %s → %s: %w", now.Status, newStatus, apperr.ErrInvalidTransition)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("update job status: %w", err)
	}

	events.Emit(ctx, s.events, events.New(events.JobStatusChanged,
		"jobId", jobID, "posterId", actor.ID, "from", string(cur.Status), "to", string(newStatus),
		"selectedApplicant", updated.SelectedApplicant))
	return updated, nil
}

// Delete removes an open or cancelled job. Filled and later jobs are kept to
// preserve the feedback audit trail.
func (s *Service) Delete(ctx context.Context, jobID string, actor identity.Actor) error {
	err := s.store.DeleteJob(ctx, jobID, actor.ID)
	if errors.Is(err, ErrStale) {
		return s.explain(ctx, jobID, actor, func(cur *Job) error {
			return fmt.Errorf("cannot delete a %s job: %w", cur.Status, apperr.ErrInvalidState)
		})
	}
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// explain re-reads a job after a conditional write missed and reports why:
// missing job, wrong actor, or whatever stateErr derives from the current row.
func (s *Service) explain(ctx context.Context, jobID string, actor identity.Actor, stateErr func(*Job) error) error {
	cur, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if cur.PosterID != actor.ID {
		return fmt.Errorf("job %s belongs to another poster: %w", jobID, apperr.ErrForbidden)
	}
	return stateErr(cur)
}

// build validates f and returns a Job carrying its fields.
func (s *Service) build(ctx context.Context, f Fields, now time.Time) (*Job, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return nil, apperr.Invalid("title", "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return nil, apperr.Invalid("title", "title must be at most %d characters", maxTitleRunes)
	}
	description := strings.TrimSpace(f.Description)
	if description == "" {
		return nil, apperr.Invalid("description", "description is required")
	}
	for name, v := range map[string]string{
		"description":  description,
		"requirements": f.Requirements,
		"compensation": f.Compensation,
		"location":     f.Location,
	} {
		if utf8.RuneCountInString(v) > maxTextRunes {
			return nil, apperr.Invalid(name, "%s must be at most %d characters", name, maxTextRunes)
		}
	}
	if f.StartDate.IsZero() {
		return nil, apperr.Invalid("startDate", "start date is required")
	}
	if strings.TrimSpace(f.Category) == "" {
		return nil, apperr.Invalid("category", "category is required")
	}
	category, err := ParseCategory(f.Category)
	if err != nil {
		return nil, apperr.Invalid("category", "%s", err.Error())
	}
	startTime := strings.TrimSpace(f.StartTime)
	if startTime != "" && !startTimePattern.MatchString(startTime) {
		return nil, apperr.Invalid("startTime", "start time must be HH:MM")
	}
	if f.DurationMinutes < 0 {
		return nil, apperr.Invalid("durationMinutes", "duration cannot be negative")
	}
	if f.ExpiresAt != nil && !f.ExpiresAt.After(now) {
		return nil, apperr.Invalid("expiresAt", "expiry must be in the future")
	}

	kinks, err := s.kinks.Resolve(ctx, f.RequiredKinkIDs)
	if err != nil {
		return nil, err
	}

	j := &Job{
		Title:           title,
		Description:     description,
		Location:        strings.TrimSpace(f.Location),
		Compensation:    strings.TrimSpace(f.Compensation),
		Requirements:    strings.TrimSpace(f.Requirements),
		Category:        category,
		RequiredKinks:   kinks,
		StartDate:       calendarDate(f.StartDate),
		StartTime:       startTime,
		DurationMinutes: f.DurationMinutes,
	}
	if f.ExpiresAt != nil {
		exp := f.ExpiresAt.UTC()
		j.ExpiresAt = &exp
	}
	return j, nil
}

// calendarDate keeps the date as written in t's own offset and drops the time
// of day, matching the DATE column. Time of day travels in StartTime.
func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
