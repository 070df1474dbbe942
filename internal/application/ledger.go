// Package application is the Application Ledger: the record of applicants
// expressing interest in open jobs.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"findsub/marketplace-service/internal/apperr"
	"findsub/marketplace-service/internal/events"
	"findsub/marketplace-service/internal/identity"
	"findsub/marketplace-service/internal/job"
)

const maxCoverLetterRunes = 4000

// Application is one applicant's interest in one job. A selected applicant's
// application is the audit trail of the selection and outlives the job's
// open phase.
type Application struct {
	ID          string    `json:"id"`
	JobID       string    `json:"jobId"`
	ApplicantID string    `json:"applicantId"`
	CoverLetter string    `json:"coverLetter,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ErrStale is returned by conditional Store writes that matched no row.
var ErrStale = errors.New("application: conditional write matched no row")

// Store persists applications.
type Store interface {
	// CreateApplication inserts a, only while the job is open and unexpired
	// at a.CreatedAt and no application exists for the pair.
	CreateApplication(ctx context.Context, a *Application) error
	GetApplication(ctx context.Context, jobID, applicantID string) (*Application, error)
	// DeleteApplication removes the pair's application, only while the job
	// is open and the applicant is not selected.
	DeleteApplication(ctx context.Context, jobID, applicantID string) error
	ListApplicationsForJob(ctx context.Context, jobID string) ([]Application, error)
	ListApplicationsForApplicant(ctx context.Context, applicantID string) ([]Application, error)
}

// JobReader is the slice of the job store the ledger consults when
// explaining a rejected write.
type JobReader interface {
	GetJob(ctx context.Context, id string) (*job.Job, error)
}

// ─── Ledger ──────────────────────────────────────────────────────────────────

// Ledger implements apply / retract / list.
type Ledger struct {
	store  Store
	jobs   JobReader
	events events.Publisher
	now    func() time.Time
}

// NewLedger returns a configured Ledger.
func NewLedger(store Store, jobs JobReader, pub events.Publisher) *Ledger {
	return &Ledger{store: store, jobs: jobs, events: pub, now: func() time.Time { return time.Now().UTC() }}
}

// Apply records applicant's interest in jobID.
func (l *Ledger) Apply(ctx context.Context, jobID string, applicant identity.Actor, coverLetter string) (*Application, error) {
	if !applicant.CanApply() {
		return nil, fmt.Errorf("role %q cannot apply to jobs: %w", applicant.Role, apperr.ErrForbidden)
	}
	coverLetter = strings.TrimSpace(coverLetter)
	if utf8.RuneCountInString(coverLetter) > maxCoverLetterRunes {
		return nil, apperr.Invalid("coverLetter", "cover letter must be at most %d characters", maxCoverLetterRunes)
	}

	j, err := l.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.PosterID == applicant.ID {
		return nil, fmt.Errorf("cannot apply to your own job: %w", apperr.ErrForbidden)
	}

	a := &Application{
		ID:          uuid.NewString(),
		JobID:       jobID,
		ApplicantID: applicant.ID,
		CoverLetter: coverLetter,
		CreatedAt:   l.now(),
	}
	err = l.store.CreateApplication(ctx, a)
	if errors.Is(err, ErrStale) {
		return nil, l.explainApply(ctx, jobID, applicant.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	events.Emit(ctx, l.events, events.New(events.ApplicationCreated,
		"applicationId", a.ID, "jobId", jobID, "applicantId", applicant.ID, "posterId", j.PosterID))
	return a, nil
}

// Retract removes applicantID's application to jobID. The selected
// applicant's application is the audit trail of the selection, so retraction
// is only possible while the job is still open.
func (l *Ledger) Retract(ctx context.Context, jobID, applicantID string) error {
	err := l.store.DeleteApplication(ctx, jobID, applicantID)
	if errors.Is(err, ErrStale) {
		if _, gerr := l.store.GetApplication(ctx, jobID, applicantID); gerr != nil {
			return gerr
		}
		return fmt.Errorf("job is no longer open: %w", apperr.ErrInvalidState)
	}
	if err != nil {
		return fmt.Errorf("retract application: %w", err)
	}

	events.Emit(ctx, l.events, events.New(events.ApplicationRetracted,
		"jobId", jobID, "applicantId", applicantID))
	return nil
}

// Get returns the application for the pair.
func (l *Ledger) Get(ctx context.Context, jobID, applicantID string) (*Application, error) {
	return l.store.GetApplication(ctx, jobID, applicantID)
}

// ListForJob returns every application to jobID, oldest first. Only the
// job's poster may see them.
func (l *Ledger) ListForJob(ctx context.Context, jobID string, viewer identity.Actor) ([]Application, error) {
	j, err := l.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.PosterID != viewer.ID {
		return nil, fmt.Errorf("only the poster may list applications: %w", apperr.ErrForbidden)
	}
	apps, err := l.store.ListApplicationsForJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list applications for job: %w", err)
	}
	return apps, nil
}

// ListForApplicant returns every application made by applicantID, newest first.
func (l *Ledger) ListForApplicant(ctx context.Context, applicantID string) ([]Application, error) {
	apps, err := l.store.ListApplicationsForApplicant(ctx, applicantID)
	if err != nil {
		return nil, fmt.Errorf("list applications for applicant: %w", err)
	}
	return apps, nil
}

// explainApply turns a rejected conditional insert into a precise error.
func (l *Ledger) explainApply(ctx context.Context, jobID, applicantID string) error {
	if _, err := l.store.GetApplication(ctx, jobID, applicantID); err == nil {
		return fmt.Errorf("job %s: %w", jobID, apperr.ErrDuplicateApplication)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	j, err := l.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if j.Status != job.StatusOpen {
		return fmt.Errorf("job is %s: %w", j.Status, apperr.ErrJobNotOpen)
	}
	return fmt.Errorf("job listing expired: %w", apperr.ErrJobNotOpen)
}
