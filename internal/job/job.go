package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"findsub/marketplace-service/internal/kink"
)

// Category is one of the fixed job categories.
type Category string

const (
	CategoryCleaning           Category = "Cleaning"
	CategoryErrands            Category = "Errands"
	CategoryCooking            Category = "Cooking"
	CategoryGardening          Category = "Gardening"
	CategoryPersonalAssistance Category = "Personal Assistance"
	CategoryCompanionship      Category = "Companionship"
	CategoryTraining           Category = "Training"
	CategoryOther              Category = "Other"
)

// Categories is the fixed enumeration, in display order.
var Categories = []Category{
	CategoryCleaning,
	CategoryErrands,
	CategoryCooking,
	CategoryGardening,
	CategoryPersonalAssistance,
	CategoryCompanionship,
	CategoryTraining,
	CategoryOther,
}

// ParseCategory matches s case-insensitively against Categories and returns
// the canonical spelling.
func ParseCategory(s string) (Category, error) {
	trimmed := strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(trimmed, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Job is a posting owned by a poster.
type Job struct {
	ID                string      `json:"id"`
	PosterID          string      `json:"posterId"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	Location          string      `json:"location"`
	Compensation      string      `json:"compensation"`
	Requirements      string      `json:"requirements"`
	Category          Category    `json:"category"`
	RequiredKinks     []kink.Kink `json:"requiredKinks"`
	StartDate         time.Time   `json:"startDate"`
	StartTime         string      `json:"startTime,omitempty"`
	DurationMinutes   int         `json:"durationMinutes"`
	ExpiresAt         *time.Time  `json:"expiresAt,omitempty"`
	SelectedApplicant string      `json:"selectedApplicant,omitempty"`
	FulfilledOn       *time.Time  `json:"fulfilledOn,omitempty"`
	Status            Status      `json:"status"`
	DomFeedbackLeft   bool        `json:"domFeedbackLeft"`
	SubFeedbackLeft   bool        `json:"subFeedbackLeft"`
	IsEditable        bool        `json:"isEditable"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// Expired reports whether the job's listing window has passed at now.
func (j *Job) Expired(now time.Time) bool {
	return j.ExpiresAt != nil && !now.Before(*j.ExpiresAt)
}

// Normalize fills derived fields. Stores call it on every read.
func (j *Job) Normalize() {
	j.IsEditable = IsEditable(j.Status)
	if j.RequiredKinks == nil {
		j.RequiredKinks = []kink.Kink{}
	}
}

// Listing is an open job annotated for the viewer. HasApplied is computed
// per request and never stored.
type Listing struct {
	Job
	HasApplied bool `json:"hasApplied"`
}

// ErrStale is returned by conditional Store writes that matched no row. The
// service re-reads the job to turn it into a precise error.
var ErrStale = errors.New("job: conditional update matched no row")

// Store persists jobs. Every mutating method is a single conditional write.
type Store interface {
	CreateJob(ctx context.Context, j *Job) error
	// GetJob returns apperr.ErrNotFound when the job does not exist.
	GetJob(ctx context.Context, id string) (*Job, error)
	// ListOpenJobs returns open, unexpired jobs newest first, with
	// HasApplied set for viewerID.
	ListOpenJobs(ctx context.Context, viewerID string, now time.Time) ([]Listing, error)
	ListJobsByPoster(ctx context.Context, posterID string) ([]Job, error)
	// UpdateJobDetails replaces the editable fields of j and sets status to
	// open, only where id and poster match and the status is editable.
	UpdateJobDetails(ctx context.Context, j *Job) (*Job, error)
	// SelectApplicant moves an open job to filled, only when an application
	// exists for (jobID, applicantID).
	SelectApplicant(ctx context.Context, jobID, posterID, applicantID string, at time.Time) (*Job, error)
	// TransitionJob moves the job from → to, only while it is still in from.
	TransitionJob(ctx context.Context, jobID, posterID string, from, to Status) (*Job, error)
	// DeleteJob removes an editable job and its applications.
	DeleteJob(ctx context.Context, jobID, posterID string) error
}
