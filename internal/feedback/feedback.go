// Package feedback is the Feedback Collector: it records the two one-shot
// reviews the parties of a completed job leave for each other.
package feedback

import (
	"context"
	"errors"
	"time"
)

// Side identifies which party of a job wrote a feedback entry.
type Side string

const (
	// SideDom is the poster rating the selected applicant.
	SideDom Side = "dom"
	// SideSub is the selected applicant rating the poster.
	SideSub Side = "sub"
)

// Feedback is immutable after creation apart from the flag fields.
type Feedback struct {
	ID              string         `json:"id"`
	JobID           string         `json:"jobId"`
	FromUser        string         `json:"fromUser"`
	ToUser          string         `json:"toUser"`
	Side            Side           `json:"side"`
	GeneralRatings  GeneralRatings `json:"generalRatings"`
	InterestRatings KinkRatings    `json:"interestRatings"`
	BadgeGifting    Badges         `json:"badgeGifting"`
	HonestyScore    int            `json:"honestyScore"`
	Comment         string         `json:"comment"`
	IsFlagged       bool           `json:"isFlagged"`
	FlagReason      string         `json:"flagReason,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// ErrStale is returned by conditional Store writes that matched no row.
var ErrStale = errors.New("feedback: conditional write matched no row")

// Store persists feedback.
type Store interface {
	// CreateFeedback inserts f and sets the job's feedback-left flag for f.Side
	// in one transaction, only while the job is completed and no entry exists
	// for (f.JobID, f.FromUser).
	CreateFeedback(ctx context.Context, f *Feedback) error
	// GetFeedback returns apperr.ErrNotFound when missing.
	GetFeedback(ctx context.Context, id string) (*Feedback, error)
	ListFeedbackForJob(ctx context.Context, jobID string) ([]Feedback, error)
	// ListFeedbackForUser returns entries whose ToUser is userID, newest first.
	ListFeedbackForUser(ctx context.Context, userID string) ([]Feedback, error)
	// FlagFeedback sets the flag fields, only when toUser is the recipient.
	FlagFeedback(ctx context.Context, id, toUser, reason string) (*Feedback, error)
}
