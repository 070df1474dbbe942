package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"findsub/marketplace-service/internal/apperr"
	"findsub/marketplace-service/internal/events"
	"findsub/marketplace-service/internal/identity"
	"findsub/marketplace-service/internal/job"
	"findsub/marketplace-service/internal/user"
)

const maxCommentRunes = 4000

// JobReader is the slice of the job store the collector needs.
type JobReader interface {
	GetJob(ctx context.Context, id string) (*job.Job, error)
}

// KinkValidator checks kink identifiers against the registry.
type KinkValidator interface {
	Validate(ctx context.Context, ids []string) error
}

// Recomputer refreshes a user's reputation after new feedback lands.
type Recomputer interface {
	Recompute(ctx context.Context, userID string) (*user.Reputation, error)
}

// Input is what a party submits about the other party.
type Input struct {
	ToUser          string         `json:"toUser"`
	GeneralRatings  map[string]int `json:"generalRatings"`
	InterestRatings map[string]int `json:"interestRatings"`
	BadgeGifting    map[string]int `json:"badgeGifting"`
	HonestyScore    *int           `json:"honestyScore"`
	Comment         string         `json:"comment"`
}

// ─── Collector ───────────────────────────────────────────────────────────────

// Collector validates and records feedback.
type Collector struct {
	store      Store
	jobs       JobReader
	kinks      KinkValidator
	moderator  *Moderator
	reputation Recomputer
	events     events.Publisher
	now        func() time.Time
}

// NewCollector returns a configured Collector. reputation may be nil.
func NewCollector(store Store, jobs JobReader, kinks KinkValidator, moderator *Moderator, reputation Recomputer, pub events.Publisher) *Collector {
	return &Collector{
		store:      store,
		jobs:       jobs,
		kinks:      kinks,
		moderator:  moderator,
		reputation: reputation,
		events:     pub,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit records author's feedback on jobID. The two parties submit
// independently and in either order; each may submit once.
func (c *Collector) Submit(ctx context.Context, jobID string, author identity.Actor, in Input) (*Feedback, error) {
	j, err := c.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status != job.StatusCompleted {
		return nil, fmt.Errorf("feedback opens once the job is completed, job is %s: %w", j.Status, apperr.ErrInvalidState)
	}

	var side Side
	var counterparty string
	switch author.ID {
	case j.PosterID:
		side, counterparty = SideDom, j.SelectedApplicant
	case j.SelectedApplicant:
		side, counterparty = SideSub, j.PosterID
	default:
		return nil, fmt.Errorf("only the poster and the selected applicant may leave feedback: %w", apperr.ErrForbidden)
	}

	toUser := strings.TrimSpace(in.ToUser)
	if toUser == "" {
		toUser = counterparty
	}
	if toUser != counterparty {
		return nil, apperr.Invalid("toUser", "feedback must be addressed to the other party of the job")
	}

	f, err := c.build(ctx, in, side)
	if err != nil {
		return nil, err
	}
	f.ID = uuid.NewString()
	f.JobID = jobID
	f.FromUser = author.ID
	f.ToUser = toUser
	f.Side = side
	f.CreatedAt = c.now()

	err = c.store.CreateFeedback(ctx, f)
	if errors.Is(err, ErrStale) {
		return nil, c.explainSubmit(ctx, jobID, author.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}

	if c.reputation != nil {
		if _, err := c.reputation.Recompute(ctx, toUser); err != nil {
			slog.Warn("reputation recompute after feedback failed", "userId", toUser, "feedbackId", f.ID, "err", err)
		}
	}
	events.Emit(ctx, c.events, events.New(events.FeedbackSubmitted,
		"feedbackId", f.ID, "jobId", jobID, "fromUser", f.FromUser, "toUser", f.ToUser, "side", string(side)))
	return f, nil
}

// Flag marks a feedback entry addressed to actor as disputed.
func (c *Collector) Flag(ctx context.Context, feedbackID string, actor identity.Actor, reason string) (*Feedback, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Invalid("reason", "flag reason is required")
	}
	if utf8.RuneCountInString(reason) > maxCommentRunes {
		return nil, apperr.Invalid("reason", "flag reason must be at most %d characters", maxCommentRunes)
	}

	f, err := c.store.FlagFeedback(ctx, feedbackID, actor.ID, reason)
	if errors.Is(err, ErrStale) {
		if _, gerr := c.store.GetFeedback(ctx, feedbackID); gerr != nil {
			return nil, gerr
		}
		return nil, fmt.Errorf("only the recipient may flag feedback: %w", apperr.ErrForbidden)
	}
	if err != nil {
		return nil, fmt.Errorf("flag feedback: %w", err)
	}

	events.Emit(ctx, c.events, events.New(events.FeedbackFlagged,
		"feedbackId", f.ID, "jobId", f.JobID, "flaggedBy", actor.ID))
	return f, nil
}

// ForJob returns both directions of feedback for jobID.
func (c *Collector) ForJob(ctx context.Context, jobID string) ([]Feedback, error) {
	if _, err := c.jobs.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	items, err := c.store.ListFeedbackForJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list feedback for job: %w", err)
	}
	return items, nil
}

// ForUser returns every feedback entry userID has received.
func (c *Collector) ForUser(ctx context.Context, userID string) ([]Feedback, error) {
	items, err := c.store.ListFeedbackForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list feedback for user: %w", err)
	}
	return items, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// build validates in and returns the rating payload of a new entry.
func (c *Collector) build(ctx context.Context, in Input, side Side) (*Feedback, error) {
	honesty, err := ValidateHonesty(in.HonestyScore)
	if err != nil {
		return nil, err
	}
	general, err := ParseGeneralRatings(in.GeneralRatings)
	if err != nil {
		return nil, err
	}
	interests, err := ParseKinkRatings(in.InterestRatings)
	if err != nil {
		return nil, err
	}
	if side != SideDom && len(in.BadgeGifting) > 0 {
		return nil, apperr.Invalid("badgeGifting", "only the poster may grant badges")
	}
	badges, err := ParseBadges(in.BadgeGifting)
	if err != nil {
		return nil, err
	}

	// Badge keys are validated before out-of-range values are dropped.
	kinkIDs := make([]string, 0, len(interests)+len(in.BadgeGifting))
	for id := range interests {
		kinkIDs = append(kinkIDs, id)
	}
	for id := range in.BadgeGifting {
		kinkIDs = append(kinkIDs, id)
	}
	if err := c.kinks.Validate(ctx, kinkIDs); err != nil {
		return nil, err
	}

	comment := strings.TrimSpace(in.Comment)
	if utf8.RuneCountInString(comment) > maxCommentRunes {
		return nil, apperr.Invalid("comment", "comment must be at most %d characters", maxCommentRunes)
	}

	f := &Feedback{
		GeneralRatings:  general,
		InterestRatings: interests,
		BadgeGifting:    badges,
		HonestyScore:    honesty,
		Comment:         comment,
	}
	if term := c.moderator.Check(comment); term != "" {
		f.IsFlagged = true
		f.FlagReason = fmt.Sprintf("comment contains flagged term %q", term)
	}
	return f, nil
}

// explainSubmit turns a rejected conditional insert into a precise error.
func (c *Collector) explainSubmit(ctx context.Context, jobID, fromUser string) error {
	existing, err := c.store.ListFeedbackForJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list feedback for job: %w", err)
	}
	for _, f := range existing {
		if f.FromUser == fromUser {
			return fmt.Errorf("job %s: %w", jobID, apperr.ErrDuplicateFeedback)
		}
	}
	return fmt.Errorf("job %s no longer accepts feedback: %w", jobID, apperr.ErrInvalidState)
}
