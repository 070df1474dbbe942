package reputation

import (
	"context"
	"fmt"

	"findsub/marketplace-service/internal/feedback"
)

// BadgeTally counts the badges a user received for one kink.
type BadgeTally struct {
	Count  int `json:"count"`
	Levels int `json:"levels"`
}

// Summary is the public rating breakdown shown on a profile.
type Summary struct {
	UserID         string                        `json:"userId"`
	Entries        int                           `json:"entries"`
	AverageHonesty float64                       `json:"averageHonesty"`
	General        map[feedback.Category]float64 `json:"general"`
	Interests      map[string]float64            `json:"interests"`
	Badges         map[string]BadgeTally         `json:"badges"`
	Flagged        int                           `json:"flagged"`
}

// Summary aggregates every entry userID received into per-dimension averages.
func (a *Aggregator) Summary(ctx context.Context, userID string) (*Summary, error) {
	received, err := a.source.ListFeedbackForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load received feedback: %w", err)
	}
	s := Summarize(userID, received)
	return &s, nil
}

// Summarize is the pure form of Aggregator.Summary.
func Summarize(userID string, received []feedback.Feedback) Summary {
	s := Summary{
		UserID:    userID,
		Entries:   len(received),
		General:   map[feedback.Category]float64{},
		Interests: map[string]float64{},
		Badges:    map[string]BadgeTally{},
	}
	if len(received) == 0 {
		return s
	}

	generalSum := map[feedback.Category]int{}
	generalN := map[feedback.Category]int{}
	interestSum := map[string]int{}
	interestN := map[string]int{}
	honesty := 0

	for _, f := range received {
		honesty += f.HonestyScore
		if f.IsFlagged {
			s.Flagged++
		}
		for c, v := range f.GeneralRatings {
			generalSum[c] += v
			generalN[c]++
		}
		for k, v := range f.InterestRatings {
			interestSum[k] += v
			interestN[k]++
		}
		for k, level := range f.BadgeGifting {
			t := s.Badges[k]
			t.Count++
			t.Levels += level
			s.Badges[k] = t
		}
	}

	s.AverageHonesty = round2(float64(honesty) / float64(len(received)))
	for c, sum := range generalSum {
		s.General[c] = round2(float64(sum) / float64(generalN[c]))
	}
	for k, sum := range interestSum {
		s.Interests[k] = round2(float64(sum) / float64(interestN[k]))
	}
	return s
}
