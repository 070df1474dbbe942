package feedback

import (
	"fmt"
	"sort"
	"strings"

	"findsub/marketplace-service/internal/apperr"
)

// Rating bounds.
const (
	MinRating = 0
	MaxRating = 5
	MinBadge  = 1
	MaxBadge  = 3
)

// Category is a general rating dimension.
type Category string

const (
	CategoryObedience     Category = "Obedience"
	CategoryPunctuality   Category = "Punctuality"
	CategoryCommunication Category = "Communication"
	CategoryRespect       Category = "Respect"
	CategoryReliability   Category = "Reliability"
	CategoryAttitude      Category = "Attitude"
	CategoryClarity       Category = "Clarity"
	CategoryFairness      Category = "Fairness"
)

// Categories is the fixed set of general rating dimensions.
var Categories = []Category{
	CategoryObedience,
	CategoryPunctuality,
	CategoryCommunication,
	CategoryRespect,
	CategoryReliability,
	CategoryAttitude,
	CategoryClarity,
	CategoryFairness,
}

// ParseCategory matches s case-insensitively and returns the canonical name.
func ParseCategory(s string) (Category, error) {
	trimmed := strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(trimmed, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown rating category %q", s)
}

// GeneralRatings maps a rating dimension to a score in [0,5].
type GeneralRatings map[Category]int

// KinkRatings maps a kink ID to a score in [0,5].
type KinkRatings map[string]int

// Badges maps a kink ID to a badge level in [1,3].
type Badges map[string]int

// Mean returns the mean of the ratings and false when there are none.
func (g GeneralRatings) Mean() (float64, bool) {
	if len(g) == 0 {
		return 0, false
	}
	sum := 0
	for _, v := range g {
		sum += v
	}
	return float64(sum) / float64(len(g)), true
}

// ParseGeneralRatings canonicalises keys and checks every value is in range.
// Unknown keys and out-of-range values are rejected.
func ParseGeneralRatings(raw map[string]int) (GeneralRatings, error) {
	out := make(GeneralRatings, len(raw))
	for _, key := range sortedKeys(raw) {
		c, err := ParseCategory(key)
		if err != nil {
			return nil, apperr.Invalid("generalRatings", "%s", err.Error())
		}
		if _, dup := out[c]; dup {
			return nil, apperr.Invalid("generalRatings", "category %q given twice", c)
		}
		v := raw[key]
		if v < MinRating || v > MaxRating {
			return nil, apperr.Invalid("generalRatings", "%s must be between %d and %d, got %d", c, MinRating, MaxRating, v)
		}
		out[c] = v
	}
	return out, nil
}

// ParseKinkRatings checks every value is in range. Key validity is checked
// against the kink registry by the collector.
func ParseKinkRatings(raw map[string]int) (KinkRatings, error) {
	out := make(KinkRatings, len(raw))
	for _, k := range sortedKeys(raw) {
		id := strings.TrimSpace(k)
		if id == "" {
			return nil, apperr.Invalid("interestRatings", "kink id is required")
		}
		if _, dup := out[id]; dup {
			return nil, apperr.Invalid("interestRatings", "kink %q given twice", id)
		}
		v := raw[k]
		if v < MinRating || v > MaxRating {
			return nil, apperr.Invalid("interestRatings", "rating for %s must be between %d and %d, got %d", id, MinRating, MaxRating, v)
		}
		out[id] = v
	}
	return out, nil
}

// ParseBadges keeps badge grants within [1,3] and silently drops the rest.
// A kink named twice is rejected even when one of the grants would be dropped.
func ParseBadges(raw map[string]int) (Badges, error) {
	out := make(Badges, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, k := range sortedKeys(raw) {
		id := strings.TrimSpace(k)
		if id == "" {
			return nil, apperr.Invalid("badgeGifting", "kink id is required")
		}
		if _, dup := seen[id]; dup {
			return nil, apperr.Invalid("badgeGifting", "kink %q given twice", id)
		}
		seen[id] = struct{}{}
		v := raw[k]
		if v < MinBadge || v > MaxBadge {
			continue
		}
		out[id] = v
	}
	return out, nil
}

// ValidateHonesty checks the required honesty score.
func ValidateHonesty(score *int) (int, error) {
	if score == nil {
		return 0, apperr.Invalid("honestyScore", "honesty score is required")
	}
	if *score < MinRating || *score > MaxRating {
		return 0, apperr.Invalid("honestyScore", "must be between %d and %d, got %d", MinRating, MaxRating, *score)
	}
	return *score, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
