// Package user holds the slice of the externally owned user record that the
// marketplace core reads (profile completeness) and writes (reputation).
package user

import (
	"context"
	"strings"
	"time"

	"findsub/marketplace-service/internal/identity"
)

// Profile is the read-only view of a user used for trust scoring.
type Profile struct {
	ID                  string        `json:"id"`
	Role                identity.Role `json:"role"`
	EmailVerified       bool          `json:"emailVerified"`
	PhoneVerified       bool          `json:"phoneVerified"`
	AddressVerified     bool          `json:"addressVerified"`
	Bio                 string        `json:"bio"`
	KinkPreferenceCount int           `json:"kinkPreferenceCount"`
}

// Complete reports whether the profile earns the completeness bonus.
func (p Profile) Complete() bool {
	return p.EmailVerified && p.PhoneVerified && p.AddressVerified &&
		strings.TrimSpace(p.Bio) != "" && p.KinkPreferenceCount > 0
}

// Reputation is derived from received feedback; never edited by users.
type Reputation struct {
	UserID              string    `json:"userId"`
	CompletedJobs       int       `json:"completedJobs"`
	AverageHonestyScore float64   `json:"averageHonestyScore"`
	TrustScore          float64   `json:"trustScore"`
	ReputationScore     float64   `json:"reputationScore"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Store reads profiles and persists reputation fields.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	GetReputation(ctx context.Context, userID string) (*Reputation, error)
	SaveReputation(ctx context.Context, rep Reputation) error
}
