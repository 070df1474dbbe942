package user

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"findsub/marketplace-service/internal/identity"
)

// profileSeed is the YAML layout of a profile fixture:
//
//	profiles:
//	  - id: dom-1
//	    role: dom
//	    emailVerified: true
//	    phoneVerified: true
//	    addressVerified: true
//	    bio: Tidy household, clear instructions
//	    kinkPreferenceCount: 3
type profileSeed struct {
	Profiles []struct {
		ID                  string `yaml:"id"`
		Role                string `yaml:"role"`
		EmailVerified       bool   `yaml:"emailVerified"`
		PhoneVerified       bool   `yaml:"phoneVerified"`
		AddressVerified     bool   `yaml:"addressVerified"`
		Bio                 string `yaml:"bio"`
		KinkPreferenceCount int    `yaml:"kinkPreferenceCount"`
	} `yaml:"profiles"`
}

// ParseProfilesYAML decodes and validates a profile fixture. Profiles are
// owned by the user service; fixtures only feed the in-memory backend.
func ParseProfilesYAML(data []byte) ([]Profile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("profile seed: payload is empty")
	}
	var f profileSeed
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("profile seed: decode: %w", err)
	}

	out := make([]Profile, 0, len(f.Profiles))
	seen := make(map[string]struct{}, len(f.Profiles))
	for i, e := range f.Profiles {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return nil, fmt.Errorf("profile seed: entry %d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("profile seed: duplicate id %q", id)
		}
		seen[id] = struct{}{}
		role, err := identity.ParseRole(e.Role)
		if err != nil {
			return nil, fmt.Errorf("profile seed: %s: %w", id, err)
		}
		if e.KinkPreferenceCount < 0 {
			return nil, fmt.Errorf("profile seed: %s: kinkPreferenceCount cannot be negative", id)
		}
		out = append(out, Profile{
			ID:                  id,
			Role:                role,
			EmailVerified:       e.EmailVerified,
			PhoneVerified:       e.PhoneVerified,
			AddressVerified:     e.AddressVerified,
			Bio:                 strings.TrimSpace(e.Bio),
			KinkPreferenceCount: e.KinkPreferenceCount,
		})
	}
	return out, nil
}

// LoadProfiles reads and parses the fixture at path.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile seed: read %s: %w", path, err)
	}
	profiles, err := ParseProfilesYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return profiles, nil
}
