package user_test

import (
	"os"
	"path/filepath"
	"testing"

	"findsub/marketplace-service/internal/identity"
	"findsub/marketplace-service/internal/user"
)

const fixture = `profiles:
  - id: dom-1
    role: Dom
    emailVerified: true
    phoneVerified: true
    addressVerified: true
    bio: "  Clear instructions  "
    kinkPreferenceCount: 2
  - id: sub-a
    role: sub
`

func TestParseProfilesYAML(t *testing.T) {
	got, err := user.ParseProfilesYAML([]byte(fixture))
	if err != nil {
		t.Fatalf("ParseProfilesYAML: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("profiles = %+v", got)
	}
	if got[0].Role != identity.RoleDom || got[0].Bio != "Clear instructions" || !got[0].Complete() {
		t.Errorf("dom-1 = %+v", got[0])
	}
	if got[1].ID != "sub-a" || got[1].Complete() {
		t.Errorf("sub-a = %+v", got[1])
	}
}

func TestParseProfilesYAML_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":          "  ",
		"no id":          "profiles:\n  - role: dom\n",
		"duplicate id":   "profiles:\n  - id: a\n    role: dom\n  - id: a\n    role: sub\n",
		"unknown role":   "profiles:\n  - id: a\n    role: admin\n",
		"negative count": "profiles:\n  - id: a\n    role: sub\n    kinkPreferenceCount: -1\n",
		"not yaml":       "profiles: [",
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := user.ParseProfilesYAML([]byte(payload)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := user.LoadProfiles(path)
	if err != nil || len(got) != 2 {
		t.Fatalf("LoadProfiles = %+v, %v", got, err)
	}
	if _, err := user.LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}
