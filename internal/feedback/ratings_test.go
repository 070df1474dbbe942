package feedback_test

import (
	"testing"

	"findsub/marketplace-service/internal/apperr"
	"findsub/marketplace-service/internal/feedback"
)

func intp(v int) *int { return &v }

func TestParseGeneralRatings(t *testing.T) {
	got, err := feedback.ParseGeneralRatings(map[string]int{"obedience": 5, "Punctuality": 0})
	if err != nil {
		t.Fatalf("ParseGeneralRatings: %v", err)
	}
	if got[feedback.CategoryObedience] != 5 || got[feedback.CategoryPunctuality] != 0 || len(got) != 2 {
		t.Errorf("got %v", got)
	}
}

func TestParseGeneralRatings_Rejects(t *testing.T) {
	cases := map[string]map[string]int{
		"unknown category": {"Cuteness": 3},
		"above range":      {"Respect": 6},
		"below range":      {"Respect": -1},
		"duplicate casing": {"Respect": 3, "respect": 4},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := feedback.ParseGeneralRatings(in); !apperr.IsValidation(err) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestParseKinkRatings_Range(t *testing.T) {
	if _, err := feedback.ParseKinkRatings(map[string]int{"k1": 6}); !apperr.IsValidation(err) {
		t.Errorf("err = %v, want ValidationError", err)
	}
	got, err := feedback.ParseKinkRatings(map[string]int{" k1 ": 4})
	if err != nil || got["k1"] != 4 {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestParseBadges_DropsOutOfRange(t *testing.T) {
	got, err := feedback.ParseBadges(map[string]int{"k1": 5, "k2": 2, "k3": 0})
	if err != nil {
		t.Fatalf("ParseBadges: %v", err)
	}
	if len(got) != 1 || got["k2"] != 2 {
		t.Errorf("got %v, want only k2", got)
	}
}

func TestKinkKeysGivenTwiceAreRejected(t *testing.T) {
	for i := 0; i < 20; i++ {
		if _, err := feedback.ParseKinkRatings(map[string]int{"rope": 1, " rope": 5}); !apperr.IsValidation(err) {
			t.Fatalf("interest ratings err = %v, want ValidationError", err)
		}
		if _, err := feedback.ParseBadges(map[string]int{"rope": 2, "rope ": 3}); !apperr.IsValidation(err) {
			t.Fatalf("badges err = %v, want ValidationError", err)
		}
		// A colliding grant that would be dropped still counts as given.
		if _, err := feedback.ParseBadges(map[string]int{"rope": 2, " rope": 9}); !apperr.IsValidation(err) {
			t.Fatalf("badges with dropped duplicate err = %v, want ValidationError", err)
		}
	}
}

func TestValidateHonesty(t *testing.T) {
	for _, bad := range []*int{nil, intp(-1), intp(7)} {
		if _, err := feedback.ValidateHonesty(bad); !apperr.IsValidation(err) {
			t.Errorf("ValidateHonesty(%v) err = %v, want ValidationError", bad, err)
		}
	}
	for _, ok := range []int{0, 3, 5} {
		if got, err := feedback.ValidateHonesty(intp(ok)); err != nil || got != ok {
			t.Errorf("ValidateHonesty(%d) = %d, %v", ok, got, err)
		}
	}
}

func TestGeneralRatingsMean(t *testing.T) {
	if _, ok := (feedback.GeneralRatings{}).Mean(); ok {
		t.Error("empty ratings should have no mean")
	}
	m, ok := feedback.GeneralRatings{feedback.CategoryRespect: 4, feedback.CategoryClarity: 3}.Mean()
	if !ok || m != 3.5 {
		t.Errorf("Mean = %v, %v", m, ok)
	}
}

func TestModerator(t *testing.T) {
	m := feedback.NewModerator([]string{" Scam ", "", "underage"})
	if got := m.Check("Total SCAM artist"); got != "scam" {
		t.Errorf("Check = %q", got)
	}
	if got := m.Check("Lovely afternoon"); got != "" {
		t.Errorf("clean comment flagged with %q", got)
	}
	var nilModerator *feedback.Moderator
	if got := nilModerator.Check("scam"); got != "" {
		t.Errorf("nil moderator flagged %q", got)
	}
}
