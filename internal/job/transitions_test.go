package job_test

import (
	"testing"

	"findsub/marketplace-service/internal/job"
)

var allStatuses = []job.Status{
	job.StatusOpen,
	job.StatusFilled,
	job.StatusCompleted,
	job.StatusFailed,
	job.StatusCancelled,
}

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_ValidValues(t *testing.T) {
	for _, s := range allStatuses {
		got, err := job.ParseStatus(string(s))
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q", s, got)
		}
	}
}

func TestParseStatus_Invalid(t *testing.T) {
	for _, s := range []string{"", "OPEN", " open", "archived"} {
		if _, err := job.ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", s)
		}
	}
}

// ── IsTransitionAllowed ────────────────────────────────────────────────────

func TestIsTransitionAllowed_Valid(t *testing.T) {
	cases := []struct{ from, to job.Status }{
		{job.StatusOpen, job.StatusCancelled},
		{job.StatusFilled, job.StatusCompleted},
		{job.StatusFilled, job.StatusFailed},
	}
	for _, c := range cases {
		if !job.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

// open → filled happens only through SelectApplicant.
func TestIsTransitionAllowed_OpenToFilledRejected(t *testing.T) {
	if job.IsTransitionAllowed(job.StatusOpen, job.StatusFilled) {
		t.Error("open → filled must go through SelectApplicant")
	}
}

func TestIsTransitionAllowed_FromTerminal(t *testing.T) {
	for _, from := range []job.Status{job.StatusCompleted, job.StatusFailed, job.StatusCancelled} {
		for _, to := range allStatuses {
			if job.IsTransitionAllowed(from, to) {
				t.Errorf("IsTransitionAllowed(%s → %s) should be false", from, to)
			}
		}
	}
}

func TestIsTransitionAllowed_SelfLoops(t *testing.T) {
	for _, s := range allStatuses {
		if job.IsTransitionAllowed(s, s) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false", s, s)
		}
	}
}

// ── Derived predicates ─────────────────────────────────────────────────────

func TestHasSelection(t *testing.T) {
	want := map[job.Status]bool{
		job.StatusOpen:      false,
		job.StatusFilled:    true,
		job.StatusCompleted: true,
		job.StatusFailed:    true,
		job.StatusCancelled: false,
	}
	for s, w := range want {
		if got := job.HasSelection(s); got != w {
			t.Errorf("HasSelection(%s) = %v, want %v", s, got, w)
		}
	}
}

func TestIsEditable(t *testing.T) {
	for _, s := range allStatuses {
		want := s == job.StatusOpen || s == job.StatusCancelled
		if got := job.IsEditable(s); got != want {
			t.Errorf("IsEditable(%s) = %v, want %v", s, got, want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	got, err := job.ParseCategory("  personal assistance ")
	if err != nil {
		t.Fatalf("ParseCategory: %v", err)
	}
	if got != job.CategoryPersonalAssistance {
		t.Errorf("got %q", got)
	}
	if _, err := job.ParseCategory("Plumbing"); err == nil {
		t.Error("ParseCategory(Plumbing) expected error")
	}
}
