// Package job is the Job Lifecycle Manager: it owns job state and the rules
// for moving between states.
//
// Valid status graph:
//
//	open ──(select)──► filled ──► completed
//	  │                  │
//	  │                  └──────► failed
//	  └──► cancelled ──(edit)──► open
//
// completed, failed and cancelled have no outgoing UpdateStatus
// transitions. A cancelled job is re-listed only through Edit, and the
// open → filled move happens only through SelectApplicant.
package job

import "fmt"

// Status values mirror the job_status enum in PostgreSQL.
type Status string

const (
	StatusOpen      Status = "open"
	StatusFilled    Status = "filled"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// validTransitions lists every (from → to) pair UpdateStatus accepts.
var validTransitions = map[Status][]Status{
	StatusOpen:   {StatusCancelled},
	StatusFilled: {StatusCompleted, StatusFailed},
	// completed, failed and cancelled are terminal
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusOpen, StatusFilled, StatusCompleted, StatusFailed, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsTransitionAllowed returns true when UpdateStatus may move from → to.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// HasSelection reports whether a job in status s must carry a selected
// applicant.
func HasSelection(s Status) bool {
	return s == StatusFilled || s == StatusCompleted || s == StatusFailed
}

// IsEditable reports whether the poster may still edit or delete the job.
func IsEditable(s Status) bool { return s == StatusOpen || s == StatusCancelled }

// EditableStatuses is the set IsEditable accepts, for conditional updates.
var EditableStatuses = []Status{StatusOpen, StatusCancelled}
