// Package identity carries the authenticated caller through a request.
//
// The transport layer resolves the caller (JWT bearer or gateway headers) and
// every core operation receives it as an explicit Actor argument.
package identity

import (
	"context"
	"fmt"
	"strings"
)

// Role is the marketplace role of a user.
type Role string

const (
	RoleDom    Role = "dom"
	RoleSub    Role = "sub"
	RoleSwitch Role = "switch"
)

// ParseRole normalises a raw role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleDom, RoleSub, RoleSwitch:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is the authenticated caller of a core operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// CanPost reports whether the actor may create jobs.
func (a Actor) CanPost() bool { return a.Role == RoleDom || a.Role == RoleSwitch }

// CanApply reports whether the actor may apply to jobs.
func (a Actor) CanApply() bool { return a.Role == RoleSub || a.Role == RoleSwitch }

type contextKey string

const actorContextKey contextKey = "actor"

// WithActor stores the actor into ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, a)
}

// FromContext extracts the actor placed by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorContextKey).(Actor)
	if !ok || a.ID == "" {
		return Actor{}, false
	}
	return a, true
}
