package identity_test

import (
	"context"
	"testing"
	"time"

	"findsub/marketplace-service/internal/identity"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"dom", "SUB", " Switch "} {
		if _, err := identity.ParseRole(s); err != nil {
			t.Errorf("ParseRole(%q) unexpected error: %v", s, err)
		}
	}
	for _, s := range []string{"", "admin", "domme"} {
		if _, err := identity.ParseRole(s); err == nil {
			t.Errorf("ParseRole(%q) expected error", s)
		}
	}
}

func TestActorCapabilities(t *testing.T) {
	cases := []struct {
		role     identity.Role
		canPost  bool
		canApply bool
	}{
		{identity.RoleDom, true, false},
		{identity.RoleSub, false, true},
		{identity.RoleSwitch, true, true},
	}
	for _, c := range cases {
		a := identity.Actor{ID: "u1", Role: c.role}
		if a.CanPost() != c.canPost {
			t.Errorf("%s CanPost = %v, want %v", c.role, a.CanPost(), c.canPost)
		}
		if a.CanApply() != c.canApply {
			t.Errorf("%s CanApply = %v, want %v", c.role, a.CanApply(), c.canApply)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := identity.WithActor(context.Background(), identity.Actor{ID: "u1", Role: identity.RoleSub})
	a, ok := identity.FromContext(ctx)
	if !ok || a.ID != "u1" || a.Role != identity.RoleSub {
		t.Fatalf("FromContext = %+v, %v", a, ok)
	}
	if _, ok := identity.FromContext(context.Background()); ok {
		t.Error("FromContext on empty context should fail")
	}
}

func TestVerifier_SignAndVerify(t *testing.T) {
	v := identity.NewVerifier("s3cret", "findsub-auth")
	token, err := v.Sign(identity.Actor{ID: "user-7", Role: identity.RoleSwitch}, time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	a, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if a.ID != "user-7" || a.Role != identity.RoleSwitch {
		t.Errorf("Verify = %+v", a)
	}
}

func TestVerifier_RejectsForeignSecretAndIssuer(t *testing.T) {
	other := identity.NewVerifier("other", "findsub-auth")
	token, _ := other.Sign(identity.Actor{ID: "user-7", Role: identity.RoleDom}, time.Minute)
	if _, err := identity.NewVerifier("s3cret", "findsub-auth").Verify(token); err == nil {
		t.Error("Verify should reject a token signed with another secret")
	}

	wrongIssuer := identity.NewVerifier("s3cret", "someone-else")
	token, _ = wrongIssuer.Sign(identity.Actor{ID: "user-7", Role: identity.RoleDom}, time.Minute)
	if _, err := identity.NewVerifier("s3cret", "findsub-auth").Verify(token); err == nil {
		t.Error("Verify should reject a token from another issuer")
	}
}

func TestVerifier_RejectsExpired(t *testing.T) {
	v := identity.NewVerifier("s3cret", "")
	token, _ := v.Sign(identity.Actor{ID: "user-7", Role: identity.RoleDom}, -time.Hour)
	if _, err := v.Verify(token); err == nil {
		t.Error("Verify should reject an expired token")
	}
}

func TestNewVerifier_EmptySecret(t *testing.T) {
	if identity.NewVerifier("  ", "x") != nil {
		t.Error("NewVerifier with empty secret should return nil")
	}
}

func TestFromHeaders(t *testing.T) {
	if _, err := identity.FromHeaders("", "dom"); err == nil {
		t.Error("FromHeaders without user id should fail")
	}
	if _, err := identity.FromHeaders("u1", "king"); err == nil {
		t.Error("FromHeaders with unknown role should fail")
	}
	a, err := identity.FromHeaders("u1", "sub")
	if err != nil || a.ID != "u1" || a.Role != identity.RoleSub {
		t.Errorf("FromHeaders = %+v, %v", a, err)
	}
}
