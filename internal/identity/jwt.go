package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Header names forwarded by the Gateway when JWT verification is disabled.
const (
	HeaderUserID   = "x-user-id"
	HeaderUserRole = "x-user-role"
)

// Claims is the token payload accepted by Verifier.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Verifier validates HS256 bearer tokens and turns them into Actors.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier returns nil when secret is empty, meaning gateway headers are trusted.
func NewVerifier(secret, issuer string) *Verifier {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses tokenString and returns the actor it names.
func (v *Verifier) Verify(tokenString string) (Actor, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return Actor{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return Actor{}, errors.New("token has no subject")
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: claims.Subject, Role: role}, nil
}

// Sign issues a token for a; used by tooling and tests. Token issuance for
// end users belongs to the auth service.
func (v *Verifier) Sign(a Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(a.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// FromHeaders builds an Actor from gateway-forwarded values.
func FromHeaders(userID, role string) (Actor, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Actor{}, fmt.Errorf("missing %s", HeaderUserID)
	}
	r, err := ParseRole(role)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid %s: %w", HeaderUserRole, err)
	}
	return Actor{ID: userID, Role: r}, nil
}
