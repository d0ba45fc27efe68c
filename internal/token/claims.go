// Package token builds, signs and verifies the claims carried by access and refresh tokens.
package token

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Lifetimes maps each token kind to how long a freshly issued token stays valid.
type Lifetimes struct {
	Access  time.Duration
	Refresh time.Duration
}

var DefaultLifetimes = Lifetimes{
	Access:  15 * time.Minute,
	Refresh: 7 * 24 * time.Hour,
}

func (l Lifetimes) For(kind Kind) time.Duration {
	if kind == KindRefresh {
		return l.Refresh
	}
	return l.Access
}

// Identity is the subset of a user that ends up inside a token.
type Identity struct {
	Subject string
	Email   string
	Roles   []string
}

// Claims is the signed payload. Timestamps are unix seconds.
type Claims struct {
	Subject   string   `json:"sub"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	TokenID   string   `json:"jti"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
	Kind      Kind     `json:"token_type"`
}

// New builds claims for identity with a fresh token id.
func New(identity Identity, kind Kind, issuedAt time.Time, lifetimes Lifetimes) Claims {
	iat := issuedAt.Unix()
	roles := make([]string, 0, len(identity.Roles))
	roles = append(roles, identity.Roles...)

	return Claims{
		Subject:   identity.Subject,
		Email:     strings.ToLower(strings.TrimSpace(identity.Email)),
		Roles:     roles,
		TokenID:   uuid.NewString(),
		IssuedAt:  iat,
		ExpiresAt: issuedAt.Add(lifetimes.For(kind)).Unix(),
		Kind:      kind,
	}
}

// Remaining is the validity left at now, never negative.
func (c Claims) Remaining(now time.Time) time.Duration {
	left := time.Unix(c.ExpiresAt, 0).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// HasAnyRole reports whether the claims carry at least one of required (case-insensitive).
func (c Claims) HasAnyRole(required []string) bool {
	return slices.ContainsFunc(c.Roles, func(role string) bool {
		return slices.ContainsFunc(required, func(want string) bool {
			return strings.EqualFold(strings.TrimSpace(role), strings.TrimSpace(want))
		})
	})
}

func (c Claims) Identity() Identity {
	return Identity{Subject: c.Subject, Email: c.Email, Roles: slices.Clone(c.Roles)}
}

// jwt.Claims

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *Claims) GetIssuer() (string, error)              { return "", nil }
func (c *Claims) GetSubject() (string, error)             { return c.Subject, nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

// Validate is invoked by the jwt validator after the registered-claim checks.
func (c *Claims) Validate() error {
	switch {
	case strings.TrimSpace(c.Subject) == "":
		return errors.New("missing subject")
	case strings.TrimSpace(c.TokenID) == "":
		return errors.New("missing token id")
	case !c.Kind.Valid():
		return errors.New("unknown token type")
	case c.ExpiresAt <= c.IssuedAt:
		return errors.New("expiry not after issue time")
	}
	return nil
}
