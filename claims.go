package orders

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents structured JWT claims extracted from a verified token
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Role() string
	IsCompleted() bool
	HasScope(scope string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string   `json:"uid,omitempty"`
	UserEmail string   `json:"email,omitempty"`
	UserRole  string   `json:"role,omitempty"`
	Completed bool     `json:"isCompleted,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the email claim
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// Role returns the role claim
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// IsCompleted reports whether the subject finished onboarding their profile
func (c *JWTClaims) IsCompleted() bool {
	return c.Completed
}

// HasScope checks whether the token carries a specific scope
func (c *JWTClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ClaimsIdentity adapts verified claims back into the Identity interface so
// downstream components can stay agnostic of the token layer.
type ClaimsIdentity struct {
	claims AuthClaims
}

// NewIdentityFromClaims returns an Identity view over verified claims.
func NewIdentityFromClaims(claims AuthClaims) Identity {
	if claims == nil {
		return nil
	}
	return ClaimsIdentity{claims: claims}
}

func (c ClaimsIdentity) ID() string {
	return c.claims.UserID()
}

func (c ClaimsIdentity) Email() string {
	return c.claims.Email()
}

func (c ClaimsIdentity) Role() string {
	return c.claims.Role()
}

func (c ClaimsIdentity) IsCompleted() bool {
	return c.claims.IsCompleted()
}
