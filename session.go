package orders

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	Email          string     `json:"email,omitempty"`
	Role           string     `json:"role,omitempty"`
	IsCompleted    bool       `json:"isCompleted,omitempty"`
	Audience       []string   `json:"audience,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	Scopes         []string   `json:"scopes,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetEmail() string {
	return s.Email
}

func (s *SessionObject) GetRole() string {
	return s.Role
}

func (s *SessionObject) GetIsCompleted() bool {
	return s.IsCompleted
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

// HasScope reports whether the session token carried a scope claim.
func (s *SessionObject) HasScope(scope string) bool {
	for _, sc := range s.Scopes {
		if sc == scope {
			return true
		}
	}
	return false
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s email=%s role=%s aud=%v iss=%s iat=%s",
		s.UserID,
		s.Email,
		s.Role,
		s.Audience,
		s.Issuer,
		issuedAt,
	)
}

// sessionFromClaims creates a SessionObject from raw map claims, used when
// the middleware stored the verified *jwt.Token in request locals.
func sessionFromClaims(claims jwt.MapClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToMapClaims
	}

	session := &SessionObject{}

	if sub, err := claims.GetSubject(); err == nil {
		session.UserID = sub
	}
	if uid, ok := claims["uid"].(string); ok && uid != "" {
		session.UserID = uid
	}
	if email, ok := claims["email"].(string); ok {
		session.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		session.Role = role
	}
	if completed, ok := claims["isCompleted"].(bool); ok {
		session.IsCompleted = completed
	}
	if iss, err := claims.GetIssuer(); err == nil {
		session.Issuer = iss
	}
	if aud, err := claims.GetAudience(); err == nil {
		session.Audience = append(session.Audience, aud...)
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		session.IssuedAt = &iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpirationDate = &exp.Time
	}
	if scopes, ok := claims["scopes"].([]any); ok {
		for _, s := range scopes {
			if str, ok := s.(string); ok {
				session.Scopes = append(session.Scopes, str)
			}
		}
	}

	if session.UserID == "" {
		return nil, ErrUnableToDecodeSession
	}

	return session, nil
}

// sessionFromAuthClaims creates a SessionObject from verified claims
func sessionFromAuthClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	session := &SessionObject{
		UserID:      claims.UserID(),
		Email:       claims.Email(),
		Role:        claims.Role(),
		IsCompleted: claims.IsCompleted(),
	}

	if jwtClaims, ok := claims.(*JWTClaims); ok {
		session.Issuer = jwtClaims.RegisteredClaims.Issuer
		for _, aud := range jwtClaims.RegisteredClaims.Audience {
			session.Audience = append(session.Audience, aud)
		}
		if len(jwtClaims.Scopes) > 0 {
			session.Scopes = append([]string(nil), jwtClaims.Scopes...)
		}
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()
	session.IssuedAt = &issuedAt
	session.ExpirationDate = &expiresAt

	return session, nil
}
