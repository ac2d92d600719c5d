package orders

import (
	"context"
	"reflect"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Auther implements Authenticator on top of a user-record provider and the
// refresh token store. Access tokens stay stateless; revocation is handled
// out of band by deleting persisted refresh tokens, so a stolen access token
// remains valid until natural expiry. Deliberate trade-off.
type Auther struct {
	provider        IdentityProvider
	refreshTokens   RefreshTokens
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        []string
	logger          Logger
	tokenService    TokenService
	tokenValidator  TokenValidator
	activitySink    ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, refreshTokens RefreshTokens, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:        provider,
		refreshTokens:   refreshTokens,
		signingKey:      []byte(opts.GetSigningKey()),
		tokenExpiration: opts.GetTokenExpiration(),
		audience:        opts.GetAudience(),
		issuer:          opts.GetIssuer(),
		logger:          defLogger{},
		tokenService:    tokenService,
		activitySink:    noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	// Update the TokenService logger as well
	s.tokenService = NewTokenService(
		s.signingKey,
		s.tokenExpiration,
		s.issuer,
		s.audience,
		logger,
	)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenValidator sets a custom token validator for externally issued tokens.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and issues a token pair. The refresh record is
// appended without touching existing sessions; every login is a new device
// session by construction.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	var err error
	var identity Identity

	if identity, err = s.provider.VerifyIdentity(ctx, identifier, password); err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrIdentityNotFound.Error(),
		})
		return nil, ErrIdentityNotFound
	}

	pair, err := s.issueTokenPair(ctx, identity)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return pair, nil
}

// Refresh exchanges a persisted refresh token for a fresh pair. The presented
// record stays in place and a new one is appended; there is no cap or cleanup
// policy, so concurrent sessions accumulate until revoked.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	record, err := s.refreshTokens.GetByToken(ctx, refreshToken)
	if err != nil {
		s.logger.Error("Refresh token lookup failed", "error", err)
		return nil, err
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, record.UserID.String())
	if err != nil {
		s.logger.Error("Refresh identity lookup failed", "error", err)
		return nil, err
	}

	pair, err := s.issueTokenPair(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventSessionRefreshed, s.actorFromIdentity(identity), identity.ID(), nil)

	return pair, nil
}

// Logout revokes a single session by deleting its refresh record.
func (s *Auther) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokens.DeleteByToken(ctx, refreshToken); err != nil {
		s.logger.Error("Logout delete refresh token failed", "error", err)
		return errors.Wrap(err, ErrPersistence.Category, ErrPersistence.Message).
			WithTextCode(ErrPersistence.TextCode)
	}

	s.emitAuthEvent(ctx, ActivityEventSessionRevoked, ActorRef{Type: "user"}, "", nil)
	return nil
}

// RevokeAll deletes every refresh record for a user, ending all their sessions.
func (s *Auther) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshTokens.DeleteByUser(ctx, userID); err != nil {
		s.logger.Error("RevokeAll delete refresh tokens failed", "error", err)
		return errors.Wrap(err, ErrPersistence.Category, ErrPersistence.Message).
			WithTextCode(ErrPersistence.TextCode)
	}

	s.emitAuthEvent(ctx, ActivityEventSessionRevoked, ActorRef{ID: userID.String(), Type: "user"}, userID.String(), nil)
	return nil
}

func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.GetUserID())

	if err != nil {
		s.logger.Error("IdentityFromSession findidentity by identifier: %s", err)
		return nil, err
	}

	return identity, nil
}

func (s Auther) SessionFromToken(raw string) (Session, error) {
	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

func (s *Auther) issueTokenPair(ctx context.Context, identity Identity) (*TokenPair, error) {
	access, err := s.tokenService.Generate(identity)
	if err != nil {
		s.logger.Error("issueTokenPair access token error", "error", err)
		return nil, err
	}

	userID, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "identity id is not a UUID")
	}

	record := &RefreshToken{
		UserID: userID,
		Token:  newRefreshTokenValue(),
	}

	// Awaited to completion: the pair is only usable once the refresh record
	// actually exists for later revocation checks.
	if _, err := s.refreshTokens.Create(ctx, record); err != nil {
		s.logger.Error("issueTokenPair persist refresh token error", "error", err)
		return nil, errors.Wrap(err, ErrPersistence.Category, ErrPersistence.Message).
			WithTextCode(ErrPersistence.TextCode)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: record.Token,
	}, nil
}

func newRefreshTokenValue() string {
	// Two independent UUIDs back to back; opaque, unguessable enough for a
	// credential whose validity is decided by a storage lookup anyway.
	return uuid.NewString() + uuid.NewString()
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}
