package orders

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nikfoods/go-orders/middleware/jwtware"
)

// RouteAuthenticator glues the Authenticator to the HTTP surface: protected
// route middleware, the uniform auth failure body, and cookie handling for
// browser clients that prefer cookies over the Authorization header.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return jwtware.New(jwtware.Config{
			SuccessHandler: hf,
			ErrorHandler:   errorHandler,
			SigningKey: jwtware.SigningKey{
				Key:    []byte(cfg.GetSigningKey()),
				JWTAlg: cfg.GetSigningMethod(),
			},
			AuthScheme:  cfg.GetAuthScheme(),
			ContextKey:  cfg.GetContextKey(),
			TokenLookup: cfg.GetTokenLookup(),
		})
	}
}

// ScopedRoute is like ProtectedRoute but additionally requires the token to
// carry the given scope, validated through the token service.
func (a *RouteAuthenticator) ScopedRoute(cfg Config, validator TokenValidator, scope string, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return jwtware.New(jwtware.Config{
			SuccessHandler: hf,
			ErrorHandler:   errorHandler,
			SigningKey: jwtware.SigningKey{
				Key:    []byte(cfg.GetSigningKey()),
				JWTAlg: cfg.GetSigningMethod(),
			},
			AuthScheme:     cfg.GetAuthScheme(),
			ContextKey:     cfg.GetContextKey(),
			TokenLookup:    cfg.GetTokenLookup(),
			RequiredScope:  scope,
			TokenValidator: tokenValidatorAdapter{validator},
			ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
				if authClaims, ok := claims.(AuthClaims); ok {
					ctx = WithClaimsContext(ctx, authClaims)
					ctx = WithIdentityContext(ctx, NewIdentityFromClaims(authClaims))
				}
				return ctx
			},
		})
	}
}

// MakeClientRouteAuthErrorHandler normalizes every token failure into the
// same response shape. The body carries the machine readable failure kind
// (MISSING_TOKEN, MALFORMED_TOKEN, EXPIRED_TOKEN, INVALID_SIGNATURE) so
// clients can react to expiry without parsing log output; everything else
// about the failure stays in the log.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		richErr := classifyAuthError(err)

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		a.Logger.Info(
			"Authentication failure",
			"error", richErr.Message,
			"text_code", richErr.TextCode,
			"path", ctx.OriginalURL(),
		)

		return ctx.JSON(router.StatusUnauthorized, router.ViewContext{
			"error": richErr.TextCode,
		})
	}
}

// classifyAuthError maps a middleware failure onto the sentinel naming its
// kind. Expiry is checked ahead of signature and malformed so the caller
// always sees the most actionable code.
func classifyAuthError(err error) *errors.Error {
	switch {
	case IsTokenMissingError(err):
		return ErrTokenMissing
	case IsTokenExpiredError(err):
		return ErrTokenExpired
	case IsSignatureError(err):
		return ErrTokenSignature
	case IsMalformedError(err):
		return ErrTokenMalformed
	default:
		return errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized).
			WithTextCode("UNAUTHORIZED")
	}
}

// tokenValidatorAdapter bridges the package TokenValidator to the middleware
// interface; the claim types are structurally identical.
type tokenValidatorAdapter struct {
	validator TokenValidator
}

func (t tokenValidatorAdapter) Validate(raw string) (jwtware.AuthClaims, error) {
	claims, err := t.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.TextCode == "" {
		richErr = classifyAuthError(err)
	}

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return c.JSON(router.StatusUnauthorized, router.ViewContext{
		"error": richErr.TextCode,
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.JSON(statusFromError(richErr), router.ViewContext{
			"error": richErr.Message,
		})
	}
}

// statusFromError resolves the HTTP status for a rich error, mapping the
// category when no explicit code was attached.
func statusFromError(err *errors.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}

	if err.Code > 0 {
		return err.Code
	}

	switch err.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
