package orders

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	textCodeTokenMissing   = "MISSING_TOKEN"
	textCodeTokenMalformed = "MALFORMED_TOKEN"
	textCodeTokenExpired   = "EXPIRED_TOKEN"
	textCodeTokenSignature = "INVALID_SIGNATURE"
	textCodeTokenIssuance  = "TOKEN_ISSUANCE_FAILED"
	textCodeOrderNotFound  = "ORDER_NOT_FOUND"
	textCodeOrderState     = "INVALID_ORDER_STATE"
	textCodeOrderTotals    = "INVALID_ORDER_TOTALS"
	textCodeReviewDenied   = "REVIEW_FORBIDDEN"
	textCodeReviewDupe     = "DUPLICATE_REVIEW"
	textCodePersistence    = "PERSISTENCE_ERROR"
)

// ErrTokenMissing is returned when a protected operation receives no bearer token.
var ErrTokenMissing = errors.New("missing authentication token", errors.CategoryAuth).
	WithTextCode(textCodeTokenMissing).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when the bearer token cannot be parsed.
var ErrTokenMalformed = errors.New("malformed authentication token", errors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when the token is past its expiry claim,
// regardless of signature validity.
var ErrTokenExpired = errors.New("authentication token expired", errors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenSignature is returned when the token signature does not match the
// configured signing key.
var ErrTokenSignature = errors.New("invalid token signature", errors.CategoryAuth).
	WithTextCode(textCodeTokenSignature).
	WithCode(errors.CodeUnauthorized)

// ErrTokenIssuance is returned when signing a new token fails. Issuance is
// never retried silently; callers surface this as a 500.
var ErrTokenIssuance = errors.New("failed to generate token", errors.CategoryInternal).
	WithTextCode(textCodeTokenIssuance).
	WithCode(errors.CodeInternal)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is returned when credentials do not verify.
var ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned when a user exceeds the allowed number
// of failed logins inside the cooldown window.
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode("TOO_MANY_ATTEMPTS")

// ErrNoEmptyString is returned when a required string argument is empty.
var ErrNoEmptyString = errors.New("value must be a non empty string", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// ErrUnableToFindSession no session found in the request context
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims token claims could not be mapped
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode claims into a session
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrRefreshTokenNotFound is returned when a presented refresh token has no
// persisted record, either because it never existed or was revoked by deletion.
var ErrRefreshTokenNotFound = errors.New("refresh token not found", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrOrderNotFound covers both missing orders and orders owned by another
// user. Ownership failures deliberately collapse into not-found so the API
// never confirms the existence of other users' orders.
var ErrOrderNotFound = errors.New("order not found", errors.CategoryNotFound).
	WithTextCode(textCodeOrderNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidOrderState is returned when an operation requires a status the
// order is not in, e.g. reviewing an order that was never delivered.
var ErrInvalidOrderState = errors.New("operation not allowed in current order state", errors.CategoryValidation).
	WithTextCode(textCodeOrderState).
	WithCode(errors.CodeBadRequest)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = errors.New("invalid order status transition", errors.CategoryValidation).
	WithTextCode("INVALID_ORDER_TRANSITION").
	WithCode(errors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from a terminal
// status (delivered, cancelled).
var ErrTerminalState = errors.New("order state is terminal", errors.CategoryConflict).
	WithTextCode("TERMINAL_ORDER_STATE").
	WithCode(errors.CodeConflict)

// ErrInvalidOrderTotals is returned when checkout monetary fields are negative
// or do not reconcile to the cent.
var ErrInvalidOrderTotals = errors.New("order totals are inconsistent", errors.CategoryValidation).
	WithTextCode(textCodeOrderTotals).
	WithCode(errors.CodeBadRequest)

// ErrReviewForbidden is returned when the caller does not own the order they
// are trying to review.
var ErrReviewForbidden = errors.New("review not allowed for this order", errors.CategoryAuthz).
	WithTextCode(textCodeReviewDenied).
	WithCode(errors.CodeForbidden)

// ErrDuplicateReview is returned when the (user, order) pair already has a
// review. The storage unique constraint makes this race safe: of two
// concurrent submissions exactly one insert succeeds.
var ErrDuplicateReview = errors.New("review already submitted for this order", errors.CategoryConflict).
	WithTextCode(textCodeReviewDupe).
	WithCode(errors.CodeBadRequest)

// ErrPersistence wraps storage failures. Handlers log the cause server side
// and surface a generic 500 without detail.
var ErrPersistence = errors.New("persistence error", errors.CategoryInternal).
	WithTextCode(textCodePersistence).
	WithCode(errors.CodeInternal)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}

// IsTokenMissingError will check for requests that presented no usable token.
// The middleware reports extraction failures as "missing or malformed JWT".
func IsTokenMissingError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMissing) {
		return true
	}
	return strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsSignatureError will check for tampered token signatures
func IsSignatureError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenSignature) {
		return true
	}
	return strings.Contains(err.Error(), "signature is invalid")
}

// IsDuplicateReviewError reports whether err is the duplicate review conflict.
func IsDuplicateReviewError(err error) bool {
	return errors.Is(err, ErrDuplicateReview)
}

// IsUniqueViolation detects the duplicate key errors the supported drivers
// produce for the reviews (user_id, order_id) constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
