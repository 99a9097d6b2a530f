package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes shared by the error taxonomy and the HTTP result envelope.
const (
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeExpiredToken       = "EXPIRED_TOKEN"
	TextCodeNotFound           = "NOT_FOUND"
	TextCodeTokenReuseDetected = "TOKEN_REUSE_DETECTED"
	TextCodeProvisioningFailed = "PROVISIONING_FAILED"
	TextCodeValidationError    = "VALIDATION_ERROR"
)

// ErrTokenExpired is returned when a token is past its expiry. Not retryable,
// the caller must re-authenticate.
var ErrTokenExpired = goerrors.New("authentication token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeExpiredToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers bad signatures, undecodable tokens, and tokens of
// an unexpected kind.
var ErrTokenMalformed = goerrors.New("invalid authentication token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is returned when a token references a user that no
// longer exists.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrRecordNotFound is returned when a refresh token references a record the
// store has no knowledge of. Treated as a data integrity failure, not a retry.
var ErrRecordNotFound = goerrors.New("refresh token record not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrTokenReuseDetected is the breach signal: a refresh token was redeemed
// more than once. By the time this error surfaces every refresh token of the
// affected user has been revoked.
var ErrTokenReuseDetected = goerrors.New("refresh token reuse detected", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenReuseDetected).
	WithCode(goerrors.CodeUnauthorized)

// ErrProvisioningFailed aborts the whole sign-in when the anonymous profile
// could not be generated; nothing is persisted in that case.
var ErrProvisioningFailed = goerrors.New("failed to provision anonymous account", goerrors.CategoryInternal).
	WithTextCode(TextCodeProvisioningFailed).
	WithCode(goerrors.CodeInternal)

// TextCode extracts the text code from a rich error, or "" for plain errors.
func TextCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return TextCode(err) == TextCodeExpiredToken ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for undecodable or wrong-kind tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return TextCode(err) == TextCodeInvalidToken ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsNotFoundError will check for missing identity or refresh token records
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return TextCode(err) == TextCodeNotFound || goerrors.IsNotFound(err)
}

// IsReuseDetectedError will check for the refresh token breach signal
func IsReuseDetectedError(err error) bool {
	return err != nil && TextCode(err) == TextCodeTokenReuseDetected
}

// IsProvisioningError will check for failed anonymous account provisioning
func IsProvisioningError(err error) bool {
	return err != nil && TextCode(err) == TextCodeProvisioningFailed
}
