package model

import (
	"errors"
	"fmt"
)

// Configuration and lookup errors.
var (
	ErrUnsupportedPlatform   = errors.New("unsupported platform")
	ErrPlatformNotConfigured = errors.New("platform not configured")
)

// OAuth flow errors.
var (
	ErrInvalidOrExpiredState      = errors.New("invalid or expired state")
	ErrStateNotFound              = errors.New("state not found")
	ErrTokenExchangeFailed        = errors.New("token exchange failed")
	ErrProfileFetchNotImplemented = errors.New("profile fetch not implemented")
	ErrProfileFetchFailed         = errors.New("profile fetch failed")
	ErrNoRefreshToken             = errors.New("no refresh token")
	ErrTokenRefreshFailed         = errors.New("token refresh failed")
	ErrConnectionNotFound         = errors.New("connection not found")
	ErrReconnectRequired          = errors.New("reconnect required")
	ErrInvalidInstanceURL         = errors.New("invalid instance url")
)

// Media errors.
var (
	ErrMediaTooLarge     = errors.New("media too large")
	ErrUnsupportedFormat = errors.New("unsupported media format")
)

// Post and job errors.
var (
	ErrPostNotFound          = errors.New("post not found")
	ErrJobNotFound           = errors.New("job not found")
	ErrJobInFlight           = errors.New("job already in flight")
	ErrJobFinished           = errors.New("job already finished")
	ErrJobBackingOff         = errors.New("job is waiting to retry")
	ErrLeaseLost             = errors.New("job lease lost")
	ErrInvalidPostTransition = errors.New("invalid post status transition")
	ErrNoPlatforms           = errors.New("no platforms requested")
	ErrScheduleInPast        = errors.New("scheduled time must be in the future")
)

// TokenExchangeError carries the platform response for diagnostics. The body
// is for logs only and must not be shown to end users.
type TokenExchangeError struct {
	Platform   Platform
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s: status %d", ErrTokenExchangeFailed, e.Platform, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", ErrTokenExchangeFailed, e.Platform, e.Err)
}

func (e *TokenExchangeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTokenExchangeFailed}
	}
	return []error{ErrTokenExchangeFailed, e.Err}
}

// Publish error codes recorded on PlatformResult.
const (
	CodeNotConnected          = "NOT_CONNECTED"
	CodeReconnectRequired     = "RECONNECT_REQUIRED"
	CodeTokenRefreshFailed    = "TOKEN_REFRESH_FAILED"
	CodeTokenRejected         = "TOKEN_REJECTED"
	CodeTokenRevoked          = "TOKEN_REVOKED"
	CodeRateLimited           = "RATE_LIMITED"
	CodeTimeout               = "TIMEOUT"
	CodePlatformUnavailable   = "PLATFORM_UNAVAILABLE"
	CodeNetworkError          = "NETWORK_ERROR"
	CodeInvalidContent        = "INVALID_CONTENT"
	CodeMediaRejected         = "MEDIA_REJECTED"
	CodePublishNotImplemented = "PUBLISH_NOT_IMPLEMENTED"
	CodeUnknown               = "UNKNOWN"
)

// PublishError is returned by platform clients.
type PublishError struct {
	Platform   Platform
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
}

func (e *PublishError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s publish failed (%s, status %d): %s", e.Platform, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s publish failed (%s): %s", e.Platform, e.Code, e.Message)
}

// AsPublishError extracts a *PublishError from err.
func AsPublishError(err error) (*PublishError, bool) {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
