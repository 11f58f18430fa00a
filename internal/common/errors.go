// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal    = errors.New("internal error")
	ErrorUnavailable = errors.New("service unavailable")

	// ErrorInvalidCredentials covers both an unknown identifier and a wrong
	// password. The two cases must stay indistinguishable to callers so that
	// error responses cannot be used to enumerate accounts.
	ErrorInvalidCredentials = errors.New("invalid credentials")

	// Key material errors. Fatal at startup: the process must not serve
	// traffic with an unusable signing key pair.
	ErrKeyLoad = errors.New("key load error")

	// Token lifecycle errors. Distinct values because callers react
	// differently: an expired access token triggers a refresh, an expired
	// or invalid refresh token forces re-login.
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenKindMismatch = errors.New("token kind mismatch")
	ErrTokenRevoked      = errors.New("token revoked")
)
