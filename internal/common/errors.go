// Package common defines shared constants and sentinel errors used across
// the tandem client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Gateway transport errors (provider unreachable or timed out).
	ErrNetwork = errors.New("network error")

	// Row-level errors (profile/role row absent; not fatal, use defaults).
	ErrNotFound = errors.New("not found")

	// Auth errors (sign-in rejected by the identity provider).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAuthBoundary indicates session-dependent logic was invoked outside
	// any session-provider scope. This is a wiring mistake, not a runtime
	// condition, and must not be swallowed.
	ErrAuthBoundary = errors.New("auth controller not attached")
)
