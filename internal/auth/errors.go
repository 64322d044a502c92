package auth

import "errors"

var (
	// ErrInvalidInput is returned for empty or malformed fields, before any store access.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAuthenticationFailed is the single rejection returned for bad credentials or codes.
	ErrAuthenticationFailed = errors.New("invalid credentials")
	// ErrPrincipalInactive marks a principal that is missing or deactivated.
	// It is reported to hooks only; callers receive ErrAuthenticationFailed.
	ErrPrincipalInactive = errors.New("principal inactive")
	// ErrStoreUnavailable wraps persistence failures. Session state is left unchanged.
	ErrStoreUnavailable = errors.New("store unavailable")

	// errNoPendingState marks a second-factor attempt without a pending session.
	errNoPendingState = errors.New("no pending second factor")
	// errInvalidCode marks a TOTP code outside the accepted window.
	errInvalidCode = errors.New("invalid totp code")
	// errInvalidPassword marks a password mismatch.
	errInvalidPassword = errors.New("invalid password")
)
