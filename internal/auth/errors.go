package auth

import (
	"errors"
	"fmt"
)

// AuthError represents a classified failure of the token lifecycle.
type AuthError struct {
	// Type is the stable failure classification.
	Type string `json:"type"`
	// Message is a human-readable description of the failure.
	Message string `json:"message"`
	// Path is the offending filesystem path for storage failures.
	Path string `json:"path,omitempty"`
	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error returns a string representation of the lifecycle error.
func (e *AuthError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Failure classifications.
var (
	// ErrReauthRequired means the provider rejected the stored session or
	// credential. Retrying cannot succeed; the user must log in again.
	ErrReauthRequired = &AuthError{
		Type:    "reauth_required",
		Message: "stored session or credential rejected by provider",
	}

	// ErrNetworkFailure means the provider could not be reached. The
	// lifecycle retries once with backoff before surfacing this.
	ErrNetworkFailure = &AuthError{
		Type:    "network_failure",
		Message: "could not reach provider",
	}

	// ErrProtocolError means the provider responded in an unexpected shape,
	// usually a sign the web app changed underneath us. Never retried.
	ErrProtocolError = &AuthError{
		Type:    "protocol_error",
		Message: "unexpected provider response",
	}

	// ErrDriverTimeout means headless automation did not complete in time.
	// Treated the same as a rejected session: a hung headless login usually
	// means the provider presented a challenge (MFA or similar) that cannot
	// be satisfied non-interactively.
	ErrDriverTimeout = &AuthError{
		Type:    "driver_timeout",
		Message: "headless browser automation did not complete in time",
	}

	// ErrStorage means the local secret store is unreadable or unwritable.
	ErrStorage = &AuthError{
		Type:    "storage_error",
		Message: "secret store unavailable",
	}
)

// NewAuthError derives a concrete error from one of the classification bases.
func NewAuthError(base *AuthError, cause error) *AuthError {
	return &AuthError{
		Type:    base.Type,
		Message: base.Message,
		Cause:   cause,
	}
}

// NewStorageError wraps a filesystem failure with the offending path.
func NewStorageError(path string, cause error) *AuthError {
	return &AuthError{
		Type:    ErrStorage.Type,
		Message: ErrStorage.Message,
		Path:    path,
		Cause:   cause,
	}
}

func hasType(err error, typ string) bool {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return false
	}
	return authErr.Type == typ
}

// IsReauthRequired reports whether err means the provider rejected the
// stored session or credential.
func IsReauthRequired(err error) bool {
	return hasType(err, ErrReauthRequired.Type)
}

// IsNetworkFailure reports whether err is a transient transport failure.
func IsNetworkFailure(err error) bool {
	return hasType(err, ErrNetworkFailure.Type)
}

// IsProtocolError reports whether err signals an unexpected provider
// response shape.
func IsProtocolError(err error) bool {
	return hasType(err, ErrProtocolError.Type)
}

// IsDriverTimeout reports whether err is a headless automation timeout.
func IsDriverTimeout(err error) bool {
	return hasType(err, ErrDriverTimeout.Type)
}

// IsStorageError reports whether err is a local secret store failure.
func IsStorageError(err error) bool {
	return hasType(err, ErrStorage.Type)
}

// UserActionRequired reports whether the failure can only be resolved by the
// user running interactive login. A headless timeout is deliberately lumped
// in with a confirmed rejection: the design cannot tell an invalid session
// apart from an unanswerable challenge.
func UserActionRequired(err error) bool {
	return IsReauthRequired(err) || IsDriverTimeout(err)
}

// UserFriendlyMessage maps a lifecycle error onto guidance suitable for
// terminal output.
func UserFriendlyMessage(err error) string {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return "An unexpected error occurred. Please try again."
	}
	switch authErr.Type {
	case ErrReauthRequired.Type:
		return "Your saved session is no longer valid. Run `ecobee login` to sign in again."
	case ErrDriverTimeout.Type:
		return "Automatic sign-in did not complete (the provider may have asked for MFA). Run `ecobee login` to sign in again."
	case ErrNetworkFailure.Type:
		return "Could not reach Ecobee. Check your network connection and try again."
	case ErrProtocolError.Type:
		return "Ecobee responded in an unexpected way. The web app may have changed; an update to this tool may be required."
	case ErrStorage.Type:
		if authErr.Path != "" {
			return fmt.Sprintf("Could not access local credential storage at %s. Check permissions.", authErr.Path)
		}
		return "Could not access local credential storage. Check permissions."
	default:
		return "Authentication failed. Please try again."
	}
}

// DriverError describes a failure inside one of the browser drivers before
// the lifecycle manager has classified it. Kinds are intentionally coarse:
// the manager folds them into the AuthError taxonomy.
type DriverError struct {
	// Kind is one of the DriverFailure constants.
	Kind string
	// Message is a short description of what the driver was doing.
	Message string
	// Cause is the underlying browser or transport error.
	Cause error
}

// Driver failure kinds.
const (
	// DriverFailureTimeout: automation did not produce a token in time.
	DriverFailureTimeout = "timeout"
	// DriverFailureSessionRejected: the provider bounced the replayed
	// session back to its login page.
	DriverFailureSessionRejected = "session_rejected"
	// DriverFailureBrowserUnavailable: no usable browser binary was found.
	DriverFailureBrowserUnavailable = "browser_unavailable"
	// DriverFailureNavigation: the portal could not be reached or loaded.
	DriverFailureNavigation = "navigation_failed"
)

// Error returns a string representation of the driver error.
func (e *DriverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("driver %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("driver %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *DriverError) Unwrap() error {
	return e.Cause
}

// NewDriverError constructs a driver failure of the given kind.
func NewDriverError(kind, message string, cause error) *DriverError {
	return &DriverError{Kind: kind, Message: message, Cause: cause}
}
