// Package auth implements the credential and session lifecycle for the
// Ecobee consumer portal. It owns the cached bearer token, the persisted
// browser session, and the optional stored credential, and decides on every
// request whether the cached token can be reused or which recovery path
// must run to mint a fresh one.
package auth

import (
	"fmt"
	"time"
)

// DefaultTokenLifetime is assumed when the provider token carries no usable
// expiry claim. Portal tokens are nominally issued for one hour.
const DefaultTokenLifetime = time.Hour

// DefaultRefreshMargin is subtracted from the token expiry when deciding
// freshness, so a token is refreshed before clock skew can bite.
const DefaultRefreshMargin = 60 * time.Second

// Token is a provider-issued bearer token together with its validity window.
// It is owned exclusively by the Manager and handed to callers by value.
type Token struct {
	// AccessToken is the opaque bearer token string (a provider JWT).
	AccessToken string `json:"access_token"`

	// IssuedAt is the timestamp the token was minted, taken from the token
	// payload when available and from the local clock otherwise.
	IssuedAt time.Time `json:"issued_at"`

	// Expiry is the timestamp the token stops being accepted.
	Expiry time.Time `json:"expiry"`

	// AccountID is the Ecobee account identifier claim, kept for display.
	AccountID string `json:"account_id,omitempty"`

	// ThermostatID caches the selected thermostat so the command layer does
	// not have to re-query the registered list on every invocation.
	ThermostatID string `json:"thermostat_id,omitempty"`
}

// Fresh reports whether the token is still usable at the given instant,
// leaving margin before the real expiry for clock skew and request latency.
func (t *Token) Fresh(now time.Time, margin time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return now.Before(t.Expiry.Add(-margin))
}

// Redacted returns a loggable form of the token. The full value is never
// written to logs.
func (t *Token) Redacted() string {
	if t == nil || t.AccessToken == "" {
		return "<empty>"
	}
	if len(t.AccessToken) <= 12 {
		return "****"
	}
	return fmt.Sprintf("%s...%s", t.AccessToken[:8], t.AccessToken[len(t.AccessToken)-4:])
}

// SessionCookie is one captured browser cookie. The fields mirror what the
// browser reports so the cookie can be restored verbatim into a later
// headless context.
type SessionCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}

// SessionArtifact is the cookie state captured from a successful browser
// authentication. It represents a standing provider-side session that can
// mint fresh tokens without user interaction, until the provider invalidates
// it server-side. Invalidation cannot be observed locally; it only shows up
// as a failed replay.
type SessionArtifact struct {
	Cookies    []SessionCookie `json:"cookies"`
	CapturedAt time.Time       `json:"captured_at"`
}

// Protection markers recorded on a persisted StoredCredential.
const (
	// ProtectionEncrypted marks a secret sealed with a locally held key.
	ProtectionEncrypted = "encrypted"
	// ProtectionPlaintext marks a secret stored as-is behind file
	// permissions only.
	ProtectionPlaintext = "plaintext-restricted"
)

// StoredCredential is the opt-in fallback of last resort: a provider
// username and secret used for headless form login when the saved session
// can no longer produce a token. The secret is plaintext in memory; the
// store is responsible for sealing it at rest.
type StoredCredential struct {
	Username   string `json:"username"`
	Secret     string `json:"secret"`
	Protection string `json:"protection"`
}
