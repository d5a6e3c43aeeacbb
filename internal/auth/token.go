package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accountIDClaim is the namespaced claim the provider stamps into portal
// tokens with the owning account identifier.
const accountIDClaim = "https://claims.ecobee.com/ecobee_account_id"

// ParseBearerToken turns a raw bearer token string captured from the portal
// into a Token with a validity window. The token is a JWT; its signature is
// the provider's business, so only the payload is decoded. An unparseable
// token is a protocol_error: it means the portal stopped issuing what this
// tool understands. A parseable token without timing claims falls back to
// the nominal one hour lifetime.
func ParseBearerToken(raw string, now time.Time) (*Token, error) {
	if raw == "" {
		return nil, NewAuthError(ErrProtocolError, fmt.Errorf("empty bearer token"))
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, NewAuthError(ErrProtocolError, fmt.Errorf("decode bearer token payload: %w", err))
	}

	token := &Token{
		AccessToken: raw,
		IssuedAt:    now,
		Expiry:      now.Add(DefaultTokenLifetime),
	}

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		token.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		token.Expiry = exp.Time
	}
	if accountID, ok := claims[accountIDClaim].(string); ok {
		token.AccountID = accountID
	}

	return token, nil
}
