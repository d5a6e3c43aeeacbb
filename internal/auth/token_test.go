package auth

import (
	"testing"
	"time"
)

func TestParseBearerToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issued := now.Add(-5 * time.Minute)
	expires := now.Add(55 * time.Minute)

	tests := []struct {
		name        string
		claims      map[string]any
		wantIssued  time.Time
		wantExpiry  time.Time
		wantAccount string
	}{
		{
			name: "full timing claims",
			claims: map[string]any{
				"iat": issued.Unix(),
				"exp": expires.Unix(),
			},
			wantIssued: issued,
			wantExpiry: expires,
		},
		{
			name:       "no timing claims falls back to nominal lifetime",
			claims:     map[string]any{"sub": "someone"},
			wantIssued: now,
			wantExpiry: now.Add(DefaultTokenLifetime),
		},
		{
			name: "account claim extracted",
			claims: map[string]any{
				"exp": expires.Unix(),
				"https://claims.ecobee.com/ecobee_account_id": "acct-9f3",
			},
			wantIssued:  now,
			wantExpiry:  expires,
			wantAccount: "acct-9f3",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw := makeJWT(t, tt.claims)
			token, err := ParseBearerToken(raw, now)
			if err != nil {
				t.Fatalf("ParseBearerToken() error = %v", err)
			}
			if token.AccessToken != raw {
				t.Errorf("AccessToken = %q, want the raw input", token.AccessToken)
			}
			if !token.IssuedAt.Equal(tt.wantIssued) {
				t.Errorf("IssuedAt = %v, want %v", token.IssuedAt, tt.wantIssued)
			}
			if !token.Expiry.Equal(tt.wantExpiry) {
				t.Errorf("Expiry = %v, want %v", token.Expiry, tt.wantExpiry)
			}
			if token.AccountID != tt.wantAccount {
				t.Errorf("AccountID = %q, want %q", token.AccountID, tt.wantAccount)
			}
		})
	}
}

func TestParseBearerTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not a jwt", "definitely-not-a-jwt"},
		{"wrong segment count", "a.b"},
		{"undecodable payload", "e30.!!!.sig"},
	}

	now := time.Now()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseBearerToken(tt.raw, now)
			if err == nil {
				t.Fatal("ParseBearerToken() accepted malformed input")
			}
			if !IsProtocolError(err) {
				t.Errorf("error = %v, want protocol_error", err)
			}
		})
	}
}

func TestTokenFresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		token  *Token
		margin time.Duration
		want   bool
	}{
		{"nil token", nil, time.Minute, false},
		{"empty access token", &Token{Expiry: now.Add(time.Hour)}, time.Minute, false},
		{"well before expiry", &Token{AccessToken: "t", Expiry: now.Add(time.Hour)}, time.Minute, true},
		{"inside margin", &Token{AccessToken: "t", Expiry: now.Add(30 * time.Second)}, time.Minute, false},
		{"exactly at margin boundary", &Token{AccessToken: "t", Expiry: now.Add(time.Minute)}, time.Minute, false},
		{"expired", &Token{AccessToken: "t", Expiry: now.Add(-time.Second)}, time.Minute, false},
		{"zero margin", &Token{AccessToken: "t", Expiry: now.Add(time.Second)}, 0, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.token.Fresh(now, tt.margin); got != tt.want {
				t.Errorf("Fresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenRedacted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token *Token
		want  string
	}{
		{"nil", nil, "<empty>"},
		{"empty", &Token{}, "<empty>"},
		{"short", &Token{AccessToken: "abcdef"}, "****"},
		{"long", &Token{AccessToken: "eyJhbGciOiJIUzI1NiJ9.payload.sig9"}, "eyJhbGci...sig9"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.token.Redacted(); got != tt.want {
				t.Errorf("Redacted() = %q, want %q", got, tt.want)
			}
		})
	}
}
