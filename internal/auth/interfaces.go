package auth

import "context"

// Store persists the three lifecycle entities to local, per-user storage.
// Load methods return (nil, nil) when the entity has never been saved;
// any other failure is a storage_error AuthError carrying the offending
// path. Delete is idempotent.
type Store interface {
	LoadToken(ctx context.Context) (*Token, error)
	SaveToken(ctx context.Context, token *Token) error
	DeleteToken(ctx context.Context) error

	LoadSession(ctx context.Context) (*SessionArtifact, error)
	SaveSession(ctx context.Context, artifact *SessionArtifact) error
	DeleteSession(ctx context.Context) error

	LoadCredential(ctx context.Context) (*StoredCredential, error)
	SaveCredential(ctx context.Context, credential *StoredCredential) error
	DeleteCredential(ctx context.Context) error
}

// HeadlessDriver mints a token through a non-visible browser context.
// Implementations enforce their own bounded timeout and tear the browser
// down on every path. Failures are reported as *DriverError.
type HeadlessDriver interface {
	// ReplaySession injects the stored cookies and navigates until the
	// provider issues a token. The returned artifact is the rotated cookie
	// set captured after token issuance.
	ReplaySession(ctx context.Context, artifact *SessionArtifact) (string, *SessionArtifact, error)

	// CredentialLogin submits the stored credential through the provider's
	// login form and waits for token issuance the same way.
	CredentialLogin(ctx context.Context, credential *StoredCredential) (string, *SessionArtifact, error)
}

// InteractiveDriver runs a visible browser session and blocks until the user
// completes the provider's login UI, MFA included. It is user-paced; the
// only cancellation is process termination or the context.
type InteractiveDriver interface {
	Login(ctx context.Context) (string, *SessionArtifact, error)
}
