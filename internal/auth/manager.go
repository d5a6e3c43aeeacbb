package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultRetryBackoff is the pause before the single retry of a driver
// attempt that failed with a transient network error.
const DefaultRetryBackoff = 2 * time.Second

// Manager owns the token lifecycle. It is the sole reader and writer of the
// secret store; everything else receives a Token by value through
// AcquireToken. One CLI invocation holds at most one Manager, and browser
// driver runs are serialized behind its mutex.
type Manager struct {
	store       Store
	headless    HeadlessDriver
	interactive InteractiveDriver

	margin  time.Duration
	backoff time.Duration
	now     func() time.Time

	mu     sync.Mutex
	token  *Token
	loaded bool
}

// NewManager constructs a lifecycle manager over the given store and
// drivers, with the default refresh margin and retry backoff.
func NewManager(store Store, headless HeadlessDriver, interactive InteractiveDriver) *Manager {
	return &Manager{
		store:       store,
		headless:    headless,
		interactive: interactive,
		margin:      DefaultRefreshMargin,
		backoff:     DefaultRetryBackoff,
		now:         time.Now,
	}
}

// SetRefreshMargin overrides the freshness margin subtracted from the token
// expiry. Values below zero are ignored.
func (m *Manager) SetRefreshMargin(margin time.Duration) {
	if margin >= 0 {
		m.margin = margin
	}
}

// tokenSource is one capability that can mint a token: a session replay or a
// credential form login. The recovery policy composes over these variants so
// either can fail independently without the orchestrator caring how the
// token is produced.
type tokenSource struct {
	name    string
	produce func(ctx context.Context) (string, *SessionArtifact, error)
}

// AcquireToken returns a token usable as an Authorization bearer value.
//
// The cached token is returned as-is while it is fresh; no I/O happens
// beyond the initial load from the store. Once stale, recovery runs in
// order: headless session replay, then headless credential login, and if
// neither input exists or both are rejected, reauth_required is returned so
// the caller can direct the user to interactive login. Every successful
// acquisition is persisted before it is returned.
func (m *Manager) AcquireToken(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		token, err := m.store.LoadToken(ctx)
		if err != nil {
			return nil, err
		}
		m.token = token
		m.loaded = true
	}

	if m.token.Fresh(m.now(), m.margin) {
		return m.token, nil
	}

	if m.token != nil {
		log.Debugf("cached token %s is stale, attempting refresh", m.token.Redacted())
	}
	return m.refreshLocked(ctx)
}

// refreshLocked walks the recovery sources in preference order. Rejected
// sources fall through to the next one; network and protocol failures are
// surfaced immediately, since a second source talks to the same provider
// over the same network and cannot do better.
func (m *Manager) refreshLocked(ctx context.Context) (*Token, error) {
	sources, err := m.recoverySources(ctx)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, NewAuthError(ErrReauthRequired, fmt.Errorf("no saved session or credential"))
	}

	var lastErr error
	for _, source := range sources {
		token, persistErr := m.mintAndPersistLocked(ctx, source)
		if persistErr == nil {
			return token, nil
		}
		if IsNetworkFailure(persistErr) || IsProtocolError(persistErr) || IsStorageError(persistErr) {
			return nil, persistErr
		}
		log.WithField("error", persistErr).Warnf("token refresh via %s failed", source.name)
		lastErr = persistErr
	}
	return nil, lastErr
}

func (m *Manager) recoverySources(ctx context.Context) ([]tokenSource, error) {
	var sources []tokenSource

	artifact, err := m.store.LoadSession(ctx)
	if err != nil {
		return nil, err
	}
	if artifact != nil {
		sources = append(sources, tokenSource{
			name: "session replay",
			produce: func(ctx context.Context) (string, *SessionArtifact, error) {
				return m.headless.ReplaySession(ctx, artifact)
			},
		})
	}

	credential, err := m.store.LoadCredential(ctx)
	if err != nil {
		return nil, err
	}
	if credential != nil {
		sources = append(sources, tokenSource{
			name: "credential login",
			produce: func(ctx context.Context) (string, *SessionArtifact, error) {
				return m.headless.CredentialLogin(ctx, credential)
			},
		})
	}

	return sources, nil
}

// mintAndPersistLocked runs one recovery source, retrying once with backoff
// on a transient network failure, then persists the result before handing
// the token back.
func (m *Manager) mintAndPersistLocked(ctx context.Context, source tokenSource) (*Token, error) {
	raw, artifact, err := m.runSource(ctx, source)
	if err != nil {
		return nil, err
	}

	token, err := ParseBearerToken(raw, m.now())
	if err != nil {
		return nil, err
	}
	if m.token != nil && m.token.ThermostatID != "" {
		token.ThermostatID = m.token.ThermostatID
	}
	return m.persistLocked(ctx, token, artifact)
}

func (m *Manager) runSource(ctx context.Context, source tokenSource) (string, *SessionArtifact, error) {
	raw, artifact, err := source.produce(ctx)
	if err == nil {
		return raw, artifact, nil
	}

	classified := m.classify(err)
	if !IsNetworkFailure(classified) {
		return "", nil, classified
	}

	log.Warnf("%s hit a network failure, retrying once in %s", source.name, m.backoff)
	select {
	case <-ctx.Done():
		return "", nil, NewAuthError(ErrNetworkFailure, ctx.Err())
	case <-time.After(m.backoff):
	}

	raw, artifact, err = source.produce(ctx)
	if err != nil {
		return "", nil, m.classify(err)
	}
	return raw, artifact, nil
}

// classify folds a driver failure into the lifecycle taxonomy. A browser
// that cannot be launched is grouped with reauth_required: the remedy is in
// the user's hands either way, and the cause is preserved for messaging.
func (m *Manager) classify(err error) error {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return err
	}

	var driverErr *DriverError
	if errors.As(err, &driverErr) {
		switch driverErr.Kind {
		case DriverFailureTimeout:
			return NewAuthError(ErrDriverTimeout, driverErr)
		case DriverFailureSessionRejected, DriverFailureBrowserUnavailable:
			return NewAuthError(ErrReauthRequired, driverErr)
		case DriverFailureNavigation:
			return NewAuthError(ErrNetworkFailure, driverErr)
		}
	}
	return NewAuthError(ErrProtocolError, err)
}

// persistLocked writes the acquisition through to the store before updating
// the in-memory cache, so a crash immediately after acquisition does not
// lose the token. A failed token write aborts the whole acquisition; a
// failed write of a rotated session only logs, because the token itself is
// already durable and the previous session stays on disk untouched.
func (m *Manager) persistLocked(ctx context.Context, token *Token, artifact *SessionArtifact) (*Token, error) {
	if err := m.store.SaveToken(ctx, token); err != nil {
		return nil, err
	}
	if artifact != nil {
		if err := m.store.SaveSession(ctx, artifact); err != nil {
			log.WithField("error", err).Warn("rotated session could not be persisted; keeping previous session")
		}
	}
	m.token = token
	m.loaded = true
	log.Debugf("token %s persisted, valid until %s", token.Redacted(), token.Expiry.Format(time.RFC3339))
	return token, nil
}

// InteractiveLogin drives the visible browser flow unconditionally and
// overwrites the stored token and session with the result. This is the only
// path that can create a session artifact from nothing.
func (m *Manager) InteractiveLogin(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, artifact, err := m.interactive.Login(ctx)
	if err != nil {
		return nil, m.classify(err)
	}

	token, err := ParseBearerToken(raw, m.now())
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, NewAuthError(ErrProtocolError, fmt.Errorf("interactive login produced no session"))
	}

	if err = m.store.SaveSession(ctx, artifact); err != nil {
		return nil, err
	}
	return m.persistLocked(ctx, token, nil)
}

// SetupAutoLogin stores a credential for headless fallback login. Opt-in
// only; the secret travels nowhere except the provider's own login form.
func (m *Manager) SetupAutoLogin(ctx context.Context, username, secret string) error {
	if username == "" || secret == "" {
		return fmt.Errorf("auto-login requires both a username and a password")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.SaveCredential(ctx, &StoredCredential{
		Username: username,
		Secret:   secret,
	})
}

// Logout deletes every persisted entity. Idempotent: succeeds when nothing
// existed.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if err := m.store.DeleteToken(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.store.DeleteSession(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.store.DeleteCredential(ctx); err != nil {
		errs = append(errs, err)
	}
	m.token = nil
	m.loaded = true
	return errors.Join(errs...)
}

// Invalidate drops the cached token after the command layer observed the
// provider rejecting it, so the next AcquireToken goes straight to refresh.
func (m *Manager) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = nil
	m.loaded = true
	return m.store.DeleteToken(ctx)
}

// RememberThermostat persists the selected thermostat identifier alongside
// the token so later invocations skip the registered-list query.
func (m *Manager) RememberThermostat(ctx context.Context, thermostatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil || thermostatID == "" || m.token.ThermostatID == thermostatID {
		return nil
	}
	m.token.ThermostatID = thermostatID
	return m.store.SaveToken(ctx, m.token)
}
