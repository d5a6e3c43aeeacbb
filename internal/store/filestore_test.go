package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumesh2279/ecobee-cli/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewFileStore(filepath.Join(t.TempDir(), ".ecobee"))
	ctx := context.Background()

	loaded, err := s.LoadToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded, "absent token must load as nil, nil")

	token := &auth.Token{
		AccessToken:  "eyJhbGciOiJIUzI1NiJ9.payload.sig",
		IssuedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Expiry:       time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
		AccountID:    "acct-9f3",
		ThermostatID: "411892519937",
	}
	require.NoError(t, s.SaveToken(ctx, token))

	loaded, err = s.LoadToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, loaded)
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewFileStore(filepath.Join(t.TempDir(), ".ecobee"))
	ctx := context.Background()

	artifact := &auth.SessionArtifact{
		Cookies: []auth.SessionCookie{
			{
				Name:     "_TOKEN",
				Value:    "opaque",
				Domain:   ".ecobee.com",
				Path:     "/",
				Expires:  1772450000,
				HTTPOnly: true,
				Secure:   true,
				SameSite: "Lax",
			},
		},
		CapturedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveSession(ctx, artifact))

	loaded, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, artifact, loaded)
}

func TestFilePermissionsAreOwnerOnly(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), ".ecobee")
	s := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, s.SaveToken(ctx, &auth.Token{AccessToken: "tok"}))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	info, err = os.Stat(filepath.Join(dir, "token.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewFileStore(filepath.Join(t.TempDir(), ".ecobee"))
	ctx := context.Background()

	// Deleting entities that never existed succeeds.
	require.NoError(t, s.DeleteToken(ctx))
	require.NoError(t, s.DeleteSession(ctx))
	require.NoError(t, s.DeleteCredential(ctx))

	require.NoError(t, s.SaveToken(ctx, &auth.Token{AccessToken: "tok"}))
	require.NoError(t, s.DeleteToken(ctx))
	require.NoError(t, s.DeleteToken(ctx))

	loaded, err := s.LoadToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCorruptFileIsStorageError(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), ".ecobee")
	s := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token.json"), []byte("{not json"), 0o600))

	_, err := s.LoadToken(ctx)
	require.Error(t, err)
	assert.True(t, auth.IsStorageError(err), "corruption must not masquerade as a logged-out store")

	var authErr *auth.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, filepath.Join(dir, "token.json"), authErr.Path)
}

func TestUnreadableFileIsStorageError(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("root bypasses file permissions")
	}

	dir := filepath.Join(t.TempDir(), ".ecobee")
	s := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, s.SaveToken(ctx, &auth.Token{AccessToken: "tok"}))
	require.NoError(t, os.Chmod(filepath.Join(dir, "token.json"), 0o000))

	_, err := s.LoadToken(ctx)
	require.Error(t, err)
	assert.True(t, auth.IsStorageError(err))
}

func TestCredentialSealedRoundTrip(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), ".ecobee")
	s := NewFileStore(dir)
	ctx := context.Background()

	loaded, err := s.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, s.SaveCredential(ctx, &auth.StoredCredential{
		Username: "user@example.com",
		Secret:   "hunter2",
	}))

	// The secret never hits disk in the clear.
	raw, err := os.ReadFile(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
	assert.Contains(t, string(raw), auth.ProtectionEncrypted)

	loaded, err = s.LoadCredential(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "user@example.com", loaded.Username)
	assert.Equal(t, "hunter2", loaded.Secret)
	assert.Equal(t, auth.ProtectionEncrypted, loaded.Protection)
}

func TestCredentialPlaintextMarkerAccepted(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), ".ecobee")
	s := NewFileStore(dir)
	ctx := context.Background()

	// A record written by hand, or by an older build, with the restricted
	// plaintext marker still loads.
	require.NoError(t, os.MkdirAll(dir, 0o700))
	record := `{"username":"user@example.com","secret":"hunter2","protection":"plaintext-restricted"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.json"), []byte(record), 0o600))

	loaded, err := s.LoadCredential(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "hunter2", loaded.Secret)
	assert.Equal(t, auth.ProtectionPlaintext, loaded.Protection)
}

func TestCredentialUnknownMarkerIsStorageError(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), ".ecobee")
	s := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(dir, 0o700))
	record := `{"username":"user@example.com","secret":"x","protection":"rot13"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.json"), []byte(record), 0o600))

	_, err := s.LoadCredential(ctx)
	require.Error(t, err)
	assert.True(t, auth.IsStorageError(err))
}

func TestDeleteCredentialRemovesSealingKey(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), ".ecobee")
	s := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, s.SaveCredential(ctx, &auth.StoredCredential{
		Username: "user@example.com",
		Secret:   "hunter2",
	}))

	_, err := os.Stat(filepath.Join(dir, "credentials.key"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteCredential(ctx))

	_, err = os.Stat(filepath.Join(dir, "credentials.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "credentials.key"))
	assert.True(t, os.IsNotExist(err))
}

func TestSealedSecretUnreadableWithWrongKey(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), ".ecobee")
	s := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, s.SaveCredential(ctx, &auth.StoredCredential{
		Username: "user@example.com",
		Secret:   "hunter2",
	}))

	// Replace the sealing key; the stored record must stop opening instead of
	// yielding garbage.
	other := NewFileStore(filepath.Join(t.TempDir(), ".other"))
	require.NoError(t, other.SaveCredential(ctx, &auth.StoredCredential{Username: "u", Secret: "s"}))
	otherKey, err := os.ReadFile(filepath.Join(other.Dir(), "credentials.key"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.key"), otherKey, 0o600))

	_, err = s.LoadCredential(ctx)
	require.Error(t, err)
	assert.True(t, auth.IsStorageError(err))
}

func TestLastWriterWins(t *testing.T) {
	t.Parallel()

	s := NewFileStore(filepath.Join(t.TempDir(), ".ecobee"))
	ctx := context.Background()

	first := &auth.Token{AccessToken: "first", Expiry: time.Now().Add(time.Hour)}
	second := &auth.Token{AccessToken: "second", Expiry: time.Now().Add(2 * time.Hour)}
	require.NoError(t, s.SaveToken(ctx, first))
	require.NoError(t, s.SaveToken(ctx, second))

	loaded, err := s.LoadToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.AccessToken)
}
