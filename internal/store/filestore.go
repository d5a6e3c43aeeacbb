// Package store persists the lifecycle entities (token, session artifact,
// stored credential) as JSON files under one per-user directory with
// owner-only permissions and atomic replace semantics. Two racing CLI
// invocations can both refresh; a reader never observes a half-written file
// and the last writer's token wins. There is no confidentiality against a
// co-resident process running as the same user or root; that trust boundary
// is accepted, not solved here.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/sumesh2279/ecobee-cli/internal/auth"
)

const (
	tokenFile      = "token.json"
	sessionFile    = "session.json"
	credentialFile = "credentials.json"
	sealKeyFile    = "credentials.key"

	dirMode  = 0o700
	fileMode = 0o600
)

// FileStore implements auth.Store on top of a local directory.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created lazily
// on the first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// DefaultDir returns the conventional per-user storage root, ~/.ecobee.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".ecobee"), nil
}

// Dir returns the storage root.
func (s *FileStore) Dir() string {
	return s.dir
}

// LoadToken reads the persisted token, or (nil, nil) when none was saved.
func (s *FileStore) LoadToken(ctx context.Context) (*auth.Token, error) {
	var token auth.Token
	found, err := s.load(tokenFile, &token)
	if err != nil || !found {
		return nil, err
	}
	return &token, nil
}

// SaveToken persists the token atomically with owner-only permissions.
func (s *FileStore) SaveToken(ctx context.Context, token *auth.Token) error {
	if token == nil {
		return fmt.Errorf("store: token is nil")
	}
	return s.save(tokenFile, token)
}

// DeleteToken removes the persisted token. Idempotent.
func (s *FileStore) DeleteToken(ctx context.Context) error {
	return s.remove(tokenFile)
}

// LoadSession reads the persisted session artifact, or (nil, nil).
func (s *FileStore) LoadSession(ctx context.Context) (*auth.SessionArtifact, error) {
	var artifact auth.SessionArtifact
	found, err := s.load(sessionFile, &artifact)
	if err != nil || !found {
		return nil, err
	}
	return &artifact, nil
}

// SaveSession persists the session artifact atomically.
func (s *FileStore) SaveSession(ctx context.Context, artifact *auth.SessionArtifact) error {
	if artifact == nil {
		return fmt.Errorf("store: session artifact is nil")
	}
	return s.save(sessionFile, artifact)
}

// DeleteSession removes the persisted session artifact. Idempotent.
func (s *FileStore) DeleteSession(ctx context.Context) error {
	return s.remove(sessionFile)
}

// load reads and decodes one entity file. Absence is not an error; every
// other failure surfaces as a storage_error with the offending path. A file
// that no longer decodes is also a storage error rather than silent absence,
// so a corrupted store never masquerades as a logged-out one.
func (s *FileStore) load(name string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, auth.NewStorageError(path, err)
	}
	if err = json.Unmarshal(data, out); err != nil {
		return false, auth.NewStorageError(path, fmt.Errorf("decode %s: %w", name, err))
	}
	return true, nil
}

func (s *FileStore) save(name string, entity any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(name, entity)
}

func (s *FileStore) writeLocked(name string, entity any) error {
	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return auth.NewStorageError(s.dir, err)
	}

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return auth.NewStorageError(path, fmt.Errorf("encode %s: %w", name, err))
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return auth.NewStorageError(path, err)
	}
	// The temp file is created 0600 and a rename preserves it, but an
	// existing wider file would survive the replace. Never widen, always
	// narrow.
	if err = os.Chmod(path, fileMode); err != nil {
		return auth.NewStorageError(path, err)
	}
	return nil
}

func (s *FileStore) remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return auth.NewStorageError(path, err)
	}
	return nil
}
