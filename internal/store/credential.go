package store

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/sumesh2279/ecobee-cli/internal/auth"
)

// credentialRecord is the on-disk shape of a stored credential. When the
// protection marker is "encrypted" the secret field holds a base64
// nonce+secretbox ciphertext sealed under the sibling key file.
type credentialRecord struct {
	Username   string `json:"username"`
	Secret     string `json:"secret"`
	Protection string `json:"protection"`
}

// LoadCredential reads and unseals the stored credential, or (nil, nil)
// when auto-login was never configured.
func (s *FileStore) LoadCredential(ctx context.Context) (*auth.StoredCredential, error) {
	var record credentialRecord
	found, err := s.load(credentialFile, &record)
	if err != nil || !found {
		return nil, err
	}

	credential := &auth.StoredCredential{
		Username:   record.Username,
		Protection: record.Protection,
	}
	switch record.Protection {
	case auth.ProtectionEncrypted:
		secret, errOpen := s.openSecret(record.Secret)
		if errOpen != nil {
			return nil, errOpen
		}
		credential.Secret = secret
	case auth.ProtectionPlaintext:
		credential.Secret = record.Secret
	default:
		path := filepath.Join(s.dir, credentialFile)
		return nil, auth.NewStorageError(path, fmt.Errorf("unknown protection marker %q", record.Protection))
	}
	return credential, nil
}

// SaveCredential seals the secret and persists the credential. The
// protection marker is decided here: sealing is always attempted and the
// record is only ever written encrypted.
func (s *FileStore) SaveCredential(ctx context.Context, credential *auth.StoredCredential) error {
	if credential == nil {
		return fmt.Errorf("store: credential is nil")
	}

	sealed, err := s.sealSecret(credential.Secret)
	if err != nil {
		return err
	}
	return s.save(credentialFile, &credentialRecord{
		Username:   credential.Username,
		Secret:     sealed,
		Protection: auth.ProtectionEncrypted,
	})
}

// DeleteCredential removes the stored credential and its sealing key.
// Idempotent.
func (s *FileStore) DeleteCredential(ctx context.Context) error {
	if err := s.remove(credentialFile); err != nil {
		return err
	}
	return s.remove(sealKeyFile)
}

func (s *FileStore) sealSecret(secret string) (string, error) {
	key, err := s.loadOrCreateKey()
	if err != nil {
		return "", err
	}

	var nonce [24]byte
	if _, err = rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("store: generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(secret), &nonce, key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *FileStore) openSecret(encoded string) (string, error) {
	key, err := s.loadKey()
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, credentialFile)
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(sealed) < 24 {
		return "", auth.NewStorageError(path, fmt.Errorf("malformed sealed secret"))
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	secret, ok := secretbox.Open(nil, sealed[24:], &nonce, key)
	if !ok {
		return "", auth.NewStorageError(path, fmt.Errorf("sealed secret does not match key"))
	}
	return string(secret), nil
}

// loadOrCreateKey returns the local sealing key, minting one on first use.
// The key lives next to the credential with the same owner-only permissions;
// it keeps the secret out of casual file reads, nothing more.
func (s *FileStore) loadOrCreateKey() (*[32]byte, error) {
	key, err := s.loadKey()
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, sealKeyFile)
	var fresh [32]byte
	if _, err = rand.Read(fresh[:]); err != nil {
		return nil, fmt.Errorf("store: generate sealing key: %w", err)
	}
	if err = os.MkdirAll(s.dir, dirMode); err != nil {
		return nil, auth.NewStorageError(s.dir, err)
	}
	encoded := base64.StdEncoding.EncodeToString(fresh[:])
	if err = atomic.WriteFile(path, bytes.NewReader([]byte(encoded))); err != nil {
		return nil, auth.NewStorageError(path, err)
	}
	if err = os.Chmod(path, fileMode); err != nil {
		return nil, auth.NewStorageError(path, err)
	}
	return &fresh, nil
}

func (s *FileStore) loadKey() (*[32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, sealKeyFile)
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, auth.NewStorageError(path, err)
	}
	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(encoded)))
	if err != nil || len(raw) != 32 {
		return nil, auth.NewStorageError(path, fmt.Errorf("malformed sealing key"))
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
