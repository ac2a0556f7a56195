// Package credentials seals connection secrets at rest and produces masked
// display copies of them.
package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
	version   = "v1:"

	// Unreadable is returned by Decrypt in place of plaintext it cannot open
	Unreadable = "[unreadable]"
)

var ErrUnreadable = errors.New("credentials: ciphertext is unreadable")

// Store encrypts and decrypts credential blobs with a process-wide key.
// The key is fixed at construction and never changes afterwards.
type Store struct {
	key [keySize]byte
}

// NewStore derives the key from secret. A 64 character hex string or the
// base64 encoding of 32 bytes is used as-is; anything else is hashed with SHA-256.
func NewStore(secret string) (*Store, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("credentials: encryption secret is empty")
	}

	s := &Store{}
	if raw, err := hex.DecodeString(secret); err == nil && len(raw) == keySize {
		copy(s.key[:], raw)
		return s, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) == keySize {
		copy(s.key[:], raw)
		return s, nil
	}
	s.key = sha256.Sum256([]byte(secret))
	return s, nil
}

// Encrypt seals plaintext and returns the versioned, base64 encoded ciphertext
func (s *Store) Encrypt(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return version + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open is the strict form of Decrypt
func (s *Store) Open(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, version) {
		return "", ErrUnreadable
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, version))
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrUnreadable
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnreadable
	}
	return string(plain), nil
}

// Decrypt never fails: malformed or forged input yields Unreadable, so one corrupt
// row does not break a listing of many connections.
func (s *Store) Decrypt(ciphertext string) string {
	plain, err := s.Open(ciphertext)
	if err != nil {
		return Unreadable
	}
	return plain
}

// Seal encodes a credential map as JSON and encrypts it
func (s *Store) Seal(creds map[string]any) (string, error) {
	if creds == nil {
		creds = map[string]any{}
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to marshal credentials: %w", err)
	}
	return s.Encrypt(string(data))
}

// Unseal decrypts and decodes a credential map sealed by Seal
func (s *Store) Unseal(ciphertext string) (map[string]any, error) {
	plain, err := s.Open(ciphertext)
	if err != nil {
		return nil, err
	}

	var creds map[string]any
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return creds, nil
}
