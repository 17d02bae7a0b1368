// Package secrets holds the gateway's credential bundle and decrypts it on
// demand. Ciphertexts are Fernet tokens; plaintext only ever lives in the
// caller's stack for the duration of one check or one connection attempt.
package secrets

import (
	"strings"

	"github.com/fernet/fernet-go"

	gwerrors "github.com/TFMV/sqlgate/pkg/errors"
)

// noExpiry disables the Fernet timestamp check; credentials are long lived.
const noExpiry = -1

// Config is the credential bundle as supplied by configuration.
type Config struct {
	EncryptionKey       string
	EncryptedAPISecret  string
	EncryptedDBPassword string
}

// Store decrypts the credential bundle. It is immutable after construction and
// safe for concurrent use.
type Store struct {
	key                 string
	encryptedAPISecret  string
	encryptedDBPassword string
}

// NewStore creates a store over the given bundle. Nothing is decrypted here.
func NewStore(cfg Config) *Store {
	return &Store{
		key:                 strings.TrimSpace(cfg.EncryptionKey),
		encryptedAPISecret:  strings.TrimSpace(cfg.EncryptedAPISecret),
		encryptedDBPassword: strings.TrimSpace(cfg.EncryptedDBPassword),
	}
}

// ResolveAPISecret decrypts the API secret callers must present.
func (s *Store) ResolveAPISecret() (string, error) {
	return s.decrypt(s.encryptedAPISecret, "API secret")
}

// ResolveDBPassword decrypts the database password.
func (s *Store) ResolveDBPassword() (string, error) {
	return s.decrypt(s.encryptedDBPassword, "database password")
}

// Validate decrypts every credential once and discards the plaintext, so a
// broken bundle fails at startup instead of on the first request.
func (s *Store) Validate(requireDBPassword bool) error {
	if _, err := s.ResolveAPISecret(); err != nil {
		return err
	}
	if requireDBPassword {
		if _, err := s.ResolveDBPassword(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) decrypt(token, name string) (string, error) {
	if s.key == "" || token == "" {
		return "", gwerrors.New(gwerrors.CodeConfiguration, "missing encryption key or encrypted "+name)
	}

	key, err := fernet.DecodeKey(s.key)
	if err != nil {
		// The decode error can echo key material; do not wrap it.
		return "", gwerrors.New(gwerrors.CodeDecryption, "failed to decrypt "+name+": invalid encryption key")
	}

	msg := fernet.VerifyAndDecrypt([]byte(token), noExpiry, []*fernet.Key{key})
	if msg == nil {
		return "", gwerrors.New(gwerrors.CodeDecryption, "failed to decrypt "+name+": invalid token")
	}
	return string(msg), nil
}
