package secrets

import (
	"fmt"

	"github.com/fernet/fernet-go"

	gwerrors "github.com/TFMV/sqlgate/pkg/errors"
)

// GenerateKey returns a new random Fernet key in URL-safe base64.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return k.Encode(), nil
}

// ValidateKey reports whether key decodes as a Fernet key.
func ValidateKey(key string) error {
	if _, err := fernet.DecodeKey(key); err != nil {
		return gwerrors.New(gwerrors.CodeConfiguration, "invalid encryption key")
	}
	return nil
}

// Encrypt seals plaintext under key and returns the Fernet token.
func Encrypt(plaintext, key string) (string, error) {
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return "", gwerrors.New(gwerrors.CodeConfiguration, "invalid encryption key")
	}
	tok, err := fernet.EncryptAndSign([]byte(plaintext), k)
	if err != nil {
		return "", gwerrors.Wrap(err, gwerrors.CodeInternal, "encryption failed")
	}
	return string(tok), nil
}
