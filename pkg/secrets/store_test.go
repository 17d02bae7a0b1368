package secrets

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwerrors "github.com/TFMV/sqlgate/pkg/errors"
)

func newBundle(t *testing.T, apiSecret, dbPassword string) (string, Config) {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)

	encSecret, err := Encrypt(apiSecret, key)
	require.NoError(t, err)
	encPassword, err := Encrypt(dbPassword, key)
	require.NoError(t, err)

	return key, Config{
		EncryptionKey:       key,
		EncryptedAPISecret:  encSecret,
		EncryptedDBPassword: encPassword,
	}
}

func tamper(token string) string {
	b := []byte(token)
	i := len(b) / 2
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestStore_RoundTrip(t *testing.T) {
	_, cfg := newBundle(t, "sunvair", "QUANTUM")
	store := NewStore(cfg)

	secret, err := store.ResolveAPISecret()
	require.NoError(t, err)
	assert.Equal(t, "sunvair", secret)

	password, err := store.ResolveDBPassword()
	require.NoError(t, err)
	assert.Equal(t, "QUANTUM", password)

	assert.NoError(t, store.Validate(true))
}

func TestStore_DecryptsPythonTokens(t *testing.T) {
	// Produced by cryptography.fernet on the deployment side.
	store := NewStore(Config{
		EncryptionKey:       "dEXFw2mYtOLIS5XjXz_0AxknbRauTEuSyStO1WJsS98=",
		EncryptedAPISecret:  "gAAAAABogYTeP7PCyZ1P1sgNoBZWeCaSqXRHyyz1RafMStsjj5ZUa3kUjREC5vm8MwBwkqAnq--s1kDbkyq27HjhgQ4-8xUmcQ==",
		EncryptedDBPassword: "gAAAAABogYTeKNGNbIvfmro5fwWlFWUaCHOEAUL45uujcqIs7f_ovH9I2w5YSc3nfU39hSww489S-vzWGxKBX9uw1XwHoo9V0A==",
	})

	secret, err := store.ResolveAPISecret()
	require.NoError(t, err)
	assert.Equal(t, "sunvair", secret)

	password, err := store.ResolveDBPassword()
	require.NoError(t, err)
	assert.Equal(t, "QUANTUM", password)
}

func TestStore_MissingMaterial(t *testing.T) {
	_, full := newBundle(t, "s", "p")

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no key", Config{EncryptedAPISecret: full.EncryptedAPISecret, EncryptedDBPassword: full.EncryptedDBPassword}},
		{"no ciphertexts", Config{EncryptionKey: full.EncryptionKey}},
		{"whitespace only", Config{EncryptionKey: "  ", EncryptedAPISecret: "\n", EncryptedDBPassword: " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(tt.cfg)

			_, err := store.ResolveAPISecret()
			require.Error(t, err)
			assert.True(t, stdErrors.Is(err, gwerrors.ErrMissingSecret))

			_, err = store.ResolveDBPassword()
			require.Error(t, err)
			assert.Equal(t, gwerrors.CodeConfiguration, gwerrors.GetCode(err))
		})
	}
}

func TestStore_WrongKey(t *testing.T) {
	_, cfg := newBundle(t, "sunvair", "QUANTUM")
	other, err := GenerateKey()
	require.NoError(t, err)
	cfg.EncryptionKey = other

	_, err = NewStore(cfg).ResolveAPISecret()
	require.Error(t, err)
	assert.True(t, stdErrors.Is(err, gwerrors.ErrDecryption))
}

func TestStore_TamperedCiphertext(t *testing.T) {
	_, cfg := newBundle(t, "sunvair", "QUANTUM")
	cfg.EncryptedDBPassword = tamper(cfg.EncryptedDBPassword)
	store := NewStore(cfg)

	_, err := store.ResolveDBPassword()
	require.Error(t, err)
	assert.True(t, stdErrors.Is(err, gwerrors.ErrDecryption))

	// The API secret is untouched and still resolves.
	secret, err := store.ResolveAPISecret()
	require.NoError(t, err)
	assert.Equal(t, "sunvair", secret)

	assert.Error(t, store.Validate(true))
	assert.NoError(t, store.Validate(false))
}

func TestStore_InvalidKeyFormat(t *testing.T) {
	_, cfg := newBundle(t, "sunvair", "QUANTUM")
	cfg.EncryptionKey = "not-a-key"

	_, err := NewStore(cfg).ResolveAPISecret()
	require.Error(t, err)
	assert.Equal(t, gwerrors.CodeDecryption, gwerrors.GetCode(err))
	assert.NotContains(t, err.Error(), "not-a-key")
}

func TestStore_ErrorsDoNotLeakMaterial(t *testing.T) {
	key, cfg := newBundle(t, "sunvair", "QUANTUM")
	cfg.EncryptedAPISecret = tamper(cfg.EncryptedAPISecret)

	_, err := NewStore(cfg).ResolveAPISecret()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), key)
	assert.NotContains(t, err.Error(), cfg.EncryptedAPISecret)
	assert.NotContains(t, err.Error(), "sunvair")
}

func TestValidateKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	assert.NoError(t, ValidateKey(key))
	assert.Error(t, ValidateKey("short"))
}

func TestEncrypt_InvalidKey(t *testing.T) {
	_, err := Encrypt("x", "bogus")
	require.Error(t, err)
	assert.Equal(t, gwerrors.CodeConfiguration, gwerrors.GetCode(err))
}

func TestEncrypt_ProducesDistinctTokens(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	a, err := Encrypt("same", key)
	require.NoError(t, err)
	b, err := Encrypt("same", key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
