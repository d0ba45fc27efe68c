package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()

	h, err := NewHasher(Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	return h
}

func TestHasherHashIsSelfDescribing(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t)
	hash, err := h.Hash("my_password_123")
	require.NoError(t, err)

	require.NotEqual(t, "my_password_123", hash)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))

	again, err := h.Hash("my_password_123")
	require.NoError(t, err)
	require.NotEqual(t, hash, again, "salts must differ")
}

func TestHasherVerify(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t)
	passwords := []string{
		"my_password_123",
		"!@#$%^&*()_+-=[]{}|;':\",./<>?",
		"contraseña123",
		"password with spaces",
	}

	for _, pw := range passwords {
		hash, err := h.Hash(pw)
		require.NoError(t, err)

		ok, err := h.Verify(hash, pw)
		require.NoError(t, err)
		require.True(t, ok, pw)

		ok, err = h.Verify(hash, pw+"x")
		require.NoError(t, err)
		require.False(t, ok, pw)
	}
}

func TestHasherVerifiesWithStoredParameters(t *testing.T) {
	t.Parallel()

	weak := newTestHasher(t)
	hash, err := weak.Hash("Secret1!")
	require.NoError(t, err)

	strong, err := NewHasher(DefaultParams)
	require.NoError(t, err)

	ok, err := strong.Verify(hash, "Secret1!")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHasherVerifiesBcrypt(t *testing.T) {
	t.Parallel()

	legacy, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)

	h := newTestHasher(t)
	ok, err := h.Verify(string(legacy), "admin123")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify(string(legacy), "admin124")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasherRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t)
	inputs := []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=1024,t=1,p=1$onlysalt",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5a2V5",
	}

	for _, input := range inputs {
		_, err := h.Verify(input, "whatever")
		require.ErrorIs(t, err, ErrMalformedHash, input)
	}
}

func TestNewHasherValidatesParams(t *testing.T) {
	t.Parallel()

	_, err := NewHasher(Params{Memory: 1024, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.Error(t, err)

	_, err = NewHasher(Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 4, KeyLength: 32})
	require.Error(t, err)
}
