package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/homequote-backend/pkg/config"
	"github.com/angelmondragon/homequote-backend/pkg/security"
)

func cheapParams() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerify(t *testing.T) {
	hash, err := security.HashPassword("roofing2026", cheapParams())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"), hash)

	ok, err := security.VerifyPassword("roofing2026", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("roofing2027", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashUsesFreshSalt(t *testing.T) {
	a, err := security.HashPassword("cement42", cheapParams())
	require.NoError(t, err)
	b, err := security.HashPassword("cement42", cheapParams())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := security.HashPassword("", cheapParams())
	assert.Error(t, err)
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=18$m=8,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=8,t=1,p=1$!!$a2V5a2V5",
	} {
		_, err := security.VerifyPassword("irrelevant", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)
	}
}

func TestCheckPolicy(t *testing.T) {
	cfg := config.PasswordConfig{MinLength: 10}
	cases := map[string]bool{
		"roofing2026":  true,
		"abc123":       false,
		"abcdefghijkl": false,
		"123456789012": false,
	}
	for password, ok := range cases {
		err := security.CheckPolicy(password, cfg)
		if ok {
			assert.NoError(t, err, password)
		} else {
			assert.ErrorIs(t, err, security.ErrWeakPassword, password)
		}
	}
	assert.ErrorIs(t, security.CheckPolicy("ab1", config.PasswordConfig{}), security.ErrWeakPassword)
}
