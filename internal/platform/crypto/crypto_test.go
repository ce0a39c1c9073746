package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewRejectsShortKey(t *testing.T) {
	_, err := New("short")
	require.Error(t, err)
}

func TestNewWithoutKeyIsUnconfigured(t *testing.T) {
	svc, err := New("")
	require.NoError(t, err)
	assert.False(t, svc.Configured())

	out, err := svc.EncryptField("users", "email", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", out)
}

func TestEncryptFieldRoundTrip(t *testing.T) {
	svc, err := New(testKey)
	require.NoError(t, err)
	require.True(t, svc.Configured())

	sealed, err := svc.EncryptField("users", "email", "a@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, FieldPrefix))
	assert.NotContains(t, sealed, "a@example.com")

	again, err := svc.EncryptField("users", "email", sealed)
	require.NoError(t, err)
	assert.Equal(t, sealed, again, "already sealed values pass through")

	plain, err := svc.DecryptField("users", "email", sealed)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", plain)
}

func TestDecryptFieldBoundToColumn(t *testing.T) {
	svc, err := New(testKey)
	require.NoError(t, err)

	sealed, err := svc.EncryptField("users", "email", "secret")
	require.NoError(t, err)

	_, err = svc.DecryptField("users", "username", sealed)
	assert.Error(t, err)
}

func TestDecryptFieldPlainPassthrough(t *testing.T) {
	svc, err := New(testKey)
	require.NoError(t, err)

	plain, err := svc.DecryptField("users", "email", "not sealed")
	require.NoError(t, err)
	assert.Equal(t, "not sealed", plain)
}
