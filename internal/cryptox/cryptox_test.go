package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T, n int) string {
	t.Helper()
	key := make([]byte, n)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestSealOpen(t *testing.T) {
	s, err := NewSealer(newKey(t, 32))
	require.NoError(t, err)
	require.True(t, s.Enabled())

	sealed, err := s.Seal("sk-test-123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "sk-test-123")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", plain)
}

func TestSeal_FreshNonce(t *testing.T) {
	s, err := NewSealer(newKey(t, 32))
	require.NoError(t, err)

	a, err := s.Seal("same")
	require.NoError(t, err)
	b, err := s.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpen_WrongKey(t *testing.T) {
	s1, err := NewSealer(newKey(t, 32))
	require.NoError(t, err)
	s2, err := NewSealer(newKey(t, 32))
	require.NoError(t, err)

	sealed, err := s1.Seal("secret")
	require.NoError(t, err)

	_, err = s2.Open(sealed)
	assert.ErrorIs(t, err, ErrMalformedSealed)
}

func TestOpen_Malformed(t *testing.T) {
	s, err := NewSealer(newKey(t, 16))
	require.NoError(t, err)

	tests := []struct {
		name   string
		sealed string
	}{
		{"not base64", "%%%"},
		{"too short", base64.StdEncoding.EncodeToString([]byte("abc"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Open(tt.sealed)
			assert.ErrorIs(t, err, ErrMalformedSealed)
		})
	}
}

func TestNewSealer_Keys(t *testing.T) {
	_, err := NewSealer(newKey(t, 20))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewSealer("not-base64!")
	assert.Error(t, err)

	s, err := NewSealer("")
	require.NoError(t, err)
	assert.False(t, s.Enabled())
	_, err = s.Seal("x")
	assert.ErrorIs(t, err, ErrSealerUnavailable)
}
