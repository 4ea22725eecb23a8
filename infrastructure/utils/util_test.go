package utils

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestTokenCipher_RoundTrip(t *testing.T) {
	c, err := NewTokenCipher(testKey)
	require.NoError(t, err)

	sealed, err := c.Encrypt("access-token-value")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, cipherPrefix))
	assert.NotContains(t, sealed, "access-token-value")

	other, err := c.Encrypt("access-token-value")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, other, "nonce must differ per call")

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "access-token-value", plain)
}

func TestTokenCipher_NilPassesThrough(t *testing.T) {
	c, err := NewTokenCipher("")
	require.NoError(t, err)
	assert.Nil(t, c)

	out, err := c.Encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	out, err = c.Decrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
}

func TestTokenCipher_RejectsBadKeysAndTampering(t *testing.T) {
	_, err := NewTokenCipher("abcd")
	assert.Error(t, err)
	_, err = NewTokenCipher("not-hex")
	assert.Error(t, err)

	c, err := NewTokenCipher(testKey)
	require.NoError(t, err)
	sealed, err := c.Encrypt("secret")
	require.NoError(t, err)

	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(sealed, cipherPrefix))
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := cipherPrefix + base64.RawStdEncoding.EncodeToString(raw)
	_, err = c.Decrypt(tampered)
	assert.Error(t, err)

	var none *TokenCipher
	_, err = none.Decrypt(sealed)
	assert.Error(t, err)
}

func TestGenerateToken(t *testing.T) {
	signed, err := GenerateToken(map[string]interface{}{"sub": "user_42"}, "secret")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user_42", claims["sub"])
}

func TestRandomHex(t *testing.T) {
	v, err := RandomHex(32)
	require.NoError(t, err)
	assert.Len(t, v, 64)
}
