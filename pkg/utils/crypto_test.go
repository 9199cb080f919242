package utils

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	secret := []byte("not-an-aes-sized-secret")

	enc, err := Encrypt([]byte("page-token"), secret)
	require.NoError(t, err)
	assert.NotEqual(t, "page-token", enc)

	dec, err := Decrypt(enc, secret)
	require.NoError(t, err)
	assert.Equal(t, "page-token", dec)
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	secret := []byte("secret")

	a, err := Encrypt([]byte("page-token"), secret)
	require.NoError(t, err)
	b, err := Encrypt([]byte("page-token"), secret)
	require.NoError(t, err)

	// fresh nonce per call
	assert.NotEqual(t, a, b)
}

func TestDecryptWrongSecret(t *testing.T) {
	enc, err := Encrypt([]byte("page-token"), []byte("secret"))
	require.NoError(t, err)

	_, err = Decrypt(enc, []byte("other-secret"))
	assert.Error(t, err)
}

func TestDecryptGarbage(t *testing.T) {
	_, err := Decrypt("not base64!!", []byte("secret"))
	assert.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("ab"))
	_, err = Decrypt(short, []byte("secret"))
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("secret", "42", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.MemberID)
	assert.Equal(t, "pageflow", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", "42", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", "42", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken("secret", token)
	assert.Error(t, err)
}
