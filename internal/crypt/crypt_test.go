package crypt

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		EncryptionKey: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32)),
		HashSecret:    "test-hash-secret",
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)

	_, err = New(&Config{EncryptionKey: "not base64!!!", HashSecret: "s"})
	assert.Error(t, err)

	_, err = New(&Config{
		EncryptionKey: base64.StdEncoding.EncodeToString([]byte("short")),
		HashSecret:    "s",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestHashEmailDeterministic(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)

	h1 := c.HashEmail("user@example.com")
	h2 := c.HashEmail("user@example.com")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	assert.NotEqual(t, h1, c.HashEmail("other@example.com"))
}

func TestHashEmailDependsOnSecret(t *testing.T) {
	c1, err := New(testConfig())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.HashSecret = "another-secret"
	c2, err := New(cfg)
	require.NoError(t, err)

	assert.NotEqual(t, c1.HashEmail("user@example.com"), c2.HashEmail("user@example.com"))
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)

	enc, err := c.EncryptEmail("user@example.com")
	require.NoError(t, err)
	assert.NotContains(t, enc, "user@example.com")

	dec, err := c.DecryptEmail(enc)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", dec)

	// Random nonce: same plaintext encrypts differently each time.
	enc2, err := c.EncryptEmail("user@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, enc, enc2)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)

	_, err = c.DecryptEmail("%%%not-base64%%%")
	assert.Error(t, err)

	_, err = c.DecryptEmail(base64.StdEncoding.EncodeToString([]byte("tooshort")))
	assert.Error(t, err)

	enc, err := c.EncryptEmail("user@example.com")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(enc)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	_, err = c.DecryptEmail(base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)
}

func TestNewToken(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)

	t1, err := c.NewToken()
	require.NoError(t, err)
	t2, err := c.NewToken()
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2)
	assert.Len(t, t1, 43) // 32 bytes, unpadded url-safe base64

	_, err = base64.RawURLEncoding.DecodeString(t1)
	assert.NoError(t, err)
}

func TestNewID(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
	assert.Len(t, NewID(), 36)
}
