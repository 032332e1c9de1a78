package crypt

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

type Config struct {
	// EncryptionKey is the base64 encoded 32 byte key used for reversible
	// email encryption.
	EncryptionKey string `mapstructure:"encryption_key"`
	// HashSecret keys the HMAC used for the dedup hash.
	HashSecret string `mapstructure:"hash_secret"`
}

// Crypt bundles the identity helpers: the one-way dedup hash, the
// reversible email transform and token generation.
type Crypt struct {
	hashKey []byte
	aeadKey []byte
}

func New(c *Config) (*Crypt, error) {
	if c.EncryptionKey == "" || c.HashSecret == "" {
		return nil, fmt.Errorf("incomplete crypto config")
	}

	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid base64: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	return &Crypt{
		hashKey: []byte(c.HashSecret),
		aeadKey: key,
	}, nil
}

// HashEmail returns the deterministic one-way digest of a normalized email.
// Used solely for dedup lookups, never decrypted.
func (c *Crypt) HashEmail(email string) string {
	mac := hmac.New(sha256.New, c.hashKey)
	mac.Write([]byte(email))
	return hex.EncodeToString(mac.Sum(nil))
}

// EncryptEmail encrypts the normalized email so the raw address can be
// recovered for outbound mail without storing plaintext at rest. The random
// nonce is prepended to the ciphertext.
func (c *Crypt) EncryptEmail(email string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.aeadKey)
	if err != nil {
		return "", fmt.Errorf("can't build cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("can't read nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(email), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptEmail is the inverse of EncryptEmail.
func (c *Crypt) DecryptEmail(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("ciphertext is not valid base64: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.aeadKey)
	if err != nil {
		return "", fmt.Errorf("can't build cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("can't decrypt email: %w", err)
	}
	return string(plain), nil
}

// NewToken returns a URL-safe random token with 256 bits of entropy. Used
// for verification and unsubscribe links.
func (c *Crypt) NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("can't read token bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewID returns the opaque identifier for a new signup.
func NewID() string {
	return uuid.NewString()
}
