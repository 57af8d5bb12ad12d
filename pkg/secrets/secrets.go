// Package secrets encrypts credential material at rest. Scheme passwords and
// API secrets are sealed with XChaCha20-Poly1305 under a key supplied by the
// key-management collaborator; nothing in this repo persists plaintext.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	dErrors "depositgate/pkg/domain-errors"
)

// Cipher seals and opens secret payloads with a single symmetric key.
type Cipher struct {
	key []byte
}

// NewCipher builds a Cipher from a base64-encoded 32-byte key.
func NewCipher(encodedKey string) (*Cipher, error) {
	if encodedKey == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "encryption key is required")
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "encryption key must be base64")
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, dErrors.Newf(dErrors.CodeValidation, "encryption key must be %d bytes", chacha20poly1305.KeySize)
	}
	return &Cipher{key: key}, nil
}

// Seal encrypts plaintext and returns a base64 blob of nonce||ciphertext.
func (c *Cipher) Seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("create aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a blob produced by Seal.
func (c *Cipher) Open(encoded string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("secret blob too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open secret: %w", err)
	}
	return plaintext, nil
}

// GenerateKey creates a fresh random key, base64-encoded, for local setups.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
