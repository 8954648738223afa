package usecase

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// TokenCipher encrypts Google refresh tokens at rest. The key is derived
// from the configured ENCRYPTION_KEY so operators can supply any string.
type TokenCipher struct {
	key []byte
}

func NewTokenCipher(encryptionKey string) (*TokenCipher, error) {
	if encryptionKey == "" {
		return nil, errors.New("ENCRYPTION_KEY is required")
	}
	derived := sha256.Sum256([]byte(encryptionKey))
	return &TokenCipher{key: derived[:]}, nil
}

// Encrypt seals plaintext and returns a base64 string of nonce||ciphertext.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *TokenCipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid encrypted token encoding: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	if len(sealed) < aead.NonceSize() {
		return "", errors.New("encrypted token too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("could not decrypt token: %w", err)
	}
	return string(plaintext), nil
}
