// Package crypto implements the frame's confidentiality/integrity envelope:
// AES-256-GCM over the compressed body, with the per-frame session key
// wrapped under the recipient's RSA-OAEP public key. No pack library wraps
// both primitives together, so this is built directly on the standard
// library's audited implementations (see DESIGN.md).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/sonic-link/soniclink/internal/errs"
)

const (
	SessionKeySize = 32
	NonceSize      = 12
	TagSize        = 16
)

// Sealed holds the four fields the frame header/trailer carries for an
// encrypted body: the RSA-wrapped session key, the GCM nonce, the
// ciphertext, and the detached authentication tag.
type Sealed struct {
	WrappedKey []byte
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
}

// Seal generates a fresh session key and nonce, encrypts plaintext under
// AES-256-GCM, and wraps the session key under pub with RSA-OAEP
// (SHA-256, MGF1-SHA-256).
func Seal(plaintext []byte, pub *rsa.PublicKey) (*Sealed, error) {
	key := make([]byte, SessionKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("crypto: generating session key: %w", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: wrapping session key: %w", err)
	}

	return &Sealed{WrappedKey: wrappedKey, Nonce: nonce, Ciphertext: ciphertext, Tag: tag}, nil
}

// Open unwraps the session key under priv and decrypts s, returning
// errs.ErrAuthFailed on any tag or padding mismatch.
func Open(s *Sealed, priv *rsa.PrivateKey) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, s.WrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrapping session key: %v", errs.ErrAuthFailed, err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(s.Tag) != TagSize {
		return nil, fmt.Errorf("%w: tag length %d, want %d", errs.ErrAuthFailed, len(s.Tag), TagSize)
	}

	combined := make([]byte, 0, len(s.Ciphertext)+TagSize)
	combined = append(combined, s.Ciphertext...)
	combined = append(combined, s.Tag...)

	plaintext, err := gcm.Open(nil, s.Nonce, combined, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrAuthFailed, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: building AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: building GCM mode: %w", err)
	}
	return gcm, nil
}
