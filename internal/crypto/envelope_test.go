package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"

	"github.com/sonic-link/soniclink/internal/errs"
)

func testKeyPair(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	return priv
}

func TestSealOpen_RoundTrip(t *testing.T) {
	priv := testKeyPair(t)
	plaintext := []byte("Hello, SonicLink!")

	sealed, err := Seal(plaintext, &priv.PublicKey)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(sealed.Nonce) != NonceSize {
		t.Errorf("nonce length %d, want %d", len(sealed.Nonce), NonceSize)
	}
	if len(sealed.Tag) != TagSize {
		t.Errorf("tag length %d, want %d", len(sealed.Tag), TagSize)
	}

	got, err := Open(sealed, priv)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("got %q, want %q", got, plaintext)
	}
}

func TestOpen_TamperedTagFails(t *testing.T) {
	priv := testKeyPair(t)
	sealed, err := Seal([]byte("payload"), &priv.PublicKey)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	sealed.Tag[0] ^= 0xFF

	_, err = Open(sealed, priv)
	if !errors.Is(err, errs.ErrAuthFailed) {
		t.Errorf("got %v, want errs.ErrAuthFailed", err)
	}
}

func TestOpen_TamperedCiphertextFails(t *testing.T) {
	priv := testKeyPair(t)
	sealed, err := Seal([]byte("another payload"), &priv.PublicKey)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	sealed.Ciphertext[0] ^= 0xFF

	_, err = Open(sealed, priv)
	if !errors.Is(err, errs.ErrAuthFailed) {
		t.Errorf("got %v, want errs.ErrAuthFailed", err)
	}
}

func TestOpen_WrongKeyFails(t *testing.T) {
	priv := testKeyPair(t)
	other := testKeyPair(t)
	sealed, err := Seal([]byte("payload"), &priv.PublicKey)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	_, err = Open(sealed, other)
	if !errors.Is(err, errs.ErrAuthFailed) {
		t.Errorf("got %v, want errs.ErrAuthFailed", err)
	}
}
