// Package keys is the minimal on-disk RSA key material collaborator the
// crypto envelope needs. Key distribution and rotation are out of scope;
// this only loads/generates and PEM-encodes 2048-bit RSA keypairs.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

const keyBits = 2048

// Generate creates a fresh 2048-bit RSA keypair.
func Generate() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("keys: generating RSA keypair: %w", err)
	}
	return priv, nil
}

// WritePrivate PEM-encodes priv as PKCS#1 and writes it to path with 0600
// permissions.
func WritePrivate(path string, priv *rsa.PrivateKey) error {
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}
	return os.WriteFile(path, pem.EncodeToMemory(block), 0o600)
}

// WritePublic PEM-encodes pub as PKIX and writes it to path.
func WritePublic(path string, pub *rsa.PublicKey) error {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return fmt.Errorf("keys: marshaling public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return os.WriteFile(path, pem.EncodeToMemory(block), 0o644)
}

// LoadPrivate reads and PEM-decodes a PKCS#1 RSA private key from path.
func LoadPrivate(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: reading private key %s: %w", path, err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("keys: %s is not PEM-encoded", path)
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keys: parsing private key %s: %w", path, err)
	}
	return priv, nil
}

// LoadPublic reads and PEM-decodes a PKIX RSA public key from path.
func LoadPublic(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: reading public key %s: %w", path, err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("keys: %s is not PEM-encoded", path)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keys: parsing public key %s: %w", path, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("keys: %s is not an RSA public key", path)
	}
	return rsaPub, nil
}
