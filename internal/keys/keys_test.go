package keys

import (
	"path/filepath"
	"testing"
)

func TestGenerate_WriteLoad_RoundTrip(t *testing.T) {
	priv, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	dir := t.TempDir()
	privPath := filepath.Join(dir, "id_rsa")
	pubPath := filepath.Join(dir, "id_rsa.pub")

	if err := WritePrivate(privPath, priv); err != nil {
		t.Fatalf("WritePrivate: %v", err)
	}
	if err := WritePublic(pubPath, &priv.PublicKey); err != nil {
		t.Fatalf("WritePublic: %v", err)
	}

	gotPriv, err := LoadPrivate(privPath)
	if err != nil {
		t.Fatalf("LoadPrivate: %v", err)
	}
	if gotPriv.D.Cmp(priv.D) != 0 {
		t.Error("loaded private key does not match generated key")
	}

	gotPub, err := LoadPublic(pubPath)
	if err != nil {
		t.Fatalf("LoadPublic: %v", err)
	}
	if gotPub.N.Cmp(priv.PublicKey.N) != 0 {
		t.Error("loaded public key does not match generated key")
	}
}

func TestLoadPrivate_MissingFile(t *testing.T) {
	if _, err := LoadPrivate(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected an error loading a missing key file")
	}
}
