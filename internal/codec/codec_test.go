package codec

import (
	"bytes"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/sonic-link/soniclink/internal/audio"
	"github.com/sonic-link/soniclink/internal/config"
	"github.com/sonic-link/soniclink/internal/errs"
	"github.com/sonic-link/soniclink/internal/keys"
)

func testConfig() *config.Config {
	return &config.Config{
		SampleRate:                48000,
		BandLow:                   18000,
		BandHigh:                  22000,
		FFTSize:                   256,
		CPRatio:                   0.25,
		PilotSpacing:              8,
		QAMOrder:                  64,
		FEC:                       "rs(255,223)",
		IdleTimeoutMs:             2000,
		CancelCheckIntervalChunks: 16,
	}
}

var testKeypair *rsa.PrivateKey

func testKeys(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	if testKeypair == nil {
		priv, err := keys.Generate()
		if err != nil {
			t.Fatalf("keys.Generate: %v", err)
		}
		testKeypair = priv
	}
	return testKeypair
}

func loopback(t *testing.T, cfg *config.Config, payload []byte, pub *rsa.PublicKey, priv *rsa.PrivateKey) []byte {
	t.Helper()
	waveform, err := EncodeFrame(payload, cfg, pub)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	// A short silence run before the burst exercises the coarse detector's
	// idle-skip path instead of matching on sample zero.
	padded := make([]float32, 0, len(waveform)+200)
	padded = append(padded, make([]float32, 200)...)
	padded = append(padded, waveform...)

	src := audio.NewBufferSource(padded)
	got, err := DecodeStream(src, cfg, priv, nil, nil)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	return got
}

func TestRoundTrip_Plain(t *testing.T) {
	cfg := testConfig()
	payload := []byte("the quick brown fox jumps over the lazy dog")
	got := loopback(t, cfg, payload, nil, nil)
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestRoundTrip_Empty(t *testing.T) {
	cfg := testConfig()
	got := loopback(t, cfg, []byte{}, nil, nil)
	if len(got) != 0 {
		t.Fatalf("got %d bytes, want 0", len(got))
	}
}

func TestRoundTrip_Compressed(t *testing.T) {
	cfg := testConfig()
	cfg.Compress = true
	payload := bytes.Repeat([]byte("aaaaaaaabbbbbbbbcccccccc"), 10)
	got := loopback(t, cfg, payload, nil, nil)
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch, got %d bytes want %d", len(got), len(payload))
	}
}

func TestRoundTrip_Encrypted(t *testing.T) {
	cfg := testConfig()
	cfg.Encrypt = true
	priv := testKeys(t)
	payload := []byte("secret handshake over ultrasound")
	got := loopback(t, cfg, payload, &priv.PublicKey, priv)
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestRoundTrip_CompressedAndEncrypted(t *testing.T) {
	cfg := testConfig()
	cfg.Compress = true
	cfg.Encrypt = true
	priv := testKeys(t)
	payload := bytes.Repeat([]byte("repeat-me "), 30)
	got := loopback(t, cfg, payload, &priv.PublicKey, priv)
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch, got %d bytes want %d", len(got), len(payload))
	}
}

func TestRoundTrip_MultiSymbolBoundary(t *testing.T) {
	cfg := testConfig()
	layout, err := buildLayout(cfg)
	if err != nil {
		t.Fatalf("buildLayout: %v", err)
	}
	// One byte short of filling an exact number of data symbols, so the
	// framer's padding path is exercised right at the boundary.
	payload := bytes.Repeat([]byte{0xAB}, layout.BytesPerSymbol()-1)
	got := loopback(t, cfg, payload, nil, nil)
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch at symbol boundary")
	}
}

func TestEncodeFrame_EncryptWithoutKeyFails(t *testing.T) {
	cfg := testConfig()
	cfg.Encrypt = true
	if _, err := EncodeFrame([]byte("x"), cfg, nil); err == nil {
		t.Fatal("expected an error encrypting without a public key")
	}
}

func TestDecodeStream_EncryptedWithoutPrivateKeyFails(t *testing.T) {
	cfg := testConfig()
	cfg.Encrypt = true
	priv := testKeys(t)
	waveform, err := EncodeFrame([]byte("hello"), cfg, &priv.PublicKey)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	src := audio.NewBufferSource(waveform)
	if _, err := DecodeStream(src, cfg, nil, nil, nil); err == nil {
		t.Fatal("expected an error decoding an encrypted frame without a private key")
	}
}

func TestDetect_FindsBurstWithinTimeout(t *testing.T) {
	cfg := testConfig()
	waveform, err := EncodeFrame([]byte("ping"), cfg, nil)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	src := audio.NewRepeatingSource(waveform)
	found, err := Detect(src, cfg, 2*time.Second)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !found {
		t.Fatal("expected Detect to find the preamble")
	}
}

func TestDecodeStream_CancelledReturnsErrCancelled(t *testing.T) {
	cfg := testConfig()
	src := audio.NewRepeatingSource([]float32{0, 0, 0, 0})
	cancel := make(chan struct{})
	close(cancel)
	_, err := DecodeStream(src, cfg, nil, nil, cancel)
	if err != errs.ErrCancelled {
		t.Fatalf("got %v, want errs.ErrCancelled", err)
	}
}
