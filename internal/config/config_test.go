package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sonic-link/soniclink/internal/errs"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("sample_rate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.FFTSize != 256 {
		t.Errorf("fft_size = %d, want 256", cfg.FFTSize)
	}
	if cfg.FEC != "rs(255,223)" {
		t.Errorf("fec = %q, want rs(255,223)", cfg.FEC)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soniclink.yaml")
	yaml := "pilot_spacing: 4\ncompress: true\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PilotSpacing != 4 {
		t.Errorf("pilot_spacing = %d, want 4", cfg.PilotSpacing)
	}
	if !cfg.Compress {
		t.Error("compress = false, want true")
	}
	// Unset fields still carry their defaults.
	if cfg.SampleRate != 48000 {
		t.Errorf("sample_rate = %d, want 48000", cfg.SampleRate)
	}
}

func TestValidate_RejectsBadBand(t *testing.T) {
	cfg := &Config{
		SampleRate: 48000, BandLow: 20000, BandHigh: 18000,
		FFTSize: 256, CPRatio: 0.25, PilotSpacing: 8, QAMOrder: 64,
		FEC: "rs(255,223)", IdleTimeoutMs: 1000, CancelCheckIntervalChunks: 16,
	}
	err := Validate(cfg)
	if !errors.Is(err, errs.ErrInvalidConfig) {
		t.Errorf("got %v, want errs.ErrInvalidConfig", err)
	}
}

func TestValidate_RejectsNonPowerOfTwoFFT(t *testing.T) {
	cfg := &Config{
		SampleRate: 48000, BandLow: 18000, BandHigh: 22000,
		FFTSize: 200, CPRatio: 0.25, PilotSpacing: 8, QAMOrder: 64,
		FEC: "rs(255,223)", IdleTimeoutMs: 1000, CancelCheckIntervalChunks: 16,
	}
	err := Validate(cfg)
	if !errors.Is(err, errs.ErrInvalidConfig) {
		t.Errorf("got %v, want errs.ErrInvalidConfig", err)
	}
}

func TestValidate_RejectsUnsupportedQAMOrder(t *testing.T) {
	cfg := &Config{
		SampleRate: 48000, BandLow: 18000, BandHigh: 22000,
		FFTSize: 256, CPRatio: 0.25, PilotSpacing: 8, QAMOrder: 16,
		FEC: "rs(255,223)", IdleTimeoutMs: 1000, CancelCheckIntervalChunks: 16,
	}
	err := Validate(cfg)
	if !errors.Is(err, errs.ErrInvalidConfig) {
		t.Errorf("got %v, want errs.ErrInvalidConfig", err)
	}
}
