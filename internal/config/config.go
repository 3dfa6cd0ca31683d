// Package config loads and validates the codec's tunables (sample rate,
// band, FFT size, FEC/compression/encryption toggles) from a YAML file,
// environment variables, and defaults, the way dbehnke-dmr-nexus's
// pkg/config does with viper.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/sonic-link/soniclink/internal/errs"
)

// Config holds every recognized codec option.
type Config struct {
	SampleRate int `mapstructure:"sample_rate"`
	BandLow    int `mapstructure:"band_low"`
	BandHigh   int `mapstructure:"band_high"`

	FFTSize      int     `mapstructure:"fft_size"`
	CPRatio      float64 `mapstructure:"cp_ratio"`
	PilotSpacing int     `mapstructure:"pilot_spacing"`
	QAMOrder     int     `mapstructure:"qam_order"`

	FEC      string `mapstructure:"fec"`
	Compress bool   `mapstructure:"compress"`
	Encrypt  bool   `mapstructure:"encrypt"`

	IdleTimeoutMs             int `mapstructure:"idle_timeout_ms"`
	CancelCheckIntervalChunks int `mapstructure:"cancel_check_interval_chunks"`
}

// CyclicPrefixLen returns L, derived from FFTSize and CPRatio.
func (c *Config) CyclicPrefixLen() int {
	return int(float64(c.FFTSize) * c.CPRatio)
}

// Load reads configFile (if non-empty) plus SONICLINK_-prefixed environment
// overrides, layered on top of the defaults below, and validates the
// result.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("soniclink")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/soniclink")
	}

	v.SetEnvPrefix("SONICLINK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// no config file is fine, defaults + env apply
		} else if os.IsNotExist(err) {
			// an explicitly named file that doesn't exist is also fine
		} else {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sample_rate", 48000)
	v.SetDefault("band_low", 18000)
	v.SetDefault("band_high", 22000)

	v.SetDefault("fft_size", 256)
	v.SetDefault("cp_ratio", 0.25)
	v.SetDefault("pilot_spacing", 8)
	v.SetDefault("qam_order", 64)

	v.SetDefault("fec", "rs(255,223)")
	v.SetDefault("compress", false)
	v.SetDefault("encrypt", false)

	v.SetDefault("idle_timeout_ms", 5000)
	v.SetDefault("cancel_check_interval_chunks", 16)
}

// Validate rejects configurations the codec cannot build a layout or FEC
// codec from.
func Validate(c *Config) error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive", errs.ErrInvalidConfig)
	}
	if c.BandLow < 0 || c.BandHigh <= c.BandLow {
		return fmt.Errorf("%w: band [%d,%d) is empty or negative", errs.ErrInvalidConfig, c.BandLow, c.BandHigh)
	}
	if c.BandHigh > c.SampleRate/2 {
		return fmt.Errorf("%w: band_high %d exceeds Nyquist %d", errs.ErrInvalidConfig, c.BandHigh, c.SampleRate/2)
	}
	if c.FFTSize <= 0 || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("%w: fft_size %d must be a positive power of two", errs.ErrInvalidConfig, c.FFTSize)
	}
	if c.CPRatio <= 0 || c.CPRatio >= 1 {
		return fmt.Errorf("%w: cp_ratio %f must be in (0,1)", errs.ErrInvalidConfig, c.CPRatio)
	}
	if c.PilotSpacing <= 0 {
		return fmt.Errorf("%w: pilot_spacing must be positive", errs.ErrInvalidConfig)
	}
	if c.QAMOrder != 64 {
		return fmt.Errorf("%w: qam_order %d unsupported, only 64 is implemented", errs.ErrInvalidConfig, c.QAMOrder)
	}
	if c.FEC != "rs(255,223)" {
		return fmt.Errorf("%w: fec %q unsupported, only rs(255,223) is implemented", errs.ErrInvalidConfig, c.FEC)
	}
	if c.IdleTimeoutMs <= 0 {
		return fmt.Errorf("%w: idle_timeout_ms must be positive", errs.ErrInvalidConfig)
	}
	if c.CancelCheckIntervalChunks <= 0 {
		return fmt.Errorf("%w: cancel_check_interval_chunks must be positive", errs.ErrInvalidConfig)
	}
	return nil
}
