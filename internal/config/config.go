// Package config provides configuration parsing and validation for
// latchkey, and builds the crypto manager a channel endpoint runs on.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/postalsys/latchkey/internal/nonce"
)

// DefaultNonceBits is the nonce counter width used when the config
// does not override it. Both ends of a channel must agree.
const DefaultNonceBits = 32

// DefaultMACKey is the bootstrap MAC key every context starts with.
// The handshake replaces it with a fresh key carried inside the
// ClientChallenge message.
const DefaultMACKey = "mac_secret"

// Config represents the complete endpoint configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Listen  string        `yaml:"listen"`
	Metrics MetricsConfig `yaml:"metrics"`

	// ReceivePerSecond throttles the server's session receive loop.
	// Zero disables the limit.
	ReceivePerSecond float64 `yaml:"receive_per_second"`

	// NonceBits is the sequential nonce counter width in bits.
	NonceBits int `yaml:"nonce_bits"`

	Ciphers CiphersConfig `yaml:"ciphers"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// CiphersConfig selects and parameterizes the registered cryptosystems.
// A nil section leaves that cipher unregistered.
type CiphersConfig struct {
	RC4              *SymmetricConfig `yaml:"rc4"`
	TripleDES        *EnabledConfig   `yaml:"triple_des"`
	RSA              *PKCConfig       `yaml:"rsa"`
	SSRSA            *PKCConfig       `yaml:"ssrsa"`
	GoldwasserMicali *PKCConfig       `yaml:"goldwasser_micali"`
	BlumGoldwasser   *BGConfig        `yaml:"blum_goldwasser"`
}

// SymmetricConfig parameterizes a symmetric cipher. KeySize may come
// inline or from a JSON key record file.
type SymmetricConfig struct {
	KeySize int    `yaml:"key_size"`
	KeyFile string `yaml:"key_file"`
}

// EnabledConfig switches on a cipher that takes no parameters.
type EnabledConfig struct {
	Enabled bool `yaml:"enabled"`
}

// PKCConfig parameterizes a public-key cryptosystem. When KeyFile is
// empty a fresh key pair is generated at startup, which can take a
// while for large moduli.
type PKCConfig struct {
	KeySize int    `yaml:"key_size"`
	KeyFile string `yaml:"key_file"`
}

// BGConfig parameterizes Blum-Goldwasser. Its key pairs are generated
// on the fly; PrimeBound caps the k in the 4k+3 prime sampling.
type BGConfig struct {
	Enabled    bool  `yaml:"enabled"`
	PrimeBound int64 `yaml:"prime_bound"`
}

// Default returns a configuration with the standard suite: RC4 and
// RSA, freshly generated keys, nonce and logging defaults.
func Default() *Config {
	return &Config{
		Log:       LogConfig{Level: "info", Format: "text"},
		Listen:    ":7800",
		NonceBits: DefaultNonceBits,
		Ciphers: CiphersConfig{
			RC4: &SymmetricConfig{KeySize: 56},
			RSA: &PKCConfig{KeySize: 2048},
		},
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values that have sensible defaults.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.NonceBits == 0 {
		c.NonceBits = DefaultNonceBits
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.NonceBits < 8 || c.NonceBits > nonce.MaxBits {
		return fmt.Errorf("nonce_bits %d out of range [8, %d]", c.NonceBits, nonce.MaxBits)
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen required when metrics are enabled")
	}

	if c.Ciphers.RC4 == nil && (c.Ciphers.TripleDES == nil || !c.Ciphers.TripleDES.Enabled) {
		return fmt.Errorf("at least one symmetric cipher must be configured")
	}

	hasPKC := c.Ciphers.RSA != nil || c.Ciphers.SSRSA != nil ||
		c.Ciphers.GoldwasserMicali != nil ||
		(c.Ciphers.BlumGoldwasser != nil && c.Ciphers.BlumGoldwasser.Enabled)
	if !hasPKC {
		return fmt.Errorf("at least one public-key cryptosystem must be configured")
	}

	if c.Ciphers.RC4 != nil && c.Ciphers.RC4.KeySize <= 0 && c.Ciphers.RC4.KeyFile == "" {
		return fmt.Errorf("ciphers.rc4 needs key_size or key_file")
	}

	for name, pkc := range map[string]*PKCConfig{
		"rsa":               c.Ciphers.RSA,
		"ssrsa":             c.Ciphers.SSRSA,
		"goldwasser_micali": c.Ciphers.GoldwasserMicali,
	} {
		if pkc != nil && pkc.KeySize <= 0 && pkc.KeyFile == "" {
			return fmt.Errorf("ciphers.%s needs key_size or key_file", name)
		}
	}

	return nil
}
