// Package config loads server configuration from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server's runtime configuration.
type Config struct {
	ListenAddr string        `yaml:"listen_addr"`
	DBPath     string        `yaml:"db_path"`
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	LogLevel   string        `yaml:"log_level"`
	// CredentialHash is the bcrypt hash of the shared API credential
	// presented when requesting a token.
	CredentialHash string `yaml:"credential_hash"`
}

// Default returns the configuration a bare deployment starts with.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		DBPath:     "./data/halo.db",
		TokenTTL:   24 * time.Hour,
		LogLevel:   "info",
	}
}

// LoadFile reads a YAML config on top of the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("HALO_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("HALO_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("HALO_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("HALO_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.TokenTTL = d
		}
	}
	if v := os.Getenv("HALO_CREDENTIAL_HASH"); v != "" {
		c.CredentialHash = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the constraints a server cannot start without.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must be set (HALO_JWT_SECRET)")
	}
	if c.CredentialHash == "" {
		return fmt.Errorf("credential_hash must be set (HALO_CREDENTIAL_HASH)")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be > 0, got %s", c.TokenTTL)
	}
	return nil
}
