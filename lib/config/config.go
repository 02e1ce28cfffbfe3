// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigEnvVar names the environment variable [Load] reads.
const ConfigEnvVar = "PKGVAULT_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for pkgvault.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Storage configures the metadata and artifact store.
	Storage StorageConfig `yaml:"storage"`

	// Server configures the HTTP front end.
	Server ServerConfig `yaml:"server"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Storage *StorageOverrides `yaml:"storage,omitempty"`
	Server  *ServerConfig     `yaml:"server,omitempty"`
}

// StorageOverrides mirrors StorageConfig with an optional StrictNames
// so an override can turn strict mode off as well as on.
type StorageOverrides struct {
	Root        string `yaml:"root"`
	StrictNames *bool  `yaml:"strict_names"`
}

// StorageConfig configures the store.
type StorageConfig struct {
	// Root is the storage root directory. One subdirectory per
	// package is created beneath it.
	Root string `yaml:"root"`

	// StrictNames rejects package names and filenames that would be
	// rewritten by sanitization, instead of storing them under the
	// rewritten key.
	// Default: false (development), true (production)
	StrictNames bool `yaml:"strict_names"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Address is the TCP listen address.
	// Default: 127.0.0.1:4873
	Address string `yaml:"address"`

	// BaseURL is the externally visible scheme and host used in
	// dist.tarball locators.
	// Default: http://localhost:4873
	BaseURL string `yaml:"base_url"`

	// TokenFile holds the bearer token required for publishing and
	// uploading. Empty disables the check.
	TokenFile string `yaml:"token_file"`

	// TLSCertFile and TLSKeyFile enable HTTPS. Both or neither.
	TLSCertFile string `yaml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file"`

	// AllowedOrigins lists origins that receive CORS headers. "*"
	// allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// RateLimit bounds requests per client address.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// ShutdownTimeout is how long in-flight requests get to finish.
	// Default: 10s
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. Zero disables rate
	// limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the bucket size.
	Burst int `yaml:"burst"`
}

// Default returns the default configuration. Loading starts from
// these values; the config file is still required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Environment: Development,
		Storage: StorageConfig{
			Root: filepath.Join(homeDir, ".cache", "pkgvault", "storage"),
		},
		Server: ServerConfig{
			Address:         "127.0.0.1:4873",
			BaseURL:         "http://localhost:4873",
			ShutdownTimeout: "10s",
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 50,
				Burst:             100,
			},
		},
	}
}

// Load loads configuration from the file named by PKGVAULT_CONFIG.
// There is no fallback: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(ConfigEnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your pkgvault.yaml config file, or use --config flag", ConfigEnvVar)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a single configuration file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			strict := true
			overrides = &ConfigOverrides{
				Storage: &StorageOverrides{StrictNames: &strict},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Storage != nil {
		if overrides.Storage.Root != "" {
			c.Storage.Root = overrides.Storage.Root
		}
		if overrides.Storage.StrictNames != nil {
			c.Storage.StrictNames = *overrides.Storage.StrictNames
		}
	}

	if overrides.Server != nil {
		if overrides.Server.Address != "" {
			c.Server.Address = overrides.Server.Address
		}
		if overrides.Server.BaseURL != "" {
			c.Server.BaseURL = overrides.Server.BaseURL
		}
		if overrides.Server.TokenFile != "" {
			c.Server.TokenFile = overrides.Server.TokenFile
		}
		if overrides.Server.TLSCertFile != "" {
			c.Server.TLSCertFile = overrides.Server.TLSCertFile
		}
		if overrides.Server.TLSKeyFile != "" {
			c.Server.TLSKeyFile = overrides.Server.TLSKeyFile
		}
		if len(overrides.Server.AllowedOrigins) > 0 {
			c.Server.AllowedOrigins = overrides.Server.AllowedOrigins
		}
		if overrides.Server.RateLimit.RequestsPerSecond != 0 {
			c.Server.RateLimit.RequestsPerSecond = overrides.Server.RateLimit.RequestsPerSecond
		}
		if overrides.Server.RateLimit.Burst != 0 {
			c.Server.RateLimit.Burst = overrides.Server.RateLimit.Burst
		}
		if overrides.Server.ShutdownTimeout != "" {
			c.Server.ShutdownTimeout = overrides.Server.ShutdownTimeout
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Storage.Root = expandVars(c.Storage.Root, vars)
	vars["PKGVAULT_ROOT"] = c.Storage.Root

	c.Server.TokenFile = expandVars(c.Server.TokenFile, vars)
	c.Server.TLSCertFile = expandVars(c.Server.TLSCertFile, vars)
	c.Server.TLSKeyFile = expandVars(c.Server.TLSKeyFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Storage.Root == "" {
		errs = append(errs, errors.New("storage.root is required"))
	}

	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}

	if err := validateBaseURL(c.Server.BaseURL); err != nil {
		errs = append(errs, err)
	}

	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.tls_cert_file and server.tls_key_file must be set together"))
	}

	if _, err := c.Server.ShutdownDuration(); err != nil {
		errs = append(errs, err)
	}

	if c.Server.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("server.rate_limit.requests_per_second must not be negative"))
	}
	if c.Server.RateLimit.RequestsPerSecond > 0 && c.Server.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("server.rate_limit.burst must be at least 1 when rate limiting is enabled"))
	}

	return errors.Join(errs...)
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("server.base_url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("server.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.base_url %q must use http or https", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("server.base_url %q has no host", raw)
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return fmt.Errorf("server.base_url %q must not have a query or fragment", raw)
	}
	return nil
}

// ShutdownDuration parses ShutdownTimeout. Empty means 10 seconds.
func (s ServerConfig) ShutdownDuration() (time.Duration, error) {
	if s.ShutdownTimeout == "" {
		return 10 * time.Second, nil
	}
	duration, err := time.ParseDuration(s.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("server.shutdown_timeout must be positive, got %s", s.ShutdownTimeout)
	}
	return duration, nil
}

// ReadToken returns the bearer token from TokenFile, with surrounding
// whitespace removed. An empty TokenFile yields an empty token.
func (s ServerConfig) ReadToken() (string, error) {
	if s.TokenFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(s.TokenFile)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", s.TokenFile)
	}
	return token, nil
}

// EnsurePaths creates the storage root if it does not exist.
func (c *Config) EnsurePaths() error {
	if err := os.MkdirAll(c.Storage.Root, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Storage.Root, err)
	}
	return nil
}
