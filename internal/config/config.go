// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

// Package config loads server configuration from an optional YAML file and
// command-line flags, flags winning.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultListenAddr    = ":8443"
	DefaultMetricsAddr   = "127.0.0.1:9100"
	DefaultSessionTTL    = time.Hour
	DefaultBcryptCost    = 10
	DefaultLogFormat     = "json"
	DefaultSweepInterval = 5 * time.Minute
)

// Config holds the server configuration.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `koanf:"database_url"`

	// ListenAddr is the HTTP(S) listen address.
	ListenAddr string `koanf:"listen_addr"`

	// MetricsAddr is the metrics/health listen address (empty disables it).
	MetricsAddr string `koanf:"metrics_addr"`

	// SessionTTL is the absolute session lifetime from issuance.
	SessionTTL time.Duration `koanf:"session_ttl"`

	// BcryptCost is the password hashing work factor.
	BcryptCost int `koanf:"bcrypt_cost"`

	// CookieSecure marks the session cookie Secure. Leave enabled unless
	// terminating TLS is genuinely impossible in front of the server.
	CookieSecure bool `koanf:"cookie_secure"`

	// TLSCert and TLSKey enable HTTPS serving when both are set.
	TLSCert string `koanf:"tls_cert"`
	TLSKey  string `koanf:"tls_key"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`

	// SweepInterval is how often expired sessions are purged.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// Flags registers the config flags on a flag set with their defaults.
func Flags(fs *pflag.FlagSet) {
	fs.String("database-url", "", "PostgreSQL connection string")
	fs.String("listen-addr", DefaultListenAddr, "HTTP(S) listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.Duration("session-ttl", DefaultSessionTTL, "absolute session lifetime")
	fs.Int("bcrypt-cost", DefaultBcryptCost, "bcrypt work factor")
	fs.Bool("cookie-secure", true, "mark the session cookie Secure")
	fs.String("tls-cert", "", "TLS certificate file (enables HTTPS with --tls-key)")
	fs.String("tls-key", "", "TLS key file")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.Duration("sweep-interval", DefaultSweepInterval, "expired session sweep interval")
}

// Load reads configuration from the YAML file at path (if non-empty) and
// overlays the flag set on top.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	// Flags override file values. Flag names use dashes; keys use underscores.
	if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		key := flagKey(f.Name)
		return key, posflag.FlagVal(fs, f)
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required")
	}
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen_addr is required")
	}
	if c.SessionTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session_ttl must be positive")
	}
	if c.SweepInterval <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("sweep_interval must be positive")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return oops.Code("CONFIG_INVALID").Errorf("tls_cert and tls_key must be set together")
	}
	return nil
}

// TLSEnabled reports whether HTTPS serving is configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

func flagKey(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '-' {
			out[i] = '_'
		} else {
			out[i] = name[i]
		}
	}
	return string(out)
}
