// Package config provides layered configuration for the mailcore CLI:
// one or more protocol accounts plus the process-wide ambient settings
// (logging, metrics, resolver strategy).
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"
)

// Protocol identifies which client an Account dials.
type Protocol string

const (
	ProtocolIMAP Protocol = "imap"
	ProtocolNNTP Protocol = "nntp"
	ProtocolSMTP Protocol = "smtp"
)

// Security selects how (or whether) TLS wraps the connection.
type Security string

const (
	SecurityNone     Security = "none"
	SecurityTunnel   Security = "tls"      // wrap immediately after connect
	SecurityStartTLS Security = "starttls" // wrap after a protocol handshake
)

// ResolverStrategy selects a DNS resolution strategy (spec.md §4.2).
type ResolverStrategy string

const (
	ResolverSync       ResolverStrategy = "sync"
	ResolverSubprocess ResolverStrategy = "subprocess"
	ResolverGoroutine  ResolverStrategy = "goroutine"
)

// DefaultPort returns the conventional port for (protocol, security) per
// spec.md §6.2.
func DefaultPort(p Protocol, s Security) int {
	switch p {
	case ProtocolIMAP:
		if s == SecurityTunnel {
			return 993
		}
		return 143
	case ProtocolNNTP:
		if s == SecurityTunnel {
			return 563
		}
		return 119
	case ProtocolSMTP:
		if s == SecurityTunnel {
			return 465
		}
		return 25
	default:
		return 0
	}
}

// SocksConfig describes an optional SOCKS4/5 proxy hop (spec.md §3.1).
type SocksConfig struct {
	Type     string `koanf:"type"` // "socks4" or "socks5"
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// TLSSettings configures certificate verification for a TLS/STARTTLS hop.
type TLSSettings struct {
	MinVersion         string `koanf:"min_version"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify"`
}

// MinTLSVersion returns the crypto/tls constant for the configured minimum
// TLS version. Returns tls.VersionTLS12 if not configured or invalid.
func (t TLSSettings) MinTLSVersion() uint16 {
	if v, ok := minTLSVersions[t.MinVersion]; ok {
		return v
	}
	return tls.VersionTLS12
}

// TimeoutSettings holds the three timeouts spec.md §5 names: connect,
// per-read/write I/O, and session idle.
type TimeoutSettings struct {
	Connect string `koanf:"connect"`
	IO      string `koanf:"io"`
	Idle    string `koanf:"idle"`
}

// ConnectTimeout returns the connect timeout. Returns 30s if not configured
// or invalid.
func (t TimeoutSettings) ConnectTimeout() time.Duration {
	return parseDurationOr(t.Connect, 30*time.Second)
}

// IOTimeout returns the per-read/write timeout. Returns 60s if not
// configured or invalid, matching the §4.1 default.
func (t TimeoutSettings) IOTimeout() time.Duration {
	return parseDurationOr(t.IO, 60*time.Second)
}

// IdleTimeout returns the session idle timeout. Returns 30m if not
// configured or invalid.
func (t TimeoutSettings) IdleTimeout() time.Duration {
	return parseDurationOr(t.Idle, 30*time.Minute)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Account is one configured mail/news/send endpoint.
type Account struct {
	Name           string          `koanf:"name"`
	Protocol       Protocol        `koanf:"protocol"`
	Host           string          `koanf:"host"`
	Port           int             `koanf:"port"`
	Security       Security        `koanf:"security"`
	Username       string          `koanf:"username"`
	ForceMechanism string          `koanf:"force_mechanism"`
	Socks          *SocksConfig    `koanf:"socks"`
	TLS            TLSSettings     `koanf:"tls"`
	Timeouts       TimeoutSettings `koanf:"timeouts"`
}

// EffectivePort returns Port if set, else the protocol/security default.
func (a Account) EffectivePort() int {
	if a.Port != 0 {
		return a.Port
	}
	return DefaultPort(a.Protocol, a.Security)
}

// MetricsConfig holds configuration for the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Address string `koanf:"address"`
	Path    string `koanf:"path"`
}

// Config is the top-level configuration tree.
type Config struct {
	LogLevel  string           `koanf:"log_level"`
	LogFormat string           `koanf:"log_format"`
	Resolver  ResolverStrategy `koanf:"resolver"`
	Metrics   MetricsConfig    `koanf:"metrics"`
	Accounts  []Account        `koanf:"accounts"`
	QueueDir  string           `koanf:"queue_dir"`
	OutboxDir string           `koanf:"outbox_dir"`
}

// Default returns a Config with sensible default values.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Resolver:  ResolverSync,
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9102",
			Path:    "/metrics",
		},
	}
}

// EnsureDefaults fills in zero-valued fields with defaults. Unlike Default,
// it's applied in place after unmarshalling a possibly-partial file.
func (c *Config) EnsureDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Resolver == "" {
		c.Resolver = ResolverSync
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9102"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	for i := range c.Accounts {
		if c.Accounts[i].TLS.MinVersion == "" {
			c.Accounts[i].TLS.MinVersion = "1.2"
		}
	}
}

// Validate checks that the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if !isValidResolver(c.Resolver) {
		return fmt.Errorf("invalid resolver strategy %q", c.Resolver)
	}

	for i, a := range c.Accounts {
		if a.Host == "" {
			return fmt.Errorf("account %d (%s): host is required", i, a.Name)
		}
		if !isValidProtocol(a.Protocol) {
			return fmt.Errorf("account %d (%s): invalid protocol %q", i, a.Name, a.Protocol)
		}
		if !isValidSecurity(a.Security) {
			return fmt.Errorf("account %d (%s): invalid security %q", i, a.Name, a.Security)
		}
		if a.Socks != nil && a.Socks.Type != "socks4" && a.Socks.Type != "socks5" {
			return fmt.Errorf("account %d (%s): invalid socks type %q", i, a.Name, a.Socks.Type)
		}
		if a.TLS.MinVersion != "" {
			if _, ok := minTLSVersions[a.TLS.MinVersion]; !ok {
				return fmt.Errorf("account %d (%s): invalid TLS min_version %q (valid: 1.0, 1.1, 1.2, 1.3)", i, a.Name, a.TLS.MinVersion)
			}
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			return errors.New("metrics address is required when metrics are enabled")
		}
		if c.Metrics.Path == "" {
			return errors.New("metrics path is required when metrics are enabled")
		}
	}

	return nil
}

// FindAccount returns the account with the given name, or false if none
// matches.
func (c *Config) FindAccount(name string) (Account, bool) {
	for _, a := range c.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return Account{}, false
}

var minTLSVersions = map[string]uint16{
	"1.0": tls.VersionTLS10,
	"1.1": tls.VersionTLS11,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

func isValidProtocol(p Protocol) bool {
	switch p {
	case ProtocolIMAP, ProtocolNNTP, ProtocolSMTP:
		return true
	default:
		return false
	}
}

func isValidSecurity(s Security) bool {
	switch s {
	case SecurityNone, SecurityTunnel, SecurityStartTLS:
		return true
	default:
		return false
	}
}

func isValidResolver(r ResolverStrategy) bool {
	switch r {
	case ResolverSync, ResolverSubprocess, ResolverGoroutine:
		return true
	default:
		return false
	}
}
