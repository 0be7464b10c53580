// Package config loads and validates the operational configuration for
// every HeyU role (hub, notifier, submitter): the shared TOML settings
// file, the certificate-profile file, and the client host file, plus
// HOSTSPEC parsing used throughout.
package config

import (
	"errors"
	"fmt"
)

// FileConfig is the top-level shape of the shared settings file. A
// single file may carry all three role sections; each role only reads
// its own.
type FileConfig struct {
	Hub       HubConfig       `toml:"hub"`
	Notifier  NotifierConfig  `toml:"notifier"`
	Submitter SubmitterConfig `toml:"submitter"`
}

// HubConfig holds the hub process's settings.
type HubConfig struct {
	Hostname       string        `toml:"hostname"`
	LogLevel       string        `toml:"log_level"`
	Listen         []string      `toml:"listen"`
	Insecure       bool          `toml:"insecure"`
	CertConf       string        `toml:"cert_conf"`
	MaxConnections int           `toml:"max_connections"`
	Metrics        MetricsConfig `toml:"metrics"`
	PIDFile        string        `toml:"pid_file"`
}

// DefaultHubConfig returns a HubConfig with the default listen endpoints
// 0.0.0.0:4859 and [::]:4859. Both are always listed; whether the host
// supports IPv6 is not checked, so binding [::]:4859 fails where it does
// not.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		LogLevel:       "info",
		Listen:         []string{fmt.Sprintf("0.0.0.0:%d", DefaultPort), fmt.Sprintf("[::]:%d", DefaultPort)},
		CertConf:       defaultCertConfPath(),
		MaxConnections: 1024,
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9180",
			Path:    "/metrics",
		},
	}
}

// Validate reports whether the hub configuration is usable.
func (c *HubConfig) Validate() error {
	if len(c.Listen) == 0 {
		return errors.New("config: hub requires at least one listen endpoint")
	}
	for _, spec := range c.Listen {
		if _, err := ParseEndpoint(spec); err != nil {
			return fmt.Errorf("config: hub listen endpoint: %w", err)
		}
	}
	if c.MaxConnections <= 0 {
		return errors.New("config: max_connections must be positive")
	}
	if !c.Insecure && c.CertConf == "" {
		return errors.New("config: cert_conf is required unless insecure mode is set")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return errors.New("config: metrics address is required when metrics are enabled")
	}
	return nil
}

// NotifierConfig holds the notifier process's settings, including the
// reconnect backoff parameters from spec §4.4.
type NotifierConfig struct {
	Host      string        `toml:"host"`
	LogLevel  string        `toml:"log_level"`
	Insecure  bool          `toml:"insecure"`
	CertConf  string        `toml:"cert_conf"`
	MaxSleep  int           `toml:"max_sleep"`
	Threshold int           `toml:"threshold"`
	Recover   int           `toml:"recover"`
	Metrics   MetricsConfig `toml:"metrics"`
}

// DefaultNotifierConfig mirrors the scenario parameters used in spec §8
// (maxSleep=300, threshold=30, recover=5).
func DefaultNotifierConfig() NotifierConfig {
	return NotifierConfig{
		LogLevel:  "info",
		CertConf:  defaultCertConfPath(),
		MaxSleep:  300,
		Threshold: 30,
		Recover:   5,
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9181",
			Path:    "/metrics",
		},
	}
}

// Validate reports whether the notifier configuration is usable.
func (c *NotifierConfig) Validate() error {
	if c.MaxSleep <= 0 {
		return errors.New("config: max_sleep must be positive")
	}
	if c.Threshold <= 0 {
		return errors.New("config: threshold must be positive")
	}
	if c.Recover <= 0 {
		return errors.New("config: recover must be positive")
	}
	if !c.Insecure && c.CertConf == "" {
		return errors.New("config: cert_conf is required unless insecure mode is set")
	}
	return nil
}

// SubmitterConfig holds the one-shot submit command's settings.
type SubmitterConfig struct {
	Host     string `toml:"host"`
	Insecure bool   `toml:"insecure"`
	CertConf string `toml:"cert_conf"`
}

// DefaultSubmitterConfig returns the submitter's defaults.
func DefaultSubmitterConfig() SubmitterConfig {
	return SubmitterConfig{
		CertConf: defaultCertConfPath(),
	}
}

// Validate reports whether the submitter configuration is usable.
func (c *SubmitterConfig) Validate() error {
	if !c.Insecure && c.CertConf == "" {
		return errors.New("config: cert_conf is required unless insecure mode is set")
	}
	return nil
}

// MetricsConfig holds the settings for the optional Prometheus exposer,
// shared by every role that runs one.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Path    string `toml:"path"`
}

func defaultCertConfPath() string {
	home, err := userHomeDir()
	if err != nil {
		return ".heyu.cert"
	}
	return home + "/.heyu.cert"
}

func defaultHostFilePath() string {
	home, err := userHomeDir()
	if err != nil {
		return ".heyu.hub"
	}
	return home + "/.heyu.hub"
}
