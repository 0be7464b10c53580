package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

func userHomeDir() (string, error) {
	return os.UserHomeDir()
}

// HubFlags holds the hub command-line overrides (spec §6 common flags
// plus the hub's positional listen endpoints, --foreground, --pid-file).
type HubFlags struct {
	ConfigPath string
	Listen     []string
	CertConf   string
	Insecure   bool
	Debug      bool
	Foreground bool
	PIDFile    string
}

// LoadHubConfig loads the hub section of path (if it exists) over the
// defaults, then applies flag overrides.
func LoadHubConfig(path string, f HubFlags) (HubConfig, error) {
	cfg := DefaultHubConfig()

	file, err := loadFileConfig(path)
	if err != nil {
		return cfg, err
	}
	cfg = mergeHubConfig(cfg, file.Hub)

	if len(f.Listen) > 0 {
		cfg.Listen = f.Listen
	}
	if f.CertConf != "" {
		cfg.CertConf = f.CertConf
	}
	if f.Insecure {
		cfg.Insecure = true
	}
	if f.Debug {
		cfg.LogLevel = "debug"
	}
	if f.PIDFile != "" {
		cfg.PIDFile = f.PIDFile
	}

	return cfg, cfg.Validate()
}

// NotifierFlags holds the notifier command-line overrides.
type NotifierFlags struct {
	ConfigPath string
	Host       string
	CertConf   string
	Insecure   bool
	Debug      bool
}

// LoadNotifierConfig loads the notifier section of path over the
// defaults, then applies flag overrides.
func LoadNotifierConfig(path string, f NotifierFlags) (NotifierConfig, error) {
	cfg := DefaultNotifierConfig()

	file, err := loadFileConfig(path)
	if err != nil {
		return cfg, err
	}
	cfg = mergeNotifierConfig(cfg, file.Notifier)

	if f.Host != "" {
		cfg.Host = f.Host
	}
	if f.CertConf != "" {
		cfg.CertConf = f.CertConf
	}
	if f.Insecure {
		cfg.Insecure = true
	}
	if f.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg, cfg.Validate()
}

// SubmitterFlags holds the submit command's command-line overrides.
type SubmitterFlags struct {
	ConfigPath string
	Host       string
	CertConf   string
	Insecure   bool
}

// LoadSubmitterConfig loads the submitter section of path over the
// defaults, then applies flag overrides.
func LoadSubmitterConfig(path string, f SubmitterFlags) (SubmitterConfig, error) {
	cfg := DefaultSubmitterConfig()

	file, err := loadFileConfig(path)
	if err != nil {
		return cfg, err
	}
	cfg = mergeSubmitterConfig(cfg, file.Submitter)

	if f.Host != "" {
		cfg.Host = f.Host
	}
	if f.CertConf != "" {
		cfg.CertConf = f.CertConf
	}
	if f.Insecure {
		cfg.Insecure = true
	}

	return cfg, cfg.Validate()
}

// ResolveHost resolves the HOSTSPEC a client should connect to: the
// explicit flag/config value first, then the host file, then the
// default loopback endpoint from spec §6.
func ResolveHost(explicit, hostFilePath string) (Endpoint, error) {
	if explicit != "" {
		return ParseEndpoint(explicit)
	}
	if hostFilePath == "" {
		hostFilePath = defaultHostFilePath()
	}
	ep, err := ReadHostFile(hostFilePath)
	if err == nil {
		return ep, nil
	}
	if os.IsNotExist(err) {
		return Endpoint{Host: "127.0.0.1", Port: DefaultPort}, nil
	}
	return Endpoint{}, fmt.Errorf("config: reading host file %s: %w", hostFilePath, err)
}

// loadFileConfig reads path as TOML, returning an empty FileConfig
// (never an error) when the file does not exist.
func loadFileConfig(path string) (FileConfig, error) {
	var file FileConfig
	if path == "" {
		return file, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return file, fmt.Errorf("config: reading config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("config: parsing config file %s: %w", path, err)
	}
	return file, nil
}

func mergeHubConfig(dst, src HubConfig) HubConfig {
	if src.Hostname != "" {
		dst.Hostname = src.Hostname
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if len(src.Listen) > 0 {
		dst.Listen = src.Listen
	}
	if src.Insecure {
		dst.Insecure = true
	}
	if src.CertConf != "" {
		dst.CertConf = src.CertConf
	}
	if src.MaxConnections > 0 {
		dst.MaxConnections = src.MaxConnections
	}
	if src.PIDFile != "" {
		dst.PIDFile = src.PIDFile
	}
	dst.Metrics = mergeMetrics(dst.Metrics, src.Metrics)
	return dst
}

func mergeNotifierConfig(dst, src NotifierConfig) NotifierConfig {
	if src.Host != "" {
		dst.Host = src.Host
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.Insecure {
		dst.Insecure = true
	}
	if src.CertConf != "" {
		dst.CertConf = src.CertConf
	}
	if src.MaxSleep > 0 {
		dst.MaxSleep = src.MaxSleep
	}
	if src.Threshold > 0 {
		dst.Threshold = src.Threshold
	}
	if src.Recover > 0 {
		dst.Recover = src.Recover
	}
	dst.Metrics = mergeMetrics(dst.Metrics, src.Metrics)
	return dst
}

func mergeSubmitterConfig(dst, src SubmitterConfig) SubmitterConfig {
	if src.Host != "" {
		dst.Host = src.Host
	}
	if src.Insecure {
		dst.Insecure = true
	}
	if src.CertConf != "" {
		dst.CertConf = src.CertConf
	}
	return dst
}

func mergeMetrics(dst, src MetricsConfig) MetricsConfig {
	if src.Enabled {
		dst.Enabled = true
	}
	if src.Address != "" {
		dst.Address = src.Address
	}
	if src.Path != "" {
		dst.Path = src.Path
	}
	return dst
}
