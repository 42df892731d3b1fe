// Package config handles TOML configuration parsing and validation for dhcpdig.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dhcpdig/dhcpdig/internal/dhcp"
	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

// Config is the top-level configuration for dhcpdig. Every field has a
// flag-level equivalent; flags override file values.
type Config struct {
	Client  ClientConfig   `toml:"client"`
	Checks  ChecksConfig   `toml:"checks"`
	Monitor MonitorConfig  `toml:"monitor"`
	Options []OptionConfig `toml:"option"`
	Log     LogConfig      `toml:"log"`
}

// ClientConfig holds the transaction engine settings.
type ClientConfig struct {
	Interface     string `toml:"interface"`
	MAC           string `toml:"mac"`
	Server        string `toml:"server"`
	Relay         string `toml:"relay"`
	Broadcast     bool   `toml:"broadcast"`
	MaxRetries    int    `toml:"max_retries"`
	RetryInterval string `toml:"retry_interval"`
	PollInterval  string `toml:"poll_interval"`
	ClientPort    int    `toml:"client_port"`
	ServerPort    int    `toml:"server_port"`
}

// ChecksConfig holds the opt-in post-lease verifications.
type ChecksConfig struct {
	Probe        bool   `toml:"probe"`
	ProbeTimeout string `toml:"probe_timeout"`
	DNS          bool   `toml:"dns"`
	DNSProbeName string `toml:"dns_probe_name"`
	DNSTimeout   string `toml:"dns_timeout"`
	LeaseDB      string `toml:"lease_db"`
}

// MonitorConfig holds periodic-acquisition mode settings.
type MonitorConfig struct {
	Enabled       bool   `toml:"enabled"`
	Interval      string `toml:"interval"`
	ListenAddress string `toml:"listen_address"`
}

// OptionConfig is one option override, parsed per the option's type family.
type OptionConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Load reads and validates a TOML config file. An empty path yields defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Client.Server == "" {
		cfg.Client.Server = dhcpv4.BroadcastIP.String()
		cfg.Client.Broadcast = true
	}
	if cfg.Client.MaxRetries == 0 {
		cfg.Client.MaxRetries = 3
	}
	if cfg.Client.RetryInterval == "" {
		cfg.Client.RetryInterval = "5s"
	}
	if cfg.Client.PollInterval == "" {
		cfg.Client.PollInterval = "10ms"
	}
	if cfg.Client.ClientPort == 0 {
		cfg.Client.ClientPort = dhcpv4.ClientPort
	}
	if cfg.Client.ServerPort == 0 {
		cfg.Client.ServerPort = dhcpv4.ServerPort
	}
	if cfg.Checks.ProbeTimeout == "" {
		cfg.Checks.ProbeTimeout = "1s"
	}
	if cfg.Checks.DNSTimeout == "" {
		cfg.Checks.DNSTimeout = "3s"
	}
	if cfg.Monitor.Interval == "" {
		cfg.Monitor.Interval = "60s"
	}
	if cfg.Monitor.ListenAddress == "" {
		cfg.Monitor.ListenAddress = ":9067"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func validate(cfg *Config) error {
	if cfg.Client.MAC != "" && !dhcpv4.ValidMAC(cfg.Client.MAC) {
		return fmt.Errorf("client.mac: %q is not a valid MAC address", cfg.Client.MAC)
	}
	if ip := net.ParseIP(cfg.Client.Server); ip == nil || ip.To4() == nil {
		return fmt.Errorf("client.server: %q is not an IPv4 address", cfg.Client.Server)
	}
	if cfg.Client.Relay != "" {
		if ip := net.ParseIP(cfg.Client.Relay); ip == nil || ip.To4() == nil {
			return fmt.Errorf("client.relay: %q is not an IPv4 address", cfg.Client.Relay)
		}
	}
	if cfg.Client.MaxRetries < 0 {
		return fmt.Errorf("client.max_retries: must not be negative")
	}
	for _, field := range []struct{ name, val string }{
		{"client.retry_interval", cfg.Client.RetryInterval},
		{"client.poll_interval", cfg.Client.PollInterval},
		{"checks.probe_timeout", cfg.Checks.ProbeTimeout},
		{"checks.dns_timeout", cfg.Checks.DNSTimeout},
		{"monitor.interval", cfg.Monitor.Interval},
	} {
		if _, err := time.ParseDuration(field.val); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	for _, port := range []struct {
		name string
		val  int
	}{
		{"client.client_port", cfg.Client.ClientPort},
		{"client.server_port", cfg.Client.ServerPort},
	} {
		if port.val < 1 || port.val > 65535 {
			return fmt.Errorf("%s: %d out of range", port.name, port.val)
		}
	}
	for _, opt := range cfg.Options {
		if _, err := BuildOption(opt.Name, opt.Value); err != nil {
			return fmt.Errorf("option %q: %w", opt.Name, err)
		}
	}
	return nil
}

// Duration parses a duration field that validate has already checked.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ServerIP returns the parsed target server address.
func (cfg *Config) ServerIP() net.IP {
	return net.ParseIP(cfg.Client.Server)
}

// RelayIP returns the parsed relay address, or nil when unset.
func (cfg *Config) RelayIP() net.IP {
	if cfg.Client.Relay == "" {
		return nil
	}
	return net.ParseIP(cfg.Client.Relay)
}

// OptionList builds the initial option list from the [[option]] tables.
func (cfg *Config) OptionList() (*dhcp.OptionList, error) {
	opts := dhcp.NewOptionList()
	for _, oc := range cfg.Options {
		opt, err := BuildOption(oc.Name, oc.Value)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", oc.Name, err)
		}
		opts.Append(opt)
	}
	return opts, nil
}
