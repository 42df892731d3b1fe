package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dhcpdig.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Client.Server != dhcpv4.BroadcastIP.String() || !cfg.Client.Broadcast {
		t.Errorf("server default = %q broadcast=%v", cfg.Client.Server, cfg.Client.Broadcast)
	}
	if cfg.Client.MaxRetries != 3 || cfg.Client.RetryInterval != "5s" || cfg.Client.PollInterval != "10ms" {
		t.Errorf("retry defaults = %d %q %q", cfg.Client.MaxRetries, cfg.Client.RetryInterval, cfg.Client.PollInterval)
	}
	if cfg.Client.ClientPort != dhcpv4.ClientPort || cfg.Client.ServerPort != dhcpv4.ServerPort {
		t.Errorf("port defaults = %d/%d", cfg.Client.ClientPort, cfg.Client.ServerPort)
	}
	if cfg.Monitor.ListenAddress != ":9067" || cfg.Monitor.Interval != "60s" {
		t.Errorf("monitor defaults = %q %q", cfg.Monitor.ListenAddress, cfg.Monitor.Interval)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults = %q %q", cfg.Log.Level, cfg.Log.Format)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[client]
interface = "eth0"
mac = "08:00:27:12:34:56"
server = "10.0.0.1"
max_retries = 5
retry_interval = "2s"

[checks]
probe = true
dns = true
lease_db = "/tmp/leases.db"

[monitor]
enabled = true
interval = "30s"

[[option]]
name = "hostname"
value = "venus"

[[option]]
name = "parameter_request_list"
value = "1, 3, 6, 15"

[log]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Client.Interface != "eth0" || cfg.Client.MaxRetries != 5 {
		t.Errorf("client = %+v", cfg.Client)
	}
	if cfg.ServerIP().String() != "10.0.0.1" {
		t.Errorf("ServerIP = %v", cfg.ServerIP())
	}
	if !cfg.Checks.Probe || !cfg.Checks.DNS || cfg.Checks.LeaseDB != "/tmp/leases.db" {
		t.Errorf("checks = %+v", cfg.Checks)
	}
	if !cfg.Monitor.Enabled || cfg.Monitor.Interval != "30s" {
		t.Errorf("monitor = %+v", cfg.Monitor)
	}

	opts, err := cfg.OptionList()
	if err != nil {
		t.Fatalf("OptionList error: %v", err)
	}
	if opts.Len() != 2 {
		t.Fatalf("OptionList length = %d", opts.Len())
	}
	host, ok := opts.ByCode(dhcpv4.OptionHostname)
	if !ok || string(host.Data) != "venus" {
		t.Errorf("hostname option = %v", host)
	}
	prl, ok := opts.ByCode(dhcpv4.OptionParameterRequestList)
	if !ok || !bytes.Equal(prl.Data, []byte{1, 3, 6, 15}) {
		t.Errorf("parameter request list = %v", prl)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad mac", "[client]\nmac = \"nope\"\n"},
		{"bad server", "[client]\nserver = \"example.org\"\n"},
		{"v6 server", "[client]\nserver = \"2001:db8::1\"\n"},
		{"bad relay", "[client]\nrelay = \"10.0.0\"\n"},
		{"negative retries", "[client]\nmax_retries = -1\n"},
		{"bad duration", "[client]\nretry_interval = \"fast\"\n"},
		{"port out of range", "[client]\nclient_port = 70000\n"},
		{"unknown option", "[[option]]\nname = \"no_such_key\"\nvalue = \"x\"\n"},
		{"unparsable option", "[[option]]\nname = \"lease_time\"\nvalue = \"soon\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load should have failed")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load should fail for a missing path")
	}
}

func TestBuildOption(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  string
		code dhcpv4.OptionCode
		data []byte
	}{
		{"bool", "ip_forwarding", "true", 19, []byte{1}},
		{"uint8", "default_ip_ttl", "64", 23, []byte{64}},
		{"uint16", "max_dhcp_message_size", "1500", 57, []byte{0x05, 0xDC}},
		{"uint32", "lease_time", "86400", 51, []byte{0x00, 0x01, 0x51, 0x80}},
		{"int32", "time_offset_s", "-3600", 2, []byte{0xFF, 0xFF, 0xF1, 0xF0}},
		{"string", "hostname", "venus", 12, []byte("venus")},
		{"ip", "subnet_mask", "255.255.255.0", 1, []byte{255, 255, 255, 0}},
		{"ip list", "routers", "10.0.0.1, 10.0.0.2", 3, []byte{10, 0, 0, 1, 10, 0, 0, 2}},
		{"ip pairs", "policy_filters", "10.0.0.0/255.0.0.0", 21, []byte{10, 0, 0, 0, 255, 0, 0, 0}},
		{"uint8 list", "parameter_request_list", "1,3,6", 55, []byte{1, 3, 6}},
		{"uint16 list", "path_mtu_aging_table", "68,1500", 25, []byte{0x00, 0x44, 0x05, 0xDC}},
		{"enum symbol", "dhcp_message_type", "DHCPDISCOVER", 53, []byte{1}},
		{"enum number", "dhcp_message_type", "5", 53, []byte{5}},
		{"opaque", "vendor_specific_information", "0xDE 0xAD", 43, []byte{0xDE, 0xAD}},
		{"client id", "client_identifier", "1/08:00:27:12:34:56", 61, []byte{1, 0x08, 0x00, 0x27, 0x12, 0x34, 0x56}},
		{"unknown key", "Unknown_222", "0x0A 0x0B", 222, []byte{0x0A, 0x0B}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := BuildOption(tt.key, tt.raw)
			if err != nil {
				t.Fatalf("BuildOption error: %v", err)
			}
			if opt.Code != tt.code {
				t.Errorf("Code = %d, want %d", opt.Code, tt.code)
			}
			if !bytes.Equal(opt.Data, tt.data) {
				t.Errorf("Data = % 02X, want % 02X", opt.Data, tt.data)
			}
		})
	}
}

func TestBuildOptionErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  string
	}{
		{"unknown key", "no_such_key", "x"},
		{"bad bool", "ip_forwarding", "yes please"},
		{"bad integer", "lease_time", "soon"},
		{"bad ip", "subnet_mask", "not.an.ip"},
		{"bare pair", "policy_filters", "10.0.0.0"},
		{"bad list entry", "parameter_request_list", "1,three"},
		{"bad enum symbol", "dhcp_message_type", "DHCPBOGUS"},
		{"client id missing slash", "client_identifier", "08:00:27:12:34:56"},
		{"client id bad hwtype", "client_identifier", "one/08:00:27:12:34:56"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildOption(tt.key, tt.raw); err == nil {
				t.Error("BuildOption should have failed")
			}
		})
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("250ms"); got.Milliseconds() != 250 {
		t.Errorf("Duration = %v", got)
	}
}

func TestRelayIP(t *testing.T) {
	cfg := &Config{}
	if cfg.RelayIP() != nil {
		t.Error("empty relay should be nil")
	}
	cfg.Client.Relay = "10.1.2.3"
	if ip := cfg.RelayIP(); ip == nil || ip.String() != "10.1.2.3" {
		t.Errorf("RelayIP = %v", ip)
	}
}
