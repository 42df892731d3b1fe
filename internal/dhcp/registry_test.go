package dhcp

import (
	"errors"
	"testing"

	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

func TestRegistryBijection(t *testing.T) {
	if len(keyToCode) != len(optionRegistry) {
		t.Fatalf("reverse registry has %d keys for %d codes", len(keyToCode), len(optionRegistry))
	}
	for code, def := range optionRegistry {
		back, err := CodeForKey(def.Key)
		if err != nil {
			t.Errorf("CodeForKey(%q) error: %v", def.Key, err)
			continue
		}
		if back != code {
			t.Errorf("CodeForKey(%q) = %d, want %d", def.Key, back, code)
		}
	}
}

func TestRegistryEnumsHaveSymbols(t *testing.T) {
	for code, def := range optionRegistry {
		if def.Type == TypeEnum && len(def.Symbols) == 0 {
			t.Errorf("enum option %d has no symbol table", code)
		}
		if def.Type == TypeIPPairs && (def.PairKeys[0] == "" || def.PairKeys[1] == "") {
			t.Errorf("pair option %d has no pair labels", code)
		}
	}
}

func TestOpaqueOverrides(t *testing.T) {
	// Vendor-specific (43) and relay-agent (82) payloads stay uninterpreted.
	for _, code := range []dhcpv4.OptionCode{dhcpv4.OptionVendorSpecific, dhcpv4.OptionRelayAgentInfo} {
		if def := GetOptionDef(code); def.Type != TypeBytes {
			t.Errorf("option %d type = %v, want TypeBytes", code, def.Type)
		}
	}
}

func TestCodeForKeyUnknownPatterns(t *testing.T) {
	tests := []struct {
		key  string
		code dhcpv4.OptionCode
		ok   bool
	}{
		{"Unknown_222", 222, true},
		{"SubnetSelectionOption_118", 118, true},
		{"whatever_0", 0, true},
		{"name_256", 0, false},
		{"_17", 0, false},
		{"nodigits_", 0, false},
		{"plainkey", 0, false},
	}
	for _, tt := range tests {
		code, err := CodeForKey(tt.key)
		if tt.ok {
			if err != nil || code != tt.code {
				t.Errorf("CodeForKey(%q) = %d, %v; want %d", tt.key, code, err, tt.code)
			}
		} else if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("CodeForKey(%q) error = %v, want ErrInvalidValue", tt.key, err)
		}
	}
}

func TestUnknownKeySynthesis(t *testing.T) {
	if got := UnknownKey(222); got != "Unknown_222" {
		t.Errorf("UnknownKey(222) = %q", got)
	}
	// Code 150 is unregistered here but named in the data file.
	if got := UnknownKey(150); got != "TFTPserveraddress_150" {
		t.Errorf("UnknownKey(150) = %q", got)
	}
}
