package dhcp

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

func TestSubnetMaskFromValue(t *testing.T) {
	opt, err := FromValue(map[string]any{"subnet_mask": "255.255.255.0"})
	if err != nil {
		t.Fatalf("FromValue error: %v", err)
	}
	want := []byte{0x01, 0x04, 0xFF, 0xFF, 0xFF, 0x00}
	if got := opt.Encode(); !bytes.Equal(got, want) {
		t.Errorf("Encode = % 02X, want % 02X", got, want)
	}
}

func TestValueRoundTrips(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		out  map[string]any // expected decoded value; nil means same as in
	}{
		{name: "bool true", in: map[string]any{"ip_forwarding": true}},
		{name: "bool false", in: map[string]any{"mask_supplier": false}},
		{name: "uint8 zero", in: map[string]any{"default_ip_ttl": int64(0)}},
		{name: "uint8 max", in: map[string]any{"default_ip_ttl": int64(255)}},
		{name: "uint16 zero", in: map[string]any{"max_dhcp_message_size": int64(0)}},
		{name: "uint16 max", in: map[string]any{"max_dhcp_message_size": int64(65535)}},
		{name: "uint32 zero", in: map[string]any{"lease_time": int64(0)}},
		{name: "uint32 max", in: map[string]any{"lease_time": int64(4294967295)}},
		{name: "int32 min", in: map[string]any{"time_offset_s": int64(-2147483648)}},
		{name: "int32 max", in: map[string]any{"time_offset_s": int64(2147483647)}},
		{name: "string", in: map[string]any{"hostname": "venus.example.org"}},
		{name: "single ip", in: map[string]any{"broadcast_address": "10.0.0.255"}},
		{
			name: "single-address ip array",
			in:   map[string]any{"routers": []string{"10.0.0.1"}},
		},
		{
			name: "eight-address ip array",
			in: map[string]any{"dns_servers": []string{
				"1.1.1.1", "1.0.0.1", "8.8.8.8", "8.8.4.4",
				"9.9.9.9", "149.112.112.112", "208.67.222.222", "208.67.220.220",
			}},
		},
		{
			name: "policy filter pairs",
			in: map[string]any{"policy_filters": []map[string]string{
				{"address": "10.0.0.0", "mask": "255.0.0.0"},
				{"address": "192.168.0.0", "mask": "255.255.0.0"},
			}},
		},
		{
			name: "static route pairs",
			in: map[string]any{"static_routes": []map[string]string{
				{"destination": "172.16.0.0", "router": "10.0.0.254"},
			}},
		},
		{name: "uint8 list", in: map[string]any{"parameter_request_list": []int64{1, 3, 6, 15}}},
		{name: "uint16 list", in: map[string]any{"path_mtu_aging_table": []int64{68, 576, 1500}}},
		{name: "message type enum", in: map[string]any{"dhcp_message_type": "DHCPOFFER"}},
		{name: "netbios enum", in: map[string]any{"netbios_node_type": "H-node"}},
		{name: "overload enum", in: map[string]any{"option_overload": "both fields are used to hold options"}},
		{name: "opaque vendor", in: map[string]any{"vendor_specific_information": "0xDE 0xAD 0xBE 0xEF"}},
		{name: "opaque relay", in: map[string]any{"relay_agent_info": "0x01 0x06 0x65 0x74 0x68 0x30"}},
		{
			name: "client identifier",
			in:   map[string]any{"client_identifier": map[string]any{"hwtype": int64(1), "hwaddr": "08:00:27:12:34:56"}},
		},
		{name: "unknown code", in: map[string]any{"Unknown_222": "0x0A 0x0B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := FromValue(tt.in)
			if err != nil {
				t.Fatalf("FromValue error: %v", err)
			}

			decoded, err := DecodeOption(opt.Code, opt.Data)
			if err != nil {
				t.Fatalf("DecodeOption error: %v", err)
			}
			want := tt.out
			if want == nil {
				want = tt.in
			}
			if got := decoded.Value(); !reflect.DeepEqual(got, want) {
				t.Errorf("Value = %#v, want %#v", got, want)
			}

			// Wire round trip: code, length, payload.
			wire := opt.Encode()
			if wire[0] != byte(opt.Code) || int(wire[1]) != len(opt.Data) {
				t.Errorf("Encode header = %v", wire[:2])
			}
			if !bytes.Equal(wire[2:], opt.Data) {
				t.Errorf("Encode payload = % 02X, want % 02X", wire[2:], opt.Data)
			}
		})
	}
}

func TestDecodeOptionLengthErrors(t *testing.T) {
	tests := []struct {
		name    string
		code    dhcpv4.OptionCode
		payload []byte
	}{
		{"short subnet mask", dhcpv4.OptionSubnetMask, []byte{255, 255}},
		{"long bool", dhcpv4.OptionIPForwarding, []byte{1, 1}},
		{"short uint16", dhcpv4.OptionMaxDHCPMessageSize, []byte{5}},
		{"ragged ip list", dhcpv4.OptionRouter, []byte{10, 0, 0, 1, 10}},
		{"empty ip list", dhcpv4.OptionRouter, nil},
		{"ragged pair list", dhcpv4.OptionStaticRoute, []byte{10, 0, 0, 0, 10, 0, 0}},
		{"short client id", dhcpv4.OptionClientIdentifier, []byte{1}},
		{"odd uint16 list", dhcpv4.OptionPathMTUPlateauTable, []byte{0, 68, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOption(tt.code, tt.payload)
			if !errors.Is(err, ErrInvalidValue) {
				t.Errorf("DecodeOption error = %v, want ErrInvalidValue", err)
			}
		})
	}
}

func TestDecodeOptionEnumErrors(t *testing.T) {
	if _, err := DecodeOption(dhcpv4.OptionDHCPMessageType, []byte{9}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("message type 9 error = %v, want ErrInvalidValue", err)
	}
	if _, err := DecodeOption(dhcpv4.OptionNetBIOSNodeType, []byte{3}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("netbios node 3 error = %v, want ErrInvalidValue", err)
	}
	if _, err := DecodeOption(dhcpv4.OptionOverload, []byte{0}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("overload 0 error = %v, want ErrInvalidValue", err)
	}
}

func TestUnknownCodeFallback(t *testing.T) {
	opt, err := DecodeOption(222, []byte{0xCA, 0xFE})
	if err != nil {
		t.Fatalf("DecodeOption error: %v", err)
	}
	if got := opt.Key(); got != "Unknown_222" {
		t.Errorf("Key = %q, want %q", got, "Unknown_222")
	}
	want := map[string]any{"Unknown_222": "0xCA 0xFE"}
	if got := opt.Value(); !reflect.DeepEqual(got, want) {
		t.Errorf("Value = %#v, want %#v", got, want)
	}
}

func TestUnknownCodeWithDataFileName(t *testing.T) {
	// Code 118 has no registry entry but is listed in the data file.
	opt, err := DecodeOption(118, []byte{10, 0, 0, 0})
	if err != nil {
		t.Fatalf("DecodeOption error: %v", err)
	}
	if got := opt.Key(); got != "SubnetSelectionOption_118" {
		t.Errorf("Key = %q, want %q", got, "SubnetSelectionOption_118")
	}
}

func TestFromValueErrors(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
	}{
		{"empty map", map[string]any{}},
		{"two entries", map[string]any{"hostname": "a", "domain_name": "b"}},
		{"unknown key without code suffix", map[string]any{"bogus_key": "x"}},
		{"uint8 overflow", map[string]any{"default_ip_ttl": int64(256)}},
		{"uint32 overflow", map[string]any{"lease_time": int64(4294967296)}},
		{"int32 underflow", map[string]any{"time_offset_s": int64(-2147483649)}},
		{"bad ip", map[string]any{"subnet_mask": "not.an.ip"}},
		{"v6 ip", map[string]any{"subnet_mask": "2001:db8::1"}},
		{"bad enum symbol", map[string]any{"dhcp_message_type": "DHCPBOGUS"}},
		{"enum value outside table", map[string]any{"netbios_node_type": int64(3)}},
		{"bad hex pairs", map[string]any{"vendor_specific_information": "AA BB"}},
		{"bool from string", map[string]any{"ip_forwarding": "true"}},
		{"pair missing label", map[string]any{"policy_filters": []map[string]string{{"address": "10.0.0.0"}}}},
		{"client id bad hwaddr", map[string]any{"client_identifier": map[string]any{"hwtype": int64(1), "hwaddr": "zz:00"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromValue(tt.in); !errors.Is(err, ErrInvalidValue) {
				t.Errorf("FromValue error = %v, want ErrInvalidValue", err)
			}
		})
	}
}

func TestValueMemoized(t *testing.T) {
	opt, err := DecodeOption(dhcpv4.OptionHostname, []byte("host-a"))
	if err != nil {
		t.Fatalf("DecodeOption error: %v", err)
	}
	first := opt.Value()
	second := opt.Value()
	if reflect.ValueOf(first).Pointer() != reflect.ValueOf(second).Pointer() {
		t.Error("Value computed twice, expected the cached map")
	}
}

func TestPadEndEncoding(t *testing.T) {
	pad := Option{Code: dhcpv4.OptionPad}
	if got := pad.Encode(); !bytes.Equal(got, []byte{0x00}) {
		t.Errorf("pad Encode = %v", got)
	}
	end := Option{Code: dhcpv4.OptionEnd}
	if got := end.Encode(); !bytes.Equal(got, []byte{0xFF}) {
		t.Errorf("end Encode = %v", got)
	}
	if _, err := DecodeOption(dhcpv4.OptionPad, []byte{1}); !errors.Is(err, ErrInvalidValue) {
		t.Error("pad with payload should be rejected")
	}
}
