// Package dhcp implements the DHCPv4 wire codec: typed options, the ordered
// option list, packet framing, and the DORA packet builders.
package dhcp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"

	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

// Option is one DHCP option: a code and its raw payload. The semantic value
// map is derived from the payload on first use and cached; Options are treated
// as immutable once constructed.
type Option struct {
	Code dhcpv4.OptionCode
	Data []byte

	value map[string]any
}

// DecodeOption builds an Option from a code and its wire payload, validating
// the payload against the code's type family.
func DecodeOption(code dhcpv4.OptionCode, payload []byte) (Option, error) {
	if err := ValidateOption(code, payload); err != nil {
		return Option{}, err
	}
	data := make([]byte, len(payload))
	copy(data, payload)
	return Option{Code: code, Data: data}, nil
}

// FromValue builds an Option from a single-entry semantic value map, resolving
// the code through the reverse registry. Keys for unregistered codes must
// follow the "name_<code>" pattern.
func FromValue(values map[string]any) (Option, error) {
	if len(values) != 1 {
		return Option{}, fmt.Errorf("%w: value map must have exactly one entry, got %d", ErrInvalidValue, len(values))
	}
	var key string
	var v any
	for k, val := range values {
		key, v = k, val
	}
	code, err := CodeForKey(key)
	if err != nil {
		return Option{}, err
	}
	def := GetOptionDef(code)
	data, err := encodeValue(def, v)
	if err != nil {
		return Option{}, err
	}
	return Option{Code: code, Data: data}, nil
}

// Encode serializes the option as code, length, payload. Pad and End are a
// single byte with no length field.
func (o Option) Encode() []byte {
	if o.Code == dhcpv4.OptionPad || o.Code == dhcpv4.OptionEnd {
		return []byte{byte(o.Code)}
	}
	buf := make([]byte, 0, 2+len(o.Data))
	buf = append(buf, byte(o.Code), byte(len(o.Data)))
	return append(buf, o.Data...)
}

// Key returns the option's semantic key.
func (o Option) Key() string {
	return GetOptionDef(o.Code).Key
}

// Value returns the option's single-entry semantic value map. The map is
// computed from the payload once and cached.
func (o *Option) Value() map[string]any {
	if o.value == nil {
		def := GetOptionDef(o.Code)
		o.value = map[string]any{def.Key: decodeValue(def, o.Data)}
	}
	return o.value
}

// Equal reports wire-byte equality.
func (o Option) Equal(other Option) bool {
	return o.Code == other.Code && bytes.Equal(o.Data, other.Data)
}

func (o Option) String() string {
	return fmt.Sprintf("Option(%d, %s)", o.Code, o.Key())
}

func messageTypeOption(m dhcpv4.MessageType) Option {
	return Option{Code: dhcpv4.OptionDHCPMessageType, Data: []byte{byte(m)}}
}

// decodeValue renders a validated payload as its semantic value. Payloads
// that slipped past validation fall back to the hex rendering.
func decodeValue(def OptionDef, data []byte) any {
	switch def.Type {
	case TypeFlag:
		return ""
	case TypeBool:
		if len(data) == 1 {
			return data[0] != 0
		}
	case TypeUint8:
		if len(data) == 1 {
			return int64(data[0])
		}
	case TypeUint16:
		if len(data) == 2 {
			return int64(binary.BigEndian.Uint16(data))
		}
	case TypeUint32:
		if len(data) == 4 {
			return int64(binary.BigEndian.Uint32(data))
		}
	case TypeInt32:
		if len(data) == 4 {
			return int64(int32(binary.BigEndian.Uint32(data)))
		}
	case TypeString:
		return string(data)
	case TypeIP:
		if len(data) == 4 {
			return net.IP(data).String()
		}
	case TypeIPList:
		if len(data) > 0 && len(data)%4 == 0 {
			ips := make([]string, 0, len(data)/4)
			for i := 0; i < len(data); i += 4 {
				ips = append(ips, net.IP(data[i:i+4]).String())
			}
			return ips
		}
	case TypeIPPairs:
		if len(data) > 0 && len(data)%8 == 0 {
			pairs := make([]map[string]string, 0, len(data)/8)
			for i := 0; i < len(data); i += 8 {
				pairs = append(pairs, map[string]string{
					def.PairKeys[0]: net.IP(data[i : i+4]).String(),
					def.PairKeys[1]: net.IP(data[i+4 : i+8]).String(),
				})
			}
			return pairs
		}
	case TypeUint8List:
		vals := make([]int64, len(data))
		for i, b := range data {
			vals[i] = int64(b)
		}
		return vals
	case TypeUint16List:
		if len(data)%2 == 0 {
			vals := make([]int64, 0, len(data)/2)
			for i := 0; i < len(data); i += 2 {
				vals = append(vals, int64(binary.BigEndian.Uint16(data[i:i+2])))
			}
			return vals
		}
	case TypeEnum:
		if len(data) == 1 {
			if sym, ok := def.Symbols[data[0]]; ok {
				return sym
			}
		}
	case TypeClientID:
		if len(data) >= 2 {
			return map[string]any{
				"hwtype": int64(data[0]),
				"hwaddr": dhcpv4.FormatMAC(data[1:]),
			}
		}
	}
	return hexPairs(data)
}

// encodeValue converts a semantic value to wire payload bytes for its family.
func encodeValue(def OptionDef, v any) ([]byte, error) {
	switch def.Type {
	case TypeFlag:
		return nil, nil
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, valueErr(def, v, "bool")
		}
		if b {
			return []byte{0x01}, nil
		}
		return []byte{0x00}, nil
	case TypeUint8:
		n, ok := coerceInt(v)
		if !ok || n < 0 || n > math.MaxUint8 {
			return nil, valueErr(def, v, "uint8")
		}
		return []byte{byte(n)}, nil
	case TypeUint16:
		n, ok := coerceInt(v)
		if !ok || n < 0 || n > math.MaxUint16 {
			return nil, valueErr(def, v, "uint16")
		}
		return dhcpv4.Uint16ToBytes(uint16(n)), nil
	case TypeUint32:
		n, ok := coerceInt(v)
		if !ok || n < 0 || n > math.MaxUint32 {
			return nil, valueErr(def, v, "uint32")
		}
		return dhcpv4.Uint32ToBytes(uint32(n)), nil
	case TypeInt32:
		n, ok := coerceInt(v)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, valueErr(def, v, "int32")
		}
		return dhcpv4.Int32ToBytes(int32(n)), nil
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, valueErr(def, v, "string")
		}
		return []byte(s), nil
	case TypeIP:
		s, ok := v.(string)
		if !ok {
			return nil, valueErr(def, v, "IPv4 string")
		}
		ip := net.ParseIP(s)
		if ip == nil || ip.To4() == nil {
			return nil, valueErr(def, v, "IPv4 string")
		}
		return dhcpv4.IPToBytes(ip), nil
	case TypeIPList:
		strs, ok := coerceStrings(v)
		if !ok || len(strs) == 0 {
			return nil, valueErr(def, v, "IPv4 string list")
		}
		buf := make([]byte, 0, len(strs)*4)
		for _, s := range strs {
			ip := net.ParseIP(s)
			if ip == nil || ip.To4() == nil {
				return nil, valueErr(def, s, "IPv4 string")
			}
			buf = append(buf, dhcpv4.IPToBytes(ip)...)
		}
		return buf, nil
	case TypeIPPairs:
		return encodeIPPairs(def, v)
	case TypeUint8List:
		ns, ok := coerceInts(v)
		if !ok {
			return nil, valueErr(def, v, "uint8 list")
		}
		buf := make([]byte, 0, len(ns))
		for _, n := range ns {
			if n < 0 || n > math.MaxUint8 {
				return nil, valueErr(def, n, "uint8")
			}
			buf = append(buf, byte(n))
		}
		return buf, nil
	case TypeUint16List:
		ns, ok := coerceInts(v)
		if !ok || len(ns) == 0 {
			return nil, valueErr(def, v, "uint16 list")
		}
		buf := make([]byte, 0, len(ns)*2)
		for _, n := range ns {
			if n < 0 || n > math.MaxUint16 {
				return nil, valueErr(def, n, "uint16")
			}
			buf = append(buf, dhcpv4.Uint16ToBytes(uint16(n))...)
		}
		return buf, nil
	case TypeEnum:
		if s, ok := v.(string); ok {
			for b, sym := range def.Symbols {
				if sym == s {
					return []byte{b}, nil
				}
			}
			return nil, fmt.Errorf("%w: option %d (%s): %q not in symbol table", ErrInvalidValue, def.Code, def.Key, s)
		}
		n, ok := coerceInt(v)
		if !ok || n < 0 || n > math.MaxUint8 {
			return nil, valueErr(def, v, "symbol or byte")
		}
		if _, ok := def.Symbols[byte(n)]; !ok {
			return nil, fmt.Errorf("%w: option %d (%s): value %d outside symbol table", ErrInvalidValue, def.Code, def.Key, n)
		}
		return []byte{byte(n)}, nil
	case TypeBytes:
		s, ok := v.(string)
		if !ok {
			return nil, valueErr(def, v, "hex byte-pair string")
		}
		return parseHexPairs(def, s)
	case TypeClientID:
		return encodeClientID(def, v)
	}
	return nil, valueErr(def, v, "supported family")
}

func encodeIPPairs(def OptionDef, v any) ([]byte, error) {
	var pairs []map[string]string
	switch t := v.(type) {
	case []map[string]string:
		pairs = t
	case []any:
		for _, e := range t {
			switch m := e.(type) {
			case map[string]string:
				pairs = append(pairs, m)
			case map[string]any:
				p := make(map[string]string, len(m))
				for k, pv := range m {
					s, ok := pv.(string)
					if !ok {
						return nil, valueErr(def, pv, "IPv4 string")
					}
					p[k] = s
				}
				pairs = append(pairs, p)
			default:
				return nil, valueErr(def, e, "address pair map")
			}
		}
	default:
		return nil, valueErr(def, v, "address pair list")
	}
	if len(pairs) == 0 {
		return nil, valueErr(def, v, "non-empty address pair list")
	}
	buf := make([]byte, 0, len(pairs)*8)
	for _, p := range pairs {
		for _, label := range def.PairKeys {
			s, ok := p[label]
			if !ok {
				return nil, fmt.Errorf("%w: option %d (%s): pair missing %q", ErrInvalidValue, def.Code, def.Key, label)
			}
			ip := net.ParseIP(s)
			if ip == nil || ip.To4() == nil {
				return nil, valueErr(def, s, "IPv4 string")
			}
			buf = append(buf, dhcpv4.IPToBytes(ip)...)
		}
	}
	return buf, nil
}

func encodeClientID(def OptionDef, v any) ([]byte, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, valueErr(def, v, "hwtype/hwaddr map")
	}
	hwtype, ok := coerceInt(m["hwtype"])
	if !ok || hwtype < 0 || hwtype > math.MaxUint8 {
		return nil, valueErr(def, m["hwtype"], "hardware type byte")
	}
	hwaddr, ok := m["hwaddr"].(string)
	if !ok {
		return nil, valueErr(def, m["hwaddr"], "colon-hex hardware address")
	}
	buf := []byte{byte(hwtype)}
	for _, part := range strings.Split(hwaddr, ":") {
		if len(part) != 2 {
			return nil, valueErr(def, hwaddr, "colon-hex hardware address")
		}
		b, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return nil, valueErr(def, hwaddr, "colon-hex hardware address")
		}
		buf = append(buf, byte(b))
	}
	if len(buf) < 2 {
		return nil, valueErr(def, hwaddr, "colon-hex hardware address")
	}
	return buf, nil
}

// hexPairs renders raw bytes as "0xAA 0xBB ..." for opaque values.
func hexPairs(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("0x%02X", b)
	}
	return strings.Join(parts, " ")
}

func parseHexPairs(def OptionDef, s string) ([]byte, error) {
	fields := strings.Fields(s)
	buf := make([]byte, 0, len(fields))
	for _, f := range fields {
		if len(f) != 4 || (f[:2] != "0x" && f[:2] != "0X") {
			return nil, valueErr(def, s, `hex byte pairs ("0xAA 0xBB")`)
		}
		b, err := strconv.ParseUint(f[2:], 16, 8)
		if err != nil {
			return nil, valueErr(def, s, `hex byte pairs ("0xAA 0xBB")`)
		}
		buf = append(buf, byte(b))
	}
	return buf, nil
}

func valueErr(def OptionDef, v any, want string) error {
	return fmt.Errorf("%w: option %d (%s): %v is not a valid %s", ErrInvalidValue, def.Code, def.Key, v, want)
}

func coerceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func coerceInts(v any) ([]int64, bool) {
	switch t := v.(type) {
	case []int64:
		return t, true
	case []int:
		out := make([]int64, len(t))
		for i, n := range t {
			out[i] = int64(n)
		}
		return out, true
	case []byte:
		out := make([]int64, len(t))
		for i, n := range t {
			out[i] = int64(n)
		}
		return out, true
	case []any:
		out := make([]int64, 0, len(t))
		for _, e := range t {
			n, ok := coerceInt(e)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	default:
		return nil, false
	}
}

func coerceStrings(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case string:
		return []string{t}, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
