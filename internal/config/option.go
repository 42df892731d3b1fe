package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dhcpdig/dhcpdig/internal/dhcp"
)

// BuildOption parses one textual option override into a wire option. The
// string syntax follows the option's type family:
//
//	bool            true / false
//	integers        decimal
//	string          raw text
//	IPv4            dotted quad
//	IPv4 list       comma-separated dotted quads
//	IPv4 pairs      comma-separated "first/second" pairs
//	byte lists      comma-separated decimals
//	enumerated      symbol name or decimal
//	opaque          hex byte pairs ("0xAA 0xBB")
//	client id       "hwtype/AA:BB:CC:DD:EE:FF"
func BuildOption(key, raw string) (dhcp.Option, error) {
	code, err := dhcp.CodeForKey(key)
	if err != nil {
		return dhcp.Option{}, err
	}
	def := dhcp.GetOptionDef(code)
	value, err := parseValue(def, raw)
	if err != nil {
		return dhcp.Option{}, err
	}
	return dhcp.FromValue(map[string]any{key: value})
}

func parseValue(def dhcp.OptionDef, raw string) (any, error) {
	switch def.Type {
	case dhcp.TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("expected true/false, got %q", raw)
		}
		return b, nil
	case dhcp.TypeUint8, dhcp.TypeUint16, dhcp.TypeUint32, dhcp.TypeInt32:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", raw)
		}
		return n, nil
	case dhcp.TypeString, dhcp.TypeIP, dhcp.TypeBytes:
		return raw, nil
	case dhcp.TypeIPList:
		return splitList(raw), nil
	case dhcp.TypeIPPairs:
		var pairs []map[string]string
		for _, entry := range splitList(raw) {
			first, second, ok := strings.Cut(entry, "/")
			if !ok {
				return nil, fmt.Errorf("expected %s/%s pairs, got %q", def.PairKeys[0], def.PairKeys[1], entry)
			}
			pairs = append(pairs, map[string]string{
				def.PairKeys[0]: strings.TrimSpace(first),
				def.PairKeys[1]: strings.TrimSpace(second),
			})
		}
		return pairs, nil
	case dhcp.TypeUint8List, dhcp.TypeUint16List:
		var ns []int64
		for _, entry := range splitList(raw) {
			n, err := strconv.ParseInt(entry, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("expected integers, got %q", entry)
			}
			ns = append(ns, n)
		}
		return ns, nil
	case dhcp.TypeEnum:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
		return raw, nil
	case dhcp.TypeClientID:
		hwtype, hwaddr, ok := strings.Cut(raw, "/")
		if !ok {
			return nil, fmt.Errorf(`expected "hwtype/AA:BB:CC:DD:EE:FF", got %q`, raw)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(hwtype), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected a numeric hardware type, got %q", hwtype)
		}
		return map[string]any{"hwtype": n, "hwaddr": strings.TrimSpace(hwaddr)}, nil
	case dhcp.TypeFlag:
		return "", nil
	}
	return nil, fmt.Errorf("option %d has no textual form", def.Code)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
