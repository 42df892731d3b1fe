package dhcp

import (
	"fmt"

	"github.com/dhcpdig/dhcpdig/internal/optiondata"
	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

// OptionType defines the value encoding family of a DHCP option.
type OptionType int

const (
	TypeBool       OptionType = iota // 1 byte, 0x00 or 0x01
	TypeUint8                        // Single byte
	TypeUint16                       // 2 bytes big-endian
	TypeUint32                       // 4 bytes big-endian
	TypeInt32                        // 4 bytes big-endian signed
	TypeString                       // Variable-length text
	TypeIP                           // Single IPv4 address (4 bytes)
	TypeIPList                       // Multiple IPv4 addresses (N*4 bytes)
	TypeIPPairs                      // IPv4 address pairs (N*8 bytes)
	TypeUint8List                    // One byte per entry
	TypeUint16List                   // 2 bytes big-endian per entry
	TypeEnum                         // Single byte mapped through a symbol table
	TypeBytes                        // Opaque, rendered as hex byte pairs
	TypeClientID                     // Hardware type byte + hardware address
	TypeFlag                         // Pad/End: one wire byte, no length, no payload
)

// OptionDef defines a DHCP option's semantic key and value encoding.
type OptionDef struct {
	Code     dhcpv4.OptionCode
	Key      string
	Type     OptionType
	Symbols  map[byte]string // TypeEnum only
	PairKeys [2]string       // TypeIPPairs only: labels for each pair
}

// Symbol tables for the enumerated-byte options.
var (
	messageTypeSymbols = map[byte]string{
		1: "DHCPDISCOVER",
		2: "DHCPOFFER",
		3: "DHCPREQUEST",
		4: "DHCPDECLINE",
		5: "DHCPACK",
		6: "DHCPNAK",
		7: "DHCPRELEASE",
		8: "DHCPINFORM",
	}
	overloadSymbols = map[byte]string{
		1: "'file' field is used to hold options",
		2: "'sname' field is used to hold options",
		3: "both fields are used to hold options",
	}
	netbiosNodeSymbols = map[byte]string{
		1: "B-node",
		2: "P-node",
		4: "M-node",
		8: "H-node",
	}
)

// optionRegistry maps option codes to their definitions. Codes 43 and 82 are
// deliberately opaque: their payloads carry vendor/relay sub-option streams
// that are not interpreted here.
var optionRegistry = map[dhcpv4.OptionCode]OptionDef{
	dhcpv4.OptionPad:                    {Code: 0, Key: "pad_option", Type: TypeFlag},
	dhcpv4.OptionSubnetMask:             {Code: 1, Key: "subnet_mask", Type: TypeIP},
	dhcpv4.OptionTimeOffset:             {Code: 2, Key: "time_offset_s", Type: TypeInt32},
	dhcpv4.OptionRouter:                 {Code: 3, Key: "routers", Type: TypeIPList},
	dhcpv4.OptionTimeServer:             {Code: 4, Key: "time_servers", Type: TypeIPList},
	dhcpv4.OptionNameServer:             {Code: 5, Key: "name_servers", Type: TypeIPList},
	dhcpv4.OptionDomainNameServer:       {Code: 6, Key: "dns_servers", Type: TypeIPList},
	dhcpv4.OptionLogServer:              {Code: 7, Key: "log_servers", Type: TypeIPList},
	dhcpv4.OptionCookieServer:           {Code: 8, Key: "cookie_servers", Type: TypeIPList},
	dhcpv4.OptionLPRServer:              {Code: 9, Key: "lpr_servers", Type: TypeIPList},
	dhcpv4.OptionImpressServer:          {Code: 10, Key: "impress_servers", Type: TypeIPList},
	dhcpv4.OptionResourceLocationServer: {Code: 11, Key: "resource_location_servers", Type: TypeIPList},
	dhcpv4.OptionHostname:               {Code: 12, Key: "hostname", Type: TypeString},
	dhcpv4.OptionBootFileSize:           {Code: 13, Key: "bootfile_size", Type: TypeUint16},
	dhcpv4.OptionMeritDumpFile:          {Code: 14, Key: "merit_dump_file", Type: TypeString},
	dhcpv4.OptionDomainName:             {Code: 15, Key: "domain_name", Type: TypeString},
	dhcpv4.OptionSwapServer:             {Code: 16, Key: "swap_server", Type: TypeIP},
	dhcpv4.OptionRootPath:               {Code: 17, Key: "root_path", Type: TypeString},
	dhcpv4.OptionExtensionsPath:         {Code: 18, Key: "extensions_path", Type: TypeString},
	dhcpv4.OptionIPForwarding:           {Code: 19, Key: "ip_forwarding", Type: TypeBool},
	dhcpv4.OptionNonLocalSourceRouting:  {Code: 20, Key: "non_local_source_routing", Type: TypeBool},
	dhcpv4.OptionPolicyFilter:           {Code: 21, Key: "policy_filters", Type: TypeIPPairs, PairKeys: [2]string{"address", "mask"}},
	dhcpv4.OptionMaxDatagramReassembly:  {Code: 22, Key: "max_datagram_reassembly_size", Type: TypeUint16},
	dhcpv4.OptionDefaultIPTTL:           {Code: 23, Key: "default_ip_ttl", Type: TypeUint8},
	dhcpv4.OptionPathMTUAgingTimeout:    {Code: 24, Key: "path_MTU_aging_timeout", Type: TypeUint32},
	dhcpv4.OptionPathMTUPlateauTable:    {Code: 25, Key: "path_mtu_aging_table", Type: TypeUint16List},
	dhcpv4.OptionInterfaceMTU:           {Code: 26, Key: "interface_mtu", Type: TypeUint16},
	dhcpv4.OptionAllSubnetsLocal:        {Code: 27, Key: "all_subnets_local", Type: TypeBool},
	dhcpv4.OptionBroadcastAddress:       {Code: 28, Key: "broadcast_address", Type: TypeIP},
	dhcpv4.OptionPerformMaskDiscovery:   {Code: 29, Key: "perform_mask_discovery", Type: TypeBool},
	dhcpv4.OptionMaskSupplier:           {Code: 30, Key: "mask_supplier", Type: TypeBool},
	dhcpv4.OptionPerformRouterDiscovery: {Code: 31, Key: "perform_router_discovery", Type: TypeBool},
	dhcpv4.OptionRouterSolicitAddr:      {Code: 32, Key: "router_solicitation_address", Type: TypeIP},
	dhcpv4.OptionStaticRoute:            {Code: 33, Key: "static_routes", Type: TypeIPPairs, PairKeys: [2]string{"destination", "router"}},
	dhcpv4.OptionTrailerEncapsulation:   {Code: 34, Key: "trailer_encapsulation", Type: TypeBool},
	dhcpv4.OptionARPCacheTimeout:        {Code: 35, Key: "arp_cache_timeout", Type: TypeUint32},
	dhcpv4.OptionEthernetEncapsulation:  {Code: 36, Key: "ethernet_encapsulation", Type: TypeBool},
	dhcpv4.OptionTCPDefaultTTL:          {Code: 37, Key: "tcp_default_ttl", Type: TypeUint8},
	dhcpv4.OptionTCPKeepaliveInterval:   {Code: 38, Key: "tcp_keepalive_interval", Type: TypeUint32},
	dhcpv4.OptionTCPKeepaliveGarbage:    {Code: 39, Key: "tcp_keepalive_garbage", Type: TypeBool},
	dhcpv4.OptionNISDomain:              {Code: 40, Key: "network_information_service_domain", Type: TypeString},
	dhcpv4.OptionNISServers:             {Code: 41, Key: "network_information_servers", Type: TypeIPList},
	dhcpv4.OptionNTPServers:             {Code: 42, Key: "ntp_servers", Type: TypeIPList},
	dhcpv4.OptionVendorSpecific:         {Code: 43, Key: "vendor_specific_information", Type: TypeBytes},
	dhcpv4.OptionNetBIOSNameServer:      {Code: 44, Key: "netbios_name_servers", Type: TypeIPList},
	dhcpv4.OptionNetBIOSDatagramDist:    {Code: 45, Key: "netbios_datagram_distribution_server", Type: TypeIPList},
	dhcpv4.OptionNetBIOSNodeType:        {Code: 46, Key: "netbios_node_type", Type: TypeEnum, Symbols: netbiosNodeSymbols},
	dhcpv4.OptionNetBIOSScope:           {Code: 47, Key: "netbios_scope", Type: TypeString},
	dhcpv4.OptionXWindowFontServer:      {Code: 48, Key: "netbios_x_window_system_font_servers", Type: TypeIPList},
	dhcpv4.OptionXWindowDisplayManager:  {Code: 49, Key: "x_window_system_display_manager", Type: TypeIPList},
	dhcpv4.OptionRequestedIP:            {Code: 50, Key: "requested_ip_address", Type: TypeIP},
	dhcpv4.OptionIPLeaseTime:            {Code: 51, Key: "lease_time", Type: TypeUint32},
	dhcpv4.OptionOverload:               {Code: 52, Key: "option_overload", Type: TypeEnum, Symbols: overloadSymbols},
	dhcpv4.OptionDHCPMessageType:        {Code: 53, Key: "dhcp_message_type", Type: TypeEnum, Symbols: messageTypeSymbols},
	dhcpv4.OptionServerIdentifier:       {Code: 54, Key: "dhcp_server", Type: TypeIP},
	dhcpv4.OptionParameterRequestList:   {Code: 55, Key: "parameter_request_list", Type: TypeUint8List},
	dhcpv4.OptionMessage:                {Code: 56, Key: "message", Type: TypeString},
	dhcpv4.OptionMaxDHCPMessageSize:     {Code: 57, Key: "max_dhcp_message_size", Type: TypeUint16},
	dhcpv4.OptionRenewalTime:            {Code: 58, Key: "renewal_time", Type: TypeUint32},
	dhcpv4.OptionRebindingTime:          {Code: 59, Key: "rebinding_time", Type: TypeUint32},
	dhcpv4.OptionVendorClassID:          {Code: 60, Key: "vendor_class_identifier", Type: TypeString},
	dhcpv4.OptionClientIdentifier:       {Code: 61, Key: "client_identifier", Type: TypeClientID},
	dhcpv4.OptionNISPlusDomain:          {Code: 64, Key: "nis_plus_domain", Type: TypeString},
	dhcpv4.OptionNISPlusServers:         {Code: 65, Key: "nis_plus_servers", Type: TypeIPList},
	dhcpv4.OptionTFTPServerName:         {Code: 66, Key: "tftp_server_name", Type: TypeString},
	dhcpv4.OptionBootfileName:           {Code: 67, Key: "bootfile_name", Type: TypeString},
	dhcpv4.OptionMobileIPHomeAgent:      {Code: 68, Key: "mobile_ip_home_agent", Type: TypeIPList},
	dhcpv4.OptionSMTPServer:             {Code: 69, Key: "smtp_servers", Type: TypeIPList},
	dhcpv4.OptionPOP3Server:             {Code: 70, Key: "pop3_servers", Type: TypeIPList},
	dhcpv4.OptionNNTPServer:             {Code: 71, Key: "nntp_servers", Type: TypeIPList},
	dhcpv4.OptionWWWServer:              {Code: 72, Key: "world_wide_web_servers", Type: TypeIPList},
	dhcpv4.OptionFingerServer:           {Code: 73, Key: "finger_servers", Type: TypeIPList},
	dhcpv4.OptionIRCServer:              {Code: 74, Key: "irc_servers", Type: TypeIPList},
	dhcpv4.OptionStreetTalkServer:       {Code: 75, Key: "streettalk_servers", Type: TypeIPList},
	dhcpv4.OptionSTDAServer:             {Code: 76, Key: "stda_servers", Type: TypeIPList},
	dhcpv4.OptionRelayAgentInfo:         {Code: 82, Key: "relay_agent_info", Type: TypeBytes},
	dhcpv4.OptionEnd:                    {Code: 255, Key: "end_option", Type: TypeFlag},
}

// keyToCode is the reverse registry, built once at startup.
var keyToCode = make(map[string]dhcpv4.OptionCode, len(optionRegistry))

func init() {
	for code, def := range optionRegistry {
		if byte(code) != byte(def.Code) {
			panic(fmt.Sprintf("dhcp: registry entry %d declares code %d", code, def.Code))
		}
		if _, dup := keyToCode[def.Key]; dup {
			panic(fmt.Sprintf("dhcp: registry key %q bound to more than one code", def.Key))
		}
		keyToCode[def.Key] = code
	}
}

// GetOptionDef returns the definition for an option code. Unknown codes get a
// synthesized opaque definition whose key is "<Name>_<code>" from the options
// data file, or "Unknown_<code>" when the code is unlisted there.
func GetOptionDef(code dhcpv4.OptionCode) OptionDef {
	if def, ok := optionRegistry[code]; ok {
		return def
	}
	return OptionDef{Code: code, Key: UnknownKey(code), Type: TypeBytes}
}

// Registered reports whether the code has an explicit registry entry.
func Registered(code dhcpv4.OptionCode) bool {
	_, ok := optionRegistry[code]
	return ok
}

// CodeForKey resolves a semantic key to its option code via the reverse
// registry. Unregistered keys must carry a "name_<code>" suffix.
func CodeForKey(key string) (dhcpv4.OptionCode, error) {
	if code, ok := keyToCode[key]; ok {
		return code, nil
	}
	code, ok := parseUnknownKey(key)
	if !ok {
		return 0, fmt.Errorf("%w: unknown option key %q", ErrInvalidValue, key)
	}
	return code, nil
}

// UnknownKey synthesizes the fallback semantic key for an unregistered code.
func UnknownKey(code dhcpv4.OptionCode) string {
	name := optiondata.CompactName(int(code))
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%s_%d", name, code)
}

func parseUnknownKey(key string) (dhcpv4.OptionCode, bool) {
	i := len(key) - 1
	for i >= 0 && key[i] >= '0' && key[i] <= '9' {
		i--
	}
	// Need "name_" before the digits and at least one digit after.
	if i < 1 || i == len(key)-1 || key[i] != '_' {
		return 0, false
	}
	code := 0
	for _, c := range key[i+1:] {
		code = code*10 + int(c-'0')
		if code > 255 {
			return 0, false
		}
	}
	return dhcpv4.OptionCode(code), true
}

// ValidateOption checks that a payload satisfies the length and enum
// constraints of its option code's type family.
func ValidateOption(code dhcpv4.OptionCode, data []byte) error {
	def := GetOptionDef(code)
	switch def.Type {
	case TypeBool, TypeUint8:
		if len(data) != 1 {
			return fmt.Errorf("%w: option %d (%s): expected 1 byte, got %d", ErrInvalidValue, code, def.Key, len(data))
		}
	case TypeUint16:
		if len(data) != 2 {
			return fmt.Errorf("%w: option %d (%s): expected 2 bytes, got %d", ErrInvalidValue, code, def.Key, len(data))
		}
	case TypeUint32, TypeInt32, TypeIP:
		if len(data) != 4 {
			return fmt.Errorf("%w: option %d (%s): expected 4 bytes, got %d", ErrInvalidValue, code, def.Key, len(data))
		}
	case TypeIPList:
		if len(data) == 0 || len(data)%4 != 0 {
			return fmt.Errorf("%w: option %d (%s): length %d not a positive multiple of 4", ErrInvalidValue, code, def.Key, len(data))
		}
	case TypeIPPairs:
		if len(data) == 0 || len(data)%8 != 0 {
			return fmt.Errorf("%w: option %d (%s): length %d not a positive multiple of 8", ErrInvalidValue, code, def.Key, len(data))
		}
	case TypeUint16List:
		if len(data) == 0 || len(data)%2 != 0 {
			return fmt.Errorf("%w: option %d (%s): length %d not a positive multiple of 2", ErrInvalidValue, code, def.Key, len(data))
		}
	case TypeEnum:
		if len(data) != 1 {
			return fmt.Errorf("%w: option %d (%s): expected 1 byte, got %d", ErrInvalidValue, code, def.Key, len(data))
		}
		if _, ok := def.Symbols[data[0]]; !ok {
			return fmt.Errorf("%w: option %d (%s): value %d outside symbol table", ErrInvalidValue, code, def.Key, data[0])
		}
	case TypeClientID:
		if len(data) < 2 {
			return fmt.Errorf("%w: option %d (%s): expected at least 2 bytes, got %d", ErrInvalidValue, code, def.Key, len(data))
		}
	case TypeFlag:
		if len(data) != 0 {
			return fmt.Errorf("%w: option %d (%s): carries no payload", ErrInvalidValue, code, def.Key)
		}
	}
	return nil
}
