// Package dhcpv4 provides constants and encoding helpers for DHCPv4 packets.
package dhcpv4

import "net"

// DHCP Message Types (RFC 2131 §9.6)
type MessageType byte

const (
	MessageTypeDiscover MessageType = 1 // DHCPDISCOVER
	MessageTypeOffer    MessageType = 2 // DHCPOFFER
	MessageTypeRequest  MessageType = 3 // DHCPREQUEST
	MessageTypeDecline  MessageType = 4 // DHCPDECLINE
	MessageTypeAck      MessageType = 5 // DHCPACK
	MessageTypeNak      MessageType = 6 // DHCPNAK
	MessageTypeRelease  MessageType = 7 // DHCPRELEASE
	MessageTypeInform   MessageType = 8 // DHCPINFORM
)

func (m MessageType) String() string {
	switch m {
	case MessageTypeDiscover:
		return "DHCPDISCOVER"
	case MessageTypeOffer:
		return "DHCPOFFER"
	case MessageTypeRequest:
		return "DHCPREQUEST"
	case MessageTypeDecline:
		return "DHCPDECLINE"
	case MessageTypeAck:
		return "DHCPACK"
	case MessageTypeNak:
		return "DHCPNAK"
	case MessageTypeRelease:
		return "DHCPRELEASE"
	case MessageTypeInform:
		return "DHCPINFORM"
	default:
		return "UNKNOWN"
	}
}

// ParseMessageType resolves a message type name ("DHCPOFFER") to its wire value.
func ParseMessageType(s string) (MessageType, bool) {
	for m := MessageTypeDiscover; m <= MessageTypeInform; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}

// DHCP Op Codes (RFC 2131 §2)
type OpCode byte

const (
	OpCodeBootRequest OpCode = 1 // BOOTREQUEST
	OpCodeBootReply   OpCode = 2 // BOOTREPLY
)

func (o OpCode) String() string {
	switch o {
	case OpCodeBootRequest:
		return "BOOTREQUEST"
	case OpCodeBootReply:
		return "BOOTREPLY"
	default:
		return "UNKNOWN"
	}
}

// Hardware Types (RFC 1700)
type HardwareType byte

const (
	HardwareTypeEthernet     HardwareType = 1
	HardwareTypeExperimental HardwareType = 2
	HardwareTypeAmateur      HardwareType = 3
	HardwareTypeProteon      HardwareType = 4
	HardwareTypeChaos        HardwareType = 5
	HardwareTypeIEEE         HardwareType = 6
	HardwareTypeARCNET       HardwareType = 7
	HardwareTypeHyperchannel HardwareType = 8
	HardwareTypeLanstar      HardwareType = 9
)

var hardwareTypeNames = map[HardwareType]string{
	HardwareTypeEthernet:     "ETHERNET",
	HardwareTypeExperimental: "EXPERIMENTAL",
	HardwareTypeAmateur:      "AMATEUR",
	HardwareTypeProteon:      "PROTEON",
	HardwareTypeChaos:        "CHAOS",
	HardwareTypeIEEE:         "IEEE",
	HardwareTypeARCNET:       "ARCNET",
	HardwareTypeHyperchannel: "HYPERCHANNEL",
	HardwareTypeLanstar:      "LANSTAR",
}

func (h HardwareType) String() string {
	if name, ok := hardwareTypeNames[h]; ok {
		return name
	}
	return "UNKNOWN"
}

// DHCP Option Codes (RFC 2132 and extensions)
type OptionCode byte

const (
	OptionPad                    OptionCode = 0
	OptionSubnetMask             OptionCode = 1
	OptionTimeOffset             OptionCode = 2
	OptionRouter                 OptionCode = 3
	OptionTimeServer             OptionCode = 4
	OptionNameServer             OptionCode = 5
	OptionDomainNameServer       OptionCode = 6
	OptionLogServer              OptionCode = 7
	OptionCookieServer           OptionCode = 8
	OptionLPRServer              OptionCode = 9
	OptionImpressServer          OptionCode = 10
	OptionResourceLocationServer OptionCode = 11
	OptionHostname               OptionCode = 12
	OptionBootFileSize           OptionCode = 13
	OptionMeritDumpFile          OptionCode = 14
	OptionDomainName             OptionCode = 15
	OptionSwapServer             OptionCode = 16
	OptionRootPath               OptionCode = 17
	OptionExtensionsPath         OptionCode = 18
	OptionIPForwarding           OptionCode = 19
	OptionNonLocalSourceRouting  OptionCode = 20
	OptionPolicyFilter           OptionCode = 21
	OptionMaxDatagramReassembly  OptionCode = 22
	OptionDefaultIPTTL           OptionCode = 23
	OptionPathMTUAgingTimeout    OptionCode = 24
	OptionPathMTUPlateauTable    OptionCode = 25
	OptionInterfaceMTU           OptionCode = 26
	OptionAllSubnetsLocal        OptionCode = 27
	OptionBroadcastAddress       OptionCode = 28
	OptionPerformMaskDiscovery   OptionCode = 29
	OptionMaskSupplier           OptionCode = 30
	OptionPerformRouterDiscovery OptionCode = 31
	OptionRouterSolicitAddr      OptionCode = 32
	OptionStaticRoute            OptionCode = 33
	OptionTrailerEncapsulation   OptionCode = 34
	OptionARPCacheTimeout        OptionCode = 35
	OptionEthernetEncapsulation  OptionCode = 36
	OptionTCPDefaultTTL          OptionCode = 37
	OptionTCPKeepaliveInterval   OptionCode = 38
	OptionTCPKeepaliveGarbage    OptionCode = 39
	OptionNISDomain              OptionCode = 40
	OptionNISServers             OptionCode = 41
	OptionNTPServers             OptionCode = 42
	OptionVendorSpecific         OptionCode = 43
	OptionNetBIOSNameServer      OptionCode = 44
	OptionNetBIOSDatagramDist    OptionCode = 45
	OptionNetBIOSNodeType        OptionCode = 46
	OptionNetBIOSScope           OptionCode = 47
	OptionXWindowFontServer      OptionCode = 48
	OptionXWindowDisplayManager  OptionCode = 49
	OptionRequestedIP            OptionCode = 50
	OptionIPLeaseTime            OptionCode = 51
	OptionOverload               OptionCode = 52
	OptionDHCPMessageType        OptionCode = 53
	OptionServerIdentifier       OptionCode = 54
	OptionParameterRequestList   OptionCode = 55
	OptionMessage                OptionCode = 56
	OptionMaxDHCPMessageSize     OptionCode = 57
	OptionRenewalTime            OptionCode = 58
	OptionRebindingTime          OptionCode = 59
	OptionVendorClassID          OptionCode = 60
	OptionClientIdentifier       OptionCode = 61
	OptionNISPlusDomain          OptionCode = 64
	OptionNISPlusServers         OptionCode = 65
	OptionTFTPServerName         OptionCode = 66
	OptionBootfileName           OptionCode = 67
	OptionMobileIPHomeAgent      OptionCode = 68
	OptionSMTPServer             OptionCode = 69
	OptionPOP3Server             OptionCode = 70
	OptionNNTPServer             OptionCode = 71
	OptionWWWServer              OptionCode = 72
	OptionFingerServer           OptionCode = 73
	OptionIRCServer              OptionCode = 74
	OptionStreetTalkServer       OptionCode = 75
	OptionSTDAServer             OptionCode = 76
	OptionRelayAgentInfo         OptionCode = 82
	OptionEnd                    OptionCode = 255
)

// DHCP Packet Size Limits
const (
	MinPacketSize     = 240  // Fixed header plus magic cookie
	MaxPacketSize     = 4096 // Receive buffer size for inbound datagrams
	DefaultPacketSize = 576  // Default max packet size (RFC 2131 §2)
)

// DHCP Ports
const (
	ServerPort = 67
	ClientPort = 68
)

// DHCP Magic Cookie (RFC 2131 §3)
var MagicCookie = []byte{99, 130, 83, 99}

// Broadcast address used when no unicast server is configured.
var (
	BroadcastIP = net.IPv4(255, 255, 255, 255)
	ZeroIP      = net.IPv4(0, 0, 0, 0)
)
