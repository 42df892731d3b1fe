package dhcp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"

	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

// BuildOpts carries the optional knobs shared by the packet builders. The zero
// value produces a minimal packet.
type BuildOpts struct {
	XID       uint32      // Transaction ID; Discover generates one when zero
	Secs      uint16      // Seconds elapsed since the exchange started
	Broadcast bool        // Set the broadcast flag (bit 15)
	Relay     net.IP      // Relay agent address for giaddr, nil for none
	ClientIP  net.IP      // ciaddr: the current address when renewing
	SName     []byte      // Server host name field
	File      []byte      // Boot file name field
	Options   *OptionList // Extra options; copied, never mutated
}

// NewDiscover builds a DHCPDISCOVER for the given client MAC. A fresh random
// transaction ID is generated when opts.XID is zero.
func NewDiscover(mac string, opts BuildOpts) (*Packet, error) {
	if opts.XID == 0 {
		opts.XID = randomXID()
	}
	return buildPacket(dhcpv4.OpCodeBootRequest, mac, dhcpv4.MessageTypeDiscover, nil, opts)
}

// NewOffer builds a DHCPOFFER answering a Discover: same transaction ID,
// yiaddr carrying the offered address.
func NewOffer(mac string, xid uint32, yiaddr net.IP, opts BuildOpts) (*Packet, error) {
	opts.XID = xid
	return buildPacket(dhcpv4.OpCodeBootReply, mac, dhcpv4.MessageTypeOffer, yiaddr, opts)
}

// NewRequest builds a DHCPREQUEST reusing the Discover's transaction ID.
// opts.ClientIP sets ciaddr when the client is renewing an address it holds.
func NewRequest(mac string, xid uint32, opts BuildOpts) (*Packet, error) {
	opts.XID = xid
	return buildPacket(dhcpv4.OpCodeBootRequest, mac, dhcpv4.MessageTypeRequest, nil, opts)
}

// NewAck builds a DHCPACK confirming an address: same transaction ID as the
// Request, yiaddr carrying the confirmed address.
func NewAck(mac string, xid uint32, yiaddr net.IP, opts BuildOpts) (*Packet, error) {
	opts.XID = xid
	return buildPacket(dhcpv4.OpCodeBootReply, mac, dhcpv4.MessageTypeAck, yiaddr, opts)
}

func buildPacket(op dhcpv4.OpCode, mac string, msgType dhcpv4.MessageType, yiaddr net.IP, opts BuildOpts) (*Packet, error) {
	hwaddr, err := dhcpv4.ParseMAC(mac)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	var flags uint16
	if opts.Broadcast {
		flags = 0x8000
	}

	giaddr := dhcpv4.ZeroIP
	if opts.Relay != nil {
		giaddr = opts.Relay
	}
	ciaddr := dhcpv4.ZeroIP
	if opts.ClientIP != nil {
		ciaddr = opts.ClientIP
	}
	if yiaddr == nil {
		yiaddr = dhcpv4.ZeroIP
	}

	options := NewOptionList()
	if opts.Options != nil {
		options = opts.Options.Clone()
	}
	options.Insert(0, messageTypeOption(msgType))

	return &Packet{
		Op:      op,
		HType:   dhcpv4.HardwareTypeEthernet,
		HLen:    byte(len(hwaddr)),
		XID:     opts.XID,
		Secs:    opts.Secs,
		Flags:   flags,
		CIAddr:  ciaddr,
		YIAddr:  yiaddr,
		SIAddr:  dhcpv4.ZeroIP,
		GIAddr:  giaddr,
		CHAddr:  hwaddr,
		SName:   opts.SName,
		File:    opts.File,
		Options: options,
	}, nil
}

func randomXID() uint32 {
	var b [4]byte
	rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}
