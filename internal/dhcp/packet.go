package dhcp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"

	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

// Packet represents a decoded DHCPv4 packet (RFC 2131 §2).
type Packet struct {
	Op      dhcpv4.OpCode       // Message op code: 1=BOOTREQUEST, 2=BOOTREPLY
	HType   dhcpv4.HardwareType // Hardware address type (1=Ethernet)
	HLen    byte                // Hardware address length (6 for Ethernet)
	Hops    byte                // Relay hops
	XID     uint32              // Transaction ID
	Secs    uint16              // Seconds elapsed
	Flags   uint16              // Flags (bit 15 = broadcast)
	CIAddr  net.IP              // Client IP address
	YIAddr  net.IP              // 'Your' (client) IP address
	SIAddr  net.IP              // Next server IP address
	GIAddr  net.IP              // Relay agent IP address
	CHAddr  net.HardwareAddr    // Client hardware address
	SName   []byte              // Server host name, NUL-stripped on decode
	File    []byte              // Boot file name, NUL-stripped on decode
	Options *OptionList         // DHCP options
}

// DecodePacket parses a raw DHCPv4 packet from bytes.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < dhcpv4.MinPacketSize {
		return nil, fmt.Errorf("%w: %d bytes (minimum %d)", ErrMalformedPacket, len(data), dhcpv4.MinPacketSize)
	}
	if !bytes.Equal(data[236:240], dhcpv4.MagicCookie) {
		return nil, fmt.Errorf("%w: bad magic cookie %v", ErrMalformedPacket, data[236:240])
	}

	p := &Packet{}
	p.Op = dhcpv4.OpCode(data[0])
	p.HType = dhcpv4.HardwareType(data[1])
	p.HLen = data[2]
	p.Hops = data[3]
	p.XID = binary.BigEndian.Uint32(data[4:8])
	p.Secs = binary.BigEndian.Uint16(data[8:10])
	p.Flags = binary.BigEndian.Uint16(data[10:12])
	p.CIAddr = copyIP(data[12:16])
	p.YIAddr = copyIP(data[16:20])
	p.SIAddr = copyIP(data[20:24])
	p.GIAddr = copyIP(data[24:28])

	// chaddr is 16 bytes in the header; strip the NUL padding and re-pad to
	// the Ethernet address width so short values stay six octets.
	chaddr := bytes.TrimRight(data[28:44], "\x00")
	if len(chaddr) < 6 {
		chaddr = append(chaddr, make([]byte, 6-len(chaddr))...)
	}
	p.CHAddr = make(net.HardwareAddr, len(chaddr))
	copy(p.CHAddr, chaddr)

	p.SName = bytes.TrimRight(data[44:108], "\x00")
	p.File = bytes.TrimRight(data[108:236], "\x00")

	opts, err := decodeOptionStream(data[240:])
	if err != nil {
		return nil, err
	}
	p.Options = opts

	return p, nil
}

// decodeOptionStream scans the option area sequentially. Pad and End consume
// one byte; every other code reads a length byte then that many payload bytes.
// Scanning stops at End or end-of-buffer.
func decodeOptionStream(data []byte) (*OptionList, error) {
	opts := NewOptionList()
	i := 0
	for i < len(data) {
		code := dhcpv4.OptionCode(data[i])
		i++

		if code == dhcpv4.OptionPad {
			opts.Append(Option{Code: code})
			continue
		}
		if code == dhcpv4.OptionEnd {
			opts.Append(Option{Code: code})
			break
		}

		if i >= len(data) {
			return nil, fmt.Errorf("%w: truncated option %d: no length byte", ErrMalformedPacket, code)
		}
		length := int(data[i])
		i++

		if i+length > len(data) {
			return nil, fmt.Errorf("%w: truncated option %d: need %d bytes, have %d", ErrMalformedPacket, code, length, len(data)-i)
		}
		payload := make([]byte, length)
		copy(payload, data[i:i+length])
		opts.Append(Option{Code: code, Data: payload})
		i += length
	}
	return opts, nil
}

// Encode serializes the packet: fixed header, magic cookie, options in list
// order. An End option is appended when the stream doesn't already end in one.
func (p *Packet) Encode() []byte {
	optBytes := p.Options.Encode()
	if len(optBytes) == 0 || optBytes[len(optBytes)-1] != byte(dhcpv4.OptionEnd) {
		optBytes = append(optBytes, byte(dhcpv4.OptionEnd))
	}

	buf := make([]byte, 240+len(optBytes))
	buf[0] = byte(p.Op)
	buf[1] = byte(p.HType)
	buf[2] = p.HLen
	buf[3] = p.Hops
	binary.BigEndian.PutUint32(buf[4:8], p.XID)
	binary.BigEndian.PutUint16(buf[8:10], p.Secs)
	binary.BigEndian.PutUint16(buf[10:12], p.Flags)

	if p.CIAddr != nil {
		copy(buf[12:16], p.CIAddr.To4())
	}
	if p.YIAddr != nil {
		copy(buf[16:20], p.YIAddr.To4())
	}
	if p.SIAddr != nil {
		copy(buf[20:24], p.SIAddr.To4())
	}
	if p.GIAddr != nil {
		copy(buf[24:28], p.GIAddr.To4())
	}
	if p.CHAddr != nil {
		copy(buf[28:44], p.CHAddr)
	}
	copy(buf[44:108], p.SName)
	copy(buf[108:236], p.File)

	copy(buf[236:240], dhcpv4.MagicCookie)
	copy(buf[240:], optBytes)

	return buf
}

// MessageType returns the DHCP message type from option 53, or 0 if absent.
func (p *Packet) MessageType() dhcpv4.MessageType {
	if opt, ok := p.Options.ByCode(dhcpv4.OptionDHCPMessageType); ok && len(opt.Data) == 1 {
		return dhcpv4.MessageType(opt.Data[0])
	}
	return 0
}

// ServerIdentifier returns the server identifier from option 54, or nil.
func (p *Packet) ServerIdentifier() net.IP {
	if opt, ok := p.Options.ByCode(dhcpv4.OptionServerIdentifier); ok && len(opt.Data) == 4 {
		return copyIP(opt.Data)
	}
	return nil
}

// LeaseTime returns the lease duration from option 51 in seconds, or 0.
func (p *Packet) LeaseTime() uint32 {
	if opt, ok := p.Options.ByCode(dhcpv4.OptionIPLeaseTime); ok && len(opt.Data) == 4 {
		return binary.BigEndian.Uint32(opt.Data)
	}
	return 0
}

// IsBroadcast reports whether the broadcast flag is set.
func (p *Packet) IsBroadcast() bool {
	return p.Flags&0x8000 != 0
}

func copyIP(b []byte) net.IP {
	ip := make(net.IP, 4)
	copy(ip, b)
	return ip
}
