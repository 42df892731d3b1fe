package client

import (
	"net"
	"time"

	"github.com/dhcpdig/dhcpdig/internal/dhcp"
)

// Lease is the outcome of one completed DORA exchange: the four packets,
// the elapsed wall-clock time, and the responding server's address. A Lease
// exists only when the exchange ran to completion.
type Lease struct {
	Discover *dhcp.Packet
	Offer    *dhcp.Packet
	Request  *dhcp.Packet
	Ack      *dhcp.Packet
	Duration time.Duration
	Server   *net.UDPAddr
}

// IP returns the leased address confirmed by the Ack.
func (l *Lease) IP() net.IP {
	return l.Ack.YIAddr
}

// Expiry returns the lease duration from the Ack's lease-time option.
func (l *Lease) Expiry() time.Duration {
	return time.Duration(l.Ack.LeaseTime()) * time.Second
}
