// Package conflict probes a freshly leased address with ICMP Echo before the
// client brings it up. A reply means some other host already answers on the
// address the server just handed out.
package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/dhcpdig/dhcpdig/internal/metrics"
)

// Prober sends ICMP Echo Requests over a raw socket (RFC 792). The socket is
// opened once and reused across probes.
type Prober struct {
	conn      *icmp.PacketConn
	logger    *slog.Logger
	available bool
	seq       uint16
}

// NewProber opens the raw ICMP socket. If creation fails (missing
// CAP_NET_RAW), it logs a warning and returns a prober that always reports
// "clear".
func NewProber(logger *slog.Logger) (*Prober, error) {
	p := &Prober{logger: logger}

	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		logger.Warn("failed to open ICMP socket, duplicate-address probing disabled",
			"error", err,
			"hint", "grant CAP_NET_RAW or run as root")
		return p, nil
	}

	p.conn = conn
	p.available = true
	return p, nil
}

// Available reports whether the prober has a working socket.
func (p *Prober) Available() bool {
	return p.available
}

// Close closes the ICMP socket.
func (p *Prober) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Probe sends an ICMP Echo Request to the target and waits for a reply until
// the context expires. Returns true when a matching reply arrives, meaning
// the address is already in use.
func (p *Prober) Probe(ctx context.Context, target net.IP) (bool, error) {
	if !p.available {
		return false, nil
	}

	p.seq++
	seq := p.seq
	start := time.Now()

	msg := &icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  int(seq),
			Data: []byte("dhcpdig-probe"),
		},
	}
	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return false, fmt.Errorf("marshalling ICMP echo request: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := p.conn.SetDeadline(deadline); err != nil {
			return false, fmt.Errorf("setting ICMP deadline: %w", err)
		}
	}

	if _, err := p.conn.WriteTo(msgBytes, &net.IPAddr{IP: target}); err != nil {
		return false, fmt.Errorf("sending ICMP echo to %s: %w", target, err)
	}

	buf := make([]byte, 1500)
	for {
		select {
		case <-ctx.Done():
			metrics.ConflictProbes.WithLabelValues("clear").Inc()
			return false, nil
		default:
		}

		n, peer, err := p.conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				p.logger.Debug("probe timeout, address clear",
					"target", target.String(),
					"duration", time.Since(start).String())
				metrics.ConflictProbes.WithLabelValues("clear").Inc()
				return false, nil
			}
			return false, fmt.Errorf("reading ICMP reply: %w", err)
		}

		reply, err := icmp.ParseMessage(1, buf[:n]) // 1 = ICMPv4
		if err != nil {
			continue
		}
		if reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		if echo, ok := reply.Body.(*icmp.Echo); ok {
			if echo.ID == os.Getpid()&0xffff && echo.Seq == int(seq) {
				p.logger.Warn("address already answers pings",
					"target", target.String(),
					"responder", peer.String(),
					"duration", time.Since(start).String())
				metrics.ConflictProbes.WithLabelValues("conflict").Inc()
				return true, nil
			}
		}
	}
}
