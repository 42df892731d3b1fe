package client

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dhcpdig/dhcpdig/internal/dhcp"
	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

const testMAC = "08:00:27:12:34:56"

// fakeTransport scripts the server side of an exchange. Each Send may queue
// replies computed from the packet that was just transmitted.
type fakeTransport struct {
	sent    [][]byte
	queue   [][]byte
	onSend  func(t *fakeTransport, pkt *dhcp.Packet)
	sendErr error
	closed  bool
}

func (f *fakeTransport) Send(pkt []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	raw := make([]byte, len(pkt))
	copy(raw, pkt)
	f.sent = append(f.sent, raw)
	if f.onSend != nil {
		decoded, err := dhcp.DecodePacket(raw)
		if err == nil {
			f.onSend(f, decoded)
		}
	}
	return nil
}

func (f *fakeTransport) Recv() ([]byte, *net.UDPAddr, error) {
	if len(f.queue) == 0 {
		return nil, nil, ErrNoData
	}
	data := f.queue[0]
	f.queue = f.queue[1:]
	return data, &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 67}, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTransport) push(t *testing.T, pkt *dhcp.Packet, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("building reply: %v", err)
	}
	f.queue = append(f.queue, pkt.Encode())
}

func fastConfig() Config {
	return Config{
		MAC:           testMAC,
		Server:        net.IPv4(10, 0, 0, 1),
		MaxRetries:    2,
		RetryInterval: 5 * time.Millisecond,
		PollInterval:  time.Millisecond,
	}
}

// answering returns an onSend hook that plays a well-behaved server.
func answering(t *testing.T, yiaddr net.IP) func(*fakeTransport, *dhcp.Packet) {
	t.Helper()
	return func(f *fakeTransport, pkt *dhcp.Packet) {
		opts := dhcp.NewOptionList()
		lease, err := dhcp.FromValue(map[string]any{"lease_time": int64(3600)})
		if err != nil {
			t.Errorf("lease option: %v", err)
			return
		}
		opts.Append(lease)
		switch pkt.MessageType() {
		case dhcpv4.MessageTypeDiscover:
			offer, err := dhcp.NewOffer(testMAC, pkt.XID, yiaddr, dhcp.BuildOpts{Options: opts})
			f.push(t, offer, err)
		case dhcpv4.MessageTypeRequest:
			ack, err := dhcp.NewAck(testMAC, pkt.XID, yiaddr, dhcp.BuildOpts{Options: opts})
			f.push(t, ack, err)
		}
	}
}

func TestAcquireCompletesExchange(t *testing.T) {
	yiaddr := net.IPv4(192, 168, 1, 50)
	tr := &fakeTransport{}
	tr.onSend = answering(t, yiaddr)

	eng, err := NewWithTransport(fastConfig(), tr)
	if err != nil {
		t.Fatalf("NewWithTransport error: %v", err)
	}
	lease, err := eng.Acquire()
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	if !lease.IP().Equal(yiaddr) {
		t.Errorf("leased IP = %v, want %v", lease.IP(), yiaddr)
	}
	if lease.Discover == nil || lease.Offer == nil || lease.Request == nil || lease.Ack == nil {
		t.Error("lease missing one of the four packets")
	}
	if lease.Offer.XID != lease.Discover.XID || lease.Ack.XID != lease.Discover.XID {
		t.Error("transaction id not stable across the exchange")
	}
	if !lease.Request.CIAddr.Equal(yiaddr) {
		t.Errorf("request ciaddr = %v, want offered address", lease.Request.CIAddr)
	}
	if lease.Server == nil {
		t.Error("responding server address missing")
	}
	if lease.Expiry() != time.Hour {
		t.Errorf("Expiry = %v, want 1h", lease.Expiry())
	}
	if len(tr.sent) != 2 {
		t.Errorf("sent %d packets, want 2 (discover, request)", len(tr.sent))
	}
}

func TestAcquireExhaustsOfferBudget(t *testing.T) {
	// Max retries 2, no matching offer ever arrives. The engine must
	// transmit exactly 3 Discovers then fail.
	tr := &fakeTransport{}

	eng, err := NewWithTransport(fastConfig(), tr)
	if err != nil {
		t.Fatalf("NewWithTransport error: %v", err)
	}
	lease, err := eng.Acquire()
	if !errors.Is(err, ErrNoOffer) {
		t.Fatalf("Acquire error = %v, want ErrNoOffer", err)
	}
	if lease != nil {
		t.Error("no partial lease may be produced on failure")
	}
	if len(tr.sent) != 3 {
		t.Errorf("sent %d Discovers, want exactly 3 (1 initial + 2 retries)", len(tr.sent))
	}
}

func TestAcquireExhaustsAckBudget(t *testing.T) {
	yiaddr := net.IPv4(192, 168, 1, 50)
	tr := &fakeTransport{}
	tr.onSend = func(f *fakeTransport, pkt *dhcp.Packet) {
		// Offer every Discover, never ack.
		if pkt.MessageType() == dhcpv4.MessageTypeDiscover {
			offer, err := dhcp.NewOffer(testMAC, pkt.XID, yiaddr, dhcp.BuildOpts{})
			f.push(t, offer, err)
		}
	}

	eng, err := NewWithTransport(fastConfig(), tr)
	if err != nil {
		t.Fatalf("NewWithTransport error: %v", err)
	}
	_, err = eng.Acquire()
	if !errors.Is(err, ErrNoAck) {
		t.Fatalf("Acquire error = %v, want ErrNoAck", err)
	}
	if errors.Is(err, ErrNoOffer) {
		t.Error("ack exhaustion must be distinguishable from offer exhaustion")
	}
	// 1 Discover + 3 Requests: the ack budget is independent.
	if len(tr.sent) != 4 {
		t.Errorf("sent %d packets, want 4", len(tr.sent))
	}
}

func TestDiscardedPacketsDoNotCount(t *testing.T) {
	yiaddr := net.IPv4(192, 168, 1, 50)
	tr := &fakeTransport{}
	tr.onSend = func(f *fakeTransport, pkt *dhcp.Packet) {
		if pkt.MessageType() != dhcpv4.MessageTypeDiscover {
			if pkt.MessageType() == dhcpv4.MessageTypeRequest {
				ack, err := dhcp.NewAck(testMAC, pkt.XID, yiaddr, dhcp.BuildOpts{})
				f.push(t, ack, err)
			}
			return
		}
		// Garbage, a wrong-xid offer, and a wrong-type reply ahead of the
		// real offer. All three must be silently skipped.
		f.queue = append(f.queue, []byte{0xDE, 0xAD, 0xBE, 0xEF})
		wrongXID, err := dhcp.NewOffer(testMAC, pkt.XID+1, yiaddr, dhcp.BuildOpts{})
		f.push(t, wrongXID, err)
		wrongType, err := dhcp.NewAck(testMAC, pkt.XID, yiaddr, dhcp.BuildOpts{})
		f.push(t, wrongType, err)
		offer, err := dhcp.NewOffer(testMAC, pkt.XID, yiaddr, dhcp.BuildOpts{})
		f.push(t, offer, err)
	}

	eng, err := NewWithTransport(fastConfig(), tr)
	if err != nil {
		t.Fatalf("NewWithTransport error: %v", err)
	}
	lease, err := eng.Acquire()
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if !lease.IP().Equal(yiaddr) {
		t.Errorf("leased IP = %v", lease.IP())
	}
	// No retransmissions: the discards never touched the retry budget.
	if len(tr.sent) != 2 {
		t.Errorf("sent %d packets, want 2", len(tr.sent))
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	if err := cfg.applyDefaults(); err != nil {
		t.Fatalf("applyDefaults error: %v", err)
	}
	if !dhcpv4.ValidMAC(cfg.MAC) {
		t.Errorf("generated MAC %q invalid", cfg.MAC)
	}
	if !cfg.Server.Equal(dhcpv4.BroadcastIP) || !cfg.Broadcast {
		t.Error("nil server should default to broadcast")
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d", cfg.MaxRetries)
	}
	if cfg.ClientPort != dhcpv4.ClientPort || cfg.ServerPort != dhcpv4.ServerPort {
		t.Errorf("ports = %d/%d", cfg.ClientPort, cfg.ServerPort)
	}
}

func TestConfigRejectsBadMAC(t *testing.T) {
	cfg := Config{MAC: "not-a-mac"}
	if err := cfg.applyDefaults(); !errors.Is(err, dhcp.ErrInvalidValue) {
		t.Errorf("applyDefaults error = %v, want ErrInvalidValue", err)
	}
}
