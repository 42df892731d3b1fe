// Package client drives one DHCPv4 DORA exchange: it transmits Discover and
// Request, filters inbound traffic by transaction id and message type, and
// retries on a bounded budget until a Lease is obtained or the budget runs out.
package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/dhcpdig/dhcpdig/internal/dhcp"
	"github.com/dhcpdig/dhcpdig/internal/metrics"
	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

// Engine failure modes, distinguishable via errors.Is. These are the only
// externally visible failures once the exchange has started; discarded
// datagrams never surface.
var (
	ErrNoOffer = errors.New("unable to obtain offer")
	ErrNoAck   = errors.New("unable to obtain ack")
)

// ErrNoData is returned by Transport.Recv when no datagram is ready.
var ErrNoData = errors.New("no data available")

// Transport moves raw datagrams for the engine. Recv must not block: it
// returns ErrNoData immediately when nothing is ready.
type Transport interface {
	Send(pkt []byte) error
	Recv() ([]byte, *net.UDPAddr, error)
	Close() error
}

// Config holds one engine's parameters. Zero fields take the defaults below.
type Config struct {
	Interface     string        // Network interface to bind, "" for any
	MAC           string        // Client MAC; random when empty
	Server        net.IP        // Target server; broadcast when nil
	Relay         net.IP        // Relay agent address for giaddr, nil for none
	Broadcast     bool          // Request broadcast replies
	MaxRetries    int           // Retry cycles per phase beyond the first send
	RetryInterval time.Duration // Length of one retry cycle
	PollInterval  time.Duration // Sleep between readiness polls
	ClientPort    int           // Source port for outbound packets
	ServerPort    int           // Destination port for outbound packets

	// Options are merged into Discover and Request.
	Options *dhcp.OptionList

	Logger *slog.Logger
}

const (
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 5 * time.Second
	DefaultPollInterval  = 10 * time.Millisecond
)

func (c *Config) applyDefaults() error {
	if c.MAC == "" {
		c.MAC = dhcpv4.RandomMAC()
	} else if !dhcpv4.ValidMAC(c.MAC) {
		return fmt.Errorf("%w: bad MAC %q", dhcp.ErrInvalidValue, c.MAC)
	}
	if c.Server == nil {
		c.Server = dhcpv4.BroadcastIP
		c.Broadcast = true
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: negative retry count %d", dhcp.ErrInvalidValue, c.MaxRetries)
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ClientPort == 0 {
		c.ClientPort = dhcpv4.ClientPort
	}
	if c.ServerPort == 0 {
		c.ServerPort = dhcpv4.ServerPort
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Engine performs exactly one lease acquisition end-to-end. Engines are
// single-threaded and not shared across transactions.
type Engine struct {
	cfg Config
	tr  Transport
	log *slog.Logger
}

// New builds an engine backed by raw UDP sockets.
func New(cfg Config) (*Engine, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	tr, err := newSocketTransport(&cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, tr: tr, log: cfg.Logger}, nil
}

// NewWithTransport builds an engine over a caller-supplied transport.
func NewWithTransport(cfg Config, tr Transport) (*Engine, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, tr: tr, log: cfg.Logger}, nil
}

// MAC returns the client hardware address in use, after any random generation.
func (e *Engine) MAC() string {
	return e.cfg.MAC
}

// Close releases the engine's transport.
func (e *Engine) Close() error {
	return e.tr.Close()
}

// Acquire runs the DORA exchange: Discover, await Offer, Request, await Ack.
// Each awaiting phase has an independent retry budget; total transmissions per
// phase = MaxRetries + 1. On success the four packets are returned as a Lease;
// on budget exhaustion the error matches ErrNoOffer or ErrNoAck and no Lease
// is produced.
func (e *Engine) Acquire() (*Lease, error) {
	start := time.Now()

	discover, err := dhcp.NewDiscover(e.cfg.MAC, dhcp.BuildOpts{
		Broadcast: e.cfg.Broadcast,
		Relay:     e.cfg.Relay,
		Options:   e.cfg.Options,
	})
	if err != nil {
		return nil, err
	}
	e.log.Debug("starting exchange", "mac", e.cfg.MAC, "xid", discover.XID, "server", e.cfg.Server.String())

	offer, _, err := e.exchange(discover, dhcpv4.MessageTypeOffer, ErrNoOffer)
	if err != nil {
		metrics.Acquisitions.WithLabelValues("no_offer").Inc()
		return nil, err
	}
	e.log.Debug("offer accepted", "yiaddr", offer.YIAddr.String(), "server", serverOf(offer))

	request, err := dhcp.NewRequest(e.cfg.MAC, discover.XID, dhcp.BuildOpts{
		Broadcast: e.cfg.Broadcast,
		Relay:     e.cfg.Relay,
		ClientIP:  offer.YIAddr,
		Options:   e.cfg.Options,
	})
	if err != nil {
		return nil, err
	}

	ack, from, err := e.exchange(request, dhcpv4.MessageTypeAck, ErrNoAck)
	if err != nil {
		metrics.Acquisitions.WithLabelValues("no_ack").Inc()
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.Acquisitions.WithLabelValues("ok").Inc()
	metrics.AcquisitionDuration.Observe(elapsed.Seconds())
	metrics.LeaseSeconds.Set(float64(ack.LeaseTime()))
	e.log.Info("lease acquired", "ip", ack.YIAddr.String(), "server", serverOf(ack), "elapsed", elapsed)

	return &Lease{
		Discover: discover,
		Offer:    offer,
		Request:  request,
		Ack:      ack,
		Duration: elapsed,
		Server:   from,
	}, nil
}

// exchange sends pkt and waits for a matching reply, resending once per
// expired retry cycle until the budget runs out.
func (e *Engine) exchange(pkt *dhcp.Packet, want dhcpv4.MessageType, failErr error) (*dhcp.Packet, *net.UDPAddr, error) {
	raw := pkt.Encode()
	sent := pkt.MessageType().String()

	if err := e.tr.Send(raw); err != nil {
		return nil, nil, fmt.Errorf("sending %s: %w", sent, err)
	}
	metrics.PacketsSent.WithLabelValues(sent).Inc()

	for tries := 0; ; tries++ {
		if reply, from := e.waitFor(pkt.XID, want); reply != nil {
			metrics.PacketsReceived.WithLabelValues(want.String()).Inc()
			return reply, from, nil
		}
		if tries >= e.cfg.MaxRetries {
			return nil, nil, fmt.Errorf("%w: no %s after %d transmissions of %s", failErr, want, tries+1, sent)
		}
		e.log.Debug("retry cycle expired, resending", "type", sent, "try", tries+1)
		metrics.Retransmissions.WithLabelValues(sent).Inc()
		if err := e.tr.Send(raw); err != nil {
			return nil, nil, fmt.Errorf("resending %s: %w", sent, err)
		}
		metrics.PacketsSent.WithLabelValues(sent).Inc()
	}
}

// waitFor runs one retry cycle: poll for inbound datagrams until one decodes,
// matches the transaction id, and carries the wanted message type. Everything
// else is silently discarded and never counts against the retry budget.
func (e *Engine) waitFor(xid uint32, want dhcpv4.MessageType) (*dhcp.Packet, *net.UDPAddr) {
	deadline := time.Now().Add(e.cfg.RetryInterval)
	for {
		data, from, err := e.tr.Recv()
		switch {
		case errors.Is(err, ErrNoData):
			if time.Now().After(deadline) {
				return nil, nil
			}
			time.Sleep(e.cfg.PollInterval)
			continue
		case err != nil:
			// Transient receive errors are treated like an empty socket;
			// unrelated traffic on the shared medium must never abort us.
			e.log.Warn("receive error", "err", err)
			metrics.PacketsDiscarded.WithLabelValues("recv_error").Inc()
			if time.Now().After(deadline) {
				return nil, nil
			}
			time.Sleep(e.cfg.PollInterval)
			continue
		}

		reply, err := dhcp.DecodePacket(data)
		if err != nil {
			metrics.PacketsDiscarded.WithLabelValues("malformed").Inc()
			continue
		}
		if reply.XID != xid {
			metrics.PacketsDiscarded.WithLabelValues("xid_mismatch").Inc()
			continue
		}
		if reply.MessageType() != want {
			metrics.PacketsDiscarded.WithLabelValues("msg_type").Inc()
			continue
		}
		return reply, from
	}
}

func serverOf(p *dhcp.Packet) string {
	if id := p.ServerIdentifier(); id != nil {
		return id.String()
	}
	return p.SIAddr.String()
}
