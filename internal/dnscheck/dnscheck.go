// Package dnscheck verifies that the DNS servers handed out in a lease
// actually answer queries. A lease whose resolvers are dead is technically
// valid but useless, so this is surfaced as a post-lease diagnostic.
package dnscheck

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/dhcpdig/dhcpdig/internal/metrics"
)

// DefaultProbeName is the name resolved when the caller doesn't supply one.
const DefaultProbeName = "example.com."

// Result is the outcome of checking one resolver.
type Result struct {
	Server  net.IP
	OK      bool
	Rcode   string
	Answers int
	RTT     time.Duration
	Err     error
}

// Checker runs A-record lookups against leased DNS servers.
type Checker struct {
	client *dns.Client
	logger *slog.Logger
	name   string
}

// New builds a checker that resolves name (DefaultProbeName when empty)
// with the given per-query timeout.
func New(name string, timeout time.Duration, logger *slog.Logger) *Checker {
	if name == "" {
		name = DefaultProbeName
	}
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &Checker{
		client: &dns.Client{Timeout: timeout},
		logger: logger,
		name:   dns.Fqdn(name),
	}
}

// Check queries every server for an A record and returns one Result per
// server. A resolver counts as OK when it answers at all, regardless of
// rcode: the check is about reachability, not content.
func (c *Checker) Check(ctx context.Context, servers []net.IP) []Result {
	results := make([]Result, 0, len(servers))
	for _, server := range servers {
		results = append(results, c.checkOne(ctx, server))
	}
	return results
}

func (c *Checker) checkOne(ctx context.Context, server net.IP) Result {
	m := new(dns.Msg)
	m.SetQuestion(c.name, dns.TypeA)
	m.RecursionDesired = true

	addr := net.JoinHostPort(server.String(), "53")
	resp, rtt, err := c.client.ExchangeContext(ctx, m, addr)
	if err != nil {
		c.logger.Warn("resolver unreachable", "server", server.String(), "err", err)
		metrics.DNSChecks.WithLabelValues("unreachable").Inc()
		return Result{Server: server, Err: fmt.Errorf("querying %s: %w", addr, err)}
	}

	r := Result{
		Server:  server,
		OK:      true,
		Rcode:   dns.RcodeToString[resp.Rcode],
		Answers: len(resp.Answer),
		RTT:     rtt,
	}
	c.logger.Debug("resolver answered",
		"server", server.String(),
		"rcode", r.Rcode,
		"answers", r.Answers,
		"rtt", rtt.String())
	metrics.DNSChecks.WithLabelValues("ok").Inc()
	return r
}
