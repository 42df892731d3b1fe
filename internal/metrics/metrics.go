// Package metrics defines all Prometheus metrics for dhcpdig.
// All metrics use the "dhcpdig_" prefix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dhcpdig"

// --- DHCP Packet Metrics ---

var (
	// PacketsSent counts DHCP packets transmitted, by message type.
	PacketsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_sent_total",
		Help:      "Total DHCP packets transmitted, by message type.",
	}, []string{"msg_type"})

	// PacketsReceived counts accepted inbound DHCP packets, by message type.
	PacketsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_received_total",
		Help:      "Total accepted DHCP packets received, by message type.",
	}, []string{"msg_type"})

	// PacketsDiscarded counts inbound datagrams dropped while waiting for a
	// reply: decode failures, transaction-id mismatches, wrong message type.
	PacketsDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_discarded_total",
		Help:      "Total inbound datagrams discarded, by reason.",
	}, []string{"reason"})

	// Retransmissions counts resends after a retry cycle expired without an
	// accepted reply.
	Retransmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retransmissions_total",
		Help:      "Total retransmissions, by message type.",
	}, []string{"msg_type"})
)

// --- Lease Acquisition Metrics ---

var (
	// Acquisitions counts completed lease acquisition attempts by outcome.
	Acquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "acquisitions_total",
		Help:      "Total lease acquisition attempts, by outcome (ok, no_offer, no_ack, error).",
	}, []string{"outcome"})

	// AcquisitionDuration tracks end-to-end DORA exchange latency.
	AcquisitionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "acquisition_duration_seconds",
		Help:      "End-to-end DORA exchange duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	})

	// LeaseSeconds records the lease time granted by the last Ack.
	LeaseSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "lease_seconds",
		Help:      "Lease duration granted by the most recent Ack, in seconds.",
	})
)

// --- Post-lease Check Metrics ---

var (
	// ConflictProbes counts duplicate-address probes by result.
	ConflictProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conflict_probes_total",
		Help:      "Total duplicate-address probes performed, by result.",
	}, []string{"result"})

	// DNSChecks counts post-lease resolver checks by result.
	DNSChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dns_checks_total",
		Help:      "Total post-lease DNS resolver checks, by result.",
	}, []string{"result"})
)
