// dhcpdig — diagnostic DHCPv4 client: performs the DORA exchange against a
// server and reports the resulting lease.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dhcpdig/dhcpdig/internal/client"
	"github.com/dhcpdig/dhcpdig/internal/config"
	"github.com/dhcpdig/dhcpdig/internal/conflict"
	"github.com/dhcpdig/dhcpdig/internal/dhcp"
	"github.com/dhcpdig/dhcpdig/internal/dnscheck"
	"github.com/dhcpdig/dhcpdig/internal/leasedb"
	"github.com/dhcpdig/dhcpdig/internal/logging"
	"github.com/dhcpdig/dhcpdig/internal/macvendor"
	"github.com/dhcpdig/dhcpdig/internal/pretty"
	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

// optionFlags collects repeatable -option key=value flags.
type optionFlags []config.OptionConfig

func (o *optionFlags) String() string {
	parts := make([]string, len(*o))
	for i, oc := range *o {
		parts[i] = oc.Name + "=" + oc.Value
	}
	return strings.Join(parts, ",")
}

func (o *optionFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	*o = append(*o, config.OptionConfig{Name: name, Value: value})
	return nil
}

func main() {
	var opts optionFlags

	configPath := flag.String("config", "", "path to configuration file")
	iface := flag.String("interface", "", "network interface to bind")
	mac := flag.String("mac", "", "client MAC address (random when empty)")
	server := flag.String("server", "", "target server address (broadcast when empty)")
	relay := flag.String("relay", "", "relay agent address for giaddr")
	unicast := flag.Bool("unicast", false, "request unicast replies instead of broadcast")
	retries := flag.Int("retries", 0, "retry cycles per phase beyond the first send")
	retryInterval := flag.Duration("retry-interval", 0, "length of one retry cycle")
	clientPort := flag.Int("client-port", 0, "source UDP port")
	serverPort := flag.Int("server-port", 0, "destination UDP port")
	jsonOut := flag.Bool("json", false, "print the lease as JSON")
	verbose := flag.Int("v", 0, "verbosity: 1 = packet summaries, 2 = full packet dumps")
	probe := flag.Bool("probe", false, "ICMP-probe the leased address for duplicates")
	checkDNS := flag.Bool("check-dns", false, "verify the leased DNS servers answer")
	leaseDB := flag.String("lease-db", "", "append the lease to this bbolt journal file")
	monitor := flag.Bool("monitor", false, "acquire periodically and serve Prometheus metrics")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	flag.Var(&opts, "option", "option override as key=value, repeatable")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dhcpdig: %v\n", err)
		os.Exit(1)
	}
	mergeFlags(cfg, flagValues{
		iface: *iface, mac: *mac, server: *server, relay: *relay,
		unicast: *unicast, retries: *retries, retryInterval: *retryInterval,
		clientPort: *clientPort, serverPort: *serverPort,
		probe: *probe, checkDNS: *checkDNS, leaseDB: *leaseDB,
		monitor: *monitor, logLevel: *logLevel, options: opts,
	})

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	optionList, err := cfg.OptionList()
	if err != nil {
		logger.Error("bad option override", "err", err)
		os.Exit(1)
	}

	vendors, err := macvendor.NewDB()
	if err != nil {
		logger.Error("loading OUI database", "err", err)
		os.Exit(1)
	}

	app := &app{
		cfg:     cfg,
		options: optionList,
		vendors: vendors,
		log:     logger,
		jsonOut: *jsonOut,
		verbose: *verbose,
	}

	if cfg.Monitor.Enabled {
		os.Exit(app.runMonitor())
	}
	os.Exit(app.runOnce())
}

type flagValues struct {
	iface, mac, server, relay    string
	unicast                      bool
	retries                      int
	retryInterval                time.Duration
	clientPort, serverPort       int
	probe, checkDNS              bool
	leaseDB, logLevel            string
	monitor                      bool
	options                      []config.OptionConfig
}

// mergeFlags overlays set flags onto the file config. Flags win.
func mergeFlags(cfg *config.Config, fv flagValues) {
	if fv.iface != "" {
		cfg.Client.Interface = fv.iface
	}
	if fv.mac != "" {
		cfg.Client.MAC = fv.mac
	}
	if fv.server != "" {
		cfg.Client.Server = fv.server
		cfg.Client.Broadcast = false
	}
	if fv.relay != "" {
		cfg.Client.Relay = fv.relay
	}
	if fv.unicast {
		cfg.Client.Broadcast = false
	}
	if fv.retries > 0 {
		cfg.Client.MaxRetries = fv.retries
	}
	if fv.retryInterval > 0 {
		cfg.Client.RetryInterval = fv.retryInterval.String()
	}
	if fv.clientPort > 0 {
		cfg.Client.ClientPort = fv.clientPort
	}
	if fv.serverPort > 0 {
		cfg.Client.ServerPort = fv.serverPort
	}
	if fv.probe {
		cfg.Checks.Probe = true
	}
	if fv.checkDNS {
		cfg.Checks.DNS = true
	}
	if fv.leaseDB != "" {
		cfg.Checks.LeaseDB = fv.leaseDB
	}
	if fv.monitor {
		cfg.Monitor.Enabled = true
	}
	if fv.logLevel != "" {
		cfg.Log.Level = fv.logLevel
	}
	cfg.Options = append(cfg.Options, fv.options...)
}

type app struct {
	cfg     *config.Config
	options *dhcp.OptionList
	vendors *macvendor.DB
	log     *slog.Logger
	jsonOut bool
	verbose int
}

func (a *app) engineConfig() client.Config {
	return client.Config{
		Interface:     a.cfg.Client.Interface,
		MAC:           a.cfg.Client.MAC,
		Server:        a.cfg.ServerIP(),
		Relay:         a.cfg.RelayIP(),
		Broadcast:     a.cfg.Client.Broadcast,
		MaxRetries:    a.cfg.Client.MaxRetries,
		RetryInterval: config.Duration(a.cfg.Client.RetryInterval),
		PollInterval:  config.Duration(a.cfg.Client.PollInterval),
		ClientPort:    a.cfg.Client.ClientPort,
		ServerPort:    a.cfg.Client.ServerPort,
		Options:       a.options,
		Logger:        a.log,
	}
}

func (a *app) runOnce() int {
	lease, err := a.acquire()
	if err != nil {
		switch {
		case errors.Is(err, client.ErrNoOffer):
			a.log.Error("no offer received", "err", err)
		case errors.Is(err, client.ErrNoAck):
			a.log.Error("no ack received", "err", err)
		default:
			a.log.Error("acquisition failed", "err", err)
		}
		return 1
	}
	a.report(lease)
	a.runChecks(lease)
	return 0
}

func (a *app) runMonitor() int {
	nethttp.Handle("/metrics", promhttp.Handler())
	go func() {
		a.log.Info("metrics listening", "addr", a.cfg.Monitor.ListenAddress)
		if err := nethttp.ListenAndServe(a.cfg.Monitor.ListenAddress, nil); err != nil {
			a.log.Error("metrics server failed", "err", err)
		}
	}()

	interval := config.Duration(a.cfg.Monitor.Interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info("monitor mode", "interval", interval.String())
	for {
		if lease, err := a.acquire(); err != nil {
			a.log.Error("acquisition failed", "err", err)
		} else {
			a.runChecks(lease)
		}
		select {
		case <-stop:
			a.log.Info("shutting down")
			return 0
		case <-ticker.C:
		}
	}
}

func (a *app) acquire() (*client.Lease, error) {
	eng, err := client.New(a.engineConfig())
	if err != nil {
		return nil, err
	}
	defer eng.Close()
	return eng.Acquire()
}

func (a *app) report(lease *client.Lease) {
	if a.jsonOut {
		out := map[string]any{
			"mac":           dhcpv4.FormatMAC(lease.Ack.CHAddr),
			"ip":            lease.IP().String(),
			"server":        lease.Server.String(),
			"lease_seconds": lease.Ack.LeaseTime(),
			"elapsed_ms":    lease.Duration.Milliseconds(),
			"options":       lease.Ack.Options.ToValueMap(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
		return
	}

	if a.verbose >= 2 {
		for _, p := range []*dhcp.Packet{lease.Discover, lease.Offer, lease.Request, lease.Ack} {
			fmt.Println(pretty.FormatPacket(p, a.vendors))
		}
	}
	fmt.Printf("%s leased to %s by %s (%s, %s)\n",
		lease.IP(),
		dhcpv4.FormatMAC(lease.Ack.CHAddr),
		lease.Server,
		lease.Expiry(),
		lease.Duration.Round(time.Millisecond))
}

// runChecks performs the opt-in post-lease verifications: the duplicate
// address probe, the resolver check, and the history journal.
func (a *app) runChecks(lease *client.Lease) {
	if a.cfg.Checks.Probe {
		prober, err := conflict.NewProber(a.log)
		if err != nil {
			a.log.Error("starting prober", "err", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), config.Duration(a.cfg.Checks.ProbeTimeout))
			inUse, err := prober.Probe(ctx, lease.IP())
			cancel()
			prober.Close()
			switch {
			case err != nil:
				a.log.Error("probe failed", "err", err)
			case inUse:
				fmt.Printf("WARNING: %s already answers pings\n", lease.IP())
			default:
				a.log.Debug("leased address is clear", "ip", lease.IP().String())
			}
		}
	}

	if a.cfg.Checks.DNS {
		servers := leasedDNSServers(lease.Ack)
		if len(servers) == 0 {
			a.log.Warn("lease carries no DNS servers to check")
		} else {
			checker := dnscheck.New(a.cfg.Checks.DNSProbeName, config.Duration(a.cfg.Checks.DNSTimeout), a.log)
			for _, res := range checker.Check(context.Background(), servers) {
				if res.OK {
					fmt.Printf("dns %s: %s in %s\n", res.Server, res.Rcode, res.RTT.Round(time.Millisecond))
				} else {
					fmt.Printf("dns %s: UNREACHABLE (%v)\n", res.Server, res.Err)
				}
			}
		}
	}

	if a.cfg.Checks.LeaseDB != "" {
		if err := journalLease(a.cfg.Checks.LeaseDB, a.cfg.Client.Interface, lease); err != nil {
			a.log.Error("journaling lease", "err", err)
		}
	}
}

func journalLease(path, iface string, lease *client.Lease) error {
	j, err := leasedb.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()
	return j.Append(leasedb.Record{
		MAC:          dhcpv4.FormatMAC(lease.Ack.CHAddr),
		IP:           lease.IP().String(),
		Server:       lease.Server.String(),
		LeaseSeconds: lease.Ack.LeaseTime(),
		ElapsedMS:    lease.Duration.Milliseconds(),
		Interface:    iface,
	})
}

// leasedDNSServers pulls the DNS server list out of the Ack's option 6.
func leasedDNSServers(ack *dhcp.Packet) []net.IP {
	opt, ok := ack.Options.ByCode(dhcpv4.OptionDomainNameServer)
	if !ok {
		return nil
	}
	ips, err := dhcpv4.BytesToIPList(opt.Data)
	if err != nil {
		return nil
	}
	return ips
}
