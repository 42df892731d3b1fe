package client

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

// socketTransport is the production Transport: non-blocking UDP sockets with
// broadcast and address reuse enabled. One socket bound to the client port
// sends and receives; extra listeners cover the server-facing port, since
// some servers reply from and to port 67.
type socketTransport struct {
	sendFD int
	fds    []int // every socket polled for readiness, sendFD included
	dest   unix.SockaddrInet4
}

func newSocketTransport(cfg *Config) (*socketTransport, error) {
	t := &socketTransport{}

	sendFD, err := openSocket(cfg.ClientPort, cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("opening client socket: %w", err)
	}
	t.sendFD = sendFD
	t.fds = append(t.fds, sendFD)

	if cfg.ServerPort != cfg.ClientPort {
		listenFD, err := openSocket(cfg.ServerPort, cfg.Interface)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("opening listener on port %d: %w", cfg.ServerPort, err)
		}
		t.fds = append(t.fds, listenFD)
	}

	ip4 := cfg.Server.To4()
	if ip4 == nil {
		t.Close()
		return nil, fmt.Errorf("server address %s is not IPv4", cfg.Server)
	}
	t.dest = unix.SockaddrInet4{Port: cfg.ServerPort}
	copy(t.dest.Addr[:], ip4)

	return t, nil
}

// openSocket creates a non-blocking UDP socket bound to port, optionally tied
// to a named interface. When device-level binding is unsupported, it falls
// back to binding the interface's own address.
func openSocket(port int, iface string) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}

	for _, opt := range []int{unix.SO_REUSEADDR, unix.SO_REUSEPORT, unix.SO_BROADCAST} {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, opt, 1); err != nil {
			unix.Close(fd)
			return -1, fmt.Errorf("setsockopt %d: %w", opt, err)
		}
	}

	sa := unix.SockaddrInet4{Port: port}
	if iface != "" {
		if err := unix.BindToDevice(fd, iface); err != nil {
			addr, ferr := interfaceAddr(iface)
			if ferr != nil {
				unix.Close(fd)
				return -1, fmt.Errorf("binding to device %s: %w", iface, err)
			}
			copy(sa.Addr[:], addr)
		}
	}

	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind port %d: %w", port, err)
	}
	return fd, nil
}

// interfaceAddr returns the first IPv4 address assigned to a named interface.
func interfaceAddr(name string) (net.IP, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok {
			if ip4 := ipn.IP.To4(); ip4 != nil {
				return ip4, nil
			}
		}
	}
	return nil, fmt.Errorf("interface %s has no IPv4 address", name)
}

func (t *socketTransport) Send(pkt []byte) error {
	return unix.Sendto(t.sendFD, pkt, 0, &t.dest)
}

// Recv polls every socket with a zero timeout and drains the first ready one.
// Returns ErrNoData when nothing is ready; the engine owns the poll-interval
// sleep.
func (t *socketTransport) Recv() ([]byte, *net.UDPAddr, error) {
	pollFDs := make([]unix.PollFd, len(t.fds))
	for i, fd := range t.fds {
		pollFDs[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	n, err := unix.Poll(pollFDs, 0)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil, ErrNoData
		}
		return nil, nil, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return nil, nil, ErrNoData
	}

	for i, pfd := range pollFDs {
		if pfd.Revents&unix.POLLIN == 0 {
			continue
		}
		buf := make([]byte, dhcpv4.MaxPacketSize)
		nr, from, err := unix.Recvfrom(t.fds[i], buf, 0)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				continue
			}
			return nil, nil, fmt.Errorf("recvfrom: %w", err)
		}
		return buf[:nr], udpAddr(from), nil
	}
	return nil, nil, ErrNoData
}

func (t *socketTransport) Close() error {
	var first error
	for _, fd := range t.fds {
		if err := unix.Close(fd); err != nil && first == nil {
			first = err
		}
	}
	t.fds = nil
	return first
}

func udpAddr(sa unix.Sockaddr) *net.UDPAddr {
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return nil
	}
	ip := make(net.IP, 4)
	copy(ip, in4.Addr[:])
	return &net.UDPAddr{IP: ip, Port: in4.Port}
}
