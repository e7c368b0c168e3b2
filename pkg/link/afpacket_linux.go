//go:build linux

// Package link provides layer-2 implementations of the router's Link
// interface: raw AF_PACKET sockets on Linux and a pcap capture tap.
package link

import (
	"fmt"
	"log/slog"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/netstacklab/router/pkg/common"
)

type afIface struct {
	name string
	fd   int
	mac  common.MACAddress
	ip   common.IPv4Address
}

// AFPacket attaches to a fixed set of network interfaces with one raw
// AF_PACKET socket each. Interface indices follow the order of the names
// given at bring-up. Requires CAP_NET_RAW (typically root).
type AFPacket struct {
	ifaces  []afIface
	pollfds []unix.PollFd
	logger  *slog.Logger
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}

// OpenAFPacket brings up one raw socket per interface name. Each interface
// must be up and carry an IPv4 address.
func OpenAFPacket(names []string, logger *slog.Logger) (*AFPacket, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no interfaces given")
	}

	l := &AFPacket{logger: logger}
	for _, name := range names {
		iface, err := openIface(name)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("interface %s: %w", name, err)
		}
		l.ifaces = append(l.ifaces, iface)
		l.pollfds = append(l.pollfds, unix.PollFd{Fd: int32(iface.fd), Events: unix.POLLIN})
		logger.Info("interface up", "name", name, "ifindex", len(l.ifaces)-1, "mac", iface.mac, "ipv4", iface.ip)
	}
	return l, nil
}

func openIface(name string) (afIface, error) {
	nl, err := netlink.LinkByName(name)
	if err != nil {
		return afIface{}, fmt.Errorf("lookup: %w", err)
	}
	attrs := nl.Attrs()

	if len(attrs.HardwareAddr) != 6 {
		return afIface{}, fmt.Errorf("no Ethernet hardware address")
	}
	var mac common.MACAddress
	copy(mac[:], attrs.HardwareAddr)

	addrs, err := netlink.AddrList(nl, netlink.FAMILY_V4)
	if err != nil {
		return afIface{}, fmt.Errorf("list addresses: %w", err)
	}
	if len(addrs) == 0 {
		return afIface{}, fmt.Errorf("no IPv4 address assigned")
	}
	var ip common.IPv4Address
	copy(ip[:], addrs[0].IP.To4())

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return afIface{}, fmt.Errorf("raw socket: %w (CAP_NET_RAW required)", err)
	}
	sll := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  attrs.Index,
	}
	if err := unix.Bind(fd, sll); err != nil {
		unix.Close(fd)
		return afIface{}, fmt.Errorf("bind: %w", err)
	}

	return afIface{name: name, fd: fd, mac: mac, ip: ip}, nil
}

// Recv blocks until a frame is readable on any interface and reads it.
func (l *AFPacket) Recv(buf []byte) (int, int, error) {
	for {
		for i := range l.pollfds {
			l.pollfds[i].Revents = 0
		}
		if _, err := unix.Poll(l.pollfds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, 0, fmt.Errorf("poll: %w", err)
		}
		for i := range l.pollfds {
			if l.pollfds[i].Revents&unix.POLLIN == 0 {
				continue
			}
			n, err := unix.Read(l.ifaces[i].fd, buf)
			if err != nil {
				return 0, 0, fmt.Errorf("read %s: %w", l.ifaces[i].name, err)
			}
			return n, i, nil
		}
	}
}

// Send transmits a frame out the given interface.
func (l *AFPacket) Send(ifindex int, frame []byte) (int, error) {
	if ifindex < 0 || ifindex >= len(l.ifaces) {
		return 0, fmt.Errorf("unknown interface index %d", ifindex)
	}
	n, err := unix.Write(l.ifaces[ifindex].fd, frame)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", l.ifaces[ifindex].name, err)
	}
	return n, nil
}

// IPv4 returns the address assigned to an interface.
func (l *AFPacket) IPv4(ifindex int) common.IPv4Address {
	return l.ifaces[ifindex].ip
}

// MAC returns the hardware address of an interface.
func (l *AFPacket) MAC(ifindex int) common.MACAddress {
	return l.ifaces[ifindex].mac
}

// Interfaces returns the number of attached interfaces.
func (l *AFPacket) Interfaces() int {
	return len(l.ifaces)
}

// Name returns the system name of an interface.
func (l *AFPacket) Name(ifindex int) string {
	return l.ifaces[ifindex].name
}

// Close releases all sockets.
func (l *AFPacket) Close() error {
	var first error
	for _, iface := range l.ifaces {
		if err := unix.Close(iface.fd); err != nil && first == nil {
			first = err
		}
	}
	l.ifaces = nil
	l.pollfds = nil
	return first
}
