package router

import "github.com/netstacklab/router/pkg/common"

// Link is the layer-2 collaborator the router forwards through. Interfaces
// are identified by small non-negative integers assigned at bring-up; the
// set is fixed for the router's lifetime.
//
// Recv blocks until a frame arrives on any interface. The router owns buf
// for the duration of one dispatch only.
type Link interface {
	// Recv fills buf with one complete Ethernet frame and returns its
	// length and the ingress interface.
	Recv(buf []byte) (n int, ifindex int, err error)

	// Send transmits frame out the given interface and returns the number
	// of bytes written.
	Send(ifindex int, frame []byte) (int, error)

	// IPv4 returns the IPv4 address assigned to an interface.
	IPv4(ifindex int) common.IPv4Address

	// MAC returns the hardware address of an interface.
	MAC(ifindex int) common.MACAddress

	// Interfaces returns the number of attached interfaces; valid indices
	// are 0 through Interfaces()-1.
	Interfaces() int
}
