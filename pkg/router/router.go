// Package router implements the dataplane core of a small IPv4 router: a
// single-threaded dispatch loop that forwards IPv4 datagrams by
// longest-prefix match, resolves next-hop MAC addresses over ARP while
// parking packets that cannot be sent yet, and answers a minimal subset of
// ICMP.
package router

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/netstacklab/router/pkg/arp"
	"github.com/netstacklab/router/pkg/common"
	"github.com/netstacklab/router/pkg/ethernet"
	"github.com/netstacklab/router/pkg/icmp"
	"github.com/netstacklab/router/pkg/ip"
)

// Config carries the router's startup state.
type Config struct {
	// Routes is the static routing table.
	Routes []ip.Route

	// Logger receives structured diagnostics; nil uses slog.Default().
	// Per-frame events log at Debug; a full ARP cache, a full pending
	// queue, and a failed send log at Warn.
	Logger *slog.Logger

	// ARPCacheCapacity bounds the neighbor cache; zero means
	// arp.DefaultCacheCapacity.
	ARPCacheCapacity int

	// PendingCapacity bounds the queue of packets awaiting ARP resolution;
	// zero means DefaultPendingCapacity.
	PendingCapacity int
}

// Router is the packet-processing core. It is not safe for concurrent use:
// exactly one frame is processed at a time, run to completion.
type Router struct {
	link      Link
	routes    *ip.Trie
	neighbors *arp.Cache
	pending   *pendingQueue
	requested map[common.IPv4Address]struct{}
	logger    *slog.Logger
}

// New creates a router forwarding through link.
func New(link Link, cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		link:      link,
		routes:    ip.BuildTrie(cfg.Routes),
		neighbors: arp.NewCache(cfg.ARPCacheCapacity),
		pending:   newPendingQueue(cfg.PendingCapacity),
		requested: make(map[common.IPv4Address]struct{}),
		logger:    logger,
	}
}

// Run receives frames from the link and dispatches them until the link
// fails. Per-frame errors never propagate; the dispatch is an event sink.
func (r *Router) Run() error {
	buf := make([]byte, ethernet.MaxFrameSize)
	for {
		n, ifindex, err := r.link.Recv(buf)
		if err != nil {
			return fmt.Errorf("link receive: %w", err)
		}
		if ifindex < 0 || ifindex >= r.link.Interfaces() {
			r.logger.Debug("dropping frame from unknown interface", "ifindex", ifindex)
			continue
		}
		r.HandleFrame(ifindex, buf[:n])
	}
}

// HandleFrame processes one Ethernet frame received on ifindex. The frame
// buffer may be rewritten in place and must not be reused by the caller
// until HandleFrame returns.
func (r *Router) HandleFrame(ifindex int, frame []byte) {
	if len(frame) < ethernet.HeaderSize {
		r.logger.Debug("dropping short frame", "ifindex", ifindex, "len", len(frame))
		return
	}

	switch et := common.EtherType(binary.BigEndian.Uint16(frame[12:14])); et {
	case common.EtherTypeIPv4:
		r.handleIPv4(ifindex, frame)
	case common.EtherTypeARP:
		r.handleARP(ifindex, frame)
	default:
		r.logger.Debug("dropping frame with unhandled EtherType", "ifindex", ifindex, "ethertype", et)
	}
}

// Announce broadcasts a gratuitous ARP for every interface, advertising its
// IPv4/MAC binding to the attached segments.
func (r *Router) Announce() error {
	for i := 0; i < r.link.Interfaces(); i++ {
		packet := arp.NewRequest(r.link.MAC(i), r.link.IPv4(i), r.link.IPv4(i))
		frame := ethernet.NewFrame(common.BroadcastMAC, r.link.MAC(i), common.EtherTypeARP, packet.Marshal())
		if _, err := r.link.Send(i, frame.Serialize()); err != nil {
			return fmt.Errorf("announce on interface %d: %w", i, err)
		}
	}
	return nil
}

// handleARP implements the ARP engine: answer requests for our own
// addresses, learn from replies, and release any packets waiting on the
// resolved next hop.
func (r *Router) handleARP(ifindex int, frame []byte) {
	packet, err := arp.Parse(frame[ethernet.HeaderSize:])
	if err != nil {
		r.logger.Debug("dropping malformed ARP packet", "ifindex", ifindex, "err", err)
		return
	}

	switch packet.Operation {
	case arp.OperationRequest:
		// Only requests targeting the ingress interface's own address are
		// answered; the cache is not updated from requests.
		if packet.TargetIP != r.link.IPv4(ifindex) {
			return
		}
		reply := arp.ReplyTo(packet, r.link.MAC(ifindex), r.link.IPv4(ifindex))
		out := ethernet.NewFrame(packet.SenderMAC, r.link.MAC(ifindex), common.EtherTypeARP, reply.Marshal())
		r.transmit(ifindex, out.Serialize())

	case arp.OperationReply:
		if !r.neighbors.Insert(packet.SenderIP, packet.SenderMAC) {
			r.logger.Warn("ARP cache full, binding not stored", "ip", packet.SenderIP)
		}
		delete(r.requested, packet.SenderIP)
		r.drainPending(packet.SenderIP, packet.SenderMAC)
	}
}

// drainPending completes and transmits every parked packet waiting on the
// freshly resolved next hop. Packets waiting on other next hops keep their
// relative order.
func (r *Router) drainPending(nextHop common.IPv4Address, mac common.MACAddress) {
	for _, p := range r.pending.takeMatching(nextHop) {
		ethernet.PatchAddresses(p.frame, mac, r.link.MAC(p.ifindex))
		r.transmit(p.ifindex, p.frame)
	}
}

// handleIPv4 implements the forwarder: validate, deliver locally, or route
// toward the next hop, deferring through the pending queue when the next
// hop's MAC is unknown.
func (r *Router) handleIPv4(ifindex int, frame []byte) {
	datagram := frame[ethernet.HeaderSize:]
	header, err := ip.ParseHeader(datagram)
	if err != nil {
		r.logger.Debug("dropping malformed IPv4 packet", "ifindex", ifindex, "err", err)
		return
	}
	if !ip.ValidateChecksum(datagram) {
		r.logger.Debug("dropping IPv4 packet with bad header checksum", "ifindex", ifindex)
		return
	}

	// The link layer may pad short frames; the IP total length bounds the
	// datagram proper.
	end := int(header.TotalLength)
	if end > len(datagram) {
		end = len(datagram)
	}
	if end < header.HeaderBytes() {
		r.logger.Debug("dropping IPv4 packet with bad total length", "ifindex", ifindex)
		return
	}
	datagram = datagram[:end]

	if header.Destination == r.link.IPv4(ifindex) {
		r.deliverLocal(ifindex, frame, header, datagram)
		return
	}

	nextHop, egress, ok := r.routes.Lookup(header.Destination)
	if !ok {
		r.respondICMP(ifindex, frame, header, icmp.NewDestinationUnreachable(icmp.Quote(datagram)))
		return
	}
	if header.TTL <= 1 {
		r.respondICMP(ifindex, frame, header, icmp.NewTimeExceeded(icmp.Quote(datagram)))
		return
	}

	ip.DecrementTTL(frame[ethernet.HeaderSize:])

	if mac, found := r.neighbors.Lookup(nextHop); found {
		ethernet.PatchAddresses(frame, mac, r.link.MAC(egress))
		r.transmit(egress, frame)
		return
	}

	// Unresolved next hop: park a snapshot of the (already rewritten)
	// frame and resolve, at most one outstanding request per next hop.
	snapshot := make([]byte, len(frame))
	copy(snapshot, frame)
	if !r.pending.enqueue(pendingPacket{frame: snapshot, ifindex: egress, nextHop: nextHop}) {
		r.logger.Warn("pending queue full, dropping packet", "next_hop", nextHop)
		return
	}
	if _, outstanding := r.requested[nextHop]; !outstanding {
		r.requested[nextHop] = struct{}{}
		r.sendARPRequest(egress, nextHop)
	}
}

// deliverLocal handles datagrams addressed to the ingress interface. Only
// ICMP Echo Requests are answered; everything else addressed to the router
// is dropped.
func (r *Router) deliverLocal(ifindex int, frame []byte, header *ip.Header, datagram []byte) {
	if header.Protocol != common.ProtocolICMP {
		r.logger.Debug("dropping local delivery for unhandled protocol", "protocol", header.Protocol)
		return
	}
	message, err := icmp.Parse(datagram[header.HeaderBytes():])
	if err != nil || !message.IsEchoRequest() {
		r.logger.Debug("dropping local delivery that is not an echo request")
		return
	}
	r.respondICMP(ifindex, frame, header, icmp.NewEchoReply(message.ID, message.Sequence, message.Data))
}

// respondICMP synthesizes an ICMP datagram back to the original sender and
// transmits it on the ingress interface. The new IPv4 header swaps the
// addresses, sourcing from the ingress interface.
func (r *Router) respondICMP(ifindex int, inbound []byte, header *ip.Header, message *icmp.Message) {
	payload := message.Serialize()

	ipHeader := &ip.Header{
		Version:        ip.Version,
		IHL:            5,
		TOS:            0,
		TotalLength:    uint16(ip.HeaderLength + len(payload)),
		Identification: 1,
		FlagsFragment:  0,
		TTL:            ip.DefaultTTL,
		Protocol:       common.ProtocolICMP,
		Source:         r.link.IPv4(ifindex),
		Destination:    header.Source,
	}

	datagram := append(ipHeader.Marshal(), payload...)
	out := ethernet.NewFrame(
		ethernet.SourceAddress(inbound),
		r.link.MAC(ifindex),
		common.EtherTypeIPv4,
		datagram,
	)
	r.transmit(ifindex, out.Serialize())
}

// sendARPRequest broadcasts a request for nextHop out the egress interface.
func (r *Router) sendARPRequest(egress int, nextHop common.IPv4Address) {
	request := arp.NewRequest(r.link.MAC(egress), r.link.IPv4(egress), nextHop)
	frame := ethernet.NewFrame(common.BroadcastMAC, r.link.MAC(egress), common.EtherTypeARP, request.Marshal())
	r.transmit(egress, frame.Serialize())
}

// transmit sends a frame, absorbing link errors: a failed send drops the
// frame and the event continues.
func (r *Router) transmit(ifindex int, frame []byte) {
	if _, err := r.link.Send(ifindex, frame); err != nil {
		r.logger.Warn("link send failed", "ifindex", ifindex, "err", err)
	}
}

// Neighbors exposes the ARP cache, primarily for inspection and seeding.
func (r *Router) Neighbors() *arp.Cache {
	return r.neighbors
}

// PendingPackets returns the number of packets parked for ARP resolution.
func (r *Router) PendingPackets() int {
	return r.pending.len()
}
