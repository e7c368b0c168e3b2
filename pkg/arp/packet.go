// Package arp implements the Address Resolution Protocol (ARP) for IPv4 over
// Ethernet: the wire codec and the router's bounded resolution cache.
package arp

import (
	"encoding/binary"
	"fmt"

	"github.com/netstacklab/router/pkg/common"
)

// ARP packet layout for Ethernet/IPv4 (RFC 826), 28 bytes:
//
//	offset 0   hardware type (1)
//	offset 2   protocol type (0x0800)
//	offset 4   hardware address length (6)
//	offset 5   protocol address length (4)
//	offset 6   operation
//	offset 8   sender hardware address
//	offset 14  sender protocol address
//	offset 18  target hardware address
//	offset 24  target protocol address
//
// The first six bytes never vary on this wire; only the operation and the
// four addresses carry information, and Header models exactly those.

const (
	// PacketSize is the size of an ARP packet for Ethernet/IPv4 (28 bytes).
	PacketSize = 28

	// HardwareTypeEthernet represents the Ethernet hardware type.
	HardwareTypeEthernet = 1

	// ProtocolTypeIPv4 represents the IPv4 protocol type (same as EtherType).
	ProtocolTypeIPv4 = 0x0800

	hardwareAddrLen = 6
	protocolAddrLen = 4
)

// Operation represents the ARP operation type.
type Operation uint16

const (
	// OperationRequest is an ARP request (who has this IP?).
	OperationRequest Operation = 1

	// OperationReply is an ARP reply (I have this IP, here's my MAC).
	OperationReply Operation = 2
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OperationRequest:
		return "Request"
	case OperationReply:
		return "Reply"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(op))
	}
}

// Header holds the variable fields of an Ethernet/IPv4 ARP packet. The
// fixed prologue (hardware type, protocol type, address lengths) is
// validated on parse and regenerated on marshal, never stored.
type Header struct {
	Operation Operation
	SenderMAC common.MACAddress
	SenderIP  common.IPv4Address
	TargetMAC common.MACAddress
	TargetIP  common.IPv4Address
}

// Parse decodes an ARP packet. Packets that are not Ethernet/IPv4 ARP, and
// packets whose operation is neither request nor reply, are rejected; the
// caller drops them silently.
func Parse(data []byte) (Header, error) {
	if len(data) < PacketSize {
		return Header{}, fmt.Errorf("ARP packet too short: %d bytes (expected %d)", len(data), PacketSize)
	}

	if htype := binary.BigEndian.Uint16(data[0:2]); htype != HardwareTypeEthernet {
		return Header{}, fmt.Errorf("unsupported hardware type: %d", htype)
	}
	if ptype := binary.BigEndian.Uint16(data[2:4]); ptype != ProtocolTypeIPv4 {
		return Header{}, fmt.Errorf("unsupported protocol type: 0x%04x", ptype)
	}
	if data[4] != hardwareAddrLen || data[5] != protocolAddrLen {
		return Header{}, fmt.Errorf("unexpected address lengths: %d/%d", data[4], data[5])
	}

	h := Header{Operation: Operation(binary.BigEndian.Uint16(data[6:8]))}
	if h.Operation != OperationRequest && h.Operation != OperationReply {
		return Header{}, fmt.Errorf("unknown ARP operation: %d", uint16(h.Operation))
	}

	copy(h.SenderMAC[:], data[8:14])
	copy(h.SenderIP[:], data[14:18])
	copy(h.TargetMAC[:], data[18:24])
	copy(h.TargetIP[:], data[24:28])
	return h, nil
}

// Marshal encodes the packet for transmission, stamping the fixed
// Ethernet/IPv4 prologue.
func (h Header) Marshal() []byte {
	data := make([]byte, PacketSize)

	binary.BigEndian.PutUint16(data[0:2], HardwareTypeEthernet)
	binary.BigEndian.PutUint16(data[2:4], ProtocolTypeIPv4)
	data[4] = hardwareAddrLen
	data[5] = protocolAddrLen
	binary.BigEndian.PutUint16(data[6:8], uint16(h.Operation))

	copy(data[8:14], h.SenderMAC[:])
	copy(data[14:18], h.SenderIP[:])
	copy(data[18:24], h.TargetMAC[:])
	copy(data[24:28], h.TargetIP[:])
	return data
}

// String returns a human-readable representation of the packet.
func (h Header) String() string {
	return fmt.Sprintf("ARP{Op=%s, Sender=%s(%s), Target=%s(%s)}",
		h.Operation, h.SenderIP, h.SenderMAC, h.TargetIP, h.TargetMAC)
}

// NewRequest builds a request asking "who has targetIP?". The target
// hardware address stays zero for the recipient to fill in.
func NewRequest(senderMAC common.MACAddress, senderIP, targetIP common.IPv4Address) Header {
	return Header{
		Operation: OperationRequest,
		SenderMAC: senderMAC,
		SenderIP:  senderIP,
		TargetIP:  targetIP,
	}
}

// NewReply builds a reply stating "senderIP is at senderMAC".
func NewReply(senderMAC common.MACAddress, senderIP common.IPv4Address, targetMAC common.MACAddress, targetIP common.IPv4Address) Header {
	return Header{
		Operation: OperationReply,
		SenderMAC: senderMAC,
		SenderIP:  senderIP,
		TargetMAC: targetMAC,
		TargetIP:  targetIP,
	}
}

// ReplyTo builds the reply to an incoming request: the request's sender
// becomes the target, and the answering interface's addresses become the
// sender.
func ReplyTo(request Header, ifaceMAC common.MACAddress, ifaceIP common.IPv4Address) Header {
	return NewReply(ifaceMAC, ifaceIP, request.SenderMAC, request.SenderIP)
}
