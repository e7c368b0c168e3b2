// Package ethernet implements Ethernet II frame handling for the router's
// layer-2 ingress and egress.
package ethernet

import (
	"encoding/binary"
	"fmt"

	"github.com/netstacklab/router/pkg/common"
)

// Ethernet II frame format:
// +-------------------+-------------------+----------+---------+
// | Destination (6B)  | Source (6B)       | Type (2B)| Payload |
// +-------------------+-------------------+----------+---------+
//
// The FCS is handled by the hardware and never appears in these buffers.

const (
	// HeaderSize is the size of an Ethernet header (14 bytes).
	HeaderSize = 14

	// MaxFrameSize is the largest frame the router accepts from a link.
	MaxFrameSize = 1600
)

// Frame represents an Ethernet II frame.
type Frame struct {
	Destination common.MACAddress
	Source      common.MACAddress
	EtherType   common.EtherType
	Payload     []byte
}

// Parse parses an Ethernet frame from raw bytes. The payload aliases data;
// callers that hold the frame past the current event must copy it.
func Parse(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("ethernet frame too short: %d bytes", len(data))
	}

	frame := &Frame{}
	copy(frame.Destination[:], data[0:6])
	copy(frame.Source[:], data[6:12])
	frame.EtherType = common.EtherType(binary.BigEndian.Uint16(data[12:14]))
	frame.Payload = data[HeaderSize:]

	return frame, nil
}

// Serialize converts the frame to bytes for transmission. The emitted frame
// is exactly header plus payload long; no minimum-size padding is inserted.
func (f *Frame) Serialize() []byte {
	frame := make([]byte, HeaderSize+len(f.Payload))
	copy(frame[0:6], f.Destination[:])
	copy(frame[6:12], f.Source[:])
	binary.BigEndian.PutUint16(frame[12:14], uint16(f.EtherType))
	copy(frame[HeaderSize:], f.Payload)
	return frame
}

// String returns a human-readable representation of the frame.
func (f *Frame) String() string {
	return fmt.Sprintf("Ethernet{Dst=%s, Src=%s, Type=%s, PayloadLen=%d}",
		f.Destination, f.Source, f.EtherType, len(f.Payload))
}

// NewFrame creates a new Ethernet frame.
func NewFrame(dst, src common.MACAddress, etherType common.EtherType, payload []byte) *Frame {
	return &Frame{
		Destination: dst,
		Source:      src,
		EtherType:   etherType,
		Payload:     payload,
	}
}

// PatchAddresses overwrites the destination and source MAC addresses of a
// serialized frame in place, leaving the EtherType and payload untouched.
// The forwarder uses this when rewriting a frame toward its next hop.
func PatchAddresses(frame []byte, dst, src common.MACAddress) {
	copy(frame[0:6], dst[:])
	copy(frame[6:12], src[:])
}

// SourceAddress returns the source MAC of a serialized frame.
func SourceAddress(frame []byte) common.MACAddress {
	var mac common.MACAddress
	copy(mac[:], frame[6:12])
	return mac
}

// DestinationAddress returns the destination MAC of a serialized frame.
func DestinationAddress(frame []byte) common.MACAddress {
	var mac common.MACAddress
	copy(mac[:], frame[0:6])
	return mac
}
