// Package ip implements the IPv4 header codec, the routing-table loader, and
// the longest-prefix-match trie used by the forwarder.
package ip

import (
	"encoding/binary"
	"fmt"

	"github.com/netstacklab/router/pkg/common"
)

const (
	// Version is the IP version number handled here.
	Version = 4

	// HeaderLength is the length of an IPv4 header without options (20 bytes).
	HeaderLength = 20

	// MaxHeaderLength is the maximum IPv4 header length (60 bytes).
	MaxHeaderLength = 60

	// DefaultTTL is the TTL the router stamps on datagrams it originates.
	DefaultTTL = 64
)

// Header represents an IPv4 header. The router generates headers without
// options only (IHL 5); inbound headers with options are carried through
// unmodified.
type Header struct {
	Version        uint8
	IHL            uint8 // header length in 32-bit words
	TOS            uint8
	TotalLength    uint16 // header + payload, bytes
	Identification uint16
	FlagsFragment  uint16 // flags (3 bits) and fragment offset (13 bits)
	TTL            uint8
	Protocol       common.Protocol
	Checksum       uint16
	Source         common.IPv4Address
	Destination    common.IPv4Address
}

// HeaderBytes returns the header length in bytes.
func (h *Header) HeaderBytes() int {
	return int(h.IHL) * 4
}

// ParseHeader parses an IPv4 header from the start of data.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("packet too short: %d bytes (minimum %d)", len(data), HeaderLength)
	}

	h := &Header{}
	h.Version = data[0] >> 4
	h.IHL = data[0] & 0x0F

	if h.Version != Version {
		return nil, fmt.Errorf("invalid IP version: %d", h.Version)
	}
	if h.IHL < 5 {
		return nil, fmt.Errorf("invalid IHL: %d (minimum 5)", h.IHL)
	}
	if len(data) < h.HeaderBytes() {
		return nil, fmt.Errorf("packet too short for header: %d bytes (expected %d)", len(data), h.HeaderBytes())
	}

	h.TOS = data[1]
	h.TotalLength = binary.BigEndian.Uint16(data[2:4])
	h.Identification = binary.BigEndian.Uint16(data[4:6])
	h.FlagsFragment = binary.BigEndian.Uint16(data[6:8])
	h.TTL = data[8]
	h.Protocol = common.Protocol(data[9])
	h.Checksum = binary.BigEndian.Uint16(data[10:12])
	copy(h.Source[:], data[12:16])
	copy(h.Destination[:], data[16:20])

	return h, nil
}

// Marshal serializes the header into a fresh 20-byte buffer, computing and
// storing the checksum. IHL is forced to 5; the router never emits options.
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderLength)

	h.IHL = 5
	buf[0] = (h.Version << 4) | h.IHL
	buf[1] = h.TOS
	binary.BigEndian.PutUint16(buf[2:4], h.TotalLength)
	binary.BigEndian.PutUint16(buf[4:6], h.Identification)
	binary.BigEndian.PutUint16(buf[6:8], h.FlagsFragment)
	buf[8] = h.TTL
	buf[9] = uint8(h.Protocol)
	// Checksum field stays zero while computing.
	copy(buf[12:16], h.Source[:])
	copy(buf[16:20], h.Destination[:])

	h.Checksum = common.CalculateChecksum(buf)
	binary.BigEndian.PutUint16(buf[10:12], h.Checksum)

	return buf
}

// ValidateChecksum recomputes the header checksum of a raw IPv4 header with
// the stored field treated as zero and compares it against the stored value.
// data must start at the IP header; the buffer itself is not modified.
func ValidateChecksum(data []byte) bool {
	if len(data) < HeaderLength {
		return false
	}
	hdrLen := int(data[0]&0x0F) * 4
	if hdrLen < HeaderLength || hdrLen > MaxHeaderLength || len(data) < hdrLen {
		return false
	}

	var scratch [MaxHeaderLength]byte
	copy(scratch[:hdrLen], data[:hdrLen])
	scratch[10] = 0
	scratch[11] = 0

	stored := binary.BigEndian.Uint16(data[10:12])
	return common.CalculateChecksum(scratch[:hdrLen]) == stored
}

// DecrementTTL decrements the TTL of a raw IPv4 header in place, patching
// the stored checksum incrementally instead of rescanning the header. The
// caller must have verified TTL > 1.
func DecrementTTL(data []byte) {
	checksum := binary.BigEndian.Uint16(data[10:12])
	ttl := data[8]
	checksum = common.DecrementTTLChecksum(checksum, ttl, common.Protocol(data[9]))
	binary.BigEndian.PutUint16(data[10:12], checksum)
	data[8] = ttl - 1
}

// String returns a human-readable representation of the header.
func (h *Header) String() string {
	return fmt.Sprintf("IPv4{%s -> %s, Proto=%s, TTL=%d, ID=%d, Len=%d}",
		h.Source, h.Destination, h.Protocol, h.TTL, h.Identification, h.TotalLength)
}
