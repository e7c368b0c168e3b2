// Package icmp implements the subset of the Internet Control Message
// Protocol (RFC 792) the router speaks: Echo Reply, Destination Unreachable,
// and Time Exceeded.
package icmp

import (
	"encoding/binary"
	"fmt"

	"github.com/netstacklab/router/pkg/common"
)

// Type represents an ICMP message type.
type Type uint8

// Message types the router generates or inspects.
const (
	TypeEchoReply              Type = 0  // Echo Reply
	TypeDestinationUnreachable Type = 3  // Destination Unreachable
	TypeEchoRequest            Type = 8  // Echo Request
	TypeTimeExceeded           Type = 11 // Time Exceeded
)

// String returns a human-readable name for the ICMP type.
func (t Type) String() string {
	switch t {
	case TypeEchoReply:
		return "EchoReply"
	case TypeDestinationUnreachable:
		return "DestinationUnreachable"
	case TypeEchoRequest:
		return "EchoRequest"
	case TypeTimeExceeded:
		return "TimeExceeded"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// Code represents an ICMP message code. The router always emits code 0.
type Code uint8

const (
	// HeaderLength is the fixed ICMP header length: type, code, checksum,
	// and the 4-byte rest-of-header (identifier/sequence for echo, unused
	// for the error types).
	HeaderLength = 8

	// QuotationLength is the amount of the offending datagram quoted in
	// error messages: the original IPv4 header plus 8 bytes of payload.
	QuotationLength = 28
)

// Message represents an ICMP message. For echo messages ID and Sequence
// carry the identifier and sequence number; for the error types both are
// zero (the unused field of RFC 792).
type Message struct {
	Type     Type
	Code     Code
	Checksum uint16
	ID       uint16
	Sequence uint16
	Data     []byte
}

// Parse parses an ICMP message from raw bytes.
func Parse(data []byte) (*Message, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("ICMP message too short: %d bytes (minimum %d)", len(data), HeaderLength)
	}

	msg := &Message{
		Type:     Type(data[0]),
		Code:     Code(data[1]),
		Checksum: binary.BigEndian.Uint16(data[2:4]),
		ID:       binary.BigEndian.Uint16(data[4:6]),
		Sequence: binary.BigEndian.Uint16(data[6:8]),
	}

	if len(data) > HeaderLength {
		msg.Data = make([]byte, len(data)-HeaderLength)
		copy(msg.Data, data[HeaderLength:])
	}

	return msg, nil
}

// Serialize converts the message to bytes, computing and storing the
// checksum over the entire message including Data.
func (m *Message) Serialize() []byte {
	buf := make([]byte, HeaderLength+len(m.Data))

	buf[0] = uint8(m.Type)
	buf[1] = uint8(m.Code)
	// Checksum field stays zero while computing.
	binary.BigEndian.PutUint16(buf[4:6], m.ID)
	binary.BigEndian.PutUint16(buf[6:8], m.Sequence)
	copy(buf[HeaderLength:], m.Data)

	m.Checksum = common.CalculateChecksum(buf)
	binary.BigEndian.PutUint16(buf[2:4], m.Checksum)

	return buf
}

// VerifyChecksum verifies the message checksum over the full message.
func (m *Message) VerifyChecksum() bool {
	buf := make([]byte, HeaderLength+len(m.Data))
	buf[0] = uint8(m.Type)
	buf[1] = uint8(m.Code)
	binary.BigEndian.PutUint16(buf[2:4], m.Checksum)
	binary.BigEndian.PutUint16(buf[4:6], m.ID)
	binary.BigEndian.PutUint16(buf[6:8], m.Sequence)
	copy(buf[HeaderLength:], m.Data)

	return common.VerifyChecksum(buf)
}

// String returns a human-readable representation of the message.
func (m *Message) String() string {
	return fmt.Sprintf("ICMP{Type=%s, Code=%d, ID=%d, Seq=%d, DataLen=%d}",
		m.Type, m.Code, m.ID, m.Sequence, len(m.Data))
}

// NewEchoReply creates an Echo Reply mirroring a request's identifier,
// sequence number, and payload.
func NewEchoReply(id, sequence uint16, data []byte) *Message {
	return &Message{
		Type:     TypeEchoReply,
		Code:     0,
		ID:       id,
		Sequence: sequence,
		Data:     data,
	}
}

// NewTimeExceeded creates a Time Exceeded message quoting the offending
// datagram.
func NewTimeExceeded(quotation []byte) *Message {
	return &Message{
		Type: TypeTimeExceeded,
		Code: 0,
		Data: quotation,
	}
}

// NewDestinationUnreachable creates a Destination Unreachable message
// quoting the offending datagram.
func NewDestinationUnreachable(quotation []byte) *Message {
	return &Message{
		Type: TypeDestinationUnreachable,
		Code: 0,
		Data: quotation,
	}
}

// Quote extracts the error-message quotation from a raw IPv4 datagram: its
// header and the first 8 payload bytes. The result is always
// QuotationLength bytes; truncated datagrams are zero padded.
func Quote(datagram []byte) []byte {
	quotation := make([]byte, QuotationLength)
	copy(quotation, datagram)
	return quotation
}

// IsEchoRequest returns true if this is an Echo Request message.
func (m *Message) IsEchoRequest() bool {
	return m.Type == TypeEchoRequest
}
