package ip

import (
	"encoding/binary"
	"testing"

	"github.com/netstacklab/router/pkg/common"
)

func testHeader(ttl uint8) *Header {
	return &Header{
		Version:        Version,
		IHL:            5,
		TotalLength:    HeaderLength + 8,
		Identification: 7,
		TTL:            ttl,
		Protocol:       common.ProtocolICMP,
		Source:         common.IPv4Address{192, 168, 0, 9},
		Destination:    common.IPv4Address{10, 0, 0, 7},
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	data := testHeader(64).Marshal()
	if len(data) != HeaderLength {
		t.Fatalf("Marshal() length = %d, want %d", len(data), HeaderLength)
	}

	parsed, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if parsed.Version != Version || parsed.IHL != 5 {
		t.Errorf("version/IHL = %d/%d", parsed.Version, parsed.IHL)
	}
	if parsed.TotalLength != HeaderLength+8 || parsed.Identification != 7 {
		t.Errorf("length/id = %d/%d", parsed.TotalLength, parsed.Identification)
	}
	if parsed.TTL != 64 || parsed.Protocol != common.ProtocolICMP {
		t.Errorf("ttl/protocol = %d/%v", parsed.TTL, parsed.Protocol)
	}
	if parsed.Source != (common.IPv4Address{192, 168, 0, 9}) ||
		parsed.Destination != (common.IPv4Address{10, 0, 0, 7}) {
		t.Errorf("addresses = %s -> %s", parsed.Source, parsed.Destination)
	}
}

func TestParseHeaderRejectsMalformed(t *testing.T) {
	valid := testHeader(64).Marshal()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short", func(b []byte) []byte { return b[:HeaderLength-1] }},
		{"version 6", func(b []byte) []byte { b[0] = 0x65; return b }},
		{"IHL below minimum", func(b []byte) []byte { b[0] = 0x44; return b }},
		{"options beyond buffer", func(b []byte) []byte { b[0] = 0x4F; return b }},
	}
	for _, tt := range tests {
		data := make([]byte, len(valid))
		copy(data, valid)
		if _, err := ParseHeader(tt.mutate(data)); err == nil {
			t.Errorf("%s: ParseHeader() expected error", tt.name)
		}
	}
}

func TestValidateChecksum(t *testing.T) {
	data := testHeader(64).Marshal()
	if !ValidateChecksum(data) {
		t.Fatal("ValidateChecksum() = false for a marshaled header")
	}

	// Any single-bit corruption must be caught.
	data[16] ^= 0x01
	if ValidateChecksum(data) {
		t.Error("ValidateChecksum() = true for a corrupted header")
	}
	data[16] ^= 0x01

	// A wrong stored checksum must be caught.
	binary.BigEndian.PutUint16(data[10:12], binary.BigEndian.Uint16(data[10:12])+1)
	if ValidateChecksum(data) {
		t.Error("ValidateChecksum() = true for a bad stored checksum")
	}
}

func TestDecrementTTL(t *testing.T) {
	for ttl := uint8(2); ttl != 0; ttl++ {
		data := testHeader(ttl).Marshal()

		DecrementTTL(data)

		if data[8] != ttl-1 {
			t.Fatalf("TTL after decrement = %d, want %d", data[8], ttl-1)
		}
		if !ValidateChecksum(data) {
			t.Fatalf("ttl=%d: incrementally patched checksum does not validate", ttl)
		}
	}
}
