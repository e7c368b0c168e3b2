package arp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/netstacklab/router/pkg/common"
)

var (
	ifaceMAC  = common.MACAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	ifaceIP   = common.IPv4Address{192, 168, 1, 254}
	remoteMAC = common.MACAddress{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	remoteIP  = common.IPv4Address{192, 168, 1, 1}
)

func TestRequestWireFormat(t *testing.T) {
	data := NewRequest(ifaceMAC, ifaceIP, remoteIP).Marshal()

	if len(data) != PacketSize {
		t.Fatalf("Marshal() length = %d, want %d", len(data), PacketSize)
	}

	want := []byte{
		0x00, 0x01, // hardware type: Ethernet
		0x08, 0x00, // protocol type: IPv4
		0x06, 0x04, // address lengths
		0x00, 0x01, // operation: request
		0x02, 0x00, 0x00, 0x00, 0x00, 0x01, // sender hardware
		192, 168, 1, 254, // sender protocol
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // target hardware: unknown
		192, 168, 1, 1, // target protocol
	}
	if !bytes.Equal(data, want) {
		t.Errorf("Marshal() = %x\nwant        %x", data, want)
	}
}

func TestParseReply(t *testing.T) {
	parsed, err := Parse(NewReply(remoteMAC, remoteIP, ifaceMAC, ifaceIP).Marshal())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parsed.Operation != OperationReply {
		t.Errorf("operation = %v, want reply", parsed.Operation)
	}
	if parsed.SenderMAC != remoteMAC || parsed.SenderIP != remoteIP {
		t.Errorf("sender = %s(%s)", parsed.SenderIP, parsed.SenderMAC)
	}
	if parsed.TargetMAC != ifaceMAC || parsed.TargetIP != ifaceIP {
		t.Errorf("target = %s(%s)", parsed.TargetIP, parsed.TargetMAC)
	}
}

func TestRequestLeavesTargetHardwareZero(t *testing.T) {
	parsed, err := Parse(NewRequest(ifaceMAC, ifaceIP, remoteIP).Marshal())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.Operation != OperationRequest {
		t.Errorf("operation = %v, want request", parsed.Operation)
	}
	if !parsed.TargetMAC.IsZero() {
		t.Errorf("target hardware address = %s, want zero", parsed.TargetMAC)
	}
}

func TestReplyTo(t *testing.T) {
	request := NewRequest(remoteMAC, remoteIP, ifaceIP)
	reply := ReplyTo(request, ifaceMAC, ifaceIP)

	if reply.Operation != OperationReply {
		t.Fatal("ReplyTo() did not produce a reply")
	}
	if reply.SenderMAC != ifaceMAC || reply.SenderIP != ifaceIP {
		t.Errorf("reply sender = %s(%s), want %s(%s)",
			reply.SenderIP, reply.SenderMAC, ifaceIP, ifaceMAC)
	}
	if reply.TargetMAC != remoteMAC || reply.TargetIP != remoteIP {
		t.Errorf("reply target = %s(%s), want %s(%s)",
			reply.TargetIP, reply.TargetMAC, remoteIP, remoteMAC)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	valid := NewRequest(ifaceMAC, ifaceIP, remoteIP).Marshal()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short packet", func(b []byte) []byte { return b[:PacketSize-1] }},
		{"bad hardware type", func(b []byte) []byte { b[1] = 99; return b }},
		{"bad protocol type", func(b []byte) []byte { b[2] = 0x86; b[3] = 0xDD; return b }},
		{"bad hardware length", func(b []byte) []byte { b[4] = 8; return b }},
		{"bad protocol length", func(b []byte) []byte { b[5] = 16; return b }},
		{"unknown operation", func(b []byte) []byte {
			binary.BigEndian.PutUint16(b[6:8], 3) // RARP request
			return b
		}},
		{"zero operation", func(b []byte) []byte {
			binary.BigEndian.PutUint16(b[6:8], 0)
			return b
		}},
	}
	for _, tt := range tests {
		data := make([]byte, len(valid))
		copy(data, valid)
		if _, err := Parse(tt.mutate(data)); err == nil {
			t.Errorf("%s: Parse() expected error", tt.name)
		}
	}
}
