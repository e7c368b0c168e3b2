package ethernet

import (
	"bytes"
	"testing"

	"github.com/netstacklab/router/pkg/common"
)

var (
	testDst = common.MACAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	testSrc = common.MACAddress{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
)

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	frame := NewFrame(testDst, testSrc, common.EtherTypeIPv4, payload)

	data := frame.Serialize()
	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parsed.Destination != testDst {
		t.Errorf("Destination = %v, want %v", parsed.Destination, testDst)
	}
	if parsed.Source != testSrc {
		t.Errorf("Source = %v, want %v", parsed.Source, testSrc)
	}
	if parsed.EtherType != common.EtherTypeIPv4 {
		t.Errorf("EtherType = %v, want IPv4", parsed.EtherType)
	}
	if !bytes.Equal(parsed.Payload, payload) {
		t.Errorf("Payload = %x, want %x", parsed.Payload, payload)
	}
}

func TestSerializeExactLength(t *testing.T) {
	// The codec must not pad: an ARP frame is exactly header + 28 bytes.
	frame := NewFrame(testDst, testSrc, common.EtherTypeARP, make([]byte, 28))
	if got := len(frame.Serialize()); got != HeaderSize+28 {
		t.Errorf("Serialize() length = %d, want %d", got, HeaderSize+28)
	}
}

func TestParseShortFrame(t *testing.T) {
	if _, err := Parse(make([]byte, HeaderSize-1)); err == nil {
		t.Error("Parse() expected error for short frame")
	}
}

func TestPatchAddresses(t *testing.T) {
	frame := NewFrame(testDst, testSrc, common.EtherTypeIPv4, []byte{1, 2, 3}).Serialize()

	newDst := common.MACAddress{0x02, 0x02, 0x02, 0x02, 0x02, 0x02}
	newSrc := common.MACAddress{0x04, 0x04, 0x04, 0x04, 0x04, 0x04}
	PatchAddresses(frame, newDst, newSrc)

	if DestinationAddress(frame) != newDst {
		t.Errorf("destination = %v, want %v", DestinationAddress(frame), newDst)
	}
	if SourceAddress(frame) != newSrc {
		t.Errorf("source = %v, want %v", SourceAddress(frame), newSrc)
	}
	// EtherType and payload untouched.
	parsed, err := Parse(frame)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.EtherType != common.EtherTypeIPv4 || !bytes.Equal(parsed.Payload, []byte{1, 2, 3}) {
		t.Error("PatchAddresses() disturbed EtherType or payload")
	}
}
