package link

import (
	"io"
	"sync"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"

	"github.com/netstacklab/router/pkg/ethernet"
	"github.com/netstacklab/router/pkg/router"
)

// PcapTap wraps a Link and records every received and transmitted frame to
// a pcap stream for offline inspection. Capture is best-effort: a write
// failure is remembered but never disturbs forwarding.
type PcapTap struct {
	router.Link

	mu       sync.Mutex
	writer   *pcapgo.Writer
	writeErr error
}

// NewPcapTap starts a capture of inner's traffic into w, writing the pcap
// file header immediately.
func NewPcapTap(inner router.Link, w io.Writer) (*PcapTap, error) {
	writer := pcapgo.NewWriter(w)
	if err := writer.WriteFileHeader(ethernet.MaxFrameSize, layers.LinkTypeEthernet); err != nil {
		return nil, err
	}
	return &PcapTap{Link: inner, writer: writer}, nil
}

// Recv reads a frame from the inner link and records it.
func (t *PcapTap) Recv(buf []byte) (int, int, error) {
	n, ifindex, err := t.Link.Recv(buf)
	if err == nil {
		t.record(ifindex, buf[:n])
	}
	return n, ifindex, err
}

// Send records a frame and transmits it through the inner link.
func (t *PcapTap) Send(ifindex int, frame []byte) (int, error) {
	t.record(ifindex, frame)
	return t.Link.Send(ifindex, frame)
}

// Err returns the first capture write failure, if any.
func (t *PcapTap) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeErr
}

func (t *PcapTap) record(ifindex int, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ci := gopacket.CaptureInfo{
		Timestamp:      time.Now(),
		CaptureLength:  len(data),
		Length:         len(data),
		InterfaceIndex: ifindex,
	}
	if err := t.writer.WritePacket(ci, data); err != nil && t.writeErr == nil {
		t.writeErr = err
	}
}
