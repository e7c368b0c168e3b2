package router

import (
	"testing"

	"github.com/netstacklab/router/pkg/common"
)

func pkt(nextHop common.IPv4Address, tag byte) pendingPacket {
	return pendingPacket{frame: []byte{tag}, ifindex: 1, nextHop: nextHop}
}

func TestPendingQueueDrainPreservesOrder(t *testing.T) {
	nh1 := common.IPv4Address{192, 168, 1, 1}
	nh2 := common.IPv4Address{192, 168, 2, 1}

	q := newPendingQueue(0)
	q.enqueue(pkt(nh1, 'a'))
	q.enqueue(pkt(nh2, 'b'))
	q.enqueue(pkt(nh1, 'c'))
	q.enqueue(pkt(nh2, 'd'))

	matched := q.takeMatching(nh1)
	if len(matched) != 2 || matched[0].frame[0] != 'a' || matched[1].frame[0] != 'c' {
		t.Fatalf("takeMatching(nh1) = %v", matched)
	}

	// Retained packets keep their relative order.
	if q.len() != 2 {
		t.Fatalf("len() = %d, want 2", q.len())
	}
	rest := q.takeMatching(nh2)
	if len(rest) != 2 || rest[0].frame[0] != 'b' || rest[1].frame[0] != 'd' {
		t.Fatalf("takeMatching(nh2) = %v", rest)
	}
	if q.len() != 0 {
		t.Errorf("len() = %d after full drain, want 0", q.len())
	}
}

func TestPendingQueueNoMatch(t *testing.T) {
	q := newPendingQueue(0)
	q.enqueue(pkt(common.IPv4Address{10, 0, 0, 1}, 'a'))

	if matched := q.takeMatching(common.IPv4Address{10, 0, 0, 2}); matched != nil {
		t.Errorf("takeMatching() = %v, want nil", matched)
	}
	if q.len() != 1 {
		t.Errorf("len() = %d, want 1", q.len())
	}
}

func TestPendingQueueCapacity(t *testing.T) {
	q := newPendingQueue(2)
	nh := common.IPv4Address{10, 0, 0, 1}

	if !q.enqueue(pkt(nh, 'a')) || !q.enqueue(pkt(nh, 'b')) {
		t.Fatal("enqueue() failed below capacity")
	}
	if q.enqueue(pkt(nh, 'c')) {
		t.Error("enqueue() = true on full queue, want false")
	}
	if q.len() != 2 {
		t.Errorf("len() = %d, want 2", q.len())
	}
}
