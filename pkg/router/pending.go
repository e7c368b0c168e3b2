package router

import "github.com/netstacklab/router/pkg/common"

// DefaultPendingCapacity bounds the queue of packets parked while their next
// hop resolves. At capacity, new packets are dropped rather than queued.
const DefaultPendingCapacity = 1024

// pendingPacket is a snapshot of a frame taken at the moment forwarding was
// deferred. The Ethernet addresses are completed at drain time; everything
// else, including the already-decremented TTL and patched checksum, is
// final.
type pendingPacket struct {
	frame   []byte
	ifindex int // egress interface chosen by the route lookup
	nextHop common.IPv4Address
}

// pendingQueue is a FIFO of pending packets.
type pendingQueue struct {
	packets  []pendingPacket
	capacity int
}

func newPendingQueue(capacity int) *pendingQueue {
	if capacity <= 0 {
		capacity = DefaultPendingCapacity
	}
	return &pendingQueue{capacity: capacity}
}

// enqueue appends p and reports whether it was stored; a full queue rejects.
func (q *pendingQueue) enqueue(p pendingPacket) bool {
	if len(q.packets) >= q.capacity {
		return false
	}
	q.packets = append(q.packets, p)
	return true
}

// takeMatching removes and returns, in FIFO order, every packet whose next
// hop equals nextHop. Retained packets keep their original relative order.
func (q *pendingQueue) takeMatching(nextHop common.IPv4Address) []pendingPacket {
	var matched []pendingPacket
	retained := q.packets[:0]
	for _, p := range q.packets {
		if p.nextHop == nextHop {
			matched = append(matched, p)
		} else {
			retained = append(retained, p)
		}
	}
	// Clear the tail so dropped snapshots can be collected.
	for i := len(retained); i < len(q.packets); i++ {
		q.packets[i] = pendingPacket{}
	}
	q.packets = retained
	return matched
}

func (q *pendingQueue) len() int {
	return len(q.packets)
}
