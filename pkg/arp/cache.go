package arp

import (
	"fmt"
	"strings"
	"sync"

	"github.com/netstacklab/router/pkg/common"
)

// DefaultCacheCapacity bounds the number of resolved next hops the router
// keeps. Entries are assumed stable for the router's lifetime.
const DefaultCacheCapacity = 1024

// Entry is a single IP-to-MAC binding in the cache.
type Entry struct {
	IP  common.IPv4Address
	MAC common.MACAddress
}

// Cache maps IPv4 addresses to MAC addresses. It is insert-only with a fixed
// capacity: the first binding observed for an IP wins, later inserts for the
// same IP are no-ops, and inserts into a full cache are rejected. There is no
// aging and no eviction.
type Cache struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
}

// NewCache creates a cache holding at most capacity entries. A capacity of
// zero or less falls back to DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

// Lookup returns the MAC address bound to ip, if present.
func (c *Cache) Lookup(ip common.IPv4Address) (common.MACAddress, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := range c.entries {
		if c.entries[i].IP == ip {
			return c.entries[i].MAC, true
		}
	}
	return common.MACAddress{}, false
}

// Insert adds a binding for ip. If ip is already present the existing
// binding is kept and Insert reports true. Insert reports false only when
// the cache is full and the binding could not be stored.
func (c *Cache) Insert(ip common.IPv4Address, mac common.MACAddress) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		if c.entries[i].IP == ip {
			return true
		}
	}
	if len(c.entries) >= c.capacity {
		return false
	}
	c.entries = append(c.entries, Entry{IP: ip, MAC: mac})
	return true
}

// Len returns the number of entries currently in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a snapshot of the cache contents in insertion order.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make([]Entry, len(c.entries))
	copy(snapshot, c.entries)
	return snapshot
}

// String returns a human-readable representation of the cache.
func (c *Cache) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "ARP Cache (%d/%d entries):\n", len(c.entries), c.capacity)
	for i := range c.entries {
		fmt.Fprintf(&b, "  %s -> %s\n", c.entries[i].IP, c.entries[i].MAC)
	}
	return b.String()
}
