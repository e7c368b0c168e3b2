package ip

import (
	"math/bits"

	"github.com/netstacklab/router/pkg/common"
)

// Trie is a bitwise binary trie over IPv4 addresses providing
// longest-prefix-match lookups.
//
// Addresses are traversed starting at the low bit of the first octet on the
// wire (see common.IPv4Address.ToWireBits), shifting right once per edge.
// Construction and lookup share this ordering, which keeps the forwarding
// decisions of existing routing-table files stable; it coincides with the
// classic most-significant-bit-first walk only for masks that cover whole
// octets.
type Trie struct {
	root *trieNode
	size int
}

// trieNode is either a branch point or, when valid is set, a route's
// forwarding data. A valid node's depth equals the route's prefix length.
type trieNode struct {
	valid   bool
	nextHop common.IPv4Address
	ifindex int
	left    *trieNode // next bit 0
	right   *trieNode // next bit 1
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{root: &trieNode{}}
}

// BuildTrie creates a trie holding every route in routes. Later routes win
// over earlier ones with an identical prefix and mask.
func BuildTrie(routes []Route) *Trie {
	t := NewTrie()
	for _, r := range routes {
		t.Insert(r)
	}
	return t
}

// Insert adds a route to the trie. A zero mask is ignored. Inserting the
// same prefix/mask twice overwrites the earlier forwarding data.
func (t *Trie) Insert(r Route) {
	prefixLen := bits.OnesCount32(r.Mask.ToUint32())
	if prefixLen == 0 {
		return
	}

	network := r.Prefix.ToWireBits() & r.Mask.ToWireBits()
	node := t.root
	for i := 0; i < prefixLen; i++ {
		if network&1 == 1 {
			if node.right == nil {
				node.right = &trieNode{}
			}
			node = node.right
		} else {
			if node.left == nil {
				node.left = &trieNode{}
			}
			node = node.left
		}
		network >>= 1
	}

	if !node.valid {
		t.size++
	}
	node.valid = true
	node.nextHop = r.NextHop
	node.ifindex = r.Interface
}

// Lookup walks the trie along the bits of ip and returns the forwarding data
// of the deepest valid node on the path. ok is false when no prefix on the
// path matches.
func (t *Trie) Lookup(ip common.IPv4Address) (nextHop common.IPv4Address, ifindex int, ok bool) {
	key := ip.ToWireBits()
	node := t.root

	for node != nil {
		if node.valid {
			nextHop = node.nextHop
			ifindex = node.ifindex
			ok = true
		}
		if key&1 == 1 {
			node = node.right
		} else {
			node = node.left
		}
		key >>= 1
	}

	return nextHop, ifindex, ok
}

// Size returns the number of valid routes in the trie.
func (t *Trie) Size() int {
	return t.size
}
