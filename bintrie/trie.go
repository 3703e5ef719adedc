// Package bintrie implements a static compacted binary trie over the bit
// encodings of block delimiter strings. One leaf per delimiter, so a leaf
// index is a block number. A prefix query returns a block interval that is
// guaranteed to contain every block holding a matching term; the trie may
// over-approximate by at most the block granularity, never under.
package bintrie

import (
	"sort"

	"prefixmap/bits"
	"prefixmap/codec"
)

// Trie is immutable after Build and safe for concurrent queries.
type Trie struct {
	root   *node
	leaves int64
}

// node covers the delimiters [min, max]. extent is the full bit path from
// the root; when carried is set, the delimiter at index min equals the
// extent exactly (one delimiter being a prefix of another puts the shorter
// one on an interior node).
type node struct {
	extent  bits.BitString
	left    *node
	right   *node
	min     int64
	max     int64
	carried bool
}

func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}

// Build constructs the trie over strictly increasing delimiter encodings.
func Build(delims []bits.BitString) (*Trie, error) {
	for i := 1; i < len(delims); i++ {
		if cmp := delims[i-1].Compare(delims[i]); cmp >= 0 {
			return nil, &codec.OrderError{
				Duplicate: cmp == 0,
				Index:     int64(i),
				Prev:      delims[i-1].String(),
				Term:      delims[i].String(),
			}
		}
	}

	t := &Trie{leaves: int64(len(delims))}
	if len(delims) > 0 {
		t.root = build(delims, 0, int64(len(delims)))
	}
	return t, nil
}

func build(delims []bits.BitString, lo, hi int64) *node {
	n := &node{min: lo, max: hi - 1}
	if hi-lo == 1 {
		n.extent = delims[lo]
		n.carried = true
		return n
	}

	// Sorted and distinct, so the range LCP is the LCP of the extremes.
	p := delims[lo].CommonPrefixLen(delims[hi-1])
	n.extent = delims[lo].Prefix(p)

	childLo := lo
	if delims[lo].Size() == p {
		n.carried = true
		childLo = lo + 1
	}

	// Children diverge at bit p; zero-side entries come first.
	m := childLo + int64(sort.Search(int(hi-childLo), func(i int) bool {
		return delims[childLo+int64(i)].At(p)
	}))
	if m > childLo {
		n.left = build(delims, childLo, m)
	}
	if m < hi {
		n.right = build(delims, m, hi)
	}
	return n
}

// Leaves returns the number of delimiters the trie was built over.
func (t *Trie) Leaves() int64 {
	return t.leaves
}

// ApproximateInterval returns a closed interval of block numbers containing
// every block that can hold a term whose encoding starts with p, or Empty
// when no block can. The interval for a shorter prefix always contains the
// interval for any of its extensions.
func (t *Trie) ApproximateInterval(p bits.BitString) Interval {
	if t.root == nil {
		return Empty
	}

	n := t.root
	for {
		lcp := p.CommonPrefixLen(n.extent)

		if lcp == p.Size() {
			// The query is exhausted on the node's path, so every
			// delimiter below starts with p. Matching terms may also sit
			// at the tail of the block before this subtree, between its
			// own delimiter and ours.
			left := n.min - 1
			if left < 0 {
				left = 0
			}
			return Interval{Left: left, Right: n.max}
		}

		if lcp < n.extent.Size() {
			// Diverged inside the path: the subtree brackets where the
			// matches would sort, pinning them to a single block.
			if p.At(lcp) {
				return Interval{Left: n.max, Right: n.max}
			}
			if n.min == 0 {
				// Matches would sort before the first term.
				return Empty
			}
			return Interval{Left: n.min - 1, Right: n.min - 1}
		}

		// The path is a proper prefix of p; descend on the next bit.
		var child *node
		if p.At(lcp) {
			child = n.right
		} else {
			child = n.left
		}
		if child == nil {
			// Leaf, or a carried node missing the followed side. The
			// carried delimiter's block holds anything between it and the
			// subtree's zero side; everything above the subtree lands in
			// its last block.
			if p.At(lcp) && !n.isLeaf() {
				return Interval{Left: n.max, Right: n.max}
			}
			return Interval{Left: n.min, Right: n.min}
		}
		n = child
	}
}
