// Package prefixmap maps sorted string collections to their indices and
// back, with exact prefix-range queries. The in-memory Map here composes a
// front-coded list with an approximate trie over its block heads; extmap
// provides the external, entropy-coded variant behind the same
// capabilities.
package prefixmap

import (
	"strings"

	"prefixmap/bintrie"
	"prefixmap/bits"
	"prefixmap/codec"
	"prefixmap/frontcoded"
	"prefixmap/terms"
)

// TermSource is random access to an ordered term collection.
type TermSource interface {
	Len() int64
	GetTerm(i int64) (string, error)
}

// PrefixQueryable answers exact prefix-range queries.
type PrefixQueryable interface {
	GetInterval(prefix string) (bintrie.Interval, error)
}

// Member answers exact-membership queries; -1 means absent.
type Member interface {
	IndexOf(term string) (int64, error)
}

// Interface is the full prefix-map capability set.
type Interface interface {
	TermSource
	PrefixQueryable
	Member
}

// Map is the in-memory prefix map: a front-coded list plus a binary trie
// over the byte encodings of its block heads. Immutable and safe for
// concurrent queries.
type Map struct {
	list *frontcoded.List
	trie *bintrie.Trie
}

var _ Interface = (*Map)(nil)

// New builds the map from a strictly increasing term sequence.
func New(it terms.Iterator, ratio int) (*Map, error) {
	list, err := frontcoded.Build(it, ratio)
	if err != nil {
		return nil, err
	}
	return FromList(list)
}

// NewStrings builds from an in-memory term list.
func NewStrings(ts []string, ratio int) (*Map, error) {
	return New(terms.NewSliceIterator(ts), ratio)
}

// FromList wraps an existing list, building the trie over its heads. The
// list may be freshly built, loaded, or memory-mapped.
func FromList(list *frontcoded.List) (*Map, error) {
	delims := make([]bits.BitString, list.Blocks())
	for b := range delims {
		head, err := list.Get(int64(b) * int64(list.Ratio()))
		if err != nil {
			return nil, err
		}
		delims[b] = bits.NewFromBytes(head)
	}
	trie, err := bintrie.Build(delims)
	if err != nil {
		return nil, err
	}
	return &Map{list: list, trie: trie}, nil
}

func (m *Map) Len() int64 {
	return m.list.Len()
}

func (m *Map) GetTerm(i int64) (string, error) {
	return m.list.GetString(i)
}

// List exposes the underlying front-coded list.
func (m *Map) List() *frontcoded.List {
	return m.list
}

// bucket returns the index range [lo, hi) of front-coding block b.
func (m *Map) bucket(b int64) (int64, int64) {
	lo := b * int64(m.list.Ratio())
	hi := lo + int64(m.list.Ratio())
	if hi > m.list.Len() {
		hi = m.list.Len()
	}
	return lo, hi
}

// GetInterval returns the exact closed index range of terms starting with
// prefix, or the empty interval. The trie narrows the search to at most
// two blocks needing term-by-term verification; blocks between them match
// entirely.
func (m *Map) GetInterval(prefix string) (bintrie.Interval, error) {
	if m.list.Len() == 0 {
		return bintrie.Empty, nil
	}

	iv := m.trie.ApproximateInterval(bits.NewFromText(prefix))
	if iv.IsEmpty() {
		return bintrie.Empty, nil
	}

	start := int64(-1)
	lo, hi := m.bucket(iv.Left)
	err := m.list.Scan(lo, hi, func(i int64, term []byte) bool {
		if strings.HasPrefix(string(term), prefix) {
			start = i
			return false
		}
		return true
	})
	if err != nil {
		return bintrie.Empty, err
	}
	if start < 0 {
		if iv.Length() == 1 {
			return bintrie.Empty, nil
		}
		// The next block's head itself matches.
		start, _ = m.bucket(iv.Left + 1)
	}

	lo, hi = m.bucket(iv.Right)
	from := lo
	if start > from {
		from = start
	}
	end := from - 1
	err = m.list.Scan(from, hi, func(i int64, term []byte) bool {
		if !strings.HasPrefix(string(term), prefix) {
			return false
		}
		end = i
		return true
	})
	if err != nil {
		return bintrie.Empty, err
	}
	if end < start {
		return bintrie.Empty, nil
	}
	return bintrie.Interval{Left: start, Right: end}, nil
}

// IndexOf returns the index of term, or -1 when absent. Sort order keeps
// an exact match inside the left approximate block, except when the term
// is itself the head of the block after it.
func (m *Map) IndexOf(term string) (int64, error) {
	if m.list.Len() == 0 {
		return -1, nil
	}

	iv := m.trie.ApproximateInterval(bits.NewFromText(term))
	if iv.IsEmpty() {
		return -1, nil
	}

	found := int64(-1)
	lo, hi := m.bucket(iv.Left)
	err := m.list.Scan(lo, hi, func(i int64, t []byte) bool {
		s := string(t)
		if s == term {
			found = i
			return false
		}
		return s < term
	})
	if err != nil {
		return -1, err
	}
	if found >= 0 || iv.Right == iv.Left {
		return found, nil
	}

	next, _ := m.bucket(iv.Left + 1)
	head, err := m.list.GetString(next)
	if err != nil {
		return -1, err
	}
	if head == term {
		return next, nil
	}
	return -1, nil
}

// Iterator walks all terms in order.
func (m *Map) Iterator() *frontcoded.Iterator {
	return m.list.Iterator()
}

// CollectRange materializes the terms of an interval from any source, the
// derived view shared by every map variant.
func CollectRange(src TermSource, iv bintrie.Interval) ([]string, error) {
	if iv.IsEmpty() {
		return nil, nil
	}
	if iv.Left < 0 || iv.Right >= src.Len() {
		return nil, &codec.RangeError{Index: iv.Right, Size: src.Len()}
	}
	out := make([]string, 0, iv.Length())
	for i := iv.Left; i <= iv.Right; i++ {
		s, err := src.GetTerm(i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// CollectPrefix materializes all terms starting with prefix.
func CollectPrefix(m interface {
	TermSource
	PrefixQueryable
}, prefix string) ([]string, error) {
	iv, err := m.GetInterval(prefix)
	if err != nil {
		return nil, err
	}
	return CollectRange(m, iv)
}
