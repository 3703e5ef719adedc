// Package extmap implements an external prefix map: a sorted string
// collection stored as an entropy-coded, block-aligned bit stream, with an
// in-memory approximate trie over the block delimiters bounding every
// query to at most two block scans.
//
// Stream layout: each element is unary(prefixLen) unary(suffixLen)
// followed by suffixLen entropy codewords, lengths in characters. A block
// starts at an exact multiple of the block size in bits; an element that
// would straddle the boundary is padded past it with zero bits and written
// with prefix tracking reset, making it the block's delimiter. Elements
// longer than one block-size unit spill into the following units, so unit
// offsets of consecutive blocks may skip values; the offsets bitvector has
// one bit per unit, set where a block starts.
package extmap

import (
	"bytes"
	"sync"

	"github.com/hillbig/rsdic"
	"github.com/zeebo/xxh3"

	"prefixmap/bintrie"
	"prefixmap/bits"
	"prefixmap/charcode"
	"prefixmap/codec"
	"prefixmap/errutil"
	"prefixmap/terms"
	"prefixmap/utils"
)

// Build constructs the map in memory from two passes over the source: the
// first collects character frequencies and validates ordering, the second
// emits the dump stream. The source must yield the same sequence on both
// passes.
func Build(src terms.Source, blockSizeBytes int) (*Map, error) {
	if blockSizeBytes < 1 {
		return nil, &codec.ConfigError{Reason: "block size must be at least 1 byte"}
	}
	blockBits := int64(blockSizeBytes) * 8

	it, err := src.Terms()
	if err != nil {
		return nil, err
	}
	checked := terms.Checked(it)
	freqs := make(map[rune]int64)
	for checked.Next() {
		for _, r := range string(checked.Term()) {
			freqs[r]++
		}
	}
	if err := checked.Err(); err != nil {
		return nil, err
	}
	n := checked.Count()

	// A lone empty term is the only way to have terms but no characters.
	var code *charcode.Code
	if len(freqs) > 0 {
		if code, err = charcode.New(freqs); err != nil {
			return nil, err
		}
	}

	it, err = src.Terms()
	if err != nil {
		return nil, err
	}
	checked = terms.Checked(it)

	w := bits.NewWriter()
	var (
		blockStart []int64
		blockUnits []int64
		delims     []string
		prev       []rune
		i          int64
	)
	for checked.Next() {
		term := []rune(string(checked.Term()))
		lcp := runeLCP(prev, term)
		need := recordBits(code, term, lcp)

		remaining := blockBits - w.BitLen()%blockBits
		if i == 0 || need > remaining {
			// New block: pad to the boundary, reset prefix tracking, and
			// record the element as the block's delimiter.
			w.AlignTo(blockBits)
			blockUnits = append(blockUnits, w.BitLen()/blockBits)
			blockStart = append(blockStart, i)
			delims = append(delims, string(term))
			lcp = 0
		}

		w.WriteUnary(int64(lcp))
		w.WriteUnary(int64(len(term) - lcp))
		if code != nil {
			if _, err := code.Encode(w, term[lcp:]); err != nil {
				return nil, err
			}
		}
		prev = term
		i++
	}
	if err := checked.Err(); err != nil {
		return nil, err
	}
	if n != i {
		return nil, &codec.SizeError{What: "second pass term count", Want: n, Got: i}
	}

	w.AlignTo(blockBits)
	blockStart = append(blockStart, n)
	errutil.BugOn(w.BitLen()%blockBits != 0, "dump is not block aligned: %d bits", w.BitLen())

	offsets := rsdic.New()
	units := w.BitLen() / blockBits
	next := 0
	for u := int64(0); u < units; u++ {
		isStart := next < len(blockUnits) && blockUnits[next] == u
		if isStart {
			next++
		}
		offsets.PushBack(isStart)
	}

	trie, err := buildDelimTrie(code, delims)
	if err != nil {
		return nil, err
	}

	dump := append([]byte(nil), w.Bytes()...)
	m := &Map{
		n:             n,
		blockSizeBits: blockBits,
		code:          code,
		freqs:         freqs,
		trie:          trie,
		blockStart:    blockStart,
		offsets:       offsets,
		src:           bytes.NewReader(dump),
		dumpBits:      w.BitLen(),
		dumpBytes:     int64(len(dump)),
		checksum:      xxh3.Hash(dump),
	}
	m.initPool()
	return m, nil
}

// BuildStrings builds from an in-memory term list.
func BuildStrings(ts []string, blockSizeBytes int) (*Map, error) {
	return Build(terms.SliceSource(ts), blockSizeBytes)
}

func buildDelimTrie(code *charcode.Code, delims []string) (*bintrie.Trie, error) {
	coded := utils.Map(delims, func(d string) bits.BitString {
		if code == nil {
			return bits.BitString{}
		}
		bs, ok := code.EncodeToBitString([]rune(d))
		if !ok {
			// Delimiters come from the corpus the code was built over.
			return bits.BitString{}
		}
		return bs
	})
	return bintrie.Build(coded)
}

// recordBits returns the exact stream size of one element record.
func recordBits(code *charcode.Code, term []rune, lcp int) int64 {
	need := int64(lcp) + 1 + int64(len(term)-lcp) + 1
	if code == nil {
		return need
	}
	for _, r := range term[lcp:] {
		sym, _ := code.Symbol(r)
		need += int64(code.CodewordLen(sym))
	}
	return need
}

func runeLCP(a, b []rune) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func (m *Map) initPool() {
	m.readers = sync.Pool{New: func() any {
		return bits.NewReader(m.src, m.dumpBits)
	}}
}
