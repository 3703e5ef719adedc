package extmap

import (
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/hillbig/rsdic"

	"prefixmap/bintrie"
	"prefixmap/bits"
	"prefixmap/charcode"
	"prefixmap/codec"
	"prefixmap/utils"
)

// Map is an immutable external prefix map. The dump stream, directory
// tables and trie never change after build, so queries are safe to run
// concurrently: every call checks out its own stream cursor. Close is not
// safe to race with readers.
type Map struct {
	n             int64
	blockSizeBits int64
	code          *charcode.Code
	freqs         map[rune]int64
	trie          *bintrie.Trie
	blockStart    []int64      // one per block plus a final sentinel equal to n
	offsets       *rsdic.RSDic // one bit per block-size unit, set at block starts
	src           io.ReaderAt
	dumpBits      int64
	dumpBytes     int64
	checksum      uint64
	closer        io.Closer // set by Open and Import
	closed        bool
	readers       sync.Pool
}

func (m *Map) Len() int64 {
	return m.n
}

// Blocks returns the number of stream blocks.
func (m *Map) Blocks() int64 {
	return int64(len(m.blockStart)) - 1
}

// BlockSizeBytes returns the block alignment the map was built with.
func (m *Map) BlockSizeBytes() int {
	return int(m.blockSizeBits / 8)
}

func (m *Map) getReader() *bits.Reader {
	return m.readers.Get().(*bits.Reader)
}

func (m *Map) putReader(r *bits.Reader) {
	m.readers.Put(r)
}

// unitOf returns the stream unit where block b starts: the position of the
// b-th set bit of the offsets bitvector. Spilled units between block
// starts carry zero bits, which is what makes this a rank problem rather
// than the identity.
func (m *Map) unitOf(b int64) int64 {
	num := int(m.offsets.Num())
	return int64(sort.Search(num, func(p int) bool {
		return m.offsets.Rank(uint64(p+1), true) >= uint64(b+1)
	}))
}

// scanBlock decodes block b forward, calling fn with each term's global
// index until fn returns false or the block is exhausted.
func (m *Map) scanBlock(b int64, fn func(idx int64, term string) bool) error {
	r := m.getReader()
	defer m.putReader(r)

	if err := r.Seek(m.unitOf(b) * m.blockSizeBits); err != nil {
		return err
	}
	count := m.blockStart[b+1] - m.blockStart[b]
	var prev []rune
	for j := int64(0); j < count; j++ {
		prefixLen, err := r.ReadUnary()
		if err != nil {
			return err
		}
		suffixLen, err := r.ReadUnary()
		if err != nil {
			return err
		}
		if prefixLen > int64(len(prev)) {
			return &codec.FormatError{Offset: r.Pos(), Reason: "common prefix longer than previous element"}
		}
		term := make([]rune, prefixLen+suffixLen)
		copy(term, prev[:prefixLen])
		for k := int64(0); k < suffixLen; k++ {
			ch, err := m.code.DecodeRune(r)
			if err != nil {
				return err
			}
			term[prefixLen+k] = ch
		}
		prev = term
		if !fn(m.blockStart[b]+j, string(term)) {
			return nil
		}
	}
	return nil
}

// encodePrefix returns the coded form of a query prefix, or false when the
// prefix contains a character absent from the alphabet, in which case no
// stored term can match and the stream need not be touched.
func (m *Map) encodePrefix(prefix string) (bits.BitString, bool) {
	if prefix == "" {
		return bits.BitString{}, true
	}
	if m.code == nil {
		return bits.BitString{}, false
	}
	return m.code.EncodeToBitString([]rune(prefix))
}

// GetInterval returns the exact closed index range of terms starting with
// prefix, or the empty interval when none do. The trie bounds the search
// to an approximate block interval; only the two boundary blocks are
// verified term by term, since any interior block is entirely matching.
func (m *Map) GetInterval(prefix string) (bintrie.Interval, error) {
	if m.closed {
		return bintrie.Empty, codec.ErrStaleCursor
	}
	if m.n == 0 {
		return bintrie.Empty, nil
	}

	p, ok := m.encodePrefix(prefix)
	if !ok {
		return bintrie.Empty, nil
	}
	iv := m.trie.ApproximateInterval(p)
	if iv.IsEmpty() {
		return bintrie.Empty, nil
	}

	// Left boundary: first matching term in the left block.
	start := int64(-1)
	err := m.scanBlock(iv.Left, func(idx int64, term string) bool {
		if strings.HasPrefix(term, prefix) {
			start = idx
			return false
		}
		return true
	})
	if err != nil {
		return bintrie.Empty, err
	}
	if start < 0 {
		if iv.Length() == 1 {
			// The only candidate block has no match, so nothing anywhere
			// has this prefix.
			return bintrie.Empty, nil
		}
		// A wider interval means the next block's delimiter itself
		// matches.
		start = m.blockStart[iv.Left+1]
	}

	// Right boundary: last matching term in the right block. When the
	// interval spans several blocks its right delimiter matches, so the
	// matching run begins at the block's first element.
	from := m.blockStart[iv.Right]
	if start > from {
		from = start
	}
	end := from - 1
	err = m.scanBlock(iv.Right, func(idx int64, term string) bool {
		if idx < from {
			return true
		}
		if !strings.HasPrefix(term, prefix) {
			return false
		}
		end = idx
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

// IndexOf returns the index of term, or -1 when absent. Absence is a
// result, not an error. By sort order an exact match can only live in the
// left approximate block, or be the delimiter of the block after it.
func (m *Map) IndexOf(term string) (int64, error) {
	if m.closed {
		return -1, codec.ErrStaleCursor
	}
	if m.n == 0 {
		return -1, nil
	}

	p, ok := m.encodePrefix(term)
	if !ok {
		return -1, nil
	}
	iv := m.trie.ApproximateInterval(p)
	if iv.IsEmpty() {
		return -1, nil
	}

	found := int64(-1)
	err := m.scanBlock(iv.Left, func(idx int64, t string) bool {
		if t == term {
			found = idx
			return false
		}
		// Sorted block: once past term, it cannot appear.
		return t < term
	})
	if err != nil {
		return -1, err
	}
	if found >= 0 || iv.Right == iv.Left {
		return found, nil
	}

	// The exact term may be the delimiter of the next block when it is a
	// strict prefix of other delimiters.
	err = m.scanBlock(iv.Left+1, func(idx int64, t string) bool {
		if t == term {
			found = idx
		}
		return false
	})
	if err != nil {
		return -1, err
	}
	return found, nil
}

// GetTerm returns the term at index i, locating its block by binary search
// over the block-start table and replaying the block up to i.
func (m *Map) GetTerm(i int64) (string, error) {
	if m.closed {
		return "", codec.ErrStaleCursor
	}
	if i < 0 || i >= m.n {
		return "", &codec.RangeError{Index: i, Size: m.n}
	}

	b := int64(sort.Search(len(m.blockStart), func(j int) bool {
		return m.blockStart[j] > i
	})) - 1

	var term string
	err := m.scanBlock(b, func(idx int64, t string) bool {
		if idx == i {
			term = t
			return false
		}
		return true
	})
	return term, err
}

// Close releases the mapping of an Open'ed map. Outstanding iterators and
// subsequent calls fail with ErrStaleCursor.
func (m *Map) Close() error {
	m.closed = true
	if m.closer != nil {
		err := m.closer.Close()
		m.closer = nil
		return err
	}
	return nil
}

// SizeReport accounts the dump stream and the in-memory directory.
func (m *Map) SizeReport() utils.SizeReport {
	alphabet := 0
	if m.code != nil {
		alphabet = m.code.Len()
	}
	return utils.SizeReport{
		Name: "extmap.Map",
		Children: []utils.SizeReport{
			{Name: "dump", Bytes: m.dumpBytes},
			{Name: "blockStart", Bytes: int64(len(m.blockStart)) * 8},
			{Name: "offsets", Bytes: int64(m.offsets.Num()+7) / 8},
			{Name: "alphabet", Bytes: int64(alphabet) * 12},
		},
	}
}

// Iterator is a forward-only full scan. It owns its cursor and must not be
// shared between goroutines.
type Iterator struct {
	m    *Map
	r    *bits.Reader
	i    int64
	b    int64
	j    int64 // position within block b
	prev []rune
	cur  string
	err  error
}

func (m *Map) Iterator() *Iterator {
	return &Iterator{m: m, r: bits.NewReader(m.src, m.dumpBits), i: -1}
}

func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.m.closed {
		it.err = codec.ErrStaleCursor
		return false
	}
	if it.i+1 >= it.m.n {
		return false
	}
	it.i++

	if it.i == 0 || it.i == it.m.blockStart[it.b+1] {
		if it.i > 0 {
			it.b++
		}
		it.j = 0
		it.prev = it.prev[:0]
		if it.err = it.r.Seek(it.m.unitOf(it.b) * it.m.blockSizeBits); it.err != nil {
			return false
		}
	}

	prefixLen, err := it.r.ReadUnary()
	if err != nil {
		it.err = err
		return false
	}
	suffixLen, err := it.r.ReadUnary()
	if err != nil {
		it.err = err
		return false
	}
	if prefixLen > int64(len(it.prev)) {
		it.err = &codec.FormatError{Offset: it.r.Pos(), Reason: "common prefix longer than previous element"}
		return false
	}
	term := make([]rune, prefixLen+suffixLen)
	copy(term, it.prev[:prefixLen])
	for k := int64(0); k < suffixLen; k++ {
		ch, err := it.m.code.DecodeRune(it.r)
		if err != nil {
			it.err = err
			return false
		}
		term[prefixLen+k] = ch
	}
	it.prev = term
	it.cur = string(term)
	it.j++
	return true
}

func (it *Iterator) Term() string {
	return it.cur
}

func (it *Iterator) Index() int64 {
	return it.i
}

func (it *Iterator) Err() error {
	return it.err
}
