package extmap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/hillbig/rsdic"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/mmap"

	"prefixmap/charcode"
	"prefixmap/codec"
	"prefixmap/utils"
)

// Persisted layout:
//
//	<base>.properties  text key-value: N, BLOCKSIZE, DUMPLENGTH, CHECKSUM
//	<base>.pointers    binary directory: block starts, offsets bitvector,
//	                   alphabet frequencies
//	<base>.dump        the block-aligned bit stream
//
// Everything needed to rebuild the entropy code and the delimiter trie is
// derivable from the pointers file plus the dump, so neither is persisted
// directly.
const (
	propExt    = ".properties"
	pointerExt = ".pointers"
	dumpExt    = ".dump"
)

var pointerMagic = [4]byte{'E', 'P', 'M', '1'}

const pointerVersion = 1

// Store writes the three files under the given basename.
func (m *Map) Store(base string) error {
	if m.closed {
		return codec.ErrStaleCursor
	}

	f, err := os.Create(base + dumpExt)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := io.Copy(w, io.NewSectionReader(m.src, 0, m.dumpBytes)); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	pf, err := os.Create(base + pointerExt)
	if err != nil {
		return err
	}
	pw := bufio.NewWriter(pf)
	if _, err := pw.Write(pointerMagic[:]); err != nil {
		pf.Close()
		return err
	}
	if err := pw.WriteByte(pointerVersion); err != nil {
		pf.Close()
		return err
	}
	if err := m.writeIndex(pw); err != nil {
		pf.Close()
		return err
	}
	if err := pw.Flush(); err != nil {
		pf.Close()
		return err
	}
	if err := pf.Close(); err != nil {
		return err
	}

	props := fmt.Sprintf("N=%d\nBLOCKSIZE=%d\nDUMPLENGTH=%d\nCHECKSUM=%016x\n",
		m.n, m.BlockSizeBytes(), m.dumpBytes, m.checksum)
	return os.WriteFile(base+propExt, []byte(props), 0o644)
}

// writeIndex emits the directory in vByte form: counts first, then
// delta-coded block starts, the offsets bitvector packed big-endian, and
// the sorted alphabet with frequencies.
func (m *Map) writeIndex(w *bufio.Writer) error {
	var scratch []byte
	emit := func(v int64) error {
		scratch = codec.Append(scratch[:0], v)
		_, err := w.Write(scratch)
		return err
	}

	if err := emit(m.n); err != nil {
		return err
	}
	if err := emit(m.blockSizeBits / 8); err != nil {
		return err
	}
	if err := emit(int64(len(m.blockStart))); err != nil {
		return err
	}
	last := int64(0)
	for _, s := range m.blockStart {
		if err := emit(s - last); err != nil {
			return err
		}
		last = s
	}

	units := int64(m.offsets.Num())
	if err := emit(units); err != nil {
		return err
	}
	var acc byte
	for u := int64(0); u < units; u++ {
		if m.offsets.Bit(uint64(u)) {
			acc |= 1 << (7 - u%8)
		}
		if u%8 == 7 || u == units-1 {
			if err := w.WriteByte(acc); err != nil {
				return err
			}
			acc = 0
		}
	}

	if err := emit(int64(len(m.freqs))); err != nil {
		return err
	}
	chars := utils.MapKeys(m.freqs, func(r rune) rune { return r })
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
	last = 0
	for _, r := range chars {
		if err := emit(int64(r) - last); err != nil {
			return err
		}
		last = int64(r)
		if err := emit(m.freqs[r]); err != nil {
			return err
		}
	}
	return nil
}

type index struct {
	n          int64
	blockBytes int64
	blockStart []int64
	offsets    *rsdic.RSDic
	freqs      map[rune]int64
}

func readIndex(r *bufio.Reader) (*index, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != pointerMagic {
		return nil, &codec.FormatError{Reason: "bad pointer file magic"}
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != pointerVersion {
		return nil, &codec.FormatError{Reason: "unsupported pointer file version " + strconv.Itoa(int(version))}
	}
	return readIndexPayload(r)
}

func readIndexPayload(r *bufio.Reader) (*index, error) {
	var err error
	idx := &index{}
	if idx.n, err = codec.Read(r); err != nil {
		return nil, err
	}
	if idx.blockBytes, err = codec.Read(r); err != nil {
		return nil, err
	}
	if idx.blockBytes < 1 {
		return nil, &codec.ConfigError{Reason: "block size must be at least 1 byte"}
	}

	starts, err := codec.Read(r)
	if err != nil {
		return nil, err
	}
	idx.blockStart = make([]int64, starts)
	last := int64(0)
	for i := range idx.blockStart {
		d, err := codec.Read(r)
		if err != nil {
			return nil, err
		}
		last += d
		idx.blockStart[i] = last
	}
	if starts < 1 || idx.blockStart[starts-1] != idx.n {
		return nil, &codec.FormatError{Reason: "block start table does not end at N"}
	}

	units, err := codec.Read(r)
	if err != nil {
		return nil, err
	}
	idx.offsets = rsdic.New()
	for u := int64(0); u < units; u += 8 {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		for k := int64(0); k < 8 && u+k < units; k++ {
			idx.offsets.PushBack(b&(1<<(7-k)) != 0)
		}
	}

	alphabet, err := codec.Read(r)
	if err != nil {
		return nil, err
	}
	idx.freqs = make(map[rune]int64, alphabet)
	last = 0
	for i := int64(0); i < alphabet; i++ {
		d, err := codec.Read(r)
		if err != nil {
			return nil, err
		}
		last += d
		freq, err := codec.Read(r)
		if err != nil {
			return nil, err
		}
		idx.freqs[rune(last)] = freq
	}
	return idx, nil
}

// Open memory-maps the dump and rebuilds the in-memory directory. The
// dump length must match the recorded one exactly, and its checksum must
// verify, before any access.
func Open(base string) (*Map, error) {
	p, err := loadProps(base)
	if err != nil {
		return nil, err
	}

	pf, err := os.Open(base + pointerExt)
	if err != nil {
		return nil, err
	}
	idx, err := readIndex(bufio.NewReader(pf))
	pf.Close()
	if err != nil {
		return nil, err
	}
	if idx.n != p.n {
		return nil, &codec.FormatError{Reason: "pointer file disagrees with properties on N"}
	}
	if idx.blockBytes != p.blockSize {
		return nil, &codec.FormatError{Reason: "pointer file disagrees with properties on BLOCKSIZE"}
	}

	d, err := mmap.Open(base + dumpExt)
	if err != nil {
		return nil, err
	}
	if int64(d.Len()) != p.dumpLength {
		d.Close()
		return nil, &codec.SizeError{What: "dump stream", Want: p.dumpLength, Got: int64(d.Len())}
	}
	if sum, err := hashReaderAt(d, p.dumpLength); err != nil {
		d.Close()
		return nil, err
	} else if sum != p.checksum {
		d.Close()
		return nil, &codec.FormatError{Reason: fmt.Sprintf("dump checksum %016x, recorded %016x", sum, p.checksum)}
	}

	m, err := attach(idx, d, p.dumpLength, p.checksum)
	if err != nil {
		d.Close()
		return nil, err
	}
	m.closer = d
	return m, nil
}

// attach assembles a Map over an already verified dump source, rebuilding
// the entropy code from the persisted frequencies and the delimiter trie
// by decoding each block's first element.
func attach(idx *index, src io.ReaderAt, dumpBytes int64, checksum uint64) (*Map, error) {
	m := &Map{
		n:             idx.n,
		blockSizeBits: idx.blockBytes * 8,
		freqs:         idx.freqs,
		blockStart:    idx.blockStart,
		offsets:       idx.offsets,
		src:           src,
		dumpBits:      dumpBytes * 8,
		dumpBytes:     dumpBytes,
		checksum:      checksum,
	}
	if len(idx.freqs) > 0 {
		var err error
		if m.code, err = charcode.New(idx.freqs); err != nil {
			return nil, err
		}
	}
	m.initPool()

	delims := make([]string, m.Blocks())
	for b := range delims {
		err := m.scanBlock(int64(b), func(_ int64, term string) bool {
			delims[b] = term
			return false
		})
		if err != nil {
			return nil, err
		}
	}
	trie, err := buildDelimTrie(m.code, delims)
	if err != nil {
		return nil, err
	}
	m.trie = trie
	return m, nil
}

func hashReaderAt(src io.ReaderAt, size int64) (uint64, error) {
	h := xxh3.New()
	if _, err := io.Copy(h, io.NewSectionReader(src, 0, size)); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

type props struct {
	n          int64
	blockSize  int64
	dumpLength int64
	checksum   uint64
}

func loadProps(base string) (props, error) {
	var p props
	raw, err := os.ReadFile(base + propExt)
	if err != nil {
		return p, err
	}
	kv := make(map[string]string)
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return p, &codec.FormatError{Reason: "properties line without '=': " + line}
		}
		kv[k] = v
	}

	if p.n, err = strconv.ParseInt(kv["N"], 10, 64); err != nil {
		return p, &codec.FormatError{Reason: "properties N: " + kv["N"]}
	}
	if p.blockSize, err = strconv.ParseInt(kv["BLOCKSIZE"], 10, 64); err != nil || p.blockSize < 1 {
		return p, &codec.ConfigError{Reason: "properties BLOCKSIZE: " + kv["BLOCKSIZE"]}
	}
	if p.dumpLength, err = strconv.ParseInt(kv["DUMPLENGTH"], 10, 64); err != nil {
		return p, &codec.FormatError{Reason: "properties DUMPLENGTH: " + kv["DUMPLENGTH"]}
	}
	if p.checksum, err = strconv.ParseUint(kv["CHECKSUM"], 16, 64); err != nil {
		return p, &codec.FormatError{Reason: "properties CHECKSUM: " + kv["CHECKSUM"]}
	}
	return p, nil
}
