package frontcoded

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/exp/mmap"

	"prefixmap/codec"
)

// Three-file persisted layout:
//
//	<base>.properties  text key-value: N, RATIO, BYTES, CHECKSUM
//	<base>.bytearray   the coded stream exactly as built
//	<base>.pointers    one 8-byte big-endian head offset per block
const (
	propExt    = ".properties"
	bytesExt   = ".bytearray"
	pointerExt = ".pointers"
)

// Store writes the three files under the given basename.
func (l *List) Store(base string) error {
	if l.closed {
		return codec.ErrStaleCursor
	}

	f, err := os.Create(base + bytesExt)
	if err != nil {
		return err
	}
	h := xxh3.New()
	w := bufio.NewWriter(io.MultiWriter(f, h))
	if _, err := io.Copy(w, io.NewSectionReader(l.src, 0, l.size)); err != nil {
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
	var scratch [8]byte
	for _, p := range l.pointers {
		binary.BigEndian.PutUint64(scratch[:], uint64(p))
		if _, err := pw.Write(scratch[:]); err != nil {
			pf.Close()
			return err
		}
	}
	if err := pw.Flush(); err != nil {
		pf.Close()
		return err
	}
	if err := pf.Close(); err != nil {
		return err
	}

	props := fmt.Sprintf("N=%d\nRATIO=%d\nBYTES=%d\nCHECKSUM=%016x\n",
		l.n, l.ratio, l.size, h.Sum64())
	return os.WriteFile(base+propExt, []byte(props), 0o644)
}

// Load reads the three files fully into memory.
func Load(base string) (*List, error) {
	p, err := loadProps(base)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(base + bytesExt)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != p.bytes {
		return nil, &codec.SizeError{What: "bytearray", Want: p.bytes, Got: int64(len(data))}
	}
	if sum := xxh3.Hash(data); sum != p.checksum {
		return nil, &codec.FormatError{Reason: fmt.Sprintf("bytearray checksum %016x, recorded %016x", sum, p.checksum)}
	}

	pointers, err := loadPointers(base, p.blocks())
	if err != nil {
		return nil, err
	}

	return &List{
		n:        p.n,
		ratio:    p.ratio,
		src:      bytes.NewReader(data),
		size:     p.bytes,
		pointers: pointers,
	}, nil
}

// Open memory-maps the bytearray instead of reading it; properties and
// pointers are small and loaded eagerly. The mapped size must match the
// recorded one and the checksum must verify before any access.
func Open(base string) (*List, error) {
	p, err := loadProps(base)
	if err != nil {
		return nil, err
	}

	m, err := mmap.Open(base + bytesExt)
	if err != nil {
		return nil, err
	}
	if int64(m.Len()) != p.bytes {
		m.Close()
		return nil, &codec.SizeError{What: "bytearray", Want: p.bytes, Got: int64(m.Len())}
	}
	if sum, err := hashReaderAt(m, p.bytes); err != nil {
		m.Close()
		return nil, err
	} else if sum != p.checksum {
		m.Close()
		return nil, &codec.FormatError{Reason: fmt.Sprintf("bytearray checksum %016x, recorded %016x", sum, p.checksum)}
	}

	pointers, err := loadPointers(base, p.blocks())
	if err != nil {
		m.Close()
		return nil, err
	}

	return &List{
		n:        p.n,
		ratio:    p.ratio,
		src:      m,
		size:     p.bytes,
		pointers: pointers,
		closer:   m,
	}, nil
}

func hashReaderAt(src io.ReaderAt, size int64) (uint64, error) {
	h := xxh3.New()
	if _, err := io.Copy(h, io.NewSectionReader(src, 0, size)); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

type props struct {
	n        int64
	ratio    int
	bytes    int64
	checksum uint64
}

func (p props) blocks() int64 {
	return (p.n + int64(p.ratio) - 1) / int64(p.ratio)
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
	if p.ratio, err = strconv.Atoi(kv["RATIO"]); err != nil || p.ratio < 1 {
		return p, &codec.ConfigError{Reason: "properties RATIO: " + kv["RATIO"]}
	}
	if p.bytes, err = strconv.ParseInt(kv["BYTES"], 10, 64); err != nil {
		return p, &codec.FormatError{Reason: "properties BYTES: " + kv["BYTES"]}
	}
	if p.checksum, err = strconv.ParseUint(kv["CHECKSUM"], 16, 64); err != nil {
		return p, &codec.FormatError{Reason: "properties CHECKSUM: " + kv["CHECKSUM"]}
	}
	return p, nil
}

func loadPointers(base string, blocks int64) ([]int64, error) {
	raw, err := os.ReadFile(base + pointerExt)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) != blocks*8 {
		return nil, &codec.SizeError{What: "pointer table", Want: blocks * 8, Got: int64(len(raw))}
	}
	pointers := make([]int64, blocks)
	for i := range pointers {
		pointers[i] = int64(binary.BigEndian.Uint64(raw[i*8:]))
		if i > 0 && pointers[i] <= pointers[i-1] {
			return nil, &codec.FormatError{Offset: int64(i * 8), Reason: "pointer table is not strictly increasing"}
		}
	}
	return pointers, nil
}
