package extmap

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
	"golang.org/x/exp/mmap"

	"prefixmap/codec"
)

// Export and Import replace implicit serialization with an explicit
// portable stream: a header, the directory index, then the raw dump. The
// dump is re-materialized onto a caller-chosen path on import, since it is
// accessed by random seeks and has to live in a file.

var exportMagic = [4]byte{'E', 'P', 'M', 'X'}

// Export writes the whole map as one portable stream.
func (m *Map) Export(w io.Writer) error {
	if m.closed {
		return codec.ErrStaleCursor
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(exportMagic[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(pointerVersion); err != nil {
		return err
	}
	if err := m.writeIndex(bw); err != nil {
		return err
	}

	var scratch []byte
	scratch = codec.Append(scratch, m.dumpBytes)
	scratch = codec.Append(scratch, int64(m.checksum>>32))
	scratch = codec.Append(scratch, int64(m.checksum&0xFFFFFFFF))
	if _, err := bw.Write(scratch); err != nil {
		return err
	}
	if _, err := io.Copy(bw, io.NewSectionReader(m.src, 0, m.dumpBytes)); err != nil {
		return err
	}
	return bw.Flush()
}

// Import reads an exported stream, writes the dump section to dumpPath and
// opens the map over it. The dump is checksummed while copying; a
// mismatch refuses to attach.
func Import(r io.Reader, dumpPath string) (*Map, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, err
	}
	if magic != exportMagic {
		return nil, &codec.FormatError{Reason: "bad export stream magic"}
	}
	version, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != pointerVersion {
		return nil, &codec.FormatError{Reason: "unsupported export stream version"}
	}

	idx, err := readIndexPayload(br)
	if err != nil {
		return nil, err
	}

	dumpBytes, err := codec.Read(br)
	if err != nil {
		return nil, err
	}
	hi, err := codec.Read(br)
	if err != nil {
		return nil, err
	}
	lo, err := codec.Read(br)
	if err != nil {
		return nil, err
	}
	checksum := uint64(hi)<<32 | uint64(lo)

	f, err := os.Create(dumpPath)
	if err != nil {
		return nil, err
	}
	h := xxh3.New()
	written, err := io.Copy(io.MultiWriter(f, h), io.LimitReader(br, dumpBytes))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if written != dumpBytes {
		return nil, &codec.SizeError{What: "dump stream", Want: dumpBytes, Got: written}
	}
	if h.Sum64() != checksum {
		return nil, &codec.FormatError{Reason: fmt.Sprintf("dump checksum %016x, recorded %016x", h.Sum64(), checksum)}
	}

	d, err := mmap.Open(dumpPath)
	if err != nil {
		return nil, err
	}
	if int64(d.Len()) != dumpBytes {
		d.Close()
		return nil, &codec.SizeError{What: "dump stream", Want: dumpBytes, Got: int64(d.Len())}
	}

	m, err := attach(idx, d, dumpBytes, checksum)
	if err != nil {
		d.Close()
		return nil, err
	}
	m.closer = d
	return m, nil
}
