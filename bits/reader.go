package bits

import (
	"io"

	"prefixmap/codec"
)

const readerPageSize = 4096

// Reader is a seekable bit stream over an io.ReaderAt, most significant
// bit of each byte first. It buffers one page at a time, so it works the
// same over an in-memory bytes.Reader and a memory-mapped file. A Reader
// carries mutable cursor state and must not be shared between concurrent
// callers; Clone produces an independent cursor over the same source.
type Reader struct {
	src     io.ReaderAt
	lenBits int64
	page    []byte
	pageOff int64 // byte offset of page[0] in src
	pageLen int   // valid bytes in page
	pos     int64 // absolute bit position
}

// NewReader returns a Reader over the first lenBits bits of src.
func NewReader(src io.ReaderAt, lenBits int64) *Reader {
	return &Reader{
		src:     src,
		lenBits: lenBits,
		page:    make([]byte, readerPageSize),
	}
}

// Clone returns an independent cursor sharing the underlying source.
func (r *Reader) Clone() *Reader {
	return NewReader(r.src, r.lenBits)
}

func (r *Reader) Len() int64 {
	return r.lenBits
}

func (r *Reader) Pos() int64 {
	return r.pos
}

// Seek positions the cursor at an absolute bit offset.
func (r *Reader) Seek(bitPos int64) error {
	if bitPos < 0 || bitPos > r.lenBits {
		return &codec.FormatError{Offset: bitPos, Reason: "seek outside stream"}
	}
	r.pos = bitPos
	return nil
}

func (r *Reader) byteAt(byteIdx int64) (byte, error) {
	if byteIdx < r.pageOff || byteIdx >= r.pageOff+int64(r.pageLen) {
		n, err := r.src.ReadAt(r.page, byteIdx)
		if n == 0 {
			if err == nil || err == io.EOF {
				return 0, &codec.FormatError{Offset: byteIdx * 8, Reason: "read past end of stream"}
			}
			return 0, err
		}
		r.pageOff = byteIdx
		r.pageLen = n
	}
	return r.page[byteIdx-r.pageOff], nil
}

func (r *Reader) ReadBit() (bool, error) {
	if r.pos >= r.lenBits {
		return false, &codec.FormatError{Offset: r.pos, Reason: "read past declared stream length"}
	}
	b, err := r.byteAt(r.pos >> 3)
	if err != nil {
		return false, err
	}
	bit := b&(1<<(7-r.pos&7)) != 0
	r.pos++
	return bit, nil
}

// ReadUnary reads a run of one-bits terminated by a zero-bit and returns
// the run length.
func (r *Reader) ReadUnary() (int64, error) {
	var n int64
	for {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if !bit {
			return n, nil
		}
		n++
	}
}
