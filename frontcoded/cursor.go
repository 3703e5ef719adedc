package frontcoded

import (
	"io"

	"prefixmap/codec"
)

const cursorPageSize = 4096

// cursor is a page-buffered forward byte reader over an io.ReaderAt, so the
// same decode path serves an in-memory bytes.Reader and a memory-mapped
// file. Each logical reader owns its own cursor; the source is never
// mutated.
type cursor struct {
	src     io.ReaderAt
	size    int64
	off     int64
	page    []byte
	pageOff int64
	pageLen int
}

func newCursor(src io.ReaderAt, size, off int64) *cursor {
	return &cursor{
		src:     src,
		size:    size,
		off:     off,
		page:    make([]byte, cursorPageSize),
		pageOff: -cursorPageSize,
	}
}

// ReadByte satisfies io.ByteReader for codec.Read. Running off the end of
// the coded stream means the stream was not produced by the matching
// builder.
func (c *cursor) ReadByte() (byte, error) {
	if c.off >= c.size {
		return 0, &codec.FormatError{Offset: c.off, Reason: "read past end of coded stream"}
	}
	if c.off < c.pageOff || c.off >= c.pageOff+int64(c.pageLen) {
		n, err := c.src.ReadAt(c.page, c.off)
		if n == 0 {
			if err == nil || err == io.EOF {
				return 0, &codec.FormatError{Offset: c.off, Reason: "read past end of coded stream"}
			}
			return 0, err
		}
		c.pageOff = c.off
		c.pageLen = n
	}
	b := c.page[c.off-c.pageOff]
	c.off++
	return b, nil
}

func (c *cursor) readFull(p []byte) error {
	for i := range p {
		b, err := c.ReadByte()
		if err != nil {
			return err
		}
		p[i] = b
	}
	return nil
}

func (c *cursor) skip(n int64) error {
	if c.off+n > c.size {
		return &codec.FormatError{Offset: c.off, Reason: "skip past end of coded stream"}
	}
	c.off += n
	return nil
}
