package frontcoded

import (
	"io"

	"prefixmap/codec"
	"prefixmap/utils"
)

// List is an immutable front-coded string list. The coded stream and
// pointer table never change after build, so concurrent Get calls are safe:
// every call decodes through its own cursor. Close (mapped variant only)
// is not safe to race with readers.
type List struct {
	n        int64
	ratio    int
	src      io.ReaderAt
	size     int64
	pointers []int64
	closer   io.Closer // set by Open
	closed   bool
}

func (l *List) Len() int64 {
	return l.n
}

func (l *List) Ratio() int {
	return l.ratio
}

// Blocks returns the number of coding blocks, one head each.
func (l *List) Blocks() int {
	return len(l.pointers)
}

func (l *List) check(i int64) error {
	if l.closed {
		return codec.ErrStaleCursor
	}
	if i < 0 || i >= l.n {
		return &codec.RangeError{Index: i, Size: l.n}
	}
	return nil
}

// decodeAt replays block contents up to element i and returns its bytes
// together with the cursor positioned just past the element's record.
func (l *List) decodeAt(i int64) ([]byte, *cursor, error) {
	block := i / int64(l.ratio)
	delta := i % int64(l.ratio)

	c := newCursor(l.src, l.size, l.pointers[block])
	length, err := codec.Read(c)
	if err != nil {
		return nil, nil, err
	}
	buf := make([]byte, length)
	if err := c.readFull(buf); err != nil {
		return nil, nil, err
	}

	for k := int64(0); k < delta; k++ {
		suffixLen, err := codec.Read(c)
		if err != nil {
			return nil, nil, err
		}
		prefixLen, err := codec.Read(c)
		if err != nil {
			return nil, nil, err
		}
		if prefixLen > int64(len(buf)) {
			return nil, nil, &codec.FormatError{Offset: c.off, Reason: "common prefix longer than previous element"}
		}
		next := make([]byte, prefixLen+suffixLen)
		copy(next, buf[:prefixLen])
		if err := c.readFull(next[prefixLen:]); err != nil {
			return nil, nil, err
		}
		buf = next
	}
	return buf, c, nil
}

// Get returns the bytes of element i.
func (l *List) Get(i int64) ([]byte, error) {
	if err := l.check(i); err != nil {
		return nil, err
	}
	buf, _, err := l.decodeAt(i)
	return buf, err
}

// GetString returns element i as a string.
func (l *List) GetString(i int64) (string, error) {
	b, err := l.Get(i)
	return string(b), err
}

// Length returns the byte length of element i without materializing its
// content: the replay tracks lengths only and skips the suffix bytes.
func (l *List) Length(i int64) (int, error) {
	if err := l.check(i); err != nil {
		return 0, err
	}
	block := i / int64(l.ratio)
	delta := i % int64(l.ratio)

	c := newCursor(l.src, l.size, l.pointers[block])
	length, err := codec.Read(c)
	if err != nil {
		return 0, err
	}
	if err := c.skip(length); err != nil {
		return 0, err
	}

	for k := int64(0); k < delta; k++ {
		suffixLen, err := codec.Read(c)
		if err != nil {
			return 0, err
		}
		prefixLen, err := codec.Read(c)
		if err != nil {
			return 0, err
		}
		if prefixLen > length {
			return 0, &codec.FormatError{Offset: c.off, Reason: "common prefix longer than previous element"}
		}
		if err := c.skip(suffixLen); err != nil {
			return 0, err
		}
		length = prefixLen + suffixLen
	}
	return int(length), nil
}

// Scan decodes elements [from, to) in order, calling fn with each until it
// returns false. After the initial head seek the records are read
// contiguously, so scanning a run costs one replay plus one decode per
// element.
func (l *List) Scan(from, to int64, fn func(i int64, term []byte) bool) error {
	if l.closed {
		return codec.ErrStaleCursor
	}
	if from < 0 || to > l.n || from > to {
		return &codec.RangeError{Index: from, Size: l.n}
	}
	if from == to {
		return nil
	}

	buf, c, err := l.decodeAt(from)
	if err != nil {
		return err
	}
	if !fn(from, buf) {
		return nil
	}
	for i := from + 1; i < to; i++ {
		if i%int64(l.ratio) == 0 {
			length, err := codec.Read(c)
			if err != nil {
				return err
			}
			buf = make([]byte, length)
			if err := c.readFull(buf); err != nil {
				return err
			}
		} else {
			suffixLen, err := codec.Read(c)
			if err != nil {
				return err
			}
			prefixLen, err := codec.Read(c)
			if err != nil {
				return err
			}
			if prefixLen > int64(len(buf)) {
				return &codec.FormatError{Offset: c.off, Reason: "common prefix longer than previous element"}
			}
			next := make([]byte, prefixLen+suffixLen)
			copy(next, buf[:prefixLen])
			if err := c.readFull(next[prefixLen:]); err != nil {
				return err
			}
			buf = next
		}
		if !fn(i, buf) {
			return nil
		}
	}
	return nil
}

// Close releases the mapping of an Open'ed list. Outstanding iterators and
// subsequent calls fail with ErrStaleCursor. In-memory lists have nothing
// to release.
func (l *List) Close() error {
	l.closed = true
	if l.closer != nil {
		err := l.closer.Close()
		l.closer = nil
		return err
	}
	return nil
}

// SizeReport accounts the coded stream and the pointer table.
func (l *List) SizeReport() utils.SizeReport {
	return utils.SizeReport{
		Name: "frontcoded.List",
		Children: []utils.SizeReport{
			{Name: "bytearray", Bytes: l.size},
			{Name: "pointers", Bytes: int64(len(l.pointers)) * 8},
		},
	}
}

// Iterator walks the list. The zero position is before the first element;
// Next and Prev both reposition and report whether a current element
// exists. An iterator owns its cursor and must not be shared.
type Iterator struct {
	l   *List
	i   int64 // current element, -1 before start
	cur []byte
	c   *cursor // positioned past element i when non-nil
	err error
}

func (l *List) Iterator() *Iterator {
	return &Iterator{l: l, i: -1}
}

func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.l.closed {
		it.err = codec.ErrStaleCursor
		return false
	}
	if it.i+1 >= it.l.n {
		return false
	}
	it.i++

	// Sequential fast path: records are contiguous, block heads included,
	// so a valid cursor just keeps decoding.
	if it.c != nil && it.i%int64(it.l.ratio) != 0 {
		suffixLen, err := codec.Read(it.c)
		if err == nil {
			var prefixLen int64
			prefixLen, err = codec.Read(it.c)
			if err == nil {
				if prefixLen > int64(len(it.cur)) {
					it.err = &codec.FormatError{Offset: it.c.off, Reason: "common prefix longer than previous element"}
					return false
				}
				next := make([]byte, prefixLen+suffixLen)
				copy(next, it.cur[:prefixLen])
				err = it.c.readFull(next[prefixLen:])
				if err == nil {
					it.cur = next
					return true
				}
			}
		}
		it.err = err
		return false
	}

	it.cur, it.c, it.err = it.l.decodeAt(it.i)
	return it.err == nil
}

func (it *Iterator) Prev() bool {
	if it.err != nil {
		return false
	}
	if it.l.closed {
		it.err = codec.ErrStaleCursor
		return false
	}
	if it.i <= 0 {
		it.i = -1
		it.c = nil
		return false
	}
	it.i--
	it.cur, it.c, it.err = it.l.decodeAt(it.i)
	return it.err == nil
}

// Term returns the current element. Valid only after a successful Next or
// Prev, until the next repositioning call.
func (it *Iterator) Term() []byte {
	return it.cur
}

func (it *Iterator) Index() int64 {
	return it.i
}

func (it *Iterator) Err() error {
	return it.err
}
