package terms

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultLineBuffer bounds the longest accepted input line.
const DefaultLineBuffer = 1 << 20

// LineIterator yields one term per line of r. A trailing carriage return
// is stripped, so CRLF input behaves like LF input. The final line needs
// no terminator.
type LineIterator struct {
	sc  *bufio.Scanner
	cur []byte
	err error
}

func NewLineIterator(r io.Reader, maxLine int) *LineIterator {
	if maxLine <= 0 {
		maxLine = DefaultLineBuffer
	}
	sc := bufio.NewScanner(r)
	// The scanner's limit is the larger of maxLine and the initial buffer
	// capacity, so the buffer must not exceed maxLine.
	sc.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)
	return &LineIterator{sc: sc}
}

func (it *LineIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.sc.Scan() {
		it.err = it.sc.Err()
		return false
	}
	it.cur = bytes.TrimSuffix(it.sc.Bytes(), []byte{'\r'})
	return true
}

func (it *LineIterator) Term() []byte { return it.cur }
func (it *LineIterator) Err() error   { return it.err }

// FileSource reads newline-separated terms from a file, reopening it for
// every pass. Paths ending in ".gz" are decompressed transparently;
// forceGzip decompresses regardless of the name. The path "-" slurps
// stdin once up front, since stdin cannot be rewound for a second pass.
type FileSource struct {
	path    string
	maxLine int
	gzipped bool
	stdin   []byte
}

func NewFileSource(path string, maxLine int, forceGzip bool) (*FileSource, error) {
	s := &FileSource{
		path:    path,
		maxLine: maxLine,
		gzipped: forceGzip || strings.HasSuffix(path, ".gz"),
	}
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		s.stdin = data
	}
	return s, nil
}

func (s *FileSource) Terms() (Iterator, error) {
	if s.stdin != nil {
		var r io.Reader = bytes.NewReader(s.stdin)
		if s.gzipped {
			zr, err := gzip.NewReader(r)
			if err != nil {
				return nil, fmt.Errorf("opening gzip stdin: %w", err)
			}
			r = zr
		}
		return NewLineIterator(r, s.maxLine), nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening term file: %w", err)
	}
	var r io.Reader = f
	closer := io.Closer(f)
	if s.gzipped {
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip term file: %w", err)
		}
		r = zr
		closer = &chainCloser{zr, f}
	}
	return &fileIterator{LineIterator: NewLineIterator(r, s.maxLine), closer: closer}, nil
}

type chainCloser struct {
	first, second io.Closer
}

func (c *chainCloser) Close() error {
	err := c.first.Close()
	if e := c.second.Close(); err == nil {
		err = e
	}
	return err
}

type fileIterator struct {
	*LineIterator
	closer io.Closer
	closed bool
}

func (it *fileIterator) Next() bool {
	if it.closed {
		return false
	}
	if it.LineIterator.Next() {
		return true
	}
	it.closed = true
	closeErr := it.closer.Close()
	if it.err == nil {
		it.err = closeErr
	}
	return false
}
