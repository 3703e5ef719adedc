// Package frontcoded stores a sorted string sequence with front coding:
// every ratio-th element (a head) is stored whole, the rest as a
// (common-prefix length, suffix) delta against the immediately preceding
// element. Random access seeks to the nearest head and replays at most
// ratio-1 deltas, so ratio is the compression/speed trade-off.
package frontcoded

import (
	"bytes"

	"prefixmap/codec"
	"prefixmap/terms"
)

// Build consumes a strictly increasing sequence of terms and returns the
// coded list. Ordering violations abort the build with an OrderError
// naming the duplicate or the inversion.
func Build(it terms.Iterator, ratio int) (*List, error) {
	if ratio < 1 {
		return nil, &codec.ConfigError{Reason: "ratio must be at least 1"}
	}

	checked := terms.Checked(it)
	var (
		buf      []byte
		pointers []int64
		prev     []byte
		n        int64
	)
	for checked.Next() {
		term := checked.Term()
		if n%int64(ratio) == 0 {
			// Head: full term, length first. Heads have no prefix field;
			// the decoder tells heads from deltas by block position alone.
			pointers = append(pointers, int64(len(buf)))
			buf = codec.Append(buf, int64(len(term)))
			buf = append(buf, term...)
		} else {
			lcp := commonPrefixLen(prev, term)
			buf = codec.Append(buf, int64(len(term)-lcp))
			buf = codec.Append(buf, int64(lcp))
			buf = append(buf, term[lcp:]...)
		}
		prev = append(prev[:0], term...)
		n++
	}
	if err := checked.Err(); err != nil {
		return nil, err
	}

	return &List{
		n:        n,
		ratio:    ratio,
		src:      bytes.NewReader(buf),
		size:     int64(len(buf)),
		pointers: pointers,
	}, nil
}

// BuildStrings is a convenience wrapper over an in-memory term list.
func BuildStrings(ts []string, ratio int) (*List, error) {
	return Build(terms.NewSliceIterator(ts), ratio)
}

func commonPrefixLen(a, b []byte) int {
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
