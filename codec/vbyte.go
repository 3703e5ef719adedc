package codec

import (
	"io"
)

// Variable-length integer coding for non-negative values: 7-bit groups,
// most significant group first. Every byte except the last carries the
// bitwise complement of its group, so its sign bit is set; the final byte
// carries the group itself with the sign bit clear. The encoding is
// self-delimiting and zero encodes to a single zero byte.

// MaxLen is the longest possible encoding: nine groups cover 63 bits.
const MaxLen = 9

// Count returns the number of bytes the encoding of v occupies, without
// encoding. Used to precompute seek offsets.
func Count(v int64) int {
	if v < 0 {
		panic("codec: negative value")
	}
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// Append appends the encoding of v to dst.
func Append(dst []byte, v int64) []byte {
	if v < 0 {
		panic("codec: negative value")
	}
	for i := Count(v) - 1; i > 0; i-- {
		dst = append(dst, ^byte(v>>(uint(i)*7)&0x7F))
	}
	return append(dst, byte(v&0x7F))
}

// Decode decodes one value from the front of b and reports the number of
// bytes consumed. A truncated or overlong encoding yields n == 0.
func Decode(b []byte) (v int64, n int) {
	limit := len(b)
	if limit > MaxLen {
		limit = MaxLen
	}
	for i := 0; i < limit; i++ {
		c := b[i]
		if c&0x80 == 0 {
			return v<<7 | int64(c), i + 1
		}
		v = v<<7 | int64(^c)
	}
	return 0, 0
}

// Read decodes one value from r. A stream ending mid-value is a
// FormatError.
func Read(r io.ByteReader) (int64, error) {
	var v int64
	for i := 0; i < MaxLen; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, &FormatError{Reason: "truncated varint", Err: err}
		}
		if c&0x80 == 0 {
			return v<<7 | int64(c), nil
		}
		v = v<<7 | int64(^c)
	}
	return 0, &FormatError{Reason: "varint exceeds nine bytes"}
}
