package frontcoded

import (
	"unicode/utf16"
	"unicode/utf8"

	"prefixmap/codec"
)

// UTF-16 projection: when the stored bytes are UTF-8 text, these decode
// them back to UTF-16 code units, with supplementary-plane runes expanding
// to surrogate pairs. The bytes are trusted to come from the matching
// encoder; malformed sequences are a format violation, never repaired.

// UTF16 returns element i decoded to UTF-16 code units.
func (l *List) UTF16(i int64) ([]uint16, error) {
	b, err := l.Get(i)
	if err != nil {
		return nil, err
	}
	units := make([]uint16, 0, len(b))
	for pos := 0; pos < len(b); {
		r, size := utf8.DecodeRune(b[pos:])
		if r == utf8.RuneError && size <= 1 {
			return nil, &codec.FormatError{Offset: int64(pos), Reason: "invalid UTF-8 sequence"}
		}
		if r > 0xFFFF {
			r1, r2 := utf16.EncodeRune(r)
			units = append(units, uint16(r1), uint16(r2))
		} else {
			units = append(units, uint16(r))
		}
		pos += size
	}
	return units, nil
}

// UTF16Length returns the number of UTF-16 code units of element i without
// building the slice.
func (l *List) UTF16Length(i int64) (int, error) {
	b, err := l.Get(i)
	if err != nil {
		return 0, err
	}
	count := 0
	for pos := 0; pos < len(b); {
		r, size := utf8.DecodeRune(b[pos:])
		if r == utf8.RuneError && size <= 1 {
			return 0, &codec.FormatError{Offset: int64(pos), Reason: "invalid UTF-8 sequence"}
		}
		count++
		if r > 0xFFFF {
			count++
		}
		pos += size
	}
	return count, nil
}
