package bits

import (
	"math/bits"
	"strings"

	"prefixmap/errutil"
)

// BitString is an immutable sequence of bits backed by a string, most
// significant bit of each byte first, so that bitwise lexicographic order
// coincides with byte lexicographic order of the backing data. Bits past
// Size in the final byte are always zero and the backing never extends past
// the final byte, which makes values comparable with == and usable as map
// keys.
type BitString struct {
	data     string
	sizeBits uint32
}

// New builds a BitString from the first sizeBits bits of data. The slice is
// copied and the unused tail of the final byte is cleared.
func New(data []byte, sizeBits int) BitString {
	if sizeBits == 0 {
		return BitString{}
	}
	numBytes := (sizeBits + 7) / 8
	errutil.BugOn(len(data) < numBytes, "data length %d is insufficient for %d bits", len(data), sizeBits)

	resultData := make([]byte, numBytes)
	copy(resultData, data[:numBytes])
	if r := sizeBits % 8; r != 0 {
		resultData[numBytes-1] &= byte(0xFF << (8 - r))
	}

	return BitString{
		data:     string(resultData),
		sizeBits: uint32(sizeBits),
	}
}

// NewFromText wraps the bytes of text; no copy is needed since strings are
// immutable and every bit of every byte is used.
func NewFromText(text string) BitString {
	return BitString{
		data:     text,
		sizeBits: uint32(len(text)) * 8,
	}
}

func NewFromBytes(data []byte) BitString {
	return BitString{
		data:     string(data),
		sizeBits: uint32(len(data)) * 8,
	}
}

// NewFromBinary parses a string of '0' and '1' runes, first rune = first bit.
func NewFromBinary(text string) BitString {
	size := len(text)
	if size == 0 {
		return BitString{}
	}

	dataBytes := make([]byte, (size+7)/8)
	for i, r := range text {
		switch r {
		case '1':
			dataBytes[i/8] |= 1 << (7 - i%8)
		case '0':
		default:
			errutil.Bug("invalid binary string %q", text)
		}
	}

	return BitString{
		data:     string(dataBytes),
		sizeBits: uint32(size),
	}
}

func (bs BitString) Size() int {
	return int(bs.sizeBits)
}

func (bs BitString) IsEmpty() bool {
	return bs.sizeBits == 0
}

func (bs BitString) At(index int) bool {
	if index < 0 || uint32(index) >= bs.sizeBits {
		panic("bits: index out of bounds")
	}
	return (bs.data[index/8] & (1 << (7 - index%8))) != 0
}

func (bs BitString) Equal(other BitString) bool {
	return bs == other
}

// CommonPrefixLen returns the length of the longest common bit prefix.
func (bs BitString) CommonPrefixLen(other BitString) int {
	minBits := bs.Size()
	if other.Size() < minBits {
		minBits = other.Size()
	}
	if minBits == 0 {
		return 0
	}

	aData, bData := bs.data, other.data
	minBytes := minBits / 8
	i := 0
	for i < minBytes && aData[i] == bData[i] {
		i++
	}
	result := i * 8

	if result < minBits {
		xor := aData[i] ^ bData[i]
		if xor == 0 {
			result += 8
		} else {
			result += bits.LeadingZeros8(xor)
		}
	}

	if result > minBits {
		result = minBits
	}
	return result
}

func (bs BitString) HasPrefix(prefix BitString) bool {
	if prefix.sizeBits == 0 {
		return true
	}
	if prefix.sizeBits > bs.sizeBits {
		return false
	}
	return bs.CommonPrefixLen(prefix) == prefix.Size()
}

// Compare orders bit strings lexicographically; a strict prefix sorts
// before its extensions. MSB-first backing makes byte order and bit order
// agree, so only the final partial byte needs masking.
func (bs BitString) Compare(other BitString) int {
	minBits := bs.Size()
	if other.Size() < minBits {
		minBits = other.Size()
	}

	minBytes := (minBits + 7) / 8
	tail := minBits % 8
	for i := 0; i < minBytes; i++ {
		a, b := bs.data[i], other.data[i]
		if tail != 0 && i == minBytes-1 {
			mask := byte(0xFF << (8 - tail))
			a &= mask
			b &= mask
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}

	switch {
	case bs.sizeBits < other.sizeBits:
		return -1
	case bs.sizeBits > other.sizeBits:
		return 1
	}
	return 0
}

// Prefix returns the first size bits. A request for the full size returns
// the receiver without copying.
func (bs BitString) Prefix(size int) BitString {
	if size < 0 || uint32(size) > bs.sizeBits {
		panic("bits: prefix size out of bounds")
	}
	if uint32(size) == bs.sizeBits {
		return bs
	}
	if size == 0 {
		return BitString{}
	}

	numBytes := (size + 7) / 8
	resultData := []byte(bs.data[:numBytes])
	if r := size % 8; r != 0 {
		resultData[numBytes-1] &= byte(0xFF << (8 - r))
	}

	return BitString{
		data:     string(resultData),
		sizeBits: uint32(size),
	}
}

// Suffix returns the bits from position from to the end.
func (bs BitString) Suffix(from int) BitString {
	if from < 0 || uint32(from) > bs.sizeBits {
		panic("bits: suffix start out of bounds")
	}
	size := bs.Size() - from
	if size == 0 {
		return BitString{}
	}
	if from%8 == 0 {
		return BitString{
			data:     bs.data[from/8 : from/8+(size+7)/8],
			sizeBits: uint32(size),
		}
	}

	resultData := make([]byte, (size+7)/8)
	for i := 0; i < size; i++ {
		if bs.At(from + i) {
			resultData[i/8] |= 1 << (7 - i%8)
		}
	}
	return BitString{
		data:     string(resultData),
		sizeBits: uint32(size),
	}
}

func (bs BitString) AppendBit(bit bool) BitString {
	newSize := bs.sizeBits + 1
	newData := make([]byte, (newSize+7)/8)
	copy(newData, bs.data)
	if bit {
		newData[bs.sizeBits/8] |= 1 << (7 - bs.sizeBits%8)
	}
	return BitString{
		data:     string(newData),
		sizeBits: newSize,
	}
}

// Data returns a copy of the backing bytes, tail bits zeroed.
func (bs BitString) Data() []byte {
	return []byte(bs.data)
}

func (bs BitString) String() string {
	if bs.sizeBits == 0 {
		return "<empty>"
	}

	var sb strings.Builder
	sb.Grow(int(bs.sizeBits))
	for i := 0; i < bs.Size(); i++ {
		if bs.At(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
