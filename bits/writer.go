package bits

// Writer is an append-only bit stream, most significant bit of each byte
// first, matching BitString bit order. The zero value is ready to use.
type Writer struct {
	buf    []byte
	bitLen int64
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) WriteBit(bit bool) {
	byteIdx := int(w.bitLen >> 3)
	if byteIdx == len(w.buf) {
		w.buf = append(w.buf, 0)
	}
	if bit {
		w.buf[byteIdx] |= 1 << (7 - w.bitLen&7)
	}
	w.bitLen++
}

func (w *Writer) WriteBitString(bs BitString) {
	for i := 0; i < bs.Size(); i++ {
		w.WriteBit(bs.At(i))
	}
}

// WriteUnary writes n one-bits terminated by a single zero-bit.
func (w *Writer) WriteUnary(n int64) {
	if n < 0 {
		panic("bits: negative unary value")
	}
	for ; n > 0; n-- {
		w.WriteBit(true)
	}
	w.WriteBit(false)
}

// AlignTo pads the stream with zero bits up to the next multiple of
// blockBits and returns the number of padding bits written.
func (w *Writer) AlignTo(blockBits int64) int64 {
	if blockBits <= 0 {
		panic("bits: non-positive block size")
	}
	pad := (blockBits - w.bitLen%blockBits) % blockBits
	target := (w.bitLen + pad + 7) >> 3
	for int64(len(w.buf)) < target {
		w.buf = append(w.buf, 0)
	}
	w.bitLen += pad
	return pad
}

func (w *Writer) BitLen() int64 {
	return w.bitLen
}

// Bytes returns the stream padded with zero bits to a whole byte. The
// returned slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// BitString snapshots the written bits as a BitString.
func (w *Writer) BitString() BitString {
	return New(w.buf, int(w.bitLen))
}
