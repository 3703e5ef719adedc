package bits

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prefixmap/codec"
)

func TestWriterKnownPattern(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	w.WriteUnary(3)
	w.WriteBitString(NewFromBinary("01"))
	require.Equal(t, int64(6), w.BitLen())

	pad := w.AlignTo(8)
	require.Equal(t, int64(2), pad)
	require.Equal(t, int64(8), w.BitLen())
	require.Equal(t, []byte{0xE4}, w.Bytes())

	// Aligning an aligned stream is a no-op.
	require.Equal(t, int64(0), w.AlignTo(8))
	require.True(t, w.BitString() == NewFromBinary("11100100"))
}

func TestReaderKnownPattern(t *testing.T) {
	t.Parallel()

	r := NewReader(bytes.NewReader([]byte{0xE4}), 8)
	n, err := r.ReadUnary()
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	bit, err := r.ReadBit()
	require.NoError(t, err)
	require.False(t, bit)
	bit, err = r.ReadBit()
	require.NoError(t, err)
	require.True(t, bit)
	require.Equal(t, int64(6), r.Pos())

	require.NoError(t, r.Seek(0))
	n, err = r.ReadUnary()
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestReaderPastEnd(t *testing.T) {
	t.Parallel()

	r := NewReader(bytes.NewReader([]byte{0xFF}), 3)
	for i := 0; i < 3; i++ {
		bit, err := r.ReadBit()
		require.NoError(t, err)
		require.True(t, bit)
	}
	_, err := r.ReadBit()
	var fe *codec.FormatError
	require.True(t, errors.As(err, &fe))

	// A unary run hitting the end of the stream is a format error, not a
	// silent termination.
	require.NoError(t, r.Seek(0))
	_, err = r.ReadUnary()
	require.True(t, errors.As(err, &fe))

	require.Error(t, r.Seek(4))
	require.Error(t, r.Seek(-1))
	require.NoError(t, r.Seek(3))
}

func TestStreamRoundTrip(t *testing.T) {
	t.Parallel()

	const iterations = 200
	seed := time.Now().UnixNano()
	t.Logf("seed: %d", seed)
	rng := rand.New(rand.NewSource(seed))

	type op struct {
		unary    int64
		bitStr   BitString
		isUnary  bool
		startPos int64
	}

	for iter := 0; iter < iterations; iter++ {
		w := NewWriter()
		ops := make([]op, 0, 32)
		for i := 0; i < 2+rng.Intn(30); i++ {
			o := op{startPos: w.BitLen()}
			if rng.Intn(2) == 0 {
				o.isUnary = true
				o.unary = int64(rng.Intn(40))
				w.WriteUnary(o.unary)
			} else {
				o.bitStr = NewFromBinary(randomBinaryString(rng, 1+rng.Intn(24)))
				w.WriteBitString(o.bitStr)
			}
			ops = append(ops, o)
		}
		total := w.BitLen()

		r := NewReader(bytes.NewReader(w.Bytes()), total)
		for _, o := range ops {
			if o.isUnary {
				n, err := r.ReadUnary()
				require.NoError(t, err)
				require.Equal(t, o.unary, n)
			} else {
				for j := 0; j < o.bitStr.Size(); j++ {
					bit, err := r.ReadBit()
					require.NoError(t, err)
					require.Equal(t, o.bitStr.At(j), bit)
				}
			}
		}
		require.Equal(t, total, r.Pos())

		// Random re-seek to an op boundary replays the same value.
		o := ops[rng.Intn(len(ops))]
		require.NoError(t, r.Seek(o.startPos))
		if o.isUnary {
			n, err := r.ReadUnary()
			require.NoError(t, err)
			require.Equal(t, o.unary, n)
		}
	}
}

func TestReaderCloneIndependence(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	for i := int64(0); i < 100; i++ {
		w.WriteUnary(i % 7)
	}
	src := bytes.NewReader(w.Bytes())

	base := NewReader(src, w.BitLen())
	c1 := base.Clone()
	c2 := base.Clone()

	n, err := c1.ReadUnary()
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
	n, err = c1.ReadUnary()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// c2 is still at the start.
	require.Equal(t, int64(0), c2.Pos())
	n, err = c2.ReadUnary()
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
	require.Equal(t, int64(0), base.Pos())
}
