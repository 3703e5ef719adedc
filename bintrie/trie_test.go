package bintrie

import (
	"errors"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prefixmap/bits"
	"prefixmap/codec"
)

func TestIntervalBasics(t *testing.T) {
	t.Parallel()

	require.True(t, Empty.IsEmpty())
	require.Equal(t, int64(0), Empty.Length())
	require.True(t, Interval{Left: 5, Right: 2}.IsEmpty())

	iv := Interval{Left: 2, Right: 5}
	require.False(t, iv.IsEmpty())
	require.Equal(t, int64(4), iv.Length())
	require.True(t, iv.Contains(Interval{Left: 3, Right: 5}))
	require.True(t, iv.Contains(Empty))
	require.False(t, iv.Contains(Interval{Left: 1, Right: 3}))
	require.Equal(t, "[2, 5]", iv.String())
	require.Equal(t, "[empty]", Empty.String())
}

func TestBuildRejectsUnsorted(t *testing.T) {
	t.Parallel()

	var oe *codec.OrderError
	_, err := Build([]bits.BitString{bits.NewFromText("b"), bits.NewFromText("a")})
	require.True(t, errors.As(err, &oe))
	require.False(t, oe.Duplicate)

	_, err = Build([]bits.BitString{bits.NewFromText("a"), bits.NewFromText("a")})
	require.True(t, errors.As(err, &oe))
	require.True(t, oe.Duplicate)
}

func TestEmptyTrie(t *testing.T) {
	t.Parallel()

	tr, err := Build(nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), tr.Leaves())
	require.True(t, tr.ApproximateInterval(bits.NewFromText("x")).IsEmpty())
	require.True(t, tr.ApproximateInterval(bits.BitString{}).IsEmpty())
}

func TestSingleDelimiter(t *testing.T) {
	t.Parallel()

	tr, err := Build([]bits.BitString{bits.NewFromText("m")})
	require.NoError(t, err)

	// There is only block 0, so every non-empty result is [0, 0].
	require.Equal(t, Interval{Left: 0, Right: 0}, tr.ApproximateInterval(bits.NewFromText("m")))
	require.Equal(t, Interval{Left: 0, Right: 0}, tr.ApproximateInterval(bits.NewFromText("mo")))
	require.Equal(t, Interval{Left: 0, Right: 0}, tr.ApproximateInterval(bits.NewFromText("z")))
	require.Equal(t, Interval{Left: 0, Right: 0}, tr.ApproximateInterval(bits.BitString{}))
	require.True(t, tr.ApproximateInterval(bits.NewFromText("a")).IsEmpty())
}

func TestKnownDelimiters(t *testing.T) {
	t.Parallel()

	// Blocks: 0 ["apple", ...), 1 ["apply", ...), 2 ["banana", ...).
	tr, err := Build([]bits.BitString{
		bits.NewFromText("apple"),
		bits.NewFromText("apply"),
		bits.NewFromText("banana"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), tr.Leaves())

	require.Equal(t, Interval{Left: 0, Right: 2}, tr.ApproximateInterval(bits.BitString{}))

	// "app" is a prefix of both "apple" delimiters' subtree.
	app := tr.ApproximateInterval(bits.NewFromText("app"))
	require.Equal(t, Interval{Left: 0, Right: 1}, app)

	// "banana" terms live in block 2; the approximation may include the
	// block before, never fewer.
	ban := tr.ApproximateInterval(bits.NewFromText("ban"))
	require.False(t, ban.IsEmpty())
	require.True(t, ban.Left <= 2 && 2 <= ban.Right)

	// Sorts above every delimiter: only the last block can hold it.
	require.Equal(t, Interval{Left: 2, Right: 2}, tr.ApproximateInterval(bits.NewFromText("zebra")))

	// Sorts below the first delimiter: nothing can match.
	require.True(t, tr.ApproximateInterval(bits.NewFromText("aardvark")).IsEmpty())

	// Between blocks 0 and 1: pinned to block 0.
	require.Equal(t, Interval{Left: 0, Right: 0}, tr.ApproximateInterval(bits.NewFromText("appli")))
}

// A delimiter that is a strict prefix of the next one lands on an interior
// node instead of a leaf.
func TestCarriedDelimiter(t *testing.T) {
	t.Parallel()

	tr, err := Build([]bits.BitString{
		bits.NewFromText("app"),
		bits.NewFromText("apple"),
		bits.NewFromText("applying"),
	})
	require.NoError(t, err)

	iv := tr.ApproximateInterval(bits.NewFromText("app"))
	require.Equal(t, Interval{Left: 0, Right: 2}, iv)

	iv = tr.ApproximateInterval(bits.NewFromText("appl"))
	require.False(t, iv.IsEmpty())
	require.True(t, iv.Left <= 1 && 2 <= iv.Right)

	// Falls between "app" and "apple": block 0.
	require.Equal(t, Interval{Left: 0, Right: 0}, tr.ApproximateInterval(bits.NewFromText("apparatus")))
}

// No false negatives and monotone approximation, checked against a brute
// force over randomly bucketed keys.
func TestApproximationProperties(t *testing.T) {
	t.Parallel()

	const testRuns = 200
	seed := time.Now().UnixNano()
	t.Logf("seed: %d", seed)
	rng := rand.New(rand.NewSource(seed))

	for run := 0; run < testRuns; run++ {
		keySet := make(map[string]struct{})
		for len(keySet) < 2+rng.Intn(60) {
			n := 1 + rng.Intn(10)
			b := make([]byte, n)
			for i := range b {
				b[i] = byte('a' + rng.Intn(4))
			}
			keySet[string(b)] = struct{}{}
		}
		keys := make([]string, 0, len(keySet))
		for k := range keySet {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		bucketSize := 1 + rng.Intn(5)
		var delims []bits.BitString
		blockOf := make([]int64, len(keys))
		for i, k := range keys {
			if i%bucketSize == 0 {
				delims = append(delims, bits.NewFromText(k))
			}
			blockOf[i] = int64(i / bucketSize)
		}

		tr, err := Build(delims)
		require.NoError(t, err)

		for q := 0; q < 30; q++ {
			n := rng.Intn(6)
			b := make([]byte, n)
			for i := range b {
				b[i] = byte('a' + rng.Intn(5))
			}
			prefix := string(b)
			p := bits.NewFromText(prefix)

			iv := tr.ApproximateInterval(p)
			for i, k := range keys {
				if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
					require.False(t, iv.IsEmpty(),
						"false negative: key %q matches %q", k, prefix)
					require.True(t, iv.Left <= blockOf[i] && blockOf[i] <= iv.Right,
						"false negative: key %q in block %d outside %v for prefix %q",
						k, blockOf[i], iv, prefix)
				}
			}

			// Every shorter prefix must yield a containing interval.
			for cut := 0; cut < p.Size(); cut++ {
				outer := tr.ApproximateInterval(p.Prefix(cut))
				require.True(t, outer.Contains(iv),
					"not monotone: %v for %q does not contain %v", outer, prefix, iv)
			}
		}
	}
}
