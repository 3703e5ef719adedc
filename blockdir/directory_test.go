// Package blockdir compares candidate representations of the block
// directory: the structure answering, for a unit index, which block it
// belongs to, and for a block, its first unit. Three candidates: an
// rsdic rank/select dictionary, a Hanov-style rank directory, and a
// plain sorted slice of block starts.
package blockdir

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/hillbig/rsdic"
	trie "github.com/siongui/go-succinct-data-structure-trie/reference"
	"github.com/stretchr/testify/require"
)

// starts[i] is true when unit i begins a new block. starts[0] is always
// true for a non-empty directory.
func generateStarts(rng *rand.Rand, units int, density float64) []bool {
	starts := make([]bool, units)
	starts[0] = true
	for i := 1; i < units; i++ {
		starts[i] = rng.Float64() < density
	}
	return starts
}

type directory interface {
	blockOf(unit int) int
	firstUnit(block int) int
}

type rsdicDir struct {
	rs *rsdic.RSDic
}

func newRsdicDir(starts []bool) *rsdicDir {
	rs := rsdic.New()
	for _, s := range starts {
		rs.PushBack(s)
	}
	return &rsdicDir{rs: rs}
}

func (d *rsdicDir) blockOf(unit int) int {
	return int(d.rs.Rank(uint64(unit+1), true)) - 1
}

func (d *rsdicDir) firstUnit(block int) int {
	n := int(d.rs.Num())
	return sort.Search(n, func(u int) bool {
		return d.rs.Rank(uint64(u+1), true) >= uint64(block+1)
	})
}

type hanovDir struct {
	rd      trie.RankDirectory
	numBits uint
}

func newHanovDir(starts []bool) *hanovDir {
	bw := trie.BitWriter{}
	for _, s := range starts {
		if s {
			bw.Write(1, 1)
		} else {
			bw.Write(0, 1)
		}
	}
	// The directory build reads one position past numBits when numBits
	// lands on a sampling-block multiple; trailing zero padding keeps
	// those reads inside the data without adding any one-bits.
	for i := 0; i < 48; i++ {
		bw.Write(0, 1)
	}
	numBits := uint(len(starts))
	rd := trie.CreateRankDirectory(bw.GetData(), numBits, 32*32, 32)
	return &hanovDir{rd: rd, numBits: numBits}
}

func (d *hanovDir) blockOf(unit int) int {
	return int(d.rd.Rank(1, uint(unit))) - 1
}

func (d *hanovDir) firstUnit(block int) int {
	return int(d.rd.Select(1, uint(block+1)))
}

type sliceDir struct {
	starts []int64
}

func newSliceDir(starts []bool) *sliceDir {
	var out []int64
	for i, s := range starts {
		if s {
			out = append(out, int64(i))
		}
	}
	return &sliceDir{starts: out}
}

func (d *sliceDir) blockOf(unit int) int {
	return sort.Search(len(d.starts), func(i int) bool {
		return d.starts[i] > int64(unit)
	}) - 1
}

func (d *sliceDir) firstUnit(block int) int {
	return int(d.starts[block])
}

// Unit counts landing exactly on the rank directory's sampling-block
// multiples make its build read right at the end of the bit data; these
// sizes must construct and answer queries like any other.
func TestDirectoriesAtSamplingBoundaries(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for _, units := range []int{32, 64, 192, 960, 1024, 1056, 2048} {
		starts := generateStarts(rng, units, 0.3)

		blocks := 0
		blockOfUnit := make([]int, units)
		for i, s := range starts {
			if s {
				blocks++
			}
			blockOfUnit[i] = blocks - 1
		}

		for _, d := range []directory{newRsdicDir(starts), newHanovDir(starts), newSliceDir(starts)} {
			require.Equal(t, blockOfUnit[units-1], d.blockOf(units-1), "units=%d", units)
			require.Equal(t, 0, d.blockOf(0), "units=%d", units)
			for b := 0; b < blocks; b++ {
				require.Equal(t, b, blockOfUnit[d.firstUnit(b)], "units=%d", units)
			}
		}
	}
}

func TestDirectoriesAgree(t *testing.T) {
	t.Parallel()

	seed := time.Now().UnixNano()
	t.Logf("seed: %d", seed)
	rng := rand.New(rand.NewSource(seed))

	for run := 0; run < 30; run++ {
		units := 1 + rng.Intn(2000)
		density := []float64{0.02, 0.3, 0.9}[rng.Intn(3)]
		starts := generateStarts(rng, units, density)

		blocks := 0
		blockOfUnit := make([]int, units)
		for i, s := range starts {
			if s {
				blocks++
			}
			blockOfUnit[i] = blocks - 1
		}

		dirs := []directory{newRsdicDir(starts), newHanovDir(starts), newSliceDir(starts)}
		for _, d := range dirs {
			for q := 0; q < 200; q++ {
				u := rng.Intn(units)
				require.Equal(t, blockOfUnit[u], d.blockOf(u))
			}
			for b := 0; b < blocks; b++ {
				u := d.firstUnit(b)
				require.True(t, starts[u])
				require.Equal(t, b, blockOfUnit[u])
			}
		}
	}
}
