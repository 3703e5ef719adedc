// Compare and CommonPrefixLen benchmarks across input sizes, with
// bytes.Compare on the raw backing as the baseline.

package bits

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"
	"time"
)

var compareSizes = []int{64, 128, 256, 512, 1024}

func BenchmarkCompare(b *testing.B) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, size := range compareSizes {
		b.Run(fmt.Sprintf("Size%d", size), func(b *testing.B) {
			bs1 := NewFromBinary(randomBinaryString(rng, size))
			bs2 := NewFromBinary(randomBinaryString(rng, size))

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = bs1.Compare(bs2)
			}
		})
	}
}

func Benchmark_BytesCompare(b *testing.B) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, size := range compareSizes {
		b.Run(fmt.Sprintf("Size%d", size), func(b *testing.B) {
			d1 := NewFromBinary(randomBinaryString(rng, size)).Data()
			d2 := NewFromBinary(randomBinaryString(rng, size)).Data()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = bytes.Compare(d1, d2)
			}
		})
	}
}

func BenchmarkCommonPrefixLen(b *testing.B) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, size := range compareSizes {
		b.Run(fmt.Sprintf("Size%d", size), func(b *testing.B) {
			shared := randomBinaryString(rng, size-1)
			bs1 := NewFromBinary(shared + "0")
			bs2 := NewFromBinary(shared + "1")

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = bs1.CommonPrefixLen(bs2)
			}
		})
	}
}
