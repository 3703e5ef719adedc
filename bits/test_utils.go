package bits

import (
	"math/rand"
	"strings"
)

// randomTextString generates a random printable ASCII string.
func randomTextString(r *rand.Rand, length int) string {
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		sb.WriteByte(byte(32 + r.Intn(95)))
	}
	return sb.String()
}

// randomBinaryString generates a random string of '0's and '1's.
func randomBinaryString(r *rand.Rand, length int) string {
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		if r.Intn(2) == 0 {
			sb.WriteByte('0')
		} else {
			sb.WriteByte('1')
		}
	}
	return sb.String()
}

// randomBase64String generates a random base64 string for trie.BitString.
func randomBase64String(r *rand.Rand, length int) string {
	const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		sb.WriteByte(base64Chars[r.Intn(len(base64Chars))])
	}
	return sb.String()
}
