// Package charcode builds an order-preserving prefix code over a character
// alphabet: for characters a < b the codeword of a sorts strictly below the
// codeword of b in bitwise lexicographic order, and no codeword is a prefix
// of another. Concatenating the codewords of a string therefore preserves
// both the lexicographic order of strings and the prefix relation between
// them, which is what lets a trie over coded delimiters answer prefix
// queries on the original strings.
//
// The construction is weight-balanced recursive bisection (Gilbert-Moore):
// each codeword is at most two bits longer than the symbol's ideal entropy
// length, and the build is deterministic for a given frequency table.
package charcode

import (
	"sort"

	"prefixmap/bits"
	"prefixmap/codec"
)

// Code maps characters to dense symbol ids and symbols to codewords.
// Immutable after New.
type Code struct {
	chars []rune // sorted; symbol id = index
	sym   map[rune]int
	words []bits.BitString // codeword per symbol
	root  *node            // decode tree
}

type node struct {
	left, right *node
	sym         int // valid when leaf
	leaf        bool
}

// New builds a code from character frequencies collected over the corpus.
// Characters with zero or negative counts are given weight one so that
// every character of the alphabet stays encodable.
func New(freqs map[rune]int64) (*Code, error) {
	if len(freqs) == 0 {
		return nil, &codec.ConfigError{Reason: "empty alphabet"}
	}

	chars := make([]rune, 0, len(freqs))
	for r := range freqs {
		chars = append(chars, r)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })

	c := &Code{
		chars: chars,
		sym:   make(map[rune]int, len(chars)),
		words: make([]bits.BitString, len(chars)),
	}
	for i, r := range chars {
		c.sym[r] = i
	}

	weights := make([]int64, len(chars))
	for i, r := range chars {
		w := freqs[r]
		if w < 1 {
			w = 1
		}
		weights[i] = w
	}

	// Prefix sums over [0, len] so any range weight is two lookups.
	sums := make([]int64, len(chars)+1)
	for i, w := range weights {
		sums[i+1] = sums[i] + w
	}

	c.assign(sums, 0, len(chars), bits.BitString{})
	c.root = c.buildTree()
	return c, nil
}

// assign gives every symbol in [lo, hi) a codeword extending prefix,
// splitting the range where the cumulative weight is most balanced. The
// single-symbol alphabet still gets the one-bit codeword "0" so that every
// codeword has positive length.
func (c *Code) assign(sums []int64, lo, hi int, prefix bits.BitString) {
	if hi-lo == 1 {
		if prefix.IsEmpty() {
			prefix = prefix.AppendBit(false)
		}
		c.words[lo] = prefix
		return
	}

	total := sums[hi] - sums[lo]
	// Smallest mid with at least half the weight on the left; keeps both
	// sides non-empty.
	mid := lo + 1
	for mid < hi-1 && (sums[mid]-sums[lo])*2 < total {
		mid++
	}

	c.assign(sums, lo, mid, prefix.AppendBit(false))
	c.assign(sums, mid, hi, prefix.AppendBit(true))
}

func (c *Code) buildTree() *node {
	root := &node{}
	for sym, w := range c.words {
		n := root
		for i := 0; i < w.Size(); i++ {
			if w.At(i) {
				if n.right == nil {
					n.right = &node{}
				}
				n = n.right
			} else {
				if n.left == nil {
					n.left = &node{}
				}
				n = n.left
			}
		}
		n.sym = sym
		n.leaf = true
	}
	return root
}

// Len returns the alphabet size.
func (c *Code) Len() int {
	return len(c.chars)
}

// Symbol returns the dense symbol id of r, or false when r never occurred
// in the corpus. A query prefix containing such a character cannot match
// any stored term.
func (c *Code) Symbol(r rune) (int, bool) {
	s, ok := c.sym[r]
	return s, ok
}

// Char is the inverse of Symbol.
func (c *Code) Char(sym int) rune {
	return c.chars[sym]
}

// Codeword returns the codeword of a symbol id.
func (c *Code) Codeword(sym int) bits.BitString {
	return c.words[sym]
}

// CodewordLen returns the codeword length in bits without materializing it.
func (c *Code) CodewordLen(sym int) int {
	return c.words[sym].Size()
}

// Encode appends the codewords of term to w and reports the number of bits
// written. A character outside the alphabet is a ConfigError; callers on
// the query path check Symbol first and short-circuit instead.
func (c *Code) Encode(w *bits.Writer, term []rune) (int64, error) {
	var written int64
	for _, r := range term {
		sym, ok := c.sym[r]
		if !ok {
			return written, &codec.ConfigError{Reason: "character " + string(r) + " not in alphabet"}
		}
		w.WriteBitString(c.words[sym])
		written += int64(c.words[sym].Size())
	}
	return written, nil
}

// EncodeToBitString returns the concatenated codewords of term, or false
// when term contains a character outside the alphabet.
func (c *Code) EncodeToBitString(term []rune) (bits.BitString, bool) {
	w := bits.NewWriter()
	for _, r := range term {
		sym, ok := c.sym[r]
		if !ok {
			return bits.BitString{}, false
		}
		w.WriteBitString(c.words[sym])
	}
	return w.BitString(), true
}

// DecodeSymbol consumes one codeword from r and returns its symbol id. A
// bit sequence that falls off the code tree is a FormatError.
func (c *Code) DecodeSymbol(r *bits.Reader) (int, error) {
	n := c.root
	for !n.leaf {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit {
			n = n.right
		} else {
			n = n.left
		}
		if n == nil {
			return 0, &codec.FormatError{Offset: r.Pos(), Reason: "bit sequence is not a codeword"}
		}
	}
	return n.sym, nil
}

// DecodeRune consumes one codeword and returns the decoded character.
func (c *Code) DecodeRune(r *bits.Reader) (rune, error) {
	sym, err := c.DecodeSymbol(r)
	if err != nil {
		return 0, err
	}
	return c.chars[sym], nil
}
