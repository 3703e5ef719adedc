package terms

import (
	"bytes"

	"prefixmap/codec"
)

// Iterator yields byte terms of a sorted sequence. The slice returned by
// Term is valid only until the next call to Next.
type Iterator interface {
	Next() bool
	Term() []byte
	Err() error
}

// Source produces a fresh iteration of the same sequence on every call.
// Builders that need two passes over their input take a Source.
type Source interface {
	Terms() (Iterator, error)
}

// SliceIterator iterates over an in-memory term list.
type SliceIterator struct {
	terms []string
	i     int
	cur   []byte
}

func NewSliceIterator(terms []string) *SliceIterator {
	return &SliceIterator{terms: terms}
}

func (it *SliceIterator) Next() bool {
	if it.i >= len(it.terms) {
		return false
	}
	it.cur = append(it.cur[:0], it.terms[it.i]...)
	it.i++
	return true
}

func (it *SliceIterator) Term() []byte { return it.cur }
func (it *SliceIterator) Err() error   { return nil }

// SliceSource adapts a term list to the Source interface.
type SliceSource []string

func (s SliceSource) Terms() (Iterator, error) {
	return NewSliceIterator(s), nil
}

// CheckedIterator verifies that the wrapped iterator yields terms in
// strictly increasing order, stopping with an OrderError that names the
// duplicate or the inversion.
type CheckedIterator struct {
	inner   Iterator
	prev    []byte
	started bool
	count   int64
	err     error
}

func Checked(inner Iterator) *CheckedIterator {
	return &CheckedIterator{inner: inner}
}

func (it *CheckedIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.inner.Next() {
		it.err = it.inner.Err()
		return false
	}
	term := it.inner.Term()
	if it.started {
		switch cmp := bytes.Compare(it.prev, term); {
		case cmp == 0:
			it.err = &codec.OrderError{Duplicate: true, Index: it.count, Prev: string(it.prev), Term: string(term)}
			return false
		case cmp > 0:
			it.err = &codec.OrderError{Index: it.count, Prev: string(it.prev), Term: string(term)}
			return false
		}
	}
	it.prev = append(it.prev[:0], term...)
	it.started = true
	it.count++
	return true
}

func (it *CheckedIterator) Term() []byte { return it.inner.Term() }

// Count reports the number of terms accepted so far.
func (it *CheckedIterator) Count() int64 { return it.count }

func (it *CheckedIterator) Err() error { return it.err }
