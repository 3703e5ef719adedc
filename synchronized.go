package prefixmap

import (
	"sync"

	"prefixmap/bintrie"
)

// Synchronized wraps a map so that all calls serialize through one mutex.
// The structures themselves are safe for concurrent reads with per-caller
// cursors; this decorator is for callers that must share one handle whose
// variant carries cursor state they cannot clone.
func Synchronized(m Interface) Interface {
	return &synchronized{m: m}
}

type synchronized struct {
	mu sync.Mutex
	m  Interface
}

func (s *synchronized) Len() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Len()
}

func (s *synchronized) GetTerm(i int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.GetTerm(i)
}

func (s *synchronized) GetInterval(prefix string) (bintrie.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.GetInterval(prefix)
}

func (s *synchronized) IndexOf(term string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.IndexOf(term)
}
