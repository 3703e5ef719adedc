package bintrie

import "fmt"

// Interval is a closed index range [Left, Right]. Any interval with
// Right < Left is empty; Empty is the canonical empty value.
type Interval struct {
	Left  int64
	Right int64
}

// Empty is the sentinel returned when no index can possibly match.
var Empty = Interval{Left: 0, Right: -1}

func (iv Interval) IsEmpty() bool {
	return iv.Right < iv.Left
}

// Length returns the number of indices in the interval.
func (iv Interval) Length() int64 {
	if iv.IsEmpty() {
		return 0
	}
	return iv.Right - iv.Left + 1
}

// Contains reports whether other lies entirely within iv. The empty
// interval is contained in everything.
func (iv Interval) Contains(other Interval) bool {
	if other.IsEmpty() {
		return true
	}
	return iv.Left <= other.Left && other.Right <= iv.Right
}

func (iv Interval) String() string {
	if iv.IsEmpty() {
		return "[empty]"
	}
	return fmt.Sprintf("[%d, %d]", iv.Left, iv.Right)
}
