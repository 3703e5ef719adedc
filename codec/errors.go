package codec

import (
	"errors"
	"fmt"
)

// OrderError reports builder input that is not strictly increasing. All
// builders abort on the first violation without producing a structure.
type OrderError struct {
	Duplicate bool // duplicate term, as opposed to an inversion
	Index     int64
	Prev      string
	Term      string
}

func (e *OrderError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("codec: duplicate term %q at index %d", e.Term, e.Index)
	}
	return fmt.Sprintf("codec: term %q at index %d sorts before its predecessor %q",
		e.Term, e.Index, e.Prev)
}

// RangeError reports an index outside [0, Size). The structure stays
// usable after the failed call.
type RangeError struct {
	Index int64
	Size  int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("codec: index %d out of range [0, %d)", e.Index, e.Size)
}

// FormatError reports a stream that could not have been produced by the
// matching encoder. Only expected under data corruption. Offset is in the
// stream's native unit (bytes for byte streams, bits for bit streams).
type FormatError struct {
	Offset int64
	Reason string
	Err    error // underlying read error, if any
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codec: malformed stream at offset %d: %s: %v", e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("codec: malformed stream at offset %d: %s", e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// SizeError reports a persisted size that does not match the size recorded
// at build time. Reattachment refuses to proceed.
type SizeError struct {
	What string
	Want int64
	Got  int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("codec: %s size mismatch: recorded %d, found %d", e.What, e.Want, e.Got)
}

// ConfigError reports a configuration value the structure cannot be built
// or operated with.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "codec: " + e.Reason
}

// ErrStaleCursor reports a cursor or iterator used after the store backing
// it was closed.
var ErrStaleCursor = errors.New("codec: stale cursor, backing store is closed")
