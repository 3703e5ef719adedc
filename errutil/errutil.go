// Package errutil holds debug-gated invariant checks for conditions that
// indicate programming bugs, never user input. With debug off the checks
// compile to nothing.
package errutil

import (
	"fmt"
)

// Set to true to enable invariant checks that are too hot for production.
const debug = false

func Bug(format string, msg ...any) {
	if debug {
		panic(fmt.Sprintf(format, msg...))
	}
}

func BugOn(cond bool, format string, msg ...any) {
	if debug && cond {
		Bug(format, msg...)
	}
}
