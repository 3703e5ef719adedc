package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// SizeReport is a hierarchical size accounting for a component. Bytes
// covers the node itself, excluding children.
type SizeReport struct {
	Name     string       `json:"name"`
	Bytes    int64        `json:"bytes"`
	Children []SizeReport `json:"children,omitempty"`
}

// Total returns the size of the node and everything below it.
func (r SizeReport) Total() int64 {
	total := r.Bytes
	for _, c := range r.Children {
		total += c.Total()
	}
	return total
}

// String formats the report as an indented tree with humanized sizes.
func (r SizeReport) String() string {
	var sb strings.Builder
	r.write(&sb, 0)
	return sb.String()
}

func (r SizeReport) write(sb *strings.Builder, indent int) {
	fmt.Fprintf(sb, "%s- %s: %s\n", strings.Repeat("  ", indent), r.Name,
		humanize.Bytes(uint64(r.Total())))
	for _, c := range r.Children {
		c.write(sb, indent+1)
	}
}

// JSON returns the report as a JSON document.
func (r SizeReport) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(b)
}
