// Command pmbuild builds an entropy-coded prefix map from
// newline-separated sorted input. The result is written as a file set
// next to the given base path, and optionally as a single portable
// stream.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"prefixmap/extmap"
	"prefixmap/terms"
)

func main() {
	var (
		in      = flag.String("in", "-", "Input path with one term per line, sorted; .gz is decompressed, - reads stdin")
		out     = flag.String("out", "", "Output base path; writes <out>.properties, <out>.pointers, <out>.dump")
		block   = flag.Int("block", 1024, "Block size in bytes; each block is indexed by one delimiter")
		gz      = flag.Bool("gzip", false, "Treat the input as gzip even without a .gz suffix")
		bufsize = flag.Int("bufsize", terms.DefaultLineBuffer, "Longest accepted input line in bytes")
		export  = flag.String("export", "", "Also write the map as a single portable stream to this path")
		stats   = flag.Bool("stats", false, "Print a size report after building")
	)
	flag.Parse()

	if *out == "" {
		fail("out must be set")
	}
	if *block < 1 {
		fail("block must be >= 1")
	}

	src, err := terms.NewFileSource(*in, *bufsize, *gz)
	if err != nil {
		fail("%v", err)
	}

	m, err := extmap.Build(&barSource{src: src}, *block)
	if err != nil {
		fail("build failed: %v", err)
	}
	if err := m.Store(*out); err != nil {
		fail("store failed: %v", err)
	}

	if *export != "" {
		f, err := os.Create(*export)
		if err != nil {
			fail("%v", err)
		}
		if err := m.Export(f); err != nil {
			f.Close()
			fail("export failed: %v", err)
		}
		if err := f.Close(); err != nil {
			fail("%v", err)
		}
	}

	report := m.SizeReport()
	fmt.Printf("done: %s terms, %s on disk\n",
		humanize.Comma(m.Len()), humanize.Bytes(uint64(report.Total())))
	if *stats {
		fmt.Print(report.String())
	}
}

// barSource shows one progress bar per pass over the input.
type barSource struct {
	src  terms.Source
	pass int
}

func (s *barSource) Terms() (terms.Iterator, error) {
	it, err := s.src.Terms()
	if err != nil {
		return nil, err
	}
	s.pass++
	bar := progressbar.Default(-1, fmt.Sprintf("pass %d", s.pass))
	return &barIterator{Iterator: it, bar: bar}, nil
}

type barIterator struct {
	terms.Iterator
	bar *progressbar.ProgressBar
}

func (it *barIterator) Next() bool {
	if !it.Iterator.Next() {
		return false
	}
	it.bar.Add(1)
	return true
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
