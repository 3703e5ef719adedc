// Command fcbuild builds a front-coded term list from newline-separated
// sorted input and writes it as a three-file set next to the given base
// path.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"prefixmap/frontcoded"
	"prefixmap/terms"
)

func main() {
	var (
		in      = flag.String("in", "-", "Input path with one term per line, sorted; .gz is decompressed, - reads stdin")
		out     = flag.String("out", "", "Output base path; writes <out>.properties, <out>.bytearray, <out>.pointers")
		ratio   = flag.Int("ratio", 4, "Terms per coding block; 1 stores every term in full")
		gz      = flag.Bool("gzip", false, "Treat the input as gzip even without a .gz suffix")
		bufsize = flag.Int("bufsize", terms.DefaultLineBuffer, "Longest accepted input line in bytes")
		stats   = flag.Bool("stats", false, "Print a size report after building")
	)
	flag.Parse()

	if *out == "" {
		fail("out must be set")
	}
	if *ratio < 1 {
		fail("ratio must be >= 1")
	}

	src, err := terms.NewFileSource(*in, *bufsize, *gz)
	if err != nil {
		fail("%v", err)
	}
	it, err := src.Terms()
	if err != nil {
		fail("%v", err)
	}

	bar := progressbar.Default(-1, "reading terms")
	list, err := frontcoded.Build(&barIterator{Iterator: it, bar: bar}, *ratio)
	bar.Finish()
	if err != nil {
		fail("build failed: %v", err)
	}
	if err := list.Store(*out); err != nil {
		fail("store failed: %v", err)
	}

	report := list.SizeReport()
	fmt.Printf("done: %s terms, %s on disk, ratio %d\n",
		humanize.Comma(list.Len()), humanize.Bytes(uint64(report.Total())), list.Ratio())
	if *stats {
		fmt.Print(report.String())
	}
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
