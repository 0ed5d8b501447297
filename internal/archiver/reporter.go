package archiver

import (
	"fmt"
	"io"
)

// Reporter receives one line per emitted archive entry.
type Reporter interface {
	Entry(source, target string)
}

// StreamReporter writes "source => target" lines to a stream. Entry listings
// go to stdout so a dry run stays pipeable.
type StreamReporter struct {
	out io.Writer
}

// NewStreamReporter creates a reporter writing to the given stream.
func NewStreamReporter(out io.Writer) *StreamReporter {
	return &StreamReporter{out: out}
}

// Entry implements Reporter.
func (r *StreamReporter) Entry(source, target string) {
	fmt.Fprintf(r.out, "%s => %s\n", source, target)
}

// NopReporter discards entry lines.
type NopReporter struct{}

// Entry implements Reporter.
func (NopReporter) Entry(source, target string) {}
