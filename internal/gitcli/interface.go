package gitcli

import (
	"context"
	"io"
)

// Runner is an interface that wraps the git invocations we use. This allows
// for dependency injection and testing with fakes.
//
// The real implementation is ExecRunner, which shells out to the git binary.
//
// Usage:
//
//	// Production code: run the installed git
//	client := gitcli.NewDefaultClient()
//
//	// Test code: inject a fake
//	type fakeRunner struct{}
//	func (f *fakeRunner) Output(...) { /* canned listing */ }
//	// ... implement the other methods ...
//	client := gitcli.NewClient(&fakeRunner{})
type Runner interface {
	// Output runs git with the given arguments in dir and returns its
	// standard output. An empty dir runs in the current directory.
	Output(ctx context.Context, dir string, args ...string) ([]byte, error)

	// Run runs git with the given arguments in dir, discarding output.
	Run(ctx context.Context, dir string, args ...string) error

	// Start launches a long-lived git process in dir with piped standard
	// input and output, for query subcommands that are fed incrementally.
	Start(ctx context.Context, dir string, args ...string) (Process, error)
}

// Process is a started git coprocess. Writes feed its standard input, reads
// drain its standard output, and Close closes stdin and waits for exit.
type Process interface {
	io.Writer
	io.Reader
	Close() error
}
