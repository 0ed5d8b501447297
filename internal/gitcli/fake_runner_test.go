package gitcli_test

import (
	"bytes"
	"context"
	"errors"

	"git-archive-all/internal/gitcli"
)

// fakeRunner is a scriptable gitcli.Runner that records every invocation.
type fakeRunner struct {
	outputFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)
	runFunc    func(ctx context.Context, dir string, args ...string) error
	startFunc  func(ctx context.Context, dir string, args ...string) (gitcli.Process, error)

	calls []runnerCall
}

type runnerCall struct {
	method string
	dir    string
	args   []string
}

func (f *fakeRunner) Output(ctx context.Context, dir string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, runnerCall{"Output", dir, args})
	if f.outputFunc != nil {
		return f.outputFunc(ctx, dir, args...)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeRunner) Run(ctx context.Context, dir string, args ...string) error {
	f.calls = append(f.calls, runnerCall{"Run", dir, args})
	if f.runFunc != nil {
		return f.runFunc(ctx, dir, args...)
	}
	return errors.New("not implemented")
}

func (f *fakeRunner) Start(ctx context.Context, dir string, args ...string) (gitcli.Process, error) {
	f.calls = append(f.calls, runnerCall{"Start", dir, args})
	if f.startFunc != nil {
		return f.startFunc(ctx, dir, args...)
	}
	return nil, errors.New("not implemented")
}

// fakeProcess serves pre-scripted responses and records what was written.
type fakeProcess struct {
	in        bytes.Buffer
	responses *bytes.Buffer
	closed    bool
}

func newFakeProcess(responses string) *fakeProcess {
	return &fakeProcess{responses: bytes.NewBufferString(responses)}
}

func (p *fakeProcess) Write(b []byte) (int, error) {
	return p.in.Write(b)
}

func (p *fakeProcess) Read(b []byte) (int, error) {
	return p.responses.Read(b)
}

func (p *fakeProcess) Close() error {
	p.closed = true
	return nil
}
