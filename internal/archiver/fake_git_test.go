package archiver_test

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"git-archive-all/internal/gitcli"
)

// fakeGit is a scriptable gitcli.Runner serving canned listings for a tree
// of repositories, keyed by the absolute directory each invocation runs in.
// Every call is recorded so tests can assert how often a level was queried.
type fakeGit struct {
	version    string
	root       string
	files      map[string][]string
	submodules map[string][]string
	attrs      map[string]map[string]string

	calls []fakeCall
	procs []*fakeAttrProcess
}

type fakeCall struct {
	method string
	dir    string
	args   []string
}

func newFakeGit(root string) *fakeGit {
	return &fakeGit{
		version:    "git version 2.39.2",
		root:       root,
		files:      map[string][]string{},
		submodules: map[string][]string{},
	}
}

func (g *fakeGit) Output(ctx context.Context, dir string, args ...string) ([]byte, error) {
	g.calls = append(g.calls, fakeCall{"Output", dir, args})
	switch args[0] {
	case "version":
		return []byte(g.version + "\n"), nil
	case "rev-parse":
		return []byte(g.root + "\n"), nil
	case "ls-files":
		return nulJoined(g.files[dir]), nil
	case "submodule":
		return nulJoined(g.submodules[dir]), nil
	default:
		return nil, fmt.Errorf("no output scripted for git %v in %q", args, dir)
	}
}

func (g *fakeGit) Run(ctx context.Context, dir string, args ...string) error {
	g.calls = append(g.calls, fakeCall{"Run", dir, args})
	return nil
}

func (g *fakeGit) Start(ctx context.Context, dir string, args ...string) (gitcli.Process, error) {
	g.calls = append(g.calls, fakeCall{"Start", dir, args})
	verdicts, ok := g.attrs[dir]
	if !ok {
		return nil, fmt.Errorf("no coprocess scripted for git %v in %q", args, dir)
	}
	proc := &fakeAttrProcess{verdicts: verdicts}
	g.procs = append(g.procs, proc)
	return proc, nil
}

// count reports how many calls of the given method ran the given subcommand
// in the given directory.
func (g *fakeGit) count(method, dir, subcommand string) int {
	var n int
	for _, call := range g.calls {
		if call.method == method && call.dir == dir && call.args[0] == subcommand {
			n++
		}
	}
	return n
}

// total reports how many calls used the given method at all.
func (g *fakeGit) total(method string) int {
	var n int
	for _, call := range g.calls {
		if call.method == method {
			n++
		}
	}
	return n
}

func nulJoined(entries []string) []byte {
	var buf bytes.Buffer
	for _, entry := range entries {
		buf.WriteString(entry)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// fakeAttrProcess answers `check-attr --stdin -z` queries from a verdict
// table, responding to each NUL-terminated path as soon as it is written.
// Paths missing from the table report the attribute as unspecified.
type fakeAttrProcess struct {
	verdicts map[string]string
	pending  bytes.Buffer
	out      bytes.Buffer
	closed   bool
}

func (p *fakeAttrProcess) Write(b []byte) (int, error) {
	p.pending.Write(b)
	for {
		data := p.pending.Bytes()
		end := bytes.IndexByte(data, 0)
		if end < 0 {
			break
		}
		path := string(data[:end])
		p.pending.Next(end + 1)

		value, ok := p.verdicts[path]
		if !ok {
			value = "unspecified"
		}
		for _, field := range []string{path, "export-ignore", value} {
			p.out.WriteString(field)
			p.out.WriteByte(0)
		}
	}
	return len(b), nil
}

func (p *fakeAttrProcess) Read(b []byte) (int, error) {
	return p.out.Read(b)
}

func (p *fakeAttrProcess) Close() error {
	p.closed = true
	return nil
}

// recordingSink collects the entries it receives, in order.
type recordingSink struct {
	targets []string
	sources map[string]string
	infos   map[string]os.FileInfo
}

func (s *recordingSink) Add(source, target string, info os.FileInfo) error {
	if s.sources == nil {
		s.sources = map[string]string{}
		s.infos = map[string]os.FileInfo{}
	}
	s.targets = append(s.targets, target)
	s.sources[target] = source
	s.infos[target] = info
	return nil
}
