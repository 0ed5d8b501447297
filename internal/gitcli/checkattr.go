package gitcli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// CheckAttr starts a check-attr coprocess for the repository at repo and
// returns a matcher answering queries for the given attribute. One coprocess
// serves a whole repository level; the caller must Close it, including on
// error paths.
func (c *Client) CheckAttr(ctx context.Context, repo, attribute string) (*AttrMatcher, error) {
	version, err := c.Version(ctx)
	if err != nil && !errors.Is(err, ErrUnrecognizedVersion) {
		return nil, err
	}

	// Releases up to 1.8.5 do not understand `check-attr -z`. A banner that
	// did not parse is assumed to be a modern build.
	nul := true
	if err == nil {
		nul = checkAttrNulVersion.Less(version)
	}
	args := []string{"check-attr", "--stdin", attribute}
	if nul {
		args = []string{"check-attr", "--stdin", "-z", attribute}
	}

	proc, err := c.runner.Start(ctx, repo, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start git check-attr in %q: %w", repo, err)
	}

	return &AttrMatcher{
		proc:     proc,
		reader:   bufio.NewReader(proc),
		nul:      nul,
		verdicts: map[string]bool{},
	}, nil
}

// AttrMatcher answers exclusion queries through a check-attr coprocess. A
// path whose attribute is unspecified inherits its parent directory's
// answer, so attaching the attribute to a directory covers its whole
// subtree. Verdicts are memoized for the life of the matcher.
type AttrMatcher struct {
	proc     Process
	reader   *bufio.Reader
	nul      bool
	verdicts map[string]bool
}

// Excluded reports whether the repository-relative path carries the
// attribute, directly or through an ancestor directory.
func (m *AttrMatcher) Excluded(relpath string, isDir bool) (bool, error) {
	if verdict, ok := m.verdicts[relpath]; ok {
		return verdict, nil
	}

	value, err := m.check(relpath)
	if err != nil {
		return false, err
	}

	var excluded bool
	switch value {
	case "set":
		excluded = true
	case "unset":
		excluded = false
	default:
		if parent := parentDir(relpath); parent != "" {
			excluded, err = m.Excluded(parent, true)
			if err != nil {
				return false, err
			}
		}
	}

	m.verdicts[relpath] = excluded
	return excluded, nil
}

// Close shuts down the coprocess.
func (m *AttrMatcher) Close() error {
	return m.proc.Close()
}

func (m *AttrMatcher) check(path string) (string, error) {
	terminator := byte('\n')
	if m.nul {
		terminator = 0
	}
	if _, err := m.proc.Write(append([]byte(path), terminator)); err != nil {
		return "", fmt.Errorf("failed to query attributes for %q: %w", path, err)
	}

	if m.nul {
		return m.readNul()
	}
	return m.readLine()
}

// readNul consumes one `<path> NUL <attribute> NUL <value> NUL` response.
func (m *AttrMatcher) readNul() (string, error) {
	var value string
	for i := 0; i < 3; i++ {
		field, err := m.reader.ReadString(0)
		if err != nil {
			return "", fmt.Errorf("failed to read check-attr response: %w", err)
		}
		value = strings.TrimSuffix(field, "\x00")
	}
	return value, nil
}

// readLine consumes one `<path>: <attribute>: <value>` response. The path
// may itself contain ": ", so the value sits after the last separator.
func (m *AttrMatcher) readLine() (string, error) {
	line, err := m.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read check-attr response: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")

	cut := strings.LastIndex(line, ": ")
	if cut < 0 {
		return "", fmt.Errorf("unrecognized check-attr response %q", line)
	}
	return line[cut+2:], nil
}

func parentDir(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}
