package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// Client wraps a Runner with the repository queries the archiver performs.
type Client struct {
	runner     Runner
	version    *Version
	versionErr error
}

// NewClient creates a Client using the provided runner.
func NewClient(runner Runner) *Client {
	return &Client{runner: runner}
}

// NewDefaultClient creates a Client that runs the installed git binary.
func NewDefaultClient() *Client {
	return NewClient(NewExecRunner())
}

// Version reports the installed git version. The result is cached after the
// first call, including a banner that failed to parse; only failures to run
// git at all are probed again.
func (c *Client) Version(ctx context.Context) (Version, error) {
	if c.version != nil {
		return *c.version, nil
	}
	if c.versionErr != nil {
		return Version{}, c.versionErr
	}

	output, err := c.runner.Output(ctx, "", "version")
	if err != nil {
		return Version{}, fmt.Errorf("failed to determine git version: %w", err)
	}
	version, err := ParseVersion(string(output))
	if err != nil {
		c.versionErr = err
		return Version{}, err
	}

	c.version = &version
	return version, nil
}

// ResolveToplevel resolves the root of the working tree containing dir.
func (c *Client) ResolveToplevel(ctx context.Context, dir string) (string, error) {
	output, err := c.runner.Output(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("failed to resolve repository root from %q: %w\nEnsure the path is inside a git repository", dir, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ListFiles lists the tracked files of the repository at repo, relative to
// its root, in git's own order. Paths are NUL-separated on the wire so
// unusual filename bytes survive byte for byte.
func (c *Client) ListFiles(ctx context.Context, repo string) ([]string, error) {
	output, err := c.runner.Output(ctx, repo, "ls-files", "-z", "--cached", "--full-name", "--no-empty-directory")
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked files in %q: %w", repo, err)
	}
	return splitNul(output), nil
}

// ListSubmodules lists the paths of the initialized submodules of the
// repository at repo, relative to its root. git itself runs the printf body,
// so no shell is involved on our side.
func (c *Client) ListSubmodules(ctx context.Context, repo string) ([]string, error) {
	output, err := c.runner.Output(ctx, repo, "submodule", "foreach", "--quiet", `printf "%s\0" "$sm_path"`)
	if err != nil {
		return nil, fmt.Errorf("failed to list submodules in %q: %w", repo, err)
	}
	return splitNul(output), nil
}

// InitSubmodules registers and checks out the submodules of the repository
// at repo.
func (c *Client) InitSubmodules(ctx context.Context, repo string) error {
	if err := c.runner.Run(ctx, repo, "submodule", "init"); err != nil {
		return fmt.Errorf("failed to init submodules in %q: %w", repo, err)
	}
	if err := c.runner.Run(ctx, repo, "submodule", "update"); err != nil {
		return fmt.Errorf("failed to update submodules in %q: %w\nCheck that submodule remotes are reachable", repo, err)
	}
	return nil
}

func splitNul(data []byte) []string {
	var paths []string
	for _, part := range bytes.Split(data, []byte{0}) {
		if len(part) > 0 {
			paths = append(paths, string(part))
		}
	}
	return paths
}
