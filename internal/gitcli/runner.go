package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

const gitBinary = "git"

// ExecRunner runs git as a subprocess.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by the installed git binary.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, gitBinary, args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return nil, commandError(args, err)
	}
	return output, nil
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, gitBinary, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("failed to run git %s: %w\n%s", args[0], err, strings.TrimSpace(stderr.String()))
		}
		return commandError(args, err)
	}
	return nil
}

// Start implements Runner. The child runs with GIT_FLUSH=1 so responses are
// not held back by stdio buffering.
func (r *ExecRunner) Start(ctx context.Context, dir string, args ...string) (Process, error) {
	cmd := exec.CommandContext(ctx, gitBinary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_FLUSH=1")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe to git %s: %w", args[0], err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe from git %s: %w", args[0], err)
	}
	if err := cmd.Start(); err != nil {
		return nil, commandError(args, err)
	}

	return &gitProcess{cmd: cmd, stdin: stdin, stdout: stdout, name: args[0]}, nil
}

type gitProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	name   string
}

func (p *gitProcess) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *gitProcess) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

func (p *gitProcess) Close() error {
	p.stdin.Close()
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("git %s exited abnormally: %w", p.name, err)
	}
	return nil
}

func commandError(args []string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("failed to run git %s: %w\n%s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return fmt.Errorf("failed to run git %s: %w\nEnsure git is installed and on PATH", args[0], err)
}
