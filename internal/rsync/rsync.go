// Package rsync builds and runs the ssh and rsync invocations that mirror
// local paths onto a remote host.
package rsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

const (
	defaultSSH   = "ssh"
	defaultRsync = "rsync"
)

// Runner executes an external command to completion
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with exec.CommandContext, attaching the given
// writers so the operator sees the tools' own output.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner creates a runner wired to the process' stdout and stderr
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes the command and waits for it to exit
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// Transfer describes a single mirroring operation
type Transfer struct {
	Source string // local path, trailing "/" copies directory contents
	Target string // path on the remote host
	Delete bool   // prune destination files missing locally
	DryRun bool   // only print the command
}

// Options configures the external binaries
type Options struct {
	SSH       string
	Rsync     string
	ExtraArgs []string
}

// Client drives ssh and rsync against one remote host
type Client struct {
	runner Runner
	remote string
	opts   Options
}

// NewClient creates a client for remote. Empty binaries default to "ssh"
// and "rsync" from $PATH.
func NewClient(runner Runner, remote string, opts Options) *Client {
	if opts.SSH == "" {
		opts.SSH = defaultSSH
	}
	if opts.Rsync == "" {
		opts.Rsync = defaultRsync
	}
	return &Client{
		runner: runner,
		remote: remote,
		opts:   opts,
	}
}

// MkdirArgs returns the command line creating target on the remote host
func (c *Client) MkdirArgs(target string) []string {
	return []string{c.opts.SSH, c.remote, "mkdir", "-p", remoteShellPath(target)}
}

// TransferArgs returns the rsync command line for t
func (c *Client) TransferArgs(t Transfer) []string {
	args := []string{c.opts.Rsync, "-a"}
	args = append(args, c.opts.ExtraArgs...)
	if t.Delete {
		args = append(args, "--delete")
	}
	if c.opts.SSH != defaultSSH {
		args = append(args, "-e", c.opts.SSH)
	}
	return append(args, t.Source, c.remote+":"+t.Target)
}

// Mkdir creates target (and its parents) on the remote host
func (c *Client) Mkdir(ctx context.Context, target string) error {
	args := c.MkdirArgs(target)
	if err := c.runner.Run(ctx, args[0], args[1:]...); err != nil {
		return fmt.Errorf("remote mkdir %s failed: %w", target, err)
	}
	return nil
}

// Transfer runs rsync for t
func (c *Client) Transfer(ctx context.Context, t Transfer) error {
	args := c.TransferArgs(t)
	if err := c.runner.Run(ctx, args[0], args[1:]...); err != nil {
		return &TransferError{
			Source:   t.Source,
			Target:   c.remote + ":" + t.Target,
			ExitCode: exitCode(err),
			Err:      err,
		}
	}
	return nil
}

// TransferError is returned when rsync exits unsuccessfully
type TransferError struct {
	Source   string
	Target   string
	ExitCode int // -1 when rsync did not run to completion
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("rsync %s -> %s failed (exit code %d): %v", e.Source, e.Target, e.ExitCode, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// FormatCommand renders args as a shell command line
func FormatCommand(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

// remoteShellPath quotes path for the remote shell while keeping a leading
// "~/" unquoted so it still expands to the remote home directory.
func remoteShellPath(path string) string {
	if path == "~" {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if rest == "" {
			return path
		}
		return "~/" + shellQuote(rest)
	}
	return shellQuote(path)
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`!*?[]{}()<>|&;#") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
