// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
)

// DefaultBinary is the executable name looked up on $PATH by LookupCLI.
const DefaultBinary = "buildah"

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Observer is notified after every buildah invocation completes.
	Observer interface {
		ObserveCommand(subcommand string, elapsed time.Duration, err error)
	}

	// Option configures a CLI.
	Option func(*CLI)

	// CLI runs buildah subcommands. Every invocation is
	// `<binary> [global args] <subcommand> [args...]`; exit code 0 means
	// success with stdout as the payload, anything else becomes a *CommandError.
	CLI struct {
		binaryPath      string
		execCommand     ExecCommandFunc
		globalArgs      []string
		cmdEnvOverrides map[string]string
		observer        Observer
	}

	// VersionInfo is the output of `buildah version --json`.
	VersionInfo struct {
		Version       string `json:"version"`
		GoVersion     string `json:"goVersion"`
		ImageSpec     string `json:"imageSpec"`
		RuntimeSpec   string `json:"runtimeSpec"`
		CNISpec       string `json:"cniSpec"`
		ImageVersion  string `json:"imageVersion"`
		GitCommit     string `json:"gitCommit"`
		Built         string `json:"built"`
		OSArch        string `json:"osArch"`
		BuildPlatform string `json:"buildPlatform"`
	}

	// stdio holds optional caller streams for a single invocation.
	stdio struct {
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
	}
)

// --- Option Functions ---

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(c *CLI) {
		c.execCommand = fn
	}
}

// WithGlobalArgs adds flags placed before every subcommand, such as
// --root, --runroot or --storage-driver.
func WithGlobalArgs(args ...string) Option {
	return func(c *CLI) {
		c.globalArgs = append(c.globalArgs, args...)
	}
}

// WithEnv adds an environment variable override applied to every command,
// e.g. BUILDAH_ISOLATION=chroot.
func WithEnv(key, value string) Option {
	return func(c *CLI) {
		if c.cmdEnvOverrides == nil {
			c.cmdEnvOverrides = make(map[string]string)
		}
		c.cmdEnvOverrides[key] = value
	}
}

// WithObserver registers an observer notified after each invocation.
func WithObserver(o Observer) Option {
	return func(c *CLI) {
		c.observer = o
	}
}

// --- Constructors ---

// NewCLI creates a runner for the buildah binary at binaryPath.
func NewCLI(binaryPath string, opts ...Option) *CLI {
	c := &CLI{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupCLI resolves buildah on $PATH and creates a runner for it.
func LookupCLI(opts ...Option) (*CLI, error) {
	path, err := exec.LookPath(DefaultBinary)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBinaryNotFound, err)
	}
	return NewCLI(path, opts...), nil
}

// BinaryPath returns the path to the buildah binary.
func (c *CLI) BinaryPath() string {
	return c.binaryPath
}

// Available reports whether the binary can be executed.
func (c *CLI) Available(ctx context.Context) bool {
	if c.binaryPath == "" {
		return false
	}
	return c.Status(ctx, "version") == nil
}

// Version returns the parsed output of `buildah version --json`.
func (c *CLI) Version(ctx context.Context) (*VersionInfo, error) {
	out, err := c.Output(ctx, "version", "--json")
	if err != nil {
		return nil, err
	}
	var info VersionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return nil, fmt.Errorf("decode buildah version: %w", err)
	}
	return &info, nil
}

// --- Command Execution ---

// Output runs a subcommand and returns its stdout.
func (c *CLI) Output(ctx context.Context, args ...string) (string, error) {
	return c.execute(ctx, stdio{}, args)
}

// Status runs a subcommand and returns only the error status.
func (c *CLI) Status(ctx context.Context, args ...string) error {
	_, err := c.execute(ctx, stdio{}, args)
	return err
}

// Command creates an exec.Cmd for the given subcommand with global args and
// environment overrides applied. Callers that stream I/O themselves use it
// together with Wait on the returned command.
func (c *CLI) Command(ctx context.Context, args ...string) *exec.Cmd {
	full := make([]string, 0, len(c.globalArgs)+len(args))
	full = append(full, c.globalArgs...)
	full = append(full, args...)

	cmd := c.execCommand(ctx, c.binaryPath, full...)
	if len(c.cmdEnvOverrides) > 0 {
		// A non-nil Env replaces the inherited environment entirely.
		if cmd.Env == nil {
			cmd.Env = os.Environ()
		}
		for _, k := range slices.Sorted(maps.Keys(c.cmdEnvOverrides)) {
			cmd.Env = append(cmd.Env, k+"="+c.cmdEnvOverrides[k])
		}
	}
	return cmd
}

// execute runs one invocation to completion. Stdout is captured unless the
// caller streams it; stderr is always captured for the error report.
func (c *CLI) execute(ctx context.Context, s stdio, args []string) (string, error) {
	cmd := c.Command(ctx, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = s.stdin
	cmd.Stdout = &stdout
	if s.stdout != nil {
		cmd.Stdout = s.stdout
	}
	cmd.Stderr = &stderr
	if s.stderr != nil {
		cmd.Stderr = io.MultiWriter(s.stderr, &stderr)
	}

	slog.Debug("run buildah", "args", cmd.Args)
	start := time.Now()
	err := cmd.Run()
	err = c.finish(ctx, cmd, args, start, stdout.String(), stderr.String(), err)
	if err != nil {
		return "", err
	}
	return stdout.String(), nil
}

// finish converts a run error into a *CommandError and notifies the observer.
func (c *CLI) finish(ctx context.Context, cmd *exec.Cmd, args []string, start time.Time, stdout, stderr string, runErr error) error {
	var err error
	if runErr != nil {
		err = newCommandError(ctx, cmd.Args, stdout, stderr, runErr)
	}
	if c.observer != nil && len(args) > 0 {
		c.observer.ObserveCommand(args[0], time.Since(start), err)
	}
	return err
}

func newCommandError(ctx context.Context, argv []string, stdout, stderr string, runErr error) *CommandError {
	ce := &CommandError{
		Args:     argv,
		ExitCode: -1,
		Stdout:   stdout,
		Stderr:   stderr,
		Cause:    runErr,
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		ce.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		ce.Cause = errors.Join(ctxErr, runErr)
	}
	return ce
}

// lastLine returns the last non-empty line of out. buildah prints progress
// before the identifier on some subcommands (from, commit, pull).
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
