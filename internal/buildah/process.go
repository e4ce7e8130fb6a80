// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
)

// Process is a `buildah run` started by Container.Start.
type Process struct {
	cli *CLI
	// ctx is the context given to Start. exec.CommandContext binds the
	// process to it as well, so Wait reports cancellation against the
	// same context that kills the process.
	ctx    context.Context
	cmd    *exec.Cmd
	args   []string
	start  time.Time
	tty    *os.File
	stderr bytes.Buffer
}

// Start synchronizes pending changes and launches command inside the
// container without waiting for it.
//
// When opts.Terminal is set and the caller supplies none of Stdin, Stdout or
// Stderr, the process is attached to a new pseudo-terminal available through
// TTY. Otherwise the caller's streams are used as given.
func (c *Container) Start(ctx context.Context, command []string, opts RunOptions) (*Process, error) {
	if err := c.Sync(ctx); err != nil {
		return nil, err
	}

	args := RunArgs(c.id, command, opts)
	p := &Process{
		cli:  c.cli,
		ctx:  ctx,
		cmd:  c.cli.Command(ctx, args...),
		args: args,
	}

	slog.Debug("start buildah", "args", p.cmd.Args, "terminal", opts.Terminal)
	p.start = time.Now()

	if opts.Terminal && opts.Stdin == nil && opts.Stdout == nil && opts.Stderr == nil {
		tty, err := pty.Start(p.cmd)
		if err != nil {
			return nil, p.cli.finish(ctx, p.cmd, args, p.start, "", "", err)
		}
		p.tty = tty
		return p, nil
	}

	p.cmd.Stdin = opts.Stdin
	p.cmd.Stdout = opts.Stdout
	p.cmd.Stderr = &p.stderr
	if opts.Stderr != nil {
		p.cmd.Stderr = io.MultiWriter(opts.Stderr, &p.stderr)
	}
	if err := p.cmd.Start(); err != nil {
		return nil, p.cli.finish(ctx, p.cmd, args, p.start, "", "", err)
	}
	return p, nil
}

// Pid returns the process id of the buildah process.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// TTY returns the controlling side of the pseudo-terminal, or nil when the
// process was started with caller-supplied streams.
func (p *Process) TTY() *os.File {
	return p.tty
}

// Signal sends sig to the buildah process.
func (p *Process) Signal(sig os.Signal) error {
	if err := p.cmd.Process.Signal(sig); err != nil {
		return fmt.Errorf("signal buildah process %d: %w", p.Pid(), err)
	}
	return nil
}

// Wait waits for the process to exit and releases its resources. A nonzero
// exit is reported as *CommandError. Canceling the context given to Start
// kills the process and makes Wait return an error wrapping that context's
// error.
func (p *Process) Wait() error {
	err := p.cmd.Wait()
	if p.tty != nil {
		_ = p.tty.Close()
	}
	return p.cli.finish(p.ctx, p.cmd, p.args, p.start, "", p.stderr.String(), err)
}
