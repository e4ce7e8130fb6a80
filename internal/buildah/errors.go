// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCommandFailed is the sentinel error wrapped by CommandError.
	ErrCommandFailed = errors.New("buildah command failed")

	// ErrImageNotFound is the sentinel error wrapped by ImageNotFoundError.
	ErrImageNotFound = errors.New("image not found")

	// ErrContainerRemoved is returned by every Container method after Remove succeeded.
	ErrContainerRemoved = errors.New("container has been removed")

	// ErrNotTracked is returned by configuration mutators on a handle built
	// with ContainerFromID, which never read the container's configuration.
	ErrNotTracked = errors.New("container configuration is not tracked")

	// ErrBinaryNotFound is returned by LookupCLI when buildah is not on $PATH.
	ErrBinaryNotFound = errors.New("buildah binary not found")
)

type (
	// CommandError is returned when a buildah invocation exits nonzero or
	// cannot be started at all.
	CommandError struct {
		// Args is the full argument vector attempted, binary included.
		Args []string
		// ExitCode is the process exit code, or -1 if the process never ran
		// to completion (not found, killed by a signal, canceled).
		ExitCode int
		// Stdout is the captured standard output. It is empty when the
		// caller streamed stdout elsewhere.
		Stdout string
		// Stderr is the captured standard error.
		Stderr string
		// Cause is the underlying exec error, joined with the context error
		// when the invocation was canceled.
		Cause error
	}

	// ImageNotFoundError is returned when an image can be neither found
	// locally nor pulled. It deliberately does not unwrap to ErrCommandFailed
	// so callers can tell "does not exist" apart from "buildah malfunctioned";
	// the failed pull is still available in Cause.
	ImageNotFoundError struct {
		Ref   string
		Cause error
	}
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "command %q failed", strings.Join(e.Args, " "))
	if e.ExitCode >= 0 {
		fmt.Fprintf(&msg, " with exit code %d", e.ExitCode)
	} else if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg.WriteString(": ")
		msg.WriteString(stderr)
	}
	return msg.String()
}

// Unwrap returns ErrCommandFailed and the underlying cause for errors.Is/As.
func (e *CommandError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrCommandFailed}
	}
	return []error{ErrCommandFailed, e.Cause}
}

// Subcommand returns the buildah subcommand that failed, skipping the binary
// and any global flags.
func (e *CommandError) Subcommand() string {
	return subcommandOf(e.Args)
}

// Error implements the error interface.
func (e *ImageNotFoundError) Error() string {
	return fmt.Sprintf("could not find image %q", e.Ref)
}

// Unwrap returns ErrImageNotFound for errors.Is() compatibility.
func (e *ImageNotFoundError) Unwrap() error { return ErrImageNotFound }

// subcommandOf returns the first non-flag element after argv[0].
func subcommandOf(argv []string) string {
	if len(argv) < 2 {
		return ""
	}
	skipValue := false
	for _, arg := range argv[1:] {
		switch {
		case skipValue:
			skipValue = false
		case strings.HasPrefix(arg, "--") && !strings.Contains(arg, "="):
			// Global flags used by this package always take a value.
			skipValue = true
		case strings.HasPrefix(arg, "-"):
		default:
			return arg
		}
	}
	return ""
}
