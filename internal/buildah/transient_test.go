// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransientError(t *testing.T) {
	t.Parallel()

	cmdErr := func(code int, stderr string) error {
		return &CommandError{Args: []string{"buildah", "pull", "x"}, ExitCode: code, Stderr: stderr}
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		// Non-transient cases
		{name: "nil error", err: nil, want: false},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "context deadline", err: context.DeadlineExceeded, want: false},
		{name: "wrapped context canceled", err: fmt.Errorf("pull failed: %w", context.Canceled), want: false},
		{name: "generic error", err: errors.New("containerfile not found"), want: false},
		{name: "manifest unknown", err: cmdErr(1, "reading manifest latest: manifest unknown"), want: false},
		{name: "exit code 1", err: cmdErr(1, ""), want: false},
		{name: "exit code 125", err: cmdErr(125, ""), want: false},
		{name: "exit code 125 manifest unknown", err: cmdErr(125, "reading manifest latest in docker.io/library/ghost: manifest unknown"), want: false},

		// Transient: buildah failure with a network cause
		{name: "exit code 125 with timeout", err: cmdErr(125, "dial tcp: lookup quay.io: i/o timeout"), want: true},
		{name: "wrapped exit code 125 with timeout", err: fmt.Errorf("commit: %w", cmdErr(125, "i/o timeout")), want: true},

		// Transient: network errors
		{name: "temporary failure resolving", err: cmdErr(1, "Temporary failure resolving 'deb.debian.org'"), want: true},
		{name: "could not resolve host", err: errors.New("Could not resolve host: quay.io"), want: true},
		{name: "connection refused", err: cmdErr(1, "dial tcp 127.0.0.1:5000: connect: connection refused"), want: true},
		{name: "rate limited", err: cmdErr(1, "toomanyrequests: You have reached your pull rate limit"), want: true},

		// Transient: storage errors
		{name: "overlay mount", err: cmdErr(1, "error creating overlay mount to /var/lib/containers"), want: true},

		// Pull failures behind ImageNotFoundError
		{name: "not found with network cause", err: &ImageNotFoundError{Ref: "x", Cause: cmdErr(1, "i/o timeout")}, want: true},
		{name: "not found with manifest cause", err: &ImageNotFoundError{Ref: "x", Cause: cmdErr(1, "manifest unknown")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsTransientError(tt.err); got != tt.want {
				t.Errorf("IsTransientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
