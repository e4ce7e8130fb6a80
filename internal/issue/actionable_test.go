// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "pull image"},
			expected: "failed to pull image",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "pull image", Resource: "alpine:3.20"},
			expected: "failed to pull image: alpine:3.20",
		},
		{
			name:     "operation with cause",
			err:      &ActionableError{Operation: "load config", Cause: errors.New("unexpected token")},
			expected: "failed to load config: unexpected token",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "commit container",
				Resource:  "alpine-working-container",
				Cause:     errors.New("no space left on device"),
			},
			expected: "failed to commit container: alpine-working-container: no space left on device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_UnwrapAndIs(t *testing.T) {
	t.Parallel()

	cause := errors.New("exit status 125")
	err := &ActionableError{Operation: "run", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if (&ActionableError{Operation: "run"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}

	var ae *ActionableError
	if !errors.As(fmt.Errorf("outer: %w", err), &ae) || ae.Operation != "run" {
		t.Errorf("errors.As through a wrapper failed: %v", ae)
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("permission denied")
	mid := fmt.Errorf("mount overlay: %w", inner)

	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name:     "no suggestions",
			err:      &ActionableError{Operation: "load config"},
			contains: []string{"failed to load config"},
			excludes: []string{"•", "Error chain"},
		},
		{
			name: "suggestions listed",
			err: &ActionableError{
				Operation:   "mount container",
				Resource:    "c0ffee",
				Suggestions: []string{"Run under 'buildah unshare'", "Use chroot isolation"},
			},
			contains: []string{"failed to mount container: c0ffee", "• Run under 'buildah unshare'", "• Use chroot isolation"},
		},
		{
			name:     "chain hidden unless verbose",
			err:      &ActionableError{Operation: "mount container", Cause: mid},
			excludes: []string{"Error chain"},
		},
		{
			name:     "verbose chain",
			err:      &ActionableError{Operation: "mount container", Cause: mid},
			verbose:  true,
			contains: []string{"Error chain:", "1. mount overlay: permission denied", "2. permission denied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.err.Format(tt.verbose)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Format() missing %q:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("Format() should not contain %q:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("manifest unknown")
	ae := NewErrorContext().
		WithOperation("pull image").
		WithResource("nonexistent").
		WithSuggestion("Check the spelling").
		WithSuggestions("Log in to the registry", "Use a fully qualified name").
		WithIssue(ImageNotFoundId).
		Wrap(cause).
		Build()

	if ae == nil {
		t.Fatal("Build() returned nil")
	}
	if ae.Operation != "pull image" || ae.Resource != "nonexistent" {
		t.Errorf("unexpected fields: %+v", ae)
	}
	if len(ae.Suggestions) != 3 || ae.Suggestions[0] != "Check the spelling" {
		t.Errorf("Suggestions = %q", ae.Suggestions)
	}
	if ae.Issue != ImageNotFoundId {
		t.Errorf("Issue = %d, want %d", ae.Issue, ImageNotFoundId)
	}
	if !errors.Is(ae, cause) {
		t.Error("cause not wrapped")
	}
}

func TestErrorContext_RequiresOperation(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().WithResource("alpine")
	if ctx.Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if ctx.BuildError() != nil {
		t.Error("BuildError() without operation should return a nil interface")
	}

	var _ error = NewErrorContext().WithOperation("x").BuildError()
}

func TestErrorContext_BuildReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().WithOperation("tag image").WithSuggestion("first")
	ae := ctx.Build()
	ctx.WithSuggestion("second").WithResource("app")

	if len(ae.Suggestions) != 1 || ae.Resource != "" {
		t.Errorf("earlier Build() result changed: %+v", ae)
	}
}

// joinedCause mimics errors whose Unwrap returns several errors.
type joinedCause struct{ errs []error }

func (j joinedCause) Error() string   { return "buildah pull failed" }
func (j joinedCause) Unwrap() []error { return j.errs }

func TestChain(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("buildah command failed")
	exit := errors.New("exit status 125")
	root := fmt.Errorf("resolve image: %w", joinedCause{errs: []error{sentinel, fmt.Errorf("pull: %w", exit)}})

	type step struct {
		depth int
		msg   string
	}
	var got []step
	for depth, err := range Chain(root) {
		got = append(got, step{depth, err.Error()})
	}

	want := []step{
		{0, "resolve image: buildah pull failed"},
		{0, "buildah pull failed"},
		{1, "buildah command failed"},
		{1, "pull: exit status 125"},
		{1, "exit status 125"},
	}
	if !slices.Equal(got, want) {
		t.Errorf("Chain() =\n  %v\nwant\n  %v", got, want)
	}

	// Stopping early is honoured.
	for range Chain(root) {
		break
	}
}

func TestActionableError_FormatJoinedCause(t *testing.T) {
	t.Parallel()

	cause := joinedCause{errs: []error{errors.New("buildah command failed"), errors.New("exit status 125")}}
	got := (&ActionableError{Operation: "pull image", Cause: cause}).Format(true)

	for _, want := range []string{"\n  1. buildah pull failed", "\n    2. buildah command failed", "\n    3. exit status 125"} {
		if !strings.Contains(got, want) {
			t.Errorf("Format() missing %q:\n%s", want, got)
		}
	}
}
