// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

type (
	// ActionableError is an error with context for user-facing error messages.
	// It names the operation that failed, the resource involved, hints on how
	// to fix it and, optionally, the catalog issue explaining it at length.
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("commit container").
	//		WithResource("working-container").
	//		WithSuggestion("Check free space under the storage root").
	//		WithIssue(issue.CommandFailedId).
	//		Wrap(originalErr).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "pull image".
		Operation string
		// Resource names the image, container or file involved (optional).
		Resource string
		// Suggestions are one-line remediation hints (optional).
		Suggestions []string
		// Issue links to a catalog entry with a longer explanation (optional).
		Issue Id
		// Cause is the error being explained (optional).
		Cause error
	}

	// ErrorContext builds an ActionableError step by step.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext creates a new ErrorContext builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error returns "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the cause for errors.Is/As.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format returns the message followed by the suggestions, one per line.
// In verbose mode every error reachable from Cause is listed as well;
// branches of joined errors are indented below their parent.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range e.Suggestions {
			b.WriteString("\n  • ")
			b.WriteString(s)
		}
	}

	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		n := 0
		for depth, err := range Chain(e.Cause) {
			n++
			fmt.Fprintf(&b, "\n%s%d. %s", strings.Repeat("  ", depth+1), n, err.Error())
		}
	}

	return b.String()
}

// Chain yields err and every error it wraps, depth first, together with its
// nesting depth. A plain Unwrap continues at the same depth; the members of
// an Unwrap() []error are yielded one level deeper.
func Chain(err error) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		walkChain(err, 0, yield)
	}
}

func walkChain(err error, depth int, yield func(int, error) bool) bool {
	for err != nil {
		if !yield(depth, err) {
			return false
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, member := range u.Unwrap() {
				if !walkChain(member, depth+1, yield) {
					return false
				}
			}
			return true
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return true
		}
	}
	return true
}

// WithOperation sets the operation being performed, as a verb phrase.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

// WithResource sets the resource involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion adds a suggestion. Can be called repeatedly.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sug)
	return c
}

// WithSuggestions adds multiple suggestions at once.
func (c *ErrorContext) WithSuggestions(sugs ...string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sugs...)
	return c
}

// WithIssue links the error to a catalog entry.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

// Wrap sets the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns a copy of the error built so far, or nil when no operation
// was set. Later builder calls do not affect returned errors.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	ae.Suggestions = slices.Clone(c.err.Suggestions)
	return &ae
}

// BuildError is Build returning an error interface, nil without an operation.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
