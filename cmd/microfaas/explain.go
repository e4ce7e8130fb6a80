// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/microfaas/microfaas/internal/buildah"
	"github.com/microfaas/microfaas/internal/issue"
)

// explain wraps err into an issue.ActionableError carrying suggestions and
// the catalog entry matching its cause. Errors that already are actionable
// and context cancellations are returned unchanged.
func explain(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) || errors.Is(err, context.Canceled) {
		return err
	}

	ec := issue.NewErrorContext().WithOperation(op).WithResource(resource).Wrap(err)

	var ce *buildah.CommandError
	isCommand := errors.As(err, &ce)
	switch {
	case errors.Is(err, buildah.ErrBinaryNotFound):
		ec.WithIssue(issue.BuildahNotFoundId).
			WithSuggestion("Install buildah or set buildah.binary_path in the configuration")
	case errors.Is(err, buildah.ErrImageNotFound):
		ec.WithIssue(issue.ImageNotFoundId).
			WithSuggestions(
				"Check the image name and tag",
				"Log in to private registries with 'buildah login'",
			)
	case errors.Is(err, buildah.ErrContainerRemoved):
		ec.WithIssue(issue.ContainerRemovedId)
	case isCommand && containsFold(ce.Stderr, "permission denied", "operation not permitted"):
		ec.WithIssue(issue.PermissionDeniedId).
			WithSuggestion("Run rootless builds under 'buildah unshare' or set buildah.isolation to chroot")
	case isCommand && containsFold(ce.Stderr, "lock", "error mounting layer", "error creating overlay mount"):
		ec.WithIssue(issue.StorageLockedId).
			WithSuggestion("Wait for concurrent builds to finish and retry")
	case isCommand && ce.ExitCode < 0 && len(ce.Args) > 0:
		ec.WithIssue(issue.BuildahNotFoundId).
			WithSuggestion("Check that " + ce.Args[0] + " is executable")
	case isCommand:
		ec.WithIssue(issue.CommandFailedId).
			WithSuggestion("Re-run with --verbose for the full error chain")
	}
	return ec.BuildError()
}

func containsFold(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
