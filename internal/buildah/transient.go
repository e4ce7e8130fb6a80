// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"context"
	"errors"
	"strings"
)

// transientMarkers are stderr fragments buildah prints for failures that
// commonly clear up on their own.
var transientMarkers = []string{
	"Temporary failure resolving",
	"Could not resolve host",
	"no such host",
	"connection timed out",
	"connection refused",
	"connection reset by peer",
	"i/o timeout",
	"TLS handshake timeout",
	"toomanyrequests",
	"error creating overlay mount",
	"error mounting layer",
}

// IsTransientError reports whether err is a buildah failure that may succeed
// on retry: registry network errors, rate limiting and overlay storage races.
//
// Context cancellation and deadline errors are never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// A failed pull hides its command error behind ErrImageNotFound.
	var nf *ImageNotFoundError
	if errors.As(err, &nf) {
		return IsTransientError(nf.Cause)
	}

	// buildah exits 125 for every failure of its own, missing images
	// included, so only the stderr text tells a transient one apart.
	var ce *CommandError
	if errors.As(err, &ce) && containsAny(ce.Stderr, transientMarkers) {
		return true
	}
	return containsAny(err.Error(), transientMarkers)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
