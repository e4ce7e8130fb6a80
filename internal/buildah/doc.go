// SPDX-License-Identifier: MPL-2.0

// Package buildah drives the buildah command-line tool to manipulate working
// containers and images.
//
// CLI runs buildah subcommands and turns nonzero exits into *CommandError.
// Container is a mutable handle whose configuration (environment, command,
// entrypoint, working directory, labels, volumes) is tracked in memory by a
// ConfigTracker and pushed to buildah with a single `buildah config` call
// right before any operation that depends on it (Inspect, Commit, Run, Start).
// Image is an immutable handle resolved locally, pulled, or committed.
//
// Handles are not safe for concurrent use. Distinct handles share nothing but
// buildah's own storage.
package buildah
