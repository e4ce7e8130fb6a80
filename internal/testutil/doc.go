// SPDX-License-Identifier: MPL-2.0

// Package testutil holds helpers shared by tests: file setup that fails the
// test on error, a scriptable fake buildah binary (WriteFakeBuildah) and a
// semaphore bounding tests that start real containers.
package testutil
