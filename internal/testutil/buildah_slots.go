// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"testing"
)

// BuildahSlotsEnv overrides the number of buildah containers integration
// tests may run at once.
const BuildahSlotsEnv = "MICROFAAS_IT_BUILDAH_SLOTS"

var buildahSlots = sync.OnceValue(func() chan struct{} {
	return make(chan struct{}, buildahSlotCount())
})

// AcquireBuildahSlot blocks until a privileged buildah container may be
// started and releases the slot when t finishes.
func AcquireBuildahSlot(t testing.TB) {
	t.Helper()
	slots := buildahSlots()
	slots <- struct{}{}
	t.Cleanup(func() { <-slots })
}

// buildahSlotCount is $MICROFAAS_IT_BUILDAH_SLOTS when it is a positive
// integer, else at most two.
func buildahSlotCount() int {
	if n, err := strconv.Atoi(os.Getenv(BuildahSlotsEnv)); err == nil && n > 0 {
		return n
	}
	return min(runtime.GOMAXPROCS(0), 2)
}
