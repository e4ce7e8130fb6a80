// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// FakeBuildahScript is a POSIX shell stand-in for buildah. It appends every
// argument vector to $FAKE_BUILDAH_LOG and answers from files under
// $FAKE_BUILDAH_DIR:
//
//	<subcommand>.out   printed on stdout
//	<subcommand>.err   printed on stderr
//	<subcommand>.exit  exit code (default 0)
//
// Global flags that take a value (--root x) are skipped when determining
// the subcommand.
const FakeBuildahScript = `#!/bin/sh
echo "$*" >> "${FAKE_BUILDAH_LOG:-/dev/null}"
sub=""
skip=0
for a in "$@"; do
	if [ "$skip" = 1 ]; then skip=0; continue; fi
	case "$a" in
		--*=*) ;;
		--*) skip=1 ;;
		-*) ;;
		*) sub="$a"; break ;;
	esac
done
dir="${FAKE_BUILDAH_DIR:-.}"
[ -f "$dir/$sub.out" ] && cat "$dir/$sub.out"
[ -f "$dir/$sub.err" ] && cat "$dir/$sub.err" >&2
code=0
[ -f "$dir/$sub.exit" ] && code=$(cat "$dir/$sub.exit")
exit "$code"
`

// WriteFakeBuildah installs FakeBuildahScript as an executable named
// "buildah" in dir and returns its path.
func WriteFakeBuildah(t testing.TB, dir string) string {
	t.Helper()
	MustMkdirAll(t, dir, 0o755)
	path := filepath.Join(dir, "buildah")
	//nolint:gosec // the fake must be executable
	if err := os.WriteFile(path, []byte(FakeBuildahScript), 0o755); err != nil {
		t.Fatalf("failed to write fake buildah: %v", err)
	}
	return path
}
