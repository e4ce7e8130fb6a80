// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"io"
	"maps"
	"slices"
	"strings"
)

type (
	// VolumeMount is a bind mount in "host:container[:options]" form.
	// A spec holding a single path (no container side) is kept as-is.
	VolumeMount struct {
		HostPath      string
		ContainerPath string
		Options       []string
	}

	// MountSpec is one --mount argument, e.g. {"type": "bind", "src": "/a",
	// "dst": "/b"}.
	MountSpec map[string]string

	// RunOptions configures Container.Run and Container.Start.
	RunOptions struct {
		// User overrides the user the command runs as.
		User string
		// Volumes are bind mounts passed as --volume.
		Volumes []VolumeMount
		// Mounts are passed as --mount.
		Mounts []MountSpec
		// Terminal allocates a pseudo-terminal inside the container.
		Terminal bool

		// Stdin is the standard input of the buildah process.
		Stdin io.Reader
		// Stdout receives standard output. When nil, Run captures it and
		// returns it as a string.
		Stdout io.Writer
		// Stderr receives standard error in addition to the copy kept for
		// error reporting.
		Stderr io.Writer
	}
)

// String returns the mount in colon-joined form, options comma-joined.
func (v VolumeMount) String() string {
	parts := []string{v.HostPath}
	if v.ContainerPath != "" {
		parts = append(parts, v.ContainerPath)
	}
	if len(v.Options) > 0 {
		parts = append(parts, strings.Join(v.Options, ","))
	}
	return strings.Join(parts, ":")
}

// ParseVolumeMount splits a "host:container[:options]" string.
// The result's String() reproduces the input.
func ParseVolumeMount(spec string) VolumeMount {
	parts := strings.SplitN(spec, ":", 3)
	mount := VolumeMount{HostPath: parts[0]}
	if len(parts) >= 2 {
		mount.ContainerPath = parts[1]
	}
	if len(parts) == 3 {
		mount.Options = strings.Split(parts[2], ",")
	}
	return mount
}

// String returns the comma-joined key=value pairs. "type" comes first, the
// remaining keys are sorted.
func (m MountSpec) String() string {
	pairs := make([]string, 0, len(m))
	if t, ok := m["type"]; ok {
		pairs = append(pairs, "type="+t)
	}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if k == "type" {
			continue
		}
		pairs = append(pairs, k+"="+m[k])
	}
	return strings.Join(pairs, ",")
}

// RunArgs constructs arguments for a `buildah run` invocation. Run and Start
// both use it so the two modes behave identically.
//
// Generated command: run [--user U] [--volume V]... [--mount M]... [--terminal] -- <container> <command...>
func RunArgs(containerID string, command []string, opts RunOptions) []string {
	args := []string{"run"}

	if opts.User != "" {
		args = append(args, "--user", opts.User)
	}

	for _, v := range opts.Volumes {
		args = append(args, "--volume", v.String())
	}

	for _, m := range opts.Mounts {
		args = append(args, "--mount", m.String())
	}

	if opts.Terminal {
		args = append(args, "--terminal")
	}

	args = append(args, "--", containerID)
	return append(args, command...)
}
