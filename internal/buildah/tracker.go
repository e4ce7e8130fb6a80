// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strings"
)

type (
	// ConfigDiff lists what differs between the live configuration and the
	// last synchronized snapshot.
	ConfigDiff struct {
		Cmd        bool
		Entrypoint bool
		WorkingDir bool

		EnvChanged []string
		EnvDeleted []string

		VolumesAdded   []string
		VolumesRemoved []string

		LabelsChanged []string
		LabelsDeleted []string
	}

	// Applier pushes `buildah config` flag groups to the external tool.
	Applier func(ctx context.Context, args []string) error

	// ConfigTracker holds the live configuration of a container together with
	// the snapshot last known to match buildah's stored configuration.
	//
	// Callers mutate Live() freely; nothing reaches buildah until Reconcile.
	// A nil *ConfigTracker is valid: it never reports changes and Reconcile
	// is a no-op.
	ConfigTracker struct {
		live   Config
		synced Config
	}
)

// Empty reports whether the diff contains no changes.
func (d ConfigDiff) Empty() bool {
	return !d.Cmd && !d.Entrypoint && !d.WorkingDir &&
		len(d.EnvChanged) == 0 && len(d.EnvDeleted) == 0 &&
		len(d.VolumesAdded) == 0 && len(d.VolumesRemoved) == 0 &&
		len(d.LabelsChanged) == 0 && len(d.LabelsDeleted) == 0
}

// NewConfigTracker starts tracking from initial, which is taken as the state
// buildah currently holds.
func NewConfigTracker(initial Config) *ConfigTracker {
	return &ConfigTracker{
		live:   initial.Clone(),
		synced: initial.Clone(),
	}
}

// Live returns the mutable live configuration.
func (t *ConfigTracker) Live() *Config {
	if t == nil {
		return nil
	}
	return &t.live
}

// Snapshot returns a copy of the last synchronized configuration.
func (t *ConfigTracker) Snapshot() Config {
	if t == nil {
		return Config{}
	}
	return t.synced.Clone()
}

// Diff compares the live configuration with the snapshot.
func (t *ConfigTracker) Diff() ConfigDiff {
	if t == nil {
		return ConfigDiff{}
	}
	var d ConfigDiff
	d.Cmd = !slices.Equal(t.live.Cmd, t.synced.Cmd)
	d.Entrypoint = !slices.Equal(t.live.Entrypoint, t.synced.Entrypoint)
	d.WorkingDir = t.live.WorkingDir != t.synced.WorkingDir
	d.EnvChanged, d.EnvDeleted = DiffMap(t.synced.Env, t.live.Env)
	d.VolumesAdded, d.VolumesRemoved = DiffSet(t.synced.Volumes, t.live.Volumes)
	d.LabelsChanged, d.LabelsDeleted = DiffMap(t.synced.Labels, t.live.Labels)
	return d
}

// Dirty reports whether any field differs from the snapshot.
func (t *ConfigTracker) Dirty() bool {
	return !t.Diff().Empty()
}

// UpdateArgs returns the `buildah config` flags that bring buildah in line
// with the live configuration, or nil when nothing changed. Flag groups are
// emitted in a fixed order: cmd, entrypoint, workingdir, env additions, env
// deletions, volume additions, volume deletions, label additions, label
// deletions.
func (t *ConfigTracker) UpdateArgs() []string {
	d := t.Diff()
	if d.Empty() {
		return nil
	}

	var args []string
	if d.Cmd {
		args = append(args, "--cmd", JoinShellwords(t.live.Cmd))
	}
	if d.Entrypoint {
		args = append(args, "--entrypoint", marshalEntrypoint(t.live.Entrypoint))
	}
	if d.WorkingDir {
		args = append(args, "--workingdir", t.live.WorkingDir)
	}
	for _, k := range d.EnvChanged {
		args = append(args, "--env", k+"="+t.live.Env[k])
	}
	for _, k := range d.EnvDeleted {
		args = append(args, "--env", k+"-")
	}
	for _, v := range d.VolumesAdded {
		args = append(args, "--volume", v)
	}
	for _, v := range d.VolumesRemoved {
		args = append(args, "--volume", v+"-")
	}
	for _, k := range d.LabelsChanged {
		args = append(args, "--label", k+"="+t.live.Labels[k])
	}
	for _, k := range d.LabelsDeleted {
		args = append(args, "--label", k+"-")
	}
	return args
}

// MarkSynced takes a fresh snapshot of the live configuration.
func (t *ConfigTracker) MarkSynced() {
	if t == nil {
		return
	}
	t.synced = t.live.Clone()
}

// Reconcile applies pending changes through apply and, only if that
// succeeds, advances the snapshot. A failed apply leaves the snapshot
// untouched so the next call resends the whole outstanding diff.
func (t *ConfigTracker) Reconcile(ctx context.Context, apply Applier) error {
	if t == nil {
		return nil
	}
	args := t.UpdateArgs()
	if len(args) == 0 {
		return nil
	}
	if err := apply(ctx, args); err != nil {
		return err
	}
	t.MarkSynced()
	return nil
}

// marshalEntrypoint encodes the entrypoint as a JSON array, which buildah
// accepts as exec form. HTML escaping is disabled so shell metacharacters
// such as & and > pass through verbatim.
func marshalEntrypoint(entrypoint []string) string {
	if entrypoint == nil {
		entrypoint = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a []string cannot fail.
	_ = enc.Encode(entrypoint)
	return strings.TrimRight(buf.String(), "\n")
}
