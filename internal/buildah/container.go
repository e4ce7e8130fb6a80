// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

type (
	// CreateOptions configures NewContainer.
	CreateOptions struct {
		// Name is the container name; buildah derives one from the image when empty.
		Name string
		// Pull is the pull policy (always, missing, never, newer).
		Pull string
		// Volumes are bind mounts available to every later run.
		Volumes []VolumeMount
	}

	// CommitOptions configures Container.Commit.
	CommitOptions struct {
		// Name is the image name to assign; the image is unnamed when empty.
		Name string
		// Format is the manifest format (oci or docker).
		Format string
		// Squash collapses all layers into one.
		Squash bool
	}

	// Container is a buildah working container.
	//
	// Handles built by NewContainer and LoadContainer track configuration
	// changes; see ConfigTracker. A handle is live until Remove succeeds,
	// after which every method returns ErrContainerRemoved.
	Container struct {
		cli     *CLI
		id      string
		tracker *ConfigTracker
		removed bool
	}
)

// CreateArgs constructs arguments for `buildah from`.
//
// Generated command: from [--name N] [--pull=P] [--volume V]... <image>
func CreateArgs(image string, opts CreateOptions) []string {
	args := []string{"from"}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	if opts.Pull != "" {
		args = append(args, "--pull="+opts.Pull)
	}
	for _, v := range opts.Volumes {
		args = append(args, "--volume", v.String())
	}
	return append(args, image)
}

// NewContainer creates a working container from image and reads its
// configuration. If reading the configuration fails the new container is
// removed again.
func NewContainer(ctx context.Context, cli *CLI, image string, opts CreateOptions) (*Container, error) {
	out, err := cli.Output(ctx, CreateArgs(image, opts)...)
	if err != nil {
		return nil, err
	}

	c := &Container{cli: cli, id: lastLine(out)}
	if err := c.initConfig(ctx); err != nil {
		if rmErr := c.Remove(context.WithoutCancel(ctx)); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return nil, err
	}
	return c, nil
}

// LoadContainer attaches to an existing container by identifier and reads
// its configuration so that later mutations are tracked.
func LoadContainer(ctx context.Context, cli *CLI, id string) (*Container, error) {
	c := &Container{cli: cli, id: id}
	if err := c.initConfig(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// ContainerFromID wraps an identifier already known to be valid without
// calling buildah. The handle does not track configuration: mutators return
// ErrNotTracked and synchronization is a no-op.
func ContainerFromID(cli *CLI, id string) *Container {
	return &Container{cli: cli, id: id}
}

// WithContainer creates a container, passes it to fn and removes it when fn
// returns, panics, or ctx is canceled.
func WithContainer(ctx context.Context, cli *CLI, image string, opts CreateOptions, fn func(*Container) error) (err error) {
	c, err := NewContainer(ctx, cli, image, opts)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := c.Remove(context.WithoutCancel(ctx)); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
	}()
	return fn(c)
}

// ID returns the buildah container identifier.
func (c *Container) ID() string {
	return c.id
}

// String returns the container identifier.
func (c *Container) String() string {
	return c.id
}

// Tracked reports whether configuration changes are tracked.
func (c *Container) Tracked() bool {
	return c.tracker != nil
}

// Config returns the live configuration, or nil for untracked handles.
// Changes made through it are pushed on the next Sync.
func (c *Container) Config() *Config {
	return c.tracker.Live()
}

// Pending returns the configuration changes not yet pushed to buildah.
func (c *Container) Pending() ConfigDiff {
	return c.tracker.Diff()
}

// --- Configuration Mutators ---

// SetEnv sets an environment variable.
func (c *Container) SetEnv(key, value string) error {
	return c.mutate(func(cfg *Config) {
		if cfg.Env == nil {
			cfg.Env = map[string]string{}
		}
		cfg.Env[key] = value
	})
}

// UnsetEnv removes an environment variable.
func (c *Container) UnsetEnv(key string) error {
	return c.mutate(func(cfg *Config) { delete(cfg.Env, key) })
}

// SetCmd replaces the default command.
func (c *Container) SetCmd(cmd ...string) error {
	return c.mutate(func(cfg *Config) { cfg.Cmd = slices.Clone(cmd) })
}

// SetEntrypoint replaces the entrypoint.
func (c *Container) SetEntrypoint(entrypoint ...string) error {
	return c.mutate(func(cfg *Config) { cfg.Entrypoint = slices.Clone(entrypoint) })
}

// SetWorkingDir replaces the working directory.
func (c *Container) SetWorkingDir(dir string) error {
	return c.mutate(func(cfg *Config) { cfg.WorkingDir = dir })
}

// SetLabel sets a label.
func (c *Container) SetLabel(key, value string) error {
	return c.mutate(func(cfg *Config) {
		if cfg.Labels == nil {
			cfg.Labels = map[string]string{}
		}
		cfg.Labels[key] = value
	})
}

// RemoveLabel removes a label.
func (c *Container) RemoveLabel(key string) error {
	return c.mutate(func(cfg *Config) { delete(cfg.Labels, key) })
}

// AddVolume declares a volume mount point.
func (c *Container) AddVolume(path string) error {
	return c.mutate(func(cfg *Config) {
		if cfg.Volumes == nil {
			cfg.Volumes = map[string]struct{}{}
		}
		cfg.Volumes[path] = struct{}{}
	})
}

// RemoveVolume removes a volume mount point.
func (c *Container) RemoveVolume(path string) error {
	return c.mutate(func(cfg *Config) { delete(cfg.Volumes, path) })
}

func (c *Container) mutate(fn func(*Config)) error {
	if err := c.ensureLive(); err != nil {
		return err
	}
	if c.tracker == nil {
		return ErrNotTracked
	}
	fn(c.tracker.Live())
	return nil
}

// --- Lifecycle Operations ---

// Sync pushes pending configuration changes with a single `buildah config`
// call. It is a no-op when nothing changed or the handle is untracked.
func (c *Container) Sync(ctx context.Context) error {
	if err := c.ensureLive(); err != nil {
		return err
	}
	return c.tracker.Reconcile(ctx, c.applyConfig)
}

// Inspect synchronizes pending changes and returns buildah's view of the container.
func (c *Container) Inspect(ctx context.Context) (*Info, error) {
	if err := c.Sync(ctx); err != nil {
		return nil, err
	}
	return c.inspect(ctx)
}

// Commit synchronizes pending changes and commits the container to an image.
func (c *Container) Commit(ctx context.Context, opts CommitOptions) (*Image, error) {
	if err := c.Sync(ctx); err != nil {
		return nil, err
	}
	out, err := c.cli.Output(ctx, CommitArgs(c.id, opts)...)
	if err != nil {
		return nil, err
	}
	return ImageFromID(c.cli, lastLine(out)), nil
}

// CommitArgs constructs arguments for `buildah commit`.
//
// Generated command: commit [--format F] [--squash] <container> [name]
func CommitArgs(containerID string, opts CommitOptions) []string {
	args := []string{"commit"}
	if opts.Format != "" {
		args = append(args, "--format", opts.Format)
	}
	if opts.Squash {
		args = append(args, "--squash")
	}
	args = append(args, containerID)
	if opts.Name != "" {
		args = append(args, opts.Name)
	}
	return args
}

// Run synchronizes pending changes and runs command inside the container,
// waiting for it to exit. Stdout is returned unless opts.Stdout is set.
func (c *Container) Run(ctx context.Context, command []string, opts RunOptions) (string, error) {
	if err := c.Sync(ctx); err != nil {
		return "", err
	}
	return c.cli.execute(ctx, stdio{
		stdin:  opts.Stdin,
		stdout: opts.Stdout,
		stderr: opts.Stderr,
	}, RunArgs(c.id, command, opts))
}

// Remove deletes the working container. The handle is unusable afterwards.
func (c *Container) Remove(ctx context.Context) error {
	if err := c.ensureLive(); err != nil {
		return err
	}
	if err := c.cli.Status(ctx, "rm", c.id); err != nil {
		return err
	}
	c.removed = true
	return nil
}

func (c *Container) ensureLive() error {
	if c.removed {
		return fmt.Errorf("%s: %w", c.id, ErrContainerRemoved)
	}
	return nil
}

func (c *Container) initConfig(ctx context.Context) error {
	info, err := c.inspect(ctx)
	if err != nil {
		return err
	}
	cfg, err := info.ParsedConfig()
	if err != nil {
		return err
	}
	c.tracker = NewConfigTracker(cfg)
	return nil
}

func (c *Container) inspect(ctx context.Context) (*Info, error) {
	out, err := c.cli.Output(ctx, "inspect", "--type", "container", c.id)
	if err != nil {
		return nil, err
	}
	return decodeInfo([]byte(out))
}

func (c *Container) applyConfig(ctx context.Context, args []string) error {
	full := make([]string, 0, len(args)+2)
	full = append(full, "config")
	full = append(full, args...)
	full = append(full, c.id)
	return c.cli.Status(ctx, full...)
}
