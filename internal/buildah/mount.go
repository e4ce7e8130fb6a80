// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/u-root/u-root/pkg/cp"
)

// Mount mounts the container's root filesystem on the host and calls fn with
// the mount point. The unmount is issued on every exit path, including a
// canceled ctx or a panic in fn.
func (c *Container) Mount(ctx context.Context, fn func(root string) error) (err error) {
	if err := c.ensureLive(); err != nil {
		return err
	}
	out, err := c.cli.Output(ctx, "mount", c.id)
	if err != nil {
		return err
	}
	root := lastLine(out)

	defer func() {
		if uerr := c.cli.Status(context.WithoutCancel(ctx), "umount", c.id); uerr != nil {
			err = errors.Join(err, uerr)
		}
	}()
	return fn(root)
}

// CopyIn copies a host file or directory into the container. dst names the
// target itself, not its parent directory.
func (c *Container) CopyIn(ctx context.Context, src, dst string) error {
	if err := c.ensureLive(); err != nil {
		return err
	}
	return c.cli.Status(ctx, "copy", c.id, src, dst)
}

// CopyOut copies a file or directory from the container to the host. dst
// names the target itself; anything already there is removed first.
// Symbolic links are copied as links so absolute targets are never resolved
// against the host.
func (c *Container) CopyOut(ctx context.Context, src, dst string) error {
	if err := c.ensureLive(); err != nil {
		return err
	}
	if err := removeExisting(dst); err != nil {
		return err
	}
	return c.Mount(ctx, func(root string) error {
		return copyTree(ctx, filepath.Join(root, strings.TrimLeft(src, "/")), dst)
	})
}

// copyTree copies src to dst, stopping at the next file once ctx is done.
// It returns before the mount scope closes, so the unmount never races with
// an in-flight copy.
func copyTree(ctx context.Context, src, dst string) error {
	opts := cp.Options{
		NoFollowSymlinks: true,
		PreCallback: func(_, _ string, _ os.FileInfo) error {
			return ctx.Err()
		},
	}

	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("copy out: %w", err)
	}
	if info.IsDir() {
		err = opts.CopyTree(src, dst)
	} else {
		err = opts.Copy(src, dst)
	}
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}

func removeExisting(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return fmt.Errorf("remove existing %s: %w", path, err)
	}
	return nil
}
