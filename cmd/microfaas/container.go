// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/microfaas/microfaas/internal/buildah"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/shell"
)

type containerConfigFlags struct {
	env          []string
	unsetEnv     []string
	cmd          string
	entrypoint   string
	workingDir   string
	labels       []string
	unsetLabels  []string
	volumes      []string
	unsetVolumes []string
}

func newFromCommand(app *App) *cobra.Command {
	var (
		opts    buildah.CreateOptions
		volumes []string
	)

	cmd := &cobra.Command{
		Use:   "from <image>",
		Short: "Create a working container from an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			for _, v := range volumes {
				opts.Volumes = append(opts.Volumes, buildah.ParseVolumeMount(v))
			}
			ctr, err := buildah.NewContainer(cmd.Context(), cli, args[0], opts)
			if err != nil {
				return explain("create container", args[0], err)
			}
			fmt.Fprintln(app.stdout, ctr.ID())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "container name")
	cmd.Flags().StringVar(&opts.Pull, "pull", "", "pull policy (always, missing, never, newer)")
	cmd.Flags().StringArrayVar(&volumes, "volume", nil, "bind mount host:container[:options] (repeatable)")
	return cmd
}

func newContainerConfigCommand(app *App) *cobra.Command {
	var f containerConfigFlags

	cmd := &cobra.Command{
		Use:   "config <container>",
		Short: "Change the configuration of a working container",
		Long: `Change the configuration of a working container.

All changes given on the command line are compared with the container's
current configuration and sent to buildah as a single update containing only
the fields that differ. --cmd and --entrypoint take shell words:

  microfaas config --cmd "python -m http.server 8080" <container>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			ctr, err := buildah.LoadContainer(cmd.Context(), cli, args[0])
			if err != nil {
				return explain("load container", args[0], err)
			}
			if err := f.apply(cmd, ctr); err != nil {
				return err
			}
			if err := ctr.Sync(cmd.Context()); err != nil {
				return explain("update container configuration", args[0], err)
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVar(&f.env, "env", nil, "set environment variable KEY=VALUE (repeatable)")
	fl.StringArrayVar(&f.unsetEnv, "unset-env", nil, "remove environment variable (repeatable)")
	fl.StringVar(&f.cmd, "cmd", "", "default command, as shell words")
	fl.StringVar(&f.entrypoint, "entrypoint", "", "entrypoint, as shell words")
	fl.StringVar(&f.workingDir, "workingdir", "", "working directory")
	fl.StringArrayVar(&f.labels, "label", nil, "set label KEY=VALUE (repeatable)")
	fl.StringArrayVar(&f.unsetLabels, "unset-label", nil, "remove label (repeatable)")
	fl.StringArrayVar(&f.volumes, "volume", nil, "declare volume mount point (repeatable)")
	fl.StringArrayVar(&f.unsetVolumes, "unset-volume", nil, "remove volume mount point (repeatable)")
	return cmd
}

// apply mutates ctr from the flags that were set on cmd.
func (f *containerConfigFlags) apply(cmd *cobra.Command, ctr *buildah.Container) error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	for _, kv := range f.env {
		k, v, err := splitKeyValue("--env", kv)
		if err != nil {
			return err
		}
		add(ctr.SetEnv(k, v))
	}
	for _, k := range f.unsetEnv {
		add(ctr.UnsetEnv(k))
	}
	if cmd.Flags().Changed("cmd") {
		words, err := shellWords("--cmd", f.cmd)
		if err != nil {
			return err
		}
		add(ctr.SetCmd(words...))
	}
	if cmd.Flags().Changed("entrypoint") {
		words, err := shellWords("--entrypoint", f.entrypoint)
		if err != nil {
			return err
		}
		add(ctr.SetEntrypoint(words...))
	}
	if cmd.Flags().Changed("workingdir") {
		add(ctr.SetWorkingDir(f.workingDir))
	}
	for _, kv := range f.labels {
		k, v, err := splitKeyValue("--label", kv)
		if err != nil {
			return err
		}
		add(ctr.SetLabel(k, v))
	}
	for _, k := range f.unsetLabels {
		add(ctr.RemoveLabel(k))
	}
	for _, v := range f.volumes {
		add(ctr.AddVolume(v))
	}
	for _, v := range f.unsetVolumes {
		add(ctr.RemoveVolume(v))
	}
	return errors.Join(errs...)
}

// splitKeyValue splits KEY=VALUE. The value may itself contain '='.
func splitKeyValue(flag, kv string) (string, string, error) {
	k, v, ok := strings.Cut(kv, "=")
	if !ok || k == "" {
		return "", "", fmt.Errorf("%s %q: expected KEY=VALUE", flag, kv)
	}
	return k, v, nil
}

// shellWords splits s like a POSIX shell would, without expanding
// variables: "$HOME" stays "$HOME" so it is resolved inside the container.
func shellWords(flag, s string) ([]string, error) {
	words, err := shell.Fields(s, func(name string) string { return "$" + name })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", flag, err)
	}
	return words, nil
}

func newCommitCommand(app *App) *cobra.Command {
	var opts buildah.CommitOptions

	cmd := &cobra.Command{
		Use:   "commit <container> [image-name]",
		Short: "Commit a working container to an image",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			if len(args) == 2 {
				opts.Name = args[1]
			}
			img, err := buildah.ContainerFromID(cli, args[0]).Commit(cmd.Context(), opts)
			if err != nil {
				return explain("commit container", args[0], err)
			}
			fmt.Fprintln(app.stdout, img.ID())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "", "manifest format (oci or docker)")
	cmd.Flags().BoolVar(&opts.Squash, "squash", false, "squash all layers into one")
	return cmd
}

func newCopyInCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "copy-in <container> <host-src> <container-dst>",
		Short: "Copy a file or directory into a working container",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			if err := buildah.ContainerFromID(cli, args[0]).CopyIn(cmd.Context(), args[1], args[2]); err != nil {
				return explain("copy into container", args[0], err)
			}
			return nil
		},
	}
}

func newCopyOutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "copy-out <container> <container-src> <host-dst>",
		Short: "Copy a file or directory out of a working container",
		Long: `Copy a file or directory out of a working container.

The container's root filesystem is mounted for the duration of the copy.
Anything already at host-dst is replaced. Rootless users must run this
under 'buildah unshare'.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			if err := buildah.ContainerFromID(cli, args[0]).CopyOut(cmd.Context(), args[1], args[2]); err != nil {
				return explain("copy out of container", args[0], err)
			}
			return nil
		},
	}
}

func newRmCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <container>...",
		Short: "Remove working containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			var errs []error
			for _, id := range args {
				if err := buildah.ContainerFromID(cli, id).Remove(cmd.Context()); err != nil {
					errs = append(errs, explain("remove container", id, err))
					continue
				}
				fmt.Fprintln(app.stdout, id)
			}
			return errors.Join(errs...)
		},
	}
}

func newRunCommand(app *App) *cobra.Command {
	var (
		opts    buildah.RunOptions
		volumes []string
		mounts  []string
	)

	cmd := &cobra.Command{
		Use:   "run <container> -- <command> [args...]",
		Short: "Run a command inside a working container",
		Long: `Run a command inside a working container.

Output is streamed. The exit status of the command becomes the exit status
of microfaas. With --tty the command gets a pseudo-terminal.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			for _, v := range volumes {
				opts.Volumes = append(opts.Volumes, buildah.ParseVolumeMount(v))
			}
			for _, m := range mounts {
				spec, err := parseMountSpec(m)
				if err != nil {
					return err
				}
				opts.Mounts = append(opts.Mounts, spec)
			}

			ctr := buildah.ContainerFromID(cli, args[0])
			if opts.Terminal {
				err = runWithTerminal(cmd, ctr, args[1:], opts)
			} else {
				opts.Stdin = cmd.InOrStdin()
				opts.Stdout = app.stdout
				opts.Stderr = app.stderr
				_, err = ctr.Run(cmd.Context(), args[1:], opts)
			}
			return runExit(args[0], err)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&opts.User, "user", "", "user[:group] to run as")
	fl.StringArrayVar(&volumes, "volume", nil, "bind mount host:container[:options] (repeatable)")
	fl.StringArrayVar(&mounts, "mount", nil, "mount spec type=bind,src=...,dst=... (repeatable)")
	fl.BoolVarP(&opts.Terminal, "tty", "t", false, "allocate a pseudo-terminal")
	return cmd
}

// buildahFailureCode is the status buildah run uses for its own errors.
const buildahFailureCode = 125

// runExit passes a failed command's exit status through. Its stderr was
// already streamed, so only failures to run at all are explained.
func runExit(id string, err error) error {
	var ce *buildah.CommandError
	if errors.As(err, &ce) && ce.ExitCode > 0 && ce.ExitCode != buildahFailureCode && ce.Subcommand() == "run" {
		return &ExitError{Code: ce.ExitCode}
	}
	return explain("run in container", id, err)
}

func parseMountSpec(s string) (buildah.MountSpec, error) {
	spec := buildah.MountSpec{}
	for pair := range strings.SplitSeq(s, ",") {
		k, v, err := splitKeyValue("--mount", pair)
		if err != nil {
			return nil, err
		}
		spec[k] = v
	}
	return spec, nil
}
