// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand creates the command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "microfaas",
		Short: "Build OCI images with buildah, one step at a time",
		Long: TitleStyle.Render("microfaas") + SubtitleStyle.Render(" - build OCI images with buildah") + `

microfaas drives the buildah CLI. Working containers are created from an
image, reconfigured, filled with files, and committed to new images.
Configuration changes are collected and sent to buildah as one update.

` + SubtitleStyle.Render("Examples:") + `
  microfaas from alpine                      Create a working container
  microfaas config --env A=1 <container>     Change its configuration
  microfaas run <container> -- make          Run a command inside it
  microfaas commit <container> app:latest    Commit it as an image
  microfaas settings show                    Show current settings`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			flags := cmd.Flags()
			app.configure(cmd.Context(), flags.Changed("verbose"), flags.Changed("log-level"))
		},
	}

	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	pf := root.PersistentFlags()
	pf.BoolVarP(&app.verbose, "verbose", "v", false, "show error chains and troubleshooting guides")
	pf.StringVar(&app.cfgFile, "config", "", "settings file (default is $XDG_CONFIG_HOME/microfaas/config.cue)")
	pf.StringVar(&app.binaryPath, "buildah", "", "path to the buildah binary (default: buildah.binary_path or $PATH)")
	pf.StringVar(&app.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newFromCommand(app),
		newContainerConfigCommand(app),
		newInspectCommand(app),
		newCommitCommand(app),
		newRunCommand(app),
		newCopyInCommand(app),
		newCopyOutCommand(app),
		newRmCommand(app),
		newImagesCommand(app),
		newPullCommand(app),
		newResolveCommand(app),
		newTagCommand(app),
		newRmiCommand(app),
		newVersionCommand(app),
		newSettingsCommand(app),
	)

	return root
}

// Execute runs the CLI and exits the process on failure. This is called by
// main.main().
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, args []string) int {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		return 1
	}
	return runApp(ctx, app, args)
}

func runApp(ctx context.Context, app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)

	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			app.renderError(w, err)
		}),
	)
	app.flushMetrics()

	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}
