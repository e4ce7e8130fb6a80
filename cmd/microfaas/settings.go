// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/microfaas/microfaas/internal/config"
	"github.com/microfaas/microfaas/internal/issue"

	"github.com/spf13/cobra"
)

// newSettingsCommand creates the `microfaas settings` command tree. It
// manages the microfaas config file; container configuration is `config`.
func newSettingsCommand(app *App) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage microfaas settings",
		Long: `Manage microfaas settings.

Settings are stored in:
  - Linux: $XDG_CONFIG_HOME/microfaas/config.cue (default ~/.config)
  - macOS: ~/Library/Application Support/microfaas/config.cue
  - Windows: %APPDATA%\microfaas\config.cue

Every key can be overridden with a MICROFAAS_ environment variable,
e.g. MICROFAAS_BUILDAH_ROOT=/var/lib/faas.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showSettings(app)
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.SourcePath(config.LoadOptions{ConfigFilePath: app.cfgFile})
			if err != nil {
				return err
			}
			created, err := config.CreateDefaultConfig(path)
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("create settings file").
					WithResource(path).
					WithSuggestion("Check that the directory is writable").
					WithIssue(issue.PermissionDeniedId).
					Wrap(err).
					BuildError()
			}
			if !created {
				fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("Settings file already exists:"), path)
				return nil
			}
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Created settings file:"), path)
			return nil
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the settings file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.SourcePath(config.LoadOptions{ConfigFilePath: app.cfgFile})
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the effective settings as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(app.stdout, config.GenerateCUE(app.cfg))
			return nil
		},
	})

	return settingsCmd
}

func showSettings(app *App) error {
	cfg := app.cfg
	path, err := config.SourcePath(config.LoadOptions{ConfigFilePath: app.cfgFile})
	if err != nil {
		return err
	}

	out := app.stdout
	fmt.Fprintln(out, TitleStyle.Render("Current Settings"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("Settings file"), path)
	fmt.Fprintln(out)

	row := func(key, value string) {
		if value == "" {
			value = SubtitleStyle.Render("(unset)")
		} else {
			value = SuccessStyle.Render(value)
		}
		fmt.Fprintf(out, "  %s: %s\n", KeyStyle.Render(key), value)
	}

	fmt.Fprintln(out, KeyStyle.Render("buildah")+":")
	row("binary_path", cfg.Buildah.BinaryPath.String())
	row("root", cfg.Buildah.Root.String())
	row("runroot", cfg.Buildah.RunRoot.String())
	row("storage_driver", cfg.Buildah.StorageDriver)
	row("isolation", cfg.Buildah.Isolation.String())
	fmt.Fprintln(out)

	fmt.Fprintln(out, KeyStyle.Render("log")+":")
	row("level", cfg.Log.Level.String())
	fmt.Fprintln(out)

	fmt.Fprintln(out, KeyStyle.Render("ui")+":")
	row("verbose", fmt.Sprint(cfg.UI.Verbose))
	row("color_scheme", cfg.UI.ColorScheme.String())
	fmt.Fprintln(out)

	fmt.Fprintln(out, KeyStyle.Render("metrics")+":")
	row("textfile", cfg.Metrics.Textfile.String())
	return nil
}
