// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show microfaas and buildah versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(app.stdout, "%s %s\n", KeyStyle.Render("microfaas:"), getVersionString())

			cli, err := app.buildah()
			if err != nil {
				return err
			}
			info, err := cli.Version(cmd.Context())
			if err != nil {
				return explain("query buildah version", cli.BinaryPath(), err)
			}
			fmt.Fprintf(app.stdout, "%s %s (%s, image-spec %s, runtime-spec %s)\n",
				KeyStyle.Render("buildah:"), info.Version, info.OSArch, info.ImageSpec, info.RuntimeSpec)
			fmt.Fprintf(app.stdout, "%s %s\n", KeyStyle.Render("binary:"), SubtitleStyle.Render(cli.BinaryPath()))
			return nil
		},
	}
}
