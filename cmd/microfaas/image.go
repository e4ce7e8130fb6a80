// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microfaas/microfaas/internal/buildah"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// shortIDLen matches the abbreviated ids printed by buildah images.
const shortIDLen = 12

func newImagesCommand(app *App) *cobra.Command {
	var (
		opts   buildah.ListOptions
		quiet  bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "images [name]",
		Short: "List local images",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				opts.Name = args[0]
			}

			var images []buildah.ImageSummary
			for img, err := range buildah.ListImages(cmd.Context(), cli, opts) {
				if err != nil {
					return explain("list images", opts.Name, err)
				}
				images = append(images, img)
			}

			switch {
			case quiet:
				for _, img := range images {
					fmt.Fprintln(app.stdout, img.ID)
				}
				return nil
			case format == formatTable:
				fmt.Fprintln(app.stdout, imagesTable(images))
				return nil
			default:
				return writeDocument(app.stdout, format, images)
			}
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "include intermediate images")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print image ids only")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json, yaml, toml)")
	return cmd
}

func imagesTable(images []buildah.ImageSummary) string {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("IMAGE ID", "NAMES", "CREATED", "SIZE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	for _, img := range images {
		names := img.FamiliarNames()
		if len(names) == 0 {
			names = []string{"<none>"}
		}
		created := ""
		if img.Created > 0 {
			created = time.Unix(img.Created, 0).UTC().Format(time.DateTime)
		}
		t.Row(shortID(img.ID), strings.Join(names, ", "), created, img.Size)
	}
	return t.String()
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func newPullCommand(app *App) *cobra.Command {
	var (
		retries int
		backoff time.Duration
	)

	cmd := &cobra.Command{
		Use:   "pull <image>",
		Short: "Pull an image from a registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			img, err := buildah.PullWithRetry(cmd.Context(), cli, args[0], retries+1, backoff)
			if err != nil {
				return explain("pull image", args[0], err)
			}
			fmt.Fprintln(app.stdout, img.ID())
			return nil
		},
	}

	cmd.Flags().IntVar(&retries, "retries", 0, "retry transient registry and storage failures this many times")
	cmd.Flags().DurationVar(&backoff, "retry-backoff", 2*time.Second, "delay before the first retry, doubled after each attempt")
	return cmd
}

func newResolveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <image>",
		Short: "Print the id of a local image, pulling it if needed",
		Long: `Print the id of a local image, pulling it if needed.

An id (or sha256:<id>) of a local image resolves without contacting a
registry. Anything else is pulled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			img, err := buildah.ResolveImage(cmd.Context(), cli, args[0])
			if err != nil {
				return explain("resolve image", args[0], err)
			}
			fmt.Fprintln(app.stdout, img.ID())
			return nil
		},
	}
}

func newTagCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <image> <name>...",
		Short: "Add names to a local image",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			if err := buildah.ImageFromID(cli, args[0]).Tag(cmd.Context(), args[1:]...); err != nil {
				return explain("tag image", args[0], err)
			}
			return nil
		},
	}
}

func newRmiCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rmi <image>...",
		Short: "Remove local images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}
			var errs []error
			for _, ref := range args {
				if err := buildah.ImageFromID(cli, ref).Remove(cmd.Context()); err != nil {
					errs = append(errs, explain("remove image", ref, err))
					continue
				}
				fmt.Fprintln(app.stdout, ref)
			}
			return errors.Join(errs...)
		},
	}
}
