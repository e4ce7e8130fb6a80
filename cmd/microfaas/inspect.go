// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/microfaas/microfaas/internal/buildah"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTOML  = "toml"
	formatTable = "table"

	inspectContainer = "container"
	inspectImage     = "image"
)

func newInspectCommand(app *App) *cobra.Command {
	var (
		kind       string
		format     string
		configOnly bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <container|image>",
		Short: "Show the buildah metadata of a container or image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := app.buildah()
			if err != nil {
				return err
			}

			var info *buildah.Info
			switch kind {
			case inspectContainer:
				info, err = buildah.ContainerFromID(cli, args[0]).Inspect(cmd.Context())
			case inspectImage:
				info, err = buildah.ImageFromID(cli, args[0]).Inspect(cmd.Context())
			default:
				return fmt.Errorf("--type %q: must be %s or %s", kind, inspectContainer, inspectImage)
			}
			if err != nil {
				return explain("inspect "+kind, args[0], err)
			}

			if configOnly {
				cfg, err := info.ParsedConfig()
				if err != nil {
					return explain("decode configuration", args[0], err)
				}
				return writeDocument(app.stdout, format, newConfigView(cfg))
			}
			return writeDocument(app.stdout, format, info.Raw)
		},
	}

	cmd.Flags().StringVar(&kind, "type", inspectContainer, "object type (container or image)")
	cmd.Flags().StringVar(&format, "format", formatJSON, "output format (json, yaml, toml)")
	cmd.Flags().BoolVar(&configOnly, "config", false, "show only the tracked configuration fields")
	return cmd
}

// configView is the tracked configuration in a stable, serializable shape.
type configView struct {
	Env        map[string]string `json:"env" yaml:"env" toml:"env"`
	Cmd        []string          `json:"cmd" yaml:"cmd" toml:"cmd"`
	Entrypoint []string          `json:"entrypoint" yaml:"entrypoint" toml:"entrypoint"`
	WorkingDir string            `json:"workingdir" yaml:"workingdir" toml:"workingdir"`
	Labels     map[string]string `json:"labels" yaml:"labels" toml:"labels"`
	Volumes    []string          `json:"volumes" yaml:"volumes" toml:"volumes"`
}

func newConfigView(cfg buildah.Config) configView {
	return configView{
		Env:        cfg.Env,
		Cmd:        cfg.Cmd,
		Entrypoint: cfg.Entrypoint,
		WorkingDir: cfg.WorkingDir,
		Labels:     cfg.Labels,
		Volumes:    cfg.VolumeList(),
	}
}

// writeDocument encodes v as JSON, YAML or TOML. YAML and TOML go through a
// generic JSON decode first so struct tags and raw documents render alike.
func writeDocument(w io.Writer, format string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	switch format {
	case formatJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		buf.WriteByte('\n')
		_, err = buf.WriteTo(w)
		return err
	case formatYAML, formatTOML:
	default:
		return fmt.Errorf("--format %q: must be %s, %s or %s", format, formatJSON, formatYAML, formatTOML)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	// TOML has no null and needs a table at the top level.
	doc = dropNulls(doc)
	if _, ok := doc.(map[string]any); !ok {
		doc = map[string]any{"items": doc}
	}
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	return nil
}

// dropNulls removes null members from objects and replaces null array
// elements with empty strings.
func dropNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			if e == nil {
				delete(t, k)
				continue
			}
			t[k] = dropNulls(e)
		}
		return t
	case []any:
		for i, e := range t {
			if e == nil {
				t[i] = ""
				continue
			}
			t[i] = dropNulls(e)
		}
		return t
	default:
		return v
	}
}
