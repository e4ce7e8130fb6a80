// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/microfaas/microfaas/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName names the settings directory.
	AppName = "microfaas"
	// FileName is the settings file name inside the settings directory.
	FileName = "config.cue"
	// EnvPrefix prefixes environment overrides, e.g. MICROFAAS_BUILDAH_ROOT.
	EnvPrefix = "MICROFAAS"

	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// settingsSchema compiles the #Config definition into cctx.
func settingsSchema(cctx *cue.Context) (cue.Value, error) {
	v := cctx.CompileString(configSchema)
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile settings schema: %w", err)
	}
	return v.LookupPath(cue.ParsePath("#Config")), nil
}

// ConfigDir returns the microfaas settings directory below the user's
// configuration directory ($XDG_CONFIG_HOME or ~/.config on Linux).
//
//nolint:revive // ConfigDir reads better than Dir at call sites
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// SourcePath returns the settings file Load would read for opts, whether or
// not it exists.
func SourcePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}
	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, FileName), nil
}

// loadWithOptions returns the merged settings and the file they were read
// from, "" when only defaults and environment overrides apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("load settings canceled: %w", err)
	}

	source, err := resolveSource(opts)
	if err != nil {
		return nil, "", err
	}

	v := viper.New()
	for key, value := range defaultKeys() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if source != "" {
		settings, err := decodeSettingsFile(source)
		if err != nil {
			return nil, "", loadError(source, err,
				"Check that the file contains valid CUE syntax",
				"Compare it with 'microfaas settings dump'",
			)
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return nil, "", fmt.Errorf("merge settings: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("decode settings: %w", err)
	}

	// Environment overrides never pass through the schema.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate settings").
			WithResource(source).
			WithSuggestion("Check " + EnvPrefix + "_* environment variables for typos").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, source, nil
}

// resolveSource picks the settings file to read. An explicit file must
// exist; otherwise the settings directory is tried, then ./config.cue when
// no directory was given.
func resolveSource(opts LoadOptions) (string, error) {
	path, err := SourcePath(opts)
	if err != nil {
		return "", err
	}

	switch {
	case isRegularFile(path):
		return path, nil
	case opts.ConfigFilePath != "":
		return "", loadError(path, fmt.Errorf("settings file not found: %s", path),
			"Verify the file path is correct",
			"Create one with 'microfaas settings init'",
		)
	case opts.ConfigDirPath == "" && isRegularFile(FileName):
		return FileName, nil
	default:
		return "", nil
	}
}

func loadError(path string, cause error, suggestions ...string) error {
	return issue.NewErrorContext().
		WithOperation("load settings").
		WithResource(path).
		WithSuggestions(suggestions...).
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(cause).
		BuildError()
}

// decodeSettingsFile unifies the file at path with #Config and returns its
// contents as a nested map for viper. Fields are optional, so concreteness
// is not required.
func decodeSettingsFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return nil, fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	cctx := cuecontext.New()
	schema, err := settingsSchema(cctx)
	if err != nil {
		return nil, err
	}

	user := cctx.CompileBytes(data, cue.Filename(path))
	if err := user.Err(); err != nil {
		return nil, formatCUEError(err, path)
	}

	unified := schema.Unify(user)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, formatCUEError(err, path)
	}

	var settings map[string]any
	if err := unified.Decode(&settings); err != nil {
		return nil, formatCUEError(err, path)
	}
	return settings, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// CreateDefaultConfig writes the default settings to path unless a file
// already exists there. It reports whether a file was written.
func CreateDefaultConfig(path string) (bool, error) {
	switch _, err := os.Stat(path); {
	case err == nil:
		return false, nil
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("check settings file: %w", err)
	}
	if err := Save(DefaultConfig(), path); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes cfg to path as CUE, creating the parent directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a settings file accepted by #Config.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// microfaas settings\n\n")

	sb.WriteString("buildah: {\n")
	if cfg.Buildah.BinaryPath != "" {
		fmt.Fprintf(&sb, "\tbinary_path: %q\n", cfg.Buildah.BinaryPath)
	}
	if cfg.Buildah.Root != "" {
		fmt.Fprintf(&sb, "\troot: %q\n", cfg.Buildah.Root)
	}
	if cfg.Buildah.RunRoot != "" {
		fmt.Fprintf(&sb, "\trunroot: %q\n", cfg.Buildah.RunRoot)
	}
	fmt.Fprintf(&sb, "\tstorage_driver: %q\n", cfg.Buildah.StorageDriver)
	fmt.Fprintf(&sb, "\tisolation: %q\n", cfg.Buildah.Isolation)
	sb.WriteString("}\n")

	fmt.Fprintf(&sb, "\nlog: level: %q\n", cfg.Log.Level)

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")

	fmt.Fprintf(&sb, "\nmetrics: textfile: %q\n", cfg.Metrics.Textfile)

	return sb.String()
}
