// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions selects where settings are read from. The zero value reads
	// the platform settings file, falling back to ./config.cue.
	LoadOptions struct {
		// ConfigFilePath names a file that must exist.
		ConfigFilePath string
		// ConfigDirPath replaces the platform settings directory.
		ConfigDirPath string
	}

	// Provider loads settings for a set of options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	// ProviderFunc adapts a function to Provider.
	ProviderFunc func(ctx context.Context, opts LoadOptions) (*Config, error)
)

// Load calls f.
func (f ProviderFunc) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return f(ctx, opts)
}

// NewProvider returns the Provider that reads settings files from disk.
func NewProvider() Provider {
	return ProviderFunc(Load)
}

// Load reads defaults, the selected settings file and MICROFAAS_*
// environment overrides, in increasing precedence.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	return cfg, err
}
