// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

type (
	// Config is the mutable part of a working container's image configuration.
	Config struct {
		Env        map[string]string
		Cmd        []string
		Entrypoint []string
		Labels     map[string]string
		Volumes    map[string]struct{}
		WorkingDir string
	}

	// configEnvelope is the document stored as a JSON string in the
	// "Config" member of `buildah inspect --type container`.
	configEnvelope struct {
		Config *v1.ImageConfig `json:"config"`
	}
)

// NewConfig returns a Config with every field set to an empty container.
func NewConfig() Config {
	return Config{
		Env:        map[string]string{},
		Cmd:        []string{},
		Entrypoint: []string{},
		Labels:     map[string]string{},
		Volumes:    map[string]struct{}{},
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	return Config{
		Env:        maps.Clone(c.Env),
		Cmd:        slices.Clone(c.Cmd),
		Entrypoint: slices.Clone(c.Entrypoint),
		Labels:     maps.Clone(c.Labels),
		Volumes:    maps.Clone(c.Volumes),
		WorkingDir: c.WorkingDir,
	}
}

// Equal reports whether c and o hold the same values. Nil and empty
// containers compare equal.
func (c Config) Equal(o Config) bool {
	return maps.Equal(c.Env, o.Env) &&
		slices.Equal(c.Cmd, o.Cmd) &&
		slices.Equal(c.Entrypoint, o.Entrypoint) &&
		maps.Equal(c.Labels, o.Labels) &&
		maps.Equal(c.Volumes, o.Volumes) &&
		c.WorkingDir == o.WorkingDir
}

// VolumeList returns the volume mount points in sorted order.
func (c Config) VolumeList() []string {
	return slices.Sorted(maps.Keys(c.Volumes))
}

// EnvList returns the environment in KEY=VALUE form, sorted by key.
func (c Config) EnvList() []string {
	env := make([]string, 0, len(c.Env))
	for _, k := range slices.Sorted(maps.Keys(c.Env)) {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}

// ParseConfig reads the configuration out of `buildah inspect --type container`
// output. Missing or null members yield empty containers.
func ParseConfig(inspect []byte) (Config, error) {
	info, err := decodeInfo(inspect)
	if err != nil {
		return Config{}, err
	}
	return info.ParsedConfig()
}

// parseConfigString decodes the nested config document. An empty string
// means the container has no configuration yet.
func parseConfigString(raw string) (Config, error) {
	if strings.TrimSpace(raw) == "" {
		return NewConfig(), nil
	}
	var env configEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Config{}, fmt.Errorf("decode container config: %w", err)
	}
	if env.Config == nil {
		return NewConfig(), nil
	}
	return configFromImageConfig(*env.Config), nil
}

func configFromImageConfig(ic v1.ImageConfig) Config {
	cfg := NewConfig()
	for _, item := range ic.Env {
		k, v, _ := strings.Cut(item, "=")
		cfg.Env[k] = v
	}
	if ic.Cmd != nil {
		cfg.Cmd = slices.Clone(ic.Cmd)
	}
	if ic.Entrypoint != nil {
		cfg.Entrypoint = slices.Clone(ic.Entrypoint)
	}
	if ic.Labels != nil {
		cfg.Labels = maps.Clone(ic.Labels)
	}
	for path := range ic.Volumes {
		cfg.Volumes[path] = struct{}{}
	}
	cfg.WorkingDir = ic.WorkingDir
	return cfg
}
