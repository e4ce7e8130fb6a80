// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"slices"
	"testing"

	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	ic := &v1.ImageConfig{
		Env:        []string{"PATH=/usr/bin:/bin", "DSN=user=a password=b", "EMPTY="},
		Cmd:        []string{"nginx", "-g", "daemon off;"},
		Entrypoint: []string{"/docker-entrypoint.sh"},
		Labels:     map[string]string{"maintainer": "ops"},
		Volumes:    map[string]struct{}{"/data": {}, "/cache": {}},
		WorkingDir: "/srv",
	}

	cfg, err := ParseConfig([]byte(inspectOutput(t, "abc", ic)))
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}

	if got := cfg.Env["DSN"]; got != "user=a password=b" {
		t.Errorf("Env[DSN] = %q, want value split at the first '='", got)
	}
	if v, ok := cfg.Env["EMPTY"]; !ok || v != "" {
		t.Errorf("Env[EMPTY] = %q, %v; want empty value present", v, ok)
	}
	if !slices.Equal(cfg.Cmd, ic.Cmd) {
		t.Errorf("Cmd = %q, want %q", cfg.Cmd, ic.Cmd)
	}
	if !slices.Equal(cfg.Entrypoint, ic.Entrypoint) {
		t.Errorf("Entrypoint = %q, want %q", cfg.Entrypoint, ic.Entrypoint)
	}
	if cfg.Labels["maintainer"] != "ops" {
		t.Errorf("Labels = %v", cfg.Labels)
	}
	if got := cfg.VolumeList(); !slices.Equal(got, []string{"/cache", "/data"}) {
		t.Errorf("VolumeList() = %v", got)
	}
	if cfg.WorkingDir != "/srv" {
		t.Errorf("WorkingDir = %q, want /srv", cfg.WorkingDir)
	}
}

func TestParseConfig_MissingMembersAreEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		inspect string
	}{
		{name: "null members", inspect: `{"Config": "{\"config\": {\"Env\": null, \"Cmd\": null, \"Entrypoint\": null, \"Labels\": null, \"Volumes\": null}}"}`},
		{name: "null config", inspect: `{"Config": "{\"config\": null}"}`},
		{name: "no config member", inspect: `{"Config": "{}"}`},
		{name: "empty config string", inspect: `{"Config": ""}`},
		{name: "no Config at all", inspect: `{"Type": "buildah 0.0.1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := ParseConfig([]byte(tt.inspect))
			if err != nil {
				t.Fatalf("ParseConfig() error: %v", err)
			}
			if cfg.Env == nil || cfg.Cmd == nil || cfg.Entrypoint == nil || cfg.Labels == nil || cfg.Volumes == nil {
				t.Errorf("expected empty, non-nil containers, got %#v", cfg)
			}
			if !cfg.Equal(NewConfig()) {
				t.Errorf("expected empty config, got %#v", cfg)
			}
		})
	}
}

func TestParseConfig_Malformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{`not json`, `{"Config": "{broken"}`} {
		if _, err := ParseConfig([]byte(in)); err == nil {
			t.Errorf("ParseConfig(%q) should fail", in)
		}
	}
}

func TestConfig_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	orig := NewConfig()
	orig.Env["A"] = "1"
	orig.Cmd = []string{"a"}
	orig.Volumes["/v"] = struct{}{}

	clone := orig.Clone()
	clone.Env["A"] = "2"
	clone.Cmd[0] = "b"
	delete(clone.Volumes, "/v")

	if orig.Env["A"] != "1" || orig.Cmd[0] != "a" || len(orig.Volumes) != 1 {
		t.Errorf("mutating the clone changed the original: %#v", orig)
	}
}

func TestConfig_EqualTreatsNilAsEmpty(t *testing.T) {
	t.Parallel()

	if !(Config{}).Equal(NewConfig()) {
		t.Error("zero Config should equal NewConfig()")
	}
	other := NewConfig()
	other.WorkingDir = "/x"
	if NewConfig().Equal(other) {
		t.Error("configs differing in WorkingDir compare equal")
	}
}

func TestConfig_EnvList(t *testing.T) {
	t.Parallel()

	cfg := Config{Env: map[string]string{"B": "2", "A": "1=1"}}
	want := []string{"A=1=1", "B=2"}
	if got := cfg.EnvList(); !slices.Equal(got, want) {
		t.Errorf("EnvList() = %q, want %q", got, want)
	}
}

func TestInfo_DecodesImageFields(t *testing.T) {
	t.Parallel()

	data := `{
		"Type": "buildah 0.0.1",
		"FromImageDigest": "sha256:4bcff63911fcb4448bd4fdacec207030997caf25e9bea4045fa6c8c44de311d1",
		"OCIv1": {"architecture": "amd64", "os": "linux", "config": {"Cmd": ["sh"]}},
		"Extra": {"kept": true}
	}`
	info, err := decodeInfo([]byte(data))
	if err != nil {
		t.Fatalf("decodeInfo() error: %v", err)
	}
	if info.FromImageDigest.Algorithm() != "sha256" {
		t.Errorf("FromImageDigest = %q", info.FromImageDigest)
	}
	if info.OCIv1.Architecture != "amd64" || !slices.Equal(info.OCIv1.Config.Cmd, []string{"sh"}) {
		t.Errorf("OCIv1 = %#v", info.OCIv1)
	}
	if len(info.Raw) != len(data) {
		t.Error("Raw does not hold the full document")
	}
}
