// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/microfaas/microfaas/internal/config"
)

func TestRunApp_SettingsFailureFallsBackToDefaults(t *testing.T) {
	var stdout, stderr bytes.Buffer
	failing := config.ProviderFunc(func(context.Context, config.LoadOptions) (*config.Config, error) {
		return nil, errors.New("broken settings")
	})
	app, err := NewApp(Dependencies{Config: failing, Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.Fatalf("NewApp() error: %v", err)
	}

	if code := runApp(t.Context(), app, []string{"settings", "dump"}); code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "broken settings") {
		t.Errorf("stderr missing warning:\n%s", stderr.String())
	}
	if !strings.Contains(stdout.String(), `level: "info"`) {
		t.Errorf("stdout missing defaults:\n%s", stdout.String())
	}
}

func TestRunApp_UsesInjectedExecCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}

	var (
		mu    sync.Mutex
		calls [][]string
	)
	execCommand := func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		mu.Lock()
		calls = append(calls, append([]string{name}, arg...))
		mu.Unlock()
		return exec.CommandContext(ctx, "true")
	}

	var stdout, stderr bytes.Buffer
	defaults := config.ProviderFunc(func(context.Context, config.LoadOptions) (*config.Config, error) {
		cfg := config.DefaultConfig()
		cfg.Buildah.Root = "/var/lib/faas"
		return cfg, nil
	})
	app, err := NewApp(Dependencies{Config: defaults, ExecCommand: execCommand, Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.Fatalf("NewApp() error: %v", err)
	}

	if code := runApp(t.Context(), app, []string{"--buildah", "/bin/sh", "rm", "c0ffee"}); code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr.String())
	}
	want := []string{"/bin/sh", "--root", "/var/lib/faas", "rm", "c0ffee"}
	if len(calls) != 1 || !slices.Equal(calls[0], want) {
		t.Errorf("calls = %q, want [%q]", calls, want)
	}
	if strings.TrimSpace(stdout.String()) != "c0ffee" {
		t.Errorf("stdout = %q", stdout.String())
	}
}
