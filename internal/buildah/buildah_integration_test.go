// SPDX-License-Identifier: MPL-2.0

//go:build integration

package buildah_test

import (
	"context"
	"errors"
	"os/exec"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/microfaas/microfaas/internal/buildah"
	"github.com/microfaas/microfaas/internal/testutil"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const buildahImage = "quay.io/buildah/stable:latest"

// checkTestcontainersAvailable safely checks if testcontainers can be used.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// startBuildah runs a privileged buildah container and returns a CLI whose
// invocations are executed inside it with `docker exec`.
func startBuildah(t *testing.T) *buildah.CLI {
	t.Helper()

	docker, err := exec.LookPath("docker")
	if err != nil {
		t.Skip("skipping: docker CLI not found")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping: testcontainers provider not available")
	}

	testutil.AcquireBuildahSlot(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      buildahImage,
			Cmd:        []string{"sleep", "infinity"},
			Privileged: true,
			Env:        map[string]string{"BUILDAH_ISOLATION": "chroot"},
			WaitingFor: wait.ForExec([]string{"buildah", "version"}).WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start buildah container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate buildah container: %v", err)
		}
	})

	id := ctr.GetContainerID()
	return buildah.NewCLI("buildah",
		buildah.WithGlobalArgs("--storage-driver", "vfs"),
		buildah.WithExecCommand(func(ctx context.Context, name string, arg ...string) *exec.Cmd {
			return exec.CommandContext(ctx, docker, append([]string{"exec", "-i", id, name}, arg...)...)
		}),
	)
}

func TestBuildah_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cli := startBuildah(t)
	ctx := t.Context()

	if _, err := cli.Version(ctx); err != nil {
		t.Fatalf("Version() error: %v", err)
	}

	t.Run("ConfigRoundTrip", func(t *testing.T) {
		ctr, err := buildah.NewContainer(ctx, cli, "docker.io/library/alpine:latest", buildah.CreateOptions{})
		if err != nil {
			t.Fatalf("NewContainer() error: %v", err)
		}
		defer func() { _ = ctr.Remove(context.WithoutCancel(ctx)) }()

		mustNoErr(t, ctr.SetEnv("APP_ENV", "test"))
		mustNoErr(t, ctr.SetCmd("sh", "-c", "echo $APP_ENV"))
		mustNoErr(t, ctr.SetWorkingDir("/srv"))
		mustNoErr(t, ctr.SetLabel("stage", "it"))
		mustNoErr(t, ctr.AddVolume("/data"))
		if err := ctr.Sync(ctx); err != nil {
			t.Fatalf("Sync() error: %v", err)
		}

		reloaded, err := buildah.LoadContainer(ctx, cli, ctr.ID())
		if err != nil {
			t.Fatalf("LoadContainer() error: %v", err)
		}
		cfg := reloaded.Config()
		if cfg.Env["APP_ENV"] != "test" || cfg.WorkingDir != "/srv" || cfg.Labels["stage"] != "it" {
			t.Errorf("reloaded config = %#v", cfg)
		}
		if !slices.Equal(cfg.Cmd, []string{"sh", "-c", "echo $APP_ENV"}) {
			t.Errorf("Cmd = %q", cfg.Cmd)
		}
		if !slices.Equal(cfg.VolumeList(), []string{"/data"}) {
			t.Errorf("Volumes = %v", cfg.VolumeList())
		}

		out, err := ctr.Run(ctx, []string{"sh", "-c", "echo $APP_ENV"}, buildah.RunOptions{})
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if strings.TrimSpace(out) != "test" {
			t.Errorf("Run() output = %q", out)
		}

		img, err := ctr.Commit(ctx, buildah.CommitOptions{Name: "localhost/microfaas-it:latest"})
		if err != nil {
			t.Fatalf("Commit() error: %v", err)
		}
		defer func() { _ = img.Remove(context.WithoutCancel(ctx)) }()

		resolved, err := buildah.ResolveImage(ctx, cli, img.ID())
		if err != nil {
			t.Fatalf("ResolveImage() error: %v", err)
		}
		if resolved.ID() != img.ID() {
			t.Errorf("ResolveImage() = %q, want %q", resolved.ID(), img.ID())
		}
	})

	t.Run("RemovedContainer", func(t *testing.T) {
		ctr, err := buildah.NewContainer(ctx, cli, "docker.io/library/alpine:latest", buildah.CreateOptions{})
		if err != nil {
			t.Fatalf("NewContainer() error: %v", err)
		}
		if err := ctr.Remove(ctx); err != nil {
			t.Fatalf("Remove() error: %v", err)
		}
		if err := ctr.SetEnv("A", "1"); !errors.Is(err, buildah.ErrContainerRemoved) {
			t.Errorf("SetEnv() after Remove = %v", err)
		}
	})

	t.Run("ImageNotFound", func(t *testing.T) {
		_, err := buildah.ResolveImage(ctx, cli, "docker.io/library/microfaas-does-not-exist:never")
		if !errors.Is(err, buildah.ErrImageNotFound) {
			t.Errorf("ResolveImage() error = %v, want ErrImageNotFound", err)
		}
	})
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
