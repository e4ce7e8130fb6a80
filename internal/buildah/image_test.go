// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"errors"
	"slices"
	"testing"
)

const (
	alpineID = "4bcff63911fcb4448bd4fdacec207030997caf25e9bea4045fa6c8c44de311d1"
	debianID = "9d6c39e4a7c6cf7a7b2ac1a4f0a3b7f0ce4fba7e1b50f2c4c1a6e4ab0c1f7e21"
)

const imagesJSON = `[
  {"id": "` + alpineID + `", "names": ["docker.io/library/alpine:latest"], "digest": "sha256:1e42bbe2508154c9126d48c2b8a75420c3544343bf86fd041fb7527e017a4b4a", "createdat": "2024-01-27T00:30:48Z", "size": "7.67 MB", "created": 1706315448, "readonly": false, "history": []},
  {"id": "` + debianID + `", "names": ["quay.io/team/debian:stable", "localhost/builder"], "digest": "", "createdat": "", "size": "", "created": 0, "readonly": true}
]`

func TestListArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{name: "default", want: []string{"images", "--json"}},
		{name: "all", opts: ListOptions{All: true}, want: []string{"images", "--json", "--all"}},
		{name: "name filter", opts: ListOptions{All: true, Name: "alpine"}, want: []string{"images", "--json", "--all", "alpine"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ListArgs(tt.opts); !slices.Equal(got, tt.want) {
				t.Errorf("ListArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListImages(t *testing.T) {
	t.Parallel()

	m := NewMockCommandRecorder().On("images", MockResponse{Stdout: imagesJSON})
	seq := ListImages(t.Context(), m.CLI(t), ListOptions{})

	// Nothing runs until the sequence is consumed.
	m.AssertInvocationCount(t, 0)

	var ids []string
	for img, err := range seq {
		if err != nil {
			t.Fatalf("ListImages() error: %v", err)
		}
		ids = append(ids, img.ID)
	}
	if !slices.Equal(ids, []string{alpineID, debianID}) {
		t.Errorf("ids = %v", ids)
	}

	// Each range is a fresh query.
	for range seq {
		break
	}
	m.AssertSubcommands(t, "images", "images")
}

func TestListImages_EmptyOutput(t *testing.T) {
	t.Parallel()

	for _, out := range []string{"", "\n", "[]"} {
		m := NewMockCommandRecorder().On("images", MockResponse{Stdout: out})
		for img, err := range ListImages(t.Context(), m.CLI(t), ListOptions{}) {
			t.Errorf("output %q yielded %v, %v", out, img, err)
		}
	}
}

func TestListImages_Failure(t *testing.T) {
	t.Parallel()

	m := NewMockCommandRecorder().On("images", MockResponse{ExitCode: 1, Stderr: "storage locked"})

	var errs []error
	for _, err := range ListImages(t.Context(), m.CLI(t), ListOptions{}) {
		errs = append(errs, err)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrCommandFailed) {
		t.Errorf("expected a single command error, got %v", errs)
	}
}

func TestImageSummary_FamiliarNames(t *testing.T) {
	t.Parallel()

	s := ImageSummary{Names: []string{
		"docker.io/library/alpine:latest",
		"quay.io/team/debian:stable",
		"localhost/builder:latest",
		"Not A Reference",
	}}
	want := []string{"alpine:latest", "quay.io/team/debian:stable", "localhost/builder:latest", "Not A Reference"}
	if got := s.FamiliarNames(); !slices.Equal(got, want) {
		t.Errorf("FamiliarNames() = %q, want %q", got, want)
	}
}

func TestResolveImage_LocalIDDoesNotPull(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  string
	}{
		{name: "bare id", ref: debianID},
		{name: "digest form", ref: "sha256:" + debianID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewMockCommandRecorder().On("images", MockResponse{Stdout: imagesJSON})

			img, err := ResolveImage(t.Context(), m.CLI(t), tt.ref)
			if err != nil {
				t.Fatalf("ResolveImage() error: %v", err)
			}
			if img.ID() != debianID {
				t.Errorf("ID() = %q, want %q", img.ID(), debianID)
			}
			m.AssertSubcommands(t, "images")
		})
	}
}

func TestResolveImage_NameIsPulled(t *testing.T) {
	t.Parallel()

	m := NewMockCommandRecorder().
		On("images", MockResponse{Stdout: imagesJSON}).
		On("pull", MockResponse{Stdout: "Trying to pull...\n" + alpineID + "\n"})

	img, err := ResolveImage(t.Context(), m.CLI(t), "alpine")
	if err != nil {
		t.Fatalf("ResolveImage() error: %v", err)
	}
	if img.ID() != alpineID {
		t.Errorf("ID() = %q", img.ID())
	}
	m.AssertSubcommands(t, "images", "pull")
	m.AssertLastArgs(t, "pull", "--quiet", "alpine")
}

func TestResolveImage_NotFound(t *testing.T) {
	t.Parallel()

	m := NewMockCommandRecorder().
		On("images", MockResponse{Stdout: "[]"}).
		On("pull", MockResponse{ExitCode: 125, Stderr: "Error: initializing source docker://nonexistent:latest: manifest unknown"})

	_, err := ResolveImage(t.Context(), m.CLI(t), "nonexistent")
	assertImageNotFound(t, err, "nonexistent")
}

func TestResolveImage_ListFailureIsNotNotFound(t *testing.T) {
	t.Parallel()

	m := NewMockCommandRecorder().On("images", MockResponse{ExitCode: 1, Stderr: "permission denied"})

	_, err := ResolveImage(t.Context(), m.CLI(t), "alpine")
	if errors.Is(err, ErrImageNotFound) {
		t.Errorf("a failing listing must not be reported as not found: %v", err)
	}
	if !errors.Is(err, ErrCommandFailed) {
		t.Errorf("expected ErrCommandFailed, got %v", err)
	}
	m.AssertSubcommands(t, "images")
}

func TestPullImage(t *testing.T) {
	t.Parallel()

	m := NewMockCommandRecorder().On("pull", MockResponse{Stdout: alpineID + "\n"})

	img, err := PullImage(t.Context(), m.CLI(t), "docker.io/library/alpine:latest")
	if err != nil {
		t.Fatalf("PullImage() error: %v", err)
	}
	if img.String() != alpineID {
		t.Errorf("String() = %q", img.String())
	}
	m.AssertLastArgs(t, "pull", "--quiet", "docker.io/library/alpine:latest")
}

func TestPullImage_NotFound(t *testing.T) {
	t.Parallel()

	m := NewMockCommandRecorder().On("pull", MockResponse{ExitCode: 125, Stderr: "manifest unknown"})

	_, err := PullImage(t.Context(), m.CLI(t), "nonexistent")
	assertImageNotFound(t, err, "nonexistent")
}

func TestImage_Operations(t *testing.T) {
	t.Parallel()

	m := NewMockCommandRecorder().
		On("inspect", MockResponse{Stdout: `{"Type": "buildah 0.0.1", "FromImageID": "` + alpineID + `", "OCIv1": {"os": "linux"}}`})
	img := ImageFromID(m.CLI(t), alpineID)
	m.AssertInvocationCount(t, 0)

	if err := img.Tag(t.Context(), "app:1", "app:latest"); err != nil {
		t.Fatalf("Tag() error: %v", err)
	}
	m.AssertLastArgs(t, "tag", alpineID, "app:1", "app:latest")

	info, err := img.Inspect(t.Context())
	if err != nil {
		t.Fatalf("Inspect() error: %v", err)
	}
	if info.OCIv1.OS != "linux" {
		t.Errorf("OCIv1.OS = %q", info.OCIv1.OS)
	}
	m.AssertLastArgs(t, "inspect", "--type", "image", alpineID)

	if err := img.Remove(t.Context()); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	m.AssertLastArgs(t, "rmi", alpineID)
}

func assertImageNotFound(t *testing.T, err error, ref string) {
	t.Helper()

	var nf *ImageNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *ImageNotFoundError, got %T: %v", err, err)
	}
	if nf.Ref != ref {
		t.Errorf("Ref = %q, want %q", nf.Ref, ref)
	}
	if !errors.Is(err, ErrImageNotFound) {
		t.Error("expected errors.Is(err, ErrImageNotFound)")
	}
	if errors.Is(err, ErrCommandFailed) {
		t.Error("not-found must be distinguishable from a generic command failure")
	}
	var ce *CommandError
	if !errors.As(nf.Cause, &ce) {
		t.Errorf("Cause should hold the failed pull, got %T", nf.Cause)
	}
}
