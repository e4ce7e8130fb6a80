// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/distribution/reference"
	digest "github.com/opencontainers/go-digest"
)

type (
	// Image is an immutable buildah image handle.
	Image struct {
		cli *CLI
		id  string
	}

	// ListOptions configures ListImages.
	ListOptions struct {
		// Name restricts the listing to images matching this name.
		Name string
		// All includes intermediate images.
		All bool
	}

	// ImageSummary is one entry of `buildah images --json`.
	ImageSummary struct {
		ID        string        `json:"id"`
		Names     []string      `json:"names"`
		Digest    digest.Digest `json:"digest"`
		CreatedAt string        `json:"createdat"`
		Size      string        `json:"size"`
		Created   int64         `json:"created"`
		ReadOnly  bool          `json:"readonly"`
		History   []string      `json:"history"`
	}
)

// ImageFromID wraps an identifier already known to be valid, such as the
// output of a commit or pull, without calling buildah.
func ImageFromID(cli *CLI, id string) *Image {
	return &Image{cli: cli, id: id}
}

// ResolveImage returns a handle for ref. A ref equal to a local image id
// (optionally in sha256:<hex> form) is used as-is; anything else is pulled.
// The local check always finishes before a pull is attempted. A failed pull
// is reported as *ImageNotFoundError.
func ResolveImage(ctx context.Context, cli *CLI, ref string) (*Image, error) {
	want := ref
	if d, err := digest.Parse(ref); err == nil {
		want = d.Encoded()
	}

	for img, err := range ListImages(ctx, cli, ListOptions{}) {
		if err != nil {
			return nil, err
		}
		if img.ID == want {
			return ImageFromID(cli, img.ID), nil
		}
	}

	return pull(ctx, cli, ref)
}

// PullImage pulls name unconditionally. A failed pull is reported as
// *ImageNotFoundError.
func PullImage(ctx context.Context, cli *CLI, name string) (*Image, error) {
	return pull(ctx, cli, name)
}

func pull(ctx context.Context, cli *CLI, ref string) (*Image, error) {
	out, err := cli.Output(ctx, "pull", "--quiet", ref)
	if err != nil {
		return nil, &ImageNotFoundError{Ref: ref, Cause: err}
	}
	return ImageFromID(cli, lastLine(out)), nil
}

// ListArgs constructs arguments for `buildah images`.
//
// Generated command: images --json [--all] [name]
func ListArgs(opts ListOptions) []string {
	args := []string{"images", "--json"}
	if opts.All {
		args = append(args, "--all")
	}
	if opts.Name != "" {
		args = append(args, opts.Name)
	}
	return args
}

// ListImages returns a lazy sequence over local images. Nothing runs until
// the sequence is ranged over, and every range issues a fresh query. A
// failed query yields a single error.
func ListImages(ctx context.Context, cli *CLI, opts ListOptions) iter.Seq2[ImageSummary, error] {
	return func(yield func(ImageSummary, error) bool) {
		out, err := cli.Output(ctx, ListArgs(opts)...)
		if err != nil {
			yield(ImageSummary{}, err)
			return
		}
		if strings.TrimSpace(out) == "" {
			return
		}

		var images []ImageSummary
		if err := json.Unmarshal([]byte(out), &images); err != nil {
			yield(ImageSummary{}, fmt.Errorf("decode image list: %w", err))
			return
		}
		for _, img := range images {
			if !yield(img, nil) {
				return
			}
		}
	}
}

// FamiliarNames returns the image names in their short form, e.g.
// "docker.io/library/debian:stable" becomes "debian:stable". Names that do
// not parse as references are returned unchanged.
func (s ImageSummary) FamiliarNames() []string {
	names := make([]string, 0, len(s.Names))
	for _, n := range s.Names {
		named, err := reference.ParseNormalizedNamed(n)
		if err != nil {
			names = append(names, n)
			continue
		}
		names = append(names, reference.FamiliarString(named))
	}
	return names
}

// ID returns the image identifier.
func (i *Image) ID() string {
	return i.id
}

// String returns the image identifier.
func (i *Image) String() string {
	return i.id
}

// Tag adds names to the image. A name without a tag gets :latest.
func (i *Image) Tag(ctx context.Context, names ...string) error {
	args := append([]string{"tag", i.id}, names...)
	return i.cli.Status(ctx, args...)
}

// Inspect returns buildah's metadata for the image.
func (i *Image) Inspect(ctx context.Context) (*Info, error) {
	out, err := i.cli.Output(ctx, "inspect", "--type", "image", i.id)
	if err != nil {
		return nil, err
	}
	return decodeInfo([]byte(out))
}

// Remove deletes the image from local storage.
func (i *Image) Remove(ctx context.Context) error {
	return i.cli.Status(ctx, "rmi", i.id)
}
