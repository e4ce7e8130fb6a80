// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies a catalog entry.
type Id int

const (
	BuildahNotFoundId Id = iota + 1
	ImageNotFoundId
	CommandFailedId
	ConfigLoadFailedId
	PermissionDeniedId
	ContainerRemovedId
	StorageLockedId
)

type (
	MarkdownMsg string

	HttpLink string

	// Issue is a Markdown explanation of a class of failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue for the terminal with the glamour style at
// stylePath ("dark", "light", "notty", "auto" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	buildahNotFoundIssue = &Issue{
		id: BuildahNotFoundId,
		mdMsg: `
# buildah is not installed

microfaas drives the ` + "`buildah`" + ` command-line tool and could not find it.

## Things you can try:
- Install buildah from your distribution:
~~~
$ sudo dnf install buildah      # Fedora, RHEL
$ sudo apt-get install buildah  # Debian, Ubuntu
~~~

- Point microfaas at an existing binary:
~~~cue
buildah: {
	binary_path: "/usr/local/bin/buildah"
}
~~~`,
		docLinks: []HttpLink{"https://github.com/containers/buildah/blob/main/install.md"},
	}

	imageNotFoundIssue = &Issue{
		id: ImageNotFoundId,
		mdMsg: `
# Image not found

The image is neither in local storage nor could it be pulled.

## Things you can try:
- Check the spelling of the name and tag
- List local images:
~~~
$ microfaas images
~~~

- Make sure you are logged in to private registries:
~~~
$ buildah login registry.example.com
~~~

- Use a fully qualified name (` + "`docker.io/library/alpine:3.20`" + `) when
  short-name resolution is disabled in ` + "`registries.conf`",
	}

	commandFailedIssue = &Issue{
		id: CommandFailedId,
		mdMsg: `
# buildah reported an error

buildah exited with a nonzero status. Its own message is shown above.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to see the exact command line
- Run the printed command by hand to reproduce the problem
- Check that the container still exists:
~~~
$ buildah containers
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

The configuration file could not be read or does not match the schema.

## Things you can try:
- Show where the file is expected:
~~~
$ microfaas settings path
~~~

- Print the defaults and compare:
~~~
$ microfaas settings show
~~~

- Regenerate a fresh file:
~~~
$ microfaas settings init
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

buildah could not access its storage or a host path.

## Common causes:
- Running rootless without subordinate UID/GID ranges
- A ` + "`buildah.root`" + ` directory owned by another user
- Mounting containers rootless without ` + "`buildah unshare`" + `

## Things you can try:
- Add ranges for your user:
~~~
$ sudo usermod --add-subuids 100000-165535 --add-subgids 100000-165535 $USER
~~~

- Use chroot isolation:
~~~cue
buildah: {
	isolation: "chroot"
}
~~~`,
		docLinks: []HttpLink{"https://github.com/containers/buildah/blob/main/docs/tutorials/05-openshift-rootless-build.md"},
	}

	containerRemovedIssue = &Issue{
		id: ContainerRemovedId,
		mdMsg: `
# Container already removed

The working container was removed earlier and can no longer be used.

## Things you can try:
- Create a new one:
~~~
$ microfaas from alpine
~~~`,
	}

	storageLockedIssue = &Issue{
		id: StorageLockedId,
		mdMsg: `
# Storage is busy

Another buildah or podman process holds the storage lock, or the storage
driver failed to mount a layer.

## Things you can try:
- Wait for concurrent builds to finish and retry
- Retry pulls automatically:
~~~
$ microfaas pull --retries 3 alpine
~~~`,
	}

	issues = map[Id]*Issue{
		buildahNotFoundIssue.Id():  buildahNotFoundIssue,
		imageNotFoundIssue.Id():    imageNotFoundIssue,
		commandFailedIssue.Id():    commandFailedIssue,
		configLoadFailedIssue.Id(): configLoadFailedIssue,
		permissionDeniedIssue.Id(): permissionDeniedIssue,
		containerRemovedIssue.Id(): containerRemovedIssue,
		storageLockedIssue.Id():    storageLockedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, id := range slices.Sorted(maps.Keys(issues)) {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
