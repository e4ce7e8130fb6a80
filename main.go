// SPDX-License-Identifier: MPL-2.0

// Command microfaas builds OCI images by driving the buildah CLI.
package main

import cmd "github.com/microfaas/microfaas/cmd/microfaas"

func main() {
	cmd.Execute()
}
