// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/microfaas/microfaas/internal/buildah"

	"github.com/spf13/cobra"
)

// runWithTerminal starts command on a pseudo-terminal and relays it to the
// process's own stdin and stdout until the command exits.
func runWithTerminal(cmd *cobra.Command, ctr *buildah.Container, command []string, opts buildah.RunOptions) error {
	if !isTerminal(os.Stdin) {
		slog.Warn("stdin is not a terminal; input is relayed as-is")
	}

	proc, err := ctr.Start(cmd.Context(), command, opts)
	if err != nil {
		return err
	}
	tty := proc.TTY()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// EIO marks the end of output once the child side closes.
		_, _ = io.Copy(cmd.OutOrStdout(), tty)
	}()
	go func() {
		// Stops at the next read after tty is closed by Wait.
		_, _ = io.Copy(tty, cmd.InOrStdin())
	}()

	wg.Wait()
	return proc.Wait()
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
