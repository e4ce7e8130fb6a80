// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"

	"github.com/microfaas/microfaas/internal/buildah"
	"github.com/microfaas/microfaas/internal/config"
	"github.com/microfaas/microfaas/internal/issue"
	"github.com/microfaas/microfaas/internal/metrics"

	"github.com/charmbracelet/log"
)

type (
	// App is the composition root of the CLI. Command handlers receive it
	// and reach buildah, configuration and metrics through it.
	App struct {
		Config  config.Provider
		Metrics *metrics.Recorder

		execCommand buildah.ExecCommandFunc
		stdout      io.Writer
		stderr      io.Writer

		// Set from persistent flags.
		cfgFile     string
		binaryPath  string
		logLevel    string
		verbose     bool
		colorScheme config.ColorScheme

		cfg *config.Config
		cli *buildah.CLI
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config      config.Provider
		Metrics     *metrics.Recorder
		ExecCommand buildah.ExecCommandFunc
		Stdout      io.Writer
		Stderr      io.Writer
	}
)

// NewApp builds an App from deps.
func NewApp(deps Dependencies) (*App, error) {
	app := &App{
		Config:      deps.Config,
		Metrics:     deps.Metrics,
		execCommand: deps.ExecCommand,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
		colorScheme: config.ColorSchemeAuto,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Metrics == nil {
		rec, err := metrics.NewRecorder()
		if err != nil {
			return nil, fmt.Errorf("create metrics recorder: %w", err)
		}
		app.Metrics = rec
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app, nil
}

// configure loads the configuration, merges it with the persistent flags
// and installs the logger. A broken config file is reported and the
// defaults are used so `settings` stays usable for repairing it.
func (a *App) configure(ctx context.Context, flagVerbose, flagLogLevel bool) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.cfgFile})
	if err != nil {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatError(err, a.verbose))
		cfg = config.DefaultConfig()
	}
	a.cfg = cfg

	if !flagVerbose {
		a.verbose = cfg.UI.Verbose
	}
	if !flagLogLevel {
		a.logLevel = string(cfg.Log.Level)
	}
	a.colorScheme = cfg.UI.ColorScheme

	slog.SetDefault(slog.New(newLogger(a.stderr, a.logLevel)))
}

// newLogger returns a charmbracelet logger usable as an slog handler.
// Unknown levels fall back to info.
func newLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "microfaas",
		Level:  lvl,
	})
}

// buildah returns the runner for this invocation, creating it on first use.
func (a *App) buildah() (*buildah.CLI, error) {
	if a.cli != nil {
		return a.cli, nil
	}

	cfg := a.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	opts := []buildah.Option{
		buildah.WithGlobalArgs(cfg.Buildah.GlobalArgs()...),
		buildah.WithObserver(a.Metrics),
	}
	env := cfg.Buildah.Env()
	for _, k := range slices.Sorted(maps.Keys(env)) {
		opts = append(opts, buildah.WithEnv(k, env[k]))
	}
	if a.execCommand != nil {
		opts = append(opts, buildah.WithExecCommand(a.execCommand))
	}

	binary := a.binaryPath
	if binary == "" {
		binary = cfg.Buildah.BinaryPath.String()
	}

	var (
		cli *buildah.CLI
		err error
	)
	switch {
	case a.execCommand != nil && binary != "":
		// Injected runners do not need a real binary on disk.
		cli = buildah.NewCLI(binary, opts...)
	case binary != "":
		var path string
		if path, err = exec.LookPath(binary); err == nil {
			cli = buildah.NewCLI(path, opts...)
		} else {
			err = fmt.Errorf("%w: %w", buildah.ErrBinaryNotFound, err)
		}
	default:
		cli, err = buildah.LookupCLI(opts...)
	}
	if err != nil {
		return nil, explain("locate buildah", binary, err)
	}

	slog.Debug("using buildah", "path", cli.BinaryPath())
	a.cli = cli
	return cli, nil
}

// flushMetrics writes the Prometheus textfile when one is configured.
func (a *App) flushMetrics() {
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := a.Metrics.WriteTextfile(a.cfg.Metrics.Textfile.String()); err != nil {
		slog.Warn("failed to write metrics textfile", "path", a.cfg.Metrics.Textfile, "error", err)
	}
}

// glamourStyle maps the configured color scheme onto a glamour style name.
func (a *App) glamourStyle() string {
	switch a.colorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

// renderError writes err to w. Actionable errors are shown with their
// suggestions, and in verbose mode the linked catalog entry follows.
func (a *App) renderError(w io.Writer, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatError(err, a.verbose))

	var ae *issue.ActionableError
	if !a.verbose || !errors.As(err, &ae) || ae.Issue == 0 {
		return
	}
	entry := issue.Get(ae.Issue)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render(a.glamourStyle())
	if renderErr != nil {
		slog.Warn("failed to render issue catalog entry", "issue", ae.Issue, "error", renderErr)
		return
	}
	fmt.Fprint(w, rendered)
}

// formatError formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatError(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
