// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// IsolationDefault leaves the choice to buildah.
	IsolationDefault Isolation = ""
	// IsolationOCI runs commands with an OCI runtime.
	IsolationOCI Isolation = "oci"
	// IsolationRootless runs commands with a rootless OCI runtime.
	IsolationRootless Isolation = "rootless"
	// IsolationChroot runs commands in a chroot, without namespaces.
	IsolationChroot Isolation = "chroot"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// isolationEnv is the variable buildah reads its default isolation from.
	isolationEnv = "BUILDAH_ISOLATION"
)

var (
	// ErrInvalidIsolation is returned when an Isolation value is not recognized.
	ErrInvalidIsolation = errors.New("invalid isolation")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidFilePath is returned when a path is whitespace-only.
	ErrInvalidFilePath = errors.New("invalid file path")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Isolation selects how buildah isolates RUN commands.
	Isolation string

	// InvalidIsolationError is returned when an Isolation value is not recognized.
	// It wraps ErrInvalidIsolation for errors.Is() compatibility.
	InvalidIsolationError struct {
		Value Isolation
	}

	// LogLevel is the minimum level of log records printed by the CLI.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// FilePath is an optional filesystem path. The zero value means "unset";
	// non-zero values must not be whitespace-only.
	FilePath string

	// InvalidFilePathError is returned when a FilePath is whitespace-only.
	InvalidFilePathError struct {
		Field string
		Value FilePath
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Buildah configures how the buildah binary is invoked
		Buildah BuildahConfig `json:"buildah" mapstructure:"buildah"`
		// Log configures the CLI logger
		Log LogConfig `json:"log" mapstructure:"log"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
		// Metrics configures the Prometheus textfile export
		Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
	}

	// BuildahConfig holds the binary location and the storage flags passed to
	// every invocation.
	BuildahConfig struct {
		BinaryPath    FilePath  `json:"binary_path" mapstructure:"binary_path"`
		Root          FilePath  `json:"root" mapstructure:"root"`
		RunRoot       FilePath  `json:"runroot" mapstructure:"runroot"`
		StorageDriver string    `json:"storage_driver" mapstructure:"storage_driver"`
		Isolation     Isolation `json:"isolation" mapstructure:"isolation"`
	}

	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables verbose error output and issue rendering
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// ColorScheme sets the glamour style used for issue rendering
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}

	MetricsConfig struct {
		Textfile FilePath `json:"textfile" mapstructure:"textfile"`
	}
)

// GlobalArgs returns the global flags that precede every buildah subcommand.
func (b BuildahConfig) GlobalArgs() []string {
	var args []string
	if b.Root != "" {
		args = append(args, "--root", string(b.Root))
	}
	if b.RunRoot != "" {
		args = append(args, "--runroot", string(b.RunRoot))
	}
	if b.StorageDriver != "" {
		args = append(args, "--storage-driver", b.StorageDriver)
	}
	return args
}

// Env returns the environment overrides for buildah invocations.
func (b BuildahConfig) Env() map[string]string {
	env := map[string]string{}
	if b.Isolation != IsolationDefault {
		env[isolationEnv] = string(b.Isolation)
	}
	return env
}

// IsValid returns whether the Config has valid fields, collecting every
// field error into a single InvalidConfigError.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	check := func(valid bool, fieldErrs []error) {
		if !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	check(c.Buildah.BinaryPath.validate("buildah.binary_path"))
	check(c.Buildah.Root.validate("buildah.root"))
	check(c.Buildah.RunRoot.validate("buildah.runroot"))
	check(c.Buildah.Isolation.IsValid())
	check(c.Log.Level.IsValid())
	check(c.UI.ColorScheme.IsValid())
	check(c.Metrics.Textfile.validate("metrics.textfile"))
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap exposes the sentinel and every field error to errors.Is/As.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// String returns the string representation of the FilePath.
func (p FilePath) String() string { return string(p) }

func (p FilePath) validate(field string) (bool, []error) {
	if p != "" && strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidFilePathError{Field: field, Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidFilePathError.
func (e *InvalidFilePathError) Error() string {
	return fmt.Sprintf("%s: invalid path %q: non-empty value must not be whitespace-only", e.Field, e.Value)
}

// Unwrap returns ErrInvalidFilePath for errors.Is() compatibility.
func (e *InvalidFilePathError) Unwrap() error { return ErrInvalidFilePath }

// String returns the string representation of the Isolation.
func (i Isolation) String() string { return string(i) }

// IsValid returns whether the Isolation is one of the defined modes.
func (i Isolation) IsValid() (bool, []error) {
	switch i {
	case IsolationDefault, IsolationOCI, IsolationRootless, IsolationChroot:
		return true, nil
	default:
		return false, []error{&InvalidIsolationError{Value: i}}
	}
}

// Error implements the error interface for InvalidIsolationError.
func (e *InvalidIsolationError) Error() string {
	return fmt.Sprintf("invalid isolation %q (valid: oci, rootless, chroot)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidIsolationError) Unwrap() error { return ErrInvalidIsolation }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Buildah: BuildahConfig{
			BinaryPath: "", // looked up on PATH
			Isolation:  IsolationDefault,
		},
		Log: LogConfig{
			Level: LogLevelInfo,
		},
		UI: UIConfig{
			Verbose:     false,
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// defaultKeys flattens DefaultConfig into viper keys.
func defaultKeys() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"buildah.binary_path":    string(d.Buildah.BinaryPath),
		"buildah.root":           string(d.Buildah.Root),
		"buildah.runroot":        string(d.Buildah.RunRoot),
		"buildah.storage_driver": d.Buildah.StorageDriver,
		"buildah.isolation":      string(d.Buildah.Isolation),
		"log.level":              string(d.Log.Level),
		"ui.verbose":             d.UI.Verbose,
		"ui.color_scheme":        string(d.UI.ColorScheme),
		"metrics.textfile":       string(d.Metrics.Textfile),
	}
}
