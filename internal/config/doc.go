// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/microfaas/config.cue (or the
// platform equivalent) and validated against the embedded config_schema.cue.
// Every key can be overridden from the environment with the MICROFAAS_ prefix,
// for example MICROFAAS_BUILDAH_ROOT or MICROFAAS_LOG_LEVEL.
package config
