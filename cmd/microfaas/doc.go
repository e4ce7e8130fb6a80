// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the microfaas command-line interface.
//
// Each subcommand maps onto one operation of the buildah driver in
// internal/buildah. Containers and images are addressed by id or name, so a
// build is a sequence of invocations:
//
//	ctr=$(microfaas from alpine)
//	microfaas config --env APP_ENV=prod --cmd "python -m app" "$ctr"
//	microfaas copy-in "$ctr" ./app /srv/app
//	microfaas commit "$ctr" registry.example.com/app:1
package cmd
