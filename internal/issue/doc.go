// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. Longer Markdown guidance lives in a catalog keyed by Id
// and is rendered for the terminal with glamour.
package issue
