// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errreport reports composer error events as one formatted line
// per event:
//
//	 ✖  14:02:11.042 ERROR [build] exit status 2
//
// A Plugin attaches at most one listener to a host. Options given to New
// override the host-level options stored under OptionsKey, field by field.
package errreport
