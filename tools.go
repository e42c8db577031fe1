//go:build tools
// +build tools

// Package tools pins build-time tools (mockgen for `go generate`) in go.mod.
package osc_console

import (
	_ "go.uber.org/mock/mockgen"
)
