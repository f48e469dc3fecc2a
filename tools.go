//go:build tools
// +build tools

// Package linechat pins Go-based tools invoked via `go generate` (mockgen)
// so they stay tracked in go.mod and go.sum.
package linechat

import (
	_ "go.uber.org/mock/mockgen"
)
