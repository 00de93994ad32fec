// Package version exposes the release version embedded at build time.
package version

import (
	"bytes"
	_ "embed"
)

//go:embed version.txt
var raw []byte

// String returns the version, stripped of surrounding whitespace.
func String() string {
	return string(bytes.TrimSpace(raw))
}
