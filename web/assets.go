// Package web embeds the control-panel static assets into the binary.
package web

import "embed"

//go:embed static
var Static embed.FS
