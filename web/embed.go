package web

import (
	"embed"
	"io/fs"
)

// staticFS embeds the frontend build output (web/dist) into the Go binary so
// the application serves its pages without external dependencies.
//
//go:embed all:dist
var staticFS embed.FS

// FS returns the embedded filesystem with the "dist" prefix stripped.
func FS() (fs.FS, error) {
	return fs.Sub(staticFS, "dist")
}
