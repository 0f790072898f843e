// Package web holds the HTML templates and static assets, compiled into the
// binary with go:embed so the server runs from any working directory.
package web

import "embed"

// Templates contains templates/*.html.
//
//go:embed templates/*.html
var Templates embed.FS

// Static contains static/*, served under /static/.
//
//go:embed static
var Static embed.FS
