// Package web embeds the HTML templates and static assets served by the
// check-in pages and the organizer dashboard.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates returns the page templates, rooted so that paths read like
// "checkin/form.html"
func Templates() fs.FS {
	return mustSub(templatesFS, "templates")
}

// Static returns the assets served under /static/
func Static() fs.FS {
	return mustSub(staticFS, "static")
}

// mustSub panics only if dir is not embedded, which the directives above rule out
func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
