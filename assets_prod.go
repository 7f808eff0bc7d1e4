//go:build release

package main

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var embedTemplatesFS embed.FS

//go:embed all:static
var embedStaticFS embed.FS

func init() {
	releaseMode = true
	templatesFS = mustSub(embedTemplatesFS, "templates")
	staticFS = mustSub(embedStaticFS, "static")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic("sub filesystem " + dir + ": " + err.Error())
	}
	return sub
}
