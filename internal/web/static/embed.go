// Package static embeds the dashboard page served at the web root.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed dist/index.html
var distFS embed.FS

// GetFileSystem returns an http.FileSystem for the embedded dist directory.
func GetFileSystem() http.FileSystem {
	fsys, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic(err)
	}
	return http.FS(fsys)
}
