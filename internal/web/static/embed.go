package static

import (
	"embed"
	"io/fs"
	"net/http"
)

// dist holds the built front-end. The repository only carries a placeholder;
// the front-end build writes index.html and assets/ here before go build.
//
//go:embed all:dist
var distFS embed.FS

// GetFileSystem returns an http.FileSystem for the embedded dist directory.
func GetFileSystem() http.FileSystem {
	fsys, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic(err)
	}
	return http.FS(fsys)
}

// HasDist reports whether a built front-end is embedded.
func HasDist() bool {
	_, err := fs.Stat(distFS, "dist/index.html")
	return err == nil
}
