// Package static embeds the portal's HTML templates and stylesheet.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed templates assets
var files embed.FS

// Templates returns the template file system rooted at templates/.
func Templates() fs.FS {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// GetFileSystem returns an http.FileSystem for the embedded assets directory.
func GetFileSystem() http.FileSystem {
	sub, err := fs.Sub(files, "assets")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
